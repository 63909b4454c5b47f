package repository

import (
	"context"

	"marketpulse/internal/domain/models"
)

// StreamEvent is one decoded frame from a live venue stream. Exactly one
// field is non-nil.
type StreamEvent struct {
	Trade       *models.Trade
	Depth       *models.Depth
	Liquidation *models.Liquidation
}

// MarketStream is one long-lived (venue, instrument, kind) connection that
// decodes raw frames into typed events. Malformed frames are dropped, not
// surfaced.
type MarketStream interface {
	// Run connects, streams decoded events into out, and reconnects with
	// backoff until ctx is done.
	Run(ctx context.Context, out chan<- StreamEvent)
	IsConnected() bool
	Name() string
}

// HistoricalSource serves normalized OHLC bars for one venue.
type HistoricalSource interface {
	Name() string
	Supports(tf Timeframe) bool
	Fetch(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Bar, error)
}

// Publisher pushes computed signals and liquidation updates to downstream
// consumers. Delivery is at-most-once.
type Publisher interface {
	PublishSignal(ctx context.Context, s *models.Signal) error
	PublishLiquidation(ctx context.Context, l *models.Liquidation) error
	Close() error
}

// BarCache is a short-TTL cache of normalized bar sequences.
type BarCache interface {
	Get(ctx context.Context, key string) ([]models.Bar, bool)
	Set(ctx context.Context, key string, bars []models.Bar)
}

// Metrics records pipeline and connector observability counters.
type Metrics interface {
	RecordFrame(stream string)
	RecordFrameDropped(stream string)
	RecordReconnect(stream string)
	RecordSourceFailure(source string)
	RecordSignal(symbol string, direction string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
