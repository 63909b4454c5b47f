package usecase

import (
	"context"
	"fmt"
	"time"

	"marketpulse/internal/domain/models"
	drepo "marketpulse/internal/domain/repository"
	"marketpulse/internal/service/history"
	"marketpulse/pkg/logger"
)

// SignalPipeline is the synchronous fetch → indicators → score path. The
// caller receives either a complete Signal or a single descriptive error.
type SignalPipeline struct {
	chain   *history.Chain
	cache   drepo.BarCache  // optional
	pub     drepo.Publisher // optional
	metrics drepo.Metrics
	log     *logger.Logger
}

// NewSignalPipeline wires the pipeline. cache and pub may be nil.
func NewSignalPipeline(chain *history.Chain, cache drepo.BarCache, pub drepo.Publisher, metrics drepo.Metrics, log *logger.Logger) *SignalPipeline {
	return &SignalPipeline{chain: chain, cache: cache, pub: pub, metrics: metrics, log: log}
}

// Compute fetches limit bars for (symbol, tf) over the source chain and
// scores them.
func (p *SignalPipeline) Compute(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) (*models.Signal, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if limit <= 0 {
		limit = 500
	}
	if limit < MinScoreBars {
		return nil, fmt.Errorf("%w: limit %d below minimum %d", ErrInsufficientBars, limit, MinScoreBars)
	}
	start := time.Now()

	bars, source, err := p.fetchBars(ctx, symbol, tf, limit)
	if err != nil {
		return nil, err
	}

	sig, err := Score(bars)
	if err != nil {
		return nil, err
	}
	sig.Symbol = symbol
	sig.Timeframe = string(tf)
	sig.Source = source
	sig.At = time.Now()

	if p.metrics != nil {
		p.metrics.RecordSignal(symbol, string(sig.Direction))
		p.metrics.RecordLatency("signal_compute", time.Since(start).Seconds())
	}
	if p.pub != nil {
		if err := p.pub.PublishSignal(ctx, &sig); err != nil && p.log != nil {
			p.log.Warn("signal publish failed", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return &sig, nil
}

func (p *SignalPipeline) fetchBars(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Bar, string, error) {
	key := fmt.Sprintf("bars:%s:%s:%d", symbol, tf, limit)
	if p.cache != nil {
		if bars, ok := p.cache.Get(ctx, key); ok {
			return bars, "cache", nil
		}
	}
	bars, source, err := p.chain.Fetch(ctx, symbol, tf, limit)
	if err != nil {
		return nil, "", fmt.Errorf("fetch bars: %w", err)
	}
	if p.cache != nil {
		p.cache.Set(ctx, key, bars)
	}
	return bars, source, nil
}
