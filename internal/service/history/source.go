// Package history implements the resilient historical-bar fetcher: an
// ordered chain of venue sources, each with its own mirrors and timeframe
// vocabulary, returning normalized OHLC sequences.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"marketpulse/internal/domain/models"
	drepo "marketpulse/internal/domain/repository"
	"marketpulse/internal/service/ratelimit"
	"marketpulse/pkg/logger"
)

var (
	// ErrSourcesExhausted is the only error the fetch path surfaces to the
	// caller; it wraps the last per-source cause.
	ErrSourcesExhausted = errors.New("all historical sources failed")

	// ErrUnsupportedTimeframe marks a timeframe a source cannot translate.
	// It is raised before any network call.
	ErrUnsupportedTimeframe = errors.New("unsupported timeframe for source")
)

// RateLimits paces requests per source. Zero values fall back to ten
// tokens of burst refilled at five per second.
type RateLimits struct {
	Burst     float64
	PerSecond float64
}

// Chain tries a statically ordered list of sources and returns the first
// successful normalized bar sequence.
type Chain struct {
	sources []drepo.HistoricalSource
	limiter *ratelimit.Limiter
	limits  RateLimits
	metrics drepo.Metrics
	log     *logger.Logger
}

// NewChain builds a fetch chain over the given sources, in order.
func NewChain(log *logger.Logger, metrics drepo.Metrics, limits RateLimits, sources ...drepo.HistoricalSource) *Chain {
	if limits.Burst <= 0 {
		limits.Burst = 10
	}
	if limits.PerSecond <= 0 {
		limits.PerSecond = 5
	}
	return &Chain{
		sources: sources,
		limiter: ratelimit.New(),
		limits:  limits,
		metrics: metrics,
		log:     log,
	}
}

// Fetch validates the timeframe per source, then walks the chain. A source
// failure (including an unsupported timeframe) records the error and moves
// on; the first success returns immediately.
func (c *Chain) Fetch(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Bar, string, error) {
	if !drepo.IsValidTimeframe(tf) {
		return nil, "", fmt.Errorf("timeframe %q not in supported vocabulary %v", tf, drepo.Timeframes)
	}
	if limit <= 0 {
		limit = 500
	}

	var lastErr error
	for _, src := range c.sources {
		if !src.Supports(tf) {
			lastErr = fmt.Errorf("%s: %w: %s", src.Name(), ErrUnsupportedTimeframe, tf)
			continue
		}
		if !c.limiter.Allow(src.Name(), c.limits.Burst, c.limits.PerSecond) {
			lastErr = fmt.Errorf("%s: rate limited", src.Name())
			continue
		}
		bars, err := src.Fetch(ctx, symbol, tf, limit)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", src.Name(), err)
			if c.metrics != nil {
				c.metrics.RecordSourceFailure(src.Name())
			}
			if c.log != nil {
				c.log.Warn("historical source failed",
					logger.String("source", src.Name()),
					logger.String("symbol", symbol),
					logger.Error(err))
			}
			continue
		}
		return bars, src.Name(), nil
	}
	return nil, "", fmt.Errorf("%w: %v", ErrSourcesExhausted, lastErr)
}

// normalizeBars sorts ascending by open time and removes duplicate open
// times, keeping the first occurrence.
func normalizeBars(bars []models.Bar) []models.Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].OpenTime < bars[j].OpenTime })
	out := bars[:0]
	var last int64 = -1
	for _, b := range bars {
		if b.OpenTime == last {
			continue
		}
		out = append(out, b)
		last = b.OpenTime
	}
	return out
}

// parseFloat accepts the string or number forms venues mix in kline rows.
func parseFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

func parseMillis(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// rowToBar maps a venue kline row laid out as
// [openTime, open, high, low, close, volume, ...] to a Bar.
func rowToBar(row []any) (models.Bar, bool) {
	if len(row) < 6 {
		return models.Bar{}, false
	}
	ot, ok := parseMillis(row[0])
	if !ok {
		return models.Bar{}, false
	}
	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		f, ok := parseFloat(row[i+1])
		if !ok {
			return models.Bar{}, false
		}
		vals[i] = f
	}
	return models.Bar{
		OpenTime: ot,
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, true
}
