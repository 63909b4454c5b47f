package usecase

import (
	"context"
	"errors"
	"testing"

	"marketpulse/internal/domain/models"
	drepo "marketpulse/internal/domain/repository"
	"marketpulse/internal/service/history"
)

type fakeSource struct {
	name string
	bars []models.Bar
	err  error
}

func (f *fakeSource) Name() string                     { return f.name }
func (f *fakeSource) Supports(tf drepo.Timeframe) bool { return true }
func (f *fakeSource) Fetch(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Bar, error) {
	return f.bars, f.err
}

type mapCache struct {
	m    map[string][]models.Bar
	sets int
}

func (c *mapCache) Get(_ context.Context, key string) ([]models.Bar, bool) {
	bars, ok := c.m[key]
	return bars, ok
}

func (c *mapCache) Set(_ context.Context, key string, bars []models.Bar) {
	c.sets++
	c.m[key] = bars
}

type captivePublisher struct {
	signals []*models.Signal
}

func (p *captivePublisher) PublishSignal(_ context.Context, s *models.Signal) error {
	p.signals = append(p.signals, s)
	return nil
}
func (p *captivePublisher) PublishLiquidation(_ context.Context, _ *models.Liquidation) error {
	return nil
}
func (p *captivePublisher) Close() error { return nil }

func TestPipelineComputesAndPublishes(t *testing.T) {
	src := &fakeSource{name: "binance", bars: risingBars(300)}
	chain := history.NewChain(nil, nil, history.RateLimits{}, src)
	cache := &mapCache{m: map[string][]models.Bar{}}
	pub := &captivePublisher{}
	p := NewSignalPipeline(chain, cache, pub, nil, nil)

	sig, err := p.Compute(context.Background(), "BTCUSDT", drepo.TF1h, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.Symbol != "BTCUSDT" || sig.Timeframe != "1h" || sig.Source != "binance" {
		t.Fatalf("signal metadata wrong: %+v", sig)
	}
	if len(pub.signals) != 1 {
		t.Fatalf("expected one published signal, got %d", len(pub.signals))
	}
	if cache.sets != 1 {
		t.Fatalf("fetched bars should be cached")
	}
}

func TestPipelineServesFromCache(t *testing.T) {
	src := &fakeSource{name: "binance", err: errors.New("down")}
	chain := history.NewChain(nil, nil, history.RateLimits{}, src)
	cache := &mapCache{m: map[string][]models.Bar{
		"bars:BTCUSDT:1h:300": risingBars(300),
	}}
	p := NewSignalPipeline(chain, cache, nil, nil, nil)

	sig, err := p.Compute(context.Background(), "BTCUSDT", drepo.TF1h, 300)
	if err != nil {
		t.Fatalf("cache hit must bypass the failing chain: %v", err)
	}
	if sig.Source != "cache" {
		t.Fatalf("expected cache source, got %s", sig.Source)
	}
}

func TestPipelineSurfacesExhaustion(t *testing.T) {
	src := &fakeSource{name: "binance", err: errors.New("status 503")}
	chain := history.NewChain(nil, nil, history.RateLimits{}, src)
	p := NewSignalPipeline(chain, nil, nil, nil, nil)

	_, err := p.Compute(context.Background(), "BTCUSDT", drepo.TF1h, 300)
	if !errors.Is(err, history.ErrSourcesExhausted) {
		t.Fatalf("expected exhaustion error, got %v", err)
	}
}

func TestPipelineValidatesInput(t *testing.T) {
	p := NewSignalPipeline(history.NewChain(nil, nil, history.RateLimits{}), nil, nil, nil, nil)
	if _, err := p.Compute(context.Background(), "", drepo.TF1h, 300); err == nil {
		t.Fatalf("empty symbol must fail fast")
	}
	if _, err := p.Compute(context.Background(), "BTCUSDT", drepo.TF1h, 100); !errors.Is(err, ErrInsufficientBars) {
		t.Fatalf("limit below minimum must fail fast, got %v", err)
	}
}
