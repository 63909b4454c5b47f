package state

import (
	"context"

	drepo "marketpulse/internal/domain/repository"
)

// Aggregator consumes decoded stream events and applies them to the store
// in arrival order. A single goroutine drains the channel for all
// instruments, so per-stream ordering holds without extra locking on the
// apply path.
type Aggregator struct {
	store   *Store
	metrics drepo.Metrics
	pub     drepo.Publisher // optional
	events  chan drepo.StreamEvent
}

// NewAggregator creates an aggregator with a buffered event channel.
func NewAggregator(store *Store, metrics drepo.Metrics, pub drepo.Publisher, buffer int) *Aggregator {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Aggregator{
		store:   store,
		metrics: metrics,
		pub:     pub,
		events:  make(chan drepo.StreamEvent, buffer),
	}
}

// Events returns the channel connectors push decoded events onto.
func (a *Aggregator) Events() chan<- drepo.StreamEvent { return a.events }

// Run applies events until ctx is done. Callers run this in its own
// goroutine; nothing waits on this path.
func (a *Aggregator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-a.events:
			a.apply(ctx, ev)
		}
	}
}

func (a *Aggregator) apply(ctx context.Context, ev drepo.StreamEvent) {
	switch {
	case ev.Trade != nil:
		a.store.ApplyTrade(ev.Trade)
		if a.metrics != nil {
			a.metrics.RecordLastPrice(ev.Trade.Symbol, ev.Trade.Price)
		}
	case ev.Depth != nil:
		a.store.ApplyDepth(ev.Depth)
	case ev.Liquidation != nil:
		a.store.ApplyLiquidation(ev.Liquidation)
		if a.pub != nil {
			// fire-and-forget; downstream delivery is at-most-once
			_ = a.pub.PublishLiquidation(ctx, ev.Liquidation)
		}
	}
}
