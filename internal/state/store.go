// Package state owns the per-instrument aggregate market state: cumulative
// volume delta, top-of-book mids, premium, book imbalance, and the rolling
// liquidation window.
package state

import (
	"math"
	"sync"
	"time"

	"marketpulse/internal/domain/models"
)

const (
	// LiquidationWindow bounds how long a liquidation stays in the window.
	LiquidationWindow = 5 * time.Minute

	// imbalanceEpsilon guards the imbalance denominator on an empty book.
	imbalanceEpsilon = 1e-9
)

// flow tracks signed trade volume for one market leg. delta1s is a
// display-only momentary gauge reset at each new second boundary.
type flow struct {
	cvd        float64
	delta1s    float64
	lastSecond int64
}

func (f *flow) apply(qty float64, tradeTimeMillis int64) {
	sec := tradeTimeMillis / 1000
	if sec != f.lastSecond {
		f.delta1s = 0
		f.lastSecond = sec
	}
	f.cvd += qty
	f.delta1s += qty
}

type instrument struct {
	mu sync.Mutex

	symbol string
	spot   flow
	perp   flow

	spotMid float64 // NaN until first valid depth
	perpMid float64
	premium float64 // NaN until both mids known

	imbalanceSpot float64
	imbalancePerp float64

	window   []models.Liquidation
	longUSD  float64
	shortUSD float64

	updatedAt time.Time
}

// Store keys one mutable instrument record per tracked symbol. Records are
// created lazily on first reference and live for the process lifetime.
type Store struct {
	mu          sync.RWMutex
	instruments map[string]*instrument
	now         func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		instruments: make(map[string]*instrument),
		now:         time.Now,
	}
}

func (s *Store) instrumentFor(symbol string) *instrument {
	s.mu.RLock()
	in, ok := s.instruments[symbol]
	s.mu.RUnlock()
	if ok {
		return in
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if in, ok = s.instruments[symbol]; ok {
		return in
	}
	in = &instrument{
		symbol:  symbol,
		spotMid: math.NaN(),
		perpMid: math.NaN(),
		premium: math.NaN(),
	}
	s.instruments[symbol] = in
	return in
}

// ApplyTrade updates the leg's cumulative and per-second delta, signed by
// aggressor side.
func (s *Store) ApplyTrade(t *models.Trade) {
	in := s.instrumentFor(t.Symbol)
	qty := t.Quantity
	if t.SellerInitiated {
		qty = -qty
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	switch t.Market {
	case models.MarketPerp:
		in.perp.apply(qty, t.TradeTime)
	default:
		in.spot.apply(qty, t.TradeTime)
	}
	in.updatedAt = s.now()
}

// ApplyDepth recomputes the leg's midpoint and book imbalance, then the
// premium when both mids are known.
func (s *Store) ApplyDepth(d *models.Depth) {
	in := s.instrumentFor(d.Symbol)

	mid := math.NaN()
	if len(d.Bids) > 0 && len(d.Asks) > 0 {
		mid = (d.Bids[0].Price + d.Asks[0].Price) / 2
	}
	imb := bookImbalance(d.Bids, d.Asks)

	in.mu.Lock()
	defer in.mu.Unlock()
	switch d.Market {
	case models.MarketPerp:
		if !math.IsNaN(mid) {
			in.perpMid = mid
		}
		in.imbalancePerp = imb
	default:
		if !math.IsNaN(mid) {
			in.spotMid = mid
		}
		in.imbalanceSpot = imb
	}
	if !math.IsNaN(in.spotMid) && !math.IsNaN(in.perpMid) {
		in.premium = in.perpMid - in.spotMid
	}
	in.updatedAt = s.now()
}

func bookImbalance(bids, asks []models.PriceLevel) float64 {
	var bidVol, askVol float64
	for _, l := range bids {
		bidVol += l.Quantity
	}
	for _, l := range asks {
		askVol += l.Quantity
	}
	return (bidVol - askVol) / math.Max(bidVol+askVol, imbalanceEpsilon)
}

// ApplyLiquidation appends the event, evicts entries older than the window,
// and recomputes the side sums so they always equal the filtered totals.
func (s *Store) ApplyLiquidation(l *models.Liquidation) {
	in := s.instrumentFor(l.Symbol)
	ev := *l
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	if ev.NotionalUSD == 0 {
		ev.NotionalUSD = ev.Price * ev.Quantity
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.window = append(in.window, ev)
	in.evictAndResum(s.now())
	in.updatedAt = s.now()
}

// evictAndResum must be called with in.mu held.
func (in *instrument) evictAndResum(now time.Time) {
	cutoff := now.Add(-LiquidationWindow)
	kept := in.window[:0]
	var long, short float64
	for _, ev := range in.window {
		if ev.At.Before(cutoff) {
			continue
		}
		kept = append(kept, ev)
		switch ev.Side {
		case models.LiquidationShort:
			short += ev.NotionalUSD
		default:
			long += ev.NotionalUSD
		}
	}
	in.window = kept
	in.longUSD = long
	in.shortUSD = short
}

// Snapshot returns a copy of the latest derived metrics for symbol. The
// second return is false when the instrument has never been referenced.
func (s *Store) Snapshot(symbol string) (models.StateSnapshot, bool) {
	s.mu.RLock()
	in, ok := s.instruments[symbol]
	s.mu.RUnlock()
	if !ok {
		return models.StateSnapshot{}, false
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.evictAndResum(s.now())
	return models.StateSnapshot{
		Symbol:        in.symbol,
		SpotCVD:       in.spot.cvd,
		SpotDelta1s:   in.spot.delta1s,
		PerpCVD:       in.perp.cvd,
		PerpDelta1s:   in.perp.delta1s,
		SpotMid:       in.spotMid,
		PerpMid:       in.perpMid,
		Premium:       in.premium,
		ImbalanceSpot: in.imbalanceSpot,
		ImbalancePerp: in.imbalancePerp,
		Liquidations: models.LiquidationSums{
			LongUSD5m:  in.longUSD,
			ShortUSD5m: in.shortUSD,
			Count:      len(in.window),
		},
		UpdatedAt: in.updatedAt,
	}, true
}

// Symbols lists every instrument that has been referenced.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.instruments))
	for sym := range s.instruments {
		out = append(out, sym)
	}
	return out
}
