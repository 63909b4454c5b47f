package usecase

import (
	"errors"
	"math"
	"testing"

	"marketpulse/internal/domain/models"
)

func risingBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = models.Bar{
			OpenTime: int64(i) * 60_000,
			Open:     c - 1,
			High:     c + 0.5,
			Low:      c - 1.5,
			Close:    c,
			Volume:   10,
		}
	}
	return bars
}

func fallingBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 1000 - float64(i)
		bars[i] = models.Bar{
			OpenTime: int64(i) * 60_000,
			Open:     c + 1,
			High:     c + 1.5,
			Low:      c - 0.5,
			Close:    c,
			Volume:   10,
		}
	}
	return bars
}

func TestScoreRejectsShortSequences(t *testing.T) {
	if _, err := Score(risingBars(199)); !errors.Is(err, ErrInsufficientBars) {
		t.Fatalf("expected insufficient bars error, got %v", err)
	}
}

func TestScoreMonotonicRiseIsLong(t *testing.T) {
	sig, err := Score(risingBars(250))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.Direction != models.DirectionLong {
		t.Fatalf("monotonic rise must score LONG, got %s", sig.Direction)
	}
	if sig.EMA50 <= sig.EMA200 {
		t.Fatalf("trend component wrong: ema50=%v ema200=%v", sig.EMA50, sig.EMA200)
	}
	if sig.RSI14 <= 55 {
		t.Fatalf("momentum should be positive, rsi=%v", sig.RSI14)
	}
}

func TestScoreMonotonicFallIsShort(t *testing.T) {
	sig, err := Score(fallingBars(250))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.Direction != models.DirectionShort {
		t.Fatalf("monotonic fall must score SHORT, got %s", sig.Direction)
	}
	if sig.StopLoss <= sig.EntryPrice {
		t.Fatalf("short stop must sit above entry: stop=%v entry=%v", sig.StopLoss, sig.EntryPrice)
	}
	if sig.TakeProfit >= sig.EntryPrice {
		t.Fatalf("short target must sit below entry: target=%v entry=%v", sig.TakeProfit, sig.EntryPrice)
	}
}

func TestScoreConfidenceBuckets(t *testing.T) {
	allowed := map[int]bool{60: true, 70: true, 80: true, 90: true}

	inputs := [][]models.Bar{risingBars(250), fallingBars(250), choppyBars(250)}
	for i, bars := range inputs {
		sig, err := Score(bars)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if !allowed[sig.Confidence] {
			t.Fatalf("case %d: confidence %d not in {60,70,80,90}", i, sig.Confidence)
		}
	}
}

func choppyBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 100 + float64(i%2)
		bars[i] = models.Bar{OpenTime: int64(i) * 60_000, Open: 100.5, High: c + 1, Low: c - 1, Close: c, Volume: 5}
	}
	return bars
}

func TestScoreStopAndTargetAreATRMultiples(t *testing.T) {
	bars := risingBars(250)
	sig, err := Score(bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := bars[len(bars)-1].Close
	if math.Abs(sig.StopLoss-(entry-1.2*sig.ATR14)) > 1e-9 {
		t.Fatalf("stop mismatch: %v", sig.StopLoss)
	}
	if math.Abs(sig.TakeProfit-(entry+2.0*sig.ATR14)) > 1e-9 {
		t.Fatalf("target mismatch: %v", sig.TakeProfit)
	}
}

func TestScoreDeterministic(t *testing.T) {
	bars := risingBars(220)
	a, err := Score(bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := Score(bars)
	if a.Confidence != b.Confidence || a.RSI14 != b.RSI14 || a.EMA200 != b.EMA200 {
		t.Fatalf("scorer must be pure: %+v vs %+v", a, b)
	}
}
