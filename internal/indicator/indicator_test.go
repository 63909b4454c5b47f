package indicator

import (
	"math"
	"testing"

	"marketpulse/internal/domain/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEMASeedAndLength(t *testing.T) {
	values := []float64{10, 11, 12, 13, 14}
	out := EMA(values, 3)
	if len(out) != len(values) {
		t.Fatalf("expected length %d, got %d", len(values), len(out))
	}
	if !almostEqual(out[0], 10) {
		t.Fatalf("expected seed from first raw value, got %v", out[0])
	}
	// k = 2/(3+1) = 0.5
	if !almostEqual(out[1], 0.5*11+0.5*10) {
		t.Fatalf("unexpected second term %v", out[1])
	}
}

func TestEMAConstantSeries(t *testing.T) {
	values := []float64{42, 42, 42, 42, 42, 42}
	for _, v := range EMA(values, 4) {
		if !almostEqual(v, 42) {
			t.Fatalf("constant input must yield constant EMA, got %v", v)
		}
	}
}

func TestRSIUndefinedPrefix(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	out := RSI(closes, 14)
	for i := 0; i < 14; i++ {
		if !math.IsNaN(out[i]) {
			t.Fatalf("position %d should be undefined, got %v", i, out[i])
		}
	}
	if math.IsNaN(out[14]) {
		t.Fatalf("position 14 is the first defined value")
	}
}

func TestRSIStrictlyIncreasing(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	out := RSI(closes, 14)
	last := out[len(out)-1]
	if last != 100 {
		t.Fatalf("strictly increasing closes have zero average loss, expected 100, got %v", last)
	}
}

func TestRSIBounded(t *testing.T) {
	closes := []float64{
		100, 97, 103, 99, 104, 98, 105, 97, 106, 96,
		107, 95, 108, 94, 109, 93, 110, 92, 111, 91,
	}
	for i, v := range RSI(closes, 14) {
		if math.IsNaN(v) {
			continue
		}
		if v < 0 || v > 100 {
			t.Fatalf("rsi[%d]=%v out of [0,100]", i, v)
		}
	}
}

func TestRSIDeterministic(t *testing.T) {
	closes := []float64{10, 12, 11, 13, 12, 14, 13, 15, 14, 16, 15, 17, 16, 18, 17, 19}
	a := RSI(closes, 14)
	b := RSI(closes, 14)
	for i := range a {
		if a[i] != b[i] && !(math.IsNaN(a[i]) && math.IsNaN(b[i])) {
			t.Fatalf("rsi not deterministic at %d: %v != %v", i, a[i], b[i])
		}
	}
}

func flatBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{OpenTime: int64(i), Open: 100, High: 100, Low: 100, Close: 100}
	}
	return bars
}

func TestATRFlatMarketIsZero(t *testing.T) {
	out := ATR(flatBars(30), 14)
	for i := 13; i < len(out); i++ {
		if out[i] != 0 {
			t.Fatalf("flat bars must give atr 0, got %v at %d", out[i], i)
		}
	}
}

func TestATRUndefinedPrefixAndNonNegative(t *testing.T) {
	bars := make([]models.Bar, 40)
	for i := range bars {
		c := 100 + float64(i%7)
		bars[i] = models.Bar{OpenTime: int64(i), Open: c - 1, High: c + 2, Low: c - 2, Close: c}
	}
	out := ATR(bars, 14)
	for i := 0; i < 13; i++ {
		if !math.IsNaN(out[i]) {
			t.Fatalf("position %d should be undefined, got %v", i, out[i])
		}
	}
	for i := 13; i < len(out); i++ {
		if out[i] < 0 {
			t.Fatalf("atr must be non-negative, got %v at %d", out[i], i)
		}
	}
}

func TestTrueRangeUsesPreviousClose(t *testing.T) {
	bars := []models.Bar{
		{High: 105, Low: 100, Close: 104},
		{High: 106, Low: 104, Close: 105}, // gap-free: TR = high-low = 2
		{High: 104, Low: 103, Close: 103}, // |low - prev close| = 2 > high-low = 1
	}
	tr := TrueRange(bars)
	if !almostEqual(tr[0], 5) {
		t.Fatalf("first bar TR must be high-low, got %v", tr[0])
	}
	if !almostEqual(tr[2], 2) {
		t.Fatalf("expected TR from previous close, got %v", tr[2])
	}
}
