package usecase

import (
	"errors"
	"fmt"
	"math"

	"marketpulse/internal/domain/models"
	"marketpulse/internal/indicator"
)

// MinScoreBars is the minimum OHLC sequence length for a meaningful EMA200.
const MinScoreBars = 200

// bodyLookback is the trailing window for the volatility-expansion proxy.
const bodyLookback = 30

// ErrInsufficientBars is returned before any scoring work when the input
// sequence is too short.
var ErrInsufficientBars = errors.New("insufficient bars for scoring")

// Score turns an OHLC sequence into a directional signal. The scorer is a
// heuristic: its confidence is a label, not a backtested probability.
func Score(bars []models.Bar) (models.Signal, error) {
	if len(bars) < MinScoreBars {
		return models.Signal{}, fmt.Errorf("%w: got %d, need at least %d", ErrInsufficientBars, len(bars), MinScoreBars)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	last := bars[len(bars)-1]

	ema50 := lastValue(indicator.EMA(closes, 50))
	ema200 := lastValue(indicator.EMA(closes, 200))
	rsi14 := lastValue(indicator.RSI(closes, 14))
	if math.IsNaN(rsi14) {
		rsi14 = 50
	}
	atr14 := lastValue(indicator.ATR(bars, 14))
	if math.IsNaN(atr14) {
		atr14 = last.High - last.Low
	}

	trend := -1
	if ema50 > ema200 {
		trend = 1
	}

	momentum := 0
	switch {
	case rsi14 > 55:
		momentum = 1
	case rsi14 < 45:
		momentum = -1
	}

	expansion := -1
	if math.Abs(last.Close-last.Open) > meanBody(bars, bodyLookback) {
		expansion = 1
	}

	total := trend + momentum + expansion

	direction := models.DirectionShort
	if total >= 0 {
		direction = models.DirectionLong
	}
	confidence := int(math.Round(60 + math.Abs(float64(total))/3*30))

	stop := last.Close - 1.2*atr14
	target := last.Close + 2.0*atr14
	if direction == models.DirectionShort {
		stop = last.Close + 1.2*atr14
		target = last.Close - 2.0*atr14
	}

	return models.Signal{
		Direction:  direction,
		Confidence: confidence,
		EntryPrice: last.Close,
		StopLoss:   stop,
		TakeProfit: target,
		RSI14:      rsi14,
		EMA50:      ema50,
		EMA200:     ema200,
		ATR14:      atr14,
	}, nil
}

func lastValue(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return xs[len(xs)-1]
}

// meanBody averages |close-open| over the trailing n bars.
func meanBody(bars []models.Bar, n int) float64 {
	if n > len(bars) {
		n = len(bars)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for _, b := range bars[len(bars)-n:] {
		sum += math.Abs(b.Close - b.Open)
	}
	return sum / float64(n)
}
