// Package indicator provides pure technical indicator calculations over
// numeric series. All functions are deterministic and allocate their output;
// undefined leading positions are math.NaN.
package indicator

import (
	"math"

	"marketpulse/internal/domain/models"
)

// EMA computes an exponential moving average with k = 2/(period+1). The
// series is seeded with the first raw value, so output length equals input
// length and every position is defined.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	if period < 1 {
		period = 1
	}
	k := 2.0 / (float64(period) + 1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = k*values[i] + (1-k)*out[i-1]
	}
	return out
}

// RSI computes Wilder's relative strength index. The first `period` deltas
// seed the average gain/loss as simple averages; index `period` is the first
// defined value and earlier positions are NaN. When the average loss is
// exactly zero the RSI is 100.
func RSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if period < 1 || len(closes) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss += -d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}

// TrueRange computes the per-bar true range series. The first bar has no
// previous close, so its true range is simply high-low.
func TrueRange(bars []models.Bar) []float64 {
	if len(bars) == 0 {
		return nil
	}
	out := make([]float64, len(bars))
	out[0] = bars[0].High - bars[0].Low
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR computes the average true range as a simple moving average of the
// true range over a sliding window. Positions before period-1 are NaN.
func ATR(bars []models.Bar, period int) []float64 {
	out := make([]float64, len(bars))
	for i := range out {
		out[i] = math.NaN()
	}
	if period < 1 || len(bars) < period {
		return out
	}
	tr := TrueRange(bars)
	var sum float64
	for i, v := range tr {
		sum += v
		if i >= period {
			sum -= tr[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}
