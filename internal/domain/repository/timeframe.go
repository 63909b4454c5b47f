package repository

// Timeframe is a candle interval from the fixed vocabulary shared by all
// venues. Sources translate these to their native codes.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF3m  Timeframe = "3m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF2h  Timeframe = "2h"
	TF4h  Timeframe = "4h"
	TF6h  Timeframe = "6h"
	TF8h  Timeframe = "8h"
	TF12h Timeframe = "12h"
	TF1d  Timeframe = "1d"
	TF3d  Timeframe = "3d"
	TF1w  Timeframe = "1w"
	TF1M  Timeframe = "1M"
)

// Timeframes lists the supported vocabulary in ascending interval order.
var Timeframes = []Timeframe{
	TF1m, TF3m, TF5m, TF15m, TF30m,
	TF1h, TF2h, TF4h, TF6h, TF8h, TF12h,
	TF1d, TF3d, TF1w, TF1M,
}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	for _, t := range Timeframes {
		if t == tf {
			return true
		}
	}
	return false
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1h }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}
