package models

import "time"

// Direction of a trading signal.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Signal is the scored output of the signal pipeline. It is derived on
// every request and never persisted.
type Signal struct {
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	Direction  Direction `json:"direction"`
	Confidence int       `json:"confidencePercent"` // one of 60, 70, 80, 90
	EntryPrice float64   `json:"entryPrice"`
	StopLoss   float64   `json:"stopLoss"`
	TakeProfit float64   `json:"takeProfit"`
	RSI14      float64   `json:"rsi14"`
	EMA50      float64   `json:"ema50"`
	EMA200     float64   `json:"ema200"`
	ATR14      float64   `json:"atr14"`
	Source     string    `json:"source"` // venue that served the bars
	At         time.Time `json:"at"`
}

// LiquidationSums are the derived rolling-window totals for one symbol.
type LiquidationSums struct {
	LongUSD5m  float64 `json:"longUsd5m"`
	ShortUSD5m float64 `json:"shortUsd5m"`
	Count      int     `json:"count"`
}

// StateSnapshot is a read-only copy of one instrument's aggregate state.
// Mids and premium are NaN until the first valid depth update; JSON encodes
// them as null via the handler layer.
type StateSnapshot struct {
	Symbol        string
	SpotCVD       float64
	SpotDelta1s   float64
	PerpCVD       float64
	PerpDelta1s   float64
	SpotMid       float64
	PerpMid       float64
	Premium       float64
	ImbalanceSpot float64
	ImbalancePerp float64
	Liquidations  LiquidationSums
	UpdatedAt     time.Time
}
