package models

import "time"

// Market identifies which leg of an instrument a stream event belongs to.
type Market string

const (
	MarketSpot Market = "spot"
	MarketPerp Market = "perp"
)

// Trade is a single executed trade from a live venue stream.
type Trade struct {
	Symbol    string
	Market    Market
	Price     float64
	Quantity  float64
	TradeTime int64 // ms since epoch
	// SellerInitiated is true when the aggressor was a seller
	// (Binance "m": buyer is the market maker).
	SellerInitiated bool
}

// PriceLevel is one order book level.
type PriceLevel struct {
	Price    float64
	Quantity float64
}

// Depth is a partial order book snapshot, best levels first.
type Depth struct {
	Symbol string
	Market Market
	Bids   []PriceLevel
	Asks   []PriceLevel
}

// LiquidationSide tells which position side was force-closed.
type LiquidationSide string

const (
	// LiquidationLong: a forced sell closed a long position.
	LiquidationLong LiquidationSide = "long"
	// LiquidationShort: a forced buy closed a short position.
	LiquidationShort LiquidationSide = "short"
)

// Liquidation is a forced-close event from a futures venue.
type Liquidation struct {
	Symbol      string
	Side        LiquidationSide
	Price       float64
	Quantity    float64
	NotionalUSD float64
	At          time.Time
}

// Bar is one OHLCV candle. Sequences are ordered oldest first with no
// duplicate OpenTime.
type Bar struct {
	OpenTime int64   `json:"openTime"` // ms since epoch
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}
