package models

// Requests for the HTTP endpoints. Defined in domain for consistency and reuse.

type SignalRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1h" validate:"oneof=1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d 3d 1w 1M"`
	Limit  int    `query:"limit" json:"limit" default:"500" validate:"gte=200,lte=1500"`
}

type StateRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
}
