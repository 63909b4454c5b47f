package binance

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"marketpulse/internal/domain/models"
	drepo "marketpulse/internal/domain/repository"
)

// envelope is the combined-stream wrapper: the stream name carries the
// symbol and channel, data the channel-specific payload.
type envelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type wsAggTrade struct {
	Symbol     string `json:"s"`
	Price      string `json:"p"`
	Quantity   string `json:"q"`
	TradeTime  int64  `json:"T"`
	BuyerMaker bool   `json:"m"`
}

// wsDepth covers both payload shapes: spot partial books use bids/asks
// and omit the symbol, futures use b/a.
type wsDepth struct {
	Symbol string     `json:"s"`
	Bids   [][]string `json:"bids"`
	Asks   [][]string `json:"asks"`
	B      [][]string `json:"b"`
	A      [][]string `json:"a"`
}

type wsForceOrder struct {
	Order struct {
		Symbol    string `json:"s"`
		Side      string `json:"S"`
		Quantity  string `json:"q"`
		Price     string `json:"p"`
		AvgPrice  string `json:"ap"`
		TradeTime int64  `json:"T"`
	} `json:"o"`
}

// decodeFrame maps one raw combined-stream frame to a StreamEvent. A false
// return means the frame is malformed or an uninteresting channel; callers
// drop it without surfacing an error.
func decodeFrame(raw []byte, market models.Market) (drepo.StreamEvent, bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Stream == "" {
		return drepo.StreamEvent{}, false
	}
	parts := strings.SplitN(env.Stream, "@", 2)
	if len(parts) != 2 {
		return drepo.StreamEvent{}, false
	}
	symbol := strings.ToUpper(parts[0])

	switch {
	case parts[1] == "aggTrade":
		return decodeTrade(env.Data, symbol, market)
	case strings.HasPrefix(parts[1], "depth"):
		return decodeDepth(env.Data, symbol, market)
	case parts[1] == "forceOrder":
		return decodeLiquidation(env.Data, symbol)
	default:
		return drepo.StreamEvent{}, false
	}
}

func decodeTrade(data []byte, symbol string, market models.Market) (drepo.StreamEvent, bool) {
	var t wsAggTrade
	if err := json.Unmarshal(data, &t); err != nil {
		return drepo.StreamEvent{}, false
	}
	price, err1 := strconv.ParseFloat(t.Price, 64)
	qty, err2 := strconv.ParseFloat(t.Quantity, 64)
	if err1 != nil || err2 != nil || t.TradeTime <= 0 {
		return drepo.StreamEvent{}, false
	}
	return drepo.StreamEvent{Trade: &models.Trade{
		Symbol:          symbol,
		Market:          market,
		Price:           price,
		Quantity:        qty,
		TradeTime:       t.TradeTime,
		SellerInitiated: t.BuyerMaker,
	}}, true
}

func decodeDepth(data []byte, symbol string, market models.Market) (drepo.StreamEvent, bool) {
	var d wsDepth
	if err := json.Unmarshal(data, &d); err != nil {
		return drepo.StreamEvent{}, false
	}
	bids, asks := d.Bids, d.Asks
	if len(bids) == 0 && len(asks) == 0 {
		bids, asks = d.B, d.A
	}
	if len(bids) == 0 && len(asks) == 0 {
		return drepo.StreamEvent{}, false
	}
	return drepo.StreamEvent{Depth: &models.Depth{
		Symbol: symbol,
		Market: market,
		Bids:   parseLevels(bids),
		Asks:   parseLevels(asks),
	}}, true
}

func decodeLiquidation(data []byte, symbol string) (drepo.StreamEvent, bool) {
	var f wsForceOrder
	if err := json.Unmarshal(data, &f); err != nil {
		return drepo.StreamEvent{}, false
	}
	o := f.Order
	qty, err := strconv.ParseFloat(o.Quantity, 64)
	if err != nil || qty <= 0 {
		return drepo.StreamEvent{}, false
	}
	price, err := strconv.ParseFloat(o.AvgPrice, 64)
	if err != nil || price <= 0 {
		price, err = strconv.ParseFloat(o.Price, 64)
		if err != nil || price <= 0 {
			return drepo.StreamEvent{}, false
		}
	}
	// A forced SELL closes a long position, a forced BUY a short one.
	var side models.LiquidationSide
	switch o.Side {
	case "SELL":
		side = models.LiquidationLong
	case "BUY":
		side = models.LiquidationShort
	default:
		return drepo.StreamEvent{}, false
	}
	at := time.Now()
	if o.TradeTime > 0 {
		at = time.UnixMilli(o.TradeTime)
	}
	return drepo.StreamEvent{Liquidation: &models.Liquidation{
		Symbol:      symbol,
		Side:        side,
		Price:       price,
		Quantity:    qty,
		NotionalUSD: price * qty,
		At:          at,
	}}, true
}

func parseLevels(rows [][]string) []models.PriceLevel {
	out := make([]models.PriceLevel, 0, len(rows))
	for _, r := range rows {
		if len(r) < 2 {
			continue
		}
		p, err1 := strconv.ParseFloat(r[0], 64)
		q, err2 := strconv.ParseFloat(r[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, models.PriceLevel{Price: p, Quantity: q})
	}
	return out
}
