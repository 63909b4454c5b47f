package history

import (
	"context"
	"fmt"

	"marketpulse/internal/domain/models"
	drepo "marketpulse/internal/domain/repository"
	xhttp "marketpulse/pkg/http"
)

// DefaultBybitMirrors are equivalent Bybit v5 REST hosts.
var DefaultBybitMirrors = []string{
	"https://api.bybit.com",
	"https://api.bytick.com",
}

// bybitIntervals maps canonical timeframes to Bybit v5 native codes.
// Bybit has no native 8h or 3d interval; those are rejected before any
// network call.
var bybitIntervals = map[drepo.Timeframe]string{
	drepo.TF1m:  "1",
	drepo.TF3m:  "3",
	drepo.TF5m:  "5",
	drepo.TF15m: "15",
	drepo.TF30m: "30",
	drepo.TF1h:  "60",
	drepo.TF2h:  "120",
	drepo.TF4h:  "240",
	drepo.TF6h:  "360",
	drepo.TF12h: "720",
	drepo.TF1d:  "D",
	drepo.TF1w:  "W",
	drepo.TF1M:  "M",
}

// Bybit serves klines from the Bybit v5 REST API (spot category). Response
// lists are newest first and get reversed during normalization.
type Bybit struct {
	mirrors []string
	client  *xhttp.Client
}

func NewBybit(client *xhttp.Client, mirrors []string) *Bybit {
	if len(mirrors) == 0 {
		mirrors = DefaultBybitMirrors
	}
	return &Bybit{mirrors: mirrors, client: client}
}

func (b *Bybit) Name() string { return "bybit" }

func (b *Bybit) Supports(tf drepo.Timeframe) bool {
	_, ok := bybitIntervals[tf]
	return ok
}

type bybitKlineResp struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List [][]any `json:"list"`
	} `json:"result"`
}

func (b *Bybit) Fetch(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Bar, error) {
	interval, ok := bybitIntervals[tf]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTimeframe, tf)
	}
	var lastErr error
	for _, base := range b.mirrors {
		bars, err := b.fetchOne(ctx, base, symbol, interval, limit)
		if err != nil {
			lastErr = err
			continue
		}
		return bars, nil
	}
	return nil, fmt.Errorf("all mirrors failed: %w", lastErr)
}

func (b *Bybit) fetchOne(ctx context.Context, base, symbol, interval string, limit int) ([]models.Bar, error) {
	var resp bybitKlineResp
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    base + "/v5/market/kline",
		QueryParams: map[string][]string{
			"category": {"spot"},
			"symbol":   {symbol},
			"interval": {interval},
			"limit":    {fmt.Sprintf("%d", limit)},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("kline request: %w", err)
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit retCode %d: %s", resp.RetCode, resp.RetMsg)
	}
	if len(resp.Result.List) == 0 {
		return nil, fmt.Errorf("empty kline list")
	}
	bars := make([]models.Bar, 0, len(resp.Result.List))
	for _, row := range resp.Result.List {
		bar, ok := rowToBar(row)
		if !ok {
			return nil, fmt.Errorf("malformed kline row")
		}
		bars = append(bars, bar)
	}
	return normalizeBars(bars), nil
}
