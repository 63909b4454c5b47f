package history

import (
	"context"
	"fmt"

	"marketpulse/internal/domain/models"
	drepo "marketpulse/internal/domain/repository"
	xhttp "marketpulse/pkg/http"
)

// DefaultBinanceMirrors are the equivalent public REST endpoints Binance
// exposes for market data.
var DefaultBinanceMirrors = []string{
	"https://api.binance.com",
	"https://api1.binance.com",
	"https://api2.binance.com",
	"https://api3.binance.com",
}

// Binance serves klines from the Binance spot REST API. Its interval codes
// match the canonical vocabulary one to one.
type Binance struct {
	mirrors []string
	client  *xhttp.Client
}

// NewBinance creates the source. An empty mirror list falls back to the
// public defaults.
func NewBinance(client *xhttp.Client, mirrors []string) *Binance {
	if len(mirrors) == 0 {
		mirrors = DefaultBinanceMirrors
	}
	return &Binance{mirrors: mirrors, client: client}
}

func (b *Binance) Name() string { return "binance" }

// Supports reports true for the whole vocabulary; Binance interval codes
// are the canonical ones.
func (b *Binance) Supports(tf drepo.Timeframe) bool {
	return drepo.IsValidTimeframe(tf)
}

// Fetch tries every configured mirror before declaring the source failed: a
// transport failure on one mirror advances to the next mirror, not to the
// next source.
func (b *Binance) Fetch(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Bar, error) {
	var lastErr error
	for _, base := range b.mirrors {
		bars, err := b.fetchOne(ctx, base, symbol, tf, limit)
		if err != nil {
			lastErr = err
			continue
		}
		return bars, nil
	}
	return nil, fmt.Errorf("all mirrors failed: %w", lastErr)
}

func (b *Binance) fetchOne(ctx context.Context, base, symbol string, tf drepo.Timeframe, limit int) ([]models.Bar, error) {
	var rows [][]any
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    base + "/api/v3/klines",
		QueryParams: map[string][]string{
			"symbol":   {symbol},
			"interval": {string(tf)},
			"limit":    {fmt.Sprintf("%d", limit)},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("klines request: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty klines response")
	}
	bars := make([]models.Bar, 0, len(rows))
	for _, row := range rows {
		bar, ok := rowToBar(row)
		if !ok {
			return nil, fmt.Errorf("malformed kline row")
		}
		bars = append(bars, bar)
	}
	return normalizeBars(bars), nil
}
