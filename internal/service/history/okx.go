package history

import (
	"context"
	"fmt"
	"strings"

	"marketpulse/internal/domain/models"
	drepo "marketpulse/internal/domain/repository"
	xhttp "marketpulse/pkg/http"
)

// DefaultOKXMirrors are equivalent OKX REST hosts.
var DefaultOKXMirrors = []string{
	"https://www.okx.com",
	"https://aws.okx.com",
}

// okxBars maps canonical timeframes to OKX bar codes. Hour-and-above codes
// use uppercase suffixes; 8h has no native code.
var okxBars = map[drepo.Timeframe]string{
	drepo.TF1m:  "1m",
	drepo.TF3m:  "3m",
	drepo.TF5m:  "5m",
	drepo.TF15m: "15m",
	drepo.TF30m: "30m",
	drepo.TF1h:  "1H",
	drepo.TF2h:  "2H",
	drepo.TF4h:  "4H",
	drepo.TF6h:  "6H",
	drepo.TF12h: "12H",
	drepo.TF1d:  "1D",
	drepo.TF3d:  "3D",
	drepo.TF1w:  "1W",
	drepo.TF1M:  "1M",
}

// OKX serves candles from the OKX v5 REST API. Instrument ids are dashed
// (BTC-USDT), so common concatenated symbols are translated on the way out.
type OKX struct {
	mirrors []string
	client  *xhttp.Client
}

func NewOKX(client *xhttp.Client, mirrors []string) *OKX {
	if len(mirrors) == 0 {
		mirrors = DefaultOKXMirrors
	}
	return &OKX{mirrors: mirrors, client: client}
}

func (o *OKX) Name() string { return "okx" }

func (o *OKX) Supports(tf drepo.Timeframe) bool {
	_, ok := okxBars[tf]
	return ok
}

// instID converts BTCUSDT-style symbols to OKX BTC-USDT instrument ids.
// Symbols that already contain a dash pass through.
func instID(symbol string) string {
	if strings.Contains(symbol, "-") {
		return symbol
	}
	for _, quote := range []string{"USDT", "USDC", "BTC", "ETH"} {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return symbol[:len(symbol)-len(quote)] + "-" + quote
		}
	}
	return symbol
}

type okxCandleResp struct {
	Code string  `json:"code"`
	Msg  string  `json:"msg"`
	Data [][]any `json:"data"`
}

func (o *OKX) Fetch(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Bar, error) {
	bar, ok := okxBars[tf]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTimeframe, tf)
	}
	var lastErr error
	for _, base := range o.mirrors {
		bars, err := o.fetchOne(ctx, base, symbol, bar, limit)
		if err != nil {
			lastErr = err
			continue
		}
		return bars, nil
	}
	return nil, fmt.Errorf("all mirrors failed: %w", lastErr)
}

func (o *OKX) fetchOne(ctx context.Context, base, symbol, bar string, limit int) ([]models.Bar, error) {
	var resp okxCandleResp
	err := o.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    base + "/api/v5/market/candles",
		QueryParams: map[string][]string{
			"instId": {instID(symbol)},
			"bar":    {bar},
			"limit":  {fmt.Sprintf("%d", limit)},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("candles request: %w", err)
	}
	if resp.Code != "0" {
		return nil, fmt.Errorf("okx code %s: %s", resp.Code, resp.Msg)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty candle data")
	}
	bars := make([]models.Bar, 0, len(resp.Data))
	for _, row := range resp.Data {
		b, ok := rowToBar(row)
		if !ok {
			return nil, fmt.Errorf("malformed candle row")
		}
		bars = append(bars, b)
	}
	return normalizeBars(bars), nil
}
