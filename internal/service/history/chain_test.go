package history

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketpulse/internal/domain/models"
	drepo "marketpulse/internal/domain/repository"
	xhttp "marketpulse/pkg/http"
)

type stubSource struct {
	name    string
	bars    []models.Bar
	err     error
	tfOK    bool
	fetched int
}

func (s *stubSource) Name() string                     { return s.name }
func (s *stubSource) Supports(tf drepo.Timeframe) bool { return s.tfOK }
func (s *stubSource) Fetch(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Bar, error) {
	s.fetched++
	if s.err != nil {
		return nil, s.err
	}
	return s.bars, nil
}

func syntheticBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = models.Bar{OpenTime: int64(i) * 60_000, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10}
	}
	return bars
}

func TestChainFallsBackToThirdSource(t *testing.T) {
	s1 := &stubSource{name: "one", tfOK: true, err: errors.New("status 502")}
	s2 := &stubSource{name: "two", tfOK: true, err: errors.New("status 503")}
	s3 := &stubSource{name: "three", tfOK: true, bars: syntheticBars(500)}
	chain := NewChain(nil, nil, RateLimits{}, s1, s2, s3)

	bars, src, err := chain.Fetch(context.Background(), "BTCUSDT", drepo.TF1h, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src != "three" {
		t.Fatalf("expected third source, got %s", src)
	}
	if len(bars) != 500 {
		t.Fatalf("expected 500 bars, got %d", len(bars))
	}
	if s1.fetched != 1 || s2.fetched != 1 || s3.fetched != 1 {
		t.Fatalf("each source tried once: %d %d %d", s1.fetched, s2.fetched, s3.fetched)
	}
}

func TestChainFirstSuccessShortCircuits(t *testing.T) {
	s1 := &stubSource{name: "one", tfOK: true, bars: syntheticBars(10)}
	s2 := &stubSource{name: "two", tfOK: true, bars: syntheticBars(10)}
	chain := NewChain(nil, nil, RateLimits{}, s1, s2)

	if _, src, err := chain.Fetch(context.Background(), "BTCUSDT", drepo.TF1h, 10); err != nil || src != "one" {
		t.Fatalf("expected first source win, src=%s err=%v", src, err)
	}
	if s2.fetched != 0 {
		t.Fatalf("second source must not be called after success")
	}
}

func TestChainExhaustionCarriesLastCause(t *testing.T) {
	s1 := &stubSource{name: "one", tfOK: true, err: errors.New("status 500")}
	s2 := &stubSource{name: "two", tfOK: true, err: errors.New("connection refused")}
	chain := NewChain(nil, nil, RateLimits{}, s1, s2)

	_, _, err := chain.Fetch(context.Background(), "BTCUSDT", drepo.TF1h, 10)
	if !errors.Is(err, ErrSourcesExhausted) {
		t.Fatalf("expected exhaustion error, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("exhaustion must embed last cause, got %v", err)
	}
}

func TestChainSkipsUnsupportedTimeframeWithoutFetch(t *testing.T) {
	s1 := &stubSource{name: "one", tfOK: false}
	s2 := &stubSource{name: "two", tfOK: true, bars: syntheticBars(10)}
	chain := NewChain(nil, nil, RateLimits{}, s1, s2)

	_, src, err := chain.Fetch(context.Background(), "BTCUSDT", drepo.TF8h, 10)
	if err != nil || src != "two" {
		t.Fatalf("expected fallback past unsupported source, src=%s err=%v", src, err)
	}
	if s1.fetched != 0 {
		t.Fatalf("unsupported timeframe must not trigger a network call")
	}
}

func TestChainHonorsConfiguredRateLimit(t *testing.T) {
	src := &stubSource{name: "one", tfOK: true, bars: syntheticBars(10)}
	chain := NewChain(nil, nil, RateLimits{Burst: 1, PerSecond: 0.001}, src)

	if _, _, err := chain.Fetch(context.Background(), "BTCUSDT", drepo.TF1h, 10); err != nil {
		t.Fatalf("first fetch consumes the burst token: %v", err)
	}
	_, _, err := chain.Fetch(context.Background(), "BTCUSDT", drepo.TF1h, 10)
	if !errors.Is(err, ErrSourcesExhausted) {
		t.Fatalf("drained bucket must exhaust the chain, got %v", err)
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("exhaustion must carry the rate-limit cause, got %v", err)
	}
	if src.fetched != 1 {
		t.Fatalf("rate-limited source must not be fetched, got %d calls", src.fetched)
	}
}

func TestChainRejectsUnknownTimeframe(t *testing.T) {
	chain := NewChain(nil, nil, RateLimits{}, &stubSource{name: "one", tfOK: true})
	if _, _, err := chain.Fetch(context.Background(), "BTCUSDT", drepo.Timeframe("7m"), 10); err == nil {
		t.Fatalf("expected vocabulary validation error")
	}
}

func TestBinanceMirrorFailover(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	var hits int
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path != "/api/v3/klines" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("interval") != "1h" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `[[1700000000000,"100","101","99","100.5","12.3",1700003599999,"0",10,"0","0","0"],`+
			`[1700003600000,"100.5","102","100","101.5","9.1",1700007199999,"0",8,"0","0","0"]]`)
	}))
	defer good.Close()

	src := NewBinance(xhttp.NewClient(xhttp.WithTimeout(2*time.Second)), []string{bad.URL, good.URL})
	bars, err := src.Fetch(context.Background(), "BTCUSDT", drepo.TF1h, 2)
	if err != nil {
		t.Fatalf("mirror failover failed: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected exactly one hit on the good mirror, got %d", hits)
	}
	if len(bars) != 2 || bars[0].OpenTime != 1700000000000 || bars[1].Close != 101.5 {
		t.Fatalf("unexpected normalized bars: %+v", bars)
	}
}

func TestBinanceMalformedBodyIsSourceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"not":"an array"}`)
	}))
	defer srv.Close()

	src := NewBinance(xhttp.NewClient(xhttp.WithTimeout(2*time.Second)), []string{srv.URL})
	if _, err := src.Fetch(context.Background(), "BTCUSDT", drepo.TF1h, 10); err == nil {
		t.Fatalf("malformed body must fail the source")
	}
}

func TestBybitReversesNewestFirstList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") != "60" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"retCode":0,"retMsg":"OK","result":{"list":[`+
			`["1700003600000","100.5","102","100","101.5","9.1","915"],`+
			`["1700000000000","100","101","99","100.5","12.3","1230"]]}}`)
	}))
	defer srv.Close()

	src := NewBybit(xhttp.NewClient(xhttp.WithTimeout(2*time.Second)), []string{srv.URL})
	bars, err := src.Fetch(context.Background(), "BTCUSDT", drepo.TF1h, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bars[0].OpenTime != 1700000000000 || bars[1].OpenTime != 1700003600000 {
		t.Fatalf("bars must be oldest first: %+v", bars)
	}
}

func TestBybitDoesNotSupportEightHour(t *testing.T) {
	src := NewBybit(xhttp.NewClient(), nil)
	if src.Supports(drepo.TF8h) {
		t.Fatalf("bybit has no native 8h interval")
	}
	if src.Supports(drepo.TF3d) {
		t.Fatalf("bybit has no native 3d interval")
	}
}

func TestOKXInstrumentID(t *testing.T) {
	cases := map[string]string{
		"BTCUSDT":  "BTC-USDT",
		"ETH-USDT": "ETH-USDT",
		"SOLUSDC":  "SOL-USDC",
	}
	for in, want := range cases {
		if got := instID(in); got != want {
			t.Errorf("instID(%s): want %s, got %s", in, want, got)
		}
	}
}

func TestNormalizeBarsDropsDuplicateOpenTimes(t *testing.T) {
	bars := normalizeBars([]models.Bar{
		{OpenTime: 2000, Close: 2},
		{OpenTime: 1000, Close: 1},
		{OpenTime: 2000, Close: 9},
	})
	if len(bars) != 2 {
		t.Fatalf("expected duplicate dropped, got %d bars", len(bars))
	}
	if bars[0].OpenTime != 1000 || bars[1].OpenTime != 2000 {
		t.Fatalf("expected ascending order: %+v", bars)
	}
	if bars[1].Close != 2 {
		t.Fatalf("first occurrence wins on duplicates, got %v", bars[1].Close)
	}
}
