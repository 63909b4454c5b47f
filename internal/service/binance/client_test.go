package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"marketpulse/internal/domain/models"
	drepo "marketpulse/internal/domain/repository"
)

var testUpgrader = websocket.Upgrader{}

// recorderStub counts metric calls from the read loop.
type recorderStub struct {
	frames    atomic.Int32
	dropped   atomic.Int32
	lastPrice atomic.Int32
}

func (r *recorderStub) RecordFrame(string)              { r.frames.Add(1) }
func (r *recorderStub) RecordFrameDropped(string)       { r.dropped.Add(1) }
func (r *recorderStub) RecordReconnect(string)          {}
func (r *recorderStub) RecordSourceFailure(string)      {}
func (r *recorderStub) RecordSignal(string, string)     {}
func (r *recorderStub) RecordLastPrice(string, float64) { r.lastPrice.Add(1) }
func (r *recorderStub) RecordLatency(string, float64)   {}

// wsServer serves one frame per connection, then closes, so every accepted
// connection exercises a full stream → drop → reconnect cycle.
func wsServer(t *testing.T, frame string, dials *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
		_ = conn.Close()
	}))
}

func TestRunStreamsAndReconnects(t *testing.T) {
	var dials atomic.Int32
	frame := `{"stream":"btcusdt@aggTrade","data":{"s":"BTCUSDT","p":"100","q":"1","T":1700000000000,"m":false}}`
	srv := wsServer(t, frame, &dials)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	rec := &recorderStub{}
	c := New("spot", url, models.MarketSpot, rec, nil,
		WithBackoff(5*time.Millisecond, 20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan drepo.StreamEvent, 16)
	done := make(chan struct{})
	go func() {
		c.Run(ctx, out)
		close(done)
	}()

	// two events means the client survived at least one reconnect
	for i := 0; i < 2; i++ {
		select {
		case ev := <-out:
			if ev.Trade == nil || ev.Trade.Price != 100 {
				t.Fatalf("unexpected event: %+v", ev)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
	if dials.Load() < 2 {
		t.Errorf("expected a reconnect, got %d dials", dials.Load())
	}
	if rec.frames.Load() < 2 {
		t.Errorf("expected frame counts, got %d", rec.frames.Load())
	}
	// last-price recording belongs to the event consumer, not the socket
	if rec.lastPrice.Load() != 0 {
		t.Errorf("read loop must not touch the price gauge, got %d calls", rec.lastPrice.Load())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop on context cancel")
	}
	if c.IsConnected() {
		t.Errorf("client must report disconnected after Run returns")
	}
}

func TestRunBacksOffWhenDialFails(t *testing.T) {
	c := New("spot", "ws://127.0.0.1:1/stream", models.MarketSpot, nil, nil,
		WithBackoff(time.Millisecond, 4*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		c.Run(ctx, make(chan drepo.StreamEvent, 1))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop while backing off")
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	c := New("spot", "", models.MarketSpot, nil, nil,
		WithBackoff(10*time.Millisecond, 35*time.Millisecond))
	ctx := context.Background()

	b := c.minBackoff
	b = c.waitBackoff(ctx, b)
	if b != 20*time.Millisecond {
		t.Fatalf("backoff should double, got %v", b)
	}
	b = c.waitBackoff(ctx, b)
	if b != 35*time.Millisecond {
		t.Fatalf("backoff should cap at max, got %v", b)
	}
	b = c.waitBackoff(ctx, b)
	if b != 35*time.Millisecond {
		t.Fatalf("backoff must stay at cap, got %v", b)
	}
}
