// Package binance implements live market streams over the Binance
// combined-stream WebSocket endpoints, one connection per market leg.
package binance

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"marketpulse/internal/domain/models"
	drepo "marketpulse/internal/domain/repository"
	"marketpulse/pkg/logger"
)

// connState tracks where a connection is in its lifecycle.
type connState int32

const (
	stateDisconnected connState = iota
	stateConnecting
	stateStreaming
	stateBackoff
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateStreaming:
		return "streaming"
	case stateBackoff:
		return "backoff"
	default:
		return "disconnected"
	}
}

const (
	defaultMinBackoff   = 500 * time.Millisecond
	defaultMaxBackoff   = 30 * time.Second
	defaultPingInterval = 15 * time.Second
)

// Client is a MarketStream over one Binance combined-stream connection.
type Client struct {
	name   string
	url    string
	market models.Market

	minBackoff   time.Duration
	maxBackoff   time.Duration
	pingInterval time.Duration
	dialer       *websocket.Dialer

	metrics drepo.Metrics
	log     *logger.Logger

	state atomic.Int32
}

// Option overrides a Client default.
type Option func(*Client)

// WithBackoff sets the reconnect delay bounds.
func WithBackoff(min, max time.Duration) Option {
	return func(c *Client) {
		if min > 0 {
			c.minBackoff = min
		}
		if max > 0 {
			c.maxBackoff = max
		}
	}
}

// WithDialer swaps the websocket dialer, mainly for tests.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// New builds a stream client for the given combined-stream URL. name shows
// up in logs and metrics labels.
func New(name, url string, market models.Market, metrics drepo.Metrics, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		name:         name,
		url:          url,
		market:       market,
		minBackoff:   defaultMinBackoff,
		maxBackoff:   defaultMaxBackoff,
		pingInterval: defaultPingInterval,
		dialer:       websocket.DefaultDialer,
		metrics:      metrics,
		log:          log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StreamURL builds the combined-stream URL for a market leg and symbol set:
// aggTrade and partial depth for every symbol, plus forceOrder on futures.
func StreamURL(base string, market models.Market, symbols []string) string {
	parts := make([]string, 0, len(symbols)*3)
	for _, s := range symbols {
		ls := strings.ToLower(s)
		parts = append(parts, ls+"@aggTrade", ls+"@depth20@100ms")
		if market == models.MarketPerp {
			parts = append(parts, ls+"@forceOrder")
		}
	}
	return strings.TrimSuffix(base, "/") + "/stream?streams=" + strings.Join(parts, "/")
}

func (c *Client) Name() string { return c.name }

// IsConnected reports whether the read loop is live.
func (c *Client) IsConnected() bool {
	return connState(c.state.Load()) == stateStreaming
}

func (c *Client) setState(s connState) { c.state.Store(int32(s)) }

// Run drives the connect → stream → backoff cycle until ctx is done. The
// backoff doubles on every consecutive failure, capped at maxBackoff, and
// resets after a successful dial.
func (c *Client) Run(ctx context.Context, out chan<- drepo.StreamEvent) {
	defer c.setState(stateDisconnected)

	backoff := c.minBackoff
	for ctx.Err() == nil {
		c.setState(stateConnecting)
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if c.log != nil {
				c.log.Warn("stream dial failed",
					logger.String("stream", c.name),
					logger.Duration("backoff", backoff),
					logger.Error(err))
			}
			backoff = c.waitBackoff(ctx, backoff)
			continue
		}

		c.setState(stateStreaming)
		backoff = c.minBackoff
		if c.log != nil {
			c.log.Info("stream connected", logger.String("stream", c.name))
		}

		err = c.readLoop(ctx, conn, out)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		if c.metrics != nil {
			c.metrics.RecordReconnect(c.name)
		}
		if c.log != nil {
			c.log.Warn("stream dropped",
				logger.String("stream", c.name),
				logger.Duration("backoff", backoff),
				logger.Error(err))
		}
		backoff = c.waitBackoff(ctx, backoff)
	}
}

// waitBackoff sleeps for the current delay and returns the next one.
func (c *Client) waitBackoff(ctx context.Context, backoff time.Duration) time.Duration {
	c.setState(stateBackoff)
	select {
	case <-ctx.Done():
	case <-time.After(backoff):
	}
	next := backoff * 2
	if next > c.maxBackoff {
		next = c.maxBackoff
	}
	return next
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- drepo.StreamEvent) error {
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go c.pingLoop(pingCtx, conn)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ev, ok := decodeFrame(raw, c.market)
		if !ok {
			if c.metrics != nil {
				c.metrics.RecordFrameDropped(c.name)
			}
			continue
		}
		if c.metrics != nil {
			c.metrics.RecordFrame(c.name)
		}
		select {
		case out <- ev:
		default:
			// aggregator is behind. drop rather than stall the socket
			if c.metrics != nil {
				c.metrics.RecordFrameDropped(c.name)
			}
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		}
	}
}
