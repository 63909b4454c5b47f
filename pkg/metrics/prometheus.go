package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	frames         *prometheus.CounterVec
	framesDropped  *prometheus.CounterVec
	reconnects     *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	signals        *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New registers the recorder's collectors on the default registry.
func New() *Recorder {
	return &Recorder{
		frames: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_stream_frames_total",
				Help: "Decoded frames per live stream",
			},
			[]string{"stream"},
		),
		framesDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_stream_frames_dropped_total",
				Help: "Frames dropped per live stream, malformed or on backpressure",
			},
			[]string{"stream"},
		),
		reconnects: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_stream_reconnects_total",
				Help: "Reconnect cycles per live stream",
			},
			[]string{"stream"},
		),
		sourceFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_history_source_failures_total",
				Help: "Historical source fetch failures",
			},
			[]string{"source"},
		),
		signals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_signals_total",
				Help: "Computed signals by symbol and direction",
			},
			[]string{"symbol", "direction"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketpulse_last_price",
				Help: "Last traded price per symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordFrame(stream string) {
	r.frames.WithLabelValues(stream).Inc()
}

func (r *Recorder) RecordFrameDropped(stream string) {
	r.framesDropped.WithLabelValues(stream).Inc()
}

func (r *Recorder) RecordReconnect(stream string) {
	r.reconnects.WithLabelValues(stream).Inc()
}

func (r *Recorder) RecordSourceFailure(source string) {
	r.sourceFailures.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordSignal(symbol, direction string) {
	r.signals.WithLabelValues(symbol, direction).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
