package di

import (
	"fmt"

	"marketpulse/internal/domain/models"
	"marketpulse/internal/domain/repository"
	"marketpulse/internal/handler/api"
	internalrepo "marketpulse/internal/repository"
	"marketpulse/internal/service/binance"
	"marketpulse/internal/service/history"
	"marketpulse/internal/state"
	"marketpulse/internal/usecase"
	pkgcache "marketpulse/pkg/cache"
	"marketpulse/pkg/config"
	xhttp "marketpulse/pkg/http"
	pkgkafka "marketpulse/pkg/kafka"
	"marketpulse/pkg/logger"
	"marketpulse/pkg/metrics"
	"marketpulse/pkg/server"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideHTTPClient creates the shared REST client for historical sources.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.History.Timeout))
}

// ProvideSources builds the ordered historical source list. Binance leads
// because its interval vocabulary is complete.
func ProvideSources(client *xhttp.Client, cfg *config.Config) []repository.HistoricalSource {
	return []repository.HistoricalSource{
		history.NewBinance(client, cfg.History.BinanceMirrors),
		history.NewBybit(client, cfg.History.BybitMirrors),
		history.NewOKX(client, cfg.History.OKXMirrors),
	}
}

// ProvideChain creates the historical fetch chain.
func ProvideChain(cfg *config.Config, l *logger.Logger, m repository.Metrics, sources []repository.HistoricalSource) *history.Chain {
	limits := history.RateLimits{
		Burst:     cfg.History.RateBurst,
		PerSecond: cfg.History.RatePerSec,
	}
	return history.NewChain(l, m, limits, sources...)
}

// ProvideCacheService creates the bar cache backend: layered over Redis
// when enabled, in-memory otherwise.
func ProvideCacheService(cfg *config.Config, l *logger.Logger) pkgcache.Service {
	if cfg.Redis.Enabled {
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisAddr(cfg.Redis.Addr),
			pkgcache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
			pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err == nil {
			return pkgcache.NewLayeredCache(rc, 1024, cfg.History.CacheTTL)
		}
		l.Warn("redis unavailable, falling back to memory cache", logger.Error(err))
	}
	return pkgcache.NewMemoryCache(1024)
}

// ProvideBarCache adapts the cache service to the bar cache port.
func ProvideBarCache(svc pkgcache.Service, cfg *config.Config) repository.BarCache {
	return internalrepo.NewCachedBars(svc, cfg.History.CacheTTL)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher adapts the producer to the publisher port, or nil when
// Kafka is disabled.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.SignalTopic, cfg.Kafka.LiquidationTopic)
}

// ProvideStore creates the in-memory instrument state store.
func ProvideStore() *state.Store {
	return state.NewStore()
}

// ProvideAggregator creates the event aggregator over the store.
func ProvideAggregator(store *state.Store, m repository.Metrics, pub repository.Publisher, cfg *config.Config) *state.Aggregator {
	return state.NewAggregator(store, m, pub, cfg.Streams.Buffer)
}

// ProvideStreams creates one connector per market leg over the configured
// symbol set.
func ProvideStreams(cfg *config.Config, m repository.Metrics, l *logger.Logger) []repository.MarketStream {
	backoff := binance.WithBackoff(cfg.Streams.BackoffMin, cfg.Streams.BackoffMax)
	return []repository.MarketStream{
		binance.New("binance-spot",
			binance.StreamURL(cfg.Streams.SpotURL, models.MarketSpot, cfg.Streams.Symbols),
			models.MarketSpot, m, l, backoff),
		binance.New("binance-perp",
			binance.StreamURL(cfg.Streams.FuturesURL, models.MarketPerp, cfg.Streams.Symbols),
			models.MarketPerp, m, l, backoff),
	}
}

// ProvidePipeline creates the signal computation pipeline.
func ProvidePipeline(chain *history.Chain, cache repository.BarCache, pub repository.Publisher, m repository.Metrics, l *logger.Logger) *usecase.SignalPipeline {
	return usecase.NewSignalPipeline(chain, cache, pub, m, l)
}

// ProvideHandler creates the HTTP handler over pipeline and store.
func ProvideHandler(l *logger.Logger, pipeline *usecase.SignalPipeline, store *state.Store, streams []repository.MarketStream) xhttp.Handler {
	return api.NewSignalsEchoHandler(l, pipeline, store, streams)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	aggregator *state.Aggregator,
	streams []repository.MarketStream,
	pub repository.Publisher,
	cache pkgcache.Service,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, aggregator, streams, pub, cache, handler)
}
