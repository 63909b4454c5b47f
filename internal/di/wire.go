//go:build wireinject
// +build wireinject

package di

import (
	"marketpulse/pkg/config"
	"marketpulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Historical bars
		ProvideHTTPClient,
		ProvideSources,
		ProvideChain,
		ProvideCacheService,
		ProvideBarCache,

		// Downstream publishing
		ProvideKafkaProducer,
		ProvidePublisher,

		// Live state
		ProvideStore,
		ProvideAggregator,
		ProvideStreams,

		// API surface
		ProvidePipeline,
		ProvideHandler,

		ProvideApp,
	)
	return &server.App{}, nil
}
