//go:build wireinject
// +build wireinject

package di

import (
	"FinCast/pkg/config"
	"FinCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideCache,
		ProvideKafkaProducer,

		// Repositories
		ProvidePriceStore,
		ProvideRunStore,
		ProvideJobStatusStore,
		ProvideKafkaResultPublisher,
		ProvideResultPublisher,

		// Models
		ProvideModelSpecs,
		ProvideRemoteOptions,
		ProvideOrchestratorFactory,

		// Use cases
		ProvideForecastService,
		ProvideQueue,
		ProvideBacktestJobHandler,

		// Transport
		ProvideRateLimiter,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
