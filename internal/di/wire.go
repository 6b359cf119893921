//go:build wireinject
// +build wireinject

package di

import (
	"Jyotish/pkg/config"
	"Jyotish/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Shared clients
		ProvideRedisCache,
		ProvideLogger,
		ProvideMetrics,

		// Reference data and ephemeris
		ProvideReferenceTable,
		ProvideEphemeris,
		ProvideResponseCache,

		// History backends
		ProvideClickHouseClient,
		ProvidePostgresClient,
		ProvideHistoryStorage,
		ProvideKafkaProducer,
		ProvideEventPublisher,
		ProvideRecordQueue,
		ProvideKafkaConsumer,

		// Use cases
		ProvideEventRecorder,
		ProvideEventPipeline,
		ProvideCalculator,
		ProvidePanchangStream,

		// Application server
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
