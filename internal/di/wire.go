//go:build wireinject
// +build wireinject

package di

import (
	"EventPull/pkg/config"
	"EventPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideResultStorage,
		ProvideResultPublisher,
		ProvideReturnSource,
		ProvideFactorSource,

		// Engine and use cases
		ProvideEngine,
		ProvideLoader,
		ProvideResultRouter,
		ProvideStudyRunner,

		// Transport
		ProvideStudyHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
