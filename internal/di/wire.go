//go:build wireinject
// +build wireinject

package di

import (
	"ConeCast/pkg/config"
	"ConeCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		ProvideFeed,
		ProvideEngine,
		ProvideClassifier,
		ProvideSnapshotBuilder,
		ProvideRecorder,

		ProvideRedisSnapshotCache,
		ProvideSinks,
		ProvidePipeline,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
