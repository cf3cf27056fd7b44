package di

import (
	"context"
	"fmt"
	"time"

	"ConeCast/internal/domain/models"
	drepo "ConeCast/internal/domain/repository"
	"ConeCast/internal/features"
	"ConeCast/internal/handler/api"
	"ConeCast/internal/recorder"
	"ConeCast/internal/regimes"
	internalrepo "ConeCast/internal/repository"
	"ConeCast/internal/service/binance"
	"ConeCast/internal/service/cache"
	"ConeCast/internal/service/okx"
	"ConeCast/internal/service/synthetic"
	"ConeCast/internal/usecase"
	pkgch "ConeCast/pkg/clickhouse"
	"ConeCast/pkg/config"
	xhttp "ConeCast/pkg/http"
	pkgkafka "ConeCast/pkg/kafka"
	"ConeCast/pkg/logger"
	"ConeCast/pkg/metrics"
	"ConeCast/pkg/server"

	"github.com/rs/zerolog"
)

// ProvideLogger builds the root logger.
func ProvideLogger(cfg *config.Config) (zerolog.Logger, error) {
	return logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideFeed selects the event source for the configured mode. Replay
// mode has no feed; the app reads the event log directly.
func ProvideFeed(cfg *config.Config, log zerolog.Logger) (drepo.MarketFeed, error) {
	switch cfg.Mode {
	case "replay":
		return nil, nil
	case "synthetic":
		return synthetic.New(synthetic.Config{
			Symbol:     cfg.Synthetic.Symbol,
			Steps:      cfg.Synthetic.Steps,
			Seed:       cfg.Cone.Seed,
			StartPrice: cfg.Synthetic.StartPrice,
			QueueSize:  cfg.QueueSize,
		}, log), nil
	}

	switch cfg.Venue {
	case "okx":
		return okx.New(okx.Config{
			Instruments:    cfg.Instruments,
			InstIDs:        cfg.OKX.InstIDs,
			DepthN:         cfg.BookDepth,
			InitialBackoff: cfg.Backoff.Initial,
			MaxBackoff:     cfg.Backoff.Max,
			QueueSize:      cfg.QueueSize,
		}, log)
	default:
		return binance.New(binance.Config{
			Instruments:    cfg.Instruments,
			Symbols:        cfg.Binance.Symbols,
			DepthN:         cfg.BookDepth,
			DepthSpeed:     cfg.Binance.DepthSpeed,
			OIPoll:         cfg.Binance.OIPoll,
			BasisPoll:      cfg.Binance.BasisPoll,
			BasisPeriod:    cfg.Binance.BasisPeriod,
			InitialBackoff: cfg.Backoff.Initial,
			MaxBackoff:     cfg.Backoff.Max,
			QueueSize:      cfg.QueueSize,
		}, xhttp.NewClient(xhttp.WithTimeout(5*time.Second)), log)
	}
}

// ProvideEngine creates the feature engine over the configured scales.
func ProvideEngine(cfg *config.Config) *features.Engine {
	scales := make([]models.Scale, 0, len(cfg.Scales))
	for _, sc := range cfg.Scales {
		scales = append(scales, models.Scale{
			Name:              sc.Name,
			TradeCount:        sc.TradeCount,
			SigmaWindowTrades: sc.SigmaWindowTrades,
			SigmaK:            sc.SigmaK,
		})
	}
	return features.NewEngine(scales)
}

// ProvideClassifier creates the regime classifier with default
// thresholds.
func ProvideClassifier() *regimes.Classifier {
	return regimes.NewClassifier(regimes.Thresholds{})
}

// ProvideSnapshotBuilder wires the forecast parameters.
func ProvideSnapshotBuilder(engine *features.Engine, classifier *regimes.Classifier, cfg *config.Config) *usecase.SnapshotBuilder {
	return usecase.NewSnapshotBuilder(engine, classifier, usecase.BuilderParams{
		GridPoints: cfg.Cone.GridPoints,
		ConeSteps:  cfg.Cone.Steps,
		NPaths:     cfg.Cone.NPaths,
		Seed:       cfg.Cone.Seed,
	})
}

// ProvideRecorder opens the event log writer. Disabled recording and
// replay mode both skip it.
func ProvideRecorder(cfg *config.Config) (drepo.EventRecorder, error) {
	if !cfg.Recorder.Enabled || cfg.Mode == "replay" {
		return nil, nil
	}
	w, err := recorder.NewWriter(cfg.Recorder.Path, cfg.Recorder.FlushEvery)
	if err != nil {
		return nil, fmt.Errorf("event recorder: %w", err)
	}
	return w, nil
}

// ProvideRedisSnapshotCache connects the latest-snapshot cache, or nil
// when disabled.
func ProvideRedisSnapshotCache(cfg *config.Config) (*internalrepo.RedisSnapshotCache, error) {
	if !cfg.Snapshots.Redis.Enabled {
		return nil, nil
	}
	c, err := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Snapshots.Redis.Addr,
		Password: cfg.Snapshots.Redis.Password,
		DB:       cfg.Snapshots.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return internalrepo.NewRedisSnapshotCache(c, cfg.Snapshots.Redis.TTL), nil
}

// ProvideSinks assembles every enabled snapshot sink.
func ProvideSinks(cfg *config.Config, redisCache *internalrepo.RedisSnapshotCache) ([]drepo.SnapshotSink, error) {
	var sinks []drepo.SnapshotSink

	if cfg.Snapshots.JSONL.Enabled {
		sink, err := internalrepo.NewJSONLSnapshotSink(cfg.Snapshots.JSONL.Path, cfg.Snapshots.JSONL.FlushEvery)
		if err != nil {
			return nil, fmt.Errorf("jsonl sink: %w", err)
		}
		sinks = append(sinks, sink)
	}

	if cfg.Snapshots.Kafka.Enabled {
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Snapshots.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Snapshots.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Snapshots.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.Snapshots.Kafka.MaxAttempts),
			pkgkafka.WithBatching(cfg.Snapshots.Kafka.BatchSize, cfg.Snapshots.Kafka.BatchTimeout),
			pkgkafka.WithTimeouts(cfg.Snapshots.Kafka.WriteTimeout, cfg.Snapshots.Kafka.ReadTimeout),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		sinks = append(sinks, internalrepo.NewKafkaSnapshotSink(producer, cfg.Snapshots.Kafka.Topic))
	}

	if cfg.Snapshots.ClickHouse.Enabled {
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.Snapshots.ClickHouse.Host),
			pkgch.WithPort(cfg.Snapshots.ClickHouse.Port),
			pkgch.WithDatabase(cfg.Snapshots.ClickHouse.Database),
			pkgch.WithCredentials(cfg.Snapshots.ClickHouse.User, cfg.Snapshots.ClickHouse.Password),
			pkgch.WithAsyncInsert(cfg.Snapshots.ClickHouse.AsyncInsert, cfg.Snapshots.ClickHouse.WaitForAsync),
			pkgch.WithTimeouts(cfg.Snapshots.ClickHouse.DialTimeout, cfg.Snapshots.ClickHouse.ReadTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := internalrepo.NewClickHouseSnapshotStore(ctx, client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		sinks = append(sinks, store)
	}

	if redisCache != nil {
		sinks = append(sinks, redisCache)
	}
	return sinks, nil
}

// ProvidePipeline creates the consumer loop.
func ProvidePipeline(
	engine *features.Engine,
	builder *usecase.SnapshotBuilder,
	rec drepo.EventRecorder,
	sinks []drepo.SnapshotSink,
	m drepo.Metrics,
	cfg *config.Config,
	log zerolog.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(engine, builder, rec, sinks, m, int64(cfg.SnapshotEvery), log)
}

// ProvideHTTPServer builds the read-only HTTP surface. The snapshot
// endpoint is mounted only when the Redis cache is wired.
func ProvideHTTPServer(cfg *config.Config, log zerolog.Logger, redisCache *internalrepo.RedisSnapshotCache) *xhttp.Server {
	var handlers []xhttp.Handler
	if redisCache != nil {
		handlers = append(handlers, api.NewSnapshotsHandler(redisCache, log))
	}
	return xhttp.NewServer(fmt.Sprintf(":%d", cfg.Server.Port), log, handlers...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log zerolog.Logger,
	feed drepo.MarketFeed,
	pipeline *usecase.Pipeline,
	rec drepo.EventRecorder,
	sinks []drepo.SnapshotSink,
	httpServer *xhttp.Server,
) *server.App {
	return server.New(cfg, log, feed, pipeline, rec, sinks, httpServer)
}
