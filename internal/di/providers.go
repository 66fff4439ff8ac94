package di

import (
	"context"
	"fmt"
	"time"

	"EventPull/internal/domain/repository"
	"EventPull/internal/eventstudy"
	"EventPull/internal/handler/api"
	internalrepo "EventPull/internal/repository"
	icache "EventPull/internal/service/cache"
	"EventPull/internal/service/marketdata"
	"EventPull/internal/usecase"
	pkgch "EventPull/pkg/clickhouse"
	"EventPull/pkg/config"
	pkgkafka "EventPull/pkg/kafka"
	applogger "EventPull/pkg/logger"
	"EventPull/pkg/metrics"
	"EventPull/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "console"
	if cfg.Environment == "production" {
		format = "json"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client when the backend
// requires one. Returns nil for other backends.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Backend.Type != "clickhouse" {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".event_study_results (" +
			"security String, event_date Date, model String, offset Int32, " +
			"ar Float64, var_ar Float64, car Float64, var_car Float64, " +
			"t_stat Float64, p_value Float64, significance String, computed_at DateTime" +
			") ENGINE=MergeTree ORDER BY (security, event_date, offset)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer when the backend
// requires one. Returns nil for other backends.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideResultStorage creates the ClickHouse result repository.
func ProvideResultStorage(chClient *pkgch.Client, cfg *config.Config) repository.Storage {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseResultStore(chClient.DB(), cfg.ClickHouse.Database+".event_study_results")
}

// ProvideResultPublisher creates the Kafka result repository.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.Topic)
}

// ProvideReturnSource selects the return-series source from config. An
// API base URL takes precedence over a local file.
func ProvideReturnSource(cfg *config.Config, l *applogger.Logger) repository.ReturnSource {
	if cfg.Data.API.BaseURL != "" {
		return marketdata.NewAPISource(cfg.Data.API.BaseURL, cfg.Data.API.APIKey, cfg.Data.API.Timeout)
	}
	return marketdata.NewCSVSource(cfg.Data.ReturnsFile, cfg.Data.DateLayout, cfg.Data.IsPrice, cfg.Data.LogReturns, l)
}

// ProvideFactorSource creates the factor-series source, or nil when no
// factor file is configured.
func ProvideFactorSource(cfg *config.Config) repository.FactorSource {
	if cfg.Data.FactorsFile == "" {
		return nil
	}
	return marketdata.NewFactorCSV(cfg.Data.FactorsFile, "")
}

// ProvideEngine creates the event-study engine.
func ProvideEngine(cfg *config.Config) *eventstudy.Engine {
	return eventstudy.NewEngine(cfg.Study.MaxDateShift)
}

// ProvideLoader creates the batch event loader.
func ProvideLoader(cfg *config.Config) *usecase.Loader {
	return usecase.NewLoader(cfg.Data.DateLayout)
}

// ProvideResultRouter creates the result delivery router.
func ProvideResultRouter(
	pub repository.Publisher,
	store repository.Storage,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.ResultRouter {
	return usecase.NewResultRouter(pub, store, metrics, cfg.Backend.Type)
}

// ProvideStudyRunner creates the study runner use case.
func ProvideStudyRunner(
	engine *eventstudy.Engine,
	returns repository.ReturnSource,
	factors repository.FactorSource,
	router *usecase.ResultRouter,
	metrics repository.Metrics,
	l *applogger.Logger,
) *usecase.StudyRunner {
	return usecase.NewStudyRunner(engine, returns, factors, router, metrics, l)
}

// ProvideStudyHandler creates the HTTP handler with optional caching.
func ProvideStudyHandler(
	l *applogger.Logger,
	runner *usecase.StudyRunner,
	loader *usecase.Loader,
	store repository.Storage,
	cfg *config.Config,
) *api.StudyHandler {
	h := api.NewStudyHandler(l, runner, loader, cfg.Study.IgnoreErrors, cfg.Study.Workers)
	h.SetDateLayout(cfg.Data.DateLayout)
	h.SetExportDir(cfg.Export.Dir)
	if store != nil {
		h.SetStorage(store)
	}

	if cfg.Cache.Enabled {
		var c icache.BytesCache
		if cfg.Cache.Redis.Enabled {
			c = icache.NewRedisCache(icache.RedisConfig{
				Addr:     cfg.Cache.Redis.Addr,
				Password: cfg.Cache.Redis.Password,
				DB:       cfg.Cache.Redis.DB,
			})
		} else {
			c = icache.NewTTLCache()
		}
		h.SetCache(c, cfg.Cache.TTL)
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	runner *usecase.StudyRunner,
	chClient *pkgch.Client,
	handler *api.StudyHandler,
) *server.App {
	app := server.New(cfg, runner, chClient)
	app.SetHTTPHandler(handler)
	return app
}
