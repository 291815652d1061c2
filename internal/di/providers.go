//go:generate go run -mod=mod github.com/google/wire/cmd/wire

package di

import (
	"context"
	"fmt"
	"time"

	"FinCast/internal/domain/repository"
	"FinCast/internal/handler/api"
	internalrepo "FinCast/internal/repository"
	"FinCast/internal/service/ratelimit"
	"FinCast/internal/services/forecasters"
	"FinCast/internal/usecase"
	"FinCast/pkg/cache"
	pkgch "FinCast/pkg/clickhouse"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
	"FinCast/pkg/queue"
	"FinCast/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideClickHouseClient creates a ClickHouse client when ClickHouse serves
// bars or stores summaries, and initializes the schema. It returns nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled && cfg.Source.Type != "clickhouse" {
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{internalrepo.PriceSchema(cfg.Source.Table)}
	if cfg.ClickHouse.Enabled {
		stmts = append(stmts, internalrepo.RunSchema())
	}
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideRedisCache dials Redis when enabled. It returns nil otherwise.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache layers an in-process cache over Redis, or uses memory alone.
func ProvideCache(rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache()
	}
	return cache.NewLayeredCache(rc, cache.WithLayeredL1TTL(time.Minute))
}

// ProvideKafkaProducer creates a Kafka producer when enabled. It returns nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
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

// ProvideKafkaResultPublisher wraps the producer. It returns nil without one.
func ProvideKafkaResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) *internalrepo.KafkaResultPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.Topic)
}

// ProvideResultPublisher falls back to a no-op publisher without Kafka.
func ProvideResultPublisher(kp *internalrepo.KafkaResultPublisher) repository.ResultPublisher {
	if kp == nil {
		return internalrepo.NopResultPublisher{}
	}
	return kp
}

// ProvidePriceStore reads bars from the configured source through the cache.
func ProvidePriceStore(cfg *config.Config, ch *pkgch.Client, c cache.Service, l *applogger.Logger) (repository.PriceStore, error) {
	var base repository.PriceStore
	switch cfg.Source.Type {
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("price store: clickhouse source without client")
		}
		store, err := internalrepo.NewCHPriceStore(ch, cfg.Source.Table, l)
		if err != nil {
			return nil, fmt.Errorf("price store: %w", err)
		}
		base = store
	case "csv":
		base = internalrepo.NewCSVPriceStore(cfg.Source.CSVDir)
	default:
		return nil, fmt.Errorf("price store: unknown source %q", cfg.Source.Type)
	}
	return internalrepo.NewCachedPriceStore(base, c, cfg.Cache.SeriesTTL), nil
}

// ProvideRunStore persists summaries to ClickHouse when enabled. It returns nil otherwise.
func ProvideRunStore(cfg *config.Config, ch *pkgch.Client) repository.RunStore {
	if ch == nil || !cfg.ClickHouse.Enabled {
		return nil
	}
	return internalrepo.NewCHRunStore(ch)
}

// ProvideJobStatusStore keeps job statuses in the shared cache.
func ProvideJobStatusStore(cfg *config.Config, c cache.Service) repository.JobStatusStore {
	return internalrepo.NewCacheJobStore(c, cfg.Cache.JobTTL)
}

// ProvideModelSpecs converts the configured models.
func ProvideModelSpecs(cfg *config.Config) []forecasters.Spec {
	specs := make([]forecasters.Spec, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		specs = append(specs, forecasters.Spec{
			Name:    m.Name,
			Kind:    forecasters.Kind(m.Kind),
			Weight:  m.Weight,
			Enabled: m.Enabled,
		})
	}
	return specs
}

// ProvideRemoteOptions configures clients of the model service.
func ProvideRemoteOptions(cfg *config.Config) forecasters.RemoteOptions {
	ms := cfg.ModelService
	return forecasters.RemoteOptions{
		BaseURL:         ms.URL,
		Timeout:         ms.Timeout,
		Retries:         ms.Retries,
		Lookback:        ms.Lookback,
		BreakerFailures: ms.Breaker.Failures,
		BreakerTimeout:  ms.Breaker.Timeout,
	}
}

// ProvideOrchestratorFactory builds a fresh model set per symbol.
func ProvideOrchestratorFactory(specs []forecasters.Spec, remote forecasters.RemoteOptions, rec *metrics.Recorder, l *applogger.Logger) usecase.OrchestratorFactory {
	return func() (*usecase.Orchestrator, error) {
		fs, weights, err := forecasters.Build(specs, remote)
		if err != nil {
			return nil, err
		}
		return usecase.NewOrchestrator(fs, weights,
			usecase.WithOrchestratorLogger(l),
			usecase.WithOrchestratorMetrics(rec),
		)
	}
}

// ProvideForecastService creates the forecasting use case.
func ProvideForecastService(
	prices repository.PriceStore,
	factory usecase.OrchestratorFactory,
	runs repository.RunStore,
	pub repository.ResultPublisher,
	c cache.Service,
	rec *metrics.Recorder,
	l *applogger.Logger,
) *usecase.ForecastService {
	opts := []usecase.ServiceOption{
		usecase.WithResultPublisher(pub),
		usecase.WithSymbolLock(c, 10*time.Minute),
		usecase.WithServiceLogger(l),
		usecase.WithServiceMetrics(rec),
	}
	if runs != nil {
		opts = append(opts, usecase.WithRunStore(runs))
	}
	return usecase.NewForecastService(prices, factory, opts...)
}

// ProvideQueue uses Redis when available so that jobs survive restarts.
func ProvideQueue(cfg *config.Config, rc *cache.RedisCache, l *applogger.Logger) queue.Queue {
	qc := &queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}
	if rc != nil {
		return queue.NewRedisQueue(l, qc, rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
	}
	return queue.NewMemoryQueue(l, qc)
}

// ProvideBacktestJobHandler creates the job handler and registers it on q.
func ProvideBacktestJobHandler(svc *usecase.ForecastService, status repository.JobStatusStore, q queue.Queue, l *applogger.Logger) *usecase.BacktestJobHandler {
	h := usecase.NewBacktestJobHandler(svc, status, q, l)
	q.RegisterJob(h)
	return h
}

// ProvideRateLimiter limits the expensive endpoints per client IP.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// ProvideHTTPHandler creates the forecasting routes.
func ProvideHTTPHandler(l *applogger.Logger, svc *usecase.ForecastService, jobs *usecase.BacktestJobHandler, rl *ratelimit.Limiter) xhttp.Handler {
	return api.NewForecastEchoHandler(l, svc, jobs, rl)
}

// ProvideHTTPServer creates the echo server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h, l,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp creates the application and wires the log collector to Kafka.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	q queue.Queue,
	c cache.Service,
	ch *pkgch.Client,
	kp *internalrepo.KafkaResultPublisher,
) *server.App {
	opts := []server.Option{server.WithClickHouse(ch), server.WithCloser("cache", c)}
	if kp != nil {
		if cfg.Logger.Collector.Enabled {
			l.AddCollector(&applogger.CollectionConfig{
				TimeInterval: cfg.Logger.Collector.FlushInterval,
				Topic:        cfg.Kafka.LogTopic,
				Publisher:    kp,
			})
		}
		opts = append([]server.Option{server.WithCloser("kafka", kp)}, opts...)
	}
	return server.New(l, srv, q, opts...)
}
