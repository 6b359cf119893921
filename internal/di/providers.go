package di

import (
	"context"
	"fmt"
	"time"

	"Jyotish/internal/domain/repository"
	"Jyotish/internal/domain/service"
	"Jyotish/internal/handler/api"
	mid "Jyotish/internal/middleware"
	internalrepo "Jyotish/internal/repository"
	icache "Jyotish/internal/service/cache"
	"Jyotish/internal/service/ratelimit"
	"Jyotish/internal/services/ephemeris"
	"Jyotish/internal/services/vedic"
	"Jyotish/internal/usecase"
	"Jyotish/pkg/cache"
	pkgch "Jyotish/pkg/clickhouse"
	"Jyotish/pkg/config"
	xhttp "Jyotish/pkg/http"
	pkgkafka "Jyotish/pkg/kafka"
	applogger "Jyotish/pkg/logger"
	"Jyotish/pkg/metrics"
	pkgpg "Jyotish/pkg/postgres"
	"Jyotish/pkg/queue"
	"Jyotish/pkg/server"
)

// ProvideRedisCache connects to Redis when enabled; nil otherwise. The client is shared
// by the caches and queues.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideLogger builds the application logger. With Redis enabled, warn and error lines
// are aggregated and shipped to the log queue.
func ProvideLogger(cfg *config.Config, rc *cache.RedisCache) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cfg.Logging.Output,
		Service: "jyotish",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if rc != nil {
		pub := queue.NewRedisPublisher(l, rc.Client(),
			queue.WithKeyPrefix(cfg.Redis.Prefix+":"+cfg.Redis.LogQueue))
		if err := pub.Start(); err != nil {
			return nil, fmt.Errorf("log queue: %w", err)
		}
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "logs.aggregated",
			Publisher:      pub,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideReferenceTable loads reference.path, or the built-in table when unset.
func ProvideReferenceTable(cfg *config.Config) (*vedic.ReferenceTable, error) {
	if cfg.Reference.Path == "" {
		return vedic.DefaultReferenceTable()
	}
	return vedic.LoadReferenceTable(cfg.Reference.Path)
}

// ProvideEphemeris returns nil when no provider is configured; instant-based
// endpoints then answer 503.
func ProvideEphemeris(cfg *config.Config, rc *cache.RedisCache, m repository.Metrics, l *applogger.Logger) (service.EphemerisProvider, error) {
	if cfg.Ephemeris.BaseURL == "" {
		l.Warn("ephemeris.base_url not set, instant-based calculations disabled")
		return nil, nil
	}

	var c cache.Service = cache.NewMemoryCache(cache.WithMemoryMaxSize(10000), cache.WithMemoryCleanup(time.Minute))
	if rc != nil {
		c = cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(2000))
	}
	client := xhttp.NewClient(
		xhttp.WithTimeout(cfg.Ephemeris.Timeout),
		xhttp.WithRetries(cfg.Ephemeris.Retries, 200*time.Millisecond),
	)
	p, err := ephemeris.NewHTTPProvider(cfg.Ephemeris.BaseURL, client,
		ephemeris.WithCache(c, cfg.Ephemeris.CacheTTL),
		ephemeris.WithMetrics(m),
		ephemeris.WithLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("ephemeris: %w", err)
	}
	return p, nil
}

// ProvideResponseCache shares Redis when enabled and falls back to an in-process map.
func ProvideResponseCache(cfg *config.Config, rc *cache.RedisCache) icache.BytesCache {
	if rc != nil {
		return icache.NewRedisCache(rc.Client(), cfg.Redis.Prefix+":resp:")
	}
	return icache.NewTTLCache(4096)
}

// ProvideClickHouseClient connects when ClickHouse backs history: the clickhouse backend,
// or the kafka backend's consumer side when a host is set.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	switch {
	case cfg.Backend.Type == config.BackendClickHouse:
	case cfg.Backend.Type == config.BackendKafka && cfg.ClickHouse.Host != "":
	default:
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
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvidePostgresClient connects when Postgres backs history.
func ProvidePostgresClient(cfg *config.Config) (*pkgpg.Client, error) {
	switch {
	case cfg.Backend.Type == config.BackendPostgres:
	case cfg.Backend.Type == config.BackendKafka && cfg.ClickHouse.Host == "" && cfg.Postgres.DSN != "":
	default:
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := pkgpg.NewClient(ctx,
		pkgpg.WithDSN(cfg.Postgres.DSN),
		pkgpg.WithPool(cfg.Postgres.MaxConns, cfg.Postgres.MinConns, cfg.Postgres.MaxConnLifetime),
		pkgpg.WithConnectTimeout(cfg.Postgres.ConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}
	return client, nil
}

// ProvideHistoryStorage picks the store behind /api/history and ensures its schema.
func ProvideHistoryStorage(
	cfg *config.Config,
	ch *pkgch.Client,
	pg *pkgpg.Client,
	l *applogger.Logger,
) (repository.HistoryStorage, error) {
	var store repository.HistoryStorage
	switch {
	case ch != nil:
		store = internalrepo.NewClickHouseHistory(ch, l)
	case pg != nil:
		store = internalrepo.NewPostgresHistory(pg, l)
	default:
		store = internalrepo.NewMemoryHistory(cfg.Backend.MemoryCapacity)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("history schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer for the kafka backend; nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != config.BackendKafka {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithClientID(cfg.Kafka.ClientID),
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

// ProvideEventPublisher wraps the producer; nil without one.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideRecordQueue defers history writes through Redis when it is enabled and Kafka
// is not already carrying the events.
func ProvideRecordQueue(
	cfg *config.Config,
	rc *cache.RedisCache,
	store repository.HistoryStorage,
	m repository.Metrics,
	l *applogger.Logger,
) *queue.RedisQueue {
	if rc == nil || cfg.Backend.Type == config.BackendKafka {
		return nil
	}
	return queue.NewRedisConsumer(l,
		&queue.QueueConfig{Workers: cfg.Redis.QueueWorkers, RetryLimit: 3},
		rc.Client(),
		[]queue.Job{usecase.NewRecordEventJob(store, m)},
		queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"),
	)
}

// ProvideEventRecorder routes events to Kafka, the record queue or storage.
func ProvideEventRecorder(
	pub repository.EventPublisher,
	store repository.HistoryStorage,
	q *queue.RedisQueue,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.EventRecorder {
	var qs queue.QueueService
	if q != nil {
		qs = q
	}
	return usecase.NewEventRecorder(pub, store, qs, m, cfg.Backend.Type)
}

// ProvideEventPipeline puts validation and redelivery in front of the recorder.
func ProvideEventPipeline(rec *usecase.EventRecorder, m repository.Metrics, cfg *config.Config) *mid.EventPipeline {
	return mid.NewEventPipeline(rec, m, mid.WithBufferSize(cfg.Backend.BufferSize))
}

// ProvideCalculator creates the calculation use case.
func ProvideCalculator(
	cfg *config.Config,
	ref *vedic.ReferenceTable,
	eph service.EphemerisProvider,
	pipe *mid.EventPipeline,
	rcache icache.BytesCache,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Calculator {
	opts := []usecase.CalculatorOption{
		usecase.WithEventSink(pipe),
		usecase.WithResponseCache(rcache, cfg.Ephemeris.CacheTTL),
		usecase.WithCalculatorLogger(l),
	}
	if eph != nil {
		opts = append(opts, usecase.WithEphemeris(eph))
	}
	return usecase.NewCalculator(ref, m, opts...)
}

func ProvidePanchangStream(calc *usecase.Calculator, cfg *config.Config, l *applogger.Logger) *usecase.PanchangStream {
	return usecase.NewPanchangStream(calc, cfg.Stream.Interval, l)
}

// ProvideKafkaConsumer creates the history consumer when kafka.consumer.enabled; nil otherwise.
func ProvideKafkaConsumer(
	cfg *config.Config,
	store repository.HistoryStorage,
	m repository.Metrics,
	l *applogger.Logger,
) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != config.BackendKafka || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerStartOffset(startOffset(cfg.Kafka.Consumer.StartOffset)),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.TracingHook(),
		usecase.EventValidationHook(),
		pkgkafka.LoggingHook(l),
	))
	consumer.RegisterHandler(usecase.NewKafkaCalculationHandler(cfg.Kafka.Topic, store, m))
	return consumer, nil
}

func startOffset(s string) int64 {
	if s == "last" {
		return pkgkafka.LastOffset
	}
	return pkgkafka.FirstOffset
}

// ProvideHTTPServer registers every handler on the echo server.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	calc *usecase.Calculator,
	rec *usecase.EventRecorder,
	stream *usecase.PanchangStream,
) *xhttp.Server {
	handlers := []xhttp.Handler{
		api.NewSystemHandler(cfg.Version, cfg.Backend.Type, map[string]api.HealthChecker{"history": rec}),
		api.NewCalculationHandler(l, calc, rec),
		api.NewStreamHandler(l, stream),
	}

	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetrics(""))
	}
	if cfg.Server.RateLimit.Enabled {
		lim := ratelimit.New(cfg.Server.RateLimit.Burst, cfg.Server.RateLimit.RPS)
		opts = append(opts, xhttp.WithMiddleware(lim.Middleware()))
	}
	return xhttp.NewServer(l, handlers, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	stream *usecase.PanchangStream,
	pipe *mid.EventPipeline,
	rec *usecase.EventRecorder,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	rc *cache.RedisCache,
) *server.App {
	return server.New(cfg, l, srv,
		server.WithStream(stream),
		server.WithPipeline(pipe),
		server.WithRecorder(rec),
		server.WithConsumer(consumer),
		server.WithQueue(q),
		server.WithRedis(rc),
	)
}
