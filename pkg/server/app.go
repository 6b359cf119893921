package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "Jyotish/internal/middleware"
	"Jyotish/internal/usecase"
	"Jyotish/pkg/cache"
	"Jyotish/pkg/config"
	xhttp "Jyotish/pkg/http"
	pkgkafka "Jyotish/pkg/kafka"
	applogger "Jyotish/pkg/logger"
	"Jyotish/pkg/queue"
)

// App encapsulates the entire application lifecycle. Every component except the HTTP
// server is optional.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	http     *xhttp.Server
	stream   *usecase.PanchangStream
	pipe     *mid.EventPipeline
	recorder *usecase.EventRecorder
	consumer *pkgkafka.Consumer
	queue    *queue.RedisQueue
	redis    *cache.RedisCache
}

type Option func(*App)

func WithStream(s *usecase.PanchangStream) Option { return func(a *App) { a.stream = s } }

func WithPipeline(p *mid.EventPipeline) Option { return func(a *App) { a.pipe = p } }

func WithRecorder(r *usecase.EventRecorder) Option { return func(a *App) { a.recorder = r } }

func WithConsumer(c *pkgkafka.Consumer) Option { return func(a *App) { a.consumer = c } }

// WithQueue runs q's workers for the lifetime of the app.
func WithQueue(q *queue.RedisQueue) Option { return func(a *App) { a.queue = q } }

// WithRedis closes the shared redis client on shutdown.
func WithRedis(rc *cache.RedisCache) Option { return func(a *App) { a.redis = rc } }

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, log *applogger.Logger, srv *xhttp.Server, opts ...Option) *App {
	if log == nil {
		log = applogger.Nop()
	}
	a := &App{cfg: cfg, log: log, http: srv}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start brings up background workers, then the HTTP server.
func (a *App) Start(ctx context.Context) error {
	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			return err
		}
		a.log.Info("record queue started")
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.cfg.Kafka.Topic))
	}

	if a.pipe != nil {
		a.pipe.Start()
	}

	if a.stream != nil {
		if err := a.stream.Start(ctx); err != nil {
			return err
		}
		a.log.Info("panchang stream started", applogger.Duration("interval", a.stream.Interval()))
	}

	a.log.Info("starting",
		applogger.String("env", a.cfg.Environment),
		applogger.String("backend", a.cfg.Backend.Type),
		applogger.Int("port", a.cfg.Server.Port))
	return a.http.Start()
}

// Shutdown stops intake first, then drains background work and closes clients.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down")

	if err := a.http.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.stream != nil {
		if err := a.stream.Shutdown(ctx); err != nil {
			a.log.Warn("stream stop error", applogger.Error(err))
		}
	}

	if a.pipe != nil {
		if n := a.pipe.Buffered(); n > 0 {
			a.log.Info("flushing calculation events", applogger.Int("count", n))
		}
		a.pipe.Stop()
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.log.Warn("queue stop error", applogger.Error(err))
		}
	}

	if a.recorder != nil {
		a.recorder.Close()
	}

	a.log.RemoveCollector()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 15 * time.Second
}
