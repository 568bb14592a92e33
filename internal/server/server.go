// Package server boots the process: stores, cache, queue, event bus and the
// HTTP/gRPC listeners, and tears them down again on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/feastly/feastly/app/gateway"
	"github.com/feastly/feastly/app/jobs"
	"github.com/feastly/feastly/app/listeners"
	repo "github.com/feastly/feastly/app/repositories"
	"github.com/feastly/feastly/app/repositories/memory"
	"github.com/feastly/feastly/app/services"
	"github.com/feastly/feastly/config"
	"github.com/feastly/feastly/internal/kernel"
	"github.com/feastly/feastly/pkg/cache"
	"github.com/feastly/feastly/pkg/database"
	"github.com/feastly/feastly/pkg/event"
	"github.com/feastly/feastly/pkg/grpc"
	"github.com/feastly/feastly/pkg/logger"
	"github.com/feastly/feastly/pkg/migration"
	"github.com/feastly/feastly/pkg/queue"
	"github.com/feastly/feastly/pkg/storage"
	"github.com/feastly/feastly/pkg/workerpool"
	"github.com/feastly/feastly/pkg/ws"
)

// App is a booted process. Close releases everything Boot opened.
type App struct {
	Store  repo.Store
	Queue  *queue.Manager
	Bus    *event.Bus
	Hub    *ws.Hub
	Kernel *kernel.Kernel

	pool    *workerpool.Pool
	closers []func()
}

// Boot connects every backing service named by the configuration. Only the
// primary store is mandatory; Redis, S3 and the mongo log sink degrade to
// warnings.
func Boot(ctx context.Context) (*App, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	a := &App{}

	if uri := config.LogMongoURI(); uri != "" {
		closeLogs, err := logger.UseMongo(uri, config.LogMongoDB())
		if err != nil {
			logger.Warn("mongo log sink disabled", "error", err)
		} else {
			a.onClose(closeLogs)
		}
	}

	store, err := OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.onClose(func() { _ = database.Close(context.Background()) })

	if err := cache.Connect(); err != nil {
		logger.Warn("redis unavailable; catalog cache and idempotency lock disabled", "error", err)
	}

	a.Queue, err = a.newQueue()
	if err != nil {
		a.Close()
		return nil, err
	}

	storage.Connect(ctx)
	disk, err := storage.Default()
	if err != nil {
		logger.Warn("receipt archiving disabled", "error", err)
	}
	jobs.Register(a.Queue, &jobs.Deps{
		Store:       store,
		Disk:        disk,
		WebhookURL:  config.OrderWebhookURL(),
		MailEnabled: config.MailEnabled(),
	})

	a.pool = workerpool.New(config.EventWorkers())
	a.Bus = event.NewBus(a.pool)
	a.Hub = ws.NewHub()
	listeners.Register(a.Bus, a.Hub, a.Queue)

	a.Kernel, err = kernel.New(kernel.Deps{
		Store:         store,
		Gateway:       gateway.NewCashfree(gatewayConfig()),
		Options:       orderOptions(),
		WebhookSecret: config.GatewayWebhookKey(),
		Locker:        services.LockFunc(cache.Lock),
		Events:        a.Bus,
		Hub:           a.Hub,
		Health:        database.Ping,
		CORSOrigin:    config.FrontendURL(),
		RateLimit:     config.RateLimitPerMinute(),
		MaxBody:       config.MaxBodyBytes(),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) onClose(fn func()) { a.closers = append(a.closers, fn) }

// Close runs shutdown hooks in reverse order.
func (a *App) Close() {
	if a.pool != nil {
		a.Bus.Flush()
		a.pool.Shutdown()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// OpenStore connects the primary store named by DB_DRIVER. SQL drivers are
// migrated to the latest schema first.
func OpenStore(ctx context.Context) (repo.Store, error) {
	switch driver := config.DatabaseDriver(); driver {
	case "memory":
		logger.Warn("using the in-memory store; data is lost on exit")
		return memory.NewStore(), nil
	case "mongo":
		if err := database.ConnectMongo(ctx); err != nil {
			return repo.Store{}, err
		}
		if err := repo.EnsureMongoIndexes(ctx, database.Mongo); err != nil {
			return repo.Store{}, fmt.Errorf("mongo indexes: %w", err)
		}
		return repo.MongoStore(database.Mongo), nil
	default:
		if err := database.Connect(); err != nil {
			return repo.Store{}, err
		}
		n, err := migration.New(database.DB, os.Stdout).Run()
		if err != nil {
			return repo.Store{}, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database ready", "driver", driver, "migrations_applied", n)
		return repo.GormStore(database.DB), nil
	}
}

func (a *App) newQueue() (*queue.Manager, error) {
	var d queue.Driver
	switch config.QueueDriver() {
	case "redis":
		if !cache.Available() {
			return nil, errors.New("queue: QUEUE_DRIVER=redis but redis is not connected")
		}
		d = queue.NewRedisDriver(cache.RDB)
	case "rabbitmq":
		rd, err := queue.NewRabbitMQDriver(config.RabbitMQURL(), config.RabbitMQQueue())
		if err != nil {
			return nil, err
		}
		a.onClose(func() { _ = rd.Close() })
		d = rd
	default:
		d = queue.NewMemoryDriver(1000)
	}

	m := queue.NewManager(d)
	if database.DB != nil {
		m.UseStore(queue.NewGormStore(database.DB))
	}
	return m, nil
}

func gatewayConfig() gateway.Config {
	return gateway.Config{
		AppID:         config.GatewayAppID(),
		SecretKey:     config.GatewaySecretKey(),
		Environment:   config.GatewayEnv(),
		APIVersion:    config.GatewayAPIVersion(),
		BaseURL:       config.GatewayBaseURL(),
		Timeout:       config.GatewayTimeout(),
		ReturnURLBase: config.FrontendURL(),
		Currency:      config.Currency(),
	}
}

func orderOptions() services.Options {
	return services.Options{
		DeliveryFee:       decimal.NewFromFloat(config.DeliveryFee()).Round(2),
		DefaultPayerPhone: config.DefaultPayerPhone(),
	}
}

// Start serves HTTP and gRPC until SIGINT/SIGTERM with workers queue
// consumers in the same process. The memory driver is only reachable from
// here, so it always gets at least one consumer.
func Start(workers int) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := Boot(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if workers < 1 && config.QueueDriver() == "memory" {
		workers = 1
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); a.Hub.Run(ctx) }()
	go func() { defer wg.Done(); sweepLimiter(ctx, a.Kernel) }()

	var queueWG *sync.WaitGroup
	if workers > 0 {
		queueWG = a.Queue.StartWorkers(ctx, workers)
	}

	grpcSrv, gerr := grpc.Start(config.GRPCPort(), database.Ping)
	if gerr != nil {
		logger.Warn("gRPC health server disabled", "error", gerr)
	}

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           a.Kernel.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "addr", srv.Addr, "env", config.AppEnv(), "db", config.DatabaseDriver(), "queue", config.QueueDriver())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err = <-errCh:
		stop()
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Error("HTTP shutdown", "error", serr)
	}
	grpc.Stop(grpcSrv)

	if queueWG != nil {
		queueWG.Wait()
	}
	wg.Wait()
	return err
}

// Work consumes the queue without serving HTTP. Use it with the redis or
// rabbitmq driver to scale workers separately from the API.
func Work(workers int) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := Boot(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if config.QueueDriver() == "memory" {
		logger.Warn("queue:work with the memory driver only sees jobs dispatched by this process")
	}
	if workers < 1 {
		workers = config.QueueWorkers()
	}

	logger.Info("queue worker started", "workers", workers, "driver", config.QueueDriver())
	a.Queue.StartWorkers(ctx, workers).Wait()
	logger.Info("queue worker stopped")
	return nil
}

func sweepLimiter(ctx context.Context, k *kernel.Kernel) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			k.Limiter.Sweep()
		}
	}
}
