// Package server initializes and runs the bot: it wires the record store,
// image storage, watchers and the chat bot behind the HTTP and gRPC
// servers, and shuts everything down on a signal.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/intrusionbot/internal/blob"
	"github.com/dmitrijs2005/intrusionbot/internal/bot"
	"github.com/dmitrijs2005/intrusionbot/internal/fetch"
	"github.com/dmitrijs2005/intrusionbot/internal/logging"
	"github.com/dmitrijs2005/intrusionbot/internal/metrics"
	"github.com/dmitrijs2005/intrusionbot/internal/records"
	"github.com/dmitrijs2005/intrusionbot/internal/server/chat"
	"github.com/dmitrijs2005/intrusionbot/internal/server/config"
	"github.com/dmitrijs2005/intrusionbot/internal/server/httpserver"
	"github.com/dmitrijs2005/intrusionbot/internal/watcher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sourcegraph/conc"

	gs "github.com/dmitrijs2005/intrusionbot/internal/server/grpc"
)

// listener is the part of PostgresStore the app drives.
type listener interface {
	Listen(ctx context.Context) error
	Ready() <-chan struct{}
	Close() error
}

// openPostgresStore is a test seam.
var openPostgresStore = func(ctx context.Context, c *config.Config, l logging.Logger) (records.Store, listener, error) {
	s, err := records.NewPostgresStore(ctx, c.DatabaseDSN, l, records.PostgresOptions{AttachTimeout: c.AttachTimeout})
	if err != nil {
		return nil, nil, err
	}
	return s, s, nil
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    records.Store
	listener listener
	ready    <-chan struct{}
	registry *prometheus.Registry
	manager  *watcher.Manager
	http     *httpserver.Server
	health   *gs.HealthServer
}

func NewApp(c *config.Config) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger, err := logging.New(logging.Options{File: c.LogFile, Level: c.LogLevel})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	return newApp(context.Background(), c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	app := &App{config: c, logger: logger}

	switch c.StoreKind {
	case config.StoreMemory:
		app.store = records.NewMemoryStore()
		ready := make(chan struct{})
		close(ready)
		app.ready = ready
	default:
		store, l, err := openPostgresStore(ctx, c, logger)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.store, app.listener, app.ready = store, l, l.Ready()
	}

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(app.registry)

	s3 := blob.NewS3Store(blob.Config{
		RootUser:     c.S3RootUser,
		RootPassword: c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		Expiry:       c.PresignExpiry,
	})

	fetcher := fetch.New(fetch.Options{
		Timeout:       c.FetchTimeout,
		Attempts:      uint(c.FetchAttempts),
		ThumbnailSize: uint(c.ThumbnailSize),
	})

	w := watcher.New(app.store, logger, m, watcher.Options{
		Resolver:     s3,
		Fetcher:      fetcher,
		FetchTimeout: c.FetchTimeout,
	})
	app.manager = watcher.NewManager(w)

	b := bot.New(app.manager, app.store, s3, logger, m)

	router := httpserver.NewRouter(httpserver.Deps{
		Chat:     chat.NewHandler(chat.BotStarter(b), logger),
		Uploads:  s3,
		Images:   app.store,
		Gatherer: app.registry,
		Ready:    app.isReady,
		Logger:   logger,
	})

	app.http = httpserver.NewServer(c.ListenAddr, router, logger)
	app.health = gs.NewHealthServer(c.HealthAddrGRPC, logger, app.ready)

	return app, nil
}

func (app *App) isReady() bool {
	select {
	case <-app.ready:
		return true
	default:
		return false
	}
}

// Handler exposes the HTTP routes, mainly for tests.
func (app *App) Handler() http.Handler {
	return app.http.Handler()
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the store listener and both servers and blocks until ctx is
// done, a signal arrives or one of them fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreKind)

	app.initSignalHandler(cancelFunc)

	var wg conc.WaitGroup

	if app.listener != nil {
		wg.Go(func() {
			if err := app.listener.Listen(ctx); err != nil {
				app.logger.Error(ctx, "record store listener stopped", "error", err)
				cancelFunc()
			}
		})
	}

	wg.Go(func() {
		if err := app.http.Run(ctx); err != nil {
			app.logger.Error(ctx, "HTTP server stopped", "error", err)
			cancelFunc()
		}
	})

	wg.Go(func() {
		if err := app.health.Run(ctx); err != nil {
			app.logger.Error(ctx, "gRPC server stopped", "error", err)
			cancelFunc()
		}
	})

	wg.Wait()

	app.manager.StopAll()

	if app.listener != nil {
		if err := app.listener.Close(); err != nil {
			app.logger.Warn(ctx, "closing record store", "error", err)
		}
	}

	app.logger.Info(ctx, "App stopped")
}
