// Package app wires the configured backends into the locations service and
// serves it over HTTP.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub/v2"
	"github.com/illmade-knight/bikepark/internal/api"
	"github.com/illmade-knight/bikepark/internal/config"
	"github.com/illmade-knight/bikepark/internal/events"
	firestorestorage "github.com/illmade-knight/bikepark/internal/storage/firestore"
	redisstorage "github.com/illmade-knight/bikepark/internal/storage/redis"
	sqlitestorage "github.com/illmade-knight/bikepark/internal/storage/sqlite"
	"github.com/illmade-knight/bikepark/pkg/locations"
	"github.com/rs/zerolog"
)

// App is the central application struct. It owns the service, the HTTP
// server and every backend client opened for them.
type App struct {
	Service *locations.Service
	cfg     *config.Config
	logger  zerolog.Logger
	closers []func() error

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	served   chan error
}

// Backends are the collaborators of the locations service.
type Backends struct {
	Store    locations.Store
	Index    locations.Index
	Notifier locations.Notifier
	closers  []func() error
}

// New opens the backends named in cfg and builds the application.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	backends, err := OpenBackends(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewWithBackends(cfg, backends, logger), nil
}

// NewWithBackends builds the application around already opened backends.
func NewWithBackends(cfg *config.Config, b *Backends, logger zerolog.Logger) *App {
	opts := []locations.Option{
		locations.WithLogger(logger.With().Str("component", "LocationService").Logger()),
	}
	if b.Notifier != nil {
		opts = append(opts, locations.WithNotifier(b.Notifier))
	}
	return &App{
		Service: locations.NewService(b.Store, b.Index, opts...),
		cfg:     cfg,
		logger:  logger,
		closers: b.closers,
	}
}

// OpenBackends connects to the store, index and broker selected in cfg. On
// failure, whatever was already opened is closed again.
func OpenBackends(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Backends, error) {
	b := &Backends{}
	if err := b.open(ctx, cfg, logger); err != nil {
		_ = b.Close()
		return nil, err
	}
	logger.Info().
		Str("store", cfg.StoreBackend).
		Str("index", cfg.IndexBackend).
		Str("events", cfg.EventsBackend).
		Msg("Backends ready")
	return b, nil
}

func (b *Backends) open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	switch cfg.StoreBackend {
	case config.StoreFirestore:
		fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to create firestore client: %w", err)
		}
		b.closers = append(b.closers, fsClient.Close)
		b.Store = firestorestorage.NewLocationsStore(fsClient, cfg.FirestoreCollection)
	case config.StoreSQLite:
		store, err := sqlitestorage.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, store.Close)
		b.Store = store
	default:
		b.Store = locations.NewInMemoryStore()
	}

	switch cfg.IndexBackend {
	case config.IndexRedis:
		client, err := redisstorage.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, client.Close)
		index := redisstorage.NewLocationsIndex(client, cfg.RedisPrefix)
		if err := index.EnsureSchema(ctx); err != nil {
			return err
		}
		b.Index = index
	default:
		index := locations.NewInMemoryIndex()
		b.closers = append(b.closers, index.Close)
		b.Index = index
	}

	switch cfg.EventsBackend {
	case config.EventsPubSub:
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to create pubsub client: %w", err)
		}
		b.closers = append(b.closers, psClient.Close)
		notifier := events.NewPubSubNotifier(psClient, cfg.PubSubTopic, logger)
		b.closers = append(b.closers, notifier.Close)
		b.Notifier = notifier
	case config.EventsRabbitMQ:
		notifier, err := events.NewRabbitNotifier(cfg.RabbitMQURL, cfg.RabbitMQExchange, logger)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, notifier.Close)
		b.Notifier = notifier
	}

	return nil
}

// NewBackends wraps caller-owned collaborators.
func NewBackends(store locations.Store, index locations.Index, notifier locations.Notifier) *Backends {
	return &Backends{Store: store, Index: index, Notifier: notifier}
}

// Close releases the backends in reverse order of opening.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// Start listens on the configured address and serves in the background.
// Use Addr to learn the bound address when listening on port 0.
func (a *App) Start(ctx context.Context) error {
	if a.cfg.ReindexOnStart {
		n, err := a.Service.Reindex(ctx)
		if err != nil {
			return fmt.Errorf("failed to reindex on start: %w", err)
		}
		a.logger.Info().Int("count", n).Msg("Index rebuilt from store")
	}

	listener, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.HTTPAddr, err)
	}
	handler := api.NewRouter(api.NewHandler(a.Service, a.logger), a.cfg.CORSAllowedOrigins)

	a.mu.Lock()
	a.listener = listener
	a.server = &http.Server{
		Handler: handler,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}
	a.served = make(chan error, 1)
	server, served := a.server, a.served
	a.mu.Unlock()

	go func() {
		err := server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		served <- err
	}()
	a.logger.Info().Str("addr", listener.Addr().String()).Msg("HTTP server listening")
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Shutdown stops the HTTP server, waiting for in-flight requests until ctx
// is done, and then closes the backends.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	server, served := a.server, a.served
	a.server = nil
	a.mu.Unlock()

	var errs []error
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down http server: %w", err))
		}
		if err := <-served; err != nil {
			errs = append(errs, err)
		}
	}
	if err := (&Backends{closers: a.closers}).Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close backends: %w", err))
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Run serves until ctx is cancelled, then shuts down within the configured
// grace period.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	a.mu.Lock()
	served := a.served
	a.mu.Unlock()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info().Msg("Shutting down")
	case serveErr = <-served:
		// the server stopped on its own; Shutdown still reads from served
		served <- nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGrace)
	defer cancel()
	return errors.Join(serveErr, a.Shutdown(shutdownCtx))
}
