package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	config "github.com/Hedok25/photo-services/internal/config/server"
	"github.com/Hedok25/photo-services/internal/syncer"
	"github.com/Hedok25/photo-services/pkg/db/store"
	"github.com/Hedok25/photo-services/pkg/log"
	"github.com/mwantia/fabric/pkg/container"
	"github.com/robfig/cron/v3"
)

type PhotoSyncAgent struct {
	mutex sync.RWMutex
	wait  sync.WaitGroup

	cfg *config.BaseServerConfig
	sc  *container.ServiceContainer
	log log.LoggerService

	store        *store.GormStore
	orchestrator *syncer.Orchestrator
	scheduler    *cron.Cron
	server       *http.Server
}

func NewAgent(cfg *config.BaseServerConfig) *PhotoSyncAgent {
	return &PhotoSyncAgent{
		cfg: cfg,
		sc:  container.NewServiceContainer(),
		log: log.NewLoggerService("photosync", cfg.Log),
	}
}

func (psa *PhotoSyncAgent) setupServices(ctx context.Context) error {
	metadata, err := store.NewMetadataStore(psa.cfg.Metadata, psa.log)
	if err != nil {
		return fmt.Errorf("failed to create metadata store: %w", err)
	}
	if err := metadata.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect metadata store: %w", err)
	}
	psa.store = metadata
	psa.log.Info("Connected to %s metadata store", metadata.Dialect())

	if err := metadata.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate metadata store: %w", err)
	}

	orchestrator, err := syncer.New(ctx, psa.cfg, metadata, psa.log.Named("sync"))
	if err != nil {
		return err
	}
	psa.orchestrator = orchestrator

	errs := container.Errors{}

	psa.log.Debug("Registering 'LoggerService'...")
	errs.Add(container.Register[log.LoggerServiceImpl](psa.sc,
		container.With[log.LoggerService](),
		container.WithInstance(psa.log)))

	psa.log.Debug("Registering 'MetadataStore'...")
	errs.Add(container.Register[store.GormStore](psa.sc,
		container.With[store.MetadataStore](),
		container.WithInstance(metadata)))

	psa.log.Debug("Registering 'Syncer'...")
	errs.Add(container.Register[syncer.Orchestrator](psa.sc,
		container.With[syncer.Syncer](),
		container.WithInstance(orchestrator)))

	return errs.Errors()
}

func (psa *PhotoSyncAgent) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	psa.mutex.Lock()

	if err := psa.setupServices(ctx); err != nil {
		psa.mutex.Unlock()
		psa.closeResources()
		return err
	}

	if err := psa.setupHTTP(ctx); err != nil {
		psa.mutex.Unlock()
		psa.closeResources()
		return err
	}

	psa.scheduler = newScheduler(psa.cfg.Sync.Schedule, psa.Trigger, psa.log.Named("cron"))
	if psa.cfg.Sync.OnStartup {
		psa.Trigger()
	}

	psa.mutex.Unlock()
	<-ctx.Done()

	psa.log.Info("Shutting down...")

	timeout, err := time.ParseDuration(psa.cfg.ShutdownTimeout)
	if err != nil {
		// Set default of 60 seconds if error
		timeout = 60 * time.Second
	}

	shutdown, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	psa.mutex.Lock()
	defer psa.mutex.Unlock()

	if psa.scheduler != nil {
		<-psa.scheduler.Stop().Done()
	}
	if psa.server != nil {
		if err := psa.server.Shutdown(shutdown); err != nil {
			psa.log.Warn("Failed to shut down http server: %v", err)
		}
	}

	if !waitTimeout(&psa.wait, shutdown) {
		psa.log.Warn("Sync still running after %s, exiting anyway", timeout)
	}

	if err := psa.sc.Cleanup(shutdown); err != nil {
		return fmt.Errorf("failed to complete service container cleanup: %w", err)
	}

	psa.closeResources()
	return nil
}

// Trigger starts a sync pass in the background. The pass is not tied to any
// request or shutdown context; the orchestrator skips it if one is running.
func (psa *PhotoSyncAgent) Trigger() {
	psa.wait.Add(1)
	go func() {
		defer psa.wait.Done()
		psa.orchestrator.RunSync(context.Background())
	}()
}

func (psa *PhotoSyncAgent) setupHTTP(ctx context.Context) error {
	if !psa.cfg.HTTP.Enabled {
		return nil
	}

	metadata, err := resolve[store.MetadataStore](ctx, psa.sc)
	if err != nil {
		return err
	}
	logger, err := log.Resolve(ctx, psa.sc, "logger:http")
	if err != nil {
		return err
	}

	psa.server = &http.Server{
		Addr:              psa.cfg.HTTP.Address,
		Handler:           newRouter(psa.Trigger, metadata, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	psa.wait.Add(1)
	go func() {
		defer psa.wait.Done()

		psa.log.Info("Listening on %s", psa.cfg.HTTP.Address)
		if err := psa.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			psa.log.Error("HTTP server failed: %v", err)
		}
	}()

	return nil
}

func (psa *PhotoSyncAgent) closeResources() {
	if psa.orchestrator != nil {
		if err := psa.orchestrator.Close(); err != nil {
			psa.log.Warn("Failed to close sync resources: %v", err)
		}
	}
	if psa.store != nil {
		if err := psa.store.Close(); err != nil {
			psa.log.Warn("Failed to close metadata store: %v", err)
		}
	}
}

func resolve[T any](ctx context.Context, sc *container.ServiceContainer) (T, error) {
	var zero T

	ok, resolved := sc.ResolveByType(ctx, reflect.TypeOf((*T)(nil)).Elem())
	if !ok {
		return zero, fmt.Errorf("no service registered for %s", reflect.TypeOf((*T)(nil)).Elem())
	}

	service, ok := resolved.(T)
	if !ok {
		return zero, fmt.Errorf("resolved service is not a %s", reflect.TypeOf((*T)(nil)).Elem())
	}
	return service, nil
}

// waitTimeout reports whether wg finished before ctx was done.
func waitTimeout(wg *sync.WaitGroup, ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
