// Package syncer runs sync passes: every enabled marketplace is fetched
// concurrently and its products are fed through the ingestion pipeline.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Hedok25/photo-services/pkg/db/models"
	"github.com/Hedok25/photo-services/pkg/db/store"
	"github.com/Hedok25/photo-services/pkg/ingest"
	"github.com/Hedok25/photo-services/pkg/lock"
	"github.com/Hedok25/photo-services/pkg/log"
	"github.com/Hedok25/photo-services/pkg/marketplace"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Syncer starts one sync pass and returns when it is over.
type Syncer interface {
	RunSync(ctx context.Context)
}

// Ingester stores the photos of one product.
type Ingester interface {
	Ingest(ctx context.Context, product marketplace.Product, source string) ingest.Result
}

type Orchestrator struct {
	clients  []marketplace.Client
	ingester Ingester
	store    store.MetadataStore
	locker   lock.Locker
	closers  []io.Closer
	log      log.LoggerService
}

func NewOrchestrator(clients []marketplace.Client, ingester Ingester, metadata store.MetadataStore, locker lock.Locker, logger log.LoggerService) *Orchestrator {
	if locker == nil {
		locker = lock.NewLocalLock()
	}
	return &Orchestrator{
		clients:  clients,
		ingester: ingester,
		store:    metadata,
		locker:   locker,
		log:      logger,
	}
}

// RunSync performs one pass over every source. A pass that finds another one
// in progress logs and returns immediately. Outcomes are only visible in the
// logs and the sync run history.
func (o *Orchestrator) RunSync(ctx context.Context) {
	release, err := o.locker.Acquire(ctx)
	if errors.Is(err, lock.ErrLocked) {
		o.log.Warn("Sync is already running, skipping this trigger")
		return
	}
	if err != nil {
		o.log.Error("Failed to acquire sync lock: %v", err)
		return
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			o.log.Warn("Failed to release sync lock: %v", err)
		}
	}()

	runID := uuid.NewString()
	start := time.Now()
	o.log.Info("Starting sync %s for %d source(s)", runID, len(o.clients))

	var wg conc.WaitGroup
	for _, client := range o.clients {
		wg.Go(func() {
			o.runSource(ctx, runID, client)
		})
	}
	wg.Wait()

	o.log.Info("Sync %s completed in %s", runID, time.Since(start).Round(time.Millisecond))
}

func (o *Orchestrator) runSource(ctx context.Context, runID string, client marketplace.Client) {
	source := client.Source()
	run := &models.SyncRun{
		RunID:     runID,
		Source:    source,
		Status:    models.SyncStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := o.store.CreateSyncRun(ctx, run); err != nil {
		o.log.Warn("Failed to record sync run for %s: %v", source, err)
	}

	var catcher panics.Catcher
	catcher.Try(func() {
		o.syncSource(ctx, client, run)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		o.log.Error("Sync of %s panicked: %v\n%s", source, recovered.Value, recovered.Stack)
		run.Status = models.SyncStatusFailed
		run.LastError = recovered.AsError().Error()
	}

	finished := time.Now().UTC()
	run.FinishedAt = &finished

	if run.ID == 0 {
		return
	}
	if err := o.store.UpdateSyncRun(context.Background(), run); err != nil {
		o.log.Warn("Failed to update sync run for %s: %v", source, err)
	}
}

func (o *Orchestrator) syncSource(ctx context.Context, client marketplace.Client, run *models.SyncRun) {
	source := client.Source()

	products, err := client.Fetch(ctx)
	if err != nil {
		o.log.Error("Failed to fetch catalog from %s: %v", source, err)
		run.Status = models.SyncStatusFailed
		run.LastError = err.Error()
		return
	}
	o.log.Info("Fetched %d product(s) from %s", len(products), source)
	run.Products = len(products)

	var total ingest.Result
	for _, product := range products {
		if err := ctx.Err(); err != nil {
			run.Status = models.SyncStatusFailed
			run.LastError = fmt.Sprintf("interrupted: %v", err)
			break
		}
		total.Add(o.ingester.Ingest(ctx, product, source))
	}

	run.Photos = total.Photos
	run.Inserted = total.Inserted
	run.Duplicates = total.Duplicates
	run.Failed = total.Failed
	if run.Status == models.SyncStatusRunning {
		run.Status = models.SyncStatusSuccess
	}

	o.log.Info("Finished %s: %d photo(s), %d new, %d unchanged, %d failed",
		source, total.Photos, total.Inserted, total.Duplicates, total.Failed)
}

// Close releases connections opened by New.
func (o *Orchestrator) Close() error {
	var errs []error
	for _, closer := range o.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
