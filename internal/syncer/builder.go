package syncer

import (
	"context"
	"fmt"
	"io"
	"time"

	config "github.com/Hedok25/photo-services/internal/config/server"
	"github.com/Hedok25/photo-services/pkg/db/store"
	"github.com/Hedok25/photo-services/pkg/ingest"
	"github.com/Hedok25/photo-services/pkg/lock"
	"github.com/Hedok25/photo-services/pkg/log"
	"github.com/Hedok25/photo-services/pkg/marketplace"
	"github.com/Hedok25/photo-services/pkg/replica"
	"github.com/Hedok25/photo-services/pkg/shard"
	"github.com/spf13/afero"
)

// New wires an Orchestrator from configuration, storing files below
// cfg.Storage.Root on the local disk.
func New(ctx context.Context, cfg *config.BaseServerConfig, metadata store.MetadataStore, logger log.LoggerService) (*Orchestrator, error) {
	return NewWithFs(ctx, cfg, afero.NewOsFs(), metadata, logger)
}

// NewWithFs is New on an arbitrary base filesystem.
func NewWithFs(ctx context.Context, cfg *config.BaseServerConfig, base afero.Fs, metadata store.MetadataStore, logger log.LoggerService) (*Orchestrator, error) {
	clients, err := marketplace.NewClients(cfg.Marketplaces, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create marketplace clients: %w", err)
	}
	if len(clients) == 0 {
		logger.Warn("No marketplace is enabled, sync passes will do nothing")
	}

	if err := base.MkdirAll(cfg.Storage.Root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	root := afero.NewBasePathFs(base, cfg.Storage.Root)

	timeout, err := parseDuration(cfg.Sync.DownloadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid sync.download_timeout: %w", err)
	}

	opts := ingest.Options{
		MaxDownloadSize: cfg.Storage.MaxDownloadSize,
		DownloadTimeout: timeout,
	}
	if cfg.Replica.Enabled {
		mirror, err := replica.NewMinioReplica(ctx, cfg.Replica)
		if err != nil {
			return nil, fmt.Errorf("failed to create replica: %w", err)
		}
		opts.Replica = mirror
		logger.Info("Replicating stored photos to bucket '%s'", cfg.Replica.Bucket)
	}

	pipeline := ingest.NewPipeline(root, shard.NewAllocator(root, cfg.Storage.MaxFilesPerDir), metadata, opts, logger.Named("ingest"))

	locker := lock.Chain{lock.NewLocalLock()}
	var closers []io.Closer

	if cfg.Sync.Lock.Redis {
		ttl, err := parseDuration(cfg.Sync.Lock.TTL)
		if err != nil {
			return nil, fmt.Errorf("invalid sync.lock.ttl: %w", err)
		}
		redisLock, err := lock.NewRedisLock(cfg.Sync.Lock.Addr, cfg.Sync.Lock.Password, cfg.Sync.Lock.Key, ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to create sync lock: %w", err)
		}
		locker = append(locker, redisLock)
		closers = append(closers, redisLock)
	}

	orchestrator := NewOrchestrator(clients, pipeline, metadata, locker, logger)
	orchestrator.closers = closers

	return orchestrator, nil
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	return time.ParseDuration(value)
}
