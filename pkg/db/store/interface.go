package store

import (
	"context"
	"errors"

	"github.com/Hedok25/photo-services/pkg/db/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// ImageQuery filters images by their dedup key. Empty fields are not applied.
type ImageQuery struct {
	Source string
	SKU    string
	Hash   string
}

// MetadataStore defines the interface for database operations
type MetadataStore interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	Health(ctx context.Context) error

	// Image operations. Images are append-only: there is no update.
	CreateImage(ctx context.Context, image *models.Image) error
	FindImage(ctx context.Context, query ImageQuery) (*models.Image, error)
	LatestImage(ctx context.Context, source, sku string) (*models.Image, error)
	CountImages(ctx context.Context, query ImageQuery) (int64, error)

	// Sync run history
	CreateSyncRun(ctx context.Context, run *models.SyncRun) error
	UpdateSyncRun(ctx context.Context, run *models.SyncRun) error
	ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error)
}
