package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Hedok25/photo-services/pkg/db/migrations"
	"github.com/Hedok25/photo-services/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore implements MetadataStore on top of any GORM dialect.
type GormStore struct {
	db           *gorm.DB
	dialect      string
	maxOpenConns int
}

// DB returns the underlying GORM database instance
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) Dialect() string {
	return s.dialect
}

// ParseLogLevel maps a configured name onto a GORM log level. Unknown names are silent.
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return logger.Error
	case "warn", "warning":
		return logger.Warn
	case "info", "debug":
		return logger.Info
	default:
		return logger.Silent
	}
}

func gormConfig(log logger.Interface) *gorm.Config {
	if log == nil {
		log = logger.Default.LogMode(logger.Silent)
	}
	return &gorm.Config{
		Logger: log,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Connect configures the connection pool and verifies connectivity
func (s *GormStore) Connect(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(s.maxOpenConns)
	sqlDB.SetMaxIdleConns(s.maxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Migrate applies pending versioned migrations
func (s *GormStore) Migrate(ctx context.Context) error {
	if _, err := migrations.NewMigrator(s.db).Migrate(ctx); err != nil {
		return err
	}
	return nil
}

func (s *GormStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Image operations

func (s *GormStore) CreateImage(ctx context.Context, image *models.Image) error {
	if err := s.db.WithContext(ctx).Create(image).Error; err != nil {
		return fmt.Errorf("failed to insert image %s: %w", image.Filename, err)
	}
	return nil
}

func (s *GormStore) FindImage(ctx context.Context, query ImageQuery) (*models.Image, error) {
	var image models.Image
	err := s.filter(ctx, query).Order("id ASC").First(&image).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &image, nil
}

func (s *GormStore) LatestImage(ctx context.Context, source, sku string) (*models.Image, error) {
	var image models.Image
	err := s.filter(ctx, ImageQuery{Source: source, SKU: sku}).Order("id DESC").First(&image).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &image, nil
}

func (s *GormStore) CountImages(ctx context.Context, query ImageQuery) (int64, error) {
	var count int64
	err := s.filter(ctx, query).Model(&models.Image{}).Count(&count).Error
	return count, err
}

func (s *GormStore) filter(ctx context.Context, query ImageQuery) *gorm.DB {
	tx := s.db.WithContext(ctx)
	if query.Source != "" {
		tx = tx.Where("source = ?", query.Source)
	}
	if query.SKU != "" {
		tx = tx.Where("marketplace_sku = ?", query.SKU)
	}
	if query.Hash != "" {
		tx = tx.Where("hash = ?", query.Hash)
	}
	return tx
}

// Sync run operations

func (s *GormStore) CreateSyncRun(ctx context.Context, run *models.SyncRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *GormStore) UpdateSyncRun(ctx context.Context, run *models.SyncRun) error {
	return s.db.WithContext(ctx).Save(run).Error
}

func (s *GormStore) ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	runs := []models.SyncRun{}
	query := s.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&runs).Error
	return runs, err
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
