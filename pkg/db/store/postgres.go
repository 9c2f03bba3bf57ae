package store

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	Logger       logger.Interface
}

// NewPostgresStore creates a metadata store backed by Postgres.
func NewPostgresStore(cfg PostgresConfig) (*GormStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 4
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), gormConfig(cfg.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	return &GormStore{
		db:           db,
		dialect:      "postgres",
		maxOpenConns: cfg.MaxOpenConns,
	}, nil
}
