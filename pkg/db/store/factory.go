package store

import (
	"fmt"

	config "github.com/Hedok25/photo-services/internal/config/server"
	"github.com/Hedok25/photo-services/pkg/log"
)

// NewMetadataStore opens the store selected by cfg.Type. GORM output is routed
// through the given logger.
func NewMetadataStore(cfg config.MetadataServerConfig, logger log.LoggerService) (*GormStore, error) {
	gormLog := log.NewGormLogger(logger.Named("gorm"), ParseLogLevel(cfg.LogLevel))

	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStore(SQLiteConfig{
			Path:   cfg.SQLite.Path,
			Logger: gormLog,
		})
	case "postgres":
		return NewPostgresStore(PostgresConfig{
			DSN:          cfg.Postgres.DSN,
			MaxOpenConns: cfg.Postgres.MaxOpenConns,
			Logger:       gormLog,
		})
	default:
		return nil, fmt.Errorf("unsupported metadata type '%s'", cfg.Type)
	}
}
