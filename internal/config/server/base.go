package server

import (
	"fmt"

	"github.com/spf13/viper"
)

type BaseServerConfig struct {
	ShutdownTimeout string `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	Log          LogServerConfig          `mapstructure:"log"          yaml:"log"`
	HTTP         HTTPServerConfig         `mapstructure:"http"         yaml:"http"`
	Metadata     MetadataServerConfig     `mapstructure:"metadata"     yaml:"metadata"`
	Storage      StorageServerConfig      `mapstructure:"storage"      yaml:"storage"`
	Sync         SyncServerConfig         `mapstructure:"sync"         yaml:"sync"`
	Marketplaces MarketplacesServerConfig `mapstructure:"marketplaces" yaml:"marketplaces"`
	Replica      ReplicaServerConfig      `mapstructure:"replica"      yaml:"replica"`
}

func LoadServerConfig() (*BaseServerConfig, error) {
	cfg := &BaseServerConfig{}

	setDefaults()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks settings that would otherwise only fail deep inside a sync pass.
func (cfg *BaseServerConfig) Validate() error {
	if cfg.Storage.Root == "" {
		return fmt.Errorf("storage.root is required")
	}
	if cfg.Storage.MaxFilesPerDir <= 0 {
		return fmt.Errorf("storage.max_files_per_dir must be positive, got %d", cfg.Storage.MaxFilesPerDir)
	}

	switch cfg.Metadata.Type {
	case "sqlite":
		if cfg.Metadata.SQLite.Path == "" {
			return fmt.Errorf("metadata.sqlite.path is required")
		}
	case "postgres":
		if cfg.Metadata.Postgres.DSN == "" {
			return fmt.Errorf("metadata.postgres.dsn is required")
		}
	default:
		return fmt.Errorf("unsupported metadata type '%s'", cfg.Metadata.Type)
	}

	seen := map[string]bool{}
	for _, source := range cfg.Marketplaces.EnabledSources() {
		if seen[source] {
			return fmt.Errorf("marketplace source '%s' is configured more than once", source)
		}
		seen[source] = true
	}

	for _, custom := range cfg.Marketplaces.Custom {
		if custom.Name == "" {
			return fmt.Errorf("custom marketplace requires a name")
		}
		if custom.Name == "local" {
			return fmt.Errorf("custom marketplace name 'local' is reserved for direct uploads")
		}
		if custom.Pagination != "offset" && custom.Pagination != "page" {
			return fmt.Errorf("custom marketplace '%s': pagination must be 'offset' or 'page'", custom.Name)
		}
	}

	return nil
}
