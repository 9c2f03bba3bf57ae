package marketplace

import (
	"fmt"
	"time"

	config "github.com/Hedok25/photo-services/internal/config/server"
	"github.com/Hedok25/photo-services/pkg/log"
)

// NewClients builds one catalog client per enabled source.
func NewClients(cfg config.MarketplacesServerConfig, logger log.LoggerService) ([]Client, error) {
	var clients []Client

	if cfg.Ozon.Enabled {
		opts, err := options(cfg.Ozon.MarketplaceClientConfig)
		if err != nil {
			return nil, fmt.Errorf("ozon: %w", err)
		}
		client, err := NewOzonClient(cfg.Ozon.ClientID, cfg.Ozon.APIKey, opts, logger.Named("ozon"))
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}

	if cfg.WB.Enabled {
		opts, err := options(cfg.WB.MarketplaceClientConfig)
		if err != nil {
			return nil, fmt.Errorf("wb: %w", err)
		}
		client, err := NewWildberriesClient(cfg.WB.APIKey, opts, logger.Named("wb"))
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}

	for _, custom := range cfg.Custom {
		opts, err := options(custom.MarketplaceClientConfig)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", custom.Name, err)
		}
		client, err := NewJSONClient(custom.Name, Pagination(custom.Pagination), custom.Token, opts, logger.Named(custom.Name))
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}

	return clients, nil
}

func options(cfg config.MarketplaceClientConfig) (Options, error) {
	opts := Options{
		Endpoint: cfg.Endpoint,
		PageSize: cfg.PageSize,
		RPS:      cfg.RPS,
		Burst:    cfg.Burst,
	}

	if cfg.Timeout != "" {
		timeout, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return Options{}, fmt.Errorf("invalid timeout '%s': %w", cfg.Timeout, err)
		}
		opts.Timeout = timeout
	}

	return opts, nil
}
