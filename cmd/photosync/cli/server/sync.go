package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/Hedok25/photo-services/internal/syncer"
	"github.com/Hedok25/photo-services/pkg/db/store"
	"github.com/Hedok25/photo-services/pkg/log"
	"github.com/spf13/cobra"

	config "github.com/Hedok25/photo-services/internal/config/server"
)

func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a single sync pass and exit",
		Long: `Run one sync pass over every enabled marketplace and exit.

Results are written to the log and to the sync run history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load server configuration: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			logger := log.NewLoggerService("photosync", cfg.Log)

			metadata, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer metadata.Close()

			if err := metadata.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate metadata store: %w", err)
			}

			orchestrator, err := syncer.New(ctx, cfg, metadata, logger.Named("sync"))
			if err != nil {
				return err
			}
			defer orchestrator.Close()

			orchestrator.RunSync(ctx)
			return nil
		},
	}

	return cmd
}

func openStore(ctx context.Context, cfg *config.BaseServerConfig, logger log.LoggerService) (*store.GormStore, error) {
	metadata, err := store.NewMetadataStore(cfg.Metadata, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata store: %w", err)
	}
	if err := connectStore(ctx, metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}

// connectStore closes metadata when the connection cannot be established.
func connectStore(ctx context.Context, metadata store.MetadataStore) error {
	if err := metadata.Connect(ctx); err != nil {
		_ = metadata.Close()
		return fmt.Errorf("failed to connect metadata store: %w", err)
	}
	return nil
}
