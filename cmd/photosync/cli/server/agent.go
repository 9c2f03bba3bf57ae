package server

import (
	"context"
	"fmt"

	"github.com/Hedok25/photo-services/internal/agent"
	"github.com/spf13/cobra"

	config "github.com/Hedok25/photo-services/internal/config/server"
)

func NewAgentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Start the photo sync agent",
		Long: `Start the photo sync agent.

The agent syncs on startup (sync.on_startup), on the cron schedule in
sync.schedule and whenever GET /api/sync is called.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load server configuration: %w", err)
			}

			agent := agent.NewAgent(cfg)
			if err := agent.Serve(context.Background()); err != nil {
				return err
			}

			return nil
		},
	}

	return cmd
}
