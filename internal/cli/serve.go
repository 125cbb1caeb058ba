package cli

import (
	"github.com/spf13/cobra"

	"github.com/gravitas-games/hexalign/internal/server"
	"github.com/gravitas-games/hexalign/internal/state"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the align service",
		Long:  `Serve alignment over WebSocket (/ws) and HTTP (/api/align, /api/snap). Reference states are kept per editor in the configured state backend.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			cfg := configFromContext(ctx)

			if addr == "" {
				addr = cfg.Addr()
			}

			store, err := state.Open(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			srv, err := server.New(cfg, store, logger, server.Options{})
			if err != nil {
				return err
			}

			errChan := make(chan error, 1)
			go func() {
				logger.Info("Server listening", "addr", addr, "state", cfg.State.Backend)
				errChan <- srv.Start(addr)
			}()

			select {
			case err := <-errChan:
				return err
			case <-ctx.Done():
				logger.Info("Shutting down")
			}

			if err := srv.Shutdown(); err != nil {
				logger.Error("Error during shutdown", "err", err)
			}
			logger.Info("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.host:server.port)")
	return cmd
}
