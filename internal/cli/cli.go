// Package cli implements the hexalign command-line interface.
//
// Commands:
//   - align, expand, contract: snap the children of a layout node onto a hex grid
//   - snap: snap a single point and print its cell
//   - grid: write a demo layout of jittered hex cells
//   - serve: run the align service
//   - state: inspect or clear the stored reference radius
//
// All commands read the configuration named by --config (or CONFIG_PATH) and
// support --verbose for debug logging. The logger and configuration are
// attached to the command context.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/gravitas-games/hexalign/internal/config"
)

const (
	appName = "hexalign"

	defaultConfigPath = "hexalign.yaml"
	defaultLayoutPath = "layout.yaml"
)

var (
	version = "dev"
	commit  string
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c string) {
	version = v
	commit = c
}

// Execute runs the hexalign CLI with args taken from os.Args.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          appName,
		Short:        "hexalign snaps layout objects onto hexagonal grids",
		Long:         `hexalign aligns the children of a layout node to the nearest cell centers of a flat-top or pointy-top hex grid, and grows or shrinks that grid between passes.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = os.Getenv("CONFIG_PATH")
			}
			if path == "" {
				path = defaultConfigPath
			}
			cfg, err := config.LoadOptional(path)
			if err != nil {
				return err
			}

			level, err := cfg.LogLevel()
			if err != nil {
				return err
			}
			if verbose {
				level = LogDebug
			}
			logger := newLogger(cmd.ErrOrStderr(), level)
			logger.Debug("configuration loaded", "path", path)

			ctx := withLogger(cmd.Context(), logger)
			ctx = withConfig(ctx, cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}

	if commit != "" {
		root.SetVersionTemplate(appName + " {{.Version}}\ncommit: " + commit + "\n")
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $CONFIG_PATH or "+defaultConfigPath+")")

	root.AddCommand(newMoveCmd(modeAlign))
	root.AddCommand(newMoveCmd(modeExpand))
	root.AddCommand(newMoveCmd(modeContract))
	root.AddCommand(newSnapCmd())
	root.AddCommand(newGridCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newStateCmd())

	return root
}

type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// configFromContext returns the loaded configuration, or the defaults.
func configFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return config.Default()
}
