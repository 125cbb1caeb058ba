package cli

import (
	"github.com/spf13/cobra"

	"github.com/gravitas-games/hexalign/internal/state"
)

func newStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or clear the stored reference radius of a layout selection",
	}
	cmd.AddCommand(newStateShowCmd())
	cmd.AddCommand(newStateResetCmd())
	return cmd
}

func newStateShowCmd() *cobra.Command {
	var target layoutTarget

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the reference state the next pass will use",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFromContext(ctx)

			sc, key, err := target.open()
			if err != nil {
				return err
			}
			store, err := state.Open(ctx, cfg, loggerFromContext(ctx))
			if err != nil {
				return err
			}
			defer store.Close()

			st, stored, err := loadState(ctx, store, cfg, key)
			if err != nil {
				return err
			}

			title := "Configured grid (nothing stored)"
			if stored {
				title = "Stored grid"
			}
			out := cmd.OutOrStdout()
			printState(out, title, st)
			printDetail(out, "%s, selection %q, key %s", target.file, sc.Selected, key)
			return nil
		},
	}

	target.register(cmd)
	return cmd
}

func newStateResetCmd() *cobra.Command {
	var target layoutTarget

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget the stored reference radius",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFromContext(ctx)

			sc, key, err := target.open()
			if err != nil {
				return err
			}
			store, err := state.Open(ctx, cfg, loggerFromContext(ctx))
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(ctx, key); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Reset reference state of %s in %s", sc.Selected, target.file)
			return nil
		},
	}

	target.register(cmd)
	return cmd
}
