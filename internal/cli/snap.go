package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gravitas-games/hexalign/internal/scene"
	"github.com/gravitas-games/hexalign/pkg/errors"
	"github.com/gravitas-games/hexalign/pkg/hex"
)

func newSnapCmd() *cobra.Command {
	var (
		grid   gridFlags
		target float64
	)

	cmd := &cobra.Command{
		Use:   "snap X Y",
		Short: "Print the cell and center nearest to a plane point",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return errors.InvalidArgument("invalid X %q", args[0])
			}
			y, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return errors.InvalidArgument("invalid Y %q", args[1])
			}

			st, err := configFromContext(cmd.Context()).Grid.State()
			if err != nil {
				return err
			}
			if st, err = grid.apply(cmd, st); err != nil {
				return err
			}
			if err := st.Request(0).Validate(); err != nil {
				return err
			}

			outer := hex.ToOuter(st.Unit, st.Radius)
			targetOuter := outer
			if cmd.Flags().Changed("target") {
				targetOuter = hex.ToOuter(st.Unit, target)
			}

			p := hex.Point{X: x, Y: y}
			cell, err := hex.SnapCell(p, st.Orientation, outer)
			if err != nil {
				return err
			}
			center, err := hex.Snap(p, st.Orientation, outer, targetOuter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSuccess(out, "(%g, %g) %s (%g, %g)", x, y, iconArrow, center.X, center.Y)
			printDetail(out, "cell q=%d r=%d s=%d on %s grid, outer radius %g", cell.Q, cell.R, cell.S(), st.Orientation, outer)
			return nil
		},
	}

	grid.register(cmd)
	cmd.Flags().Float64Var(&target, "target", 0, "radius of the grid the center is reported on (default: --radius)")
	return cmd
}

func newGridCmd() *cobra.Command {
	var (
		grid   gridFlags
		output string
		name   string
		rings  int
		jitter float64
		seed   int64
	)

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Write a demo layout of jittered hex cells",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rings < 0 {
				return errors.InvalidArgument("rings must not be negative, got %d", rings)
			}
			st, err := configFromContext(cmd.Context()).Grid.State()
			if err != nil {
				return err
			}
			if st, err = grid.apply(cmd, st); err != nil {
				return err
			}
			if err := st.Request(0).Validate(); err != nil {
				return err
			}

			sc := scene.Generate(scene.GenerateOptions{
				Name:        name,
				Orientation: st.Orientation,
				Radius:      hex.ToOuter(st.Unit, st.Radius),
				Rings:       rings,
				Jitter:      jitter,
				Seed:        seed,
			})
			if err := sc.Save(output); err != nil {
				return err
			}

			cells := 1 + 3*rings*(rings+1)
			printSuccess(cmd.OutOrStdout(), "Wrote %s cells to %s", num(float64(cells)), output)
			printDetail(cmd.OutOrStdout(), "try: %s align -f %s", appName, output)
			return nil
		},
	}

	grid.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", defaultLayoutPath, "layout file to write")
	cmd.Flags().StringVar(&name, "name", "grid", "name of the parent node")
	cmd.Flags().IntVar(&rings, "rings", 3, "rings around the center cell")
	cmd.Flags().Float64Var(&jitter, "jitter", 0, "maximum random offset per axis")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed for jitter")
	return cmd
}
