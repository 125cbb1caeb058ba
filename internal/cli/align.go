package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gravitas-games/hexalign/internal/align"
	"github.com/gravitas-games/hexalign/internal/config"
	"github.com/gravitas-games/hexalign/internal/scene"
	"github.com/gravitas-games/hexalign/internal/state"
	"github.com/gravitas-games/hexalign/pkg/hex"
)

type moveMode int

const (
	modeAlign moveMode = iota
	modeExpand
	modeContract
)

// gridFlags are the per-invocation overrides of the reference state.
type gridFlags struct {
	orientation string
	unit        string
	radius      float64
	axes        string
}

func (g *gridFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&g.orientation, "orientation", "", "grid orientation: flat-top or pointy-top")
	cmd.Flags().StringVar(&g.unit, "unit", "", "radius unit: outer or inner")
	cmd.Flags().Float64Var(&g.radius, "radius", 0, "reference radius")
	cmd.Flags().StringVar(&g.axes, "axes", "", "axes to snap: both, horizontal or vertical")
}

// apply returns st with every flag the user set applied.
func (g *gridFlags) apply(cmd *cobra.Command, st align.State) (align.State, error) {
	var err error
	if cmd.Flags().Changed("orientation") {
		if st.Orientation, err = hex.ParseOrientation(g.orientation); err != nil {
			return st, err
		}
	}
	if cmd.Flags().Changed("unit") {
		if st.Unit, err = hex.ParseRadiusUnit(g.unit); err != nil {
			return st, err
		}
	}
	if cmd.Flags().Changed("radius") {
		st.Radius = g.radius
	}
	if cmd.Flags().Changed("axes") {
		if st.Axes, err = align.ParseAxisMask(g.axes); err != nil {
			return st, err
		}
	}
	return st, nil
}

// layoutTarget is a layout file and the node whose children are aligned.
type layoutTarget struct {
	file      string
	selection string
}

func (t *layoutTarget) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&t.file, "file", "f", defaultLayoutPath, "layout file")
	cmd.Flags().StringVar(&t.selection, "select", "", "node to align (default: the layout's selection)")
}

// open loads the layout, applies --select and returns the state key of the
// resulting selection.
func (t *layoutTarget) open() (*scene.Scene, string, error) {
	sc, err := scene.Load(t.file)
	if err != nil {
		return nil, "", err
	}
	if t.selection != "" {
		if err := sc.Select(t.selection); err != nil {
			return nil, "", err
		}
	}
	abs, err := filepath.Abs(t.file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve layout path: %w", err)
	}
	return sc, state.Key(abs, sc.Selected), nil
}

// loadState returns the stored state under key, or the configured grid.
func loadState(ctx context.Context, store state.Store, cfg *config.Config, key string) (align.State, bool, error) {
	st, err := store.Get(ctx, key)
	if err != nil {
		return align.State{}, false, err
	}
	if st != nil {
		return *st, true, nil
	}
	def, err := cfg.Grid.State()
	return def, false, err
}

type moveOptions struct {
	target layoutTarget
	grid   gridFlags
	output string
	by     float64
}

func newMoveCmd(mode moveMode) *cobra.Command {
	var opts moveOptions

	cmd := &cobra.Command{
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(cmd, mode, &opts)
		},
	}

	switch mode {
	case modeAlign:
		cmd.Use = "align"
		cmd.Short = "Snap the selected node's children to the nearest cell centers"
	case modeExpand:
		cmd.Use = "expand"
		cmd.Short = "Snap and grow the grid radius"
	case modeContract:
		cmd.Use = "contract"
		cmd.Short = "Snap and shrink the grid radius"
	}

	opts.target.register(cmd)
	opts.grid.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output layout file (default: overwrite --file)")
	if mode != modeAlign {
		cmd.Flags().Float64Var(&opts.by, "by", 1, "radius change per pass")
	}

	return cmd
}

func runMove(cmd *cobra.Command, mode moveMode, opts *moveOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	cfg := configFromContext(ctx)
	out := cmd.OutOrStdout()
	prog := newProgress(logger)

	sc, key, err := opts.target.open()
	if err != nil {
		return err
	}

	store, err := state.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	st, _, err := loadState(ctx, store, cfg, key)
	if err != nil {
		return err
	}
	if st, err = opts.grid.apply(cmd, st); err != nil {
		return err
	}
	before := st.Radius

	a := align.New(sc, logger)
	var rep align.Report
	switch mode {
	case modeAlign:
		rep, err = a.Align(ctx, &st)
	case modeExpand:
		rep, err = a.Expand(ctx, &st, opts.by)
	case modeContract:
		rep, err = a.Contract(ctx, &st, opts.by)
	}
	if err != nil {
		return err
	}

	if !rep.Selection {
		printWarning(out, "nothing selected in %s, use --select", opts.target.file)
		return nil
	}

	output := opts.output
	if output == "" {
		output = opts.target.file
	}
	if err := sc.Save(output); err != nil {
		return err
	}
	if err := store.Set(ctx, key, &st); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("%s pass finished", cmd.Name()))

	printSuccess(out, "Moved %s children of %s", num(float64(rep.Moved)), sc.Selected)
	printDetail(out, "%s grid, radius %g %s %g (%s)", st.Orientation, before, iconArrow, st.Radius, st.Unit)
	for _, o := range rep.Overlaps {
		printWarning(out, "cell (%d, %d) holds %d children: %s", o.Cell.Q, o.Cell.R, len(o.Handles), strings.Join(o.Handles, ", "))
	}
	printInfo(out, "Wrote %s", output)
	return nil
}
