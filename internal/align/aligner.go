package align

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/gravitas-games/hexalign/internal/cellmap"
	"github.com/gravitas-games/hexalign/pkg/errors"
	"github.com/gravitas-games/hexalign/pkg/hex"
)

// ErrNoSelection is returned by a Host when nothing is selected.
var ErrNoSelection = errors.New(errors.ErrCodeNotFound, "no object selected")

// State is the reference record carried between alignment passes. The
// caller owns it and persists it between invocations; Aligner only
// advances Radius.
type State struct {
	Orientation hex.Orientation `json:"orientation" yaml:"orientation" toml:"orientation"`
	Unit        hex.RadiusUnit  `json:"radius_unit" yaml:"radius_unit" toml:"radius_unit"`
	Radius      float64         `json:"radius" yaml:"radius" toml:"radius"`
	Axes        AxisMask        `json:"axes" yaml:"axes" toml:"axes"`
}

// DefaultState returns a flat-top grid with an outer radius of 5.
func DefaultState() State {
	return State{
		Orientation: hex.FlatTop,
		Unit:        hex.Outer,
		Radius:      5,
		Axes:        Both,
	}
}

// Request builds the alignment request for a pass that moves by delta.
func (s State) Request(delta float64) Request {
	return Request{
		Orientation: s.Orientation,
		Unit:        s.Unit,
		Radius:      s.Radius,
		Delta:       delta,
		Axes:        s.Axes,
	}
}

// Target is one object to realign. Handle is opaque to this package.
type Target struct {
	Handle   string
	Position hex.Point
}

// Host gives the aligner access to the editor's selection and transforms.
type Host interface {
	// SelectedChildren returns the immediate children of the current
	// selection, or ErrNoSelection.
	SelectedChildren(ctx context.Context) ([]Target, error)
	// ApplyPosition moves the object behind handle to p.
	ApplyPosition(ctx context.Context, handle string, p hex.Point) error
}

// Report summarizes one pass.
type Report struct {
	Moved     int
	Radius    float64
	Delta     float64
	Selection bool
	Overlaps  []cellmap.Overlap // cells that received more than one child
}

// Aligner runs align, expand and contract passes against a Host.
type Aligner struct {
	host   Host
	logger *log.Logger
}

// New creates an Aligner. A nil logger uses log.Default().
func New(host Host, logger *log.Logger) *Aligner {
	if logger == nil {
		logger = log.Default()
	}
	return &Aligner{host: host, logger: logger}
}

// Align snaps the selection to the grid without resizing it.
func (a *Aligner) Align(ctx context.Context, st *State) (Report, error) {
	return a.Move(ctx, st, 0)
}

// Expand snaps the selection and grows the grid by amount.
func (a *Aligner) Expand(ctx context.Context, st *State, amount float64) (Report, error) {
	return a.Move(ctx, st, amount)
}

// Contract snaps the selection and shrinks the grid by amount.
func (a *Aligner) Contract(ctx context.Context, st *State, amount float64) (Report, error) {
	return a.Move(ctx, st, -amount)
}

// Move runs one pass with the given radius delta and advances st.Radius.
// With nothing selected it does nothing and leaves st untouched.
func (a *Aligner) Move(ctx context.Context, st *State, delta float64) (Report, error) {
	req := st.Request(delta)
	if err := req.Validate(); err != nil {
		return Report{}, err
	}

	targets, err := a.host.SelectedChildren(ctx)
	if stderrors.Is(err, ErrNoSelection) {
		a.logger.Debug("nothing selected, skipping")
		return Report{Radius: st.Radius}, nil
	}
	if err != nil {
		return Report{}, fmt.Errorf("failed to read selection: %w", err)
	}

	positions := lo.Map(targets, func(t Target, _ int) hex.Point { return t.Position })
	res, err := AlignPositions(ctx, positions, req)
	if err != nil {
		return Report{}, err
	}

	for i, t := range targets {
		if err := a.host.ApplyPosition(ctx, t.Handle, res.Positions[i]); err != nil {
			return Report{}, fmt.Errorf("failed to move %s: %w", t.Handle, err)
		}
	}

	handles := lo.Map(targets, func(t Target, _ int) string { return t.Handle })
	overlaps := cellmap.FromCells(res.Cells, handles).Overlaps()
	if len(overlaps) > 0 {
		a.logger.Warn("children share a cell", "cells", len(overlaps))
	}

	a.logger.Debug("aligned selection",
		"count", len(targets),
		"orientation", st.Orientation,
		"delta", delta,
		"radius", res.Radius)

	st.Radius = res.Radius
	return Report{
		Moved:     len(targets),
		Radius:    res.Radius,
		Delta:     delta,
		Selection: true,
		Overlaps:  overlaps,
	}, nil
}
