package align

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gravitas-games/hexalign/pkg/errors"
	"github.com/gravitas-games/hexalign/pkg/hex"
)

// parallelThreshold is the batch size at which positions are snapped
// concurrently.
const parallelThreshold = 256

// AxisMask selects which components of a snapped position are applied.
type AxisMask int

const (
	Both AxisMask = iota
	HorizontalOnly
	VerticalOnly
)

func (m AxisMask) String() string {
	switch m {
	case Both:
		return "both"
	case HorizontalOnly:
		return "horizontal"
	case VerticalOnly:
		return "vertical"
	}
	return "unknown"
}

// IsValid reports whether m is a known mask.
func (m AxisMask) IsValid() bool {
	switch m {
	case Both, HorizontalOnly, VerticalOnly:
		return true
	}
	return false
}

// ParseAxisMask accepts "both", "horizontal"/"x" and "vertical"/"z".
func ParseAxisMask(s string) (AxisMask, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both", "xz", "all":
		return Both, nil
	case "horizontal", "x":
		return HorizontalOnly, nil
	case "vertical", "z", "y":
		return VerticalOnly, nil
	}
	return 0, errors.InvalidArgument("unknown axis mask %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m AxisMask) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, errors.InvalidArgument("unknown axis mask %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *AxisMask) UnmarshalText(text []byte) error {
	v, err := ParseAxisMask(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// apply merges the snapped position into the original according to m.
func (m AxisMask) apply(original, snapped hex.Point) hex.Point {
	switch m {
	case HorizontalOnly:
		return hex.Point{X: snapped.X, Y: original.Y}
	case VerticalOnly:
		return hex.Point{X: original.X, Y: snapped.Y}
	}
	return snapped
}

// Request describes one alignment pass.
type Request struct {
	Orientation hex.Orientation
	Unit        hex.RadiusUnit
	// Radius is the current grid radius, measured in Unit.
	Radius float64
	// Delta grows (positive) or shrinks (negative) the grid while snapping.
	Delta float64
	Axes  AxisMask
}

// Validate checks enum values and the radius.
func (r Request) Validate() error {
	if !r.Orientation.IsValid() {
		return errors.InvalidArgument("unknown orientation %d", int(r.Orientation))
	}
	if !r.Unit.IsValid() {
		return errors.InvalidArgument("unknown radius unit %d", int(r.Unit))
	}
	if !r.Axes.IsValid() {
		return errors.InvalidArgument("unknown axis mask %d", int(r.Axes))
	}
	if !(r.Radius > 0) {
		return errors.InvalidArgument("radius must be positive, got %v", r.Radius)
	}
	return nil
}

// Result holds the aligned positions, index-matched to the input, and the
// reference radius to use for the next pass.
type Result struct {
	Positions []hex.Point
	Cells     []hex.Axial // cell each position was snapped to
	Radius    float64
}

// AlignPositions snaps every position onto the grid described by req.
//
// The grid radius is converted to an outer radius once; every position is
// snapped against it and rescaled to outer+Delta. The returned radius is the
// outer radius converted back to req.Unit plus Delta. An empty batch returns
// the radius unchanged.
func AlignPositions(ctx context.Context, positions []hex.Point, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	if len(positions) == 0 {
		return Result{Positions: []hex.Point{}, Cells: []hex.Axial{}, Radius: req.Radius}, nil
	}

	outer := hex.ToOuter(req.Unit, req.Radius)
	target := outer + req.Delta

	out := make([]hex.Point, len(positions))
	cells := make([]hex.Axial, len(positions))
	snapOne := func(i int) error {
		cell, err := hex.SnapCell(positions[i], req.Orientation, outer)
		if err != nil {
			return errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeInternal), err, "position %d", i)
		}
		cells[i] = cell
		out[i] = req.Axes.apply(positions[i], hex.AxialToPixel(cell, req.Orientation, target))
		return nil
	}

	if len(positions) < parallelThreshold {
		for i := range positions {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			if err := snapOne(i); err != nil {
				return Result{}, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		const chunk = 128
		for start := 0; start < len(positions); start += chunk {
			start, end := start, min(start+chunk, len(positions))
			g.Go(func() error {
				for i := start; i < end; i++ {
					if err := gctx.Err(); err != nil {
						return err
					}
					if err := snapOne(i); err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Result{}, err
		}
	}

	return Result{
		Positions: out,
		Cells:     cells,
		Radius:    hex.ToInner(req.Unit, outer) + req.Delta,
	}, nil
}
