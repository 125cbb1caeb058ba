package hex

import (
	"math"

	"github.com/gravitas-games/hexalign/pkg/errors"
)

// Point is a position on the grid plane. X is the scene x axis and Y the
// scene z axis; height is not part of the grid.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Scale returns p with both components multiplied by k.
func (p Point) Scale(k float64) Point { return Point{p.X * k, p.Y * k} }

// PixelToAxial converts a plane position to fractional axial coordinates on
// a grid of the given outer radius.
func PixelToAxial(p Point, o Orientation, radius float64) (FractionalAxial, error) {
	if err := checkRadius(radius); err != nil {
		return FractionalAxial{}, err
	}
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return FractionalAxial{}, errors.InvalidArgument("position must be finite, got (%v, %v)", p.X, p.Y)
	}

	x, z, size := float32(p.X), float32(p.Y), float32(radius)
	if size == 0 || isInf32(size) {
		return FractionalAxial{}, errors.InvalidArgument("radius %v is outside single precision range", radius)
	}
	if isInf32(x) || isInf32(z) {
		return FractionalAxial{}, errors.InvalidArgument("position (%v, %v) is outside single precision range", p.X, p.Y)
	}
	sqrt3 := float32(math.Sqrt(3))

	// Explicit float32 conversions keep each product rounded on its own so
	// no platform fuses them into a multiply-add.
	var frac FractionalAxial
	switch o {
	case FlatTop:
		frac.Q = float32(2.0/3*x) / size
		frac.R = (float32(-1.0/3*x) + float32(sqrt3/3*z)) / size
	case PointyTop:
		frac.Q = (float32(sqrt3/3*x) - float32(1.0/3*z)) / size
		frac.R = float32(2.0/3*z) / size
	default:
		return FractionalAxial{}, errors.InvalidArgument("unknown orientation %d", int(o))
	}
	if !inCellRange(frac.Q) || !inCellRange(frac.R) {
		return FractionalAxial{}, errors.InvalidArgument("position (%v, %v) is too far from the origin for radius %v", p.X, p.Y, radius)
	}
	return frac, nil
}

// maxCellIndex bounds |q| and |r| so that s = -q-r still fits a 32-bit int.
const maxCellIndex = 1 << 30

func isInf32(v float32) bool { return math.IsInf(float64(v), 0) }

// inCellRange reports whether v is finite and rounds to a representable
// cell index. NaN fails both comparisons.
func inCellRange(v float32) bool {
	return v > -maxCellIndex && v < maxCellIndex
}

// AxialToPixel returns the center of cell a on a grid of the given outer
// radius.
//
// o must be FlatTop or PointyTop. AxialToPixel does not validate it; callers
// obtain a from SnapCell or PixelToAxial with the same orientation, which
// reject anything else. Any other value yields the flat-top center.
func AxialToPixel(a Axial, o Orientation, radius float64) Point {
	q, r := float64(a.Q), float64(a.R)
	sqrt3 := math.Sqrt(3)

	if o == PointyTop {
		return Point{
			X: radius * (sqrt3*q + sqrt3/2*r),
			Y: radius * (3.0 / 2 * r),
		}
	}
	return Point{
		X: radius * (3.0 / 2 * q),
		Y: radius * (sqrt3/2*q + sqrt3*r),
	}
}

// SnapCell returns the cell whose center is nearest to p.
func SnapCell(p Point, o Orientation, radius float64) (Axial, error) {
	frac, err := PixelToAxial(p, o, radius)
	if err != nil {
		return Axial{}, err
	}
	return frac.Round(), nil
}

// Snap moves p to the nearest cell center of a grid with outer radius
// currentRadius, then rescales the result to a grid of targetRadius. Passing
// the same radius twice aligns without resizing.
//
// currentRadius must be finite and positive. targetRadius is not checked.
func Snap(p Point, o Orientation, currentRadius, targetRadius float64) (Point, error) {
	cell, err := SnapCell(p, o, currentRadius)
	if err != nil {
		return Point{}, err
	}
	return AxialToPixel(cell, o, targetRadius), nil
}

func checkRadius(radius float64) error {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return errors.InvalidArgument("radius must be finite and positive, got %v", radius)
	}
	return nil
}
