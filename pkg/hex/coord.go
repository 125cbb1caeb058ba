package hex

import "math"

// Axial represents axial coordinates (q, r). The third cube component is
// implied as s = -q - r.
type Axial struct {
	Q int
	R int
}

// Cube represents cube coordinates (x, y, z) with x+y+z=0.
type Cube struct {
	X int
	Y int
	Z int
}

// Add returns a+b in axial space.
func (a Axial) Add(b Axial) Axial { return Axial{a.Q + b.Q, a.R + b.R} }

// Mul scales an axial vector by k.
func (a Axial) Mul(k int) Axial { return Axial{a.Q * k, a.R * k} }

// S returns the implied third coordinate.
func (a Axial) S() int { return -a.Q - a.R }

// ToCube converts axial to cube.
func (a Axial) ToCube() Cube {
	return Cube{X: a.Q, Y: a.S(), Z: a.R}
}

// ToAxial converts cube to axial.
func (c Cube) ToAxial() Axial { return Axial{Q: c.X, R: c.Z} }

// Distance returns hex distance between two axial coords.
func Distance(a, b Axial) int {
	return DistanceCube(a.ToCube(), b.ToCube())
}

// DistanceCube returns hex distance between two cube coords.
func DistanceCube(a, b Cube) int {
	dx := absInt(a.X - b.X)
	dy := absInt(a.Y - b.Y)
	dz := absInt(a.Z - b.Z)
	if dx > dy && dx > dz {
		return dx
	}
	if dy > dz {
		return dy
	}
	return dz
}

// FractionalAxial is an axial coordinate before rounding to a cell.
//
// Components are single precision: scene transforms are stored as float32 by
// the editor, and cell classification has to agree with what it computes for
// points that sit on a cell boundary.
type FractionalAxial struct {
	Q float32
	R float32
}

// S returns the implied third coordinate.
func (f FractionalAxial) S() float32 { return -f.Q - f.R }

// Round returns the cell containing f.
//
// Each component is rounded half away from zero. The component with the
// largest rounding error is then rebuilt from the other two, checking q
// first and r second; when neither q nor r has a strictly larger error, both
// are kept as rounded and s is dropped.
func (f FractionalAxial) Round() Axial {
	q, r, s := f.Q, f.R, f.S()

	rq := math.Round(float64(q))
	rr := math.Round(float64(r))
	rs := math.Round(float64(s))

	dq := absf(float32(rq) - q)
	dr := absf(float32(rr) - r)
	ds := absf(float32(rs) - s)

	if dq > dr && dq > ds {
		rq = -rr - rs
	} else if dr > ds {
		rr = -rq - rs
	}

	return Axial{Q: int(rq), R: int(rr)}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
