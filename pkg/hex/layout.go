package hex

import (
	"math"
	"strings"

	"github.com/gravitas-games/hexalign/pkg/errors"
)

// Orientation selects the hexagon layout of a grid.
type Orientation int

const (
	FlatTop Orientation = iota
	PointyTop
)

func (o Orientation) String() string {
	switch o {
	case FlatTop:
		return "flat-top"
	case PointyTop:
		return "pointy-top"
	}
	return "unknown"
}

// IsValid reports whether o is one of the known orientations.
func (o Orientation) IsValid() bool {
	switch o {
	case FlatTop, PointyTop:
		return true
	}
	return false
}

// ParseOrientation accepts "flat", "flat-top", "pointy" and "pointy-top".
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flat", "flat-top", "flattop", "flat_top":
		return FlatTop, nil
	case "pointy", "pointy-top", "pointytop", "pointy_top":
		return PointyTop, nil
	}
	return 0, errors.InvalidArgument("unknown orientation %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Orientation) MarshalText() ([]byte, error) {
	if !o.IsValid() {
		return nil, errors.InvalidArgument("unknown orientation %d", int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Orientation) UnmarshalText(text []byte) error {
	v, err := ParseOrientation(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// RadiusUnit says which radius of the hexagon a value measures.
// Outer is the circumradius (center to vertex), Inner the inradius (center
// to edge midpoint).
type RadiusUnit int

const (
	Outer RadiusUnit = iota
	Inner
)

func (u RadiusUnit) String() string {
	switch u {
	case Outer:
		return "outer"
	case Inner:
		return "inner"
	}
	return "unknown"
}

// IsValid reports whether u is one of the known radius units.
func (u RadiusUnit) IsValid() bool {
	return u == Outer || u == Inner
}

// ParseRadiusUnit accepts "outer" and "inner".
func ParseRadiusUnit(s string) (RadiusUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "outer", "circumradius":
		return Outer, nil
	case "inner", "inradius":
		return Inner, nil
	}
	return 0, errors.InvalidArgument("unknown radius unit %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (u RadiusUnit) MarshalText() ([]byte, error) {
	if !u.IsValid() {
		return nil, errors.InvalidArgument("unknown radius unit %d", int(u))
	}
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *RadiusUnit) UnmarshalText(text []byte) error {
	v, err := ParseRadiusUnit(string(text))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// OuterFromInner converts an inradius to the circumradius of the same hexagon.
func OuterFromInner(radius float64) float64 {
	return radius * 2 / math.Sqrt(3)
}

// InnerFromOuter converts a circumradius to the inradius of the same hexagon.
func InnerFromOuter(radius float64) float64 {
	return math.Sqrt(3) * radius / 2
}

// ToOuter returns radius, measured in unit, as an outer radius.
func ToOuter(unit RadiusUnit, radius float64) float64 {
	if unit == Inner {
		return OuterFromInner(radius)
	}
	return radius
}

// ToInner converts an outer radius back into unit. Outer values pass
// through unchanged.
func ToInner(unit RadiusUnit, radius float64) float64 {
	if unit == Inner {
		return InnerFromOuter(radius)
	}
	return radius
}
