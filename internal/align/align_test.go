package align

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/gravitas-games/hexalign/pkg/errors"
	"github.com/gravitas-games/hexalign/pkg/hex"
)

func randomPositions(seed int64, n int) []hex.Point {
	rng := rand.New(rand.NewSource(seed))
	out := make([]hex.Point, n)
	for i := range out {
		out[i] = hex.Point{X: rng.Float64()*60 - 30, Y: rng.Float64()*60 - 30}
	}
	return out
}

func TestAlignPositionsSnapsEveryPosition(t *testing.T) {
	positions := randomPositions(1, 40)
	req := Request{Orientation: hex.PointyTop, Unit: hex.Outer, Radius: 3}

	res, err := AlignPositions(context.Background(), positions, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Positions) != len(positions) {
		t.Fatalf("expected %d positions, got %d", len(positions), len(res.Positions))
	}
	for i, p := range positions {
		want, _ := hex.Snap(p, hex.PointyTop, 3, 3)
		if res.Positions[i] != want {
			t.Fatalf("position %d: expected %+v, got %+v", i, want, res.Positions[i])
		}
	}
	if res.Radius != 3 {
		t.Fatalf("expected radius 3, got %v", res.Radius)
	}
}

func TestAlignPositionsAxisMask(t *testing.T) {
	positions := randomPositions(2, 50)

	horizontal, err := AlignPositions(context.Background(), positions, Request{
		Orientation: hex.FlatTop, Unit: hex.Outer, Radius: 4, Delta: 1.5, Axes: HorizontalOnly,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vertical, err := AlignPositions(context.Background(), positions, Request{
		Orientation: hex.FlatTop, Unit: hex.Outer, Radius: 4, Delta: 1.5, Axes: VerticalOnly,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, p := range positions {
		snapped, _ := hex.Snap(p, hex.FlatTop, 4, 5.5)
		if horizontal.Positions[i].Y != p.Y {
			t.Fatalf("position %d: horizontal mask changed vertical coordinate %v -> %v", i, p.Y, horizontal.Positions[i].Y)
		}
		if horizontal.Positions[i].X != snapped.X {
			t.Fatalf("position %d: expected x %v, got %v", i, snapped.X, horizontal.Positions[i].X)
		}
		if vertical.Positions[i].X != p.X {
			t.Fatalf("position %d: vertical mask changed horizontal coordinate %v -> %v", i, p.X, vertical.Positions[i].X)
		}
		if vertical.Positions[i].Y != snapped.Y {
			t.Fatalf("position %d: expected y %v, got %v", i, snapped.Y, vertical.Positions[i].Y)
		}
	}
}

func TestAlignPositionsExpandContractRoundTrip(t *testing.T) {
	ctx := context.Background()
	positions := randomPositions(3, 30)

	for _, o := range []hex.Orientation{hex.FlatTop, hex.PointyTop} {
		req := Request{Orientation: o, Unit: hex.Outer, Radius: 5}
		aligned, err := AlignPositions(ctx, positions, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		req.Delta = 2.5
		expanded, err := AlignPositions(ctx, aligned.Positions, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if expanded.Radius != 7.5 {
			t.Fatalf("expected radius 7.5 after expand, got %v", expanded.Radius)
		}

		req.Radius, req.Delta = expanded.Radius, -2.5
		contracted, err := AlignPositions(ctx, expanded.Positions, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if contracted.Radius != 5 {
			t.Fatalf("expected radius 5 after contract, got %v", contracted.Radius)
		}
		for i := range positions {
			a, c := aligned.Positions[i], contracted.Positions[i]
			if math.Abs(a.X-c.X) > 1e-9 || math.Abs(a.Y-c.Y) > 1e-9 {
				t.Fatalf("%v position %d: expected %+v after round trip, got %+v", o, i, a, c)
			}
		}
	}
}

func TestAlignPositionsInnerRadius(t *testing.T) {
	inner := 5 * math.Sqrt(3) / 2
	positions := []hex.Point{{X: 7.1, Y: 4.2}}

	res, err := AlignPositions(context.Background(), positions, Request{
		Orientation: hex.FlatTop, Unit: hex.Inner, Radius: inner, Delta: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := hex.Snap(positions[0], hex.FlatTop, 5, 6)
	if math.Abs(res.Positions[0].X-want.X) > 1e-9 || math.Abs(res.Positions[0].Y-want.Y) > 1e-9 {
		t.Fatalf("expected %+v, got %+v", want, res.Positions[0])
	}
	if math.Abs(res.Radius-(inner+1)) > 1e-9 {
		t.Fatalf("expected radius %v, got %v", inner+1, res.Radius)
	}
}

func TestAlignPositionsInnerRoundTripScales(t *testing.T) {
	ctx := context.Background()
	cell := hex.Axial{Q: 1, R: 0}
	start := hex.AxialToPixel(cell, hex.FlatTop, 5)
	req := Request{Orientation: hex.FlatTop, Unit: hex.Inner, Radius: hex.ToInner(hex.Inner, 5), Delta: 1}

	expanded, err := AlignPositions(ctx, []hex.Point{start}, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req.Radius, req.Delta = expanded.Radius, -1
	contracted, err := AlignPositions(ctx, expanded.Positions, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(contracted.Radius-hex.ToInner(hex.Inner, 5)) > 1e-9 {
		t.Fatalf("expected stored radius to return to start, got %v", contracted.Radius)
	}
	if contracted.Cells[0] != cell {
		t.Fatalf("expected cell %v, got %v", cell, contracted.Cells[0])
	}
	// Points land on outer R0+(2/sqrt3-1)d, not R0.
	want := hex.AxialToPixel(cell, hex.FlatTop, 5+2/math.Sqrt(3)-1)
	got := contracted.Positions[0]
	if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if math.Abs(got.X-start.X) < 0.1 {
		t.Fatalf("expected scale drift away from %+v, got %+v", start, got)
	}
}

func TestAlignPositionsEmptyBatch(t *testing.T) {
	res, err := AlignPositions(context.Background(), nil, Request{
		Orientation: hex.FlatTop, Unit: hex.Inner, Radius: 2, Delta: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Positions) != 0 || res.Radius != 2 {
		t.Fatalf("expected no-op, got %+v", res)
	}
}

func TestAlignPositionsRejectsInvalidArguments(t *testing.T) {
	positions := randomPositions(4, 3)
	tests := []struct {
		name string
		req  Request
	}{
		{"axis mask", Request{Orientation: hex.FlatTop, Radius: 1, Axes: AxisMask(5)}},
		{"orientation", Request{Orientation: hex.Orientation(3), Radius: 1}},
		{"unit", Request{Orientation: hex.FlatTop, Unit: hex.RadiusUnit(8), Radius: 1}},
		{"zero radius", Request{Orientation: hex.FlatTop, Radius: 0}},
		{"negative radius", Request{Orientation: hex.PointyTop, Radius: -1}},
		{"nan radius", Request{Orientation: hex.PointyTop, Radius: math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AlignPositions(context.Background(), positions, tt.req)
			if !errors.Is(err, errors.ErrCodeInvalidArgument) {
				t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
			}
		})
	}
}

func TestAlignPositionsLargeBatch(t *testing.T) {
	positions := randomPositions(5, 1000)
	req := Request{Orientation: hex.PointyTop, Unit: hex.Inner, Radius: 2, Delta: 0.5}

	res, err := AlignPositions(context.Background(), positions, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outer := hex.ToOuter(hex.Inner, 2)
	for i, p := range positions {
		want, _ := hex.Snap(p, hex.PointyTop, outer, outer+0.5)
		if res.Positions[i] != want {
			t.Fatalf("position %d: expected %+v, got %+v", i, want, res.Positions[i])
		}
	}
	if math.Abs(res.Radius-2.5) > 1e-12 {
		t.Fatalf("expected radius 2.5, got %v", res.Radius)
	}

	bad := append([]hex.Point(nil), positions...)
	bad[700] = hex.Point{X: math.Inf(1)}
	if _, err := AlignPositions(context.Background(), bad, req); !errors.Is(err, errors.ErrCodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT for infinite position, got %v", err)
	}
}

func TestAlignPositionsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := AlignPositions(ctx, randomPositions(6, 10), Request{Orientation: hex.FlatTop, Radius: 1})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseAxisMask(t *testing.T) {
	tests := map[string]AxisMask{
		"":           Both,
		"both":       Both,
		"Horizontal": HorizontalOnly,
		"x":          HorizontalOnly,
		"vertical":   VerticalOnly,
		"z":          VerticalOnly,
	}
	for in, want := range tests {
		got, err := ParseAxisMask(in)
		if err != nil || got != want {
			t.Fatalf("%q: expected %v, got %v (%v)", in, want, got, err)
		}
	}
	if _, err := ParseAxisMask("diagonal"); !errors.Is(err, errors.ErrCodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
}

func TestAlignPositionsReportsCells(t *testing.T) {
	positions := []hex.Point{{X: 7.2, Y: 4.0}, {X: -0.4, Y: 0.3}}
	res, err := AlignPositions(context.Background(), positions, DefaultState().Request(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []hex.Axial{{Q: 1, R: 0}, {Q: 0, R: 0}}
	if len(res.Cells) != len(want) || res.Cells[0] != want[0] || res.Cells[1] != want[1] {
		t.Fatalf("expected cells %v, got %v", want, res.Cells)
	}
}
