package network

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gravitas-games/hexalign/internal/align"
	"github.com/gravitas-games/hexalign/pkg/hex"
)

func TestDecodeAlignPayload(t *testing.T) {
	raw := `{"orientation":"pointy","radius":3.5,"amount":1.25,
		"positions":[{"handle":"a","x":1,"y":2},{"x":-4,"y":0.5}]}`

	var p AlignPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Orientation == nil || *p.Orientation != hex.PointyTop {
		t.Fatalf("expected pointy-top orientation, got %v", p.Orientation)
	}
	if p.RadiusUnit != nil || p.Axes != nil {
		t.Fatalf("expected unset fields to stay nil")
	}
	if p.Amount != 1.25 || len(p.Positions) != 2 || p.Positions[0].Handle != "a" {
		t.Fatalf("unexpected payload %+v", p)
	}

	st := p.Apply(align.DefaultState())
	want := align.State{Orientation: hex.PointyTop, Unit: hex.Outer, Radius: 3.5, Axes: align.Both}
	if st != want {
		t.Fatalf("expected %+v, got %+v", want, st)
	}
}

func TestDecodeRejectsUnknownEnum(t *testing.T) {
	var p AlignPayload
	if err := json.Unmarshal([]byte(`{"axes":"diagonal"}`), &p); err == nil {
		t.Fatalf("expected error for unknown axis mask")
	}
}

func TestEncodeAligned(t *testing.T) {
	msg := ServerMessage{
		Type: MsgTypeAligned,
		ID:   "req-1",
		Payload: AlignedPayload{
			Positions: []Position{{Handle: "a", X: 7.5, Y: 0}},
			State:     NewGridStatus(align.DefaultState()),
		},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{`"type":"aligned"`, `"id":"req-1"`, `"orientation":"flat-top"`, `"radius_unit":"outer"`, `"axes":"both"`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected %s in %s", want, data)
		}
	}
}
