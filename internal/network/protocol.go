package network

import (
	"encoding/json"

	"github.com/gravitas-games/hexalign/internal/align"
	"github.com/gravitas-games/hexalign/pkg/hex"
)

// Message types - Client → Server
const (
	MsgTypeAlign    = "align"
	MsgTypeExpand   = "expand"
	MsgTypeContract = "contract"
	MsgTypeState    = "state"
	MsgTypePing     = "ping"
)

// Message types - Server → Client
const (
	MsgTypeWelcome = "welcome"
	MsgTypeAligned = "aligned"
	MsgTypeStateOK = "state"
	MsgTypeError   = "error"
	MsgTypePong    = "pong"
)

// ClientMessage represents any message from client to server
type ClientMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"` // echoed back in the reply
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents any message from server to client
type ServerMessage struct {
	Type    string      `json:"type"`
	ID      string      `json:"id,omitempty"`
	Payload interface{} `json:"payload"`
}

// --- Client Message Payloads ---

// GridPayload overrides the stored reference state. Omitted fields keep
// their stored values.
type GridPayload struct {
	Orientation *hex.Orientation `json:"orientation,omitempty"`
	RadiusUnit  *hex.RadiusUnit  `json:"radius_unit,omitempty"`
	Radius      *float64         `json:"radius,omitempty"`
	Axes        *align.AxisMask  `json:"axes,omitempty"`
}

// Apply returns st with every set field of g applied
func (g GridPayload) Apply(st align.State) align.State {
	if g.Orientation != nil {
		st.Orientation = *g.Orientation
	}
	if g.RadiusUnit != nil {
		st.Unit = *g.RadiusUnit
	}
	if g.Radius != nil {
		st.Radius = *g.Radius
	}
	if g.Axes != nil {
		st.Axes = *g.Axes
	}
	return st
}

// AlignPayload is sent for align, expand and contract
type AlignPayload struct {
	GridPayload
	Positions []Position `json:"positions"`
	Amount    float64    `json:"amount,omitempty"` // expand/contract only
}

// StatePayload optionally updates the stored state; an empty payload reads it
type StatePayload struct {
	GridPayload
	Reset bool `json:"reset,omitempty"`
}

// Position is a caller-tagged plane position
type Position struct {
	Handle string  `json:"handle,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Point returns the plane point of p
func (p Position) Point() hex.Point { return hex.Point{X: p.X, Y: p.Y} }

// --- Server Message Payloads ---

// WelcomePayload is sent to client after successful connection
type WelcomePayload struct {
	EditorID     string     `json:"editor_id"`
	Username     string     `json:"username"`
	ConnectionID string     `json:"connection_id"`
	State        GridStatus `json:"state"`
}

// AlignedPayload returns the aligned positions in request order
type AlignedPayload struct {
	Positions []Position  `json:"positions"`
	State     GridStatus  `json:"state"`
	Overlaps  []CellUsage `json:"overlaps,omitempty"`
}

// CellUsage names the positions that were snapped to one shared cell
type CellUsage struct {
	Q       int      `json:"q"`
	R       int      `json:"r"`
	Handles []string `json:"handles"`
}

// GridStatus is the reference state after a request
type GridStatus struct {
	Orientation hex.Orientation `json:"orientation"`
	RadiusUnit  hex.RadiusUnit  `json:"radius_unit"`
	Radius      float64         `json:"radius"`
	Axes        align.AxisMask  `json:"axes"`
}

// NewGridStatus converts a reference state for the wire
func NewGridStatus(st align.State) GridStatus {
	return GridStatus{
		Orientation: st.Orientation,
		RadiusUnit:  st.Unit,
		Radius:      st.Radius,
		Axes:        st.Axes,
	}
}

// BatchRequest is the body of POST /api/align. It does not touch any
// stored state; the returned state carries the advanced radius.
type BatchRequest struct {
	GridPayload
	Positions []Position `json:"positions"`
	Delta     float64    `json:"delta,omitempty"`
}

// SnapRequest is the body of POST /api/snap
type SnapRequest struct {
	GridPayload
	X            float64  `json:"x"`
	Y            float64  `json:"y"`
	TargetRadius *float64 `json:"target_radius,omitempty"`
}

// SnapResponse is the reply of POST /api/snap
type SnapResponse struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Q int     `json:"q"`
	R int     `json:"r"`
	S int     `json:"s"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
