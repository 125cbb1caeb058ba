package server

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/gravitas-games/hexalign/internal/cellmap"
	"github.com/gravitas-games/hexalign/internal/network"
	"github.com/gravitas-games/hexalign/pkg/errors"
	"github.com/gravitas-games/hexalign/pkg/hex"
	"github.com/gravitas-games/hexalign/pkg/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 << 20
)

// Connection represents a WebSocket connection to an editor
type Connection struct {
	id     string
	ws     *websocket.Conn
	server *Server
	editor *models.Editor

	// Buffered channel for outbound messages
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// NewConnection creates a new connection
func NewConnection(id string, ws *websocket.Conn, server *Server, editor *models.Editor) *Connection {
	return &Connection{
		id:     id,
		ws:     ws,
		server: server,
		editor: editor,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
}

// Handle manages the connection lifecycle and blocks until it ends
func (c *Connection) Handle() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection to the handlers
func (c *Connection) readPump() {
	defer c.Close()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Warnf("WebSocket read error: %v", err)
			}
			return
		}
		c.editor.LastSeen = time.Now()

		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.server.logger.Debugf("Failed to parse client message: %v", err)
			c.SendError("", errors.InvalidArgument("failed to parse message"))
			continue
		}

		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.server.logger.Warnf("WebSocket write error: %v", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-c.server.ctx.Done():
			return
		}
	}
}

// handleMessage routes messages to appropriate handlers
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	c.server.logger.Debugf("Received message type: %s from %s", msg.Type, c.id)

	switch msg.Type {
	case network.MsgTypeAlign:
		c.handleAlign(msg, 0)

	case network.MsgTypeExpand:
		c.handleAlign(msg, 1)

	case network.MsgTypeContract:
		c.handleAlign(msg, -1)

	case network.MsgTypeState:
		c.handleState(msg)

	case network.MsgTypePing:
		c.SendMessage(&network.ServerMessage{
			Type:    network.MsgTypePong,
			ID:      msg.ID,
			Payload: map[string]interface{}{"timestamp": time.Now().Unix()},
		})

	default:
		c.SendError(msg.ID, errors.InvalidArgument("unknown message type %q", msg.Type))
	}
}

// handleAlign runs align (sign 0), expand (sign 1) or contract (sign -1)
func (c *Connection) handleAlign(msg *network.ClientMessage, sign float64) {
	var payload network.AlignPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.SendError(msg.ID, errors.Wrap(errors.ErrCodeInvalidArgument, err, "invalid %s payload", msg.Type))
			return
		}
	}
	if err := c.server.checkBatch(len(payload.Positions)); err != nil {
		c.SendError(msg.ID, err)
		return
	}

	points := lo.Map(payload.Positions, func(p network.Position, _ int) hex.Point { return p.Point() })
	res, st, err := c.server.session.Align(c.server.ctx, c.editor, payload.GridPayload, points, sign*payload.Amount)
	if err != nil {
		c.SendError(msg.ID, err)
		return
	}

	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeAligned,
		ID:   msg.ID,
		Payload: network.AlignedPayload{
			Positions: withHandles(payload.Positions, res.Positions),
			State:     network.NewGridStatus(st),
			Overlaps:  overlapsOf(payload.Positions, res.Cells),
		},
	})
}

// handleState reads, updates or resets the stored reference state
func (c *Connection) handleState(msg *network.ClientMessage) {
	var payload network.StatePayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.SendError(msg.ID, errors.Wrap(errors.ErrCodeInvalidArgument, err, "invalid state payload"))
			return
		}
	}

	st, err := c.server.session.UpdateState(c.server.ctx, c.editor, payload.GridPayload, payload.Reset)
	if err != nil {
		c.SendError(msg.ID, err)
		return
	}
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeStateOK,
		ID:      msg.ID,
		Payload: network.NewGridStatus(st),
	})
}

// SendMessage queues a message for the client
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.server.logger.Errorf("Failed to marshal message: %v", err)
		return
	}

	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.server.logger.Warnf("Send buffer full for %s, dropping message", c.id)
	}
}

// SendError sends an error message to the client
func (c *Connection) SendError(id string, err error) {
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeError,
		ID:   id,
		Payload: network.ErrorPayload{
			Code:    string(errors.GetCodeOr(err, errors.ErrCodeInternal)),
			Message: errors.UserMessage(err),
		},
	})
}

// Close closes the connection; safe to call more than once
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// overlapsOf reports cells shared by several positions. Positions without a
// handle are named by their index.
func overlapsOf(in []network.Position, cells []hex.Axial) []network.CellUsage {
	handles := lo.Map(in, func(p network.Position, i int) string {
		if p.Handle == "" {
			return strconv.Itoa(i)
		}
		return p.Handle
	})
	return lo.Map(cellmap.FromCells(cells, handles).Overlaps(), func(o cellmap.Overlap, _ int) network.CellUsage {
		return network.CellUsage{Q: o.Cell.Q, R: o.Cell.R, Handles: o.Handles}
	})
}

func withHandles(in []network.Position, aligned []hex.Point) []network.Position {
	out := make([]network.Position, len(aligned))
	for i, p := range aligned {
		out[i] = network.Position{Handle: in[i].Handle, X: p.X, Y: p.Y}
	}
	return out
}
