package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gravitas-games/hexalign/internal/align"
	"github.com/gravitas-games/hexalign/internal/network"
	"github.com/gravitas-games/hexalign/internal/state"
	"github.com/gravitas-games/hexalign/pkg/hex"
	"github.com/gravitas-games/hexalign/pkg/models"
)

// Session tracks connected editors and their reference states
type Session struct {
	CreatedAt time.Time

	editors     map[string]*models.Editor // connectionID -> Editor
	connections map[string]*Connection    // connectionID -> Connection
	mu          sync.RWMutex

	// Serializes read-align-write on stored states
	stateMu  sync.Mutex
	store    state.Store
	defaults align.State

	logger *log.Logger
}

// SessionStatus is reported by the health endpoint
type SessionStatus struct {
	Editors int   `json:"editors"`
	Uptime  int64 `json:"uptime"` // seconds
}

// NewSession creates a session backed by store. defaults seed the state of
// editors that have none stored.
func NewSession(store state.Store, defaults align.State, logger *log.Logger) *Session {
	return &Session{
		CreatedAt:   time.Now(),
		editors:     make(map[string]*models.Editor),
		connections: make(map[string]*Connection),
		store:       store,
		defaults:    defaults,
		logger:      logger,
	}
}

// AddEditor registers a connection
func (s *Session) AddEditor(editor *models.Editor, conn *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.editors[conn.id] = editor
	s.connections[conn.id] = conn
	s.logger.Infof("Editor %s (%s) connected as %s", editor.Username, editor.ID, conn.id)
}

// RemoveEditor unregisters a connection
func (s *Session) RemoveEditor(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if editor, exists := s.editors[connectionID]; exists {
		s.logger.Infof("Editor %s (%s) disconnected from %s", editor.Username, editor.ID, connectionID)
		delete(s.editors, connectionID)
		delete(s.connections, connectionID)
	}
}

// Connections returns all open connections
func (s *Session) Connections() []*Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conns := make([]*Connection, 0, len(s.connections))
	for _, c := range s.connections {
		conns = append(conns, c)
	}
	return conns
}

// GetStatus returns the current session status
func (s *Session) GetStatus() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SessionStatus{
		Editors: len(s.editors),
		Uptime:  int64(time.Since(s.CreatedAt).Seconds()),
	}
}

// State returns the stored state of editor, or the defaults
func (s *Session) State(ctx context.Context, editor *models.Editor) (align.State, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.loadState(ctx, editor)
}

func (s *Session) loadState(ctx context.Context, editor *models.Editor) (align.State, error) {
	st, err := s.store.Get(ctx, editor.StateKey())
	if err != nil {
		return align.State{}, err
	}
	if st == nil {
		return s.defaults, nil
	}
	return *st, nil
}

// UpdateState applies grid overrides to the stored state, or resets it
func (s *Session) UpdateState(ctx context.Context, editor *models.Editor, grid network.GridPayload, reset bool) (align.State, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if reset {
		if err := s.store.Delete(ctx, editor.StateKey()); err != nil {
			return align.State{}, err
		}
	}
	st, err := s.loadState(ctx, editor)
	if err != nil {
		return align.State{}, err
	}
	st = grid.Apply(st)
	if err := st.Request(0).Validate(); err != nil {
		return align.State{}, err
	}
	if err := s.store.Set(ctx, editor.StateKey(), &st); err != nil {
		return align.State{}, err
	}
	return st, nil
}

// Align runs one pass for editor against its stored state, advancing and
// persisting the reference radius.
func (s *Session) Align(ctx context.Context, editor *models.Editor, grid network.GridPayload, positions []hex.Point, delta float64) (align.Result, align.State, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	st, err := s.loadState(ctx, editor)
	if err != nil {
		return align.Result{}, align.State{}, err
	}
	st = grid.Apply(st)

	res, err := align.AlignPositions(ctx, positions, st.Request(delta))
	if err != nil {
		return align.Result{}, align.State{}, err
	}

	st.Radius = res.Radius
	if err := s.store.Set(ctx, editor.StateKey(), &st); err != nil {
		return align.Result{}, align.State{}, err
	}
	return res, st, nil
}
