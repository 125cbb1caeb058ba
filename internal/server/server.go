package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/gravitas-games/hexalign/internal/align"
	"github.com/gravitas-games/hexalign/internal/config"
	"github.com/gravitas-games/hexalign/internal/network"
	"github.com/gravitas-games/hexalign/internal/state"
	"github.com/gravitas-games/hexalign/pkg/errors"
	"github.com/gravitas-games/hexalign/pkg/hex"
	"github.com/gravitas-games/hexalign/pkg/models"
)

// Server is the align service
type Server struct {
	config       *config.Config
	session      *Session
	upgrader     websocket.Upgrader
	httpSrv      *http.Server
	router       chi.Router
	jwtValidator *JWTValidator
	defaults     align.State
	ownedRedis   *redis.Client
	logger       *log.Logger

	// Shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// Options carries optional collaborators for New
type Options struct {
	// Redis is used for the token blacklist. When nil and the store is a
	// RedisStore, its client is shared.
	Redis *redis.Client
	// Validator overrides the validator built from cfg.Auth.
	Validator *JWTValidator
}

// New creates a new server instance
func New(cfg *config.Config, store state.Store, logger *log.Logger, opts Options) (*Server, error) {
	logger.Debug("Initializing align service")

	defaults, err := cfg.Grid.State()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	srv := &Server{
		config:       cfg,
		session:      NewSession(store, defaults, logger),
		jwtValidator: opts.Validator,
		defaults:     defaults,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Editor plugins connect from localhost tooling, not browsers.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	if srv.jwtValidator == nil && cfg.Auth.PublicKeyURL != "" {
		redisClient := opts.Redis
		if rs, ok := store.(*state.RedisStore); ok && redisClient == nil {
			redisClient = rs.Client()
		}
		if redisClient == nil && cfg.Redis.Address != "" {
			redisClient = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Address,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			srv.ownedRedis = redisClient
			logger.Info("Token blacklist enabled", "redis", cfg.Redis.Address)
		}
		validator, err := NewJWTValidator(cfg, redisClient, logger)
		if err != nil {
			cancel()
			if srv.ownedRedis != nil {
				srv.ownedRedis.Close()
			}
			return nil, err
		}
		srv.jwtValidator = validator
		go validator.RunKeyRefresh(ctx)
	}
	if srv.jwtValidator == nil {
		logger.Warn("Authentication disabled, all clients act as the local editor")
	}

	srv.router = srv.routes()
	return srv, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/align", s.handleAlign)
		r.Post("/snap", s.handleSnap)
	})
	return r
}

// Handler returns the HTTP handler of the service
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for connections
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.config.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("WebSocket endpoint: ws://%s/ws", addr)
	s.logger.Infof("HTTP endpoints: http://%s/api/align, http://%s/api/snap", addr, addr)

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down align service")

	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var shutdownErr error
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Errorf("HTTP server shutdown error: %v", err)
			shutdownErr = err
		}
	}

	for _, conn := range s.session.Connections() {
		conn.Close()
	}

	if s.ownedRedis != nil {
		s.ownedRedis.Close()
	}

	return shutdownErr
}

// identify resolves the editor behind a request
func (s *Server) identify(r *http.Request) (*models.Editor, error) {
	if s.jwtValidator == nil {
		return models.Anonymous(), nil
	}
	tokenString := extractToken(r)
	if tokenString == "" {
		return nil, errors.New(errors.ErrCodeUnauthorized, "missing authentication token")
	}
	return s.jwtValidator.ValidateToken(r.Context(), tokenString)
}

type editorKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		editor, err := s.identify(r)
		if err != nil {
			s.logger.Infof("Rejected request from %s: %v", r.RemoteAddr, err)
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), editorKey{}, editor)))
	})
}

func (s *Server) checkBatch(n int) error {
	if limit := s.config.Server.MaxBatch; n > limit {
		return errors.InvalidArgument("batch of %d positions exceeds limit %d", n, limit)
	}
	return nil
}

// handleWebSocket handles WebSocket connection requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	editor, err := s.identify(r)
	if err != nil {
		s.logger.Infof("Rejected WebSocket from %s: %v", r.RemoteAddr, err)
		writeError(w, err)
		return
	}

	var header http.Header
	if r.Header.Get("Sec-WebSocket-Protocol") != "" {
		header = http.Header{"Sec-WebSocket-Protocol": []string{"access_token"}}
	}
	ws, err := s.upgrader.Upgrade(w, r, header)
	if err != nil {
		s.logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	editor.ConnectedAt = time.Now()
	editor.LastSeen = editor.ConnectedAt
	editor.ConnectionID = uuid.NewString()
	conn := NewConnection(editor.ConnectionID, ws, s, editor)

	s.session.AddEditor(editor, conn)

	if st, err := s.session.State(s.ctx, editor); err != nil {
		conn.SendError("", err)
	} else {
		conn.SendMessage(&network.ServerMessage{
			Type: network.MsgTypeWelcome,
			Payload: network.WelcomePayload{
				EditorID:     editor.ID,
				Username:     editor.Username,
				ConnectionID: conn.id,
				State:        network.NewGridStatus(st),
			},
		})
	}

	conn.Handle()

	s.session.RemoveEditor(conn.id)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"session": s.session.GetStatus(),
	})
}

// handleAlign runs a stateless batch alignment
func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	var req network.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidArgument, err, "invalid request body"))
		return
	}
	if err := s.checkBatch(len(req.Positions)); err != nil {
		writeError(w, err)
		return
	}

	st := req.Apply(s.defaults)
	points := lo.Map(req.Positions, func(p network.Position, _ int) hex.Point { return p.Point() })
	res, err := align.AlignPositions(r.Context(), points, st.Request(req.Delta))
	if err != nil {
		writeError(w, err)
		return
	}
	st.Radius = res.Radius

	if editor, ok := r.Context().Value(editorKey{}).(*models.Editor); ok {
		s.logger.Debugf("Aligned %d positions for %s, radius now %v", len(res.Positions), editor.Username, res.Radius)
	}

	writeJSON(w, http.StatusOK, network.AlignedPayload{
		Positions: withHandles(req.Positions, res.Positions),
		State:     network.NewGridStatus(st),
		Overlaps:  overlapsOf(req.Positions, res.Cells),
	})
}

// handleSnap snaps a single point
func (s *Server) handleSnap(w http.ResponseWriter, r *http.Request) {
	var req network.SnapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidArgument, err, "invalid request body"))
		return
	}

	st := req.Apply(s.defaults)
	if !st.Unit.IsValid() {
		writeError(w, errors.InvalidArgument("unknown radius unit %d", int(st.Unit)))
		return
	}
	outer := hex.ToOuter(st.Unit, st.Radius)
	target := outer
	if req.TargetRadius != nil {
		target = hex.ToOuter(st.Unit, *req.TargetRadius)
	}

	p := hex.Point{X: req.X, Y: req.Y}
	cell, err := hex.SnapCell(p, st.Orientation, outer)
	if err != nil {
		writeError(w, err)
		return
	}
	center := hex.AxialToPixel(cell, st.Orientation, target)

	writeJSON(w, http.StatusOK, network.SnapResponse{
		X: center.X,
		Y: center.Y,
		Q: cell.Q,
		R: cell.R,
		S: cell.S(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCodeOr(err, errors.ErrCodeInternal)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeInvalidArgument:
		status = http.StatusBadRequest
	case errors.ErrCodeUnauthorized:
		status = http.StatusUnauthorized
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	}
	writeJSON(w, status, network.ErrorPayload{Code: string(code), Message: errors.UserMessage(err)})
}
