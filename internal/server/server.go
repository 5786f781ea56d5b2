// Package server exposes a running board over HTTP and a websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-hopboard/internal/app"
	"github.com/park285/cheese-hopboard/internal/board"
	"github.com/park285/cheese-hopboard/internal/input"
	"github.com/park285/cheese-hopboard/internal/pieces"
	"github.com/park285/cheese-hopboard/internal/session"
	"github.com/park285/cheese-hopboard/internal/view"
	"github.com/park285/cheese-hopboard/pkg/boarddto"
	"go.uber.org/zap"
)

// Backend is what the server drives; *app.Runtime implements it.
type Backend interface {
	FramePNG(ctx context.Context) ([]byte, error)
	Snapshot(ctx context.Context) (boarddto.Snapshot, error)
	Key(ctx context.Context, key string) (boarddto.KeyResult, error)
	Pointer(ctx context.Context, x, y float64) (boarddto.PickResult, error)
	PointSquare(ctx context.Context, name string) (boarddto.PickResult, error)
	Resize(ctx context.Context, w, h int) (boarddto.ResizeResult, error)
	Subscribe(buffer int) (<-chan boarddto.Event, func())
	SessionID(ctx context.Context) (string, error)
	Frames() int64
}

type Server struct {
	backend Backend
	hub     *Hub
	allow   []string
	logger  *zap.Logger
	mux     *http.ServeMux
}

func New(b Backend, allow []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		backend: b,
		hub:     NewHub(b, allow, logger.Named("ws")),
		allow:   allow,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /frame.png", s.handleFrame)
	s.mux.HandleFunc("GET /state", s.handleState)
	s.mux.HandleFunc("POST /input/key", s.handleKey)
	s.mux.HandleFunc("GET /pick", s.handlePick)
	s.mux.HandleFunc("POST /resize", s.handleResize)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ws", s.hub.ServeWS)
	return s
}

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Handler() http.Handler { return cors(s.allow, s.mux) }

// Run serves addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("http_listen", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	b, err := s.backend.FramePNG(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.backend.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("k")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: "missing k"})
		return
	}
	res, err := s.backend.Key(r.Context(), key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePick(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("square") {
		res, err := s.backend.PointSquare(r.Context(), q.Get("square"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if errX != nil || errY != nil {
		writeJSON(w, http.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: "x and y must be numbers"})
		return
	}
	res, err := s.backend.Pointer(r.Context(), x, y)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, errW := strconv.Atoi(q.Get("w"))
	height, errH := strconv.Atoi(q.Get("h"))
	if errW != nil || errH != nil {
		writeJSON(w, http.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: "w and h must be integers"})
		return
	}
	res, err := s.backend.Resize(r.Context(), width, height)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	id, err := s.backend.SessionID(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, boarddto.Health{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, boarddto.Health{Status: "ok", SessionID: id, Frames: s.backend.Frames()})
}

// domainError maps an error to its wire form and HTTP status.
func domainError(err error) (int, boarddto.DomainError) {
	switch {
	case errors.Is(err, input.ErrUnknownKey):
		return http.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeUnknownKey, Message: err.Error()}
	case errors.Is(err, board.ErrBadSquareName):
		return http.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: err.Error()}
	case errors.Is(err, view.ErrBadSize):
		return http.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeBadSize, Message: err.Error()}
	case errors.Is(err, session.ErrMoveInFlight):
		return http.StatusConflict, boarddto.DomainError{Code: boarddto.CodeMoveInFlight, Message: err.Error(), Retryable: true}
	case errors.Is(err, pieces.ErrInconsistentPlacement):
		return http.StatusConflict, boarddto.DomainError{Code: boarddto.CodeInconsistent, Message: err.Error()}
	case errors.Is(err, app.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, boarddto.DomainError{Code: boarddto.CodeUnavailable, Message: err.Error(), Retryable: true}
	default:
		return http.StatusInternalServerError, boarddto.DomainError{Code: boarddto.CodeInternal, Message: "internal error"}
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, de := domainError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request_failed", zap.Error(err))
	}
	writeJSON(w, status, de)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func cors(allow []string, next http.Handler) http.Handler {
	allowSet := map[string]struct{}{}
	for _, a := range allow {
		if a = strings.TrimSpace(a); a != "" {
			allowSet[a] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if _, ok := allowSet[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
