package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-hopboard/pkg/boarddto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	clientSendBuffer = 64
	pingInterval     = 15 * time.Second
	readLimit        = 4 << 10
)

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans session events out to websocket clients and applies their input.
type Hub struct {
	backend      Backend
	allowOrigins map[string]bool
	logger       *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub builds a hub. An empty allow list accepts any origin.
func NewHub(b Backend, allow []string, logger *zap.Logger) *Hub {
	m := map[string]bool{}
	for _, a := range allow {
		if a = strings.TrimSpace(a); a != "" {
			m[a] = true
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		backend:      b,
		allowOrigins: m,
		logger:       logger,
		clients:      map[*client]struct{}{},
	}
}

// Run broadcasts backend events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	events, cancel := h.backend.Subscribe(256)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			msg, err := json.Marshal(boarddto.ServerMessage{Type: boarddto.MsgEvent, Event: &ev})
			if err != nil {
				h.logger.Warn("event_marshal_failed", zap.Error(err))
				continue
			}
			h.broadcast(msg)
		}
	}
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) originAllowed(origin string) bool {
	return origin == "" || len(h.allowOrigins) == 0 || h.allowOrigins[origin]
}

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if !h.originAllowed(origin) {
		http.Error(w, "forbidden origin", http.StatusForbidden)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	c.SetReadLimit(readLimit)

	cl := &client{id: randID(), conn: c, send: make(chan []byte, clientSendBuffer)}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("ws_connected", zap.String("client", cl.id), zap.String("origin", origin))

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		h.mu.Lock()
		delete(h.clients, cl)
		h.mu.Unlock()
		h.logger.Info("ws_disconnected", zap.String("client", cl.id))
	}()

	// writer
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ping := time.NewTicker(pingInterval)
		defer func() { ping.Stop(); _ = c.Close(websocket.StatusNormalClosure, "bye") }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-cl.send:
				if err := c.Write(ctx, websocket.MessageText, msg); err != nil {
					return
				}
			case <-ping.C:
				_ = c.Ping(ctx)
			}
		}
	}()

	h.sendSnapshot(ctx, cl)

	// reader
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			break
		}
		var m boarddto.ClientMessage
		if err := json.Unmarshal(data, &m); err != nil {
			h.reply(cl, boarddto.ServerMessage{Type: boarddto.MsgError, Error: &boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: "malformed message"}})
			continue
		}
		h.handle(ctx, cl, m)
	}
	cancel()
	<-writerDone
}

func (h *Hub) handle(ctx context.Context, cl *client, m boarddto.ClientMessage) {
	switch m.Type {
	case boarddto.MsgKey:
		if _, err := h.backend.Key(ctx, m.Key); err != nil {
			h.replyError(cl, err)
			return
		}
		h.sendSnapshot(ctx, cl)
	case boarddto.MsgPointer:
		res, err := h.backend.Pointer(ctx, m.X, m.Y)
		if err != nil {
			h.replyError(cl, err)
			return
		}
		h.reply(cl, boarddto.ServerMessage{Type: boarddto.MsgHover, Pick: &res})
	case boarddto.MsgResize:
		if _, err := h.backend.Resize(ctx, m.Width, m.Height); err != nil {
			h.replyError(cl, err)
			return
		}
		h.sendSnapshot(ctx, cl)
	default:
		h.reply(cl, boarddto.ServerMessage{Type: boarddto.MsgError, Error: &boarddto.DomainError{Code: boarddto.CodeBadRequest, Message: "unknown message type " + m.Type}})
	}
}

func (h *Hub) sendSnapshot(ctx context.Context, cl *client) {
	snap, err := h.backend.Snapshot(ctx)
	if err != nil {
		h.replyError(cl, err)
		return
	}
	h.reply(cl, boarddto.ServerMessage{Type: boarddto.MsgSnapshot, Snapshot: &snap})
}

func (h *Hub) replyError(cl *client, err error) {
	_, de := domainError(err)
	h.reply(cl, boarddto.ServerMessage{Type: boarddto.MsgError, Error: &de})
}

func (h *Hub) reply(cl *client, msg boarddto.ServerMessage) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case cl.send <- raw:
	default:
		h.logger.Debug("ws_reply_dropped", zap.String("client", cl.id), zap.String("type", msg.Type))
	}
}

func randID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
