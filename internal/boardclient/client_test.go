package boardclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/cheese-hopboard/pkg/boarddto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClientRequests(t *testing.T) {
	var keyCalls, stateCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", func(w http.ResponseWriter, r *http.Request) {
		if stateCalls.Add(1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, boarddto.DomainError{Code: boarddto.CodeUnavailable, Retryable: true})
			return
		}
		writeJSON(w, http.StatusOK, boarddto.Snapshot{State: boarddto.State{SessionID: "s1"}, Phase: "idle"})
	})
	mux.HandleFunc("POST /input/key", func(w http.ResponseWriter, r *http.Request) {
		keyCalls.Add(1)
		switch r.URL.Query().Get("k") {
		case " ":
			writeJSON(w, http.StatusOK, boarddto.KeyResult{Action: "toggle", Applied: true, Running: true})
		case "busy":
			writeJSON(w, http.StatusServiceUnavailable, boarddto.DomainError{Code: boarddto.CodeUnavailable})
		default:
			writeJSON(w, http.StatusBadRequest, boarddto.DomainError{Code: boarddto.CodeUnknownKey, Message: "unknown key"})
		}
	})
	mux.HandleFunc("GET /pick", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Has("square") {
			writeJSON(w, http.StatusOK, boarddto.PickResult{Square: q.Get("square"), Hit: true})
			return
		}
		writeJSON(w, http.StatusOK, boarddto.PickResult{Square: q.Get("x") + "," + q.Get("y"), Hit: true})
	})
	mux.HandleFunc("GET /frame.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := NewClient(ts.URL+"/", WithTimeout(2*time.Second), WithRetry(2))
	ctx := context.Background()

	snap, err := c.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if snap.State.SessionID != "s1" || stateCalls.Load() != 2 {
		t.Fatalf("state = %+v after %d calls", snap, stateCalls.Load())
	}

	res, err := c.Key(ctx, " ")
	if err != nil || !res.Running {
		t.Fatalf("Key = %+v, %v", res, err)
	}

	_, err = c.Key(ctx, "q")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Domain == nil || apiErr.Domain.Code != boarddto.CodeUnknownKey {
		t.Fatalf("Key(q) err = %v", err)
	}

	before := keyCalls.Load()
	if _, err := c.Key(ctx, "busy"); err == nil {
		t.Fatalf("Key(busy) succeeded")
	}
	if got := keyCalls.Load() - before; got != 1 {
		t.Fatalf("key press retried: %d calls", got)
	}

	pick, err := c.Pick(ctx, 12.5, 40)
	if err != nil || pick.Square != "12.5,40" {
		t.Fatalf("Pick = %+v, %v", pick, err)
	}
	if pick, err := c.PickSquare(ctx, "e4"); err != nil || pick.Square != "e4" {
		t.Fatalf("PickSquare = %+v, %v", pick, err)
	}

	frame, err := c.Frame(ctx)
	if err != nil || string(frame) != "png-bytes" {
		t.Fatalf("Frame = %q, %v", frame, err)
	}
}

func TestBackoffDuration(t *testing.T) {
	for attempt, want := range map[int]time.Duration{
		0: 100 * time.Millisecond,
		1: 100 * time.Millisecond,
		3: 400 * time.Millisecond,
		9: 3200 * time.Millisecond,
	} {
		if got := backoffDuration(attempt); got != want {
			t.Fatalf("backoffDuration(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestWebSocketReconnects(t *testing.T) {
	var conns atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		n := conns.Add(1)
		snap := boarddto.Snapshot{State: boarddto.State{Moves: int(n)}}
		_ = wsjson.Write(r.Context(), c, boarddto.ServerMessage{Type: boarddto.MsgSnapshot, Snapshot: &snap})
		if n == 1 {
			_ = c.Close(websocket.StatusGoingAway, "restart")
			return
		}
		for {
			var m boarddto.ClientMessage
			if err := wsjson.Read(r.Context(), c, &m); err != nil {
				return
			}
			ev := boarddto.Event{Type: "echo", Reason: m.Key}
			_ = wsjson.Write(r.Context(), c, boarddto.ServerMessage{Type: boarddto.MsgEvent, Event: &ev})
		}
	}))
	defer ts.Close()

	ws := NewWebSocket("ws"+strings.TrimPrefix(ts.URL, "http"), 3)
	got := make(chan *boarddto.ServerMessage, 8)
	ws.OnMessage(func(m *boarddto.ServerMessage) { got <- m })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ws.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer ws.Close(context.Background())

	next := func() *boarddto.ServerMessage {
		t.Helper()
		select {
		case m := <-got:
			return m
		case <-ctx.Done():
			t.Fatalf("timed out waiting for a message")
			return nil
		}
	}
	if m := next(); m.Snapshot == nil || m.Snapshot.State.Moves != 1 {
		t.Fatalf("first greeting = %+v", m)
	}
	if m := next(); m.Snapshot == nil || m.Snapshot.State.Moves != 2 {
		t.Fatalf("greeting after reconnect = %+v", m)
	}

	deadline := time.Now().Add(2 * time.Second)
	for ws.State() != WSStateConnected && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if err := ws.Send(ctx, boarddto.ClientMessage{Type: boarddto.MsgKey, Key: "r"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m := next(); m.Event == nil || m.Event.Reason != "r" {
		t.Fatalf("echo = %+v", m)
	}
}

func TestSendWithoutConnection(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1/ws", 0)
	if err := ws.Send(context.Background(), boarddto.ClientMessage{Type: boarddto.MsgKey}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Send err = %v", err)
	}
	if ws.State().String() != "disconnected" {
		t.Fatalf("state = %s", ws.State())
	}
}
