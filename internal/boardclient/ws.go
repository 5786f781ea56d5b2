package boardclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/park285/cheese-hopboard/pkg/boarddto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type WebSocketState int

const (
	WSStateDisconnected WebSocketState = iota
	WSStateConnecting
	WSStateConnected
	WSStateReconnecting
	WSStateFailed
)

func (s WebSocketState) String() string {
	switch s {
	case WSStateConnecting:
		return "connecting"
	case WSStateConnected:
		return "connected"
	case WSStateReconnecting:
		return "reconnecting"
	case WSStateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

var ErrNotConnected = errors.New("websocket not connected")

type MessageCallback func(msg *boarddto.ServerMessage)

type StateCallback func(state WebSocketState)

type callbackEntry struct {
	id       int
	callback MessageCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// WebSocket is a client for the /ws stream. After a dropped connection it
// redials with exponential backoff up to maxReconnectAttempts times.
type WebSocket struct {
	wsURL  string
	origin string

	conn   *websocket.Conn
	connM  sync.Mutex
	state  WebSocketState
	stateM sync.RWMutex

	msgCbs   []callbackEntry
	stateCbs []stateCallbackEntry
	nextCbID int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewWebSocket(wsURL string, maxReconnectAttempts int) *WebSocket {
	return &WebSocket{
		wsURL:                wsURL,
		state:                WSStateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
	}
}

// SetOrigin sets the Origin header sent on the handshake.
func (ws *WebSocket) SetOrigin(origin string) { ws.origin = origin }

func (ws *WebSocket) State() WebSocketState {
	ws.stateM.RLock()
	defer ws.stateM.RUnlock()
	return ws.state
}

func (ws *WebSocket) Connect(ctx context.Context) error {
	if s := ws.State(); s == WSStateConnected || s == WSStateConnecting {
		return nil
	}
	if ws.rootCtx == nil {
		ws.rootCtx, ws.rootCancel = context.WithCancel(context.Background())
	}
	ws.setState(WSStateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := ws.dial(dialCtx)
	if err != nil {
		ws.setState(WSStateFailed)
		ws.scheduleReconnect()
		return err
	}
	ws.attach(conn)
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	opts := &websocket.DialOptions{CompressionMode: websocket.CompressionNoContextTakeover}
	if ws.origin != "" {
		opts.HTTPHeader = map[string][]string{"Origin": {ws.origin}}
	}
	conn, _, err := websocket.Dial(ctx, ws.wsURL, opts)
	return conn, err
}

func (ws *WebSocket) attach(conn *websocket.Conn) {
	ws.connM.Lock()
	ws.conn = conn
	ws.connM.Unlock()
	ws.setState(WSStateConnected)

	ws.wg.Add(2)
	go ws.listen(conn)
	go ws.pingLoop(conn)
}

// Send writes one client message on the current connection.
func (ws *WebSocket) Send(ctx context.Context, msg boarddto.ClientMessage) error {
	ws.connM.Lock()
	conn := ws.conn
	ws.connM.Unlock()
	if conn == nil || ws.State() != WSStateConnected {
		return ErrNotConnected
	}
	return wsjson.Write(ctx, conn, msg)
}

func (ws *WebSocket) listen(conn *websocket.Conn) {
	defer ws.wg.Done()
	for {
		var msg boarddto.ServerMessage
		if err := wsjson.Read(ws.rootCtx, conn, &msg); err != nil {
			if ws.isStopping() {
				return
			}
			ws.dropConn(conn, "reconnect")
			return
		}

		ws.cbM.RLock()
		callbacks := make([]callbackEntry, len(ws.msgCbs))
		copy(callbacks, ws.msgCbs)
		ws.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(&msg)
			}
		}
	}
}

func (ws *WebSocket) pingLoop(conn *websocket.Conn) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	consecutivePingFailures := 0
	for {
		select {
		case <-ws.stopCh:
			return
		case <-ws.rootCtx.Done():
			return
		case <-t.C:
			if !ws.isCurrent(conn) {
				return
			}
			ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				consecutivePingFailures = 0
				continue
			}
			consecutivePingFailures++
			if consecutivePingFailures >= 2 {
				if !ws.isStopping() {
					ws.dropConn(conn, "ping failure")
				}
				return
			}
		}
	}
}

func (ws *WebSocket) isCurrent(conn *websocket.Conn) bool {
	ws.connM.Lock()
	defer ws.connM.Unlock()
	return ws.conn == conn
}

// dropConn closes conn and starts reconnecting, once per connection.
func (ws *WebSocket) dropConn(conn *websocket.Conn, reason string) {
	ws.connM.Lock()
	if ws.conn != conn {
		ws.connM.Unlock()
		return
	}
	ws.conn = nil
	ws.connM.Unlock()
	_ = conn.Close(websocket.StatusGoingAway, reason)
	ws.setState(WSStateDisconnected)
	ws.scheduleReconnect()
}

func (ws *WebSocket) scheduleReconnect() {
	if ws.maxReconnectAttempts <= 0 || ws.isStopping() {
		return
	}
	ws.setState(WSStateReconnecting)

	go func() {
		for attempt := 1; attempt <= ws.maxReconnectAttempts; attempt++ {
			select {
			case <-ws.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}

			dialCtx, cancel := context.WithTimeout(ws.rootCtx, 10*time.Second)
			conn, err := ws.dial(dialCtx)
			cancel()
			if err != nil {
				continue
			}
			if ws.isStopping() {
				_ = conn.Close(websocket.StatusNormalClosure, "close")
				return
			}
			ws.attach(conn)
			return
		}
		ws.setState(WSStateFailed)
	}()
}

func (ws *WebSocket) OnMessage(cb MessageCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextCbID++
	ws.msgCbs = append(ws.msgCbs, callbackEntry{id: ws.nextCbID, callback: cb})
	return ws.nextCbID
}

func (ws *WebSocket) RemoveMessageCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.msgCbs {
		if cb.id == id {
			ws.msgCbs = append(ws.msgCbs[:i], ws.msgCbs[i+1:]...)
			break
		}
	}
}

func (ws *WebSocket) OnStateChange(cb StateCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextCbID++
	ws.stateCbs = append(ws.stateCbs, stateCallbackEntry{id: ws.nextCbID, callback: cb})
	return ws.nextCbID
}

func (ws *WebSocket) setState(state WebSocketState) {
	ws.stateM.Lock()
	ws.state = state
	ws.stateM.Unlock()

	ws.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(ws.stateCbs))
	copy(callbacks, ws.stateCbs)
	ws.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })
	ws.connM.Lock()
	conn := ws.conn
	ws.conn = nil
	ws.connM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	if ws.rootCancel != nil {
		ws.rootCancel()
	}

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		ws.setState(WSStateDisconnected)
		return nil
	}
}

func (ws *WebSocket) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}
