package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"

	"nhooyr.io/websocket"

	"github.com/JustinTDCT/GuessTheMovie/internal/auth"
	"github.com/JustinTDCT/GuessTheMovie/internal/game"
)

const (
	EventIdentityChanged = "identity:changed"
	EventGameState       = "game:state"

	sendBuffer = 64
)

// WSHub tracks connected websocket clients.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]bool
}

type WSClient struct {
	clientID string
	send     chan []byte
	done     chan struct{}
}

type WSMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type sessionState struct {
	sessionID string
	state     game.State
}

func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[*WSClient]bool)}
}

// push queues an event for c. Slow clients lose messages rather than block publishers.
func (c *WSClient) push(event string, data any) {
	msg, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		return
	}
	select {
	case <-c.done:
	case c.send <- msg:
	default:
	}
}

func (h *WSHub) addClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *WSHub) removeClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// stateQueue coalesces machine updates to the latest state per session. offer
// never blocks, so it is safe to call from a machine subscriber.
type stateQueue struct {
	mu      sync.Mutex
	pending map[string]game.State
	order   []string
	wake    chan struct{}
}

func newStateQueue() *stateQueue {
	return &stateQueue{
		pending: make(map[string]game.State),
		wake:    make(chan struct{}, 1),
	}
}

func (q *stateQueue) offer(sessionID string, st game.State) {
	q.mu.Lock()
	if _, ok := q.pending[sessionID]; !ok {
		q.order = append(q.order, sessionID)
	}
	q.pending[sessionID] = st
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// drain returns the pending states in first-offered order and empties the queue.
func (q *stateQueue) drain() []sessionState {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]sessionState, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, sessionState{sessionID: id, state: q.pending[id]})
	}
	q.pending = make(map[string]game.State)
	q.order = q.order[:0]
	return out
}

// handleWebSocket streams identity changes for client_id and state changes for
// every session named in ?session=. All subscriptions end with the connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = r.Header.Get(auth.ClientIDHeader)
	}

	var sessions []*game.Session
	for _, id := range r.URL.Query()["session"] {
		sess, err := s.sessions.Get(id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		sessions = append(sessions, sess)
	}

	opts := &websocket.AcceptOptions{OriginPatterns: s.origins}
	if slices.Contains(s.origins, "*") {
		opts = &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err)
		return
	}

	client := &WSClient{
		clientID: clientID,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
	states := newStateQueue()
	var unsubs []func()
	if clientID != "" {
		unsubs = append(unsubs, s.watcher.Subscribe(clientID, func(u *auth.User) {
			// client ids are chosen by the browser, so only the sign-in state is sent.
			client.push(EventIdentityChanged, map[string]bool{"signed_in": u != nil})
		}))
	}
	for _, sess := range sessions {
		id := sess.ID
		unsubs = append(unsubs, sess.Machine.Subscribe(func(st game.State) {
			states.offer(id, st)
		}))
	}

	s.wsHub.addClient(client)
	s.log.Debug("websocket client connected", "client", clientID, "sessions", len(sessions))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Rendering can hit the favorites store, so it happens here and never inside a machine callback.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-states.wake:
				for _, st := range states.drain() {
					client.push(EventGameState, s.renderState(ctx, st.sessionID, st.state))
				}
			}
		}
	}()
	for _, sess := range sessions {
		client.push(EventGameState, s.renderState(ctx, sess.ID, sess.Machine.State()))
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-client.send:
				if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	cancel()
	for _, unsub := range unsubs {
		unsub()
	}
	close(client.done)
	s.wsHub.removeClient(client)
	_ = conn.Close(websocket.StatusNormalClosure, "")
	s.log.Debug("websocket client disconnected", "client", clientID)
}
