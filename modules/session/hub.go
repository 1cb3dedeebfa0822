package session

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	EventGenerationStarted   = "generation_started"
	EventGenerationCompleted = "generation_completed"
	EventGenerationFailed    = "generation_failed"
	EventParamsUpdated       = "params_updated"
	EventSessionClosed       = "session_closed"
	EventSnapshot            = "snapshot"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// Event - pushed to every subscriber of a session
type Event struct {
	Type       string    `json:"type"`
	SessionID  string    `json:"sessionId"`
	Kind       string    `json:"kind,omitempty"`
	Generation uint64    `json:"generation,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  string    `json:"errorKind,omitempty"`
	Snapshot   *Snapshot `json:"snapshot,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher - where the controller sends session events
type Publisher interface {
	Publish(event Event)
}

type client struct {
	id        string
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
}

// Hub - websocket fan-out of session events
type Hub struct {
	upgrader websocket.Upgrader
	sessions *Manager

	mutex   sync.RWMutex
	clients map[string]map[string]*client
}

func NewHub(sessions *Manager, checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		sessions: sessions,
		clients:  make(map[string]map[string]*client),
	}
}

// HandleWebSocket - GET /ws?session=<id>
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "missing session parameter", http.StatusBadRequest)
		return
	}
	s, err := h.sessions.Get(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("[Hub] websocket upgrade failed")
		return
	}

	c := newClient(sessionID, conn)
	// current state first so a late subscriber does not start blank
	snap := s.Snapshot()
	c.prime(Event{Type: EventSnapshot, SessionID: sessionID, Snapshot: &snap, At: time.Now()})

	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

func newClient(sessionID string, conn *websocket.Conn) *client {
	return &client{
		id:        uuid.NewString(),
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
	}
}

// prime - queues an event before c is registered; nothing else can close send yet
func (c *client) prime(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("[Hub] failed to encode event")
		return
	}
	c.send <- payload
}

// register - adds c, then backs out if its session was removed in the meantime
func (h *Hub) register(c *client) bool {
	h.add(c)
	if _, err := h.sessions.Get(c.sessionID); err != nil {
		h.remove(c)
		return false
	}
	return true
}

func (h *Hub) add(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.clients[c.sessionID] == nil {
		h.clients[c.sessionID] = make(map[string]*client)
	}
	h.clients[c.sessionID][c.id] = c
	log.Info().Str("session", c.sessionID).Int("subscribers", len(h.clients[c.sessionID])).Msg("[Hub] client connected")
}

func (h *Hub) remove(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	subs, ok := h.clients[c.sessionID]
	if !ok {
		return
	}
	if _, ok := subs[c.id]; !ok {
		return
	}
	delete(subs, c.id)
	close(c.send)
	if len(subs) == 0 {
		delete(h.clients, c.sessionID)
	}
}

// Publish - non-blocking; a subscriber with a full buffer is dropped
func (h *Hub) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("[Hub] failed to encode event")
		return
	}

	h.mutex.RLock()
	var slow []*client
	for _, c := range h.clients[event.SessionID] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mutex.RUnlock()

	for _, c := range slow {
		log.Warn().Str("session", c.sessionID).Msg("[Hub] dropping slow client")
		h.remove(c)
	}
}

// CloseSession - disconnects every subscriber of a removed session
func (h *Hub) CloseSession(sessionID string) {
	h.Publish(Event{Type: EventSessionClosed, SessionID: sessionID})

	h.mutex.Lock()
	subs := h.clients[sessionID]
	delete(h.clients, sessionID)
	for _, c := range subs {
		close(c.send)
	}
	h.mutex.Unlock()
}

// Subscribers - connected clients for a session
func (h *Hub) Subscribers(sessionID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[sessionID])
}

// readPump - clients only listen; reads keep the pong deadline moving
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("session", c.sessionID).Msg("[Hub] websocket error")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().Err(err).Str("session", c.sessionID).Msg("[Hub] websocket write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
