package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/klassik/game/engine"
	"github.com/wricardo/klassik/game/service"
	"github.com/wricardo/klassik/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Outgoing event names
const (
	EventSnapshot  = "snapshot"
	EventLog       = "log"
	EventCue       = "cue"
	EventKeyResult = "key_result"
	EventError     = "error"

	// EventSessionClosed tells viewers the session was deleted
	EventSessionClosed = "session_closed"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameService is the part of the game service the hub drives
type GameService interface {
	PressKey(ctx context.Context, sessionID, key string) (*service.KeyResponse, error)
	GetView(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	Subscribe(ctx context.Context, sessionID string, fn engine.Observer) (func(), error)
}

// Message is sent to clients
type Message struct {
	SessionID string           `json:"session_id"`
	Event     string           `json:"event"`
	Snapshot  *engine.Snapshot `json:"snapshot,omitempty"`
	Data      interface{}      `json:"data,omitempty"`
}

// KeyMessage is sent by clients
type KeyMessage struct {
	Key string `json:"key"`
}

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// envelope routes an encoded message to a session, or to one client of it
type envelope struct {
	sessionID string
	client    *Client
	data      []byte
}

type countRequest struct {
	sessionID string
	reply     chan int
}

// Hub maintains the set of active clients and pushes game events to them
type Hub struct {
	service GameService

	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	// Engine subscriptions, one per session with clients
	subscriptions map[string]func()

	broadcast  chan *envelope
	register   chan *Client
	unregister chan *Client
	counts     chan countRequest
	done       chan struct{}

	logger *logrus.Entry
}

// NewHub creates a new WebSocket hub
func NewHub(svc GameService) *Hub {
	return &Hub{
		service:       svc,
		sessions:      make(map[string]map[*Client]bool),
		subscriptions: make(map[string]func()),
		broadcast:     make(chan *envelope),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		counts:        make(chan countRequest),
		done:          make(chan struct{}),
		logger:        logger.Component("websocket"),
	}
}

// Run starts the hub's event loop and blocks until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for sessionID, clients := range h.sessions {
			for client := range clients {
				h.unregisterClient(client)
			}
			delete(h.sessions, sessionID)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case env := <-h.broadcast:
			h.deliver(env)

		case req := <-h.counts:
			req.reply <- len(h.sessions[req.sessionID])
		}
	}
}

// ServeWS upgrades the request and attaches the client to a session
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	if _, err := h.service.GetView(r.Context(), sessionID); err != nil {
		status := http.StatusInternalServerError
		if service.IsNotFound(err) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastEvent sends a custom event to all clients in a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.publish(&Message{SessionID: sessionID, Event: event, Data: data}, nil)
}

func (h *Hub) publish(message *Message, client *Client) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}
	select {
	case h.broadcast <- &envelope{sessionID: message.SessionID, client: client, data: data}:
	case <-h.done:
	}
}

// forward turns engine events into client messages
func (h *Hub) forward(sessionID string) engine.Observer {
	return func(ev engine.Event) {
		msg := &Message{SessionID: sessionID, Event: string(ev.Type)}
		switch ev.Type {
		case engine.EventSnapshot:
			msg.Event = EventSnapshot
			msg.Snapshot = ev.Snapshot
		case engine.EventLog:
			msg.Event = EventLog
			msg.Data = ev.Line
		case engine.EventCue:
			msg.Event = EventCue
			msg.Data = ev.Cue
		}
		h.publish(msg, nil)
	}
}

// registerClient adds a client to a session and subscribes to the
// session's game when it is the first one
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		unsubscribe, err := h.service.Subscribe(context.Background(), client.sessionID, h.forward(client.sessionID))
		if err != nil {
			h.logger.WithError(err).WithField("session_id", client.sessionID).Warn("Failed to subscribe to session")
			close(client.send)
			return
		}
		h.subscriptions[client.sessionID] = unsubscribe
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	if snap, err := h.service.GetView(context.Background(), client.sessionID); err == nil {
		if data, err := json.Marshal(&Message{SessionID: client.sessionID, Event: EventSnapshot, Snapshot: snap}); err == nil {
			h.sendTo(client, data)
		}
	}

	h.logger.WithFields(logrus.Fields{
		"session_id": client.sessionID,
		"clients":    len(h.sessions[client.sessionID]),
	}).Info("Client registered")
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)

	// Clean up empty sessions
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
		if unsubscribe, ok := h.subscriptions[client.sessionID]; ok {
			unsubscribe()
			delete(h.subscriptions, client.sessionID)
		}
	}

	h.logger.WithFields(logrus.Fields{
		"session_id": client.sessionID,
		"clients":    len(clients),
	}).Info("Client unregistered")
}

// deliver sends a message to its session or single client
func (h *Hub) deliver(env *envelope) {
	clients, ok := h.sessions[env.sessionID]
	if !ok {
		return
	}
	if env.client != nil {
		if clients[env.client] {
			h.sendTo(env.client, env.data)
		}
		return
	}
	for client := range clients {
		h.sendTo(client, env.data)
	}
}

func (h *Hub) sendTo(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		// Client's send channel is full, close it
		h.unregisterClient(client)
	}
}

// ClientCount returns the number of clients attached to a session
func (h *Hub) ClientCount(sessionID string) int {
	req := countRequest{sessionID: sessionID, reply: make(chan int, 1)}
	select {
	case h.counts <- req:
		return <-req.reply
	case <-h.done:
		return 0
	}
}

// handleKey feeds a key from a client to the game
func (c *Client) handleKey(raw []byte) {
	var msg KeyMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Key == "" {
		c.hub.publish(&Message{SessionID: c.sessionID, Event: EventError, Data: "expected {\"key\": \"...\"}"}, c)
		return
	}

	resp, err := c.hub.service.PressKey(context.Background(), c.sessionID, msg.Key)
	if err != nil {
		c.hub.publish(&Message{SessionID: c.sessionID, Event: EventError, Data: err.Error()}, c)
		return
	}
	c.hub.publish(&Message{SessionID: c.sessionID, Event: EventKeyResult, Data: resp.Result}, c)
}

// readPump reads key presses from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Warn("WebSocket error")
			}
			break
		}
		c.handleKey(message)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
