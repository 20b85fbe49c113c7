// Package ws carries commands and events between browser participants and
// the authority over WebSocket connections.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"kitchencoop/internal/app"
	"kitchencoop/internal/auth"
	"kitchencoop/internal/ports"
	"kitchencoop/internal/wire"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Verifier resolves a bearer token to a participant identity.
type Verifier interface {
	Verify(token string) (auth.Identity, error)
}

// Gatekeeper decides whether a participant may enter the session now.
type Gatekeeper interface {
	CanJoin(participantID string) error
}

// Config holds configuration for WebSocket connections.
type Config struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConfig returns the default WebSocket configuration.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// Manager owns one connection per participant and implements
// ports.BroadcastPort for the authority.
type Manager struct {
	sink     ports.CommandSink
	verifier Verifier
	gate     Gatekeeper
	upgrader websocket.Upgrader
	config   Config

	mu    sync.RWMutex
	conns map[string]*Connection
}

var _ ports.BroadcastPort = (*Manager)(nil)

// Connection is one participant's socket.
type Connection struct {
	ID            string
	ParticipantID string
	Name          string
	Conn          *websocket.Conn
	Send          chan []byte
	ConnectedAt   time.Time

	manager *Manager
}

// NewManager creates a manager that submits participant commands to sink.
func NewManager(sink ports.CommandSink, verifier Verifier, gate Gatekeeper, config Config) *Manager {
	return &Manager{
		sink:     sink,
		verifier: verifier,
		gate:     gate,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
		conns:  make(map[string]*Connection),
	}
}

func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// ServeHTTP authenticates the request, upgrades it and joins the participant.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := m.verifier.Verify(bearerToken(r))
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("rejected WebSocket token")
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if m.Connected(id.ParticipantID) {
		http.Error(w, "participant already connected", http.StatusConflict)
		return
	}
	if err := m.gate.CanJoin(id.ParticipantID); err != nil {
		log.Info().Err(err).Str("participant_id", id.ParticipantID).Msg("join refused")
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	c := &Connection{
		ID:            uuid.New().String(),
		ParticipantID: id.ParticipantID,
		Name:          id.Name,
		Conn:          conn,
		Send:          make(chan []byte, m.config.SendBuffer),
		ConnectedAt:   time.Now(),
		manager:       m,
	}
	if !m.register(c) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "participant already connected"))
		conn.Close()
		return
	}

	// Registered first so the joiner's snapshot has somewhere to go. The
	// pumps start only after the join is queued, so a leave never precedes it.
	join := app.Command{Kind: app.CommandJoin, Sender: c.ParticipantID, Payload: app.JoinPayload{Name: c.Name}}
	if err := m.sink.Submit(r.Context(), join); err != nil {
		log.Error().Err(err).Str("participant_id", c.ParticipantID).Msg("failed to submit join")
		m.discard(c)
		return
	}

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.ID).
		Str("participant_id", c.ParticipantID).
		Msg("WebSocket connection established")
}

// register adds c unless its participant already has a connection.
func (m *Manager) register(c *Connection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conns[c.ParticipantID]; ok {
		return false
	}
	m.conns[c.ParticipantID] = c
	return true
}

// unregister removes c and submits the participant's leave. It is safe to
// call more than once.
func (m *Manager) unregister(c *Connection) {
	m.mu.Lock()
	current, ok := m.conns[c.ParticipantID]
	removed := ok && current == c
	if removed {
		delete(m.conns, c.ParticipantID)
		close(c.Send)
	}
	m.mu.Unlock()

	if !removed {
		return
	}
	log.Info().
		Str("connection_id", c.ID).
		Str("participant_id", c.ParticipantID).
		Msg("connection unregistered")

	leave := app.Command{Kind: app.CommandLeave, Sender: c.ParticipantID}
	if err := m.sink.Submit(context.Background(), leave); err != nil {
		log.Error().Err(err).Str("participant_id", c.ParticipantID).Msg("failed to submit leave")
	}
}

// discard drops a connection whose join never reached the authority, so
// no leave is submitted for it.
func (m *Manager) discard(c *Connection) {
	m.mu.Lock()
	if current, ok := m.conns[c.ParticipantID]; ok && current == c {
		delete(m.conns, c.ParticipantID)
		close(c.Send)
	}
	m.mu.Unlock()
	c.Conn.Close()
}

// Connected reports whether participantID has an open socket.
func (m *Manager) Connected(participantID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.conns[participantID]
	return ok
}

// Count returns the number of open sockets.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// Broadcast queues ev for every connection, or only its recipients. A
// connection whose buffer is full is closed.
func (m *Manager) Broadcast(ctx context.Context, ev app.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame, err := wire.EventFrame(ev)
	if err != nil {
		return err
	}
	frame.Recipients = nil
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	m.mu.RLock()
	var targets []*Connection
	if len(ev.Recipients) > 0 {
		for _, id := range ev.Recipients {
			if c, ok := m.conns[id]; ok {
				targets = append(targets, c)
			}
		}
	} else {
		for _, c := range m.conns {
			targets = append(targets, c)
		}
	}
	var slow []*Connection
	for _, c := range targets {
		select {
		case c.Send <- data:
		default:
			slow = append(slow, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range slow {
		log.Warn().
			Str("connection_id", c.ID).
			Str("participant_id", c.ParticipantID).
			Msg("connection send buffer full, closing connection")
		m.unregister(c)
		c.Conn.Close()
	}
	return nil
}

// Close drops every connection.
func (m *Manager) Close() {
	m.mu.RLock()
	conns := make([]*Connection, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.RUnlock()
	for _, c := range conns {
		m.unregister(c)
		c.Conn.Close()
	}
}

// writePump handles sending messages to the WebSocket connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump turns client frames into commands until the socket closes.
func (c *Connection) readPump() {
	defer func() {
		c.manager.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			return
		}
		if err := c.handleClientMessage(message); err != nil {
			log.Warn().
				Err(err).
				Str("participant_id", c.ParticipantID).
				Msg("dropping client message")
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}

var errPresenceCommand = errors.New("join and leave follow the socket")

func (c *Connection) handleClientMessage(message []byte) error {
	var frame wire.Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		return err
	}
	frame.Sender = c.ParticipantID
	cmd, err := frame.Command()
	if err != nil {
		return err
	}
	if cmd.Kind == app.CommandJoin || cmd.Kind == app.CommandLeave {
		return errPresenceCommand
	}
	return c.manager.sink.Submit(context.Background(), cmd)
}
