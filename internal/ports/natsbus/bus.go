// Package natsbus relays a session's commands and events over NATS so
// participants can run in processes other than the authority's.
package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"kitchencoop/internal/app"
	"kitchencoop/internal/ports"
	"kitchencoop/internal/wire"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Config holds configuration for the NATS relay.
type Config struct {
	URL           string
	Prefix        string // e.g. "kitchen"
	Session       string
	MaxReconnects int
	ReconnectWait time.Duration

	// HeartbeatInterval is how often a client announces itself on the
	// presence subject. The relay submits a leave for a participant it has
	// not heard from for PresenceTimeout.
	HeartbeatInterval time.Duration
	PresenceTimeout   time.Duration
}

// DefaultConfig returns the default relay configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Prefix:        "kitchen",
		Session:       "default",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,

		HeartbeatInterval: 2 * time.Second,
		PresenceTimeout:   6 * time.Second,
	}
}

// Connect dials NATS with reconnect handling.
func Connect(cfg Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("kitchen-" + cfg.Session),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Subjects names the subjects of one session.
type Subjects struct {
	Prefix  string
	Session string
}

func (s Subjects) base() string {
	return s.Prefix + "." + s.Session
}

// Commands is where participants publish intents.
func (s Subjects) Commands() string {
	return s.base() + ".commands"
}

// Presence carries client heartbeats; membership on the bus comes only from here.
func (s Subjects) Presence() string {
	return s.base() + ".presence"
}

// Events carries events for every participant.
func (s Subjects) Events() string {
	return s.base() + ".events.all"
}

// EventsFor carries events addressed to one participant.
func (s Subjects) EventsFor(participantID string) string {
	return s.base() + ".events.p." + participantID
}

// AllEvents matches every event subject of the session.
func (s Subjects) AllEvents() string {
	return s.base() + ".events.>"
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// Heartbeat is a client's presence announcement. Leaving marks an orderly
// departure.
type Heartbeat struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name,omitempty"`
	Leaving       bool   `json:"leaving,omitempty"`
}

var (
	ErrMembershipFrame = errors.New("natsbus: join and leave travel on the presence subject")
	ErrNotPresent      = errors.New("natsbus: sender is not present on the bus")
)

// Relay is the authority's end of the bus. It turns heartbeats into joins
// and leaves and accepts commands only from participants it has heard from.
type Relay struct {
	pub      publisher
	nc       *nats.Conn
	subjects Subjects
	clock    clockwork.Clock
	timeout  time.Duration
	interval time.Duration

	sink ports.CommandSink
	subs []*nats.Subscription

	mu   sync.Mutex
	seen map[string]time.Time
}

var _ ports.BroadcastPort = (*Relay)(nil)

// NewRelay builds a relay on nc.
func NewRelay(nc *nats.Conn, cfg Config, clock clockwork.Clock) *Relay {
	r := newRelay(nc, cfg, clock)
	r.nc = nc
	return r
}

func newRelay(pub publisher, cfg Config, clock clockwork.Clock) *Relay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Relay{
		pub:      pub,
		subjects: Subjects{Prefix: cfg.Prefix, Session: cfg.Session},
		clock:    clock,
		timeout:  cfg.PresenceTimeout,
		interval: cfg.HeartbeatInterval,
		seen:     make(map[string]time.Time),
	}
}

// Broadcast publishes ev on the shared subject, or once per recipient.
func (r *Relay) Broadcast(ctx context.Context, ev app.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame, err := wire.EventFrame(ev)
	if err != nil {
		return err
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if len(ev.Recipients) == 0 {
		return r.pub.Publish(r.subjects.Events(), data)
	}
	for _, id := range ev.Recipients {
		if err := r.pub.Publish(r.subjects.EventsFor(id), data); err != nil {
			return fmt.Errorf("publish to %s: %w", id, err)
		}
	}
	return nil
}

// Serve forwards presence and commands published on the bus to sink. The
// bus is a trusted network: a frame's sender is believed once that
// participant is present, but joins and leaves come only from heartbeats
// and their expiry.
func (r *Relay) Serve(sink ports.CommandSink) error {
	r.sink = sink
	handlers := []struct {
		subject string
		handle  func(*nats.Msg) error
	}{
		{subject: r.subjects.Presence(), handle: r.handlePresence},
		{subject: r.subjects.Commands(), handle: r.handleCommand},
	}
	for _, h := range handlers {
		handle := h.handle
		sub, err := r.nc.Subscribe(h.subject, func(msg *nats.Msg) {
			if err := handle(msg); err != nil {
				log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping bus message")
			}
		})
		if err != nil {
			r.Close()
			return fmt.Errorf("subscribe %s: %w", h.subject, err)
		}
		r.subs = append(r.subs, sub)
	}
	log.Info().Str("subject", r.subjects.Commands()).Dur("presence_timeout", r.timeout).Msg("relay serving commands")
	return nil
}

// Run expires silent participants until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			r.expire()
		}
	}
}

// Close drains the relay's subscriptions.
func (r *Relay) Close() error {
	var errs []error
	for _, sub := range r.subs {
		errs = append(errs, sub.Drain())
	}
	r.subs = nil
	return errors.Join(errs...)
}

func (r *Relay) handlePresence(msg *nats.Msg) error {
	var hb Heartbeat
	if err := json.Unmarshal(msg.Data, &hb); err != nil {
		return fmt.Errorf("unmarshal heartbeat: %w", err)
	}
	if hb.ParticipantID == "" {
		return errors.New("heartbeat has no participant")
	}

	// Submitting under mu keeps a participant's join ahead of its commands.
	r.mu.Lock()
	defer r.mu.Unlock()
	_, present := r.seen[hb.ParticipantID]
	if hb.Leaving {
		if !present {
			return nil
		}
		delete(r.seen, hb.ParticipantID)
		return r.sink.Submit(context.Background(), app.Command{Kind: app.CommandLeave, Sender: hb.ParticipantID})
	}
	r.seen[hb.ParticipantID] = r.clock.Now()
	if present {
		return nil
	}
	log.Info().Str("participant_id", hb.ParticipantID).Msg("participant present on bus")
	return r.sink.Submit(context.Background(), app.Command{
		Kind:    app.CommandJoin,
		Sender:  hb.ParticipantID,
		Payload: app.JoinPayload{Name: hb.Name},
	})
}

func (r *Relay) handleCommand(msg *nats.Msg) error {
	var frame wire.Frame
	if err := json.Unmarshal(msg.Data, &frame); err != nil {
		return fmt.Errorf("unmarshal frame: %w", err)
	}
	if frame.Sender == "" {
		return fmt.Errorf("frame op %d has no sender", frame.Op)
	}
	if frame.Op == wire.OpJoin || frame.Op == wire.OpLeave {
		return fmt.Errorf("frame op %d from %s: %w", frame.Op, frame.Sender, ErrMembershipFrame)
	}
	cmd, err := frame.Command()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[cmd.Sender]; !ok {
		return fmt.Errorf("%s: %w", cmd.Sender, ErrNotPresent)
	}
	return r.sink.Submit(context.Background(), cmd)
}

// expire submits a leave for every participant silent past the timeout.
func (r *Relay) expire() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	for id, last := range r.seen {
		if now.Sub(last) <= r.timeout {
			continue
		}
		delete(r.seen, id)
		log.Warn().Str("participant_id", id).Time("last_seen", last).Msg("participant heartbeat expired")
		if err := r.sink.Submit(context.Background(), app.Command{Kind: app.CommandLeave, Sender: id}); err != nil {
			log.Error().Err(err).Str("participant_id", id).Msg("failed to submit leave")
		}
	}
}

// Client is one remote participant's end of the bus.
type Client struct {
	pub           publisher
	nc            *nats.Conn
	subjects      Subjects
	participantID string
	name          string
	clock         clockwork.Clock
	interval      time.Duration
	sink          ports.EventSink
	sub           *nats.Subscription
}

var _ ports.InvokerPort = (*Client)(nil)

// NewClient subscribes participantID to the session's events. A single
// wildcard subscription keeps shared and private events in publish order.
// The participant joins once Run sends its first heartbeat.
func NewClient(nc *nats.Conn, cfg Config, participantID, name string, sink ports.EventSink) (*Client, error) {
	c := &Client{
		pub:           nc,
		nc:            nc,
		subjects:      Subjects{Prefix: cfg.Prefix, Session: cfg.Session},
		participantID: participantID,
		name:          name,
		clock:         clockwork.NewRealClock(),
		interval:      cfg.HeartbeatInterval,
		sink:          sink,
	}
	sub, err := nc.Subscribe(c.subjects.AllEvents(), func(msg *nats.Msg) {
		if err := c.handleEvent(msg); err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping bus event")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", c.subjects.AllEvents(), err)
	}
	c.sub = sub
	return c, nil
}

// Run heartbeats until ctx is done, then announces the departure.
func (c *Client) Run(ctx context.Context) error {
	if err := c.announce(false); err != nil {
		return err
	}
	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := c.announce(true); err != nil {
				log.Warn().Err(err).Str("participant_id", c.participantID).Msg("failed to announce leave")
			}
			return ctx.Err()
		case <-ticker.Chan():
			if err := c.announce(false); err != nil {
				log.Warn().Err(err).Str("participant_id", c.participantID).Msg("heartbeat failed")
			}
		}
	}
}

func (c *Client) announce(leaving bool) error {
	data, err := json.Marshal(Heartbeat{ParticipantID: c.participantID, Name: c.name, Leaving: leaving})
	if err != nil {
		return err
	}
	return c.pub.Publish(c.subjects.Presence(), data)
}

func (c *Client) handleEvent(msg *nats.Msg) error {
	if msg.Subject != c.subjects.Events() && msg.Subject != c.subjects.EventsFor(c.participantID) {
		return nil
	}
	var frame wire.Frame
	if err := json.Unmarshal(msg.Data, &frame); err != nil {
		return fmt.Errorf("unmarshal frame: %w", err)
	}
	ev, err := frame.Event()
	if err != nil {
		return err
	}
	c.sink.Deliver(ev)
	return nil
}

// InvokeOnAuthority publishes cmd stamped with this client's participant.
func (c *Client) InvokeOnAuthority(ctx context.Context, cmd app.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.nc != nil && c.nc.IsClosed() {
		return ports.ErrDisconnected
	}
	if cmd.Kind == app.CommandJoin || cmd.Kind == app.CommandLeave {
		return ErrMembershipFrame
	}
	cmd.Sender = c.participantID
	frame, err := wire.CommandFrame(cmd)
	if err != nil {
		return err
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return c.pub.Publish(c.subjects.Commands(), data)
}

// Close stops receiving events.
func (c *Client) Close() error {
	if c.sub == nil {
		return nil
	}
	return c.sub.Unsubscribe()
}
