// Package mirror keeps a participant's read-only replica of the authority's
// game and turns local input into commands for the authority.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kitchencoop/internal/app"
	"kitchencoop/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Invoker delivers a command to the authority.
type Invoker interface {
	InvokeOnAuthority(ctx context.Context, cmd app.Command) error
}

// DefaultPublishTimeout bounds how long Deliver waits on a slow subscriber.
const DefaultPublishTimeout = 50 * time.Millisecond

// Mirror is one participant's replica. Only Deliver mutates it.
type Mirror struct {
	self    string
	logger  runtime.Logger
	timeout time.Duration

	mu   sync.RWMutex
	game *domain.Game

	// subMu is held for reading across a publish so a cancelled
	// subscription's channel is never closed mid-send.
	subMu sync.RWMutex
	subs  map[chan app.Event]chan struct{}
}

// New wraps game as the replica of participant self.
func New(self string, game *domain.Game, logger runtime.Logger) *Mirror {
	return &Mirror{
		self:    self,
		logger:  logger,
		timeout: DefaultPublishTimeout,
		game:    game,
		subs:    make(map[chan app.Event]chan struct{}),
	}
}

// Self returns the participant id this replica belongs to.
func (m *Mirror) Self() string {
	return m.self
}

// Deliver applies an authority event and republishes it to subscribers.
func (m *Mirror) Deliver(ev app.Event) {
	m.mu.Lock()
	err := Apply(m.game, ev)
	m.mu.Unlock()
	if err != nil {
		m.logger.Warn("Mirror: %s failed to apply %s: %v", m.self, ev.Kind, err)
	}
	m.publish(ev)
}

func (m *Mirror) publish(ev app.Event) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch, done := range m.subs {
		select {
		case ch <- ev:
		case <-done:
		case <-time.After(m.timeout):
			m.logger.Warn("Mirror: subscriber too slow, dropped %s", ev.Kind)
		}
	}
}

// Subscribe returns a channel of every applied event and a function that
// stops the subscription.
func (m *Mirror) Subscribe(buffer int) (<-chan app.Event, func()) {
	ch := make(chan app.Event, buffer)
	done := make(chan struct{})
	m.subMu.Lock()
	m.subs[ch] = done
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			close(done)
			m.subMu.Lock()
			delete(m.subs, ch)
			m.subMu.Unlock()
			close(ch)
		})
	}
}

// View runs fn with read access to the replica.
func (m *Mirror) View(fn func(g *domain.Game)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m.game)
}

// CanInteract reports whether the replica currently accepts gameplay input.
func (m *Mirror) CanInteract() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.game.CanInteract()
}

// Interact requests the primary interaction with a station.
func (m *Mirror) Interact(ctx context.Context, inv Invoker, stationID string) error {
	if !m.CanInteract() {
		return app.ErrNotInteractive
	}
	return m.send(ctx, inv, app.CommandInteract, app.InteractPayload{StationID: stationID})
}

// InteractAlternate requests the alternate interaction with a station.
func (m *Mirror) InteractAlternate(ctx context.Context, inv Invoker, stationID string) error {
	if !m.CanInteract() {
		return app.ErrNotInteractive
	}
	return m.send(ctx, inv, app.CommandInteractAlternate, app.InteractPayload{StationID: stationID})
}

// SetReady sends the local ready flag for the current ready phase.
func (m *Mirror) SetReady(ctx context.Context, inv Invoker, ready bool) error {
	var gate *domain.Gate
	m.View(func(g *domain.Game) { gate = g.Session.ReadyGate() })
	if gate == nil {
		return app.ErrWrongPhase
	}
	return m.send(ctx, inv, app.CommandSetReady, app.ReadyPayload{Ready: ready})
}

// TogglePause flips the local pause entry.
func (m *Mirror) TogglePause(ctx context.Context, inv Invoker) error {
	var paused bool
	m.View(func(g *domain.Game) { paused = g.Session.Pause.Entry(m.self) })
	return m.send(ctx, inv, app.CommandSetPaused, app.PausePayload{Paused: !paused})
}

// SelectColor asks for a color during character select.
func (m *Mirror) SelectColor(ctx context.Context, inv Invoker, colorID int) error {
	var taken bool
	m.View(func(g *domain.Game) {
		for _, p := range g.Roster.All() {
			if p.ID != m.self && p.ColorID == colorID {
				taken = true
			}
		}
	})
	if taken {
		return fmt.Errorf("color %d: %w", colorID, domain.ErrColorTaken)
	}
	return m.send(ctx, inv, app.CommandSelectColor, app.ColorPayload{ColorID: colorID})
}

// RequestTransfer asks the authority to move a prop.
func (m *Mirror) RequestTransfer(ctx context.Context, inv Invoker, propID domain.PropID, to domain.HolderID) error {
	if !m.CanInteract() {
		return app.ErrNotInteractive
	}
	return m.send(ctx, inv, app.CommandRequestTransfer, app.TransferPayload{PropID: propID, Holder: to})
}

func (m *Mirror) send(ctx context.Context, inv Invoker, kind app.CommandKind, payload any) error {
	if inv == nil {
		return errors.New("mirror: no transport")
	}
	return inv.InvokeOnAuthority(ctx, app.Command{Kind: kind, Sender: m.self, Payload: payload})
}
