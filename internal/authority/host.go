// Package authority runs the single decision-maker of a session: it queues
// commands in arrival order and applies them on a fixed tick.
package authority

import (
	"context"
	"errors"
	"sync"
	"time"

	"kitchencoop/internal/app"
	"kitchencoop/internal/domain"
	"kitchencoop/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/jonboulle/clockwork"
)

var ErrStopped = errors.New("authority stopped")

// Host owns the canonical game. Only the goroutine running Run (or a caller
// of Step) touches the game.
type Host struct {
	svc    *app.Service
	game   *domain.Game
	out    ports.BroadcastPort
	clock  clockwork.Clock
	tick   time.Duration
	logger runtime.Logger

	mu sync.Mutex // guards game

	queueMu sync.Mutex
	pending []app.Command
	stopped bool
}

// Config wires a Host. Clock defaults to the real clock and Tick to 50ms.
type Config struct {
	Service *app.Service
	Game    *domain.Game
	Out     ports.BroadcastPort
	Clock   clockwork.Clock
	Tick    time.Duration
	Logger  runtime.Logger
}

// NewHost builds a host from cfg.
func NewHost(cfg Config) *Host {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Tick <= 0 {
		cfg.Tick = 50 * time.Millisecond
	}
	return &Host{
		svc:    cfg.Service,
		game:   cfg.Game,
		out:    cfg.Out,
		clock:  cfg.Clock,
		tick:   cfg.Tick,
		logger: cfg.Logger,
	}
}

// SetOutput replaces the broadcast port.
func (h *Host) SetOutput(out ports.BroadcastPort) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.out = out
}

// Submit queues cmd. Commands are applied in the order they were submitted.
func (h *Host) Submit(ctx context.Context, cmd app.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.queueMu.Lock()
	defer h.queueMu.Unlock()
	if h.stopped {
		return ErrStopped
	}
	h.pending = append(h.pending, cmd)
	return nil
}

// CanJoin reports whether participantID would be admitted now.
func (h *Host) CanJoin(participantID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.svc.CanJoin(h.game, participantID)
}

// View runs fn with the game locked.
func (h *Host) View(fn func(g *domain.Game)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.game)
}

func (h *Host) drain() []app.Command {
	h.queueMu.Lock()
	defer h.queueMu.Unlock()
	cmds := h.pending
	h.pending = nil
	return cmds
}

// Step applies every queued command, advances the game by dt and
// broadcasts the resulting events in order.
func (h *Host) Step(ctx context.Context, dt time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var events []app.Event
	for _, cmd := range h.drain() {
		evs, err := h.svc.Handle(h.game, cmd)
		if err != nil {
			h.logger.Warn("Host: %s from %s rejected: %v", cmd.Kind, cmd.Sender, err)
		}
		events = append(events, evs...)
	}
	events = append(events, h.svc.Tick(h.game, dt)...)

	if h.out == nil {
		return nil
	}
	var errs []error
	for _, ev := range events {
		if err := h.out.Broadcast(ctx, ev); err != nil {
			h.logger.Error("Host: broadcast %s failed: %v", ev.Kind, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run steps the game once per tick until ctx is done.
func (h *Host) Run(ctx context.Context) error {
	ticker := h.clock.NewTicker(h.tick)
	defer ticker.Stop()
	defer func() {
		h.queueMu.Lock()
		h.stopped = true
		h.queueMu.Unlock()
	}()

	h.logger.Info("Host: running at %v per tick", h.tick)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Host: stopping: %v", ctx.Err())
			return ctx.Err()
		case <-ticker.Chan():
			if err := h.Step(ctx, h.tick); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}
