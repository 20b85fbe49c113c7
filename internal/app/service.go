package app

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"kitchencoop/internal/domain"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

// Service contains the authority's use-cases operating on domain state.
// Every method mutates the game and returns the events to broadcast.
type Service struct {
	rng    *rand.Rand
	logger runtime.Logger
	newID  func() string
}

// NewService constructs a Service with provided rng or a time-seeded default.
func NewService(rng *rand.Rand, logger runtime.Logger) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{rng: rng, logger: logger, newID: uuid.NewString}
}

// SetIDSource replaces the generator used for prop and order ids.
func (s *Service) SetIDSource(fn func() string) {
	s.newID = fn
}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadPayload     = errors.New("command payload does not match kind")
	ErrNotInteractive = errors.New("session is not accepting gameplay input")
	ErrWrongPhase     = errors.New("command not allowed in current phase")
	ErrNotConnected   = errors.New("participant is not connected")
	ErrJoinClosed     = errors.New("session no longer admits new participants")
)

// Handle dispatches one command from the authority queue.
func (s *Service) Handle(g *domain.Game, cmd Command) ([]Event, error) {
	switch cmd.Kind {
	case CommandJoin:
		p, ok := cmd.Payload.(JoinPayload)
		if !ok {
			return nil, badPayload(cmd)
		}
		return s.Join(g, cmd.Sender, p.Name)
	case CommandLeave:
		return s.Leave(g, cmd.Sender)
	case CommandInteract:
		p, ok := cmd.Payload.(InteractPayload)
		if !ok {
			return nil, badPayload(cmd)
		}
		return s.Interact(g, cmd.Sender, p.StationID)
	case CommandInteractAlternate:
		p, ok := cmd.Payload.(InteractPayload)
		if !ok {
			return nil, badPayload(cmd)
		}
		return s.InteractAlternate(g, cmd.Sender, p.StationID)
	case CommandSetReady:
		p, ok := cmd.Payload.(ReadyPayload)
		if !ok {
			return nil, badPayload(cmd)
		}
		return s.SetReady(g, cmd.Sender, p.Ready)
	case CommandSetPaused:
		p, ok := cmd.Payload.(PausePayload)
		if !ok {
			return nil, badPayload(cmd)
		}
		return s.SetPaused(g, cmd.Sender, p.Paused)
	case CommandRequestTransfer:
		p, ok := cmd.Payload.(TransferPayload)
		if !ok {
			return nil, badPayload(cmd)
		}
		return s.RequestTransfer(g, cmd.Sender, p.PropID, p.Holder)
	case CommandSelectColor:
		p, ok := cmd.Payload.(ColorPayload)
		if !ok {
			return nil, badPayload(cmd)
		}
		return s.SelectColor(g, cmd.Sender, p.ColorID)
	default:
		return nil, fmt.Errorf("%q: %w", cmd.Kind, ErrUnknownCommand)
	}
}

func badPayload(cmd Command) error {
	return fmt.Errorf("%s carries %T: %w", cmd.Kind, cmd.Payload, ErrBadPayload)
}

// CanJoin reports whether participantID may enter the session now. Known
// participants may always come back; new ones only before the countdown.
func (s *Service) CanJoin(g *domain.Game, participantID string) error {
	if g.Roster.Known(participantID) {
		return nil
	}
	switch g.Session.Phase {
	case domain.PhaseCharacterSelect, domain.PhaseWaitingToStart:
	default:
		return ErrJoinClosed
	}
	if g.Roster.Full() {
		return domain.ErrRosterFull
	}
	return nil
}

// Join admits or reconnects a participant and sends them a snapshot.
func (s *Service) Join(g *domain.Game, participantID, name string) ([]Event, error) {
	if err := s.CanJoin(g, participantID); err != nil {
		return nil, err
	}
	p, rejoined, err := g.Roster.Join(participantID, name)
	if err != nil {
		return nil, err
	}
	g.EnsurePlayer(participantID)
	s.logger.Info("Join: %s (%s) rejoined=%t color=%d", p.ID, p.Name, rejoined, p.ColorID)

	events := []Event{{
		Kind:    EventParticipantJoined,
		Payload: ParticipantPayload{Participant: p},
	}}
	events = append(events, s.recheckGates(g)...)
	events = append(events, Event{
		Kind:       EventSnapshot,
		Payload:    s.Snapshot(g),
		Recipients: []string{participantID},
	})
	return events, nil
}

// Leave disconnects a participant. Their held prop is destroyed at once; the
// consensus gates are re-derived on the next tick.
func (s *Service) Leave(g *domain.Game, participantID string) ([]Event, error) {
	p, err := g.Roster.Leave(participantID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Leave: %s disconnected", participantID)

	var events []Event
	if held, ok := g.Held(participantID); ok {
		evs, err := s.DestroyProp(g, held.ID)
		if err != nil {
			s.logger.Error("Leave: failed to destroy held prop %s: %v", held.ID, err)
		}
		events = append(events, evs...)
	}
	g.Session.MarkDisconnect()

	events = append(events, Event{
		Kind:    EventParticipantLeft,
		Payload: ParticipantPayload{Participant: p},
	})
	return events, nil
}

// Tick advances the simulation by one fixed step.
func (s *Service) Tick(g *domain.Game, dt time.Duration) []Event {
	g.Tick++

	var events []Event
	if g.Session.TakeRecheck() {
		events = append(events, s.recheckGates(g)...)
	}
	if g.Session.Paused() {
		return events
	}

	if g.Session.Timed() {
		phaseChanged := g.Session.Advance(dt)
		events = append(events, timersEvent(g))
		if phaseChanged {
			s.logger.Info("Tick: phase -> %s", g.Session.Phase)
			events = append(events, phaseEvent(g))
		}
	}

	if g.Session.Phase != domain.PhaseActive {
		return events
	}

	for _, st := range g.Stations {
		switch {
		case st.Timed != nil && st.Timed.Running():
			events = append(events, s.advanceTimed(g, st, dt)...)
		case st.Plates != nil:
			if st.Plates.Advance(dt) {
				events = append(events, stationEvents(st)...)
			}
		}
	}

	if g.Orders.Advance(dt) && len(g.Catalog.Orders) > 0 {
		recipe := g.Catalog.Orders[s.rng.Intn(len(g.Catalog.Orders))]
		order := domain.Order{
			ID:    s.newID(),
			Name:  recipe.Name,
			Items: append([]domain.ItemKind(nil), recipe.Items...),
		}
		g.Orders.Add(order)
		s.logger.Debug("Tick: order %s (%s) spawned", order.ID, order.Name)
		events = append(events, Event{Kind: EventOrderSpawned, Payload: OrderSpawnedPayload{Order: order}})
	}
	return events
}

func (s *Service) advanceTimed(g *domain.Game, st *domain.Station, dt time.Duration) []Event {
	c, done := st.Timed.Advance(dt)
	if !done {
		return stationEvents(st)
	}
	events := s.replaceProp(g, st, c.Output)
	return append(events, stationEvents(st)...)
}

// replaceProp swaps the station's prop for a new one of kind without running
// the station's attach hooks, so a chained machine keeps its stage.
func (s *Service) replaceProp(g *domain.Game, st *domain.Station, kind domain.ItemKind) []Event {
	var events []Event
	if top, ok := g.World.PropIn(st.HolderID()); ok {
		if _, err := g.World.Destroy(top.ID); err != nil {
			s.logger.Error("Replace: destroy %s: %v", top.ID, err)
			return nil
		}
		events = append(events, Event{
			Kind:    EventPropDestroyed,
			Payload: PropDestroyedPayload{PropID: top.ID, Holder: st.HolderID()},
		})
	}
	p, err := g.World.Spawn(domain.PropID(s.newID()), kind, g.Catalog.VariantFor(kind), st.HolderID())
	if err != nil {
		s.logger.Error("Replace: spawn %s on %s: %v", kind, st.ID, err)
		return events
	}
	return append(events, spawnedEvent(p))
}

// SetReady writes the sender's entry in the ready gate of the current phase.
func (s *Service) SetReady(g *domain.Game, participantID string, ready bool) ([]Event, error) {
	if err := requireConnected(g, participantID); err != nil {
		return nil, err
	}
	gate := g.Session.ReadyGate()
	if gate == nil {
		return nil, fmt.Errorf("ready in %s: %w", g.Session.Phase, ErrWrongPhase)
	}
	name := gateName(g.Session)
	gate.Set(participantID, ready, g.Roster.Connected())

	events := []Event{{
		Kind: EventReadyChanged,
		Payload: ReadyChangedPayload{
			Gate:          name,
			ParticipantID: participantID,
			Ready:         ready,
			AllReady:      gate.Value(),
		},
	}}
	return append(events, s.advanceReady(g)...), nil
}

func (s *Service) advanceReady(g *domain.Game) []Event {
	if !g.Session.AdvanceReady() {
		return nil
	}
	s.logger.Info("Ready: everyone ready, phase -> %s", g.Session.Phase)
	events := []Event{phaseEvent(g)}
	if g.Session.Timed() {
		events = append(events, timersEvent(g))
	}
	return events
}

// SetPaused writes the sender's pause entry. The session is paused while any
// connected participant's entry is true.
func (s *Service) SetPaused(g *domain.Game, participantID string, paused bool) ([]Event, error) {
	if err := requireConnected(g, participantID); err != nil {
		return nil, err
	}
	g.Session.Pause.Set(participantID, paused, g.Roster.Connected())
	return []Event{{
		Kind: EventPauseChanged,
		Payload: PauseChangedPayload{
			ParticipantID: participantID,
			Paused:        paused,
			SessionPaused: g.Session.Paused(),
		},
	}}, nil
}

// SelectColor changes the sender's color during character select.
func (s *Service) SelectColor(g *domain.Game, participantID string, colorID int) ([]Event, error) {
	if err := requireConnected(g, participantID); err != nil {
		return nil, err
	}
	if g.Session.Phase != domain.PhaseCharacterSelect {
		return nil, fmt.Errorf("select color in %s: %w", g.Session.Phase, ErrWrongPhase)
	}
	if err := g.Roster.SelectColor(participantID, colorID); err != nil {
		return nil, err
	}
	p, _ := g.Roster.Get(participantID)
	return []Event{{Kind: EventColorChanged, Payload: ParticipantPayload{Participant: p}}}, nil
}

// recheckGates re-derives every gate over the connected participants.
func (s *Service) recheckGates(g *domain.Game) []Event {
	connected := g.Roster.Connected()
	var events []Event
	if g.Session.Pause.Recompute(connected) {
		events = append(events, Event{
			Kind:    EventPauseChanged,
			Payload: PauseChangedPayload{SessionPaused: g.Session.Paused()},
		})
	}
	if gate := g.Session.ReadyGate(); gate != nil && gate.Recompute(connected) {
		events = append(events, Event{
			Kind:    EventReadyChanged,
			Payload: ReadyChangedPayload{Gate: gateName(g.Session), AllReady: gate.Value()},
		})
		events = append(events, s.advanceReady(g)...)
	}
	return events
}

func requireConnected(g *domain.Game, participantID string) error {
	p, ok := g.Roster.Get(participantID)
	if !ok {
		return fmt.Errorf("%s: %w", participantID, domain.ErrUnknownParticipant)
	}
	if !p.Connected {
		return fmt.Errorf("%s: %w", participantID, ErrNotConnected)
	}
	return nil
}

func gateName(s *domain.Session) string {
	if s.Phase == domain.PhaseCharacterSelect {
		return GateLobby
	}
	return GateMatch
}

func phaseEvent(g *domain.Game) Event {
	return Event{Kind: EventPhaseChanged, Payload: PhaseChangedPayload{Phase: g.Session.Phase}}
}

func timersEvent(g *domain.Game) Event {
	return Event{
		Kind: EventSessionTimers,
		Payload: SessionTimersPayload{
			CountdownRemaining: g.Session.CountdownRemaining,
			ActiveRemaining:    g.Session.ActiveRemaining,
			ActiveProgress:     g.Session.ActiveProgress(),
		},
	}
}
