package domain

import (
	"fmt"
	"time"
)

// Phase represents the lifecycle stage of a session.
type Phase string

const (
	PhaseCharacterSelect Phase = "character_select"
	PhaseWaitingToStart  Phase = "waiting_to_start"
	PhaseCountdown       Phase = "countdown"
	PhaseActive          Phase = "active"
	PhaseEnded           Phase = "ended"
)

var phaseOrder = map[Phase]int{
	PhaseCharacterSelect: 0,
	PhaseWaitingToStart:  1,
	PhaseCountdown:       2,
	PhaseActive:          3,
	PhaseEnded:           4,
}

// Session is the authoritative session state machine.
type Session struct {
	Phase              Phase
	CountdownRemaining time.Duration
	ActiveRemaining    time.Duration
	CountdownDuration  time.Duration
	ActiveDuration     time.Duration

	LobbyReady *Gate
	MatchReady *Gate
	Pause      *Gate

	recheck bool
}

// NewSession returns a session in its first phase. When characterSelect is
// false the session starts in WaitingToStart.
func NewSession(countdown, active time.Duration, characterSelect bool) *Session {
	phase := PhaseCharacterSelect
	if !characterSelect {
		phase = PhaseWaitingToStart
	}
	return &Session{
		Phase:              phase,
		CountdownDuration:  countdown,
		ActiveDuration:     active,
		CountdownRemaining: countdown,
		ActiveRemaining:    active,
		LobbyReady:         NewGate(GateAll),
		MatchReady:         NewGate(GateAll),
		Pause:              NewGate(GateAny),
	}
}

// Paused is the derived OR over connected participants' pause entries.
func (s *Session) Paused() bool {
	return s.Pause.Value()
}

// ReadyGate returns the ready gate consulted in the current phase, or nil.
func (s *Session) ReadyGate() *Gate {
	switch s.Phase {
	case PhaseCharacterSelect:
		return s.LobbyReady
	case PhaseWaitingToStart:
		return s.MatchReady
	default:
		return nil
	}
}

// SetPhase moves the session forward. Phases never move backwards and Ended is terminal.
func (s *Session) SetPhase(p Phase) error {
	if p == s.Phase {
		return nil
	}
	if phaseOrder[p] < phaseOrder[s.Phase] || s.Phase == PhaseEnded {
		return fmt.Errorf("%s -> %s: %w", s.Phase, p, ErrPhaseRegression)
	}
	s.Phase = p
	switch p {
	case PhaseCountdown:
		s.CountdownRemaining = s.CountdownDuration
	case PhaseActive:
		s.ActiveRemaining = s.ActiveDuration
	}
	return nil
}

// AdvanceReady moves past a ready phase once its gate is satisfied.
// It reports whether the phase changed.
func (s *Session) AdvanceReady() bool {
	gate := s.ReadyGate()
	if gate == nil || !gate.Value() {
		return false
	}
	next := PhaseCountdown
	if s.Phase == PhaseCharacterSelect {
		next = PhaseWaitingToStart
	}
	return s.SetPhase(next) == nil
}

// MarkDisconnect flags the gates for re-derivation on the next tick.
func (s *Session) MarkDisconnect() {
	s.recheck = true
}

// TakeRecheck returns and clears the deferred recheck flag.
func (s *Session) TakeRecheck() bool {
	r := s.recheck
	s.recheck = false
	return r
}

// Advance decrements the running phase timer by dt. Timers are frozen while
// paused. The countdown ends once it drops below zero, and so does the
// active phase. It reports whether the phase changed.
func (s *Session) Advance(dt time.Duration) bool {
	if s.Paused() {
		return false
	}
	switch s.Phase {
	case PhaseCountdown:
		s.CountdownRemaining -= dt
		if s.CountdownRemaining < 0 {
			return s.SetPhase(PhaseActive) == nil
		}
	case PhaseActive:
		s.ActiveRemaining -= dt
		if s.ActiveRemaining < 0 {
			return s.SetPhase(PhaseEnded) == nil
		}
	}
	return false
}

// Timed reports whether a phase timer is running.
func (s *Session) Timed() bool {
	return s.Phase == PhaseCountdown || s.Phase == PhaseActive
}

// ActiveProgress is 1 - remaining/max over the active phase.
func (s *Session) ActiveProgress() float64 {
	if s.ActiveDuration <= 0 {
		return 0
	}
	p := 1 - float64(s.ActiveRemaining)/float64(s.ActiveDuration)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
