package domain

import (
	"fmt"
	"time"
)

// Options sizes one session.
type Options struct {
	MaxParticipants   int
	Palette           int
	CharacterSelect   bool
	CountdownDuration time.Duration
	ActiveDuration    time.Duration
	MaxOrders         int
	OrderInterval     time.Duration
	MaxPlates         int
	PlateInterval     time.Duration
}

// StationSpec places one station in the kitchen layout.
type StationSpec struct {
	ID   string
	Kind StationKind
	Item ItemKind
}

// Game is the per-session context: every piece of canonical state lives here.
type Game struct {
	Catalog  *Catalog
	Session  *Session
	World    *World
	Orders   *OrderBoard
	Roster   *Roster
	Stations []*Station
	Tick     int64

	stations map[string]*Station
}

// NewGame builds a game with its stations registered as holders.
func NewGame(cat *Catalog, opts Options, layout []StationSpec) *Game {
	g := &Game{
		Catalog:  cat,
		Session:  NewSession(opts.CountdownDuration, opts.ActiveDuration, opts.CharacterSelect),
		World:    NewWorld(),
		Orders:   NewOrderBoard(opts.MaxOrders, opts.OrderInterval),
		Roster:   NewRoster(opts.MaxParticipants, opts.Palette),
		stations: make(map[string]*Station, len(layout)),
	}
	for _, spec := range layout {
		st := NewStation(spec.ID, spec.Kind, cat)
		st.Item = spec.Item
		if st.Plates != nil {
			st.Plates.Max = opts.MaxPlates
			st.Plates.Interval = opts.PlateInterval
		}
		g.Stations = append(g.Stations, st)
		g.stations[spec.ID] = st
		g.World.AddHolder(st)
	}
	return g
}

// Station looks up a station by id.
func (g *Game) Station(id string) (*Station, bool) {
	st, ok := g.stations[id]
	return st, ok
}

// StationAt returns the station behind a holder id.
func (g *Game) StationAt(h HolderID) (*Station, bool) {
	id, ok := h.Station()
	if !ok {
		return nil, false
	}
	return g.Station(id)
}

// EnsurePlayer registers the hands of participantID.
func (g *Game) EnsurePlayer(participantID string) *PlayerHolder {
	h := g.World.AddHolder(NewPlayerHolder(participantID))
	return h.(*PlayerHolder)
}

// Held returns the prop in participantID's hands.
func (g *Game) Held(participantID string) (*Prop, bool) {
	return g.World.PropIn(PlayerHolderID(participantID))
}

// CanInteract reports whether gameplay input is accepted right now.
func (g *Game) CanInteract() bool {
	return g.Session.Phase == PhaseActive && !g.Session.Paused()
}

// Validate checks the layout against the catalog.
func (g *Game) Validate() error {
	for _, st := range g.Stations {
		if st.Kind == StationContainer && !g.Catalog.Known(st.Item) {
			return fmt.Errorf("container %s dispenses unknown item %q", st.ID, st.Item)
		}
	}
	return nil
}
