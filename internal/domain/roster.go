package domain

import "fmt"

// Participant is a member of the session.
type Participant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ColorID   int    `json:"color_id"`
	Connected bool   `json:"connected"`
}

// Roster tracks participants in join order.
type Roster struct {
	max     int
	palette int
	order   []string
	byID    map[string]*Participant
}

// NewRoster returns a roster admitting up to max participants choosing from
// palette colors.
func NewRoster(maxParticipants, palette int) *Roster {
	return &Roster{
		max:     maxParticipants,
		palette: palette,
		byID:    make(map[string]*Participant),
	}
}

// Known reports whether id has joined before.
func (r *Roster) Known(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Full reports whether no new participant can be admitted.
func (r *Roster) Full() bool {
	return r.max > 0 && len(r.order) >= r.max
}

// Join admits id or reconnects a known participant.
func (r *Roster) Join(id, name string) (Participant, bool, error) {
	if p, ok := r.byID[id]; ok {
		p.Connected = true
		if name != "" {
			p.Name = name
		}
		return *p, true, nil
	}
	if r.Full() {
		return Participant{}, false, fmt.Errorf("join %s: %w", id, ErrRosterFull)
	}
	p := &Participant{ID: id, Name: name, ColorID: r.freeColor(), Connected: true}
	r.byID[id] = p
	r.order = append(r.order, id)
	return *p, false, nil
}

// Leave marks id disconnected. The participant keeps its slot for rejoining.
func (r *Roster) Leave(id string) (Participant, error) {
	p, ok := r.byID[id]
	if !ok {
		return Participant{}, fmt.Errorf("leave %s: %w", id, ErrUnknownParticipant)
	}
	p.Connected = false
	return *p, nil
}

// Get returns the participant with id.
func (r *Roster) Get(id string) (Participant, bool) {
	p, ok := r.byID[id]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// All returns every participant in join order.
func (r *Roster) All() []Participant {
	out := make([]Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

// Connected returns the ids of connected participants in join order.
func (r *Roster) Connected() []string {
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if r.byID[id].Connected {
			out = append(out, id)
		}
	}
	return out
}

// SelectColor gives id the color colorID when no other participant uses it.
func (r *Roster) SelectColor(id string, colorID int) error {
	p, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("select color for %s: %w", id, ErrUnknownParticipant)
	}
	if colorID < 0 || colorID >= r.palette {
		return fmt.Errorf("select color %d: %w", colorID, ErrUnknownColor)
	}
	for _, other := range r.byID {
		if other.ID != id && other.ColorID == colorID {
			return fmt.Errorf("select color %d: %w", colorID, ErrColorTaken)
		}
	}
	p.ColorID = colorID
	return nil
}

// Upsert stores p as sent by the authority.
func (r *Roster) Upsert(p Participant) {
	if existing, ok := r.byID[p.ID]; ok {
		*existing = p
		return
	}
	cp := p
	r.byID[p.ID] = &cp
	r.order = append(r.order, p.ID)
}

// Reset drops every participant.
func (r *Roster) Reset() {
	r.order = nil
	r.byID = make(map[string]*Participant)
}

func (r *Roster) freeColor() int {
	used := make(map[int]bool, len(r.byID))
	for _, p := range r.byID {
		used[p.ColorID] = true
	}
	for c := 0; c < r.palette; c++ {
		if !used[c] {
			return c
		}
	}
	return 0
}
