package domain

// GateMode selects how a gate aggregates participant entries.
type GateMode string

const (
	// GateAll is true when every connected participant has a true entry.
	GateAll GateMode = "all"
	// GateAny is true when at least one connected participant has a true entry.
	GateAny GateMode = "any"
)

// Gate is a participant -> bool consensus map with a derived aggregate.
// The aggregate is recomputed on every write and never set on its own.
// Entries of disconnected participants are kept but ignored.
type Gate struct {
	mode    GateMode
	entries map[string]bool
	value   bool
}

// NewGate returns an empty gate.
func NewGate(mode GateMode) *Gate {
	return &Gate{mode: mode, entries: make(map[string]bool)}
}

// Set writes the entry for participantID and recomputes the aggregate over connected.
// It reports whether the aggregate changed.
func (g *Gate) Set(participantID string, v bool, connected []string) bool {
	g.entries[participantID] = v
	return g.Recompute(connected)
}

// Recompute re-derives the aggregate over connected and reports whether it changed.
func (g *Gate) Recompute(connected []string) bool {
	prev := g.value
	g.value = g.aggregate(connected)
	return prev != g.value
}

func (g *Gate) aggregate(connected []string) bool {
	switch g.mode {
	case GateAny:
		for _, id := range connected {
			if g.entries[id] {
				return true
			}
		}
		return false
	default:
		if len(connected) == 0 {
			return false
		}
		for _, id := range connected {
			if !g.entries[id] {
				return false
			}
		}
		return true
	}
}

// Value returns the aggregate.
func (g *Gate) Value() bool {
	return g.value
}

// Entry returns the entry for participantID; missing entries read as false.
func (g *Gate) Entry(participantID string) bool {
	return g.entries[participantID]
}

// Entries returns a copy of the entry map.
func (g *Gate) Entries() map[string]bool {
	out := make(map[string]bool, len(g.entries))
	for k, v := range g.entries {
		out[k] = v
	}
	return out
}

// Apply overwrites one entry and the aggregate with authority values on mirrors.
func (g *Gate) Apply(participantID string, v bool, value bool) {
	if participantID != "" {
		g.entries[participantID] = v
	}
	g.value = value
}

// Restore replaces the whole gate from a snapshot.
func (g *Gate) Restore(entries map[string]bool, value bool) {
	g.entries = make(map[string]bool, len(entries))
	for k, v := range entries {
		g.entries[k] = v
	}
	g.value = value
}
