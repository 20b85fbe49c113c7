package app

import "kitchencoop/internal/domain"

// Snapshot captures the replicated state of g.
func (s *Service) Snapshot(g *domain.Game) SnapshotPayload {
	snap := SnapshotPayload{
		Tick:               g.Tick,
		Phase:              g.Session.Phase,
		CountdownRemaining: g.Session.CountdownRemaining,
		ActiveRemaining:    g.Session.ActiveRemaining,
		LobbyReady:         gateSnapshot(g.Session.LobbyReady),
		MatchReady:         gateSnapshot(g.Session.MatchReady),
		Pause:              gateSnapshot(g.Session.Pause),
		Participants:       g.Roster.All(),
		Orders:             append([]domain.Order(nil), g.Orders.Orders...),
		Successes:          g.Orders.Successes,
		Failures:           g.Orders.Failures,
	}
	for _, p := range g.World.Props() {
		snap.Props = append(snap.Props, PropSnapshot{
			ID:          p.ID,
			Kind:        p.Kind,
			Variant:     p.Variant,
			Holder:      p.Holder,
			Ingredients: append([]domain.ItemKind(nil), p.Ingredients...),
		})
	}
	for _, st := range g.Stations {
		snap.Stations = append(snap.Stations, StationSnapshot{ID: st.ID, Status: st.Status()})
	}
	return snap
}

func gateSnapshot(gate *domain.Gate) GateSnapshot {
	return GateSnapshot{Entries: gate.Entries(), Value: gate.Value()}
}
