package mirror

import (
	"fmt"

	"kitchencoop/internal/app"
	"kitchencoop/internal/domain"
)

// Apply replays one authority event onto g using the same domain mutators the
// authority used to produce it.
func Apply(g *domain.Game, ev app.Event) error {
	switch p := ev.Payload.(type) {
	case app.SnapshotPayload:
		return restore(g, p)

	case app.ParticipantPayload:
		g.Roster.Upsert(p.Participant)
		g.EnsurePlayer(p.Participant.ID)

	case app.PhaseChangedPayload:
		return g.Session.SetPhase(p.Phase)

	case app.SessionTimersPayload:
		g.Session.CountdownRemaining = p.CountdownRemaining
		g.Session.ActiveRemaining = p.ActiveRemaining

	case app.ReadyChangedPayload:
		gate := g.Session.MatchReady
		if p.Gate == app.GateLobby {
			gate = g.Session.LobbyReady
		}
		gate.Apply(p.ParticipantID, p.Ready, p.AllReady)

	case app.PauseChangedPayload:
		g.Session.Pause.Apply(p.ParticipantID, p.Paused, p.SessionPaused)

	case app.PropSpawnedPayload:
		ensureHolder(g, p.Holder)
		_, err := g.World.Spawn(p.PropID, p.Kind, p.Variant, p.Holder)
		return err

	case app.PropTransferredPayload:
		ensureHolder(g, p.To)
		_, err := g.World.Transfer(p.PropID, p.To)
		return err

	case app.PropDestroyedPayload:
		_, err := g.World.Destroy(p.PropID)
		return err

	case app.IngredientAddedPayload:
		return g.World.AddIngredient(p.PropID, p.Kind, g.Catalog.Accepts)

	case app.StationStatePayload:
		return updateStation(g, p.StationID, func(st *domain.StationStatus) { st.State = p.State })

	case app.ProgressChangedPayload:
		return updateStation(g, p.StationID, func(st *domain.StationStatus) { st.Progress = p.Progress })

	case app.PlateStockPayload:
		return updateStation(g, p.StationID, func(st *domain.StationStatus) { st.Plates = p.Count })

	case app.OrderSpawnedPayload:
		g.Orders.Add(p.Order)

	case app.DeliveryPayload:
		if p.OrderID != "" {
			g.Orders.Remove(p.OrderID)
		}
		g.Orders.Successes = p.Successes
		g.Orders.Failures = p.Failures

	default:
		return fmt.Errorf("apply %s: unexpected payload %T", ev.Kind, ev.Payload)
	}
	return nil
}

func ensureHolder(g *domain.Game, h domain.HolderID) {
	if id, ok := h.Participant(); ok {
		g.EnsurePlayer(id)
	}
}

func updateStation(g *domain.Game, id string, fn func(*domain.StationStatus)) error {
	st, ok := g.Station(id)
	if !ok {
		return fmt.Errorf("station %s: %w", id, domain.ErrUnknownStation)
	}
	status := st.Status()
	fn(&status)
	st.ApplyStatus(status)
	return nil
}

func restore(g *domain.Game, snap app.SnapshotPayload) error {
	g.Tick = snap.Tick
	g.Session.Phase = snap.Phase
	g.Session.CountdownRemaining = snap.CountdownRemaining
	g.Session.ActiveRemaining = snap.ActiveRemaining
	g.Session.LobbyReady.Restore(snap.LobbyReady.Entries, snap.LobbyReady.Value)
	g.Session.MatchReady.Restore(snap.MatchReady.Entries, snap.MatchReady.Value)
	g.Session.Pause.Restore(snap.Pause.Entries, snap.Pause.Value)

	g.Roster.Reset()
	for _, p := range snap.Participants {
		g.Roster.Upsert(p)
		g.EnsurePlayer(p.ID)
	}

	g.World.Reset()
	for _, p := range snap.Props {
		ensureHolder(g, p.Holder)
		prop, err := g.World.Spawn(p.ID, p.Kind, p.Variant, p.Holder)
		if err != nil {
			return fmt.Errorf("restore prop %s: %w", p.ID, err)
		}
		prop.Ingredients = append([]domain.ItemKind(nil), p.Ingredients...)
	}

	for _, s := range snap.Stations {
		if st, ok := g.Station(s.ID); ok {
			st.ApplyStatus(s.Status)
		}
	}

	g.Orders.Orders = append([]domain.Order(nil), snap.Orders...)
	g.Orders.Successes = snap.Successes
	g.Orders.Failures = snap.Failures
	return nil
}
