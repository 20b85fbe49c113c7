package app

import (
	"fmt"

	"kitchencoop/internal/domain"
)

// RequestTransfer moves a prop to a new holder on behalf of a participant.
// Unknown props or holders are logged and ignored. Transfers are gameplay
// input and share the interaction gate.
func (s *Service) RequestTransfer(g *domain.Game, senderID string, propID domain.PropID, to domain.HolderID) ([]Event, error) {
	if err := requireConnected(g, senderID); err != nil {
		return nil, err
	}
	if !g.CanInteract() {
		return nil, ErrNotInteractive
	}
	if _, ok := g.World.Prop(propID); !ok {
		s.logger.Warn("Transfer: %s asked to move unknown prop %s", senderID, propID)
		return nil, fmt.Errorf("transfer %s: %w", propID, domain.ErrUnknownProp)
	}
	if _, ok := g.World.Holder(to); !ok {
		s.logger.Warn("Transfer: %s asked to move %s to unknown holder %s", senderID, propID, to)
		return nil, fmt.Errorf("transfer to %s: %w", to, domain.ErrUnknownHolder)
	}
	return s.transfer(g, propID, to), nil
}

// transfer is the single path by which a prop changes holder on the authority.
func (s *Service) transfer(g *domain.Game, propID domain.PropID, to domain.HolderID) []Event {
	p, ok := g.World.Prop(propID)
	if !ok {
		return nil
	}
	if current, ok := g.World.PropIn(to); ok && current.ID != propID {
		s.logger.Warn("Transfer: holder %s already holds %s, overwriting with %s", to, current.ID, propID)
	}

	res, err := g.World.Transfer(propID, to)
	if err != nil {
		s.logger.Error("Transfer: %v", err)
		return nil
	}
	if res.Noop {
		return nil
	}

	var events []Event
	if st, ok := g.StationAt(res.From); ok {
		st.Detached()
		events = append(events, stationEvents(st)...)
	}
	events = append(events, Event{
		Kind: EventPropTransferred,
		Payload: PropTransferredPayload{
			PropID: propID,
			From:   res.From,
			To:     res.To,
			Anchor: p.Anchor,
		},
	})
	if res.Displaced != "" {
		if _, err := g.World.Destroy(res.Displaced); err == nil {
			events = append(events, Event{
				Kind:    EventPropDestroyed,
				Payload: PropDestroyedPayload{PropID: res.Displaced},
			})
		}
	}
	if st, ok := g.StationAt(to); ok {
		st.Attached(p.Kind)
		events = append(events, stationEvents(st)...)
	}
	return events
}

// SpawnProp creates a prop of kind on holder. Only the authority spawns.
func (s *Service) SpawnProp(g *domain.Game, kind domain.ItemKind, holder domain.HolderID) ([]Event, error) {
	p, err := g.World.Spawn(domain.PropID(s.newID()), kind, g.Catalog.VariantFor(kind), holder)
	if err != nil {
		s.logger.Warn("Spawn: %v", err)
		return nil, err
	}
	events := []Event{spawnedEvent(p)}
	if st, ok := g.StationAt(holder); ok {
		st.Attached(kind)
		events = append(events, stationEvents(st)...)
	}
	return events, nil
}

// DestroyProp removes a prop everywhere and frees its holder.
func (s *Service) DestroyProp(g *domain.Game, propID domain.PropID) ([]Event, error) {
	from, err := g.World.Destroy(propID)
	if err != nil {
		s.logger.Warn("Destroy: %v", err)
		return nil, err
	}
	events := []Event{{
		Kind:    EventPropDestroyed,
		Payload: PropDestroyedPayload{PropID: propID, Holder: from},
	}}
	if st, ok := g.StationAt(from); ok {
		st.Detached()
		events = append(events, stationEvents(st)...)
	}
	return events, nil
}

// addIngredient puts kind on a composite prop.
func (s *Service) addIngredient(g *domain.Game, plateID domain.PropID, kind domain.ItemKind) ([]Event, bool) {
	if err := g.World.AddIngredient(plateID, kind, g.Catalog.Accepts); err != nil {
		s.logger.Debug("AddIngredient: %v", err)
		return nil, false
	}
	return []Event{{
		Kind:    EventIngredientAdded,
		Payload: IngredientAddedPayload{PropID: plateID, Kind: kind},
	}}, true
}

func spawnedEvent(p *domain.Prop) Event {
	return Event{
		Kind: EventPropSpawned,
		Payload: PropSpawnedPayload{
			PropID:  p.ID,
			Kind:    p.Kind,
			Variant: p.Variant,
			Holder:  p.Holder,
		},
	}
}

// stationEvents refreshes a station and emits one event per changed field.
func stationEvents(st *domain.Station) []Event {
	prev := st.Status()
	next, changed := st.Refresh()
	if !changed {
		return nil
	}
	var events []Event
	if prev.State != next.State {
		events = append(events, Event{
			Kind:    EventStationState,
			Payload: StationStatePayload{StationID: st.ID, State: next.State},
		})
	}
	if prev.Progress != next.Progress {
		events = append(events, Event{
			Kind:    EventProgressChanged,
			Payload: ProgressChangedPayload{StationID: st.ID, Progress: next.Progress},
		})
	}
	if prev.Plates != next.Plates {
		events = append(events, Event{
			Kind:    EventPlateStock,
			Payload: PlateStockPayload{StationID: st.ID, Count: next.Plates},
		})
	}
	return events
}
