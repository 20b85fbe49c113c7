package app

import (
	"fmt"

	"kitchencoop/internal/domain"
)

// Interact applies the primary interaction of participantID with a station.
// An interaction that changes nothing returns no events and no error.
func (s *Service) Interact(g *domain.Game, participantID, stationID string) ([]Event, error) {
	st, err := s.interactTarget(g, participantID, stationID)
	if err != nil {
		return nil, err
	}
	hands := domain.PlayerHolderID(participantID)
	held, holding := g.Held(participantID)

	switch st.Kind {
	case domain.StationContainer:
		if holding {
			return nil, nil
		}
		return s.SpawnProp(g, st.Item, hands)

	case domain.StationPlates:
		if holding || !st.Plates.Take() {
			return nil, nil
		}
		events := stationEvents(st)
		spawned, err := s.SpawnProp(g, g.Catalog.PlateKind, hands)
		return append(events, spawned...), err

	case domain.StationTrash:
		if !holding {
			return nil, nil
		}
		return s.DestroyProp(g, held.ID)

	case domain.StationDelivery:
		if !holding || !held.IsComposite() {
			return nil, nil
		}
		events := s.deliver(g, st, held)
		destroyed, err := s.DestroyProp(g, held.ID)
		return append(events, destroyed...), err

	default:
		return s.counterInteract(g, st, hands, held, holding), nil
	}
}

// counterInteract covers counters that store one prop: clear counters,
// cutting boards and stoves.
func (s *Service) counterInteract(g *domain.Game, st *domain.Station, hands domain.HolderID, held *domain.Prop, holding bool) []Event {
	top, occupied := g.World.PropIn(st.HolderID())
	switch {
	case !occupied && holding:
		return s.transfer(g, held.ID, st.HolderID())

	case occupied && !holding:
		return s.transfer(g, top.ID, hands)

	case occupied && holding && held.IsComposite():
		events, ok := s.addIngredient(g, held.ID, top.Kind)
		if !ok {
			return nil
		}
		destroyed, _ := s.DestroyProp(g, top.ID)
		return append(events, destroyed...)

	case occupied && holding && top.IsComposite() && st.Kind == domain.StationClear:
		events, ok := s.addIngredient(g, top.ID, held.Kind)
		if !ok {
			return nil
		}
		destroyed, _ := s.DestroyProp(g, held.ID)
		return append(events, destroyed...)
	}
	return nil
}

// InteractAlternate advances a cutting board by one step.
func (s *Service) InteractAlternate(g *domain.Game, participantID, stationID string) ([]Event, error) {
	st, err := s.interactTarget(g, participantID, stationID)
	if err != nil {
		return nil, err
	}
	if st.Steps == nil {
		return nil, nil
	}
	if _, occupied := g.World.PropIn(st.HolderID()); !occupied {
		return nil, nil
	}

	r, done, ok := st.Steps.Step()
	if !ok {
		return nil, nil
	}
	if !done {
		return stationEvents(st), nil
	}
	events := s.replaceProp(g, st, r.Output)
	return append(events, stationEvents(st)...), nil
}

func (s *Service) interactTarget(g *domain.Game, participantID, stationID string) (*domain.Station, error) {
	if err := requireConnected(g, participantID); err != nil {
		return nil, err
	}
	if !g.CanInteract() {
		return nil, ErrNotInteractive
	}
	st, ok := g.Station(stationID)
	if !ok {
		s.logger.Warn("Interact: %s targeted unknown station %s", participantID, stationID)
		return nil, fmt.Errorf("%s: %w", stationID, domain.ErrUnknownStation)
	}
	return st, nil
}

// deliver matches a plate against the order board. The first order in board
// order whose items the plate satisfies is fulfilled.
func (s *Service) deliver(g *domain.Game, st *domain.Station, plate *domain.Prop) []Event {
	idx := g.Orders.Match(plate.Ingredients)
	if idx < 0 {
		g.Orders.Failures++
		s.logger.Debug("Deliver: plate %s %v matched no order", plate.ID, plate.Ingredients)
		return []Event{{
			Kind: EventOrderFailed,
			Payload: DeliveryPayload{
				StationID: st.ID,
				PropID:    plate.ID,
				Successes: g.Orders.Successes,
				Failures:  g.Orders.Failures,
			},
		}}
	}

	order := g.Orders.Orders[idx]
	g.Orders.Remove(order.ID)
	g.Orders.Successes++
	s.logger.Info("Deliver: order %s (%s) fulfilled, %d total", order.ID, order.Name, g.Orders.Successes)
	return []Event{{
		Kind: EventOrderSucceeded,
		Payload: DeliveryPayload{
			StationID: st.ID,
			PropID:    plate.ID,
			OrderID:   order.ID,
			Successes: g.Orders.Successes,
			Failures:  g.Orders.Failures,
		},
	}}
}
