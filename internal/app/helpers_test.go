package app

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"kitchencoop/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

func testCatalog() *domain.Catalog {
	return &domain.Catalog{
		Items:        []domain.ItemKind{"tomato", "tomato_slices", "bread", "meat_uncooked", "meat_cooked", "meat_burned"},
		PlateKind:    "plate",
		PlateAccepts: []domain.ItemKind{"tomato_slices", "bread", "meat_cooked", "meat_burned"},
		Frying:       []domain.TimedRecipe{{Input: "meat_uncooked", Output: "meat_cooked", Duration: 5 * time.Second}},
		Burning:      []domain.TimedRecipe{{Input: "meat_cooked", Output: "meat_burned", Duration: 8 * time.Second}},
		Cutting:      []domain.StepRecipe{{Input: "tomato", Output: "tomato_slices", Steps: 3}},
		Orders: []domain.OrderRecipe{
			{Name: "Burger", Items: []domain.ItemKind{"bread", "meat_cooked"}},
			{Name: "Salad", Items: []domain.ItemKind{"tomato_slices"}},
		},
	}
}

func testGame() *domain.Game {
	opts := domain.Options{
		MaxParticipants:   4,
		Palette:           4,
		CountdownDuration: 3 * time.Second,
		ActiveDuration:    60 * time.Second,
		MaxOrders:         4,
		OrderInterval:     4 * time.Second,
		MaxPlates:         4,
		PlateInterval:     time.Second,
	}
	layout := []domain.StationSpec{
		{ID: "counter-1", Kind: domain.StationClear},
		{ID: "counter-2", Kind: domain.StationClear},
		{ID: "cutting-1", Kind: domain.StationCutting},
		{ID: "stove-1", Kind: domain.StationStove},
		{ID: "tomatoes", Kind: domain.StationContainer, Item: "tomato"},
		{ID: "bread", Kind: domain.StationContainer, Item: "bread"},
		{ID: "meat", Kind: domain.StationContainer, Item: "meat_uncooked"},
		{ID: "plates", Kind: domain.StationPlates},
		{ID: "trash", Kind: domain.StationTrash},
		{ID: "delivery", Kind: domain.StationDelivery},
	}
	return domain.NewGame(testCatalog(), opts, layout)
}

func newTestService() *Service {
	svc := NewService(rand.New(rand.NewSource(7)), noopLogger{})
	next := 0
	svc.SetIDSource(func() string {
		next++
		return fmt.Sprintf("id-%d", next)
	})
	return svc
}

func mustJoin(t *testing.T, svc *Service, g *domain.Game, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if _, err := svc.Join(g, id, "cook "+id); err != nil {
			t.Fatalf("join %s error: %v", id, err)
		}
	}
}

// startActive joins ids, readies everyone and runs the countdown out.
func startActive(t *testing.T, svc *Service, g *domain.Game, ids ...string) {
	t.Helper()
	mustJoin(t, svc, g, ids...)
	for _, id := range ids {
		if _, err := svc.SetReady(g, id, true); err != nil {
			t.Fatalf("ready %s error: %v", id, err)
		}
	}
	for i := 0; i < 10 && g.Session.Phase != domain.PhaseActive; i++ {
		svc.Tick(g, time.Second)
	}
	if g.Session.Phase != domain.PhaseActive {
		t.Fatalf("phase = %s, want active", g.Session.Phase)
	}
}

func mustInteract(t *testing.T, svc *Service, g *domain.Game, id, station string) []Event {
	t.Helper()
	evs, err := svc.Interact(g, id, station)
	if err != nil {
		t.Fatalf("interact %s with %s error: %v", id, station, err)
	}
	return evs
}

func countKind(evs []Event, kind EventKind) int {
	n := 0
	for _, ev := range evs {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func heldKind(g *domain.Game, id string) domain.ItemKind {
	p, ok := g.Held(id)
	if !ok {
		return ""
	}
	return p.Kind
}

func stationKind(g *domain.Game, station string) domain.ItemKind {
	p, ok := g.World.PropIn(domain.StationHolderID(station))
	if !ok {
		return ""
	}
	return p.Kind
}

func stockPlates(g *domain.Game, n int) {
	st, _ := g.Station("plates")
	st.ApplyStatus(domain.StationStatus{State: domain.ProgressIdle, Plates: n})
}
