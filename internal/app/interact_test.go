package app

import (
	"errors"
	"testing"
	"time"

	"kitchencoop/internal/domain"
)

func TestStoveFriesThenBurns(t *testing.T) {
	svc := newTestService()
	g := testGame()
	startActive(t, svc, g, "a")

	mustInteract(t, svc, g, "a", "meat")
	mustInteract(t, svc, g, "a", "stove-1")
	stove, _ := g.Station("stove-1")
	if got := stove.Status().State; got != domain.ProgressProcessing {
		t.Fatalf("stove state = %s, want processing", got)
	}

	tick := 100 * time.Millisecond
	for i := 0; i < 49; i++ {
		svc.Tick(g, tick)
	}
	if got := stationKind(g, "stove-1"); got != "meat_uncooked" {
		t.Fatalf("after 4.9s stove holds %q, want meat_uncooked", got)
	}
	evs := svc.Tick(g, tick)
	if got := stationKind(g, "stove-1"); got != "meat_cooked" {
		t.Fatalf("after 5s stove holds %q, want meat_cooked", got)
	}
	if countKind(evs, EventPropDestroyed) != 1 || countKind(evs, EventPropSpawned) != 1 {
		t.Fatalf("completion should replace the prop: %+v", evs)
	}
	if got := stove.Status(); got.State != domain.ProgressDone || got.Progress != 0 {
		t.Fatalf("stove status = %+v, want done with fresh burn timer", got)
	}

	for i := 0; i < 80; i++ {
		svc.Tick(g, tick)
	}
	if got := stationKind(g, "stove-1"); got != "meat_burned" {
		t.Fatalf("stove holds %q, want meat_burned", got)
	}
	if got := stove.Status().State; got != domain.ProgressSpoiled {
		t.Fatalf("stove state = %s, want spoiled", got)
	}
	if err := g.World.CheckOwnership(); err != nil {
		t.Fatalf("ownership: %v", err)
	}
}

func TestTakingMeatOffStoveResetsTimer(t *testing.T) {
	svc := newTestService()
	g := testGame()
	startActive(t, svc, g, "a")

	mustInteract(t, svc, g, "a", "meat")
	mustInteract(t, svc, g, "a", "stove-1")
	for i := 0; i < 30; i++ {
		svc.Tick(g, 100*time.Millisecond)
	}
	mustInteract(t, svc, g, "a", "stove-1")
	stove, _ := g.Station("stove-1")
	if got := stove.Status(); got.State != domain.ProgressIdle || got.Progress != 0 {
		t.Fatalf("stove status = %+v, want idle", got)
	}

	mustInteract(t, svc, g, "a", "stove-1")
	for i := 0; i < 30; i++ {
		svc.Tick(g, 100*time.Millisecond)
	}
	if got := stationKind(g, "stove-1"); got != "meat_uncooked" {
		t.Fatalf("timer did not restart: stove holds %q", got)
	}
}

func TestCuttingBoardNeedsEverySlice(t *testing.T) {
	svc := newTestService()
	g := testGame()
	startActive(t, svc, g, "a")

	mustInteract(t, svc, g, "a", "tomatoes")
	mustInteract(t, svc, g, "a", "cutting-1")
	board, _ := g.Station("cutting-1")

	for step := 1; step <= 3; step++ {
		if _, err := svc.InteractAlternate(g, "a", "cutting-1"); err != nil {
			t.Fatalf("cut %d error: %v", step, err)
		}
		if step < 3 && stationKind(g, "cutting-1") != "tomato" {
			t.Fatalf("tomato sliced after %d cuts", step)
		}
	}
	if got := stationKind(g, "cutting-1"); got != "tomato_slices" {
		t.Fatalf("board holds %q, want tomato_slices", got)
	}
	if got := board.Status().State; got != domain.ProgressIdle {
		t.Fatalf("board state = %s, want idle", got)
	}

	evs, err := svc.InteractAlternate(g, "a", "cutting-1")
	if err != nil || len(evs) != 0 {
		t.Fatalf("cutting slices again = %v, %v; want no-op", evs, err)
	}
}

func TestPlateCollectsIngredients(t *testing.T) {
	svc := newTestService()
	g := testGame()
	startActive(t, svc, g, "a")
	stockPlates(g, 1)

	mustInteract(t, svc, g, "a", "bread")
	mustInteract(t, svc, g, "a", "counter-1")
	evs := mustInteract(t, svc, g, "a", "plates")
	if heldKind(g, "a") != "plate" || countKind(evs, EventPlateStock) != 1 {
		t.Fatalf("plate not taken: held %q events %+v", heldKind(g, "a"), evs)
	}
	if evs := mustInteract(t, svc, g, "a", "plates"); len(evs) != 0 {
		t.Fatalf("full hands took another plate")
	}

	// Holding a plate over a counter item pulls the item onto the plate.
	evs = mustInteract(t, svc, g, "a", "counter-1")
	if countKind(evs, EventIngredientAdded) != 1 || stationKind(g, "counter-1") != "" {
		t.Fatalf("bread not absorbed: %+v", evs)
	}

	// A plate on a clear counter takes the held item.
	mustInteract(t, svc, g, "a", "counter-2")
	mustInteract(t, svc, g, "a", "meat")
	evs = mustInteract(t, svc, g, "a", "counter-2")
	if countKind(evs, EventIngredientAdded) != 0 {
		t.Fatalf("plate accepted raw meat")
	}
	if heldKind(g, "a") != "meat_uncooked" {
		t.Fatalf("rejected ingredient left hands: %q", heldKind(g, "a"))
	}

	plate, _ := g.World.PropIn(domain.StationHolderID("counter-2"))
	if !plate.HasIngredient("bread") || len(plate.Ingredients) != 1 {
		t.Fatalf("plate ingredients = %v, want [bread]", plate.Ingredients)
	}
	if err := g.World.CheckOwnership(); err != nil {
		t.Fatalf("ownership: %v", err)
	}
}

func TestPlateRejectsDuplicateIngredient(t *testing.T) {
	svc := newTestService()
	g := testGame()
	startActive(t, svc, g, "a")
	stockPlates(g, 1)

	mustInteract(t, svc, g, "a", "plates")
	mustInteract(t, svc, g, "a", "counter-1")
	mustInteract(t, svc, g, "a", "bread")
	mustInteract(t, svc, g, "a", "counter-1")
	mustInteract(t, svc, g, "a", "bread")
	evs := mustInteract(t, svc, g, "a", "counter-1")
	if len(evs) != 0 || heldKind(g, "a") != "bread" {
		t.Fatalf("second bread accepted: %+v", evs)
	}
}

func TestDeliveryMatchesEarliestOrder(t *testing.T) {
	tests := []struct {
		name        string
		ingredients []domain.ItemKind
		orders      []domain.Order
		wantOrder   string
		wantSuccess int
		wantFailure int
	}{
		{
			name:        "earliest of two identical orders",
			ingredients: []domain.ItemKind{"meat_cooked", "bread"},
			orders: []domain.Order{
				{ID: "o1", Name: "Salad", Items: []domain.ItemKind{"tomato_slices"}},
				{ID: "o2", Name: "Burger", Items: []domain.ItemKind{"bread", "meat_cooked"}},
				{ID: "o3", Name: "Burger", Items: []domain.ItemKind{"bread", "meat_cooked"}},
			},
			wantOrder:   "o2",
			wantSuccess: 1,
		},
		{
			name:        "size mismatch fails",
			ingredients: []domain.ItemKind{"bread"},
			orders: []domain.Order{
				{ID: "o1", Name: "Burger", Items: []domain.ItemKind{"bread", "meat_cooked"}},
			},
			wantFailure: 1,
		},
		{
			name:        "empty board fails",
			ingredients: []domain.ItemKind{"tomato_slices"},
			wantFailure: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService()
			g := testGame()
			startActive(t, svc, g, "a")
			g.Orders.Orders = append([]domain.Order(nil), tt.orders...)

			stockPlates(g, 1)
			mustInteract(t, svc, g, "a", "plates")
			plate, _ := g.Held("a")
			plate.Ingredients = append(plate.Ingredients, tt.ingredients...)

			evs := mustInteract(t, svc, g, "a", "delivery")
			if _, ok := g.Held("a"); ok {
				t.Fatalf("plate survived delivery")
			}
			if _, ok := g.World.Prop(plate.ID); ok {
				t.Fatalf("plate %s still in world", plate.ID)
			}
			if g.Orders.Successes != tt.wantSuccess || g.Orders.Failures != tt.wantFailure {
				t.Fatalf("successes/failures = %d/%d, want %d/%d",
					g.Orders.Successes, g.Orders.Failures, tt.wantSuccess, tt.wantFailure)
			}
			if tt.wantOrder == "" {
				if countKind(evs, EventOrderFailed) != 1 {
					t.Fatalf("no order_failed event: %+v", evs)
				}
				if len(g.Orders.Orders) != len(tt.orders) {
					t.Fatalf("failed delivery changed the board")
				}
				return
			}
			for _, o := range g.Orders.Orders {
				if o.ID == tt.wantOrder {
					t.Fatalf("order %s still on board", tt.wantOrder)
				}
			}
			if len(g.Orders.Orders) != len(tt.orders)-1 {
				t.Fatalf("board size = %d, want %d", len(g.Orders.Orders), len(tt.orders)-1)
			}
		})
	}
}

func TestDeliveryIgnoresPlainProps(t *testing.T) {
	svc := newTestService()
	g := testGame()
	startActive(t, svc, g, "a")

	mustInteract(t, svc, g, "a", "bread")
	if evs := mustInteract(t, svc, g, "a", "delivery"); len(evs) != 0 {
		t.Fatalf("plain prop delivered: %+v", evs)
	}
	if heldKind(g, "a") != "bread" {
		t.Fatalf("bread left hands")
	}
}

func TestTrashDestroysHeldProp(t *testing.T) {
	svc := newTestService()
	g := testGame()
	startActive(t, svc, g, "a")

	mustInteract(t, svc, g, "a", "tomatoes")
	evs := mustInteract(t, svc, g, "a", "trash")
	if countKind(evs, EventPropDestroyed) != 1 {
		t.Fatalf("prop_destroyed events = %d, want 1", countKind(evs, EventPropDestroyed))
	}
	if _, ok := g.Held("a"); ok {
		t.Fatalf("hands still full after trash")
	}
}

func TestUnknownStationIsRejected(t *testing.T) {
	svc := newTestService()
	g := testGame()
	startActive(t, svc, g, "a")

	if _, err := svc.Interact(g, "a", "fridge"); !errors.Is(err, domain.ErrUnknownStation) {
		t.Fatalf("err = %v, want ErrUnknownStation", err)
	}
}

func TestRequestTransfer(t *testing.T) {
	svc := newTestService()
	g := testGame()
	startActive(t, svc, g, "a", "b")

	mustInteract(t, svc, g, "a", "tomatoes")
	mustInteract(t, svc, g, "b", "bread")
	tomato, _ := g.Held("a")
	bread, _ := g.Held("b")

	evs, err := svc.RequestTransfer(g, "a", tomato.ID, domain.StationHolderID("counter-1"))
	if err != nil || countKind(evs, EventPropTransferred) != 1 {
		t.Fatalf("transfer = %+v, %v", evs, err)
	}
	evs, err = svc.RequestTransfer(g, "a", tomato.ID, domain.StationHolderID("counter-1"))
	if err != nil || len(evs) != 0 {
		t.Fatalf("repeated transfer = %+v, %v; want no-op", evs, err)
	}

	// Overwriting an occupied holder destroys the displaced prop.
	evs, err = svc.RequestTransfer(g, "b", bread.ID, domain.StationHolderID("counter-1"))
	if err != nil {
		t.Fatalf("overwrite error: %v", err)
	}
	if countKind(evs, EventPropDestroyed) != 1 {
		t.Fatalf("displaced prop not destroyed: %+v", evs)
	}
	if _, ok := g.World.Prop(tomato.ID); ok {
		t.Fatalf("displaced tomato still alive")
	}
	if err := g.World.CheckOwnership(); err != nil {
		t.Fatalf("ownership: %v", err)
	}

	if _, err := svc.RequestTransfer(g, "a", "nope", domain.StationHolderID("counter-2")); !errors.Is(err, domain.ErrUnknownProp) {
		t.Fatalf("unknown prop err = %v", err)
	}
	if _, err := svc.RequestTransfer(g, "a", bread.ID, "station:nowhere"); !errors.Is(err, domain.ErrUnknownHolder) {
		t.Fatalf("unknown holder err = %v", err)
	}
}

func TestRequestTransferNeedsInteractiveSession(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, svc *Service, g *domain.Game)
	}{
		{
			name:  "waiting to start",
			setup: func(t *testing.T, svc *Service, g *domain.Game) {},
		},
		{
			name: "paused",
			setup: func(t *testing.T, svc *Service, g *domain.Game) {
				if _, err := svc.SetPaused(g, "b", true); err != nil {
					t.Fatalf("pause error: %v", err)
				}
			},
		},
		{
			name: "ended",
			setup: func(t *testing.T, svc *Service, g *domain.Game) {
				for i := 0; i < 61; i++ {
					svc.Tick(g, time.Second)
				}
				if g.Session.Phase != domain.PhaseEnded {
					t.Fatalf("phase = %s, want ended", g.Session.Phase)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService()
			g := testGame()
			var tomato domain.PropID
			if tt.name == "waiting to start" {
				mustJoin(t, svc, g, "a", "b")
				tomato = "id-1"
			} else {
				startActive(t, svc, g, "a", "b")
				mustInteract(t, svc, g, "a", "tomatoes")
				p, _ := g.Held("a")
				tomato = p.ID
			}
			tt.setup(t, svc, g)

			evs, err := svc.RequestTransfer(g, "a", tomato, domain.StationHolderID("counter-1"))
			if !errors.Is(err, ErrNotInteractive) {
				t.Fatalf("err = %v, want ErrNotInteractive", err)
			}
			if len(evs) != 0 {
				t.Fatalf("events = %+v, want none", evs)
			}
			if _, ok := g.World.PropIn(domain.StationHolderID("counter-1")); ok {
				t.Fatalf("counter-1 received a prop")
			}
		})
	}
}

func TestLeaveDestroysHeldProp(t *testing.T) {
	svc := newTestService()
	g := testGame()
	startActive(t, svc, g, "a", "b")

	mustInteract(t, svc, g, "a", "tomatoes")
	held, _ := g.Held("a")

	evs, err := svc.Leave(g, "a")
	if err != nil {
		t.Fatalf("leave error: %v", err)
	}
	if countKind(evs, EventPropDestroyed) != 1 || countKind(evs, EventParticipantLeft) != 1 {
		t.Fatalf("leave events = %+v", evs)
	}
	if _, ok := g.World.Prop(held.ID); ok {
		t.Fatalf("held prop outlived its holder")
	}
	if _, err := svc.Interact(g, "a", "tomatoes"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("disconnected interact err = %v, want ErrNotConnected", err)
	}
}

func TestPlateStockRefillsWhileActive(t *testing.T) {
	svc := newTestService()
	g := testGame()
	startActive(t, svc, g, "a")
	plates, _ := g.Station("plates")
	start := plates.Plates.Count

	var stockEvents int
	for i := 0; i < 20; i++ {
		stockEvents += countKind(svc.Tick(g, 500*time.Millisecond), EventPlateStock)
	}
	if plates.Plates.Count != 4 {
		t.Fatalf("plate count = %d, want max 4", plates.Plates.Count)
	}
	if stockEvents != 4-start {
		t.Fatalf("plate_stock events = %d, want %d", stockEvents, 4-start)
	}
}
