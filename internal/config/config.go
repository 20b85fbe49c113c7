package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"kitchencoop/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed kitchen.yaml
var defaultKitchen []byte

type TimedRecipe struct {
	Input    string        `yaml:"input"`
	Output   string        `yaml:"output"`
	Duration time.Duration `yaml:"duration"`
}

type StepRecipe struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
	Steps  int    `yaml:"steps"`
}

type Recipe struct {
	Name  string   `yaml:"name"`
	Items []string `yaml:"items"`
}

type Station struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`
	Item string `yaml:"item"`
}

type Refill struct {
	Interval time.Duration `yaml:"interval"`
	Max      int           `yaml:"max"`
}

// Kitchen is the YAML description of one kitchen: catalog, recipes, layout and timers.
type Kitchen struct {
	MaxPlayers      int      `yaml:"max_players"`
	CharacterSelect bool     `yaml:"character_select"`
	Palette         []string `yaml:"palette"`
	Session         struct {
		Countdown time.Duration `yaml:"countdown"`
		Active    time.Duration `yaml:"active"`
	} `yaml:"session"`
	Orders Refill   `yaml:"orders"`
	Plates Refill   `yaml:"plates"`
	Items  []string `yaml:"items"`
	Plate  struct {
		Kind    string   `yaml:"kind"`
		Accepts []string `yaml:"accepts"`
	} `yaml:"plate"`
	Cutting  []StepRecipe  `yaml:"cutting"`
	Frying   []TimedRecipe `yaml:"frying"`
	Burning  []TimedRecipe `yaml:"burning"`
	Recipes  []Recipe      `yaml:"recipes"`
	Stations []Station     `yaml:"stations"`
}

var stationKinds = map[string]domain.StationKind{
	"clear":     domain.StationClear,
	"cutting":   domain.StationCutting,
	"stove":     domain.StationStove,
	"trash":     domain.StationTrash,
	"container": domain.StationContainer,
	"plates":    domain.StationPlates,
	"delivery":  domain.StationDelivery,
}

// Default returns the embedded kitchen.
func Default() (*Kitchen, error) {
	return Parse(defaultKitchen)
}

// Load reads a kitchen from path, or the embedded default when path is empty.
func Load(path string) (*Kitchen, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read kitchen config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a kitchen.
func Parse(data []byte) (*Kitchen, error) {
	var k Kitchen
	if err := yaml.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("failed to parse kitchen config: %w", err)
	}
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return &k, nil
}

// Validate checks that every recipe and station refers to known items.
func (k *Kitchen) Validate() error {
	var errs []error
	known := make(map[string]bool, len(k.Items)+1)
	for _, it := range k.Items {
		known[it] = true
	}
	if k.Plate.Kind == "" {
		errs = append(errs, errors.New("plate.kind is required"))
	}
	known[k.Plate.Kind] = true

	check := func(where, item string) {
		if !known[item] {
			errs = append(errs, fmt.Errorf("%s: unknown item %q", where, item))
		}
	}
	for _, it := range k.Plate.Accepts {
		check("plate.accepts", it)
	}
	for _, r := range k.Cutting {
		check("cutting", r.Input)
		check("cutting", r.Output)
		if r.Steps <= 0 {
			errs = append(errs, fmt.Errorf("cutting %s: steps must be positive", r.Input))
		}
	}
	for _, table := range [][]TimedRecipe{k.Frying, k.Burning} {
		for _, r := range table {
			check("timed recipe", r.Input)
			check("timed recipe", r.Output)
			if r.Duration <= 0 {
				errs = append(errs, fmt.Errorf("timed recipe %s: duration must be positive", r.Input))
			}
		}
	}
	for _, r := range k.Recipes {
		for _, it := range r.Items {
			check("recipe "+r.Name, it)
		}
	}

	seen := make(map[string]bool, len(k.Stations))
	for _, st := range k.Stations {
		if st.ID == "" || seen[st.ID] {
			errs = append(errs, fmt.Errorf("station id %q is empty or duplicated", st.ID))
		}
		seen[st.ID] = true
		kind, ok := stationKinds[st.Kind]
		if !ok {
			errs = append(errs, fmt.Errorf("station %s: unknown kind %q", st.ID, st.Kind))
			continue
		}
		if kind == domain.StationContainer {
			check("station "+st.ID, st.Item)
		}
	}

	if k.MaxPlayers <= 0 {
		errs = append(errs, errors.New("max_players must be positive"))
	}
	if len(k.Palette) < k.MaxPlayers {
		errs = append(errs, fmt.Errorf("palette has %d colors for %d players", len(k.Palette), k.MaxPlayers))
	}
	if k.Session.Active <= 0 {
		errs = append(errs, errors.New("session.active must be positive"))
	}
	if k.Orders.Max > 0 && k.Orders.Interval <= 0 {
		errs = append(errs, errors.New("orders.interval must be positive when orders.max is set"))
	}
	if k.Plates.Max > 0 && k.Plates.Interval <= 0 {
		errs = append(errs, errors.New("plates.interval must be positive when plates.max is set"))
	}
	if len(k.Recipes) == 0 {
		errs = append(errs, errors.New("at least one recipe is required"))
	}
	return errors.Join(errs...)
}

// Catalog converts the item and recipe tables.
func (k *Kitchen) Catalog() *domain.Catalog {
	cat := &domain.Catalog{PlateKind: domain.ItemKind(k.Plate.Kind)}
	for _, it := range k.Items {
		cat.Items = append(cat.Items, domain.ItemKind(it))
	}
	for _, it := range k.Plate.Accepts {
		cat.PlateAccepts = append(cat.PlateAccepts, domain.ItemKind(it))
	}
	for _, r := range k.Cutting {
		cat.Cutting = append(cat.Cutting, domain.StepRecipe{
			Input: domain.ItemKind(r.Input), Output: domain.ItemKind(r.Output), Steps: r.Steps,
		})
	}
	cat.Frying = timed(k.Frying)
	cat.Burning = timed(k.Burning)
	for _, r := range k.Recipes {
		o := domain.OrderRecipe{Name: r.Name}
		for _, it := range r.Items {
			o.Items = append(o.Items, domain.ItemKind(it))
		}
		cat.Orders = append(cat.Orders, o)
	}
	return cat
}

func timed(in []TimedRecipe) []domain.TimedRecipe {
	out := make([]domain.TimedRecipe, 0, len(in))
	for _, r := range in {
		out = append(out, domain.TimedRecipe{
			Input: domain.ItemKind(r.Input), Output: domain.ItemKind(r.Output), Duration: r.Duration,
		})
	}
	return out
}

// Options returns the session sizing.
func (k *Kitchen) Options() domain.Options {
	return domain.Options{
		MaxParticipants:   k.MaxPlayers,
		Palette:           len(k.Palette),
		CharacterSelect:   k.CharacterSelect,
		CountdownDuration: k.Session.Countdown,
		ActiveDuration:    k.Session.Active,
		MaxOrders:         k.Orders.Max,
		OrderInterval:     k.Orders.Interval,
		MaxPlates:         k.Plates.Max,
		PlateInterval:     k.Plates.Interval,
	}
}

// Layout returns the station placement.
func (k *Kitchen) Layout() []domain.StationSpec {
	out := make([]domain.StationSpec, 0, len(k.Stations))
	for _, st := range k.Stations {
		out = append(out, domain.StationSpec{
			ID:   st.ID,
			Kind: stationKinds[st.Kind],
			Item: domain.ItemKind(st.Item),
		})
	}
	return out
}

// NewGame builds a fresh session from the kitchen. Every participant, the
// authority included, builds its game from the same kitchen.
func (k *Kitchen) NewGame() *domain.Game {
	return domain.NewGame(k.Catalog(), k.Options(), k.Layout())
}
