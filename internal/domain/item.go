package domain

import "time"

// ItemKind names an immutable item type from the kitchen catalog.
type ItemKind string

// TimedRecipe turns Input into Output after Duration on a timed station.
type TimedRecipe struct {
	Input    ItemKind
	Output   ItemKind
	Duration time.Duration
}

// StepRecipe turns Input into Output after Steps alternate interactions.
type StepRecipe struct {
	Input  ItemKind
	Output ItemKind
	Steps  int
}

// OrderRecipe is a deliverable dish: the set of ingredients a plate must hold.
type OrderRecipe struct {
	Name  string
	Items []ItemKind
}

// Catalog holds every item type and recipe table a kitchen uses.
type Catalog struct {
	Items        []ItemKind
	PlateKind    ItemKind
	PlateAccepts []ItemKind
	Frying       []TimedRecipe
	Burning      []TimedRecipe
	Cutting      []StepRecipe
	Orders       []OrderRecipe
}

// Known reports whether kind is part of the catalog.
func (c *Catalog) Known(kind ItemKind) bool {
	if kind == c.PlateKind {
		return true
	}
	for _, k := range c.Items {
		if k == kind {
			return true
		}
	}
	return false
}

// Accepts reports whether a plate may take kind as an ingredient.
func (c *Catalog) Accepts(kind ItemKind) bool {
	for _, k := range c.PlateAccepts {
		if k == kind {
			return true
		}
	}
	return false
}

// VariantFor returns the prop variant spawned for kind.
func (c *Catalog) VariantFor(kind ItemKind) PropVariant {
	if kind == c.PlateKind {
		return PropComposite
	}
	return PropPlain
}

func findTimed(recipes []TimedRecipe, input ItemKind) (TimedRecipe, bool) {
	for _, r := range recipes {
		if r.Input == input {
			return r, true
		}
	}
	return TimedRecipe{}, false
}

func findStep(recipes []StepRecipe, input ItemKind) (StepRecipe, bool) {
	for _, r := range recipes {
		if r.Input == input {
			return r, true
		}
	}
	return StepRecipe{}, false
}
