package domain

// PropID identifies a spawned prop for its whole lifetime.
type PropID string

// PropVariant tags whether a prop is a plain item or a composite (plate).
type PropVariant string

const (
	PropPlain     PropVariant = "plain"
	PropComposite PropVariant = "composite"
)

// Prop is a kitchen object. Holder is never empty while the prop exists.
type Prop struct {
	ID          PropID
	Kind        ItemKind
	Variant     PropVariant
	Holder      HolderID
	Anchor      Anchor
	Ingredients []ItemKind
}

// IsComposite reports whether the prop can collect ingredients.
func (p *Prop) IsComposite() bool {
	return p.Variant == PropComposite
}

// HasIngredient reports whether kind was already added to the composite.
func (p *Prop) HasIngredient(kind ItemKind) bool {
	for _, k := range p.Ingredients {
		if k == kind {
			return true
		}
	}
	return false
}

// TryAddIngredient adds kind when the prop is a composite, kind is in accepts
// and kind is not already present.
func (p *Prop) TryAddIngredient(kind ItemKind, accepts func(ItemKind) bool) bool {
	if !p.IsComposite() || !accepts(kind) || p.HasIngredient(kind) {
		return false
	}
	p.Ingredients = append(p.Ingredients, kind)
	return true
}

// Clone returns a deep copy safe to hand to other goroutines.
func (p *Prop) Clone() Prop {
	cp := *p
	cp.Ingredients = append([]ItemKind(nil), p.Ingredients...)
	return cp
}
