package domain

import (
	"fmt"
	"sort"
)

// World tracks every live prop and every holder that may claim one.
// Both the authority and each mirror own a World and mutate it only through
// these methods, so applying the same sequence of changes converges.
type World struct {
	props   map[PropID]*Prop
	holders map[HolderID]Holder
}

// NewWorld returns an empty world.
func NewWorld() *World {
	return &World{
		props:   make(map[PropID]*Prop),
		holders: make(map[HolderID]Holder),
	}
}

// AddHolder registers h. Registering an id twice keeps the first holder.
func (w *World) AddHolder(h Holder) Holder {
	if existing, ok := w.holders[h.HolderID()]; ok {
		return existing
	}
	w.holders[h.HolderID()] = h
	return h
}

// Holder looks up a registered holder.
func (w *World) Holder(id HolderID) (Holder, bool) {
	h, ok := w.holders[id]
	return h, ok
}

// Prop looks up a live prop.
func (w *World) Prop(id PropID) (*Prop, bool) {
	p, ok := w.props[id]
	return p, ok
}

// PropIn returns the prop currently listed by holder id.
func (w *World) PropIn(id HolderID) (*Prop, bool) {
	h, ok := w.holders[id]
	if !ok || !HasProp(h) {
		return nil, false
	}
	return w.Prop(h.Prop())
}

// Props returns the live props ordered by id.
func (w *World) Props() []*Prop {
	out := make([]*Prop, 0, len(w.props))
	for _, p := range w.props {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Spawn creates a prop of kind attached to holder. It refuses occupied holders.
func (w *World) Spawn(id PropID, kind ItemKind, variant PropVariant, holder HolderID) (*Prop, error) {
	if _, ok := w.props[id]; ok {
		return nil, fmt.Errorf("spawn %s: %w", id, ErrPropExists)
	}
	h, ok := w.holders[holder]
	if !ok {
		return nil, fmt.Errorf("spawn %s on %s: %w", id, holder, ErrUnknownHolder)
	}
	if HasProp(h) {
		return nil, fmt.Errorf("spawn %s on %s: %w", id, holder, ErrHolderOccupied)
	}
	p := &Prop{
		ID:      id,
		Kind:    kind,
		Variant: variant,
		Holder:  holder,
		Anchor:  h.AttachPoint(),
	}
	h.SetProp(id)
	w.props[id] = p
	return p, nil
}

// TransferResult describes what a transfer changed.
type TransferResult struct {
	From HolderID
	To   HolderID
	// Displaced is the prop that the destination listed before the transfer.
	// It is detached from every holder and must be destroyed by the caller.
	Displaced PropID
	// Noop is set when the prop already sat on the destination.
	Noop bool
}

// Transfer moves prop id to holder to. It is the only way a prop changes holder.
// An occupied destination is overwritten and reported in Displaced.
// Transferring onto the current holder changes nothing.
func (w *World) Transfer(id PropID, to HolderID) (TransferResult, error) {
	p, ok := w.props[id]
	if !ok {
		return TransferResult{}, fmt.Errorf("transfer %s: %w", id, ErrUnknownProp)
	}
	dst, ok := w.holders[to]
	if !ok {
		return TransferResult{}, fmt.Errorf("transfer %s to %s: %w", id, to, ErrUnknownHolder)
	}

	res := TransferResult{From: p.Holder, To: to}
	if p.Holder == to && dst.Prop() == id {
		res.Noop = true
		return res, nil
	}

	if src, ok := w.holders[p.Holder]; ok && src.Prop() == id {
		src.ClearProp()
	}
	if current := dst.Prop(); current != "" && current != id {
		res.Displaced = current
		if displaced, ok := w.props[current]; ok {
			displaced.Holder = ""
		}
	}

	dst.SetProp(id)
	p.Holder = to
	p.Anchor = dst.AttachPoint()
	return res, nil
}

// Destroy removes prop id and clears the holder that lists it.
// It returns the holder the prop sat on.
func (w *World) Destroy(id PropID) (HolderID, error) {
	p, ok := w.props[id]
	if !ok {
		return "", fmt.Errorf("destroy %s: %w", id, ErrUnknownProp)
	}
	if h, ok := w.holders[p.Holder]; ok && h.Prop() == id {
		h.ClearProp()
	}
	delete(w.props, id)
	return p.Holder, nil
}

// AddIngredient puts kind onto composite prop id.
func (w *World) AddIngredient(id PropID, kind ItemKind, accepts func(ItemKind) bool) error {
	p, ok := w.props[id]
	if !ok {
		return fmt.Errorf("add ingredient to %s: %w", id, ErrUnknownProp)
	}
	if !p.IsComposite() {
		return fmt.Errorf("add ingredient to %s: %w", id, ErrNotComposite)
	}
	if !p.TryAddIngredient(kind, accepts) {
		return fmt.Errorf("add %s to %s: %w", kind, id, ErrIngredientRejected)
	}
	return nil
}

// Reset drops every prop and clears every holder.
func (w *World) Reset() {
	for _, h := range w.holders {
		h.ClearProp()
	}
	w.props = make(map[PropID]*Prop)
}

// CheckOwnership verifies that props and holders reference each other one to one.
func (w *World) CheckOwnership() error {
	for id, p := range w.props {
		h, ok := w.holders[p.Holder]
		if !ok {
			return fmt.Errorf("prop %s claims missing holder %q: %w", id, p.Holder, ErrOwnership)
		}
		if h.Prop() != id {
			return fmt.Errorf("prop %s claims %s which lists %q: %w", id, p.Holder, h.Prop(), ErrOwnership)
		}
	}
	for hid, h := range w.holders {
		if !HasProp(h) {
			continue
		}
		p, ok := w.props[h.Prop()]
		if !ok {
			return fmt.Errorf("holder %s lists missing prop %s: %w", hid, h.Prop(), ErrOwnership)
		}
		if p.Holder != hid {
			return fmt.Errorf("holder %s lists %s which claims %s: %w", hid, p.ID, p.Holder, ErrOwnership)
		}
	}
	return nil
}
