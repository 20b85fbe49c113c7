package domain

import "time"

// Order is an outstanding customer request on the board.
type Order struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Items []ItemKind `json:"items"`
}

// OrderBoard holds outstanding orders in arrival order.
type OrderBoard struct {
	Orders    []Order
	Max       int
	Interval  time.Duration
	Successes int
	Failures  int
	timer     time.Duration
}

// NewOrderBoard returns an empty board refilling every interval up to limit orders.
func NewOrderBoard(limit int, interval time.Duration) *OrderBoard {
	return &OrderBoard{Max: limit, Interval: interval, timer: interval}
}

// Advance counts the refill timer down and reports whether a new order is due.
func (b *OrderBoard) Advance(dt time.Duration) bool {
	b.timer -= dt
	if b.timer > 0 {
		return false
	}
	b.timer = b.Interval
	return len(b.Orders) < b.Max
}

// Add appends an order to the end of the board.
func (b *OrderBoard) Add(o Order) {
	b.Orders = append(b.Orders, o)
}

// Remove deletes the order with id and returns it.
func (b *OrderBoard) Remove(id string) (Order, bool) {
	for i, o := range b.Orders {
		if o.ID == id {
			b.Orders = append(b.Orders[:i], b.Orders[i+1:]...)
			return o, true
		}
	}
	return Order{}, false
}

// Match returns the index of the first order the ingredients satisfy, or -1.
func (b *OrderBoard) Match(ingredients []ItemKind) int {
	for i, o := range b.Orders {
		if Satisfies(o.Items, ingredients) {
			return i
		}
	}
	return -1
}

// Satisfies reports whether ingredients fulfil required: same count, and every
// required item present among the ingredients.
func Satisfies(required, ingredients []ItemKind) bool {
	if len(required) != len(ingredients) {
		return false
	}
	for _, want := range required {
		found := false
		for _, have := range ingredients {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
