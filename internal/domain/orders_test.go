package domain

import (
	"testing"
	"time"
)

func TestSatisfies(t *testing.T) {
	tests := []struct {
		name        string
		required    []ItemKind
		ingredients []ItemKind
		want        bool
	}{
		{name: "ExactSet", required: []ItemKind{"bread", "meat_cooked"}, ingredients: []ItemKind{"meat_cooked", "bread"}, want: true},
		{name: "Superset", required: []ItemKind{"bread", "meat_cooked"}, ingredients: []ItemKind{"bread", "meat_cooked", "tomato_slices"}, want: false},
		{name: "Subset", required: []ItemKind{"bread", "meat_cooked"}, ingredients: []ItemKind{"bread"}, want: false},
		{name: "SameSizeDifferentItems", required: []ItemKind{"bread", "meat_cooked"}, ingredients: []ItemKind{"bread", "tomato_slices"}, want: false},
		{name: "Empty", required: nil, ingredients: nil, want: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Satisfies(test.required, test.ingredients); got != test.want {
				t.Fatalf("Satisfies() = %t, want %t", got, test.want)
			}
		})
	}
}

func TestMatchPicksEarliestOrder(t *testing.T) {
	b := NewOrderBoard(4, time.Second)
	b.Add(Order{ID: "o1", Name: "Salad", Items: []ItemKind{"tomato_slices"}})
	b.Add(Order{ID: "o2", Name: "Burger", Items: []ItemKind{"bread", "meat_cooked"}})
	b.Add(Order{ID: "o3", Name: "Burger", Items: []ItemKind{"meat_cooked", "bread"}})

	if got := b.Match([]ItemKind{"bread", "meat_cooked"}); got != 1 {
		t.Fatalf("Match() = %d, want 1", got)
	}
	if got := b.Match([]ItemKind{"bread", "meat_cooked", "tomato_slices"}); got != -1 {
		t.Fatalf("size mismatch Match() = %d, want -1", got)
	}

	o, ok := b.Remove("o2")
	if !ok || o.ID != "o2" {
		t.Fatalf("remove o2 = %+v, %t", o, ok)
	}
	if len(b.Orders) != 2 || b.Orders[0].ID != "o1" || b.Orders[1].ID != "o3" {
		t.Fatalf("board after remove = %+v", b.Orders)
	}
}

func TestOrderBoardRefillTimer(t *testing.T) {
	b := NewOrderBoard(1, 4*time.Second)
	for i := 0; i < 3; i++ {
		if b.Advance(time.Second) {
			t.Fatalf("order due after %d seconds", i+1)
		}
	}
	if !b.Advance(time.Second) {
		t.Fatalf("order should be due after 4 seconds")
	}
	b.Add(Order{ID: "o1"})
	for i := 0; i < 8; i++ {
		if b.Advance(time.Second) {
			t.Fatalf("full board should not request orders")
		}
	}
}
