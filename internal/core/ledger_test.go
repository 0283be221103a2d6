package core

import (
	"errors"
	"testing"
)

func sample() []Expense {
	return []Expense{
		{ID: "a", Date: "2024-01-05", Amount: "10", Description: "coffee", Category: "Food"},
		{ID: "b", Date: "2024-01-20", Amount: "5", Description: "bus", Category: "Transport"},
		{ID: "c", Date: "2024-02-01", Amount: "20", Description: "dinner", Category: "Food"},
	}
}

func TestLocate(t *testing.T) {
	items := sample()
	if i, err := Locate(items, ByID("c")); err != nil || i != 2 {
		t.Fatalf("Locate(id c) = %d, %v", i, err)
	}
	if i, err := Locate(items, ByPosition(1)); err != nil || i != 1 {
		t.Fatalf("Locate(position 1) = %d, %v", i, err)
	}
	if _, err := Locate(items, ByID("zzz")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id err = %v", err)
	}
	for _, p := range []int{-1, 3, 99} {
		if _, err := Locate(items, ByPosition(p)); !errors.Is(err, ErrPositionOutOfRange) {
			t.Fatalf("position %d err = %v", p, err)
		}
	}
}

func TestReplaceAtChangesOnlyThatRow(t *testing.T) {
	items := sample()
	edited := items[1].Apply(Draft{Amount: "6", Description: "tram", Category: "Transport"})
	out, err := ReplaceAt(items, 1, edited)
	if err != nil {
		t.Fatalf("ReplaceAt: %v", err)
	}
	if out[0] != items[0] || out[2] != items[2] {
		t.Fatalf("neighbours changed: %+v", out)
	}
	if out[1].Description != "tram" || out[1].Date != "2024-01-20" {
		t.Fatalf("row 1 = %+v", out[1])
	}
	if items[1].Description != "bus" {
		t.Fatalf("input slice was mutated")
	}
}

func TestRemoveAtShiftsDown(t *testing.T) {
	items := sample()
	out, err := RemoveAt(items, 0)
	if err != nil {
		t.Fatalf("RemoveAt: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].ID != "b" || out[1].ID != "c" {
		t.Fatalf("old position 1 should now be 0: %+v", out)
	}
	if _, err := RemoveAt(out, 2); !errors.Is(err, ErrPositionOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
}

func TestList(t *testing.T) {
	l := List(sample(), Filter{Category: "Food"})
	if len(l.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(l.Entries))
	}
	if l.Entries[1].Position != 2 {
		t.Fatalf("positions must refer to the full ledger, got %d", l.Entries[1].Position)
	}
	if !l.TotalOK || l.Total.String() != "30" {
		t.Fatalf("total = %s ok=%v, want 30", l.Total, l.TotalOK)
	}

	items := append(sample(), Expense{ID: "d", Date: "2024-02-02", Amount: "lots", Category: "Food"})
	l = List(items, Filter{})
	if l.TotalOK {
		t.Fatalf("total should be unavailable with a non-numeric amount")
	}
	if len(l.Entries) != 4 {
		t.Fatalf("non-numeric rows are still listed, got %d", len(l.Entries))
	}
}

func TestCategoriesAndEnsureIDs(t *testing.T) {
	got := Categories(sample())
	if len(got) != 2 || got[0] != "Food" || got[1] != "Transport" {
		t.Fatalf("Categories() = %v", got)
	}
	items := []Expense{{ID: "keep"}, {}}
	if !EnsureIDs(items) {
		t.Fatalf("EnsureIDs should report a change")
	}
	if items[0].ID != "keep" || items[1].ID == "" {
		t.Fatalf("EnsureIDs result = %+v", items)
	}
	if EnsureIDs(items) {
		t.Fatalf("second EnsureIDs should be a no-op")
	}
}
