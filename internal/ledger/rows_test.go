package ledger

import (
	"strings"
	"testing"

	"expenses/internal/core"
)

func TestDecodeRows_LegacyFourColumns(t *testing.T) {
	rows := [][]string{
		{"Date", "Amount", "Description", "Category"},
		{"2024-01-05", "10", "coffee", "Food"},
		{"", "", "", ""},
		{"2024-01-20", "five", "bus", "Transport"},
	}
	got, err := DecodeRows(rows)
	if err != nil {
		t.Fatalf("DecodeRows: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected blank row to be skipped, got %d rows", len(got))
	}
	if got[0].ID != "" || got[0].Amount != "10" || got[0].Category != "Food" {
		t.Fatalf("row 0 = %+v", got[0])
	}
	if got[1].Amount != "five" {
		t.Fatalf("non-numeric amount must be kept as text, got %q", got[1].Amount)
	}
}

func TestDecodeRows_ReorderedHeaderAndShortRows(t *testing.T) {
	rows := [][]string{
		{"id", "category", "DATE", "amount", "description"},
		{"x1", "Food", "2024-02-01", "20"},
	}
	got, err := DecodeRows(rows)
	if err != nil {
		t.Fatalf("DecodeRows: %v", err)
	}
	want := core.Expense{ID: "x1", Date: "2024-02-01", Amount: "20", Category: "Food"}
	if got[0] != want {
		t.Fatalf("got %+v, want %+v", got[0], want)
	}
}

func TestDecodeRows_Errors(t *testing.T) {
	got, err := DecodeRows(nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("empty input: %v %v", got, err)
	}
	_, err = DecodeRows([][]string{{"Date", "Amount"}})
	if err == nil {
		t.Fatalf("expected header error")
	}
	if !strings.Contains(err.Error(), "missing Category,Description") {
		t.Fatalf("error should list missing columns, got %v", err)
	}
}

func TestEncodeRows(t *testing.T) {
	rows := EncodeRows([]core.Expense{
		{ID: "a", Date: "2024-01-05", Amount: "10.5", Description: "coffee", Category: "Food"},
		{ID: "b", Date: "2024-01-06", Amount: "n/a", Description: "gift", Category: "Misc"},
	})
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][4] != "ID" {
		t.Fatalf("header = %v", rows[0])
	}
	if v, ok := rows[1][1].(float64); !ok || v != 10.5 {
		t.Fatalf("numeric amount cell = %#v", rows[1][1])
	}
	if rows[2][1] != "n/a" {
		t.Fatalf("text amount cell = %#v", rows[2][1])
	}
}

func TestAmountCell(t *testing.T) {
	tests := []struct {
		amount string
		want   any
	}{
		{"10", 10.0},
		{"10.5", 10.5},
		{"-3.25", -3.25},
		{"10.50", "10.50"},
		{"12,5", "12,5"},
		{"1,234.50", "1,234.50"},
		{"12345678901234567.89", "12345678901234567.89"},
		{" 7", " 7"},
		{"n/a", "n/a"},
		{"NaN", "NaN"},
		{"+Inf", "+Inf"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := AmountCell(tt.amount); got != tt.want {
			t.Errorf("AmountCell(%q) = %#v, want %#v", tt.amount, got, tt.want)
		}
	}
}
