package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"10", "10", true},
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{" 7 ", "7", true},
		{"-3.5", "-3.5", true},
		{"0", "0", true},
		{"", "", false},
		{"abc", "", false},
		{"1,234.5", "", false},
		{"1.2.3", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("ParseAmount(%q) error: %v", tc.in, err)
			}
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("ParseAmount(%q) = %s, want %s", tc.in, got, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("ParseAmount(%q) err = %v, want ErrInvalidAmount", tc.in, err)
		}
	}
}

func TestIsNumeric(t *testing.T) {
	if !IsNumeric("4.20") || IsNumeric("four") {
		t.Fatalf("IsNumeric misclassified input")
	}
}

func TestFormatterUSD(t *testing.T) {
	f := NewFormatter("usd")
	if got := f.Format(decimal.RequireFromString("1234.5")); got != "$1,234.50" {
		t.Fatalf("Format() = %q, want $1,234.50", got)
	}
	if got := f.Format(decimal.RequireFromString("-2")); got != "-$2.00" {
		t.Fatalf("Format() = %q, want -$2.00", got)
	}
}

func TestFormatterFallbacks(t *testing.T) {
	f := NewFormatter("ZZZ")
	if got := f.Format(decimal.NewFromInt(3)); !strings.HasSuffix(got, " ZZZ") {
		t.Fatalf("unknown currency should append code, got %q", got)
	}
	if got := NewFormatter("").Code; got != "EUR" {
		t.Fatalf("default code = %q, want EUR", got)
	}
	if got := f.FormatText("n/a"); got != "n/a" {
		t.Fatalf("FormatText should keep non-numeric text, got %q", got)
	}
}
