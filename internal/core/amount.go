package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ParseAmount converts an amount as typed into a decimal.
//
// A lone comma is read as the decimal separator ("12,5" -> 12.5), so amounts
// typed with a European keyboard are accepted. Sign is not checked.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// IsNumeric reports whether s parses as an amount.
func IsNumeric(s string) bool {
	_, err := ParseAmount(s)
	return err == nil
}

var localeForCurrency = map[string]language.Tag{
	"EUR": language.Italian,
	"USD": language.AmericanEnglish,
	"GBP": language.BritishEnglish,
	"CHF": language.German,
	"SEK": language.Swedish,
	"JPY": language.Japanese,
}

// Formatter renders amounts in a currency, locale-aware.
type Formatter struct {
	Code    string
	unit    currency.Unit
	printer *message.Printer
}

// NewFormatter returns a formatter for an ISO currency code.
// Unknown codes format the number and append the code itself.
func NewFormatter(code string) Formatter {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "EUR"
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.XXX
	}
	tag, ok := localeForCurrency[code]
	if !ok {
		tag = language.English
	}
	return Formatter{Code: code, unit: unit, printer: message.NewPrinter(tag)}
}

func (f Formatter) symbol() string {
	if f.unit == currency.XXX {
		return f.Code
	}
	return f.printer.Sprint(currency.NarrowSymbol(f.unit))
}

func (f Formatter) prefix() bool {
	switch f.Code {
	case "USD", "GBP", "JPY":
		return true
	default:
		return false
	}
}

// Format renders d with two fraction digits and the currency symbol.
func (f Formatter) Format(d decimal.Decimal) string {
	v := d.Round(2).InexactFloat64()
	s := f.printer.Sprint(number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	if f.prefix() {
		if strings.HasPrefix(s, "-") {
			return "-" + f.symbol() + s[1:]
		}
		return f.symbol() + s
	}
	return s + " " + f.symbol()
}

// FormatText formats a stored amount, falling back to the raw text when it is not numeric.
func (f Formatter) FormatText(s string) string {
	d, err := ParseAmount(s)
	if err != nil {
		return s
	}
	return f.Format(d)
}
