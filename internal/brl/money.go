// Package brl holds the Brazilian-locale helpers shared by every stage:
// decimal strings, money formatting, accent folding and competence months.
package brl

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrMalformedNumber is returned when a value looks numeric but cannot be
// parsed.
var ErrMalformedNumber = errors.New("malformed numeric value")

// ErrEmpty is returned for blank input.
var ErrEmpty = errors.New("empty value")

var plainNumber = regexp.MustCompile(`^\d+(\.\d+)?$`)
var thousandsOnly = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

var printer = message.NewPrinter(language.BrazilianPortuguese)

// ParseAmount converts a money string such as "1.234,56", "R$ 1.500",
// "(12,00)" or "1234.56" to a decimal rounded to the cent. Dots followed
// by exactly three digits and no comma are thousands separators, so
// "1.500" is 1500.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := parseDecimal(s, true)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Round(2), nil
}

// ParseRate converts a percentage string ("1,80", "2.5", "3%") to a
// decimal. Negative rates are rejected. A single dot is always a decimal
// point here, so "0.125" stays 0.125.
func ParseRate(s string) (decimal.Decimal, error) {
	d, err := parseDecimal(strings.ReplaceAll(s, "%", ""), false)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative rate %q", ErrMalformedNumber, s)
	}
	return d, nil
}

// parseDecimal reads pt-BR and dotted numbers. groupedDot makes a lone
// ".ddd" group a thousands separator.
func parseDecimal(val string, groupedDot bool) (decimal.Decimal, error) {
	s := strings.TrimSpace(val)
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return decimal.Zero, ErrEmpty
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = strings.TrimPrefix(s, "-")
	}

	// The rightmost separator decides the format.
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot > lastComma && lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case lastDot >= 0 && strings.Count(s, ".") > 1:
		if !thousandsOnly.MatchString(s) {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedNumber, val)
		}
		s = strings.ReplaceAll(s, ".", "")
	case lastDot >= 0 && groupedDot && thousandsOnly.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}

	if !plainNumber.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedNumber, val)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", ErrMalformedNumber, val, err)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// FormatBRL renders a value as "R$ 1.234,56". Negative values get a
// leading minus sign.
func FormatBRL(d decimal.Decimal) string {
	f, _ := d.Abs().Round(2).Float64()
	out := printer.Sprintf("R$ %.2f", f)
	if d.Round(2).IsNegative() {
		return "-" + out
	}
	return out
}

// FormatDecimal renders a value with two decimals and a comma separator,
// without grouping ("1234,56"). Used for spreadsheet-friendly CSV.
func FormatDecimal(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}
