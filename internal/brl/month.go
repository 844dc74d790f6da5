package brl

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Month returns the canonical competence date for a year and month: the
// first day of the month at midnight UTC.
func Month(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// NormalizeMonth truncates t to its competence month.
func NormalizeMonth(t time.Time) time.Time {
	return Month(t.Year(), t.Month())
}

// AddMonths moves a competence month by n months.
func AddMonths(t time.Time, n int) time.Time {
	return NormalizeMonth(t).AddDate(0, n, 0)
}

var monthLayouts = []string{"2006-01", "2006-01-02", "01/2006", "02/01/2006", "01.2006", "02.01.2006", time.RFC3339}

// ParseMonth parses a year-month identifier in any of the accepted layouts
// and returns its competence date.
func ParseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NormalizeMonth(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized month %q", s)
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", time.RFC3339}

// ParseDate parses a calendar date ("2020-07-15" or "15/07/2020").
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// FormatMonth renders a competence date as "07/2020".
func FormatMonth(t time.Time) string {
	return t.Format("01/2006")
}

// Fold uppercases s and strips diacritics, so "Competência" and
// "COMPETENCIA" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(out)
}
