// Package reconcile resolves the competence month of every payment
// candidate so that the resulting sequence is strictly monthly-increasing.
package reconcile

import (
	"sort"
	"time"

	"github.com/insightdelivered/rmc-recalc/internal/brl"
	"github.com/insightdelivered/rmc-recalc/internal/models"
)

// Result carries the reconciled records. Degraded is set when no candidate
// had a date and the month of now was used as the anchor; the dates are
// then only relative to each other and should be flagged to the user.
type Result struct {
	Records  []models.PaymentRecord
	Degraded bool
}

// Reconcile fills in missing or out-of-order competence dates.
//
// Candidates are walked in extraction order, which follows the document.
// Undated entries before the first dated one are back-filled one month at
// a time. After it, an entry whose date is missing or not strictly later
// than its predecessor becomes predecessor + 1 month. If no entry carries a
// date at all, the last one is anchored on the month of now.
//
// The input is not modified.
func Reconcile(candidates []models.PaymentCandidate, now time.Time) Result {
	n := len(candidates)
	if n == 0 {
		return Result{}
	}

	dates := make([]*time.Time, n)
	for i, c := range candidates {
		if c.CompetenceDate != nil {
			d := brl.NormalizeMonth(*c.CompetenceDate)
			dates[i] = &d
		}
	}

	var res Result
	first := -1
	for i, d := range dates {
		if d != nil {
			first = i
			break
		}
	}
	if first < 0 {
		anchor := brl.NormalizeMonth(now)
		dates[n-1] = &anchor
		first = n - 1
		res.Degraded = true
	}

	// Backward from the first dated entry.
	for i := first - 1; i >= 0; i-- {
		d := brl.AddMonths(*dates[i+1], -1)
		dates[i] = &d
	}

	// Forward: keep a date only when it moves strictly ahead.
	for i := first + 1; i < n; i++ {
		prev := *dates[i-1]
		if dates[i] == nil || !dates[i].After(prev) {
			d := brl.AddMonths(prev, 1)
			dates[i] = &d
		}
	}

	res.Records = make([]models.PaymentRecord, n)
	for i, c := range candidates {
		res.Records[i] = models.PaymentRecord{
			ID:             c.ID,
			CompetenceDate: *dates[i],
			Amount:         c.Amount,
			SourceLine:     c.SourceLine,
		}
	}

	sort.SliceStable(res.Records, func(i, j int) bool {
		return res.Records[i].CompetenceDate.Before(res.Records[j].CompetenceDate)
	})
	return res
}
