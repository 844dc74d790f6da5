// Package report shapes an evolution into the data a report renderer
// needs: client block, contract terms, display rows, column totals and the
// result board.
package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/rmc-recalc/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Report is the renderer-facing view of one recalculation.
type Report struct {
	ID          string          `json:"id"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Client      ClientInfo      `json:"client"`
	Contract    models.Contract `json:"contract"`
	Rows        []Row           `json:"rows"`
	Totals      Totals          `json:"totals"`
	Summary     models.Summary  `json:"summary"`
	Board       Board           `json:"board"`
}

// ClientInfo is the client block. Age is nil without a birth date.
type ClientInfo struct {
	models.Client
	Age *int `json:"age,omitempty"`
}

// Row is an evolution row plus the amortization shown on the report.
type Row struct {
	models.EvolutionRow
	DisplayAmortization decimal.Decimal `json:"displayAmortization"`
}

// Totals are the footer sums of the evolution table.
type Totals struct {
	Paid                decimal.Decimal `json:"paid"`
	Interest            decimal.Decimal `json:"interest"`
	DisplayAmortization decimal.Decimal `json:"displayAmortization"`
	Eligible            decimal.Decimal `json:"eligible"`
	Restitution         decimal.Decimal `json:"restitution"`
}

// Board is the result panel of the report.
type Board struct {
	SimpleUndue      decimal.Decimal `json:"simpleUndue"`
	LegalDouble      decimal.Decimal `json:"legalDouble"`
	TotalRestitution decimal.Decimal `json:"totalRestitution"`
	MoralDamages     decimal.Decimal `json:"moralDamages"`
	FeePercent       decimal.Decimal `json:"feePercent"`
	AttorneyFees     decimal.Decimal `json:"attorneyFees"`
	TotalAward       decimal.Decimal `json:"totalAward"`
}

// Build assembles a report. Restitution values are taken from the
// evolution as computed by the engine.
func Build(client models.Client, contract models.Contract, evo *models.Evolution, now time.Time) *Report {
	r := &Report{
		ID:          uuid.NewString(),
		GeneratedAt: now,
		Client:      ClientInfo{Client: client, Age: age(client.BirthDate, now)},
		Contract:    contract,
		Rows:        make([]Row, 0, len(evo.Rows)),
		Summary:     evo.Summary,
	}

	t := Totals{
		Paid:                decimal.Zero,
		Interest:            decimal.Zero,
		DisplayAmortization: decimal.Zero,
		Eligible:            decimal.Zero,
		Restitution:         decimal.Zero,
	}
	for _, row := range evo.Rows {
		shown := displayAmortization(row)
		r.Rows = append(r.Rows, Row{EvolutionRow: row, DisplayAmortization: shown})

		t.Paid = t.Paid.Add(row.AmountPaid)
		t.Interest = t.Interest.Add(row.Interest)
		t.DisplayAmortization = t.DisplayAmortization.Add(shown)
		t.Eligible = t.Eligible.Add(row.EligibleRestitution)
		t.Restitution = t.Restitution.Add(row.RestitutionAmount)
	}
	r.Totals = t

	total := evo.Summary.TotalRestitution
	fees := total.Mul(contract.FeePercent).Div(hundred).Round(2)
	r.Board = Board{
		SimpleUndue:      evo.Summary.CreditBalance,
		LegalDouble:      t.Restitution,
		TotalRestitution: total,
		MoralDamages:     decimal.Zero,
		FeePercent:       contract.FeePercent,
		AttorneyFees:     fees,
		TotalAward:       total.Add(fees),
	}
	return r
}

// displayAmortization is the part of a payment that actually reduced the
// debt: nothing once the debt is gone, and the amortization net of the
// overshoot on the month that crosses zero.
func displayAmortization(row models.EvolutionRow) decimal.Decimal {
	if !row.PriorBalance.IsPositive() {
		return decimal.Zero
	}
	if row.CurrentBalance.IsNegative() {
		return decimal.Max(row.Amortization.Sub(row.EligibleRestitution), decimal.Zero)
	}
	return row.Amortization
}

func age(birth *time.Time, now time.Time) *int {
	if birth == nil {
		return nil
	}
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return nil
	}
	return &years
}
