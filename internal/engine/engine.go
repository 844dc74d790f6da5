// Package engine recalculates an RMC loan month by month from the declared
// principal and rate, and works out what was paid beyond the debt.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/insightdelivered/rmc-recalc/internal/models"
)

var (
	// ErrInvalidContract is returned when principal is not positive or the
	// rate is negative.
	ErrInvalidContract = errors.New("invalid contract terms")
	// ErrNoPayments is returned when there is nothing to recalculate.
	ErrNoPayments = errors.New("no payments to recalculate")
)

var hundred = decimal.NewFromInt(100)

// Options configures the restitution policy.
type Options struct {
	// Payments dated strictly after Cutoff are restituted with Multiplier
	// when the contract asks for double restitution.
	Cutoff     time.Time
	Multiplier decimal.Decimal
}

// DefaultOptions returns the legal double-restitution policy: twice the
// undue amount for payments after 30 March 2021.
func DefaultOptions() Options {
	return Options{
		Cutoff:     time.Date(2021, time.March, 30, 0, 0, 0, 0, time.UTC),
		Multiplier: decimal.NewFromInt(2),
	}
}

// Engine computes evolutions. It holds no state between calls.
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// New returns an Engine. A nil logger is replaced with a no-op one.
func New(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Cutoff.IsZero() {
		opts.Cutoff = DefaultOptions().Cutoff
	}
	if opts.Multiplier.IsZero() {
		opts.Multiplier = DefaultOptions().Multiplier
	}
	return &Engine{opts: opts, logger: logger}
}

// Compute runs the balance recurrence over the payments in date order.
//
// For each payment, interest is the prior balance times the monthly rate,
// rounded to the cent, and follows the sign of the balance. Amortization
// is the amount paid minus interest and reduces the balance. A payment made
// while the balance was already at or below zero is entirely eligible for
// restitution; a payment that crosses zero is eligible for the overshoot.
//
// Either a full evolution is returned or an error, never a partial result.
func (e *Engine) Compute(contract models.Contract, payments []models.PaymentRecord) (*models.Evolution, error) {
	if !contract.Principal.IsPositive() {
		return nil, fmt.Errorf("%w: principal must be greater than zero, got %s", ErrInvalidContract, contract.Principal)
	}
	if contract.MonthlyRate.IsNegative() {
		return nil, fmt.Errorf("%w: monthly rate must not be negative, got %s", ErrInvalidContract, contract.MonthlyRate)
	}
	if len(payments) == 0 {
		return nil, ErrNoPayments
	}

	sorted := make([]models.PaymentRecord, len(payments))
	copy(sorted, payments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompetenceDate.Before(sorted[j].CompetenceDate)
	})

	rate := contract.MonthlyRate.Div(hundred)
	balance := contract.Principal
	evo := &models.Evolution{Rows: make([]models.EvolutionRow, 0, len(sorted))}
	sum := &evo.Summary
	sum.TotalPaid = decimal.Zero
	sum.TotalEligible = decimal.Zero
	doubled := decimal.Zero

	for i, p := range sorted {
		prior := balance
		interest := prior.Mul(rate).Round(2)
		amort := p.Amount.Sub(interest)
		balance = prior.Sub(amort)

		eligible := decimal.Zero
		switch {
		case !prior.IsPositive():
			eligible = p.Amount
		case balance.IsNegative():
			eligible = balance.Abs()
		}

		restitution := decimal.Zero
		if contract.DoubleRestitution && p.CompetenceDate.After(e.opts.Cutoff) {
			restitution = eligible.Mul(e.opts.Multiplier)
		}

		id := p.ID
		if id == 0 {
			id = i + 1
		}
		evo.Rows = append(evo.Rows, models.EvolutionRow{
			ID:                  id,
			ReferenceDate:       p.CompetenceDate,
			PriorBalance:        prior,
			Interest:            interest,
			Amortization:        amort,
			CurrentBalance:      balance,
			AmountPaid:          p.Amount,
			EligibleRestitution: eligible,
			RestitutionAmount:   restitution,
		})

		sum.TotalPaid = sum.TotalPaid.Add(p.Amount)
		sum.TotalEligible = sum.TotalEligible.Add(eligible)
		doubled = doubled.Add(restitution)
	}

	if balance.IsPositive() {
		sum.CurrentDebtBalance = balance
		sum.CreditBalance = decimal.Zero
	} else {
		sum.CurrentDebtBalance = decimal.Zero
		sum.CreditBalance = balance.Neg()
	}
	sum.TotalRestitution = sum.CreditBalance.Add(doubled)

	e.logger.Debug("evolution computed",
		zap.Int("rows", len(evo.Rows)),
		zap.String("final_balance", balance.StringFixed(2)),
		zap.String("total_restitution", sum.TotalRestitution.StringFixed(2)),
	)
	return evo, nil
}
