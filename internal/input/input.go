// Package input converts caller-supplied contract and payment values into
// the canonical decimal model. Locale handling happens here once, so the
// parser output and manual entries reach the engine in the same shape.
package input

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/rmc-recalc/internal/brl"
	"github.com/insightdelivered/rmc-recalc/internal/models"
)

// ErrInvalidContractInput is returned when principal or rate is missing or
// not a number.
var ErrInvalidContractInput = errors.New("invalid contract input")

// ErrInvalidPaymentInput is returned when a payment amount or date cannot
// be read.
var ErrInvalidPaymentInput = errors.New("invalid payment input")

// Contract validates and converts a ContractInput. Principal must be
// positive and the monthly rate present and non-negative; fees default to
// zero.
func Contract(in models.ContractInput) (models.Contract, error) {
	var c models.Contract

	if strings.TrimSpace(string(in.Principal)) == "" {
		return c, fmt.Errorf("%w: principal is required", ErrInvalidContractInput)
	}
	principal, err := brl.ParseAmount(string(in.Principal))
	if err != nil {
		return c, fmt.Errorf("%w: principal: %v", ErrInvalidContractInput, err)
	}
	if !principal.IsPositive() {
		return c, fmt.Errorf("%w: principal must be greater than zero", ErrInvalidContractInput)
	}

	if strings.TrimSpace(string(in.MonthlyRate)) == "" {
		return c, fmt.Errorf("%w: monthly rate is required", ErrInvalidContractInput)
	}
	rate, err := brl.ParseRate(string(in.MonthlyRate))
	if err != nil {
		return c, fmt.Errorf("%w: monthly rate: %v", ErrInvalidContractInput, err)
	}

	fee := decimal.Zero
	if strings.TrimSpace(string(in.FeePercent)) != "" {
		fee, err = brl.ParseRate(string(in.FeePercent))
		if err != nil {
			return c, fmt.Errorf("%w: fee percent: %v", ErrInvalidContractInput, err)
		}
	}

	c = models.Contract{
		Principal:         principal,
		MonthlyRate:       rate,
		DoubleRestitution: in.DoubleRestitution,
		FeePercent:        fee,
	}
	if s := strings.TrimSpace(in.StartDate); s != "" {
		d, err := brl.ParseDate(s)
		if err != nil {
			return models.Contract{}, fmt.Errorf("%w: start date: %v", ErrInvalidContractInput, err)
		}
		c.StartDate = &d
	}
	return c, nil
}

// Payments converts manually edited payments into candidates for the
// reconciler. Entries with a blank amount are dropped; an unreadable or
// negative amount, or an unreadable date, is an error naming the entry.
// Missing IDs are numbered in order.
func Payments(in []models.PaymentInput) ([]models.PaymentCandidate, error) {
	out := make([]models.PaymentCandidate, 0, len(in))
	for i, p := range in {
		if strings.TrimSpace(string(p.Amount)) == "" {
			continue
		}
		amount, err := brl.ParseAmount(string(p.Amount))
		if err != nil {
			return nil, fmt.Errorf("%w: payment %d: amount: %v", ErrInvalidPaymentInput, i+1, err)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("%w: payment %d: amount must not be negative", ErrInvalidPaymentInput, i+1)
		}

		cand := models.PaymentCandidate{
			ID:         p.ID,
			Amount:     amount,
			SourceLine: p.SourceLine,
		}
		if cand.ID == 0 {
			cand.ID = i + 1
		}
		if s := strings.TrimSpace(p.CompetenceDate); s != "" {
			d, err := brl.ParseMonth(s)
			if err != nil {
				return nil, fmt.Errorf("%w: payment %d: competence date: %v", ErrInvalidPaymentInput, i+1, err)
			}
			cand.CompetenceDate = &d
		}
		out = append(out, cand)
	}
	return out, nil
}

// Client converts borrower data. An unreadable birth date is ignored.
func Client(in models.ClientInput) models.Client {
	c := models.Client{
		Name:          strings.TrimSpace(in.Name),
		CPF:           strings.TrimSpace(in.CPF),
		BenefitNumber: strings.TrimSpace(in.BenefitNumber),
	}
	if d, err := brl.ParseDate(in.BirthDate); err == nil {
		c.BirthDate = &d
	}
	return c
}
