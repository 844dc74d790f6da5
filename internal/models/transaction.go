package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentCandidate is a debit line detected by the statement parser.
// CompetenceDate is nil when no valid date marker preceded the line.
type PaymentCandidate struct {
	ID             int             `json:"id"`
	CompetenceDate *time.Time      `json:"competenceDate"`
	Amount         decimal.Decimal `json:"amount"`
	SourceLine     string          `json:"sourceLine"`
}

// PaymentRecord is a reconciled payment. CompetenceDate is always the
// first day of a month, in UTC.
type PaymentRecord struct {
	ID             int             `json:"id"`
	CompetenceDate time.Time       `json:"competenceDate"`
	Amount         decimal.Decimal `json:"amount"`
	SourceLine     string          `json:"sourceLine,omitempty"`
}

// Contract holds the declared loan terms.
type Contract struct {
	Principal         decimal.Decimal `json:"principal"`
	MonthlyRate       decimal.Decimal `json:"monthlyRate"` // percentage, e.g. 2.5 means 2.5% a.m.
	DoubleRestitution bool            `json:"doubleRestitution"`
	StartDate         *time.Time      `json:"startDate,omitempty"`
	FeePercent        decimal.Decimal `json:"feePercent"` // attorney fees, report only
}

// EvolutionRow is one computed month of the recalculated schedule.
type EvolutionRow struct {
	ID                  int             `json:"id"`
	ReferenceDate       time.Time       `json:"referenceDate"`
	PriorBalance        decimal.Decimal `json:"priorBalance"`
	Interest            decimal.Decimal `json:"interest"`
	Amortization        decimal.Decimal `json:"amortization"`
	CurrentBalance      decimal.Decimal `json:"currentBalance"`
	AmountPaid          decimal.Decimal `json:"amountPaid"`
	EligibleRestitution decimal.Decimal `json:"eligibleRestitution"`
	RestitutionAmount   decimal.Decimal `json:"restitutionAmount"`
}

// Summary aggregates an evolution.
type Summary struct {
	TotalPaid          decimal.Decimal `json:"totalPaid"`
	CurrentDebtBalance decimal.Decimal `json:"currentDebtBalance"`
	TotalRestitution   decimal.Decimal `json:"totalRestitution"`
	CreditBalance      decimal.Decimal `json:"creditBalance"`
	TotalEligible      decimal.Decimal `json:"totalEligible"`
}

// Evolution is the full output of one recalculation.
type Evolution struct {
	Rows    []EvolutionRow `json:"rows"`
	Summary Summary        `json:"summary"`
}

// Client identifies the borrower on reports.
type Client struct {
	Name          string     `json:"name,omitempty"`
	CPF           string     `json:"cpf,omitempty"`
	BenefitNumber string     `json:"benefitNumber,omitempty"`
	BirthDate     *time.Time `json:"birthDate,omitempty"`
}

// DebugLine captures what the parser did with each input line.
type DebugLine struct {
	LineNum int    `json:"lineNum"`
	Text    string `json:"text"`
	Result  string `json:"result"` // "date", "payment", "noise", "rejected", "malformed", "skipped"
	Reason  string `json:"reason,omitempty"`
}

// StatementInfo holds everything the parser extracted from a statement.
type StatementInfo struct {
	Client     Client             `json:"client"`
	Candidates []PaymentCandidate `json:"candidates"`
	DebugLines []DebugLine        `json:"debugLines,omitempty"`
}
