package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a money or rate value as received from a caller, kept as pt-BR
// display text for the input adapter to normalize. JSON strings are taken
// as typed ("1.234,56", "R$ 1.500"); JSON numbers are dotted decimals and
// are rewritten with a decimal comma so they read back unchanged.
type Amount string

// AmountFromDecimal renders d as a display Amount ("1500,5").
func AmountFromDecimal(d decimal.Decimal) Amount {
	return Amount(strings.Replace(d.String(), ".", ",", 1))
}

// UnmarshalJSON accepts both strings and numbers.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*a = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*a = Amount(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return err
	}
	*a = AmountFromDecimal(d)
	return nil
}

// ContractInput is the contract as typed by a user or sent by a client.
type ContractInput struct {
	Principal         Amount `json:"principal"`
	MonthlyRate       Amount `json:"monthlyRate"`
	DoubleRestitution bool   `json:"doubleRestitution"`
	StartDate         string `json:"startDate,omitempty"`
	FeePercent        Amount `json:"feePercent,omitempty"`
}

// PaymentInput is a payment edited or entered manually. CompetenceDate may
// be empty; the reconciler fills it.
type PaymentInput struct {
	ID             int    `json:"id,omitempty"`
	CompetenceDate string `json:"competenceDate,omitempty"`
	Amount         Amount `json:"amount"`
	SourceLine     string `json:"sourceLine,omitempty"`
}

// ClientInput is the borrower data sent with a report request.
type ClientInput struct {
	Name          string `json:"name,omitempty"`
	CPF           string `json:"cpf,omitempty"`
	BenefitNumber string `json:"benefitNumber,omitempty"`
	BirthDate     string `json:"birthDate,omitempty"`
}
