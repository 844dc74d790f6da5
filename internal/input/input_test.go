package input

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/rmc-recalc/internal/models"
)

func TestContract(t *testing.T) {
	tests := []struct {
		name      string
		in        models.ContractInput
		principal string
		rate      string
		fee       string
		wantErr   bool
	}{
		{
			name:      "display strings",
			in:        models.ContractInput{Principal: "R$ 1.500,00", MonthlyRate: "2,5", FeePercent: "20%"},
			principal: "1500", rate: "2.5", fee: "20",
		},
		{
			name:      "thousands dot without cents",
			in:        models.ContractInput{Principal: "1.500", MonthlyRate: "2"},
			principal: "1500", rate: "2", fee: "0",
		},
		{
			name:      "plain numbers",
			in:        models.ContractInput{Principal: "1000", MonthlyRate: "0"},
			principal: "1000", rate: "0", fee: "0",
		},
		{name: "missing principal", in: models.ContractInput{MonthlyRate: "2"}, wantErr: true},
		{name: "zero principal", in: models.ContractInput{Principal: "0,00", MonthlyRate: "2"}, wantErr: true},
		{name: "negative principal", in: models.ContractInput{Principal: "-10", MonthlyRate: "2"}, wantErr: true},
		{name: "missing rate", in: models.ContractInput{Principal: "1000"}, wantErr: true},
		{name: "non-numeric rate", in: models.ContractInput{Principal: "1000", MonthlyRate: "abc"}, wantErr: true},
		{name: "negative rate", in: models.ContractInput{Principal: "1000", MonthlyRate: "-1"}, wantErr: true},
		{name: "bad start date", in: models.ContractInput{Principal: "1000", MonthlyRate: "1", StartDate: "ontem"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Contract(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidContractInput) {
					t.Errorf("expected ErrInvalidContractInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Principal.Equal(decimal.RequireFromString(tt.principal)) {
				t.Errorf("principal: got %s, want %s", got.Principal, tt.principal)
			}
			if !got.MonthlyRate.Equal(decimal.RequireFromString(tt.rate)) {
				t.Errorf("rate: got %s, want %s", got.MonthlyRate, tt.rate)
			}
			if !got.FeePercent.Equal(decimal.RequireFromString(tt.fee)) {
				t.Errorf("fee: got %s, want %s", got.FeePercent, tt.fee)
			}
		})
	}
}

func TestContract_StartDate(t *testing.T) {
	c, err := Contract(models.ContractInput{Principal: "1000", MonthlyRate: "1", StartDate: "15/03/2019", DoubleRestitution: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.StartDate == nil || !c.StartDate.Equal(time.Date(2019, time.March, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start date: got %v", c.StartDate)
	}
	if !c.DoubleRestitution {
		t.Error("double restitution flag lost")
	}
}

func TestPayments(t *testing.T) {
	in := []models.PaymentInput{
		{Amount: "150,00", CompetenceDate: "2020-07"},
		{Amount: ""},
		{ID: 9, Amount: "1.050,75", CompetenceDate: "08/2020", SourceLine: "217 RMC 1.050,75"},
		{Amount: "99.90"},
	}

	got, err := Payments(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("candidates: got %d, want 3", len(got))
	}

	if got[0].ID != 1 || got[0].CompetenceDate == nil || got[0].CompetenceDate.Month() != time.July {
		t.Errorf("candidate 0: %+v", got[0])
	}
	if got[1].ID != 9 || !got[1].Amount.Equal(decimal.RequireFromString("1050.75")) {
		t.Errorf("candidate 1: %+v", got[1])
	}
	if got[2].ID != 4 || got[2].CompetenceDate != nil || !got[2].Amount.Equal(decimal.RequireFromString("99.9")) {
		t.Errorf("candidate 2: %+v", got[2])
	}
}

func TestPayments_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   []models.PaymentInput
	}{
		{"bad amount", []models.PaymentInput{{Amount: "cento e cinquenta"}}},
		{"bad date", []models.PaymentInput{{Amount: "150,00", CompetenceDate: "julho"}}},
		{"negative amount", []models.PaymentInput{{Amount: "-500,00", CompetenceDate: "2020-07"}}},
		{"parenthesized amount", []models.PaymentInput{{Amount: "(150,00)"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Payments(tt.in); !errors.Is(err, ErrInvalidPaymentInput) {
				t.Errorf("expected ErrInvalidPaymentInput, got %v", err)
			}
		})
	}
}

func TestAmountUnmarshal(t *testing.T) {
	var in models.ContractInput
	body := `{"principal": 1500.5, "monthlyRate": "2,5", "feePercent": null}`
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	c, err := Contract(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Principal.Equal(decimal.RequireFromString("1500.5")) {
		t.Errorf("principal: got %s", c.Principal)
	}
	if !c.MonthlyRate.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("rate: got %s", c.MonthlyRate)
	}
}

func TestClient(t *testing.T) {
	c := Client(models.ClientInput{Name: " MARIA ", CPF: "111.222.333-44", BirthDate: "1950-05-10"})
	if c.Name != "MARIA" || c.CPF != "111.222.333-44" {
		t.Errorf("unexpected client: %+v", c)
	}
	if c.BirthDate == nil || c.BirthDate.Year() != 1950 {
		t.Errorf("birth date: got %v", c.BirthDate)
	}

	if Client(models.ClientInput{BirthDate: "n/a"}).BirthDate != nil {
		t.Error("unreadable birth date should be ignored")
	}
}

func TestAmountUnmarshal_Origin(t *testing.T) {
	var in models.ContractInput
	body := `{"principal": "1.500", "monthlyRate": 1.234, "feePercent": 2e1}`
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	c, err := Contract(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// a display string groups thousands, a JSON number is a dotted decimal
	if !c.Principal.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("principal: got %s, want 1500", c.Principal)
	}
	if !c.MonthlyRate.Equal(decimal.RequireFromString("1.234")) {
		t.Errorf("rate: got %s, want 1.234", c.MonthlyRate)
	}
	if !c.FeePercent.Equal(decimal.NewFromInt(20)) {
		t.Errorf("fee: got %s, want 20", c.FeePercent)
	}
}

func TestAmountFromDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want models.Amount
	}{
		{"1500", "1500"},
		{"1.5", "1,5"},
		{"1050.75", "1050,75"},
		{"-12.5", "-12,5"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d := decimal.RequireFromString(tt.in)
			got := models.AmountFromDecimal(d)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			back, err := Payments([]models.PaymentInput{{Amount: got}})
			if d.IsNegative() {
				if !errors.Is(err, ErrInvalidPaymentInput) {
					t.Errorf("negative amount: got %v", err)
				}
				return
			}
			if err != nil || !back[0].Amount.Equal(d) {
				t.Errorf("round trip: got %v (err=%v)", back, err)
			}
		})
	}
}
