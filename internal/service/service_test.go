package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/rmc-recalc/internal/config"
	"github.com/insightdelivered/rmc-recalc/internal/engine"
	"github.com/insightdelivered/rmc-recalc/internal/input"
	"github.com/insightdelivered/rmc-recalc/internal/models"
	"github.com/insightdelivered/rmc-recalc/internal/parser"
)

const statement = `INSTITUTO NACIONAL DO SEGURO SOCIAL
HISCRE - Histórico de Créditos
Nome: MARIA SOUZA  CPF: 111.222.333-44
217 EMPRESTIMO SOBRE A RMC 150,00
Competência: 08/2020
217 EMPRESTIMO SOBRE A RMC 150,00
Competência: 08/2020
217 EMPRESTIMO SOBRE A RMC 150,00
`

type stubRates struct {
	rate decimal.Decimal
	err  error
}

func (s stubRates) MonthlyRate(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	return s.rate, s.err
}

func newTestService(t *testing.T, rp stubRates) *service {
	t.Helper()
	svc, err := NewService(nil, nil, rp)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	s := svc.(*service)
	s.now = func() time.Time { return time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestNewService_Config(t *testing.T) {
	badCutoff := config.Default()
	badCutoff.Engine.DoubleCutoff = "30/03/2021"
	badRange := config.Default()
	badRange.Parser.MaxAmount = "1"

	tests := []struct {
		name    string
		cfg     *config.Config
		wantErr bool
	}{
		{"built-in defaults", nil, false},
		{"explicit defaults", config.Default(), false},
		{"bad cutoff", badCutoff, true},
		{"bad amount range", badRange, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(tt.cfg, nil, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewService() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	s := newTestService(t, stubRates{})

	res, err := s.Extract(context.Background(), statement)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Client.Name != "MARIA SOUZA" {
		t.Errorf("client name: got %q", res.Client.Name)
	}
	if res.Degraded || len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}

	want := []string{"2020-07", "2020-08", "2020-09"}
	if len(res.Records) != len(want) {
		t.Fatalf("records: got %d, want %d", len(res.Records), len(want))
	}
	for i, w := range want {
		if got := res.Records[i].CompetenceDate.Format("2006-01"); got != w {
			t.Errorf("record %d: got %s, want %s", i, got, w)
		}
	}
}

func TestExtract_Degraded(t *testing.T) {
	s := newTestService(t, stubRates{})

	res, err := s.Extract(context.Background(), "INSS\n217 RMC 150,00\n217 RMC 150,00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Degraded {
		t.Error("expected degraded result")
	}
	if res.Records[1].CompetenceDate.Format("2006-01") != "2024-03" {
		t.Errorf("anchor: got %s", res.Records[1].CompetenceDate)
	}
}

func TestExtract_NoRecords(t *testing.T) {
	s := newTestService(t, stubRates{})

	res, err := s.Extract(context.Background(), "some unrelated text 12,00")
	if !errors.Is(err, parser.ErrNoRecordsFound) {
		t.Fatalf("expected ErrNoRecordsFound, got %v", err)
	}
	if res == nil || res.RawText == "" {
		t.Error("expected raw text alongside the error")
	}
	if len(res.Warnings) != 1 || res.Warnings[0] != WarnNotHiscre {
		t.Errorf("warnings: got %v", res.Warnings)
	}
}

func TestExtractFile(t *testing.T) {
	s := newTestService(t, stubRates{})
	path := filepath.Join(t.TempDir(), "hiscre.txt")
	if err := os.WriteFile(path, []byte(statement), 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := s.ExtractFile(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source == nil || res.Source.Method != "text" {
		t.Errorf("source: got %+v", res.Source)
	}
	if len(res.Records) != 3 {
		t.Errorf("records: got %d", len(res.Records))
	}
}

func TestCalculate(t *testing.T) {
	s := newTestService(t, stubRates{})

	res, err := s.Calculate(CalculateRequest{
		Contract: models.ContractInput{Principal: "1.000,00", MonthlyRate: "2", StartDate: "2020-09-10"},
		Payments: []models.PaymentInput{
			{Amount: "100,00", CompetenceDate: "2020-07"},
			{Amount: "100,00"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := res.Evolution.Rows
	if len(rows) != 2 {
		t.Fatalf("rows: got %d", len(rows))
	}
	if !rows[0].CurrentBalance.Equal(decimal.NewFromInt(920)) {
		t.Errorf("first balance: got %s", rows[0].CurrentBalance)
	}
	// 920 + 18,40 - 100
	if !rows[1].CurrentBalance.Equal(decimal.RequireFromString("838.40")) {
		t.Errorf("second balance: got %s", rows[1].CurrentBalance)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "before the contract start") {
		t.Errorf("warnings: got %v", res.Warnings)
	}
}

func TestCalculate_Errors(t *testing.T) {
	s := newTestService(t, stubRates{})

	tests := []struct {
		name string
		req  CalculateRequest
		want error
	}{
		{
			name: "missing principal",
			req:  CalculateRequest{Contract: models.ContractInput{MonthlyRate: "2"}, Payments: []models.PaymentInput{{Amount: "10,50"}}},
			want: input.ErrInvalidContractInput,
		},
		{
			name: "no payments",
			req:  CalculateRequest{Contract: models.ContractInput{Principal: "1000", MonthlyRate: "2"}},
			want: engine.ErrNoPayments,
		},
		{
			name: "negative payment",
			req:  CalculateRequest{Contract: models.ContractInput{Principal: "1000", MonthlyRate: "2"}, Payments: []models.PaymentInput{{Amount: "-500,00"}}},
			want: input.ErrInvalidPaymentInput,
		},
		{
			name: "bad payment",
			req:  CalculateRequest{Contract: models.ContractInput{Principal: "1000", MonthlyRate: "2"}, Payments: []models.PaymentInput{{Amount: "x"}}},
			want: input.ErrInvalidPaymentInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Calculate(tt.req); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReport(t *testing.T) {
	s := newTestService(t, stubRates{})

	r, err := s.Report(ReportRequest{
		Client:   models.ClientInput{Name: "MARIA", BirthDate: "10/05/1950"},
		Contract: models.ContractInput{Principal: "50", MonthlyRate: "0", DoubleRestitution: true, FeePercent: "10"},
		Payments: []models.PaymentInput{{Amount: "100", CompetenceDate: "2021-06"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Client.Age == nil || *r.Client.Age != 73 {
		t.Errorf("age: got %v", r.Client.Age)
	}
	// 50 simple + 100 doubled = 150, plus 10% fees
	if !r.Board.TotalAward.Equal(decimal.NewFromInt(165)) {
		t.Errorf("total award: got %s", r.Board.TotalAward)
	}
}

func TestLookupRate(t *testing.T) {
	s := newTestService(t, stubRates{rate: decimal.RequireFromString("1.8")})
	got, err := s.LookupRate(context.Background(), time.Now())
	if err != nil || !got.Equal(decimal.RequireFromString("1.8")) {
		t.Errorf("got %s (err=%v)", got, err)
	}

	failing := newTestService(t, stubRates{err: errors.New("down")})
	if _, err := failing.LookupRate(context.Background(), time.Now()); err == nil {
		t.Error("expected provider error")
	}

	svc, _ := NewService(nil, nil, nil)
	if _, err := svc.LookupRate(context.Background(), time.Now()); !errors.Is(err, ErrRatesDisabled) {
		t.Errorf("expected ErrRatesDisabled, got %v", err)
	}
}
