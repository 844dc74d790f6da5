// Package service wires the parser, reconciler, engine and report builder
// into the operations exposed by the CLI and the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/insightdelivered/rmc-recalc/internal/brl"
	"github.com/insightdelivered/rmc-recalc/internal/config"
	"github.com/insightdelivered/rmc-recalc/internal/engine"
	"github.com/insightdelivered/rmc-recalc/internal/extractor"
	"github.com/insightdelivered/rmc-recalc/internal/input"
	"github.com/insightdelivered/rmc-recalc/internal/models"
	"github.com/insightdelivered/rmc-recalc/internal/parser"
	"github.com/insightdelivered/rmc-recalc/internal/rates"
	"github.com/insightdelivered/rmc-recalc/internal/reconcile"
	"github.com/insightdelivered/rmc-recalc/internal/report"
)

// ErrRatesDisabled is returned by LookupRate when no provider is set.
var ErrRatesDisabled = errors.New("rate lookup is not configured")

// Warnings surfaced next to results.
const (
	WarnDegradedDates = "no competence date found in the statement; months were anchored on the current month and are only relative"
	WarnNotHiscre     = "text does not look like an INSS credit history statement"
)

// ExtractResult is the outcome of reading a statement.
type ExtractResult struct {
	Client     models.Client          `json:"client"`
	Records    []models.PaymentRecord `json:"records"`
	Degraded   bool                   `json:"degraded"`
	Warnings   []string               `json:"warnings,omitempty"`
	DebugLines []models.DebugLine     `json:"debugLines,omitempty"`
	RawText    string                 `json:"rawText,omitempty"`
	Source     *extractor.Result      `json:"source,omitempty"`
}

// CalculateRequest carries a contract and payments as entered or edited
// by the user.
type CalculateRequest struct {
	Contract models.ContractInput  `json:"contract"`
	Payments []models.PaymentInput `json:"payments"`
}

// CalculateResult is a full recalculation.
type CalculateResult struct {
	Contract  models.Contract        `json:"contract"`
	Records   []models.PaymentRecord `json:"records"`
	Evolution *models.Evolution      `json:"evolution"`
	Degraded  bool                   `json:"degraded"`
	Warnings  []string               `json:"warnings,omitempty"`
}

// ReportRequest adds the client block to a calculation.
type ReportRequest struct {
	Client   models.ClientInput    `json:"client"`
	Contract models.ContractInput  `json:"contract"`
	Payments []models.PaymentInput `json:"payments"`
	Format   string                `json:"format,omitempty"`
	// Encoding applies to CSV only: "utf-8" (default) or "windows-1252".
	Encoding string `json:"encoding,omitempty"`
}

// Service defines the recalculation operations.
type Service interface {
	Extract(ctx context.Context, text string) (*ExtractResult, error)
	ExtractFile(ctx context.Context, path string) (*ExtractResult, error)
	Calculate(req CalculateRequest) (*CalculateResult, error)
	Report(req ReportRequest) (*report.Report, error)
	LookupRate(ctx context.Context, date time.Time) (decimal.Decimal, error)
}

type service struct {
	parser    *parser.HiscreParser
	engine    *engine.Engine
	extractor *extractor.Extractor
	rates     rates.Provider
	logger    *zap.Logger
	now       func() time.Time
}

// NewService builds the service from configuration. A nil cfg uses the
// built-in defaults. rates may be nil to disable lookups.
func NewService(cfg *config.Config, logger *zap.Logger, rp rates.Provider) (Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	popts, err := cfg.ParserOptions()
	if err != nil {
		return nil, err
	}
	eopts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	return &service{
		parser:    parser.NewHiscreParser(popts),
		engine:    engine.New(eopts, logger.Named("engine")),
		extractor: extractor.New(cfg.OCR.Language, logger.Named("extractor")),
		rates:     rp,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Extract parses and reconciles statement text. When nothing is found the
// partial result, with its debug lines, is returned along with
// parser.ErrNoRecordsFound.
func (s *service) Extract(ctx context.Context, text string) (*ExtractResult, error) {
	info, err := s.parser.Parse(text)
	res := &ExtractResult{RawText: text}
	if info != nil {
		res.Client = info.Client
		res.DebugLines = info.DebugLines
	}
	if !parser.LooksLikeHiscre(text) {
		res.Warnings = append(res.Warnings, WarnNotHiscre)
	}
	if err != nil {
		s.logger.Info("no payment records found", zap.Int("lines", len(res.DebugLines)))
		return res, err
	}

	rec := reconcile.Reconcile(info.Candidates, s.now())
	res.Records = rec.Records
	res.Degraded = rec.Degraded
	if rec.Degraded {
		res.Warnings = append(res.Warnings, WarnDegradedDates)
		s.logger.Warn("competence dates anchored on current month", zap.Int("records", len(rec.Records)))
	}

	s.logger.Info("statement parsed",
		zap.String("parser", s.parser.Name()),
		zap.Int("records", len(res.Records)),
		zap.Bool("degraded", res.Degraded),
	)
	return res, nil
}

// ExtractFile extracts the text of a statement file and parses it.
func (s *service) ExtractFile(ctx context.Context, path string) (*ExtractResult, error) {
	src, err := s.extractor.ExtractFile(ctx, path)
	if err != nil {
		return nil, err
	}
	res, err := s.Extract(ctx, src.Text)
	if res != nil {
		res.Source = &extractor.Result{Pages: src.Pages, Method: src.Method}
	}
	return res, err
}

// Calculate converts the inputs, reconciles the payment dates and runs
// the engine.
func (s *service) Calculate(req CalculateRequest) (*CalculateResult, error) {
	contract, err := input.Contract(req.Contract)
	if err != nil {
		return nil, err
	}
	cands, err := input.Payments(req.Payments)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, engine.ErrNoPayments
	}

	rec := reconcile.Reconcile(cands, s.now())
	evo, err := s.engine.Compute(contract, rec.Records)
	if err != nil {
		return nil, err
	}

	res := &CalculateResult{
		Contract:  contract,
		Records:   rec.Records,
		Evolution: evo,
		Degraded:  rec.Degraded,
	}
	if rec.Degraded {
		res.Warnings = append(res.Warnings, WarnDegradedDates)
	}
	if contract.StartDate != nil {
		first := rec.Records[0].CompetenceDate
		if first.Before(brl.NormalizeMonth(*contract.StartDate)) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("first payment %s is before the contract start %s",
				brl.FormatMonth(first), contract.StartDate.Format("02/01/2006")))
		}
	}

	s.logger.Info("evolution computed",
		zap.Int("rows", len(evo.Rows)),
		zap.String("total_paid", evo.Summary.TotalPaid.StringFixed(2)),
		zap.String("total_restitution", evo.Summary.TotalRestitution.StringFixed(2)),
	)
	return res, nil
}

// Report runs a calculation and shapes it for rendering.
func (s *service) Report(req ReportRequest) (*report.Report, error) {
	calc, err := s.Calculate(CalculateRequest{Contract: req.Contract, Payments: req.Payments})
	if err != nil {
		return nil, err
	}
	return report.Build(input.Client(req.Client), calc.Contract, calc.Evolution, s.now()), nil
}

// LookupRate asks the rate provider for the month of date.
func (s *service) LookupRate(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	if s.rates == nil {
		return decimal.Zero, ErrRatesDisabled
	}
	v, err := s.rates.MonthlyRate(ctx, date)
	if err != nil {
		s.logger.Warn("rate lookup failed", zap.Time("date", date), zap.Error(err))
		return decimal.Zero, err
	}
	return v, nil
}
