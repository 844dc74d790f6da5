package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/insightdelivered/rmc-recalc/internal/api"
	"github.com/insightdelivered/rmc-recalc/internal/brl"
	"github.com/insightdelivered/rmc-recalc/internal/config"
	"github.com/insightdelivered/rmc-recalc/internal/logger"
	"github.com/insightdelivered/rmc-recalc/internal/models"
	"github.com/insightdelivered/rmc-recalc/internal/parser"
	"github.com/insightdelivered/rmc-recalc/internal/rates"
	"github.com/insightdelivered/rmc-recalc/internal/report"
	"github.com/insightdelivered/rmc-recalc/internal/service"
	"github.com/insightdelivered/rmc-recalc/internal/writer"
)

const version = "1.0.0"

type options struct {
	principal string
	rate      string
	double    bool
	start     string
	fees      string
	fetchRate bool
	output    string
	cp1252    bool
	debug     bool
}

func main() {
	// CLI flags
	configFlag := flag.String("config", "", "Path to a YAML config file (defaults to ./rmc.yaml when present)")
	serveFlag := flag.Bool("serve", false, "Start the HTTP API instead of processing a file")
	staticFlag := flag.String("static", "", "Directory with the web client served by -serve")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	var opts options
	flag.StringVar(&opts.principal, "principal", "", "Amount originally borrowed, e.g. 1.500,00 (omit to only list payments)")
	flag.StringVar(&opts.rate, "rate", "", "Monthly interest rate in percent, e.g. 2,5")
	flag.BoolVar(&opts.double, "double", false, "Apply double restitution to undue payments after the cutoff")
	flag.StringVar(&opts.start, "start", "", "Contract start date, DD/MM/YYYY")
	flag.StringVar(&opts.fees, "fees", "", "Attorney fees in percent of the restitution")
	flag.BoolVar(&opts.fetchRate, "fetch-rate", false, "Look up the reference rate for the first payment month when -rate is omitted")
	flag.StringVar(&opts.output, "output", "", "Write the report to a .csv or .xlsx file")
	flag.BoolVar(&opts.cp1252, "windows1252", false, "Encode a .csv output as Windows-1252 for older Excel versions")
	flag.BoolVar(&opts.debug, "debug", false, "Print how each statement line was classified")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `RMC Restitution Recalculator
by Insight Delivered

Reads an INSS credit history statement (HISCRE), finds the RMC card
discounts (code 217) and recalculates the loan to show what was paid
beyond the debt.

Usage:
  rmc-recalc [flags] <statement.pdf|.txt|.png>
  rmc-recalc -serve

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # List the payments found in a statement
  rmc-recalc hiscre.pdf

  # Recalculate with double restitution and write a spreadsheet
  rmc-recalc -principal=1.500,00 -rate=2,5 -double -output=recalculo.xlsx hiscre.pdf

  # Use the Banco Central reference rate
  rmc-recalc -principal=1500 -fetch-rate hiscre.pdf

  # Run the HTTP API
  rmc-recalc -serve -static=./web/dist
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("rmc-recalc v%s\n", version)
		os.Exit(0)
	}

	if *helpFlag || (!*serveFlag && flag.NArg() != 1) {
		flag.Usage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fatalf("Config error: %v\n", err)
	}
	log := logger.Must(cfg.Log)
	defer log.Sync()

	bcb := rates.NewBCBClient(cfg.Rates.BaseURL, cfg.Rates.Series, cfg.Rates.Timeout, log.Named("rates"))
	svc, err := service.NewService(cfg, log, bcb)
	if err != nil {
		fatalf("Config error: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serveFlag {
		if err := serve(ctx, cfg, svc, log, *staticFlag); err != nil {
			fatalf("Server error: %v\n", err)
		}
		return
	}

	if err := processFile(ctx, svc, flag.Arg(0), opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config, svc service.Service, log *zap.Logger, staticDir string) error {
	h := api.NewHandler(svc, log.Named("api"), version)
	h.StaticDir = staticDir
	app := api.NewApp(h, cfg.Server.BodyLimit)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	log.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("version", version))
	return app.Listen(cfg.Server.Addr)
}

func processFile(ctx context.Context, svc service.Service, inputPath string, opts options) error {
	// Validate input file
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}

	fmt.Printf("Processing: %s\n", inputPath)

	res, err := svc.ExtractFile(ctx, inputPath)
	if res != nil && opts.debug {
		printDebug(res.DebugLines)
	}
	if errors.Is(err, parser.ErrNoRecordsFound) {
		fmt.Println("  Warning: No RMC discounts (code 217) found in the statement.")
		fmt.Println("  Run again with -debug to see how each line was read.")
		return err
	}
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	fmt.Printf("  Extracted text via %s from %d page(s)\n", res.Source.Method, res.Source.Pages)
	if res.Client.Name != "" {
		fmt.Printf("  Client: %s\n", res.Client.Name)
	}
	if res.Client.BenefitNumber != "" {
		fmt.Printf("  Benefit: %s\n", res.Client.BenefitNumber)
	}
	for _, w := range res.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}

	fmt.Printf("  Found %d payment(s)\n", len(res.Records))
	for _, r := range res.Records {
		fmt.Printf("    %s  %15s\n", brl.FormatMonth(r.CompetenceDate), brl.FormatBRL(r.Amount))
	}

	if opts.principal == "" {
		fmt.Println("  Done. Pass -principal and -rate to recalculate.")
		return nil
	}

	rate := models.Amount(opts.rate)
	if rate == "" {
		if !opts.fetchRate {
			return errors.New("-rate is required (or use -fetch-rate)")
		}
		v, err := svc.LookupRate(ctx, res.Records[0].CompetenceDate)
		if err != nil {
			return fmt.Errorf("rate lookup failed, pass -rate instead: %w", err)
		}
		rate = models.AmountFromDecimal(v)
		fmt.Printf("  Reference rate for %s: %s%% a.m.\n", brl.FormatMonth(res.Records[0].CompetenceDate), brl.FormatDecimal(v))
	}

	r, err := svc.Report(service.ReportRequest{
		Client: models.ClientInput{
			Name:          res.Client.Name,
			CPF:           res.Client.CPF,
			BenefitNumber: res.Client.BenefitNumber,
			BirthDate:     birthDate(res.Client),
		},
		Contract: models.ContractInput{
			Principal:         models.Amount(opts.principal),
			MonthlyRate:       rate,
			DoubleRestitution: opts.double,
			StartDate:         opts.start,
			FeePercent:        models.Amount(opts.fees),
		},
		Payments: paymentInputs(res.Records),
	})
	if err != nil {
		return fmt.Errorf("calculation failed: %w", err)
	}

	printSummary(r)

	if opts.output != "" {
		if err := writeReport(opts.output, r, opts.cp1252); err != nil {
			return err
		}
		fmt.Printf("  Output: %s\n", opts.output)
	}

	fmt.Println("  Done.")
	return nil
}

func paymentInputs(records []models.PaymentRecord) []models.PaymentInput {
	out := make([]models.PaymentInput, len(records))
	for i, r := range records {
		out[i] = models.PaymentInput{
			ID:             r.ID,
			CompetenceDate: r.CompetenceDate.Format("2006-01"),
			Amount:         models.AmountFromDecimal(r.Amount),
			SourceLine:     r.SourceLine,
		}
	}
	return out
}

func birthDate(c models.Client) string {
	if c.BirthDate == nil {
		return ""
	}
	return c.BirthDate.Format("2006-01-02")
}

func writeReport(path string, r *report.Report, windows1252 bool) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		w := &writer.CSVWriter{IncludeHeader: true, Windows1252: windows1252}
		if err := w.WriteToFile(path, r); err != nil {
			return fmt.Errorf("CSV write failed: %w", err)
		}
	case ".xlsx":
		if err := (&writer.XLSXWriter{}).WriteToFile(path, r); err != nil {
			return fmt.Errorf("XLSX write failed: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output %q, use .csv or .xlsx", path)
	}
	return nil
}

func printSummary(r *report.Report) {
	b := r.Board
	fmt.Println()
	fmt.Printf("  %-28s %15s\n", "Total paid", brl.FormatBRL(r.Summary.TotalPaid))
	fmt.Printf("  %-28s %15s\n", "Remaining debt", brl.FormatBRL(r.Summary.CurrentDebtBalance))
	fmt.Printf("  %-28s %15s\n", "Simple undue payment", brl.FormatBRL(b.SimpleUndue))
	fmt.Printf("  %-28s %15s\n", "Double restitution", brl.FormatBRL(b.LegalDouble))
	fmt.Printf("  %-28s %15s\n", "Total restitution", brl.FormatBRL(b.TotalRestitution))
	if b.AttorneyFees.IsPositive() {
		fmt.Printf("  %-28s %15s\n", "Attorney fees ("+brl.FormatDecimal(b.FeePercent)+"%)", brl.FormatBRL(b.AttorneyFees))
	}
	fmt.Printf("  %-28s %15s\n", "Total award", brl.FormatBRL(b.TotalAward))
	fmt.Println()
}

func printDebug(lines []models.DebugLine) {
	for _, l := range lines {
		reason := ""
		if l.Reason != "" {
			reason = " (" + l.Reason + ")"
		}
		fmt.Printf("  %4d %-9s %s%s\n", l.LineNum, l.Result, l.Text, reason)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
