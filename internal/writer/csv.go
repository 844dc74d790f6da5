package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/insightdelivered/rmc-recalc/internal/brl"
	"github.com/insightdelivered/rmc-recalc/internal/report"
)

// evolutionHeader is shared by the CSV and XLSX outputs.
var evolutionHeader = []string{
	"#", "Competência", "Saldo Anterior", "Juros", "Amortização",
	"Saldo Atual", "Valor Pago", "Indébito", "Restituição",
}

// CSVWriter writes a report's evolution table as semicolon-separated CSV
// with pt-BR decimals, the layout spreadsheet software expects in Brazil.
type CSVWriter struct {
	IncludeHeader bool
	// Windows1252 encodes the output for older Excel versions.
	Windows1252 bool
}

// WriteToFile writes the report to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, r *report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, r)
}

// Write writes the report in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, r *report.Report) error {
	if !w.Windows1252 {
		return w.write(out, r)
	}
	tw := transform.NewWriter(out, charmap.Windows1252.NewEncoder())
	if err := w.write(tw, r); err != nil {
		tw.Close()
		return err
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to encode CSV as Windows-1252: %w", err)
	}
	return nil
}

func (w *CSVWriter) write(out io.Writer, r *report.Report) error {
	writer := csv.NewWriter(out)
	writer.Comma = ';'

	if w.IncludeHeader {
		for _, kv := range metadata(r) {
			if err := writer.Write([]string{"# " + kv[0], kv[1]}); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	if err := writer.Write(evolutionHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range r.Rows {
		record := []string{
			fmt.Sprint(row.ID),
			brl.FormatMonth(row.ReferenceDate),
			brl.FormatDecimal(row.PriorBalance),
			brl.FormatDecimal(row.Interest),
			brl.FormatDecimal(row.DisplayAmortization),
			brl.FormatDecimal(row.CurrentBalance),
			brl.FormatDecimal(row.AmountPaid),
			brl.FormatDecimal(row.EligibleRestitution),
			brl.FormatDecimal(row.RestitutionAmount),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	totals := []string{
		"", "TOTAL", "",
		brl.FormatDecimal(r.Totals.Interest),
		brl.FormatDecimal(r.Totals.DisplayAmortization),
		"",
		brl.FormatDecimal(r.Totals.Paid),
		brl.FormatDecimal(r.Totals.Eligible),
		brl.FormatDecimal(r.Totals.Restitution),
	}
	if err := writer.Write(totals); err != nil {
		return fmt.Errorf("failed to write CSV totals: %w", err)
	}

	writer.Flush()
	return writer.Error()
}

// metadata returns the label/value pairs printed above the table. Empty
// values are left out.
func metadata(r *report.Report) [][2]string {
	var out [][2]string
	add := func(k, v string) {
		if v != "" {
			out = append(out, [2]string{k, v})
		}
	}
	add("Relatório", r.ID)
	add("Gerado em", r.GeneratedAt.Format("02/01/2006 15:04"))
	add("Cliente", r.Client.Name)
	add("CPF", r.Client.CPF)
	add("Benefício", r.Client.BenefitNumber)
	if r.Client.Age != nil {
		add("Idade", fmt.Sprintf("%d anos", *r.Client.Age))
	}
	add("Valor Contratado", brl.FormatBRL(r.Contract.Principal))
	add("Taxa Mensal (%)", brl.FormatDecimal(r.Contract.MonthlyRate))
	if r.Contract.DoubleRestitution {
		add("Restituição", "Em dobro")
	} else {
		add("Restituição", "Simples")
	}
	add("Total Pago", brl.FormatBRL(r.Summary.TotalPaid))
	add("Saldo Devedor", brl.FormatBRL(r.Summary.CurrentDebtBalance))
	add("Indébito Simples", brl.FormatBRL(r.Board.SimpleUndue))
	add("Dobra Legal", brl.FormatBRL(r.Board.LegalDouble))
	add("Total a Restituir", brl.FormatBRL(r.Board.TotalRestitution))
	add("Honorários", brl.FormatBRL(r.Board.AttorneyFees))
	add("Total da Condenação", brl.FormatBRL(r.Board.TotalAward))
	return out
}
