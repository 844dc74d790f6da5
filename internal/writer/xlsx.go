package writer

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/rmc-recalc/internal/report"
)

const (
	evolutionSheet = "Evolução"
	summarySheet   = "Resumo"
)

var moneyFormat = `#,##0.00;[Red]-#,##0.00`

// XLSXWriter writes a report as an Excel workbook with an evolution sheet
// and a summary sheet.
type XLSXWriter struct{}

// WriteToFile writes the workbook to path.
func (w *XLSXWriter) WriteToFile(path string, r *report.Report) error {
	f, err := w.build(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %q: %w", path, err)
	}
	return nil
}

// Write writes the workbook to out.
func (w *XLSXWriter) Write(out io.Writer, r *report.Report) error {
	f, err := w.build(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (w *XLSXWriter) build(r *report.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", evolutionSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to add sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFormat})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeEvolution(f, r, bold, money); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSummary(f, r, bold, money); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeEvolution(f *excelize.File, r *report.Report, bold, money int) error {
	header := make([]interface{}, len(evolutionHeader))
	for i, h := range evolutionHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(evolutionSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	rowNum := 2
	for _, row := range r.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		values := []interface{}{
			row.ID,
			row.ReferenceDate.Format("01/2006"),
			num(row.PriorBalance),
			num(row.Interest),
			num(row.DisplayAmortization),
			num(row.CurrentBalance),
			num(row.AmountPaid),
			num(row.EligibleRestitution),
			num(row.RestitutionAmount),
		}
		if err := f.SetSheetRow(evolutionSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row.ID, err)
		}
		rowNum++
	}

	cell, _ := excelize.CoordinatesToCellName(1, rowNum)
	totals := []interface{}{
		"", "TOTAL", "",
		num(r.Totals.Interest),
		num(r.Totals.DisplayAmortization),
		"",
		num(r.Totals.Paid),
		num(r.Totals.Eligible),
		num(r.Totals.Restitution),
	}
	if err := f.SetSheetRow(evolutionSheet, cell, &totals); err != nil {
		return fmt.Errorf("failed to write totals: %w", err)
	}

	last, _ := excelize.CoordinatesToCellName(len(evolutionHeader), rowNum)
	if err := f.SetCellStyle(evolutionSheet, "C2", last, money); err != nil {
		return err
	}
	if err := f.SetCellStyle(evolutionSheet, "A1", "I1", bold); err != nil {
		return err
	}
	totalsStart, _ := excelize.CoordinatesToCellName(1, rowNum)
	totalsLabel, _ := excelize.CoordinatesToCellName(2, rowNum)
	if err := f.SetCellStyle(evolutionSheet, totalsStart, totalsLabel, bold); err != nil {
		return err
	}
	return f.SetColWidth(evolutionSheet, "B", "I", 16)
}

func writeSummary(f *excelize.File, r *report.Report, bold, money int) error {
	rows := [][]interface{}{
		{"Cliente", r.Client.Name},
		{"CPF", r.Client.CPF},
		{"Benefício", r.Client.BenefitNumber},
		{"Valor Contratado", num(r.Contract.Principal)},
		{"Taxa Mensal (%)", num(r.Contract.MonthlyRate)},
		{"Restituição em Dobro", yesNo(r.Contract.DoubleRestitution)},
		{"Total Pago", num(r.Summary.TotalPaid)},
		{"Saldo Devedor", num(r.Summary.CurrentDebtBalance)},
		{"Indébito Simples", num(r.Board.SimpleUndue)},
		{"Dobra Legal", num(r.Board.LegalDouble)},
		{"Total a Restituir", num(r.Board.TotalRestitution)},
		{"Danos Morais", num(r.Board.MoralDamages)},
		{fmt.Sprintf("Honorários (%s%%)", r.Board.FeePercent.String()), num(r.Board.AttorneyFees)},
		{"Total da Condenação", num(r.Board.TotalAward)},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	last := len(rows)
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", last), bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "B7", fmt.Sprintf("B%d", last), money); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "A", "B", 24)
}

func num(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}
