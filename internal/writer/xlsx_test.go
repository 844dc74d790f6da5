package writer

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestXLSXWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := &XLSXWriter{}
	if err := w.Write(&buf, sampleReport(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != evolutionSheet || sheets[1] != summarySheet {
		t.Fatalf("unexpected sheets: %v", sheets)
	}

	rows, err := f.GetRows(evolutionSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[0][1] != "Competência" {
		t.Errorf("header: got %q", rows[0][1])
	}
	if rows[2][1] != "06/2021" || rows[2][5] != "-1097.48" {
		t.Errorf("crossing row: got %v", rows[2])
	}
	if rows[3][1] != "TOTAL" {
		t.Errorf("totals label: got %q", rows[3][1])
	}

	award, err := f.GetCellValue(summarySheet, "B14", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("get award: %v", err)
	}
	// 3292,44 + 20% fees
	if award != "3950.93" {
		t.Errorf("total award: got %q, want %q", award, "3950.93")
	}
}
