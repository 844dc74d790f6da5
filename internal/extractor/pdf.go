package extractor

import (
	"context"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/rmc-recalc/internal/brl"
)

// Readability thresholds for an extracted text layer.
const (
	minTextChars     = 50
	minReadableRatio = 0.6
)

// columnGap is the horizontal distance, in points, treated as a column
// break. HISCRE tables put the rubric, description and value in separate
// columns.
const columnGap = 15

// ExtractText returns the text of each page of a PDF. The ledongthuc/pdf
// reader is tried first, then poppler's pdftotext. Scanned statements have
// no text layer and fail with ErrNoText; callers then go to OCR.
func ExtractText(ctx context.Context, filePath string) ([]string, error) {
	pages, libErr := readWithLibrary(filePath)
	if libErr == nil && measure(pages).usable() {
		return pages, nil
	}

	if pages, err := readWithPdftotext(ctx, filePath); err == nil && measure(pages).usable() {
		return pages, nil
	}

	if libErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoText, libErr)
	}
	return nil, ErrNoText
}

// textStats summarizes an extraction attempt. A usable result looks like a
// correctly decoded statement rather than glyph soup from a custom font
// encoding.
type textStats struct {
	chars    int
	readable int
	known    bool // contains at least one word every statement has
}

func (s textStats) usable() bool {
	if s.chars <= minTextChars || !s.known {
		return false
	}
	return float64(s.readable)/float64(s.chars) > minReadableRatio
}

// statementWords appear in virtually every INSS statement.
var statementWords = []string{
	"BENEFICIO", "COMPETENCIA", "CREDITO", "VALOR", "INSS", "NOME", "CPF",
	"RUBRICA", "DESCONTO", "EMPRESTIMO", "RMC", "TOTAL", "DATA", "PAGINA",
}

func measure(pages []string) textStats {
	var s textStats
	for _, page := range pages {
		page = strings.TrimSpace(page)
		for _, r := range page {
			s.chars++
			if readableRune(r) {
				s.readable++
			}
		}
	}
	if s.chars == 0 {
		return s
	}

	folded := brl.Fold(strings.Join(pages, " "))
	for _, w := range statementWords {
		if strings.Contains(folded, w) {
			s.known = true
			break
		}
	}
	return s
}

func readableRune(r rune) bool {
	switch {
	case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		return true
	case unicode.IsSpace(r):
		return true
	}
	return strings.ContainsRune("áàâãéêíóôõúüçÁÀÂÃÉÊÍÓÔÕÚÜÇºª.,-/:;()'\"$%&@#!?+=*_", r)
}

// pageReader extracts all pages of an open document one way.
type pageReader func(r *pdf.Reader) []string

// libraryReaders are tried in order until one yields readable text.
var libraryReaders = []pageReader{readRows, readPositioned, readPagePlain, readDocumentPlain}

// readWithLibrary opens the PDF once and runs each pageReader. The
// library panics on some malformed files; that is reported as an error.
func readWithLibrary(filePath string) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("PDF library crashed: %v", rec)
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if r.NumPage() == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	for _, read := range libraryReaders {
		pages = read(r)
		if measure(pages).usable() {
			return pages, nil
		}
	}
	return pages, nil
}

// eachPage calls fn for every non-empty page and collects the non-blank
// results.
func eachPage(r *pdf.Reader, fn func(p pdf.Page) string) []string {
	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		if text := strings.TrimSpace(fn(p)); text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

// readRows joins the words of each text row reported by the library.
func readRows(r *pdf.Reader) []string {
	return eachPage(r, func(p pdf.Page) string {
		rows, err := p.GetTextByRow()
		if err != nil {
			return ""
		}
		var lines []string
		for _, row := range rows {
			words := make([]string, len(row.Content))
			for i, w := range row.Content {
				words[i] = w.S
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		return strings.Join(lines, "\n")
	})
}

// readPositioned rebuilds lines from positioned text: pieces sharing a
// rounded Y form a line, top to bottom, ordered by X, with a double space
// at column gaps.
func readPositioned(r *pdf.Reader) []string {
	return eachPage(r, func(p pdf.Page) string {
		byY := make(map[int][]pdf.Text)
		for _, t := range p.Content().Text {
			if strings.TrimSpace(t.S) != "" {
				y := int(math.Round(t.Y))
				byY[y] = append(byY[y], t)
			}
		}

		ys := make([]int, 0, len(byY))
		for y := range byY {
			ys = append(ys, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(ys)))

		var b strings.Builder
		for _, y := range ys {
			items := byY[y]
			sort.Slice(items, func(i, j int) bool { return items[i].X < items[j].X })
			for i, t := range items {
				if i > 0 && t.X-items[i-1].X > columnGap {
					b.WriteString("  ")
				}
				b.WriteString(t.S)
			}
			b.WriteByte('\n')
		}
		return b.String()
	})
}

func readPagePlain(r *pdf.Reader) []string {
	return eachPage(r, func(p pdf.Page) string {
		fonts := make(map[string]*pdf.Font)
		for _, name := range p.Fonts() {
			f := p.Font(name)
			fonts[name] = &f
		}
		text, err := p.GetPlainText(fonts)
		if err != nil {
			return ""
		}
		return text
	})
}

// readDocumentPlain returns the whole document as a single page.
func readDocumentPlain(r *pdf.Reader) []string {
	rd, err := r.GetPlainText()
	if err != nil {
		return nil
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		return []string{text}
	}
	return nil
}

// readWithPdftotext runs pdftotext once per page to keep page boundaries,
// falling back to a single whole-document run.
func readWithPdftotext(ctx context.Context, filePath string) ([]string, error) {
	if err := requireTools("pdftotext"); err != nil {
		return nil, err
	}

	n := pdfPageCount(ctx, filePath)
	var pages []string
	for i := 1; i <= n; i++ {
		page := strconv.Itoa(i)
		text, err := pdftotext(ctx, filePath, "-f", page, "-l", page)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == nil && text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) > 0 {
		return pages, nil
	}

	text, err := pdftotext(ctx, filePath)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("pdftotext produced no output")
	}
	return []string{text}, nil
}

func pdftotext(ctx context.Context, filePath string, extra ...string) (string, error) {
	args := append([]string{"-layout", "-enc", "UTF-8"}, extra...)
	args = append(args, filePath, "-")
	out, err := exec.CommandContext(ctx, "pdftotext", args...).Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
