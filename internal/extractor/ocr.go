package extractor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultLanguage is the Tesseract language pack used for statements.
const DefaultLanguage = "por"

// ocrDPI keeps the small digits of the HISCRE value column legible.
const ocrDPI = "300"

// ErrToolMissing is returned when an external command is not on PATH.
var ErrToolMissing = errors.New("required tool not installed")

// requireTools checks that every named command is installed.
func requireTools(names ...string) error {
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			return fmt.Errorf("%w: %s", ErrToolMissing, name)
		}
	}
	return nil
}

// IsOCRAvailable reports whether pdftoppm and tesseract are installed.
func IsOCRAvailable() bool {
	return requireTools("pdftoppm", "tesseract") == nil
}

// ExtractTextOCR rasterizes each PDF page with pdftoppm and reads it back
// with Tesseract. It handles scanned statements with no text layer.
func ExtractTextOCR(ctx context.Context, filePath, lang string) ([]string, error) {
	if err := requireTools("pdftoppm", "tesseract"); err != nil {
		return nil, err
	}
	return extractWithOCR(ctx, filePath, lang)
}

func extractWithOCR(ctx context.Context, filePath, lang string) ([]string, error) {
	if !IsOCRAvailable() {
		return nil, fmt.Errorf("%w: pdftoppm or tesseract", ErrToolMissing)
	}

	dir, err := os.MkdirTemp("", "rmc-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	images, err := renderPages(ctx, filePath, dir)
	if err != nil {
		return nil, err
	}

	var pages []string
	for _, img := range images {
		text, err := ocrImage(ctx, img, lang)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil || text == "" {
			continue
		}
		pages = append(pages, text)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("tesseract produced no text from %d page image(s)", len(images))
	}
	return pages, nil
}

// renderPages writes one PNG per page into dir and returns their paths in
// page order.
func renderPages(ctx context.Context, filePath, dir string) ([]string, error) {
	prefix := filepath.Join(dir, "page")
	out, err := exec.CommandContext(ctx, "pdftoppm", "-r", ocrDPI, "-png", filePath, prefix).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, bytes.TrimSpace(out))
	}

	images, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, errors.New("pdftoppm produced no page images")
	}
	// pdftoppm zero-pads page numbers, so lexical order is page order.
	sort.Strings(images)
	return images, nil
}

// ocrImage runs tesseract on one image and returns its text.
func ocrImage(ctx context.Context, imgFile, lang string) (string, error) {
	if lang == "" {
		lang = DefaultLanguage
	}
	// PSM 4: a single column of text of variable sizes
	out, err := exec.CommandContext(ctx, "tesseract", imgFile, "stdout", "-l", lang, "--psm", "4").Output()
	if err != nil {
		return "", fmt.Errorf("tesseract failed for %s: %w", filepath.Base(imgFile), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// pdfPageCount asks pdfinfo for the page count, or returns 0.
func pdfPageCount(ctx context.Context, filePath string) int {
	out, err := exec.CommandContext(ctx, "pdfinfo", filePath).Output()
	if err != nil {
		return 0
	}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if v, ok := strings.CutPrefix(sc.Text(), "Pages:"); ok {
			n, _ := strconv.Atoi(strings.TrimSpace(v))
			return n
		}
	}
	return 0
}
