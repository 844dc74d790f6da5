// Package extractor turns statement files (PDF, scanned images or plain
// text) into a single text string for the parser.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrNoText is returned when no readable text could be obtained.
	ErrNoText = errors.New("no readable text could be extracted; the file may be scanned or use custom font encodings")
	// ErrUnsupportedFile is returned for extensions the extractor does not
	// handle.
	ErrUnsupportedFile = errors.New("unsupported file type")
)

// PageBreak separates pages in the joined text. The parser classifies it
// as noise.
const PageBreak = "\n\n--- PAGINA ---\n\n"

// Method names reported in Result.
const (
	MethodText = "text"
	MethodPDF  = "pdf"
	MethodOCR  = "ocr"
)

// Result is the outcome of an extraction.
type Result struct {
	Text   string `json:"text"`
	Pages  int    `json:"pages"`
	Method string `json:"method"`
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true, ".bmp": true, ".webp": true,
}

// Extractor picks an extraction strategy by file extension.
type Extractor struct {
	lang   string
	logger *zap.Logger
}

// New returns an Extractor using the given Tesseract language.
func New(lang string, logger *zap.Logger) *Extractor {
	if lang == "" {
		lang = DefaultLanguage
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{lang: lang, logger: logger}
}

// ExtractFile returns the text of the file at path. PDFs without a usable
// text layer go through OCR when the tools are installed.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(path))
	log := e.logger.With(zap.String("file", filepath.Base(path)))

	switch {
	case ext == ".txt" || ext == ".text":
		text, err := ReadTextFile(path)
		if err != nil {
			return nil, err
		}
		return &Result{Text: text, Pages: 1, Method: MethodText}, nil

	case ext == ".pdf":
		pages, err := ExtractText(ctx, path)
		if err == nil {
			log.Info("extracted text layer", zap.Int("pages", len(pages)))
			return joinPages(pages, MethodPDF), nil
		}
		if !IsOCRAvailable() {
			log.Warn("no text layer and OCR tools missing", zap.Error(err))
			return nil, err
		}
		log.Info("no usable text layer, running OCR", zap.Error(err))
		pages, ocrErr := ExtractTextOCR(ctx, path, e.lang)
		if ocrErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoText, ocrErr)
		}
		return joinPages(pages, MethodOCR), nil

	case imageExts[ext]:
		if !IsOCRAvailable() {
			return nil, fmt.Errorf("%w: OCR tools are not installed", ErrNoText)
		}
		text, err := ocrImage(ctx, path, e.lang)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoText, err)
		}
		log.Info("extracted image text", zap.Int("chars", len(text)))
		return &Result{Text: text, Pages: 1, Method: MethodOCR}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
}

func joinPages(pages []string, method string) *Result {
	return &Result{Text: strings.Join(pages, PageBreak), Pages: len(pages), Method: method}
}

// ReadTextFile reads a plain-text statement. See DecodeText.
func ReadTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", path, err)
	}
	return DecodeText(data), nil
}

// DecodeText returns b as a string, decoding it from ISO-8859-1 when it is
// not valid UTF-8. Statements saved from older INSS systems use Latin-1.
func DecodeText(b []byte) string {
	b = trimBOM(b)
	if utf8.Valid(b) {
		return string(b)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func trimBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}
