package parser

import (
	"errors"
	"strings"

	"github.com/insightdelivered/rmc-recalc/internal/brl"
	"github.com/insightdelivered/rmc-recalc/internal/models"
)

// ErrNoRecordsFound is returned when a statement yields no payment
// candidates. The returned StatementInfo is still populated so callers can
// show the debug lines.
var ErrNoRecordsFound = errors.New("no matching payment records found")

// Parser defines the interface for statement parsers.
type Parser interface {
	// Parse takes the full extracted text and returns the detected candidates.
	Parse(text string) (*models.StatementInfo, error)
	// Name returns the human-readable statement type.
	Name() string
}

// hiscreIdentifiers are strings found in INSS credit history statements.
var hiscreIdentifiers = []string{
	"HISTORICO DE CREDITOS",
	"HISCRE",
	"INSTITUTO NACIONAL DO SEGURO SOCIAL",
	"INSS",
}

// LooksLikeHiscre reports whether the text resembles an INSS credit
// history statement. A false result is only a hint; parsing still runs.
func LooksLikeHiscre(text string) bool {
	folded := brl.Fold(text)
	for _, id := range hiscreIdentifiers {
		if strings.Contains(folded, id) {
			return true
		}
	}
	return false
}
