package parser

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/rmc-recalc/internal/brl"
	"github.com/insightdelivered/rmc-recalc/internal/models"
)

// Options tunes line classification. Markers and noise keywords are
// matched against folded text; purely numeric entries must appear as a
// standalone token.
type Options struct {
	Markers       []string
	NoiseKeywords []string
	MinAmount     decimal.Decimal // exclusive
	MaxAmount     decimal.Decimal // exclusive
	MinYear       int
	MaxYear       int
}

// DefaultOptions returns the classification used for INSS credit history
// statements: rubric 217 ("EMPRESTIMO SOBRE A RMC").
func DefaultOptions() Options {
	return Options{
		Markers: []string{"217", "EMPRESTIMO SOBRE A RMC"},
		NoiseKeywords: []string{
			"INICIAL", "FINAL", "INICIO", "CONCESSAO", "NASCIMENTO", "DATA",
			"BENEFICIO", "MARGEM", "RESERVADA", "101", "EXTRATO", "INSTITUTO",
			"HISTORICO", "GERADO", "PAGINA",
		},
		MinAmount: decimal.NewFromInt(10),
		MaxAmount: decimal.NewFromInt(10000),
		MinYear:   2000,
		MaxYear:   2030,
	}
}

// HiscreParser handles INSS credit history ("HISCRE") statements.
//
// The statement is a line-oriented table where a competence heading
// precedes one or more rubric lines:
//
//	Competência: 07/2020
//	217 EMPRESTIMO SOBRE A RMC          150,00
//
// Each line is classified as noise, a competence marker, a loan debit, or
// nothing. The last valid competence seen is carried to the debit lines
// that follow it.
type HiscreParser struct {
	opts   Options
	marker []matcher
	noise  []matcher
}

// NewHiscreParser builds a parser. Zero-valued bounds fall back to the
// defaults.
func NewHiscreParser(opts Options) *HiscreParser {
	def := DefaultOptions()
	if len(opts.Markers) == 0 {
		opts.Markers = def.Markers
	}
	if opts.NoiseKeywords == nil {
		opts.NoiseKeywords = def.NoiseKeywords
	}
	if opts.MinAmount.IsZero() && opts.MaxAmount.IsZero() {
		opts.MinAmount, opts.MaxAmount = def.MinAmount, def.MaxAmount
	}
	if opts.MinYear == 0 && opts.MaxYear == 0 {
		opts.MinYear, opts.MaxYear = def.MinYear, def.MaxYear
	}

	p := &HiscreParser{opts: opts}
	for _, m := range opts.Markers {
		p.marker = append(p.marker, newMatcher(m))
	}
	for _, k := range opts.NoiseKeywords {
		p.noise = append(p.noise, newMatcher(k))
	}
	return p
}

func (p *HiscreParser) Name() string {
	return "INSS HISCRE"
}

// scanState is the accumulator threaded through the line scan.
type scanState struct {
	cursor *time.Time
	nextID int
	info   *models.StatementInfo
}

// Parse classifies every line of text. When no candidate is found it
// returns the populated info together with ErrNoRecordsFound.
func (p *HiscreParser) Parse(text string) (*models.StatementInfo, error) {
	info := &models.StatementInfo{}
	info.Client = extractClient(text)

	st := &scanState{nextID: 1, info: info}
	for i, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		p.scanLine(st, i+1, raw)
	}

	if len(info.Candidates) == 0 {
		return info, ErrNoRecordsFound
	}
	return info, nil
}

func (p *HiscreParser) scanLine(st *scanState, lineNum int, raw string) {
	line := normalizeLine(raw)
	if line == "" {
		return
	}
	debug := models.DebugLine{LineNum: lineNum, Text: line, Result: "skipped"}
	defer func() { st.info.DebugLines = append(st.info.DebugLines, debug) }()

	if kw, ok := anyMatch(p.noise, line); ok {
		debug.Result, debug.Reason = "noise", "keyword "+kw
		return
	}
	if timePattern.MatchString(line) {
		debug.Result, debug.Reason = "noise", "time of day"
		return
	}

	if date, ok := extractCompetence(line, p.opts.MinYear, p.opts.MaxYear); ok {
		st.cursor = &date
		debug.Result, debug.Reason = "date", brl.FormatMonth(date)
	}

	if _, ok := anyMatch(p.marker, line); !ok {
		return
	}

	amountStr := extractAmount(line)
	if amountStr == "" {
		debug.Result, debug.Reason = "rejected", "marker without amount"
		return
	}
	amount, err := brl.ParseAmount(amountStr)
	if err != nil {
		if errors.Is(err, brl.ErrMalformedNumber) {
			debug.Result = "malformed"
		} else {
			debug.Result = "rejected"
		}
		debug.Reason = err.Error()
		return
	}
	if !amount.GreaterThan(p.opts.MinAmount) || !amount.LessThan(p.opts.MaxAmount) {
		debug.Result, debug.Reason = "rejected", "amount out of range "+amountStr
		return
	}

	cand := models.PaymentCandidate{
		ID:         st.nextID,
		Amount:     amount,
		SourceLine: line,
	}
	if st.cursor != nil {
		d := *st.cursor
		cand.CompetenceDate = &d
	}
	st.nextID++
	st.info.Candidates = append(st.info.Candidates, cand)
	debug.Result, debug.Reason = "payment", amountStr
}

func extractClient(text string) models.Client {
	folded := brl.Fold(text)
	return models.Client{
		Name:          extractNameNearLabel(text, []string{"NOME DO BENEFICIARIO", "NOME DO SEGURADO", "NOME"}),
		CPF:           findCPF(text),
		BenefitNumber: findBenefitNumber(folded),
		BirthDate:     findBirthDate(folded),
	}
}
