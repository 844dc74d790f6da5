package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/insightdelivered/rmc-recalc/internal/brl"
)

var (
	// DD/MM/YYYY or MM/YYYY, slash- or dot-separated
	datePattern = regexp.MustCompile(`(?:^|[^\d])(?:(\d{1,2})[/.])?(\d{1,2})[/.](\d{4})(?:[^\d]|$)`)
	// HH:MM printing timestamps
	timePattern = regexp.MustCompile(`(?:^|[^\d])([01]?\d|2[0-3]):[0-5]\d(?:[^\d]|$)`)
	// 1.234,56 or 150,00, never preceded by another digit or separator
	amountPattern = regexp.MustCompile(`(?:^|[^\d.,])((?:\d{1,3}(?:\.\d{3})+|\d+),\d{2})(?:[^\d]|$)`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// normalizeLine folds case and accents, collapses whitespace and repairs
// digit/letter confusions produced by OCR.
func normalizeLine(line string) string {
	line = brl.Fold(line)
	line = strings.TrimSpace(whitespace.ReplaceAllString(line, " "))
	return repairOCR(line)
}

// repairOCR turns O into 0 and I/L into 1 inside numeric tokens. A token
// made only of digits, separators and confusable letters is repaired as a
// whole ("15O,OO"); elsewhere a letter is repaired when one neighbour is a
// digit or slash and the other is a digit, slash, separator or token
// boundary. Letters inside words are left alone.
func repairOCR(line string) string {
	tokens := strings.Split(line, " ")
	for i, tok := range tokens {
		if isNumericToken(tok) {
			tokens[i] = confusables.Replace(tok)
			continue
		}
		tokens[i] = repairNeighbours(tok)
	}
	return strings.Join(tokens, " ")
}

var confusables = strings.NewReplacer("O", "0", "I", "1", "L", "1")

func isNumericToken(tok string) bool {
	hasDigit := false
	for _, r := range tok {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune("OIL/.,-", r):
		default:
			return false
		}
	}
	return hasDigit
}

func repairNeighbours(tok string) string {
	r := []rune(tok)
	for i, c := range r {
		var repl rune
		switch c {
		case 'O':
			repl = '0'
		case 'I', 'L':
			repl = '1'
		default:
			continue
		}
		var left, right rune
		if i > 0 {
			left = r[i-1]
		}
		if i+1 < len(r) {
			right = r[i+1]
		}
		if (isNumeric(left) && isNumericContext(right)) || (isNumeric(right) && isNumericContext(left)) {
			r[i] = repl
		}
	}
	return string(r)
}

func isNumeric(r rune) bool {
	return unicode.IsDigit(r) || r == '/'
}

func isNumericContext(r rune) bool {
	return r == 0 || isNumeric(r) || r == ' ' || r == '.' || r == ','
}

// tokenPattern matches a numeric code as a standalone token, so that "217"
// never matches inside "1.217,50".
func tokenPattern(code string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[\s\-:])` + regexp.QuoteMeta(code) + `(?:[\s\-:]|$)`)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// matcher recognizes either a numeric token or a folded substring.
type matcher struct {
	text  string
	token *regexp.Regexp
}

func newMatcher(s string) matcher {
	s = brl.Fold(strings.TrimSpace(s))
	if isDigits(s) {
		return matcher{text: s, token: tokenPattern(s)}
	}
	return matcher{text: s}
}

func (m matcher) match(line string) bool {
	if m.text == "" {
		return false
	}
	if m.token != nil {
		return m.token.MatchString(line)
	}
	return strings.Contains(line, m.text)
}

func anyMatch(matchers []matcher, line string) (string, bool) {
	for _, m := range matchers {
		if m.match(line) {
			return m.text, true
		}
	}
	return "", false
}

// extractCompetence returns the first date marker on the line whose month
// is valid and whose year is within [minYear, maxYear].
// The boundary groups of datePattern consume the character around a date,
// so the scan resumes right after each year instead of after the match.
func extractCompetence(line string, minYear, maxYear int) (time.Time, bool) {
	for pos := 0; pos < len(line); {
		loc := datePattern.FindStringSubmatchIndex(line[pos:])
		if loc == nil {
			break
		}
		rest := line[pos:]
		pos += loc[7]

		month, err := strconv.Atoi(rest[loc[4]:loc[5]])
		if err != nil || month < 1 || month > 12 {
			continue
		}
		year, err := strconv.Atoi(rest[loc[6]:loc[7]])
		if err != nil || year < minYear || year > maxYear {
			continue
		}
		return brl.Month(year, time.Month(month)), true
	}
	return time.Time{}, false
}

// extractAmount returns the first Brazilian-formatted value on the line.
func extractAmount(line string) string {
	m := amountPattern.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

var (
	cpfPattern     = regexp.MustCompile(`\b(\d{3}\.\d{3}\.\d{3}-\d{2})\b`)
	benefitPattern = regexp.MustCompile(`\b(?:NB|BENEFICIO)\b[^\d\n]{0,20}(\d{3}\.?\d{3}\.?\d{3}-?\d)\b`)
	birthPattern   = regexp.MustCompile(`NASCIMENTO[^\d\n]{0,10}(\d{2}/\d{2}/\d{4})`)
)

func findCPF(text string) string {
	m := cpfPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

func findBenefitNumber(folded string) string {
	m := benefitPattern.FindStringSubmatch(folded)
	if m == nil {
		return ""
	}
	return m[1]
}

func findBirthDate(folded string) *time.Time {
	m := birthPattern.FindStringSubmatch(folded)
	if m == nil {
		return nil
	}
	d, err := brl.ParseDate(m[1])
	if err != nil {
		return nil
	}
	return &d
}

var cpfLabel = regexp.MustCompile(`(?i)\s*\bCPF\b.*$`)

// extractNameNearLabel returns the text after the first label found on a
// line, cut at a double space or a CPF field.
func extractNameNearLabel(text string, labels []string) string {
	for _, line := range strings.Split(text, "\n") {
		folded := brl.Fold(line)
		src := line
		if len(folded) != len(line) {
			// byte offsets only line up when folding kept the length
			src = folded
		}
		for _, label := range labels {
			idx := strings.Index(folded, label)
			if idx < 0 {
				continue
			}
			rest := strings.TrimSpace(src[idx+len(label):])
			rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
			rest = cpfLabel.ReplaceAllString(rest, "")
			name := strings.TrimSpace(strings.Split(rest, "  ")[0])
			if name != "" {
				return name
			}
		}
	}
	return ""
}
