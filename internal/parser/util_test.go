package parser

import (
	"testing"
	"time"

	"github.com/insightdelivered/rmc-recalc/internal/brl"
)

func TestNormalizeLine(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Competência:   07/2020 ", "COMPETENCIA: 07/2020"},
		{"217 Empréstimo sobre a RMC\t150,00", "217 EMPRESTIMO SOBRE A RMC 150,00"},
		{"O7/2O2O", "07/2020"},
		{"15O,OO", "150,00"},
		{"1.2I7,5O", "1.217,50"},
		{"VALOR TOTAL", "VALOR TOTAL"},
		{"COMPETENCIA", "COMPETENCIA"},
		{"R$15O", "R$150"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := normalizeLine(tt.input)
			if got != tt.expected {
				t.Errorf("normalizeLine(%q): got %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMatcher(t *testing.T) {
	tests := []struct {
		pattern  string
		line     string
		expected bool
	}{
		{"217", "217 EMPRESTIMO", true},
		{"217", "RUBRICA: 217", true},
		{"217", "X-217-Y", true},
		{"217", "1.217,50", false},
		{"217", "2170 OUTRO", false},
		{"Empréstimo sobre a RMC", "EMPRESTIMO SOBRE A RMC 150,00", true},
		{"data", "DATA DE NASCIMENTO", true},
		{"", "ANYTHING", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.line, func(t *testing.T) {
			got := newMatcher(tt.pattern).match(tt.line)
			if got != tt.expected {
				t.Errorf("match(%q, %q): got %v, want %v", tt.pattern, tt.line, got, tt.expected)
			}
		})
	}
}

func TestExtractCompetence(t *testing.T) {
	tests := []struct {
		line  string
		want  time.Time
		found bool
	}{
		{"COMPETENCIA: 07/2020", brl.Month(2020, time.July), true},
		{"15/03/2021 PAGO", brl.Month(2021, time.March), true},
		{"03.2022", brl.Month(2022, time.March), true},
		{"13/2020", time.Time{}, false},
		{"00/2020", time.Time{}, false},
		{"07/1999", time.Time{}, false},
		{"07/2031", time.Time{}, false},
		{"13/2020 OU 08/2020", brl.Month(2020, time.August), true},
		{"01/1999 07/2020", brl.Month(2020, time.July), true},
		{"13/2020 07/2020", brl.Month(2020, time.July), true},
		{"NASC 10/05/1950 COMP 09/2021", brl.Month(2021, time.September), true},
		{"SEM DATA", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := extractCompetence(tt.line, 2000, 2030)
			if ok != tt.found {
				t.Fatalf("found: got %v, want %v", ok, tt.found)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		line     string
		expected string
	}{
		{"217 EMPRESTIMO 150,00", "150,00"},
		{"217 EMPRESTIMO 1.050,75", "1.050,75"},
		{"217 EMPRESTIMO 12.345.678,90", "12.345.678,90"},
		{"217 EMPRESTIMO R$ 99,90", "99,90"},
		{"217 EMPRESTIMO 150", ""},
		{"217 EMPRESTIMO 150,0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := extractAmount(tt.line)
			if got != tt.expected {
				t.Errorf("extractAmount(%q): got %q, want %q", tt.line, got, tt.expected)
			}
		})
	}
}

func TestExtractNameNearLabel(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"plain label", "Nome: MARIA SOUZA", "MARIA SOUZA"},
		{"cut at cpf", "NOME DO BENEFICIÁRIO: JOÃO PEREIRA CPF: 111.222.333-44", "JOAO PEREIRA"},
		{"cut at double space", "Nome do segurado: ANA LIMA    Espécie: 41", "ANA LIMA"},
		{"no label", "INSS\nCompetência 07/2020", ""},
	}

	labels := []string{"NOME DO BENEFICIARIO", "NOME DO SEGURADO", "NOME"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractNameNearLabel(tt.text, labels)
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
