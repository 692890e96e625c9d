package plate

import (
	"fmt"
	"regexp"
	"strings"
)

// Шаблоны грамматик: L буква, N цифра, A буква или цифра
const (
	LegacyPattern  = "LLLNNNN" // ABC1234
	CurrentPattern = "LLLNANN" // ABC4E67
)

// DefaultPatterns набор грамматик по умолчанию
var DefaultPatterns = []string{LegacyPattern, CurrentPattern}

// Grammar скомпилированный шаблон номера
type Grammar struct {
	Pattern string
	re      *regexp.Regexp
}

// ParseGrammar компилирует шаблон из символов L, N, A
func ParseGrammar(pattern string) (Grammar, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return Grammar{}, fmt.Errorf("empty plate grammar")
	}

	var b strings.Builder
	b.WriteByte('^')
	for i, c := range pattern {
		switch c {
		case 'L':
			b.WriteString("[A-Z]")
		case 'N':
			b.WriteString("[0-9]")
		case 'A':
			b.WriteString("[A-Z0-9]")
		default:
			return Grammar{}, fmt.Errorf("plate grammar %q: unexpected %q at %d", pattern, c, i)
		}
	}
	b.WriteByte('$')

	return Grammar{Pattern: pattern, re: regexp.MustCompile(b.String())}, nil
}

// Match проверяет строку целиком, без частичных совпадений
func (g Grammar) Match(s string) bool {
	return g.re != nil && g.re.MatchString(s)
}

// Validator принимает номер, если он подходит хотя бы под одну грамматику
type Validator struct {
	grammars []Grammar
}

// NewValidator собирает валидатор из шаблонов; пустой список означает набор по умолчанию
func NewValidator(patterns []string) (*Validator, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	v := &Validator{grammars: make([]Grammar, 0, len(patterns))}
	for _, p := range patterns {
		g, err := ParseGrammar(p)
		if err != nil {
			return nil, err
		}
		v.grammars = append(v.grammars, g)
	}
	return v, nil
}

// MustValidator как NewValidator, но паникует на ошибке
func MustValidator(patterns ...string) *Validator {
	v, err := NewValidator(patterns)
	if err != nil {
		panic(err)
	}
	return v
}

// Valid проверяет канонический номер
func (v *Validator) Valid(s string) bool {
	for _, g := range v.grammars {
		if g.Match(s) {
			return true
		}
	}
	return false
}

// Patterns возвращает шаблоны, с которыми работает валидатор
func (v *Validator) Patterns() []string {
	out := make([]string, len(v.grammars))
	for i, g := range v.grammars {
		out[i] = g.Pattern
	}
	return out
}
