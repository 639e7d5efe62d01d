// Package currency parses user-entered amounts and renders display prices.
package currency

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultCode is the currency shown in price strings when none is configured.
const DefaultCode = "MWK"

// ParseAmount turns a possibly formatted amount ("MWK 100,000", "100000.50",
// "  90 000 ", "1e5") into a number. A currency code or symbol may lead or
// trail the number, and the integer part may be grouped in thousands with
// commas or spaces. Anything else is rejected, as are negative amounts.
func ParseAmount(raw string) (float64, error) {
	s := stripCurrency(strings.TrimSpace(raw))
	s, ok := ungroup(s)
	if !ok || s == "" || strings.ContainsFunc(s, func(r rune) bool { return !strings.ContainsRune(numberRunes, r) }) {
		return 0, fmt.Errorf("amount %q is not a number", raw)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("amount %q is not a number", raw)
	}
	if v < 0 || strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("amount %q must not be negative", raw)
	}
	return v, nil
}

// numberRunes is what may remain once the currency and grouping are gone.
// Hex floats, Inf and NaN are not amounts.
const numberRunes = "0123456789.eE+-"

// stripCurrency removes one leading and one trailing currency mark. Symbols
// ("$", "€") may touch the number. A letter code ("MWK", "K") must be
// separated from it by a space, except a three letter prefix ("MWK100").
func stripCurrency(s string) string {
	if i := strings.IndexFunc(s, func(r rune) bool { return !isMarkRune(r) }); i > 0 {
		mark, rest := s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
		spaced := len(rest) < len(s[i:])
		if isSymbol(mark) || (isCode(mark) && (spaced || len(mark) == 3)) {
			s = rest
		}
	}
	if j := strings.LastIndexFunc(s, func(r rune) bool { return !isMarkRune(r) }); j >= 0 {
		_, size := utf8.DecodeRuneInString(s[j:])
		head, mark := s[:j+size], s[j+size:]
		spaced := false
		if trimmed := strings.TrimRightFunc(head, unicode.IsSpace); len(trimmed) < len(head) {
			head, spaced = trimmed, true
		}
		if mark != "" && (isSymbol(mark) || (isCode(mark) && spaced)) {
			s = head
		}
	}
	return s
}

func isMarkRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.Is(unicode.Sc, r)
}

func isSymbol(mark string) bool {
	for _, r := range mark {
		if !unicode.Is(unicode.Sc, r) {
			return false
		}
	}
	return mark != ""
}

// isCode accepts one to three ASCII letters.
func isCode(mark string) bool {
	if mark == "" || len(mark) > 3 {
		return false
	}
	for i := 0; i < len(mark); i++ {
		if c := mark[i] | 0x20; c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

// ungroup drops the thousands separators of the integer part. After the
// first group every group must have exactly three digits, so "1,5" is not
// read as 15.
func ungroup(s string) (string, bool) {
	end := strings.IndexAny(s, ".eE")
	if end < 0 {
		end = len(s)
	}
	intPart, rest := s[:end], s[end:]
	if strings.ContainsAny(rest, ", ") {
		return "", false
	}
	if !strings.ContainsAny(intPart, ", ") {
		return s, true
	}
	groups := strings.Split(strings.ReplaceAll(intPart, " ", ","), ",")
	for i, g := range groups {
		if g == "" || len(g) > 3 || (i > 0 && len(g) != 3) || !allDigits(g) {
			return "", false
		}
	}
	return strings.Join(groups, "") + rest, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Formatter renders prices as "<CODE> <localized number>", e.g. "MWK 120,000".
type Formatter struct {
	code    string
	printer *message.Printer
}

func NewFormatter(code string, tag language.Tag) *Formatter {
	if strings.TrimSpace(code) == "" {
		code = DefaultCode
	}
	return &Formatter{code: code, printer: message.NewPrinter(tag)}
}

// Default formats with the default code and English digit grouping.
func Default() *Formatter {
	return NewFormatter(DefaultCode, language.English)
}

func (f *Formatter) Format(amount float64) string {
	return f.printer.Sprintf("%s %v", f.code, number.Decimal(amount, number.MaxFractionDigits(2)))
}

func (f *Formatter) Code() string { return f.code }
