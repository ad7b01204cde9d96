// Package currency defines per-currency parsing rules: the symbols to strip,
// the decimal and thousands separators, the canonical rounding scale, and the
// validation pattern a well-formed amount must match.
package currency

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Scale is the canonical decimal scale every monetary value is rounded to
// before comparison or storage. Statement amounts are stated to 2 decimal
// places but intermediate multipliers can introduce more, so we carry 4.
const Scale = 4

// Spec holds the locale rules for one currency.
type Spec struct {
	Code                string
	Symbols             []string
	DecimalSeparator    string
	ThousandsSeparators []string
	RoundDecimals       int
	Pattern             string
}

var specs = map[string]Spec{
	"GBP": {
		Code:                "GBP",
		Symbols:             []string{"GBP", "£"},
		DecimalSeparator:    ".",
		ThousandsSeparators: []string{",", " "},
		RoundDecimals:       2,
		Pattern:             `^-?[\d]+[.][\d]{2}$`,
	},
	"USD": {
		Code:                "USD",
		Symbols:             []string{"USD", "$"},
		DecimalSeparator:    ".",
		ThousandsSeparators: []string{",", " "},
		RoundDecimals:       2,
		Pattern:             `^-?[\d]+[.][\d]{2}$`,
	},
	"EUR": {
		Code:                "EUR",
		Symbols:             []string{"EUR", "EURO", "EUROS", "€"},
		DecimalSeparator:    ",",
		ThousandsSeparators: []string{".", " "},
		RoundDecimals:       2,
		Pattern:             `^-?[\d]+[,][\d]{2}$`,
	},
}

// Lookup returns the Spec for an ISO-4217 code. Currencies without an explicit
// entry fall back to go-money metadata (grapheme and fraction) with dot-decimal
// separators, so an unusual statement currency still parses.
func Lookup(code string) (Spec, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if spec, ok := specs[code]; ok {
		return spec, nil
	}

	c := money.GetCurrency(code)
	if c == nil {
		return Spec{}, fmt.Errorf("unknown currency %q", code)
	}
	return Spec{
		Code:                c.Code,
		Symbols:             []string{c.Code, c.Grapheme},
		DecimalSeparator:    ".",
		ThousandsSeparators: []string{",", " "},
		RoundDecimals:       c.Fraction,
		Pattern:             fmt.Sprintf(`^-?[\d]+[.][\d]{%d}$`, c.Fraction),
	}, nil
}

// Clean removes the currency's symbols, thousands separators, and all
// whitespace from a raw amount string. It does not touch the decimal
// separator, so a cleaned value can still be validated against Pattern.
func (s Spec) Clean(raw string) string {
	out := raw
	for _, sym := range s.Symbols {
		out = strings.ReplaceAll(out, sym, "")
	}
	for _, sep := range s.ThousandsSeparators {
		out = strings.ReplaceAll(out, sep, "")
	}
	return strings.Join(strings.Fields(out), "")
}

// ParseDecimal converts a cleaned amount string to a decimal, normalizing a
// non-dot decimal separator first.
func (s Spec) ParseDecimal(value string) (decimal.Decimal, error) {
	if s.DecimalSeparator != "" && s.DecimalSeparator != "." {
		value = strings.ReplaceAll(value, s.DecimalSeparator, ".")
	}
	return decimal.NewFromString(value)
}

// Matches reports whether a cleaned value satisfies the currency's validation
// pattern.
func (s Spec) Matches(value string) bool {
	if s.Pattern == "" {
		return true
	}
	re, err := regexp.Compile(s.Pattern)
	if err != nil {
		return false
	}
	return re.MatchString(value)
}

// Round rounds a value to the canonical scale.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}
