// Package pipeline runs one field's raw text through the five-stage value
// transformation: strip, pattern-match, cast, trim, validate. Every stage is
// total; a stage that cannot produce a value passes an empty value forward and
// records its error tag, so the caller always receives a Result and decides
// what a failure means.
package pipeline

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/boscorat/bankparse/internal/currency"
	"github.com/boscorat/bankparse/internal/rules"
)

// Result is the outcome of transforming one raw value.
type Result struct {
	Field string
	Vital bool
	Raw   string
	// RawOffset carries the untransformed value of the field's offset column,
	// when one is configured.
	RawOffset string
	// Value is the canonical string form of the transformed value; empty when
	// the pipeline did not succeed. Numeric values are rendered at the
	// canonical scale; date values stay raw until standard-field mapping.
	Value   string
	Success bool
	// HardFail is set when an unsuccessful field was marked vital.
	HardFail bool
	// Err names the first stage that failed, e.g. "pattern error".
	Err string
}

type state struct {
	value string
	err   string
}

func (s *state) fail(stage string) {
	s.value = ""
	if s.err == "" {
		s.err = stage + " error"
	}
}

// Transform runs the full pipeline for one field spec over raw text.
func Transform(raw string, field rules.Field) Result {
	var spec *currency.Spec
	if field.Type == rules.KindNumeric {
		if cs, err := currency.Lookup(field.NumericCurrency); err == nil {
			spec = &cs
		}
	}

	st := state{value: raw}
	stripStage(&st, field, spec)
	patternStage(&st, field, spec)
	castStage(&st, field, spec)
	trimStage(&st, field)

	success := st.value != ""
	return Result{
		Field:    field.Field,
		Vital:    field.Vital,
		Raw:      raw,
		Value:    st.value,
		Success:  success,
		HardFail: !success && field.Vital,
		Err:      st.err,
	}
}

// stripStage removes configured leading/trailing characters; for numeric
// fields it also removes currency symbols, thousands separators, and all
// whitespace.
func stripStage(st *state, field rules.Field, spec *currency.Spec) {
	v := st.value
	if field.StripCharactersStart != "" {
		v = strings.TrimLeft(v, field.StripCharactersStart)
	}
	if field.StripCharactersEnd != "" {
		v = strings.TrimRight(v, field.StripCharactersEnd)
	}
	if field.Type == rules.KindNumeric && spec != nil {
		v = spec.Clean(v)
	}
	st.value = strings.TrimSpace(v)
	if st.value == "" {
		st.fail("strip")
	}
}

// patternStage extracts the first match of the field's pattern. An explicit
// string pattern wins; otherwise the currency validation pattern is used,
// widened with optional prefix/suffix groups from the numeric modifier.
func patternStage(st *state, field rules.Field, spec *currency.Spec) {
	if st.value == "" {
		st.fail("pattern")
		return
	}

	var prefix, suffix string
	if field.NumericModifier != nil {
		prefix = field.NumericModifier.Prefix
		suffix = field.NumericModifier.Suffix
	}
	var specPattern string
	if spec != nil {
		specPattern = spec.Pattern
	}
	pattern := BuildPattern(field.StringPattern, specPattern, prefix, suffix)

	re, err := regexp.Compile(pattern)
	if err != nil {
		st.fail("pattern")
		return
	}
	st.value = re.FindString(st.value)
	if st.value == "" {
		st.fail("pattern")
	}
}

// BuildPattern assembles the extraction pattern for a field. When only a
// currency pattern applies, its anchors are widened so an optional modifier
// prefix or suffix token still matches.
func BuildPattern(stringPattern, specPattern, prefix, suffix string) string {
	if stringPattern != "" {
		return stringPattern
	}
	if specPattern == "" {
		return `.+`
	}
	pattern := specPattern
	if prefix != "" {
		pattern = strings.Replace(pattern, "^", `^(`+regexp.QuoteMeta(prefix)+`)?\s?`, 1)
	}
	if suffix != "" {
		pattern = strings.Replace(pattern, "$", `\s?(`+regexp.QuoteMeta(suffix)+`)?$`, 1)
	}
	return pattern
}

// castStage converts the matched text to the field's kind. Numeric casting
// applies the modifier: the multiplier only kicks in when the configured
// prefix/suffix token is present, excluded signs clamp to zero, and the
// result is rounded to the canonical scale. Date parsing is deferred to
// standard-field mapping, so dates pass through as strings.
func castStage(st *state, field rules.Field, spec *currency.Spec) {
	if st.value == "" {
		st.fail("cast")
		return
	}
	if field.Type != rules.KindNumeric {
		return
	}

	v := st.value
	scaled := false
	mod := field.NumericModifier
	if mod != nil {
		if mod.Prefix != "" && strings.HasPrefix(v, mod.Prefix) {
			v = strings.TrimSpace(strings.TrimPrefix(v, mod.Prefix))
			scaled = true
		} else if mod.Suffix != "" && strings.HasSuffix(v, mod.Suffix) {
			v = strings.TrimSpace(strings.TrimSuffix(v, mod.Suffix))
			scaled = true
		}
	}

	var d decimal.Decimal
	var err error
	if spec != nil {
		d, err = spec.ParseDecimal(v)
	} else {
		d, err = decimal.NewFromString(v)
	}
	if err != nil {
		st.fail("cast")
		return
	}

	if mod != nil {
		if scaled {
			d = d.Mul(decimal.NewFromFloat(mod.Scale()))
		}
		if mod.ExcludeNegativeValues && d.IsNegative() {
			d = decimal.Zero
		}
		if mod.ExcludePositiveValues && d.IsPositive() {
			d = decimal.Zero
		}
	}

	st.value = currency.Round(d).StringFixed(currency.Scale)
}

// trimStage truncates string values to the configured max length.
func trimStage(st *state, field rules.Field) {
	if st.value == "" {
		st.fail("trim")
		return
	}
	if field.Type != rules.KindString {
		return
	}
	maxLen := field.StringMaxLength
	if maxLen <= 0 {
		maxLen = 999
	}
	// truncate by characters, not bytes, so a multi-byte rune is never split
	if runes := []rune(st.value); len(runes) > maxLen {
		st.value = string(runes[:maxLen])
	}
}

// OffsetField derives the Field spec used to re-run an offset value through
// the pipeline: the offset's own type and modifier, with the primary's
// pattern and offset cleared.
func OffsetField(primary rules.Field) rules.Field {
	offset := primary.ValueOffset
	f := primary
	f.StringPattern = ""
	f.ValueOffset = nil
	f.Vital = offset.Vital
	f.Type = offset.Type
	f.NumericModifier = offset.NumericModifier
	if offset.NumericCurrency != "" {
		f.NumericCurrency = offset.NumericCurrency
	}
	return f
}
