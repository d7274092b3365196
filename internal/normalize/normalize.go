// Package normalize converts raw spreadsheet cell values into typed values.
//
// Every conversion is total: bad input degrades to nil, never to an error.
// The upstream sheet encodes absence inconsistently ("", "nan", "NaN",
// "None", "---"), so every parser runs the shared sentinel check before its
// own type-specific parsing.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const placeholderToken = "---"

// IsNullSentinel reports whether a raw cell value is one of the upstream
// placeholder tokens for absence. The casing of "nan"/"none" drifts between
// exports, so the comparison folds case.
func IsNullSentinel(raw any) bool {
	if raw == nil {
		return true
	}
	s, ok := raw.(string)
	if !ok {
		return false
	}
	s = strings.TrimSpace(s)
	if s == "" || s == placeholderToken {
		return true
	}
	switch strings.ToLower(s) {
	case "nan", "none":
		return true
	}
	return false
}

// String returns the trimmed cell text without any case normalization, for
// fields that must be stored verbatim (nfid, CNPJs, document numbers).
func String(raw any) *string {
	if IsNullSentinel(raw) {
		return nil
	}
	s := strings.TrimSpace(stringify(raw))
	if s == "" {
		return nil
	}
	return &s
}

// Text sanitizes a free-text field: trims, title-cases per Brazilian
// Portuguese rules ("pendente " -> "Pendente") and maps leftover placeholder
// spellings to nil.
func Text(raw any) *string {
	if IsNullSentinel(raw) {
		return nil
	}
	s := strings.TrimSpace(stringify(raw))
	if s == "" {
		return nil
	}
	s = cases.Title(language.BrazilianPortuguese).String(s)
	// Title-casing can resurface placeholder spellings ("none" -> "None").
	if IsNullSentinel(s) {
		return nil
	}
	return &s
}

// Currency parses a monetary cell into a plain decimal value. Numeric cells
// pass through; text cells may carry a "R$" prefix and Brazilian separators,
// where the comma is the decimal mark and dots group thousands
// ("R$ 1.234,56" -> 1234.56). Unparsable text yields nil.
func Currency(raw any) *float64 {
	if IsNullSentinel(raw) {
		return nil
	}
	if f, ok := asNumber(raw); ok {
		return &f
	}
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// Percentage parses a rate cell into percentage points ("12,5%" -> 12.5, not
// 0.125). Numeric cells pass through.
func Percentage(raw any) *float64 {
	if IsNullSentinel(raw) {
		return nil
	}
	if f, ok := asNumber(raw); ok {
		return &f
	}
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// dateLayouts are tried in order. The sheet mixes ISO dates with Brazilian
// day-first formats, with and without a time component.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02-01-2006",
}

// ParseDate best-effort parses a cell into a calendar date.
func ParseDate(raw any) (time.Time, bool) {
	if IsNullSentinel(raw) {
		return time.Time{}, false
	}
	if t, ok := raw.(time.Time); ok {
		return t, true
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Date formats a parsable date cell as ISO 8601 (YYYY-MM-DD), with no
// timezone component. Unparsable values yield nil.
func Date(raw any) *string {
	t, ok := ParseDate(raw)
	if !ok {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

// Boolean maps the textual affirmatives used in the sheet ("sim", "yes",
// "true", "1") to true and any other non-empty text to false. Non-string
// cells cast directly.
func Boolean(raw any) *bool {
	if IsNullSentinel(raw) {
		return nil
	}
	switch v := raw.(type) {
	case bool:
		return &v
	case string:
		b := false
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "sim", "yes", "true", "1":
			b = true
		}
		return &b
	default:
		if f, ok := asNumber(raw); ok {
			b := f != 0
			return &b
		}
		return nil
	}
}

// Integer parses a cell as a float and rounds half away from zero
// (math.Round), so 2.5 -> 3 and -2.5 -> -3. The rounding mode is part of the
// contract for the prazo fields.
func Integer(raw any) *int64 {
	if IsNullSentinel(raw) {
		return nil
	}
	f, ok := asNumber(raw)
	if !ok {
		s, isStr := raw.(string)
		if !isStr {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		f = parsed
	}
	n := int64(math.Round(f))
	return &n
}

func asNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func stringify(raw any) string {
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}
