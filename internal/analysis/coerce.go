package analysis

import (
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

// DefaultNumericThreshold is the parsed fraction at which a text column
// becomes numeric.
const DefaultNumericThreshold = 0.6

// NumberParser converts a cell to a number.
type NumberParser func(s string) (float64, bool)

// ParseNumber accepts plain decimal and scientific notation, surrounding
// whitespace allowed. Hex, digit separators and non-finite values are rejected.
func ParseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" || strings.ContainsAny(raw, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// LocaleParser returns a parser for numbers written with the given decimal
// and thousands separators, e.g. "1.000,5" with (',' '.'). A trailing
// percent sign is dropped. A zero thousands separator strips the common
// separators (',' '.' space) that differ from the decimal one.
func LocaleParser(decimal, thousands rune) NumberParser {
	if decimal == 0 {
		decimal = '.'
	}
	return func(s string) (float64, bool) {
		raw := strings.TrimSpace(s)
		raw = strings.ReplaceAll(raw, "%", "")
		raw = strings.ReplaceAll(raw, "\u00A0", " ")
		raw = strings.TrimSpace(raw)
		if thousands == 0 {
			for _, sep := range []rune{',', '.', ' '} {
				if sep != decimal {
					raw = strings.ReplaceAll(raw, string(sep), "")
				}
			}
		} else if thousands != decimal {
			raw = strings.ReplaceAll(raw, string(thousands), "")
		}
		if decimal != '.' {
			raw = strings.ReplaceAll(raw, string(decimal), ".")
		}
		return ParseNumber(raw)
	}
}

// CoerceNumeric converts text columns whose non-absent values mostly parse
// as numbers. A column converts when parsed/non-absent >= threshold; its
// unparseable cells become absent. Columns with no values are left alone.
// It returns the names of converted columns.
func CoerceNumeric(ds *table.Dataset, threshold float64, parse NumberParser) []string {
	if parse == nil {
		parse = ParseNumber
	}
	var converted []string
	for _, c := range ds.Columns {
		if c.Kind != table.Text {
			continue
		}
		vals := make([]float64, len(c.Strings))
		present, parsed := 0, 0
		for i, s := range c.Strings {
			vals[i] = math.NaN()
			if c.Nulls[i] {
				continue
			}
			present++
			if f, ok := parse(s); ok {
				vals[i] = f
				parsed++
			}
		}
		if present == 0 {
			continue
		}
		if float64(parsed)/float64(present) >= threshold {
			c.SetNumeric(vals)
			converted = append(converted, c.Name)
		}
	}
	return converted
}
