// Package core holds the domain types shared by the report engine.
//
// This file contains amount parsing for external sources and the value
// formatter applied to every computed row.
package core

import (
	"errors"
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a human-entered amount into a float.
//
// It accepts dot (1234.56) and comma (1234,56) decimal separators. When both
// appear, the rightmost one is the decimal separator and the other is treated
// as thousands grouping. Currency symbols and spaces are ignored; a leading
// sign is allowed.
//
// Examples:
//
//	ParseAmount("1.234,56")  -> 1234.56, nil
//	ParseAmount("1,234.56")  -> 1234.56, nil
//	ParseAmount("-12,5 €")   -> -12.5, nil
func ParseAmount(s string) (float64, error) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot >= 0 && lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return 0, ErrInvalidAmount
		}
		s = strings.Replace(s, ",", ".", 1)
	}

	body := strings.TrimLeft(s, "+-")
	if len(s)-len(body) > 1 || body == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range body {
		if r != '.' && !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}

	d, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}

// FormatValue renders a raw value according to the category's format tag.
// Unknown or empty tags fall back to NUMBER. Non-finite values render as "n/a".
func FormatValue(v float64, f Format) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	d := decimal.NewFromFloat(v)

	switch f {
	case FormatMoney:
		rounded := d.Round(2).InexactFloat64()
		if rounded == 0 {
			rounded = 0 // drop negative zero
		}
		// English grouping keeps output independent of the host locale.
		return message.NewPrinter(language.English).Sprintf("%.2f", rounded)
	case FormatPercent:
		return d.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
	default:
		return d.Round(4).String()
	}
}

// ParseFormat normalizes a stored format tag; unknown tags map to NUMBER.
func ParseFormat(s string) Format {
	switch f := Format(strings.ToUpper(strings.TrimSpace(s))); f {
	case FormatMoney, FormatPercent, FormatNumber:
		return f
	default:
		return FormatNumber
	}
}
