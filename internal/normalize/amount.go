package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a bank-statement amount string. It accepts currency
// prefixes ($, €, £), thousands separators, parenthesized negatives
// "(1,234.56)", trailing minus "1,234.56-" and European "1.234,56".
// The second return is false when the string is not a number.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', ' ', '\t', ' ':
			return -1
		}
		return r
	}, raw)
	if s == "" {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = s[:len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	} else {
		s = strings.TrimPrefix(s, "+")
	}

	s = resolveSeparators(s)
	if !isPlainDecimal(s) {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// resolveSeparators rewrites s so that "." is the only decimal point and no
// grouping separators remain. When both separators appear the rightmost is
// the decimal point; a lone comma with at most two trailing digits is a
// decimal comma; otherwise commas group thousands.
func resolveSeparators(s string) string {
	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")

	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case commas == 1 && len(s)-strings.Index(s, ",")-1 <= 2:
		return strings.Replace(s, ",", ".", 1)
	case commas > 0:
		return strings.ReplaceAll(s, ",", "")
	case dots > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

func isPlainDecimal(s string) bool {
	digits, points := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			points++
		default:
			return false
		}
	}
	return digits > 0 && points <= 1
}
