package textnorm

import (
	"strconv"
	"strings"
	"time"

	"github.com/roach88/nlq/internal/ir"
)

// dateLayouts are the accepted date spellings, tried in order.
// Four-digit years come first so "02.01.2024" never matches "2.1.06".
var dateLayouts = []string{
	"2.1.2006",
	"2006-01-02",
	"2.1.06",
	"2006/01/02",
}

// ParseDate parses a German or ISO date into an IRDate.
func ParseDate(s string) (ir.IRDate, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return ir.NewIRDate(t), true
		}
	}
	return "", false
}

var currencyAffixes = []string{"€", "eur", "euro"}

// IsCurrency reports whether the folded word is a currency marker.
func IsCurrency(norm string) bool {
	for _, c := range currencyAffixes {
		if norm == c {
			return true
		}
	}
	return false
}

// ParseNumber parses an amount written with German or English grouping
// ("1.234,56", "1,234.56", "1234", "500€") into an IRInt or IRDecimal.
func ParseNumber(s string) (ir.IRValue, bool) {
	t := strings.TrimSpace(s)
	lower := strings.ToLower(t)
	for _, c := range currencyAffixes {
		lower = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(lower, c), c))
	}
	t = lower
	if t == "" {
		return nil, false
	}

	neg := false
	if t[0] == '-' || t[0] == '+' {
		neg = t[0] == '-'
		t = t[1:]
	}
	if t == "" || !isDigit(t[0]) || !isDigit(t[len(t)-1]) {
		return nil, false
	}
	for i := 0; i < len(t); i++ {
		if !isDigit(t[i]) && t[i] != '.' && t[i] != ',' {
			return nil, false
		}
	}

	intPart, fracPart, ok := splitNumber(t)
	if !ok {
		return nil, false
	}

	sign := ""
	if neg {
		sign = "-"
	}
	if fracPart == "" {
		n, err := strconv.ParseInt(sign+intPart, 10, 64)
		if err != nil {
			return nil, false
		}
		return ir.IRInt(n), true
	}
	d, err := ir.NewIRDecimal(sign + intPart + "." + fracPart)
	if err != nil {
		return nil, false
	}
	return d, true
}

// splitNumber separates integer digits from fraction digits, removing
// grouping separators. The last separator is the decimal mark when both
// kinds occur.
func splitNumber(t string) (string, string, bool) {
	dots := strings.Count(t, ".")
	commas := strings.Count(t, ",")

	switch {
	case dots == 0 && commas == 0:
		return t, "", true
	case dots > 0 && commas > 0:
		decimal, group := ",", "."
		if strings.LastIndex(t, ".") > strings.LastIndex(t, ",") {
			decimal, group = ".", ","
		}
		if strings.Count(t, decimal) != 1 {
			return "", "", false
		}
		i := strings.LastIndex(t, decimal)
		intPart, ok := ungroup(t[:i], group)
		return intPart, t[i+1:], ok
	case commas == 1:
		i := strings.Index(t, ",")
		return t[:i], t[i+1:], true
	case commas > 1:
		intPart, ok := ungroup(t, ",")
		return intPart, "", ok
	case dots > 1:
		intPart, ok := ungroup(t, ".")
		return intPart, "", ok
	}

	// A single dot: "1.000" groups thousands, "1.5" and "1234.56" are decimals.
	i := strings.Index(t, ".")
	head, tail := t[:i], t[i+1:]
	if len(tail) == 3 && len(head) <= 3 && head != "0" {
		return head + tail, "", true
	}
	return head, tail, true
}

func ungroup(s, sep string) (string, bool) {
	parts := strings.Split(s, sep)
	if len(parts[0]) == 0 || len(parts[0]) > 3 && len(parts) > 1 {
		return "", false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return "", false
		}
	}
	return strings.Join(parts, ""), true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// numberWords maps folded German number words to their value.
var numberWords = map[string]int{
	"eins":     1,
	"zwei":     2,
	"drei":     3,
	"vier":     4,
	"funf":     5,
	"sechs":    6,
	"sieben":   7,
	"acht":     8,
	"neun":     9,
	"zehn":     10,
	"elf":      11,
	"zwolf":    12,
	"zwanzig":  20,
	"dreissig": 30,
	"funfzig":  50,
	"hundert":  100,
	"tausend":  1000,
}

// NumberWord returns the value of a folded German number word.
func NumberWord(norm string) (int, bool) {
	n, ok := numberWords[norm]
	return n, ok
}
