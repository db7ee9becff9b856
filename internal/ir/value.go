package ir

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"time"
	"unicode/utf16"

	"github.com/roach88/nlq/internal/errors"
)

// IRValue is a sealed interface representing the literal types a predicate
// can carry. Only the types in this file implement it.
// NO float type - amounts are exact decimals (IRDecimal) so rendering and
// parameter binding stay deterministic.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents an absent value.
type IRNull struct{}

func (IRNull) irValue() {}

// MarshalJSON implements json.Marshaler for IRNull.
func (IRNull) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// IRString represents a text literal, kept exactly as the user typed it.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer literal.
type IRInt int64

func (IRInt) irValue() {}

// IRDecimal represents an exact decimal literal in canonical form
// ("1234.56", "-0.5"). Grouping separators are already removed.
type IRDecimal string

func (IRDecimal) irValue() {}

// IRDate represents a calendar date in ISO 8601 form ("2024-01-31").
type IRDate string

func (IRDate) irValue() {}

// IRBool represents a boolean literal.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an ordered sequence of values (in-set operands, ranges).
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to values.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

var decimalPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// DateLayout is the canonical layout of IRDate values.
const DateLayout = "2006-01-02"

// NewIRDecimal validates s as a canonical decimal.
func NewIRDecimal(s string) (IRDecimal, error) {
	if !decimalPattern.MatchString(s) {
		return "", errors.Newf("not a canonical decimal: %q", s)
	}
	return IRDecimal(s), nil
}

// NewIRDate creates an IRDate from the calendar date of t.
func NewIRDate(t time.Time) IRDate {
	return IRDate(t.Format(DateLayout))
}

// ParseIRDate validates s as an ISO calendar date.
func ParseIRDate(s string) (IRDate, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", errors.Newf("not an ISO date: %q", s)
	}
	return IRDate(s), nil
}

// IRPair represents a key-value pair for typed IRObject construction.
type IRPair struct {
	Key   string
	Value IRValue
}

// O is a shorthand for IRPair for ergonomic construction.
// Example: NewIRObjectFromPairs(O("field", IRString("status")), O("op", IRString("eq")))
func O(key string, value IRValue) IRPair {
	return IRPair{Key: key, Value: value}
}

// NewIRObjectFromPairs creates an IRObject from typed key-value pairs.
func NewIRObjectFromPairs(pairs ...IRPair) IRObject {
	obj := make(IRObject, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// Text renders a value the way a user would write it back (for messages
// and explain output). Arrays are comma separated.
func Text(v IRValue) string {
	switch val := v.(type) {
	case nil, IRNull:
		return ""
	case IRString:
		return string(val)
	case IRInt:
		return fmt.Sprintf("%d", int64(val))
	case IRDecimal:
		return string(val)
	case IRDate:
		return string(val)
	case IRBool:
		if val {
			return "true"
		}
		return "false"
	case IRArray:
		out := ""
		for i, elem := range val {
			if i > 0 {
				out += ", "
			}
			out += Text(elem)
		}
		return out
	case IRObject:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", map[string]IRValue(val))
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Param converts a scalar IRValue to the Go value bound as a statement
// parameter. Decimals and dates bind as their canonical text so every
// driver receives the same, exact representation.
// Arrays and objects cannot be bound directly.
func Param(v IRValue) (any, error) {
	switch val := v.(type) {
	case IRString:
		return string(val), nil
	case IRInt:
		return int64(val), nil
	case IRDecimal:
		return string(val), nil
	case IRDate:
		return string(val), nil
	case IRBool:
		return bool(val), nil
	case IRNull:
		return nil, nil
	case IRArray:
		return nil, errors.Newf("IRArray cannot be used as SQL parameter directly")
	case IRObject:
		return nil, errors.Newf("IRObject cannot be used as SQL parameter directly")
	default:
		return nil, errors.Newf("unsupported IRValue type for SQL parameter: %T", v)
	}
}

// MarshalJSON implements json.Marshaler for IRObject with sorted keys.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}
