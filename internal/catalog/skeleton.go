package catalog

import (
	"regexp"

	"github.com/roach88/nlq/internal/errors"
)

// PlaceholderKind names a slot in a SQL skeleton.
type PlaceholderKind string

const (
	PlaceholderTop      PlaceholderKind = "top"
	PlaceholderColumns  PlaceholderKind = "columns"
	PlaceholderWhere    PlaceholderKind = "where"
	PlaceholderAndWhere PlaceholderKind = "and_where"
	PlaceholderOrder    PlaceholderKind = "order"
	PlaceholderLimit    PlaceholderKind = "limit"
	PlaceholderColumn   PlaceholderKind = "col"
)

// Segment is one piece of a parsed skeleton: literal SQL text or a placeholder.
type Segment struct {
	Literal string

	// Kind is empty for literal segments.
	Kind PlaceholderKind

	// Arg is the column key of a ${col:<key>} placeholder.
	Arg string
}

// IsLiteral reports whether the segment is plain SQL text.
func (s Segment) IsLiteral() bool { return s.Kind == "" }

var placeholderPattern = regexp.MustCompile(`\$\{([a-z_]+)(?::([^}]*))?\}`)

// ParseSkeleton splits sql into literal text and placeholders.
// Unknown placeholder names and malformed ${col} arguments are errors.
func ParseSkeleton(sql string) ([]Segment, error) {
	var segs []Segment
	last := 0
	for _, m := range placeholderPattern.FindAllStringSubmatchIndex(sql, -1) {
		if m[0] > last {
			segs = append(segs, Segment{Literal: sql[last:m[0]]})
		}
		kind := PlaceholderKind(sql[m[2]:m[3]])
		arg := ""
		if m[4] >= 0 {
			arg = sql[m[4]:m[5]]
		}
		switch kind {
		case PlaceholderTop, PlaceholderColumns, PlaceholderWhere, PlaceholderAndWhere,
			PlaceholderOrder, PlaceholderLimit:
			if m[4] >= 0 {
				return nil, errors.Newf("placeholder ${%s} takes no argument", kind)
			}
		case PlaceholderColumn:
			if arg == "" {
				return nil, errors.New("placeholder ${col} needs a column key")
			}
		default:
			return nil, errors.Newf("unknown placeholder ${%s}", kind)
		}
		segs = append(segs, Segment{Kind: kind, Arg: arg})
		last = m[1]
	}
	if last < len(sql) {
		segs = append(segs, Segment{Literal: sql[last:]})
	}
	return segs, nil
}

// validateSkeleton enforces the slot counts every template must satisfy
// and checks ${col:<key>} references against the declared columns.
func validateSkeleton(segs []Segment, hasColumn func(string) bool) error {
	counts := make(map[PlaceholderKind]int)
	for _, s := range segs {
		if s.IsLiteral() {
			continue
		}
		counts[s.Kind]++
		if s.Kind == PlaceholderColumn && !hasColumn(s.Arg) {
			return errors.Newf("${col:%s} references an undeclared column", s.Arg)
		}
	}
	for _, k := range []PlaceholderKind{PlaceholderColumns, PlaceholderTop, PlaceholderOrder, PlaceholderLimit} {
		if counts[k] != 1 {
			return errors.Newf("${%s} must appear exactly once, found %d", k, counts[k])
		}
	}
	if counts[PlaceholderWhere]+counts[PlaceholderAndWhere] != 1 {
		return errors.New("exactly one of ${where} or ${and_where} must appear")
	}
	return nil
}
