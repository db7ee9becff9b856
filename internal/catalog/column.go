// Package catalog describes the report templates the compiler can fill:
// their SQL skeletons and the columns a request may reference.
//
// Every type here is immutable after construction and safe for
// concurrent use.
package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/textnorm"
)

// ColumnDef is the declarative input for NewColumnSpec.
type ColumnDef struct {
	// Key is the semantic field name predicates refer to.
	Key string

	// DBColumn is a bare column, a qualified column or a parenthesized subquery.
	DBColumn string

	// Alias is the output column name.
	Alias string

	// TableAlias qualifies a bare DBColumn.
	TableAlias string

	// Keywords activate the column in a request.
	Keywords []string

	// Numeric columns take number literals and are projected without text cleanup.
	Numeric bool

	// Temporal columns take date literals.
	Temporal bool

	// Pattern, if set, lets a bare identifier in the request filter this column.
	Pattern string
}

// ColumnSpec describes one selectable column of a report.
type ColumnSpec struct {
	key        string
	dbColumn   string
	alias      string
	tableAlias string
	keywords   []string
	numeric    bool
	temporal   bool
	pattern    *regexp.Regexp
}

// NewColumnSpec validates def and builds a ColumnSpec.
func NewColumnSpec(def ColumnDef) (*ColumnSpec, error) {
	if strings.TrimSpace(def.Key) == "" {
		return nil, errors.New("column: key is required")
	}
	if strings.TrimSpace(def.DBColumn) == "" {
		return nil, errors.Newf("column %s: db column is required", def.Key)
	}
	if strings.TrimSpace(def.Alias) == "" {
		return nil, errors.Newf("column %s: alias is required", def.Key)
	}
	if strings.Contains(def.Alias, `"`) {
		return nil, errors.Newf("column %s: alias must not contain double quotes", def.Key)
	}
	if def.Numeric && def.Temporal {
		return nil, errors.Newf("column %s: cannot be both numeric and temporal", def.Key)
	}

	c := &ColumnSpec{
		key:        def.Key,
		dbColumn:   def.DBColumn,
		alias:      def.Alias,
		tableAlias: strings.TrimSpace(def.TableAlias),
		keywords:   textnorm.FoldAll(def.Keywords),
		numeric:    def.Numeric,
		temporal:   def.Temporal,
	}
	if len(c.keywords) == 0 {
		return nil, errors.Newf("column %s: at least one keyword is required", def.Key)
	}
	if def.Pattern != "" {
		re, err := regexp.Compile(def.Pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "column %s: pattern", def.Key)
		}
		c.pattern = re
	}
	return c, nil
}

// MustColumnSpec is like NewColumnSpec but panics on error.
func MustColumnSpec(def ColumnDef) *ColumnSpec {
	c, err := NewColumnSpec(def)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *ColumnSpec) Key() string        { return c.key }
func (c *ColumnSpec) DBColumn() string   { return c.dbColumn }
func (c *ColumnSpec) Alias() string      { return c.alias }
func (c *ColumnSpec) TableAlias() string { return c.tableAlias }
func (c *ColumnSpec) IsNumeric() bool    { return c.numeric }
func (c *ColumnSpec) IsTemporal() bool   { return c.temporal }

// Pattern returns the identifier pattern, or nil.
func (c *ColumnSpec) Pattern() *regexp.Regexp { return c.pattern }

// Keywords returns the folded activation keywords.
func (c *ColumnSpec) Keywords() []string {
	return append([]string(nil), c.keywords...)
}

// Matches reports whether word activates this column.
func (c *ColumnSpec) Matches(word string) bool {
	f := textnorm.Fold(word)
	for _, k := range c.keywords {
		if k == f {
			return true
		}
	}
	return false
}

// Expression returns the column reference used in WHERE and ORDER BY.
//
// Subqueries and already qualified columns are used as written; a bare
// column is qualified with the table alias when one is set.
func (c *ColumnSpec) Expression() string {
	trimmed := strings.TrimSpace(c.dbColumn)
	switch {
	case strings.HasPrefix(trimmed, "("):
		return c.dbColumn
	case strings.Contains(c.dbColumn, "."):
		return c.dbColumn
	case c.tableAlias != "":
		return c.tableAlias + "." + c.dbColumn
	}
	return c.dbColumn
}

// SQLDefinition returns the SELECT-list fragment for this column.
// Text columns are trimmed and default to the empty string; numeric and
// date columns are projected as they are.
func (c *ColumnSpec) SQLDefinition() string {
	expr := c.Expression()
	if c.numeric || c.temporal {
		return fmt.Sprintf(`%s AS "%s"`, expr, c.alias)
	}
	return fmt.Sprintf(`COALESCE(RTRIM(LTRIM(%s)), '') AS "%s"`, expr, c.alias)
}
