// Package kbcompile compiles CUE knowledge files into report templates.
//
// A knowledge file declares one domain and its templates:
//
//	domain: "COVER"
//	templates: [{
//		name:     "Cover Übersicht"
//		keywords: ["cover", "vertrag"]
//		sql:      "SELECT ${top}${columns} FROM LU_ALLG LAL ${where} ${order} ${limit}"
//		columns: [{key: "vsn", column: "LU_VSN", alias: "VSN", table: "LAL", keywords: ["vsn"]}]
//	}]
//
// Files are unified with an embedded schema (#Knowledge) before any field is
// read, so structural mistakes surface as CUE errors with file positions.
package kbcompile

import (
	_ "embed"
	"fmt"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/nlq/internal/catalog"
)

//go:embed schema.cue
var schemaSource []byte

// Knowledge is the compiled content of one knowledge file.
type Knowledge struct {
	Domain    catalog.Domain
	Templates []*catalog.ReportTemplate
}

// CompileError reports a knowledge file problem with its source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Compile parses src (named filename in positions), checks it against the
// schema and builds its templates.
func Compile(filename string, src []byte) (*Knowledge, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	checked := schema.LookupPath(cue.ParsePath("#Knowledge")).Unify(data)
	if err := checked.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	return CompileValue(data)
}

// CompileValue builds templates from an already evaluated knowledge value.
func CompileValue(v cue.Value) (*Knowledge, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	domainStr, err := requiredString(v, "domain")
	if err != nil {
		return nil, err
	}
	domain := catalog.Domain(domainStr)
	if !domain.Valid() {
		return nil, &CompileError{Field: "domain", Message: fmt.Sprintf("unknown domain %q", domainStr), Pos: v.Pos()}
	}

	list := v.LookupPath(cue.ParsePath("templates"))
	if !list.Exists() {
		return nil, &CompileError{Field: "templates", Message: "templates are required", Pos: v.Pos()}
	}
	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	k := &Knowledge{Domain: domain}
	names := make(map[string]bool)
	for i := 0; iter.Next(); i++ {
		tmpl, err := CompileTemplate(iter.Value(), domain)
		if err != nil {
			return nil, err
		}
		if names[tmpl.Name()] {
			return nil, &CompileError{
				Field:   fmt.Sprintf("templates[%d].name", i),
				Message: fmt.Sprintf("duplicate template name %q", tmpl.Name()),
				Pos:     iter.Value().Pos(),
			}
		}
		names[tmpl.Name()] = true
		k.Templates = append(k.Templates, tmpl)
	}
	if len(k.Templates) == 0 {
		return nil, &CompileError{Field: "templates", Message: "at least one template is required", Pos: list.Pos()}
	}
	return k, nil
}

// CompileTemplate builds one ReportTemplate from its CUE value.
func CompileTemplate(v cue.Value, domain catalog.Domain) (*catalog.ReportTemplate, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	if err := checkFields(v, "name", "keywords", "sql", "columns", "defaultSort", "shortcuts"); err != nil {
		return nil, err
	}
	name, err := requiredString(v, "name")
	if err != nil {
		return nil, err
	}
	sql, err := requiredString(v, "sql")
	if err != nil {
		return nil, err
	}
	keywords, err := stringList(v, "keywords")
	if err != nil {
		return nil, err
	}

	columns, err := parseColumns(v)
	if err != nil {
		return nil, err
	}
	sorts, err := parseSorts(v)
	if err != nil {
		return nil, err
	}
	shortcuts, err := parseShortcuts(v)
	if err != nil {
		return nil, err
	}

	tmpl, err := catalog.NewReportTemplate(catalog.TemplateDef{
		Name:        name,
		Domain:      domain,
		Keywords:    keywords,
		Columns:     columns,
		SQL:         sql,
		DefaultSort: sorts,
		Shortcuts:   shortcuts,
	})
	if err != nil {
		return nil, &CompileError{Field: "template", Message: err.Error(), Pos: v.Pos()}
	}
	return tmpl, nil
}

func parseColumns(v cue.Value) ([]*catalog.ColumnSpec, error) {
	list := v.LookupPath(cue.ParsePath("columns"))
	if !list.Exists() {
		return nil, &CompileError{Field: "columns", Message: "columns are required", Pos: v.Pos()}
	}
	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var cols []*catalog.ColumnSpec
	for iter.Next() {
		cv := iter.Value()
		if err := checkFields(cv, "key", "column", "alias", "table", "keywords", "numeric", "temporal", "pattern"); err != nil {
			return nil, err
		}
		def := catalog.ColumnDef{}
		if def.Key, err = requiredString(cv, "key"); err != nil {
			return nil, err
		}
		if def.DBColumn, err = requiredString(cv, "column"); err != nil {
			return nil, err
		}
		if def.Alias, err = requiredString(cv, "alias"); err != nil {
			return nil, err
		}
		if def.TableAlias, err = optionalString(cv, "table"); err != nil {
			return nil, err
		}
		if def.Keywords, err = stringList(cv, "keywords"); err != nil {
			return nil, err
		}
		if def.Numeric, err = optionalBool(cv, "numeric"); err != nil {
			return nil, err
		}
		if def.Temporal, err = optionalBool(cv, "temporal"); err != nil {
			return nil, err
		}
		if def.Pattern, err = optionalString(cv, "pattern"); err != nil {
			return nil, err
		}

		col, err := catalog.NewColumnSpec(def)
		if err != nil {
			return nil, &CompileError{Field: "column", Message: err.Error(), Pos: cv.Pos()}
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func parseSorts(v cue.Value) ([]catalog.SortKey, error) {
	list := v.LookupPath(cue.ParsePath("defaultSort"))
	if !list.Exists() {
		return nil, nil
	}
	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []catalog.SortKey
	for iter.Next() {
		sv := iter.Value()
		field, err := requiredString(sv, "field")
		if err != nil {
			return nil, err
		}
		desc, err := optionalBool(sv, "descending")
		if err != nil {
			return nil, err
		}
		out = append(out, catalog.SortKey{Field: field, Descending: desc})
	}
	return out, nil
}

func parseShortcuts(v cue.Value) ([]catalog.Shortcut, error) {
	list := v.LookupPath(cue.ParsePath("shortcuts"))
	if !list.Exists() {
		return nil, nil
	}
	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []catalog.Shortcut
	for iter.Next() {
		sv := iter.Value()
		keywords, err := stringList(sv, "keywords")
		if err != nil {
			return nil, err
		}
		field, err := requiredString(sv, "field")
		if err != nil {
			return nil, err
		}
		value, err := requiredString(sv, "value")
		if err != nil {
			return nil, err
		}
		out = append(out, catalog.Shortcut{Keywords: keywords, Field: field, Value: value})
	}
	return out, nil
}

// checkFields rejects labels outside allowed.
func checkFields(v cue.Value, allowed ...string) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Selector().String()
		if !slices.Contains(allowed, label) {
			return &CompileError{Field: label, Message: "unknown field " + label, Pos: iter.Value().Pos()}
		}
	}
	return nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: field + " must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	if !v.LookupPath(cue.ParsePath(field)).Exists() {
		return "", nil
	}
	return requiredString(v, field)
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, &CompileError{Field: field, Message: field + " must be a bool", Pos: fv.Pos()}
	}
	return b, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	iter, err := fv.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: field + " must be a list of strings", Pos: fv.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: field + " must be a list of strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
