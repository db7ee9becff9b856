package expert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nlq/internal/catalog"
	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/ir"
	"github.com/roach88/nlq/internal/knowledge"
	"github.com/roach88/nlq/internal/queryir"
	"github.com/roach88/nlq/internal/querysql"
)

const scenario = "zeige VSN und Name, wo Status gleich A, sortiert nach VSN"

func cover(t *testing.T, opts ...Option) *Builder {
	t.Helper()
	b, err := NewCover(knowledge.MustDefault(), opts...)
	require.NoError(t, err)
	return b
}

func schaden(t *testing.T, opts ...Option) *Builder {
	t.Helper()
	b, err := NewSchaden(knowledge.MustDefault(), opts...)
	require.NoError(t, err)
	return b
}

func extract(t *testing.T, e Expert, text string) *queryir.QueryIR {
	t.Helper()
	c, err := e.Extract(text)
	require.NoError(t, err)
	return c.IR
}

func TestBuild_ProbeOrder(t *testing.T) {
	experts, err := Build(knowledge.MustDefault())
	require.NoError(t, err)
	require.Len(t, experts, 2)
	assert.Equal(t, "schaden", experts[0].Name())
	assert.Equal(t, catalog.DomainSchaden, experts[0].Domain())
	assert.Equal(t, "cover", experts[1].Name())
	assert.Equal(t, catalog.DomainCover, experts[1].Domain())
}

func TestNew_Rejects(t *testing.T) {
	_, err := New("leer", catalog.DomainCover, nil)
	assert.Error(t, err)

	reg := knowledge.MustDefault()
	_, err = New("gemischt", catalog.DomainCover, reg.ForDomain(catalog.DomainSchaden))
	assert.Error(t, err)
}

func TestCanHandle(t *testing.T) {
	c, s := cover(t), schaden(t)
	tests := []struct {
		input   string
		cover   bool
		schaden bool
	}{
		{scenario, true, false},
		{"alle Cover ohne VSN, sortiert nach Beginn", true, false},
		{"Schäden mit Reserve über 10.000 €", false, true},
		{"offene Zahlungen", false, true},
		{"Prämien mit Mahnstufe über 2", true, false},
		{"alle Schaeden", false, true},
		{"Praemien mit Mahnstufe über 2", true, false},
		{"VERTRAEGE mit Status A", true, false},
		{"hallo welt", false, false},
		{"", false, false},
		{"zeige Name und Status", false, false},
		{`Name "Vertrag"`, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.cover, c.CanHandle(tt.input), "cover")
			assert.Equal(t, tt.schaden, s.CanHandle(tt.input), "schaden")
		})
	}
}

func TestExtract_Scenario(t *testing.T) {
	c, err := cover(t).Extract(scenario)
	require.NoError(t, err)
	q := c.IR

	assert.Equal(t, queryir.Context("COVER"), q.Context)
	assert.Equal(t, "Cover Übersicht", q.Report)
	assert.Equal(t, "Cover Übersicht", c.Template.Name())
	assert.Nil(t, c.Statement)

	assert.Equal(t, []queryir.Projection{{Field: "vsn"}, {Field: "name"}}, q.Projections)
	require.Len(t, q.Filters, 1)
	assert.Equal(t, []*queryir.Predicate{{Field: "status", Op: queryir.OpEquals, Value: ir.IRString("A")}}, q.Main().Predicates)
	assert.Empty(t, q.Main().Groups)
	assert.Equal(t, []queryir.Sort{{Field: "vsn", Direction: queryir.Asc}}, q.Sorts)
	assert.Zero(t, q.Limit)
}

func TestCompile_Scenario(t *testing.T) {
	c, err := cover(t).Compile(scenario)
	require.NoError(t, err)

	want := `SELECT COALESCE(RTRIM(LTRIM(LAL.LU_VSN)), '') AS "VSN", COALESCE(RTRIM(LTRIM(LUM.LU_NAM)), '') AS "Name"` + "\n" +
		"FROM LU_ALLG LAL\n" +
		"LEFT JOIN LU_MASKEP LUM ON LUM.LU_VSN = LAL.LU_VSN\n" +
		"WHERE (LAL.LU_STA = @p1)\n" +
		"ORDER BY LAL.LU_VSN ASC"
	assert.Equal(t, want, c.Statement.SQL)
	assert.Equal(t, []any{"A"}, c.Statement.Params)
}

func TestCompile_Idempotent(t *testing.T) {
	e := cover(t)
	first, err := e.GenerateQuery(scenario)
	require.NoError(t, err)
	second, err := e.GenerateQuery(scenario)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompile_Dialect(t *testing.T) {
	e := cover(t, WithRenderer(querysql.NewRenderer(querysql.Postgres)))
	stmt, err := e.GenerateQuery("die ersten 5 Verträge mit Makler Müller")
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, `LAL.LU_VMT ILIKE $1 ESCAPE '\'`)
	assert.True(t, strings.HasSuffix(stmt.SQL, "LIMIT $2"))
	assert.Equal(t, []any{"%Müller%", int64(5)}, stmt.Params)
}

func TestExtract_Filters(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare field after ohne is null", "alle Cover ohne VSN, sortiert nach Beginn", "(vsn is_null)"},
		{"range with currency", "Verträge mit Prämie zwischen 100 und 200 EUR", "(praemie between [100, 200])"},
		{"von bis", "Verträge mit Beginn von 01.01.2024 bis 31.12.2024", "(beginn between [2024-01-01, 2024-12-31])"},
		{"date comparison", "Verträge mit Beginn ab 01.01.2024", "(beginn ge [2024-01-01])"},
		{"value list with oder", "Verträge mit Status A oder S", "(status in [A, S])"},
		{"in list", "Verträge mit Sparte in KFZ, HAFT und UNFALL", "(sparte in [KFZ, HAFT, UNFALL])"},
		{"text default is contains", "Verträge mit Makler Müller", "(makler contains [Müller])"},
		{"quoted value", `Verträge mit Name "Meyer & Co"`, "(name contains [Meyer & Co])"},
		{"numeric default is equals", "Verträge mit Prämie 1.234,50 €", "(praemie eq [1234.50])"},
		{"nicht after field", "Verträge mit Status nicht S", "(status ne [S])"},
		{"is not null", "Verträge mit Makler vorhanden", "(makler is_not_null)"},
		{"shortcut", "stornierte Verträge", "(status eq [S])"},
		{"negated shortcut", "keine stornierten Verträge", "(status ne [S])"},
		{"negated equals", "Verträge außer Status gleich S", "(status ne [S])"},
		{"negated contains wraps", "Verträge ohne Makler Müller", "(NOT (makler contains [Müller]))"},
		{"oder between predicates", "Verträge mit Status gleich A oder Sparte gleich KFZ", "((status eq [A] OR sparte eq [KFZ]))"},
		{"weder noch", "Verträge mit weder Status gleich A noch Sparte gleich KFZ", "(NOT (status eq [A] OR sparte eq [KFZ]))"},
		{"weder noch bare fields", "Verträge mit weder Makler noch Sparte", "(NOT (makler is_not_null OR sparte is_not_null))"},
		{"number word", "Verträge mit Prämie über hundert", "(praemie gt [100])"},
		{"negative number", "Verträge mit Prämie -5", "(praemie eq [-5])"},
		{"negative decimal bound", "Verträge mit Prämie über -10,5", "(praemie gt [-10.5])"},
		{"transliterated umlauts", "Vertraege mit Praemie ueber 100", "(praemie gt [100])"},
	}
	e := cover(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := extract(t, e, tt.input)
			assert.Equal(t, tt.want, q.Main().String())
		})
	}
}

func TestExtract_Projections(t *testing.T) {
	e := cover(t)

	q := extract(t, e, "Verträge: zuerst Name, dann VSN")
	assert.Equal(t, []queryir.Projection{{Field: "name", Order: 1}, {Field: "vsn", Order: 2}}, q.Projections)

	q = extract(t, e, "Verträge außer VSN")
	assert.Equal(t, []queryir.Projection{{Field: "vsn", Exclude: true}}, q.Projections)
	assert.True(t, q.Main().IsEmpty())

	q = extract(t, e, "zeige VSN nicht Name")
	assert.Equal(t, []queryir.Projection{{Field: "vsn"}, {Field: "name", Exclude: true}}, q.Projections)
}

func TestExtract_Sorts(t *testing.T) {
	s := schaden(t)

	q := extract(t, s, "Schäden sortiert nach Datum absteigend und Status")
	assert.Equal(t, []queryir.Sort{{Field: "datum", Direction: queryir.Desc}, {Field: "status", Direction: queryir.Asc}}, q.Sorts)

	q = extract(t, s, "Schäden absteigend sortiert nach Reserve")
	assert.Equal(t, []queryir.Sort{{Field: "reserve", Direction: queryir.Desc}}, q.Sorts)

	q = extract(t, s, "Schäden sortiert nach Datum, Status gleich O")
	assert.Equal(t, []queryir.Sort{{Field: "datum", Direction: queryir.Asc}}, q.Sorts)
	assert.Equal(t, "(status eq [O])", q.Main().String())
}

func TestExtract_Limit(t *testing.T) {
	e := cover(t)
	tests := []struct {
		input string
		want  int
	}{
		{"die ersten 10 Verträge", 10},
		{"top fünf Verträge", 5},
		{"Verträge limit 3", 3},
		{"top Verträge", 0},
		{"die ersten 10 Verträge, limit 20", 20},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, extract(t, e, tt.input).Limit)
		})
	}
}

func TestExtract_Identifier(t *testing.T) {
	s := schaden(t)

	q := extract(t, s, "Schaden S-2024-00017")
	assert.Equal(t, "(snr eq [S-2024-00017])", q.Main().String())

	q = extract(t, s, "Schaden mit Schadennummer S-2024-00017")
	assert.Equal(t, "(snr eq [S-2024-00017])", q.Main().String())
}

func TestExtract_TemplateSelection(t *testing.T) {
	q := extract(t, cover(t), "Prämien mit Mahnstufe über 2")
	assert.Equal(t, "Cover Prämien", q.Report)
	assert.Equal(t, "(mahnstufe gt [2])", q.Main().String())
	// The main keyword is also the premium column, so it is projected.
	assert.Equal(t, []queryir.Projection{{Field: "praemie"}}, q.Projections)

	// Tie between "Verträge" and "Prämie": first declared wins.
	q = extract(t, cover(t), "Verträge mit Prämie über 100")
	assert.Equal(t, "Cover Übersicht", q.Report)

	q = extract(t, schaden(t), "Zahlungen mit Betrag über 500")
	assert.Equal(t, "Schaden Zahlungen", q.Report)

	q = extract(t, cover(t), "Praemien mit Mahnstufe ueber 2")
	assert.Equal(t, "Cover Prämien", q.Report)
	assert.Equal(t, "(mahnstufe gt [2])", q.Main().String())
}

func TestExtract_FieldKeywordOfOtherReport(t *testing.T) {
	tests := []struct {
		name   string
		e      Expert
		input  string
		filter string
		sorts  []queryir.Sort
	}{
		{"cover spelling of a claims field", schaden(t), "Schäden mit Kunden Müller", "(name contains [Müller])", nil},
		{"premium keyword of the premium report", cover(t), "Verträge mit Betrag über 100", "(praemie gt [100])", nil},
		{"negated", schaden(t), "Schäden ohne Namen Müller", "(NOT (name contains [Müller]))", nil},
		{"sort", schaden(t), "Schäden sortiert nach Kunden", "",
			[]queryir.Sort{{Field: "name", Direction: queryir.Asc}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := extract(t, tt.e, tt.input)
			if tt.filter == "" {
				assert.True(t, q.Main().IsEmpty())
			} else {
				assert.Equal(t, tt.filter, q.Main().String())
			}
			assert.Equal(t, tt.sorts, q.Sorts)
		})
	}
}

func TestCompile_AndWhere(t *testing.T) {
	stmt, err := schaden(t).GenerateQuery("Zahlungen mit Betrag über 500")
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "WHERE Z.SVZ_STORNO = 0\nAND (Z.SVZ_BETRAG > @p1)\nORDER BY Z.SVZ_DAT DESC")
	assert.Equal(t, []any{int64(500)}, stmt.Params)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		code   errors.Code
		field  string
		expert string
	}{
		{"field of another report", "Verträge mit Mahnstufe 2", errors.CodeUnresolvedField, "mahnstufe", ""},
		{"sort by field of another report", "Verträge sortiert nach Fälligkeit", errors.CodeUnresolvedField, "faellig", ""},
		{"word for number", "Verträge mit Prämie über viel", errors.CodeMalformedValue, "praemie", ""},
		{"word for date", "Verträge mit Beginn ab gestern", errors.CodeMalformedValue, "beginn", ""},
		{"number for date", "Verträge mit Beginn 2020", errors.CodeMalformedValue, "beginn", ""},
		{"operator without value", "Verträge mit Status gleich", errors.CodeMalformedValue, "status", ""},
		{"range without upper bound", "Verträge mit Prämie zwischen 100", errors.CodeMalformedValue, "praemie", ""},
		{"operator without field", "Verträge > 5", errors.CodeMalformedValue, "", ""},
		{"limit without count", "die ersten viele Verträge", errors.CodeMalformedValue, "", ""},
		{"fractional limit", "Verträge limit 2,5", errors.CodeMalformedValue, "", ""},
		{"zero limit", "Verträge limit 0", errors.CodeMalformedValue, "", ""},
		{"not handled", "hallo welt", errors.CodeContractViolation, "", ""},
		{"contract field in a claims request", "Schäden mit Prämie über 100", errors.CodeUnresolvedField, "praemie", "schaden"},
		{"claims field in a contract request", "Verträge mit Schadennummer S-2024-001", errors.CodeUnresolvedField, "snr", ""},
		{"negated contract field", "Schäden ohne Makler", errors.CodeUnresolvedField, "makler", "schaden"},
		{"sort by contract field", "Schäden sortiert nach Beginn", errors.CodeUnresolvedField, "beginn", "schaden"},
		{"claims date in a contract request", "Verträge mit Meldedatum ab 01.01.2024", errors.CodeUnresolvedField, "meldedatum", ""},
	}
	experts := map[string]*Builder{"cover": cover(t), "schaden": schaden(t)}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := tt.expert
			if name == "" {
				name = "cover"
			}
			stmt, err := experts[name].GenerateQuery(tt.input)
			require.Error(t, err)
			assert.Nil(t, stmt)
			assert.Equal(t, tt.code, errors.CodeOf(err))

			var ce *errors.CompileError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
			assert.Equal(t, name, ce.Expert)
		})
	}
}

func TestCompile_UnresolvedFieldHint(t *testing.T) {
	_, err := cover(t).Compile("Verträge mit Mahnstufe 2")
	require.Error(t, err)
	hints := strings.Join(errors.GetAllHints(err), "\n")
	assert.Contains(t, hints, "Cover Übersicht")
	assert.Contains(t, hints, "VSN, Name, Status")
}

func TestCompile_MinKeywordHits(t *testing.T) {
	e := cover(t, WithMinKeywordHits(2))

	_, err := e.Compile("Verträge mit Status gleich A")
	assert.True(t, errors.HasCode(err, errors.CodeNoMatchingTemplate))
	assert.NotEmpty(t, errors.GetAllHints(err))

	c, err := e.Compile("Verträge und Policen mit Status gleich A")
	require.NoError(t, err)
	assert.Equal(t, "Cover Übersicht", c.Template.Name())
}

func TestCanHandle_IsPure(t *testing.T) {
	e := cover(t)
	for range 3 {
		assert.True(t, e.CanHandle(scenario))
	}
	_, err := e.Compile(scenario)
	require.NoError(t, err)
	assert.True(t, e.CanHandle(scenario))
}
