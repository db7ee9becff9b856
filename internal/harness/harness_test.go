package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const suitesDir = "testdata/suites"

func TestSuites(t *testing.T) {
	suites, err := LoadSuites(suitesDir, "")
	require.NoError(t, err)
	require.Len(t, suites, 4)

	for _, s := range suites {
		t.Run(s.Name, func(t *testing.T) {
			eng, err := EngineFor(s)
			require.NoError(t, err)
			res := RunWithGolden(t, eng, s)
			assert.True(t, res.Pass())
			assert.Equal(t, len(s.Cases), res.Passed)
		})
	}
}

func TestLoadSuites_Filter(t *testing.T) {
	suites, err := LoadSuites(suitesDir, "c*")
	require.NoError(t, err)
	require.Len(t, suites, 1)
	assert.Equal(t, "cover", suites[0].Name)

	_, err = LoadSuites(suitesDir, "[")
	assert.Error(t, err)
}

func writeSuite(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadSuite_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown field", "name: x\ndescription: d\ncases:\n  - name: a\n    input: b\n    expect:\n      sql_contain: [x]\n", "sql_contain"},
		{"no name", "description: d\ncases:\n  - {name: a, input: b}\n", "name is required"},
		{"no description", "name: x\ncases:\n  - {name: a, input: b}\n", "description is required"},
		{"no cases", "name: x\ndescription: d\n", "cases list"},
		{"bad dialect", "name: x\ndescription: d\ndialect: oracle\ncases:\n  - {name: a, input: b}\n", "oracle"},
		{"empty input", "name: x\ndescription: d\ncases:\n  - {name: a, input: ' '}\n", "input is required"},
		{"duplicate case", "name: x\ndescription: d\ncases:\n  - {name: a b, input: c}\n  - {name: A-B, input: c}\n", "duplicate"},
		{"unknown code", "name: x\ndescription: d\ncases:\n  - {name: a, input: b, expect: {error: BROKEN}}\n", "BROKEN"},
		{"error with sql", "name: x\ndescription: d\ncases:\n  - {name: a, input: b, expect: {error: MALFORMED_VALUE, params: [1]}}\n", "only expect the error code"},
		{"float param", "name: x\ndescription: d\ncases:\n  - {name: a, input: b, expect: {params: [1.5]}}\n", "params[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSuite(writeSuite(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_ReportsMismatches(t *testing.T) {
	limit := 3
	s := &Suite{
		Name:        "mismatch",
		Description: "expectations that do not hold",
		Cases: []Case{
			{Name: "wrong domain", Input: "stornierte Verträge", Expect: Expect{Domain: "SCHADEN", Params: []any{"A"}, Limit: &limit}},
			{Name: "missing error", Input: "stornierte Verträge", Expect: Expect{Error: "MALFORMED_VALUE"}},
			{Name: "unexpected error", Input: "hallo welt"},
			{Name: "wrong code", Input: "hallo welt", Expect: Expect{Error: "INPUT_TOO_LONG"}},
			{Name: "sql fragment", Input: "stornierte Verträge", Expect: Expect{SQLContains: []string{"LU_XYZ"}, SQLNotContains: []string{"LU_STA"}}},
			{Name: "ok", Input: "stornierte Verträge", Expect: Expect{Filter: "(status eq [S])", Params: []any{"S"}}},
		},
	}
	eng, err := EngineFor(s)
	require.NoError(t, err)

	res := Run(eng, s)
	assert.False(t, res.Pass())
	assert.Equal(t, 1, res.Passed)
	assert.Equal(t, 5, res.Failed)

	assert.Len(t, res.Cases[0].Errors, 3, "domain, params and limit")
	assert.Contains(t, res.Cases[1].Errors[0], "expected error MALFORMED_VALUE")
	assert.Contains(t, res.Cases[2].Errors[0], "unexpected error UNRECOGNIZED_REQUEST")
	assert.Contains(t, res.Cases[3].Errors[0], "want INPUT_TOO_LONG")
	assert.Len(t, res.Cases[4].Errors, 2)
	assert.True(t, res.Cases[5].Pass)
	assert.Equal(t, "COVER", res.Cases[5].Domain)
}

func TestCheckGolden(t *testing.T) {
	dir := t.TempDir()
	s := &Suite{
		Name:        "Golden Übung",
		Description: "d",
		Path:        filepath.Join(dir, "golden.yaml"),
		Cases: []Case{
			{Name: "snap", Input: "stornierte Verträge", Expect: Expect{Golden: true}},
			{Name: "plain", Input: "stornierte Verträge"},
		},
	}
	eng, err := EngineFor(s)
	require.NoError(t, err)

	res := Run(eng, s)
	require.NoError(t, CheckGolden(s, res, false))
	assert.Equal(t, 1, res.Failed, "missing snapshot fails")
	assert.Contains(t, res.Cases[0].Errors[0], "missing")

	res = Run(eng, s)
	require.NoError(t, CheckGolden(s, res, true))
	assert.True(t, res.Pass())
	path := filepath.Join(dir, "golden", "golden-ubung", "snap.golden")
	assert.FileExists(t, path)
	assert.NoFileExists(t, filepath.Join(dir, "golden", "golden-ubung", "plain.golden"))

	res = Run(eng, s)
	require.NoError(t, CheckGolden(s, res, false))
	assert.True(t, res.Pass())

	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))
	res = Run(eng, s)
	require.NoError(t, CheckGolden(s, res, false))
	assert.False(t, res.Pass())
	assert.Contains(t, res.Cases[0].Errors[0], "golden mismatch")
}

func TestSnapshot(t *testing.T) {
	got, err := Snapshot(&CaseResult{
		Input:  "Zahlungen über 500",
		SQL:    "SELECT 1",
		Params: []any{int64(500), "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, "-- input\nZahlungen über 500\n-- sql\nSELECT 1\n-- params\n[500,\"x\"]\n", string(got))

	got, err = Snapshot(&CaseResult{Input: "hallo", Code: "UNRECOGNIZED_REQUEST"})
	require.NoError(t, err)
	assert.Equal(t, "-- input\nhallo\n-- error\nUNRECOGNIZED_REQUEST\n", string(got))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "status-scenario", slug("status scenario"))
	assert.Equal(t, "pramien-uber-100", slug("Prämien über 100!"))
	assert.Equal(t, "strasse", slug("  Straße "))
}
