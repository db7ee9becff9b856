package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const practiceSuite = `name: Uebung cli
description: compile checks for the test command
cases:
  - name: status
    input: "zeige VSN und Name, wo Status gleich A, sortiert nach VSN"
    expect:
      domain: COVER
      params: ["A"]
      golden: true
  - name: unbekannt
    input: hallo welt
    expect:
      error: UNRECOGNIZED_REQUEST
`

func TestTest_Suites(t *testing.T) {
	code, stdout, stderr := runCLI(t, "test", filepath.Join("..", "harness", "testdata", "suites"))
	require.Equal(t, ExitSuccess, code, stdout+stderr)
	assert.Contains(t, stdout, "✓ status scenario")
	assert.Contains(t, stdout, " 0 failed,")
}

func TestTest_GoldenLifecycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "uebung.yaml", practiceSuite)
	golden := filepath.Join(dir, "golden", "uebung-cli", "status.golden")

	code, stdout, _ := runCLI(t, "test", dir)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "✗ status")
	assert.Contains(t, stdout, "golden file "+golden+" missing")
	assert.Contains(t, stdout, "✓ unbekannt")
	assert.Contains(t, stdout, "1 passed, 1 failed, 2 total")

	code, _, _ = runCLI(t, "test", "--update", dir)
	require.Equal(t, ExitSuccess, code)
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), "WHERE (LAL.LU_STA = @p1)")

	code, stdout, _ = runCLI(t, "test", dir)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "2 passed, 0 failed, 2 total")

	require.NoError(t, os.WriteFile(golden, []byte("stale\n"), 0o600))
	code, stdout, _ = runCLI(t, "test", dir)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "golden mismatch")
}

func TestTest_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "uebung.yaml", practiceSuite)

	code, stdout, _ := runCLI(t, "--format", "json", "test", dir)
	assert.Equal(t, ExitFailure, code)
	resp := decode(t, stdout)
	assert.Equal(t, "error", resp.Status)
	assert.EqualValues(t, 1, resp.Data["passed"])
	assert.EqualValues(t, 1, resp.Data["failed"])
	assert.EqualValues(t, 2, resp.Data["total"])

	suites := resp.Data["suites"].([]any)
	require.Len(t, suites, 1)
	assert.Equal(t, "Uebung cli", suites[0].(map[string]any)["name"])
}

func TestTest_Filter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "uebung.yaml", practiceSuite)

	code, stdout, _ := runCLI(t, "test", "--filter", "other*", dir)
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "No scenarios found.\n", stdout)
}

func TestTest_InvalidSuite(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\ndescription: x\ncases: []\n")

	code, _, stderr := runCLI(t, "test", dir)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "Error [SUITE_ERROR]")
	assert.Contains(t, stderr, "cases list is required")

	code, _, stderr = runCLI(t, "test", filepath.Join(dir, "missing"))
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "Error [SUITE_ERROR]")
}
