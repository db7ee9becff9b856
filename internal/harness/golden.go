package harness

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/nlq/internal/engine"
	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/ir"
	"github.com/roach88/nlq/internal/querysql"
	"github.com/roach88/nlq/internal/textnorm"
)

const (
	goldenDir    = "golden"
	goldenSuffix = ".golden"
)

// Snapshot renders the golden form of a case result:
//
//	-- input
//	<request>
//	-- sql
//	<statement>
//	-- params
//	<canonical JSON array>
//
// Failed compilations snapshot the error code instead of sql and params.
func Snapshot(r *CaseResult) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("-- input\n")
	b.WriteString(r.Input)
	b.WriteString("\n")

	if r.Code != "" {
		b.WriteString("-- error\n")
		b.WriteString(r.Code)
		b.WriteString("\n")
		return b.Bytes(), nil
	}

	stmt, err := (&querysql.Statement{SQL: r.SQL, Params: r.Params}).Canonical()
	if err != nil {
		return nil, errors.Wrapf(err, "case %s", r.Name)
	}
	pj, err := ir.MarshalCanonical(stmt["params"])
	if err != nil {
		return nil, errors.Wrapf(err, "case %s: params", r.Name)
	}
	b.WriteString("-- sql\n")
	b.WriteString(r.SQL)
	b.WriteString("\n-- params\n")
	b.Write(pj)
	b.WriteString("\n")
	return b.Bytes(), nil
}

// GoldenDir is where the snapshots of s are stored.
func GoldenDir(s *Suite) string {
	base := "."
	if s.Path != "" {
		base = filepath.Dir(s.Path)
	}
	return filepath.Join(base, goldenDir, slug(s.Name))
}

// GoldenPath is the snapshot file of one case.
func GoldenPath(s *Suite, caseName string) string {
	return filepath.Join(GoldenDir(s), slug(caseName)+goldenSuffix)
}

// CheckGolden compares every golden case of res with its snapshot file and
// marks mismatches as failures. With update set the files are rewritten
// instead.
func CheckGolden(s *Suite, res *SuiteResult, update bool) error {
	for i := range res.Cases {
		c := &res.Cases[i]
		if !c.golden {
			continue
		}
		got, err := Snapshot(c)
		if err != nil {
			return err
		}
		path := GoldenPath(s, c.Name)

		if update {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return errors.Wrap(err, "create golden directory")
			}
			if err := os.WriteFile(path, got, 0o644); err != nil {
				return errors.Wrapf(err, "write %s", path)
			}
			continue
		}

		want, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			c.fail("golden file %s missing (run with --update)", path)
		case err != nil:
			return errors.Wrapf(err, "read %s", path)
		case !bytes.Equal(want, got):
			c.fail("golden mismatch in %s (run with --update to regenerate)", path)
		}
	}
	res.tally()
	return nil
}

// RunWithGolden runs s in a test. Failing cases are reported as test errors
// and golden cases are compared with goldie, so `go test -update`
// regenerates the snapshots.
func RunWithGolden(t *testing.T, eng *engine.Engine, s *Suite) *SuiteResult {
	t.Helper()
	res := Run(eng, s)

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir(s)),
		goldie.WithNameSuffix(goldenSuffix),
	)
	for i := range res.Cases {
		c := &res.Cases[i]
		for _, e := range c.Errors {
			t.Errorf("%s/%s: %s", s.Name, c.Name, e)
		}
		if !c.golden {
			continue
		}
		snap, err := Snapshot(c)
		if err != nil {
			t.Errorf("%s/%s: %v", s.Name, c.Name, err)
			continue
		}
		g.Assert(t, slug(c.Name), snap)
	}
	return res
}

// slug turns a name into a file name: folded, with runs of anything but
// letters and digits collapsed to "-".
func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range textnorm.Fold(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
