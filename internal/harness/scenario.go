package harness

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/querysql"
)

// knownCodes are the error codes a case may expect.
var knownCodes = []string{
	string(errors.CodeNoMatchingTemplate),
	string(errors.CodeUnrecognizedRequest),
	string(errors.CodeUnresolvedField),
	string(errors.CodeMalformedValue),
	string(errors.CodeContractViolation),
	string(errors.CodeInputTooLong),
}

// LoadSuite reads and validates a suite file. Unknown YAML fields are
// rejected so typos in expectations do not silently pass.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read suite")
	}

	var s Suite
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	s.Path = path

	if err := validateSuite(&s); err != nil {
		return nil, errors.Wrapf(err, "invalid suite %s", path)
	}
	return &s, nil
}

// LoadSuites loads every .yaml and .yml file below dir, sorted by path.
// filter, if set, is a glob matched against the file name without extension.
func LoadSuites(dir, filter string) ([]*Suite, error) {
	files, err := FindSuiteFiles(dir, filter)
	if err != nil {
		return nil, err
	}
	suites := make([]*Suite, 0, len(files))
	for _, f := range files {
		s, err := LoadSuite(f)
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}
	return suites, nil
}

// FindSuiteFiles lists suite files below dir. The golden directory is skipped.
func FindSuiteFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == goldenDir && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			ok, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return errors.Wrap(err, "invalid filter pattern")
			}
			if !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", dir)
	}
	slices.Sort(files)
	return files, nil
}

func validateSuite(s *Suite) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if _, err := querysql.DialectByName(s.Dialect); err != nil {
		return err
	}
	if len(s.Cases) == 0 {
		return errors.New("cases list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return errors.Newf("cases[%d]: name is required", i)
		}
		if seen[slug(c.Name)] {
			return errors.Newf("cases[%d]: duplicate name %q", i, c.Name)
		}
		seen[slug(c.Name)] = true

		if strings.TrimSpace(c.Input) == "" {
			return errors.Newf("cases[%d] %s: input is required", i, c.Name)
		}
		if err := validateExpect(&c.Expect); err != nil {
			return errors.Wrapf(err, "cases[%d] %s", i, c.Name)
		}
	}
	return nil
}

func validateExpect(e *Expect) error {
	if e.Error != "" {
		if !slices.Contains(knownCodes, e.Error) {
			return errors.Newf("unknown error code %q", e.Error)
		}
		if len(e.SQLContains) > 0 || len(e.Params) > 0 || e.Limit != nil || e.Report != "" || e.Domain != "" || e.Filter != "" {
			return errors.New("error cases can only expect the error code")
		}
	}
	if e.Limit != nil && *e.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	for i, p := range e.Params {
		switch p.(type) {
		case string, int, int64, bool:
		default:
			return errors.Newf("params[%d]: unsupported type %T", i, p)
		}
	}
	return nil
}
