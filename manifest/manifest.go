// Package manifest loads bulk test-case declarations from YAML or JSON files
// for import into a test-management server. Each file targets one project and
// one first-level suite and lists any number of manual test cases.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Document is one manifest file: a batch of manual test cases destined for a
// single project and first-level suite.
type Document struct {
	FilePath string `yaml:"-"`
	Project  string `yaml:"project"`
	Suite    string `yaml:"suite"`
	Cases    []Case `yaml:"cases"`
}

// Case is one declared test case.
type Case struct {
	Name          string   `yaml:"name"`
	Summary       string   `yaml:"summary"`
	Preconditions string   `yaml:"preconditions"`
	SRS           string   `yaml:"srs"`
	Requirements  []string `yaml:"requirements"`
	Steps         []Step   `yaml:"steps"`
}

// Step is one manual step of a declared case.
type Step struct {
	Action   string `yaml:"action"`
	Expected string `yaml:"expected"`
}

// StepPairs returns the steps as (action, expected result) pairs.
func (c Case) StepPairs() [][2]string {
	pairs := make([][2]string, 0, len(c.Steps))
	for _, s := range c.Steps {
		pairs = append(pairs, [2]string{s.Action, s.Expected})
	}
	return pairs
}

// ReadFile parses and validates one manifest file. JSON files parse too,
// since JSON is a subset of YAML.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // the file path is meant to be a variable
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing %q: %w", path, err)
	}
	doc.FilePath = path
	if err := doc.validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %q: %w", path, err)
	}
	return &doc, nil
}

// ReadDir loads every .yaml, .yml, and .json file in a directory.
func ReadDir(path string) ([]Document, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var ret []Document
	for _, entry := range entries {
		if entry.IsDir() || !isManifestFile(entry.Name()) {
			continue
		}
		doc, err := ReadFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		ret = append(ret, *doc)
	}
	return ret, nil
}

func isManifestFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func (d Document) validate() error {
	if d.Project == "" {
		return fmt.Errorf("manifest has no project name")
	}
	if d.Suite == "" {
		return fmt.Errorf("manifest has no suite name")
	}
	for i, c := range d.Cases {
		if c.Name == "" {
			return fmt.Errorf("case %d has no name", i+1)
		}
		for j, s := range c.Steps {
			if s.Action == "" || s.Expected == "" {
				return fmt.Errorf("case %q step %d must have both an action and an expected result",
					c.Name, j+1)
			}
		}
	}
	return nil
}
