// Package tltest lets automated tests declare test-management metadata and
// push it to a TestLink server. A test builds a Case value describing where
// it lives (project, suite), which requirements it covers, and its manual
// script, then calls Export at the top of the test function.
package tltest

import (
	"fmt"
	"strconv"
)

// Info places a test case in the test-management tree: the test project name
// and the name of a first-level suite under it. Both are required.
type Info struct {
	Project string
	Suite   string
}

// Coverage links a test to the requirements it covers: the id of the
// requirement-specification folder plus the requirement ids, as strings, the
// way TestLink displays them.
type Coverage struct {
	SRS          string
	Requirements []string
}

// Declared reports whether any requirements were declared.
func (cov Coverage) Declared() bool {
	return len(cov.Requirements) > 0
}

// ParseIDs converts the declared SRS folder id and requirement ids to
// integers.
func (cov Coverage) ParseIDs() (srs int, ids []int, err error) {
	srs, err = strconv.Atoi(cov.SRS)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid SRS id %q", cov.SRS)
	}
	ids = make([]int, 0, len(cov.Requirements))
	for _, r := range cov.Requirements {
		id, err := strconv.Atoi(r)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid requirement id %q", r)
		}
		ids = append(ids, id)
	}
	return srs, ids, nil
}

// Script lists the manual steps of a test: two parallel arrays of actions and
// expected results that must be the same length.
type Script struct {
	Actions         []string
	ExpectedResults []string
}

func (s Script) declared() bool {
	return s.Actions != nil || s.ExpectedResults != nil
}

// Case is the full declaration attached to a test. Name defaults to the
// running test's name; Summary and Preconditions default from configuration.
type Case struct {
	Info          Info
	Coverage      Coverage
	Script        Script
	Name          string
	Summary       string
	Preconditions string
}

func (c Case) validate() error {
	if c.Info.Project == "" {
		return fmt.Errorf("test case declaration has no project name")
	}
	if c.Info.Suite == "" {
		return fmt.Errorf("test case declaration has no suite name")
	}
	if len(c.Script.Actions) != len(c.Script.ExpectedResults) {
		return fmt.Errorf("test script has %d actions but %d expected results",
			len(c.Script.Actions), len(c.Script.ExpectedResults))
	}
	if c.Coverage.Declared() {
		if _, _, err := c.Coverage.ParseIDs(); err != nil {
			return err
		}
	}
	return nil
}
