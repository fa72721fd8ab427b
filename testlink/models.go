// Package testlink is a client for the TestLink XML-RPC API. It provides
// pass-through representations of the entities the server owns (projects,
// suites, cases, steps, plans, builds, requirements, custom fields,
// attachments) and one client method per remote operation. The XML-RPC wire
// format itself is handled by the transport library.
package testlink

import (
	"fmt"
	"strconv"
	"strings"
)

// ID is an integer identifier. TestLink 1.9.x serializes numbers as strings
// in many responses ("id": "7"), so ID accepts both forms when decoding.
type ID int

func (id ID) Int() int { return int(id) }

func (id *ID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid id value %s", string(data))
	}
	*id = ID(n)
	return nil
}

// Flag is a boolean that accepts the server's assorted encodings: JSON
// booleans, numbers, and "0"/"1" strings.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	switch s {
	case "", "null", "0", "false":
		*f = false
	case "1", "true":
		*f = true
	default:
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid flag value %s", string(data))
		}
		*f = n != 0
	}
	return nil
}

// TestProject is a test project as reported by the server.
type TestProject struct {
	ID      ID             `json:"id"`
	Name    string         `json:"name"`
	Prefix  string         `json:"prefix"`
	Notes   string         `json:"notes"`
	Active  Flag           `json:"active"`
	Public  Flag           `json:"is_public"`
	Options ProjectOptions `json:"opt"`
}

// ProjectOptions are the feature toggles of a test project.
type ProjectOptions struct {
	RequirementsEnabled Flag `json:"requirementsEnabled"`
	TestPriorityEnabled Flag `json:"testPriorityEnabled"`
	AutomationEnabled   Flag `json:"automationEnabled"`
	InventoryEnabled    Flag `json:"inventoryEnabled"`
}

// TestSuite is a test suite within a project.
type TestSuite struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	ParentID ID     `json:"parent_id"`
	Details  string `json:"details"`
}

// TestCase is a test case. When returned from CreateTestCase, ID, ExternalID,
// and Version reflect what the server assigned; the remaining fields echo the
// request.
type TestCase struct {
	ID            ID             `json:"id"`
	ExternalID    ID             `json:"external_id"`
	Version       ID             `json:"version"`
	Name          string         `json:"name"`
	SuiteID       ID             `json:"testsuite_id"`
	ProjectID     ID             `json:"testproject_id"`
	AuthorLogin   string         `json:"author_login"`
	Summary       string         `json:"summary"`
	Preconditions string         `json:"preconditions"`
	Importance    Importance     `json:"importance"`
	ExecutionType ExecutionType  `json:"execution_type"`
	Order         int            `json:"-"`
	Steps         []TestCaseStep `json:"steps"`
}

// TestCaseStep is one manual step of a test case: what to do and what should
// happen.
type TestCaseStep struct {
	Number          int           `json:"step_number"`
	Actions         string        `json:"actions"`
	ExpectedResults string        `json:"expected_results"`
	ExecutionType   ExecutionType `json:"execution_type"`
}

// TestPlan is a test plan within a project.
type TestPlan struct {
	ID        ID     `json:"id"`
	Name      string `json:"name"`
	Notes     string `json:"notes"`
	Active    Flag   `json:"active"`
	Public    Flag   `json:"is_public"`
	ProjectID ID     `json:"testproject_id"`
}

// Build is a build within a test plan. Execution results are recorded
// against a build.
type Build struct {
	ID     ID     `json:"id"`
	PlanID ID     `json:"testplan_id"`
	Name   string `json:"name"`
	Notes  string `json:"notes"`
}

// Requirement links a test case to a requirement inside a requirement
// specification folder.
type Requirement struct {
	ID        ID     `json:"id"`
	ReqSpecID ID     `json:"srs_id"`
	DocID     string `json:"req_doc_id"`
}

// CustomField is a custom field definition together with its value for a
// particular test case version.
type CustomField struct {
	ID             ID     `json:"id"`
	Name           string `json:"name"`
	Label          string `json:"label"`
	Type           ID     `json:"type"`
	Value          string `json:"value"`
	DefaultValue   string `json:"default_value"`
	PossibleValues string `json:"possible_values"`
}

// Attachment describes a file attached to a test execution.
type Attachment struct {
	FileName    string `json:"file_name"`
	FileType    string `json:"file_type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Size        ID     `json:"size"`
}
