package tltest

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"

	"github.com/kinow/testlink-unit/logging"
	"github.com/kinow/testlink-unit/testlink"
)

// Site wraps a testlink.Client with the narrow convenience methods the export
// sequence needs, logging each remote operation.
type Site struct {
	client *testlink.Client
	logger logging.Logger
}

// Connect validates the endpoint URL and opens a Site on it. The connection
// is not exercised until the first remote call; use Ping to check it.
func Connect(cfg Config, logger logging.Logger) (*Site, error) {
	if logger == nil {
		logger = logging.NullLogger()
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("connection problems with TestLink: %w", err)
	}
	client, err := testlink.NewClient(cfg.URL, cfg.DevKey, nil)
	if err != nil {
		return nil, fmt.Errorf("connection problems with TestLink: %w", err)
	}
	return &Site{client: client, logger: logger}, nil
}

// NewSiteForClient wraps an already-built client. Useful for custom
// transports.
func NewSiteForClient(client *testlink.Client, logger logging.Logger) *Site {
	if logger == nil {
		logger = logging.NullLogger()
	}
	return &Site{client: client, logger: logger}
}

// Close releases the underlying transport.
func (s *Site) Close() error {
	return s.client.Close()
}

// Ping calls the remote ping, logging and returning the server's answer.
func (s *Site) Ping() (string, error) {
	answer, err := s.client.Ping()
	if err != nil {
		return "", err
	}
	s.logger.Printf("answer to ping is: %s", answer)
	return answer, nil
}

// Projects returns all test projects.
func (s *Site) Projects() ([]testlink.TestProject, error) {
	return s.client.Projects()
}

// FindProject returns the test project with the given name.
func (s *Site) FindProject(name string) (*testlink.TestProject, error) {
	projects, err := s.client.Projects()
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.Name == name {
			p := p
			return &p, nil
		}
	}
	return nil, fmt.Errorf("could not find test project: %s", name)
}

// FindFirstLevelSuite returns the suite with the given name at the top level
// of a project.
func (s *Site) FindFirstLevelSuite(projectID int, name string) (*testlink.TestSuite, error) {
	suites, err := s.client.FirstLevelSuites(projectID)
	if err != nil {
		return nil, err
	}
	for _, suite := range suites {
		if suite.Name == name {
			suite := suite
			return &suite, nil
		}
	}
	return nil, fmt.Errorf("could not find test suite: %s", name)
}

// BuildSteps converts parallel action/expected-result arrays into manual
// steps numbered from 1. Both arrays must be non-nil and the same length.
func BuildSteps(actions, expectedResults []string) ([]testlink.TestCaseStep, error) {
	if actions == nil || expectedResults == nil {
		return nil, fmt.Errorf("test script arrays must not be nil")
	}
	if len(actions) != len(expectedResults) {
		return nil, fmt.Errorf("test script has %d actions but %d expected results",
			len(actions), len(expectedResults))
	}
	steps := make([]testlink.TestCaseStep, 0, len(actions))
	for i := range actions {
		steps = append(steps, testlink.TestCaseStep{
			Number:          i + 1,
			Actions:         actions[i],
			ExpectedResults: expectedResults[i],
			ExecutionType:   testlink.ExecutionManual,
		})
	}
	return steps, nil
}

// BuildStepPairs is the pair-wise variant of BuildSteps: each element is an
// (action, expected result) pair.
func BuildStepPairs(pairs [][2]string) []testlink.TestCaseStep {
	steps := make([]testlink.TestCaseStep, 0, len(pairs))
	for i, pair := range pairs {
		steps = append(steps, testlink.TestCaseStep{
			Number:          i + 1,
			Actions:         pair[0],
			ExpectedResults: pair[1],
			ExecutionType:   testlink.ExecutionManual,
		})
	}
	return steps
}

// CreateCaseWithSteps creates a test case with duplicate-name checking on and
// action on duplicate "create_newversion", so re-exporting an existing case
// produces a new version rather than a copy. Importance is medium and the
// execution type is automated.
func (s *Site) CreateCaseWithSteps(name string, suiteID, projectID int,
	author, summary, preconditions string, steps []testlink.TestCaseStep) (*testlink.TestCase, error) {
	tc, err := s.client.CreateTestCase(testlink.CreateTestCaseParams{
		Name:                name,
		SuiteID:             suiteID,
		ProjectID:           projectID,
		AuthorLogin:         author,
		Summary:             summary,
		Steps:               steps,
		Preconditions:       preconditions,
		Importance:          testlink.ImportanceMedium,
		ExecutionType:       testlink.ExecutionAutomated,
		CheckDuplicatedName: true,
		ActionOnDuplicate:   testlink.DuplicateCreateNewVersion,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("created test case %q (id %d, version %d)", name, tc.ID.Int(), tc.Version.Int())
	return tc, nil
}

// AssignRequirements links the requirements, grouped under one SRS folder, to
// the test case.
func (s *Site) AssignRequirements(tc *testlink.TestCase, srsID int, requirementIDs []int) error {
	if len(requirementIDs) == 0 {
		return nil
	}
	group := testlink.RequirementGroup{SpecID: srsID, Requirements: requirementIDs}
	if err := s.client.AssignRequirements(tc.ID.Int(), tc.ProjectID.Int(),
		[]testlink.RequirementGroup{group}); err != nil {
		return err
	}
	s.logger.Printf("linked %d requirement(s) to test case %d", len(requirementIDs), tc.ID.Int())
	return nil
}

// CreateProject creates a new test project.
func (s *Site) CreateProject(p testlink.CreateProjectParams) (*testlink.TestProject, error) {
	project, err := s.client.CreateProject(p)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("created test project %q (id %d)", project.Name, project.ID.Int())
	return project, nil
}

// CustomFieldValue fetches a custom field of a test case version, with full
// details.
func (s *Site) CustomFieldValue(projectID int, caseExternalID string, version int,
	fieldName string) (*testlink.CustomField, error) {
	return s.client.CustomFieldValue(testlink.CustomFieldQuery{
		ProjectID:      projectID,
		CaseExternalID: caseExternalID,
		Version:        version,
		FieldName:      fieldName,
		Details:        testlink.DetailsFull,
	})
}

// FindPlan looks up a test plan by project and plan name.
func (s *Site) FindPlan(projectName, planName string) (*testlink.TestPlan, error) {
	return s.client.TestPlanByName(projectName, planName)
}

// EnsureBuild returns the plan's latest build when its name matches,
// otherwise creates a build with the wanted name.
func (s *Site) EnsureBuild(planID int, name string) (*testlink.Build, error) {
	build, err := s.client.LatestBuildForPlan(planID)
	if err != nil {
		var apiErr *testlink.APIError
		if !errors.As(err, &apiErr) {
			return nil, err
		}
		build = nil
	}
	if build != nil && build.Name == name {
		return build, nil
	}
	created, err := s.client.CreateBuild(planID, name, "created automatically")
	if err != nil {
		return nil, err
	}
	s.logger.Printf("created build %q (id %d) in plan %d", name, created.ID.Int(), planID)
	return created, nil
}

// ReportResult records an execution result, returning the execution id.
func (s *Site) ReportResult(caseID, planID, buildID int,
	status testlink.ExecutionStatus, notes string) (int, error) {
	outcome, err := s.client.ReportResult(testlink.ReportResultParams{
		TestCaseID: caseID,
		PlanID:     planID,
		BuildID:    buildID,
		Status:     status,
		Notes:      notes,
	})
	if err != nil {
		return 0, err
	}
	s.logger.Printf("reported result %q for test case %d (execution %d)",
		status, caseID, outcome.ExecutionID)
	return outcome.ExecutionID, nil
}

// UploadExecutionAttachment reads a file, base64-encodes it, and uploads it
// against a test execution. The MIME type is sniffed from the extension.
func (s *Site) UploadExecutionAttachment(executionID int, path, title, description string) (*testlink.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read attachment %q: %w", path, err)
	}
	fileName := filepath.Base(path)
	fileType := mime.TypeByExtension(filepath.Ext(path))
	if fileType == "" {
		fileType = "application/octet-stream"
	}
	attachment, err := s.client.UploadExecutionAttachment(testlink.UploadAttachmentParams{
		ExecutionID: executionID,
		Title:       title,
		Description: description,
		FileName:    fileName,
		FileType:    fileType,
		Content:     base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("uploaded attachment %q to execution %d", fileName, executionID)
	return attachment, nil
}
