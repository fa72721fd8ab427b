package testlink

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kolo/xmlrpc"
)

// APIPath is the path of the XML-RPC endpoint under a TestLink installation's
// base URL.
const APIPath = "/lib/api/xmlrpc.php"

// Client talks to a TestLink server through its XML-RPC API. Each method maps
// 1:1 to a tl.* remote method: it builds one request struct (devKey plus
// parameters), issues the call, and decodes the result. There is no retrying
// and no caching; concurrency safety is whatever the transport provides.
type Client struct {
	rpc    *xmlrpc.Client
	devKey string
}

// NewClient creates a Client for the given endpoint URL (the full path ending
// in /lib/api/xmlrpc.php) and developer key. A nil transport uses
// http.DefaultTransport.
func NewClient(endpoint, devKey string, transport http.RoundTripper) (*Client, error) {
	rpc, err := xmlrpc.NewClient(endpoint, transport)
	if err != nil {
		return nil, fmt.Errorf("cannot create XML-RPC client for %q: %w", endpoint, err)
	}
	return &Client{rpc: rpc, devKey: devKey}, nil
}

// Close releases the transport.
func (c *Client) Close() error {
	return c.rpc.Close()
}

// rpcArgs is the single struct parameter every tl.* method takes.
type rpcArgs map[string]interface{}

// call issues one remote method call and decodes the response generically, so
// the server's error convention can be detected before the payload is
// interpreted.
func (c *Client) call(method string, args interface{}) (interface{}, error) {
	var raw interface{}
	if err := c.rpc.Call(method, args, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if apiErr := errorIn(raw); apiErr != nil {
		return nil, fmt.Errorf("%s: %w", method, apiErr)
	}
	return raw, nil
}

// errorIn detects the server's error shape: an array whose first element is a
// struct holding only "code" and "message" members.
func errorIn(raw interface{}) *APIError {
	list, ok := raw.([]interface{})
	if !ok || len(list) == 0 {
		return nil
	}
	m, ok := list[0].(map[string]interface{})
	if !ok || len(m) > 2 {
		return nil
	}
	codeValue, hasCode := m["code"]
	messageValue, hasMessage := m["message"]
	if !hasCode || !hasMessage {
		return nil
	}
	code := 0
	switch c := codeValue.(type) {
	case int:
		code = c
	case int64:
		code = int(c)
	case float64:
		code = int(c)
	case string:
		code, _ = strconv.Atoi(c)
	}
	message, _ := messageValue.(string)
	return &APIError{Code: code, Message: message}
}

// decodeInto re-marshals a generically decoded value through encoding/json
// into a typed target. String-typed numbers and flags in the payload are
// absorbed by the ID and Flag adapter types.
func decodeInto(raw interface{}, target interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// Ping checks connectivity, returning the server's greeting.
func (c *Client) Ping() (string, error) {
	raw, err := c.call("tl.ping", nil)
	if err != nil {
		return "", err
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("tl.ping: unexpected response of type %T", raw)
	}
	return s, nil
}

// Projects returns all test projects visible to the developer key.
func (c *Client) Projects() ([]TestProject, error) {
	raw, err := c.call("tl.getProjects", rpcArgs{"devKey": c.devKey})
	if err != nil {
		return nil, err
	}
	var projects []TestProject
	if err := decodeInto(raw, &projects); err != nil {
		return nil, fmt.Errorf("tl.getProjects: %w", err)
	}
	return projects, nil
}

// CreateProjectParams are the inputs to CreateProject.
type CreateProjectParams struct {
	Name               string
	Prefix             string
	Notes              string
	EnableRequirements bool
	EnableTestPriority bool
	EnableAutomation   bool
	EnableInventory    bool
	Active             bool
	Public             bool
}

// CreateProject creates a new test project and returns it with the
// server-assigned id.
func (c *Client) CreateProject(p CreateProjectParams) (*TestProject, error) {
	args := rpcArgs{
		"devKey":          c.devKey,
		"testprojectname": p.Name,
		"testcaseprefix":  p.Prefix,
		"notes":           p.Notes,
		"options": rpcArgs{
			"requirementsEnabled": boolToInt(p.EnableRequirements),
			"testPriorityEnabled": boolToInt(p.EnableTestPriority),
			"automationEnabled":   boolToInt(p.EnableAutomation),
			"inventoryEnabled":    boolToInt(p.EnableInventory),
		},
		"active": boolToInt(p.Active),
		"public": boolToInt(p.Public),
	}
	raw, err := c.call("tl.createTestProject", args)
	if err != nil {
		return nil, err
	}
	var created []struct {
		ID      ID     `json:"id"`
		Message string `json:"message"`
	}
	if err := decodeInto(raw, &created); err != nil {
		return nil, fmt.Errorf("tl.createTestProject: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("tl.createTestProject: empty response")
	}
	return &TestProject{
		ID:     created[0].ID,
		Name:   p.Name,
		Prefix: p.Prefix,
		Notes:  p.Notes,
		Active: Flag(p.Active),
		Public: Flag(p.Public),
		Options: ProjectOptions{
			RequirementsEnabled: Flag(p.EnableRequirements),
			TestPriorityEnabled: Flag(p.EnableTestPriority),
			AutomationEnabled:   Flag(p.EnableAutomation),
			InventoryEnabled:    Flag(p.EnableInventory),
		},
	}, nil
}

// FirstLevelSuites returns the test suites at the top level of a project.
func (c *Client) FirstLevelSuites(projectID int) ([]TestSuite, error) {
	raw, err := c.call("tl.getFirstLevelTestSuitesForTestProject", rpcArgs{
		"devKey":        c.devKey,
		"testprojectid": projectID,
	})
	if err != nil {
		return nil, err
	}
	var suites []TestSuite
	if err := decodeInto(raw, &suites); err != nil {
		return nil, fmt.Errorf("tl.getFirstLevelTestSuitesForTestProject: %w", err)
	}
	return suites, nil
}

// CreateTestCaseParams are the inputs to CreateTestCase.
type CreateTestCaseParams struct {
	Name                string
	SuiteID             int
	ProjectID           int
	AuthorLogin         string
	Summary             string
	Steps               []TestCaseStep
	Preconditions       string
	Importance          Importance
	ExecutionType       ExecutionType
	Order               int
	InternalID          int
	CheckDuplicatedName bool
	ActionOnDuplicate   DuplicateAction
}

// CreateTestCase creates a test case (or, depending on ActionOnDuplicate, a
// new version of an existing one). The returned case has ID, ExternalID, and
// Version filled in from the server's additionalInfo.
func (c *Client) CreateTestCase(p CreateTestCaseParams) (*TestCase, error) {
	args := rpcArgs{
		"devKey":        c.devKey,
		"testcasename":  p.Name,
		"testsuiteid":   p.SuiteID,
		"testprojectid": p.ProjectID,
		"authorlogin":   p.AuthorLogin,
		"summary":       p.Summary,
		"steps":         stepArgs(p.Steps),
		"preconditions": p.Preconditions,
		"importance":    int(p.Importance),
		"executiontype": int(p.ExecutionType),
	}
	if p.Order != 0 {
		args["order"] = p.Order
	}
	if p.InternalID != 0 {
		args["internalid"] = p.InternalID
	}
	if p.CheckDuplicatedName {
		args["checkduplicatedname"] = 1
		args["actiononduplicatedname"] = string(p.ActionOnDuplicate)
	}
	raw, err := c.call("tl.createTestCase", args)
	if err != nil {
		return nil, err
	}
	var created []struct {
		ID             ID `json:"id"`
		AdditionalInfo struct {
			ID            ID   `json:"id"`
			ExternalID    ID   `json:"external_id"`
			VersionNumber ID   `json:"version_number"`
			HasDuplicate  Flag `json:"has_duplicate"`
		} `json:"additionalInfo"`
		Message string `json:"message"`
	}
	if err := decodeInto(raw, &created); err != nil {
		return nil, fmt.Errorf("tl.createTestCase: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("tl.createTestCase: empty response")
	}
	info := created[0].AdditionalInfo
	tc := &TestCase{
		ID:            info.ID,
		ExternalID:    info.ExternalID,
		Version:       info.VersionNumber,
		Name:          p.Name,
		SuiteID:       ID(p.SuiteID),
		ProjectID:     ID(p.ProjectID),
		AuthorLogin:   p.AuthorLogin,
		Summary:       p.Summary,
		Preconditions: p.Preconditions,
		Importance:    p.Importance,
		ExecutionType: p.ExecutionType,
		Order:         p.Order,
		Steps:         p.Steps,
	}
	if tc.ID == 0 {
		tc.ID = created[0].ID
	}
	return tc, nil
}

// RequirementGroup is a set of requirement ids under one requirement
// specification folder.
type RequirementGroup struct {
	SpecID       int
	Requirements []int
}

// AssignRequirements links requirements to a test case.
func (c *Client) AssignRequirements(caseID, projectID int, groups []RequirementGroup) error {
	reqs := make([]rpcArgs, 0, len(groups))
	for _, g := range groups {
		reqs = append(reqs, rpcArgs{
			"req_spec":     g.SpecID,
			"requirements": g.Requirements,
		})
	}
	_, err := c.call("tl.assignRequirements", rpcArgs{
		"devKey":        c.devKey,
		"testcaseid":    caseID,
		"testprojectid": projectID,
		"requirements":  reqs,
	})
	return err
}

// TestPlanByName looks up a test plan by project and plan name.
func (c *Client) TestPlanByName(projectName, planName string) (*TestPlan, error) {
	raw, err := c.call("tl.getTestPlanByName", rpcArgs{
		"devKey":          c.devKey,
		"testprojectname": projectName,
		"testplanname":    planName,
	})
	if err != nil {
		return nil, err
	}
	var plans []TestPlan
	if err := decodeInto(raw, &plans); err != nil {
		return nil, fmt.Errorf("tl.getTestPlanByName: %w", err)
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("tl.getTestPlanByName: no plan named %q in project %q", planName, projectName)
	}
	return &plans[0], nil
}

// LatestBuildForPlan returns the most recent build of a test plan, or nil
// when the plan has no builds.
func (c *Client) LatestBuildForPlan(planID int) (*Build, error) {
	raw, err := c.call("tl.getLatestBuildForTestPlan", rpcArgs{
		"devKey":     c.devKey,
		"testplanid": planID,
	})
	if err != nil {
		return nil, err
	}
	// An empty array means no builds; otherwise the build is a single struct.
	if list, ok := raw.([]interface{}); ok {
		if len(list) == 0 {
			return nil, nil
		}
		raw = list[0]
	}
	var build Build
	if err := decodeInto(raw, &build); err != nil {
		return nil, fmt.Errorf("tl.getLatestBuildForTestPlan: %w", err)
	}
	return &build, nil
}

// CreateBuild creates a build within a test plan.
func (c *Client) CreateBuild(planID int, name, notes string) (*Build, error) {
	raw, err := c.call("tl.createBuild", rpcArgs{
		"devKey":     c.devKey,
		"testplanid": planID,
		"buildname":  name,
		"buildnotes": notes,
	})
	if err != nil {
		return nil, err
	}
	var created []struct {
		ID ID `json:"id"`
	}
	if err := decodeInto(raw, &created); err != nil {
		return nil, fmt.Errorf("tl.createBuild: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("tl.createBuild: empty response")
	}
	return &Build{ID: created[0].ID, PlanID: ID(planID), Name: name, Notes: notes}, nil
}

// ReportResultParams are the inputs to ReportResult.
type ReportResultParams struct {
	TestCaseID int
	PlanID     int
	BuildID    int
	Status     ExecutionStatus
	Notes      string
	Overwrite  bool
}

// ReportResultOutcome is the server's acknowledgment of a reported execution.
type ReportResultOutcome struct {
	ExecutionID int
	Message     string
}

// ReportResult records the execution result of a test case against a plan
// and build.
func (c *Client) ReportResult(p ReportResultParams) (*ReportResultOutcome, error) {
	raw, err := c.call("tl.reportTCResult", rpcArgs{
		"devKey":     c.devKey,
		"testcaseid": p.TestCaseID,
		"testplanid": p.PlanID,
		"buildid":    p.BuildID,
		"status":     string(p.Status),
		"notes":      p.Notes,
		"overwrite":  p.Overwrite,
	})
	if err != nil {
		return nil, err
	}
	var results []struct {
		ID      ID     `json:"id"`
		Message string `json:"message"`
	}
	if err := decodeInto(raw, &results); err != nil {
		return nil, fmt.Errorf("tl.reportTCResult: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("tl.reportTCResult: empty response")
	}
	return &ReportResultOutcome{ExecutionID: results[0].ID.Int(), Message: results[0].Message}, nil
}

// UploadAttachmentParams are the inputs to UploadExecutionAttachment.
// Content must already be base64-encoded.
type UploadAttachmentParams struct {
	ExecutionID int
	Title       string
	Description string
	FileName    string
	FileType    string
	Content     string
}

// UploadExecutionAttachment attaches a file to a recorded test execution.
func (c *Client) UploadExecutionAttachment(p UploadAttachmentParams) (*Attachment, error) {
	raw, err := c.call("tl.uploadExecutionAttachment", rpcArgs{
		"devKey":      c.devKey,
		"executionid": p.ExecutionID,
		"title":       p.Title,
		"description": p.Description,
		"filename":    p.FileName,
		"filetype":    p.FileType,
		"content":     p.Content,
	})
	if err != nil {
		return nil, err
	}
	var attachment Attachment
	if err := decodeInto(raw, &attachment); err != nil {
		return nil, fmt.Errorf("tl.uploadExecutionAttachment: %w", err)
	}
	return &attachment, nil
}

// CustomFieldQuery identifies a custom field value of a test case version.
type CustomFieldQuery struct {
	ProjectID      int
	CaseExternalID string
	Version        int
	FieldName      string
	Details        ResponseDetails
}

// CustomFieldValue fetches a custom field of a test case version.
func (c *Client) CustomFieldValue(q CustomFieldQuery) (*CustomField, error) {
	details := q.Details
	if details == "" {
		details = DetailsFull
	}
	raw, err := c.call("tl.getTestCaseCustomFieldDesignValue", rpcArgs{
		"devKey":             c.devKey,
		"testprojectid":      q.ProjectID,
		"testcaseexternalid": q.CaseExternalID,
		"version":            q.Version,
		"customfieldname":    q.FieldName,
		"details":            string(details),
	})
	if err != nil {
		return nil, err
	}
	var field CustomField
	if err := decodeInto(raw, &field); err != nil {
		return nil, fmt.Errorf("tl.getTestCaseCustomFieldDesignValue: %w", err)
	}
	return &field, nil
}

func stepArgs(steps []TestCaseStep) []rpcArgs {
	out := make([]rpcArgs, 0, len(steps))
	for _, s := range steps {
		out = append(out, rpcArgs{
			"step_number":      s.Number,
			"actions":          s.Actions,
			"expected_results": s.ExpectedResults,
			"execution_type":   int(s.ExecutionType),
		})
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
