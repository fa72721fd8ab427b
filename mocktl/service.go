// Package mocktl is an in-memory fake of a TestLink XML-RPC endpoint, used by
// this repository's tests and usable by consumers for theirs. It serves the
// tl.* methods the client calls against a small stateful backend, records
// every call for assertions, and can be told to fail specific methods.
package mocktl

import (
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/kinow/testlink-unit/logging"
)

// APIPath is where the fake endpoint is mounted, mirroring a real TestLink
// installation's layout.
const APIPath = "/testlink/lib/api/xmlrpc.php"

// Call records one remote method invocation.
type Call struct {
	Method string
	Params []interface{}
}

// Args returns the call's single struct parameter, or an empty map when the
// method was called without one.
func (c Call) Args() map[string]interface{} {
	if len(c.Params) > 0 {
		if m, ok := c.Params[0].(map[string]interface{}); ok {
			return m
		}
	}
	return map[string]interface{}{}
}

// Project is a test project held by the fake server, with its first-level
// suites.
type Project struct {
	ID     int
	Name   string
	Prefix string
	Notes  string
	Suites []Suite
}

// Suite is a first-level test suite of a Project.
type Suite struct {
	ID   int
	Name string
}

// TestPlan is a test plan held by the fake server.
type TestPlan struct {
	ID      int
	Name    string
	Project string
}

// Build is a build within a TestPlan.
type Build struct {
	ID     int
	PlanID int
	Name   string
	Notes  string
}

// CreatedCase records a test case created through the API. Version counts up
// when a duplicate name arrives with action "create_newversion".
type CreatedCase struct {
	ID            int
	ExternalID    int
	Version       int
	Name          string
	SuiteID       int
	ProjectID     int
	Author        string
	Summary       string
	Preconditions string
	Steps         []interface{}
}

// RequirementLink records one requirement assigned to a test case.
type RequirementLink struct {
	SpecID        int
	RequirementID int
}

// Execution records one reported test result.
type Execution struct {
	ID      int
	CaseID  int
	PlanID  int
	BuildID int
	Status  string
	Notes   string
}

// UploadedAttachment records one attachment uploaded against an execution.
type UploadedAttachment struct {
	ExecutionID int
	Title       string
	Description string
	FileName    string
	FileType    string
	Content     string
}

type customFieldState struct {
	projectID      int
	caseExternalID string
	name           string
	value          string
}

type apiError struct {
	code    int
	message string
}

func (e *apiError) Error() string { return e.message }

type faultSpec struct {
	code    int
	message string
}

type handlerFunc func(params []interface{}) (interface{}, error)

// Service is the fake server. It implements http.Handler; serve it with
// httptest.NewServer and point a client at server.URL + APIPath.
type Service struct {
	router   *mux.Router
	logger   logging.Logger
	handlers map[string]handlerFunc

	lock         sync.Mutex
	calls        []Call
	forced       map[string]*apiError
	faults       map[string]faultSpec
	devKey       string
	projects     []*Project
	plans        []*TestPlan
	builds       []*Build
	cases        []*CreatedCase
	executions   []*Execution
	attachments  []*UploadedAttachment
	requirements map[int][]RequirementLink
	customFields []customFieldState
	nextID       int
}

// NewService creates an empty fake server. Use the Add* methods to seed state.
func NewService(logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NullLogger()
	}
	s := &Service{
		logger:       logger,
		forced:       make(map[string]*apiError),
		faults:       make(map[string]faultSpec),
		requirements: make(map[int][]RequirementLink),
		nextID:       1,
	}
	s.handlers = map[string]handlerFunc{
		"tl.ping":                                 s.ping,
		"tl.getProjects":                          s.getProjects,
		"tl.createTestProject":                    s.createTestProject,
		"tl.getFirstLevelTestSuitesForTestProject": s.getFirstLevelSuites,
		"tl.createTestCase":                       s.createTestCase,
		"tl.assignRequirements":                   s.assignRequirements,
		"tl.getTestPlanByName":                    s.getTestPlanByName,
		"tl.getLatestBuildForTestPlan":            s.getLatestBuild,
		"tl.createBuild":                          s.createBuild,
		"tl.reportTCResult":                       s.reportTCResult,
		"tl.uploadExecutionAttachment":            s.uploadExecutionAttachment,
		"tl.getTestCaseCustomFieldDesignValue":    s.getCustomFieldValue,
	}
	router := mux.NewRouter()
	router.HandleFunc(APIPath, s.serveCall).Methods("POST")
	s.router = router
	return s
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Service) serveCall(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()
	method, params, err := decodeMethodCall(body)
	if err != nil {
		s.logger.Printf("[mocktl] unreadable request: %s", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Printf("[mocktl] got %s", method)

	response := s.dispatch(method, params)
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write(response)
}

// dispatch runs a handler under the state lock and encodes its result.
func (s *Service) dispatch(method string, params []interface{}) []byte {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.calls = append(s.calls, Call{Method: method, Params: params})
	if f, ok := s.faults[method]; ok {
		return encodeFault(f.code, f.message)
	}
	if forced, ok := s.forced[method]; ok {
		return encodeMethodResponse(errorPayload(forced.code, forced.message))
	}
	handler, ok := s.handlers[method]
	if !ok {
		return encodeMethodResponse(errorPayload(2000, "Can not find the callback function: "+method))
	}
	result, err := handler(params)
	if err != nil {
		if ae, ok := err.(*apiError); ok {
			return encodeMethodResponse(errorPayload(ae.code, ae.message))
		}
		return encodeFault(1, err.Error())
	}
	return encodeMethodResponse(result)
}

func errorPayload(code int, message string) interface{} {
	return []interface{}{map[string]interface{}{
		"code":    code,
		"message": message,
	}}
}

func (s *Service) allocID() int {
	id := s.nextID
	s.nextID++
	return id
}

// SetDevKey makes the server reject calls carrying a different developer key.
func (s *Service) SetDevKey(key string) {
	s.lock.Lock()
	s.devKey = key
	s.lock.Unlock()
}

// AddProject seeds a test project.
func (s *Service) AddProject(name, prefix string) *Project {
	s.lock.Lock()
	defer s.lock.Unlock()
	p := &Project{ID: s.allocID(), Name: name, Prefix: prefix}
	s.projects = append(s.projects, p)
	return p
}

// AddSuite seeds a first-level suite under a project.
func (s *Service) AddSuite(project *Project, name string) Suite {
	s.lock.Lock()
	defer s.lock.Unlock()
	suite := Suite{ID: s.allocID(), Name: name}
	project.Suites = append(project.Suites, suite)
	return suite
}

// AddPlan seeds a test plan under a project.
func (s *Service) AddPlan(project *Project, name string) *TestPlan {
	s.lock.Lock()
	defer s.lock.Unlock()
	plan := &TestPlan{ID: s.allocID(), Name: name, Project: project.Name}
	s.plans = append(s.plans, plan)
	return plan
}

// AddBuild seeds a build under a test plan.
func (s *Service) AddBuild(plan *TestPlan, name string) *Build {
	s.lock.Lock()
	defer s.lock.Unlock()
	build := &Build{ID: s.allocID(), PlanID: plan.ID, Name: name}
	s.builds = append(s.builds, build)
	return build
}

// SetCustomField seeds a custom field value for a test case version.
func (s *Service) SetCustomField(projectID int, caseExternalID, fieldName, value string) {
	s.lock.Lock()
	s.customFields = append(s.customFields, customFieldState{
		projectID:      projectID,
		caseExternalID: caseExternalID,
		name:           fieldName,
		value:          value,
	})
	s.lock.Unlock()
}

// FailWith makes the named method return a TestLink error payload.
func (s *Service) FailWith(method string, code int, message string) {
	s.lock.Lock()
	s.forced[method] = &apiError{code: code, message: message}
	s.lock.Unlock()
}

// FaultWith makes the named method return an XML-RPC fault.
func (s *Service) FaultWith(method string, code int, message string) {
	s.lock.Lock()
	s.faults[method] = faultSpec{code: code, message: message}
	s.lock.Unlock()
}

// Calls returns all recorded calls in order.
func (s *Service) Calls() []Call {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the recorded calls to one method.
func (s *Service) CallsTo(method string) []Call {
	s.lock.Lock()
	defer s.lock.Unlock()
	var ret []Call
	for _, c := range s.calls {
		if c.Method == method {
			ret = append(ret, c)
		}
	}
	return ret
}

// CreatedCases returns the test cases created through the API.
func (s *Service) CreatedCases() []CreatedCase {
	s.lock.Lock()
	defer s.lock.Unlock()
	ret := make([]CreatedCase, 0, len(s.cases))
	for _, c := range s.cases {
		ret = append(ret, *c)
	}
	return ret
}

// RequirementLinks returns the requirements assigned to a test case.
func (s *Service) RequirementLinks(caseID int) []RequirementLink {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]RequirementLink(nil), s.requirements[caseID]...)
}

// Executions returns the reported test results.
func (s *Service) Executions() []Execution {
	s.lock.Lock()
	defer s.lock.Unlock()
	ret := make([]Execution, 0, len(s.executions))
	for _, e := range s.executions {
		ret = append(ret, *e)
	}
	return ret
}

// Attachments returns the uploaded attachments.
func (s *Service) Attachments() []UploadedAttachment {
	s.lock.Lock()
	defer s.lock.Unlock()
	ret := make([]UploadedAttachment, 0, len(s.attachments))
	for _, a := range s.attachments {
		ret = append(ret, *a)
	}
	return ret
}
