package tltest_test

import (
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinow/testlink-unit/mocktl"
	"github.com/kinow/testlink-unit/tltest"
)

// fakeTest implements tltest.TestingT so failure handling and cleanup-stage
// reporting can be observed without failing the real test.
type fakeTest struct {
	name     string
	failed   bool
	bailed   bool
	errors   []string
	logs     []string
	cleanups []func()
}

func (f *fakeTest) Helper()      {}
func (f *fakeTest) Name() string { return f.name }
func (f *fakeTest) Logf(format string, args ...interface{}) {
	f.logs = append(f.logs, fmt.Sprintf(format, args...))
}
func (f *fakeTest) Errorf(format string, args ...interface{}) {
	f.failed = true
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}
func (f *fakeTest) FailNow()             { f.bailed = true }
func (f *fakeTest) Failed() bool         { return f.failed }
func (f *fakeTest) Cleanup(fn func())    { f.cleanups = append(f.cleanups, fn) }
func (f *fakeTest) runCleanups() {
	for i := len(f.cleanups) - 1; i >= 0; i-- {
		f.cleanups[i]()
	}
}

func (f *fakeTest) loggedSomethingContaining(substring string) bool {
	for _, line := range f.logs {
		if strings.Contains(line, substring) {
			return true
		}
	}
	return false
}

func serverConfig(t *testing.T, service *mocktl.Service) tltest.Config {
	server := httptest.NewServer(service)
	t.Cleanup(server.Close)
	return tltest.Config{
		URL:    server.URL + mocktl.APIPath,
		DevKey: "key",
	}
}

func TestExportOfflineWhenUnconfigured(t *testing.T) {
	ft := &fakeTest{name: "TestSomething"}
	tc := tltest.Export(ft, tltest.Case{
		Info: tltest.Info{Project: "p1", Suite: "s1"},
	}, tltest.WithConfig(tltest.Config{}))

	assert.Nil(t, tc)
	assert.False(t, ft.failed)
	assert.True(t, ft.loggedSomethingContaining("running test offline"))
}

func TestExportCreatesCase(t *testing.T) {
	service := mocktl.NewService(nil)
	project := service.AddProject("p1", "P1")
	suite := service.AddSuite(project, "s1")
	cfg := serverConfig(t, service)

	tc := tltest.Export(t, tltest.Case{
		Info:     tltest.Info{Project: "p1", Suite: "s1"},
		Coverage: tltest.Coverage{SRS: "175", Requirements: []string{"7", "9"}},
		Script: tltest.Script{
			Actions:         []string{"Open application", "Login", "Click exit button"},
			ExpectedResults: []string{"Application starts", "User is authenticated", "Application closes"},
		},
	}, tltest.WithConfig(cfg))

	require.NotNil(t, tc)
	assert.Equal(t, "TestExportCreatesCase", tc.Name)
	assert.Equal(t, suite.ID, tc.SuiteID.Int())

	cases := service.CreatedCases()
	require.Len(t, cases, 1)
	assert.Equal(t, "TestExportCreatesCase", cases[0].Name)
	assert.Equal(t, tltest.DefaultAuthor, cases[0].Author)
	assert.Equal(t, tltest.DefaultSummary, cases[0].Summary)
	assert.Equal(t, tltest.DefaultPreconditions, cases[0].Preconditions)
	assert.Len(t, cases[0].Steps, 3)

	links := service.RequirementLinks(tc.ID.Int())
	require.Len(t, links, 2)
	assert.Equal(t, 175, links[0].SpecID)
	assert.Equal(t, 7, links[0].RequirementID)
}

func TestExportUsesDeclaredNameAndTexts(t *testing.T) {
	service := mocktl.NewService(nil)
	project := service.AddProject("p1", "P1")
	service.AddSuite(project, "s1")
	cfg := serverConfig(t, service)

	tc := tltest.Export(t, tltest.Case{
		Info:          tltest.Info{Project: "p1", Suite: "s1"},
		Name:          "Login works",
		Summary:       "Checks the login flow",
		Preconditions: "A registered user exists",
	}, tltest.WithConfig(cfg))

	require.NotNil(t, tc)
	cases := service.CreatedCases()
	require.Len(t, cases, 1)
	assert.Equal(t, "Login works", cases[0].Name)
	assert.Equal(t, "Checks the login flow", cases[0].Summary)
	assert.Equal(t, "A registered user exists", cases[0].Preconditions)
}

func TestExportFailsWhenProjectMissing(t *testing.T) {
	service := mocktl.NewService(nil)
	cfg := serverConfig(t, service)

	ft := &fakeTest{name: "TestSomething"}
	tc := tltest.Export(ft, tltest.Case{
		Info: tltest.Info{Project: "no such project", Suite: "s1"},
	}, tltest.WithConfig(cfg))

	assert.Nil(t, tc)
	assert.True(t, ft.bailed)
	require.NotEmpty(t, ft.errors)
	assert.Contains(t, ft.errors[0], "could not find test project: no such project")
}

func TestExportFailsWhenSuiteMissing(t *testing.T) {
	service := mocktl.NewService(nil)
	service.AddProject("p1", "P1")
	cfg := serverConfig(t, service)

	ft := &fakeTest{name: "TestSomething"}
	tltest.Export(ft, tltest.Case{
		Info: tltest.Info{Project: "p1", Suite: "no such suite"},
	}, tltest.WithConfig(cfg))

	assert.True(t, ft.bailed)
	require.NotEmpty(t, ft.errors)
	assert.Contains(t, ft.errors[0], "could not find test suite: no such suite")
}

func TestExportValidatesDeclaration(t *testing.T) {
	service := mocktl.NewService(nil)
	cfg := serverConfig(t, service)

	for _, params := range []struct {
		desc          string
		c             tltest.Case
		expectedError string
	}{
		{
			"missing project",
			tltest.Case{Info: tltest.Info{Suite: "s1"}},
			"no project name",
		},
		{
			"missing suite",
			tltest.Case{Info: tltest.Info{Project: "p1"}},
			"no suite name",
		},
		{
			"mismatched script arrays",
			tltest.Case{
				Info:   tltest.Info{Project: "p1", Suite: "s1"},
				Script: tltest.Script{Actions: []string{"a", "b"}, ExpectedResults: []string{"c"}},
			},
			"2 actions but 1 expected results",
		},
		{
			"bad requirement id",
			tltest.Case{
				Info:     tltest.Info{Project: "p1", Suite: "s1"},
				Coverage: tltest.Coverage{SRS: "175", Requirements: []string{"seven"}},
			},
			`invalid requirement id "seven"`,
		},
		{
			"bad SRS id",
			tltest.Case{
				Info:     tltest.Info{Project: "p1", Suite: "s1"},
				Coverage: tltest.Coverage{SRS: "x", Requirements: []string{"7"}},
			},
			`invalid SRS id "x"`,
		},
	} {
		t.Run(params.desc, func(t *testing.T) {
			ft := &fakeTest{name: "TestSomething"}
			tc := tltest.Export(ft, params.c, tltest.WithConfig(cfg))
			assert.Nil(t, tc)
			assert.True(t, ft.bailed)
			require.NotEmpty(t, ft.errors)
			assert.Contains(t, ft.errors[0], params.expectedError)
		})
	}
}

func TestExportReportsResultAfterTest(t *testing.T) {
	service := mocktl.NewService(nil)
	project := service.AddProject("p1", "P1")
	service.AddSuite(project, "s1")
	service.AddPlan(project, "nightly")
	cfg := serverConfig(t, service)
	cfg.Plan = "nightly"

	attachmentPath := filepath.Join(t.TempDir(), "failure.png")
	require.NoError(t, os.WriteFile(attachmentPath, []byte("screenshot bytes"), 0600))

	ft := &fakeTest{name: "TestSomething"}
	tc := tltest.Export(ft, tltest.Case{
		Info: tltest.Info{Project: "p1", Suite: "s1"},
	},
		tltest.WithConfig(cfg),
		tltest.WithStatusNotes("checked by automation"),
		tltest.WithAttachment(attachmentPath, "screenshot", "failure screenshot"),
	)
	require.NotNil(t, tc)
	assert.Empty(t, service.Executions())

	// simulate a failing test body, then the end of the test
	ft.Errorf("assertion failed")
	ft.runCleanups()

	executions := service.Executions()
	require.Len(t, executions, 1)
	assert.Equal(t, tc.ID.Int(), executions[0].CaseID)
	assert.Equal(t, "f", executions[0].Status)
	assert.Equal(t, "checked by automation", executions[0].Notes)

	attachments := service.Attachments()
	require.Len(t, attachments, 1)
	assert.Equal(t, executions[0].ID, attachments[0].ExecutionID)
	assert.Equal(t, "failure.png", attachments[0].FileName)
}

func TestExportReportsPassedWhenTestDidNotFail(t *testing.T) {
	service := mocktl.NewService(nil)
	project := service.AddProject("p1", "P1")
	service.AddSuite(project, "s1")
	service.AddPlan(project, "nightly")
	cfg := serverConfig(t, service)
	cfg.Plan = "nightly"

	ft := &fakeTest{name: "TestSomething"}
	tltest.Export(ft, tltest.Case{
		Info: tltest.Info{Project: "p1", Suite: "s1"},
	}, tltest.WithConfig(cfg))
	ft.runCleanups()

	executions := service.Executions()
	require.Len(t, executions, 1)
	assert.Equal(t, "p", executions[0].Status)

	// the build was created on demand with the default name
	builds := service.CallsTo("tl.createBuild")
	require.Len(t, builds, 1)
	assert.Equal(t, tltest.DefaultBuild, builds[0].Args()["buildname"])
}

func TestExportReportingFailureDoesNotPanic(t *testing.T) {
	service := mocktl.NewService(nil)
	project := service.AddProject("p1", "P1")
	service.AddSuite(project, "s1")
	cfg := serverConfig(t, service)
	cfg.Plan = "no such plan"

	ft := &fakeTest{name: "TestSomething"}
	tltest.Export(ft, tltest.Case{
		Info: tltest.Info{Project: "p1", Suite: "s1"},
	}, tltest.WithConfig(cfg))
	ft.runCleanups()

	require.NotEmpty(t, ft.errors)
	assert.Contains(t, ft.errors[0], "cannot report result to TestLink")
	assert.Empty(t, service.Executions())
}

func TestExportWithInjectedSite(t *testing.T) {
	service := mocktl.NewService(nil)
	project := service.AddProject("p1", "P1")
	service.AddSuite(project, "s1")
	site := newSiteForTest(t, service)

	tc := tltest.Export(t, tltest.Case{
		Info: tltest.Info{Project: "p1", Suite: "s1"},
		Name: "injected site export",
	}, tltest.WithSite(site))
	require.NotNil(t, tc)
	assert.Len(t, service.CreatedCases(), 1)
}
