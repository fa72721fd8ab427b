package tltest_test

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinow/testlink-unit/logging"
	"github.com/kinow/testlink-unit/mocktl"
	"github.com/kinow/testlink-unit/testlink"
	"github.com/kinow/testlink-unit/tltest"
)

func newSiteForTest(t *testing.T, service *mocktl.Service) *tltest.Site {
	server := httptest.NewServer(service)
	t.Cleanup(server.Close)
	site, err := tltest.Connect(tltest.Config{
		URL:    server.URL + mocktl.APIPath,
		DevKey: "key",
	}, logging.NullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = site.Close() })
	return site
}

func TestConnectRejectsBadURL(t *testing.T) {
	_, err := tltest.Connect(tltest.Config{URL: "not a url", DevKey: "key"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection problems with TestLink")
}

func TestSitePing(t *testing.T) {
	service := mocktl.NewService(nil)
	server := httptest.NewServer(service)
	t.Cleanup(server.Close)

	var logger logging.CapturingLogger
	site, err := tltest.Connect(tltest.Config{
		URL:    server.URL + mocktl.APIPath,
		DevKey: "key",
	}, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = site.Close() })

	answer, err := site.Ping()
	require.NoError(t, err)
	assert.Equal(t, "Hello!", answer)
	assert.True(t, logger.Output().HasMessageContaining("answer to ping is"))
}

func TestFindProject(t *testing.T) {
	service := mocktl.NewService(nil)
	service.AddProject("p1", "P1")
	site := newSiteForTest(t, service)

	project, err := site.FindProject("p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", project.Name)

	_, err = site.FindProject("nope")
	require.Error(t, err)
	assert.EqualError(t, err, "could not find test project: nope")
}

func TestFindFirstLevelSuite(t *testing.T) {
	service := mocktl.NewService(nil)
	project := service.AddProject("p1", "P1")
	suite := service.AddSuite(project, "s1")
	site := newSiteForTest(t, service)

	found, err := site.FindFirstLevelSuite(project.ID, "s1")
	require.NoError(t, err)
	assert.Equal(t, suite.ID, found.ID.Int())

	_, err = site.FindFirstLevelSuite(project.ID, "nope")
	require.Error(t, err)
	assert.EqualError(t, err, "could not find test suite: nope")
}

func TestBuildSteps(t *testing.T) {
	steps, err := tltest.BuildSteps(
		[]string{"Open application", "Login"},
		[]string{"Application starts", "User is authenticated"},
	)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].Number)
	assert.Equal(t, "Open application", steps[0].Actions)
	assert.Equal(t, "Application starts", steps[0].ExpectedResults)
	assert.Equal(t, testlink.ExecutionManual, steps[0].ExecutionType)
	assert.Equal(t, 2, steps[1].Number)
}

func TestBuildStepsRejectsInvalidInput(t *testing.T) {
	_, err := tltest.BuildSteps(nil, []string{"x"})
	assert.EqualError(t, err, "test script arrays must not be nil")

	_, err = tltest.BuildSteps([]string{"x"}, nil)
	assert.EqualError(t, err, "test script arrays must not be nil")

	_, err = tltest.BuildSteps([]string{"a", "b"}, []string{"c"})
	assert.EqualError(t, err, "test script has 2 actions but 1 expected results")
}

func TestBuildStepPairs(t *testing.T) {
	steps := tltest.BuildStepPairs([][2]string{
		{"Open application", "Application starts"},
		{"Click exit button", "Application closes"},
	})
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].Number)
	assert.Equal(t, "Click exit button", steps[1].Actions)
	assert.Equal(t, "Application closes", steps[1].ExpectedResults)
}

func TestCreateCaseWithStepsUsesUpdateSemantics(t *testing.T) {
	service := mocktl.NewService(nil)
	project := service.AddProject("p1", "P1")
	suite := service.AddSuite(project, "s1")
	site := newSiteForTest(t, service)

	steps, err := tltest.BuildSteps([]string{"Login"}, []string{"User is authenticated"})
	require.NoError(t, err)
	tc, err := site.CreateCaseWithSteps("TestLogin", suite.ID, project.ID,
		"admin", "summary", "preconditions", steps)
	require.NoError(t, err)
	assert.NotZero(t, tc.ID.Int())

	calls := service.CallsTo("tl.createTestCase")
	require.Len(t, calls, 1)
	args := calls[0].Args()
	assert.Equal(t, 1, args["checkduplicatedname"])
	assert.Equal(t, "create_newversion", args["actiononduplicatedname"])
	assert.Equal(t, 2, args["executiontype"])
	assert.Equal(t, 2, args["importance"])
}

func TestSiteAssignRequirements(t *testing.T) {
	service := mocktl.NewService(nil)
	project := service.AddProject("p1", "P1")
	suite := service.AddSuite(project, "s1")
	site := newSiteForTest(t, service)

	tc, err := site.CreateCaseWithSteps("TestLogin", suite.ID, project.ID,
		"admin", "summary", "preconditions", nil)
	require.NoError(t, err)

	require.NoError(t, site.AssignRequirements(tc, 175, []int{7, 9}))
	links := service.RequirementLinks(tc.ID.Int())
	require.Len(t, links, 2)
	assert.Equal(t, 175, links[0].SpecID)

	// no requirements declared means no remote call
	require.NoError(t, site.AssignRequirements(tc, 175, nil))
	assert.Len(t, service.CallsTo("tl.assignRequirements"), 1)
}

func TestEnsureBuild(t *testing.T) {
	service := mocktl.NewService(nil)
	project := service.AddProject("p1", "P1")
	plan := service.AddPlan(project, "nightly")
	site := newSiteForTest(t, service)

	// no build yet: one gets created
	build, err := site.EnsureBuild(plan.ID, "automated")
	require.NoError(t, err)
	assert.Equal(t, "automated", build.Name)

	// latest build matches: reused, no new build
	again, err := site.EnsureBuild(plan.ID, "automated")
	require.NoError(t, err)
	assert.Equal(t, build.ID, again.ID)
	assert.Len(t, service.CallsTo("tl.createBuild"), 1)

	// latest build has another name: a new one is created
	other, err := site.EnsureBuild(plan.ID, "release-1.0")
	require.NoError(t, err)
	assert.NotEqual(t, build.ID, other.ID)
	assert.Equal(t, "release-1.0", other.Name)
}

func TestSiteReportResultAndAttachment(t *testing.T) {
	service := mocktl.NewService(nil)
	project := service.AddProject("p1", "P1")
	suite := service.AddSuite(project, "s1")
	plan := service.AddPlan(project, "nightly")
	site := newSiteForTest(t, service)

	tc, err := site.CreateCaseWithSteps("TestLogin", suite.ID, project.ID,
		"admin", "summary", "preconditions", nil)
	require.NoError(t, err)
	build, err := site.EnsureBuild(plan.ID, "automated")
	require.NoError(t, err)

	executionID, err := site.ReportResult(tc.ID.Int(), plan.ID, build.ID.Int(),
		testlink.StatusFailed, "assertion failed")
	require.NoError(t, err)
	assert.NotZero(t, executionID)

	path := filepath.Join(t.TempDir(), "failure.png")
	require.NoError(t, os.WriteFile(path, []byte("screenshot bytes"), 0600))
	attachment, err := site.UploadExecutionAttachment(executionID, path, "screenshot", "failure screenshot")
	require.NoError(t, err)
	assert.Equal(t, "failure.png", attachment.FileName)

	attachments := service.Attachments()
	require.Len(t, attachments, 1)
	assert.Equal(t, "image/png", attachments[0].FileType)

	_, err = site.UploadExecutionAttachment(executionID, filepath.Join(t.TempDir(), "missing.png"), "", "")
	assert.Error(t, err)
}

func TestSiteCustomFieldValue(t *testing.T) {
	service := mocktl.NewService(nil)
	project := service.AddProject("p1", "P1")
	service.SetCustomField(project.ID, "P1-1", "Java Class", "just-a-test")
	site := newSiteForTest(t, service)

	field, err := site.CustomFieldValue(project.ID, "P1-1", 1, "Java Class")
	require.NoError(t, err)
	assert.Equal(t, "just-a-test", field.Value)
}
