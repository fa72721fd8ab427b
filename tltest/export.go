package tltest

import (
	"fmt"
	"strings"

	"github.com/kinow/testlink-unit/testlink"
)

// TestingT is the subset of *testing.T that Export needs.
type TestingT interface {
	Helper()
	Name() string
	Logf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	FailNow()
	Failed() bool
	Cleanup(func())
}

type exportOptions struct {
	config      *Config
	site        *Site
	attachments []attachmentDecl
	statusNotes string
}

type attachmentDecl struct {
	path        string
	title       string
	description string
}

// Option adjusts an Export call.
type Option interface {
	apply(*exportOptions)
}

type optionFunc func(*exportOptions)

func (f optionFunc) apply(o *exportOptions) { f(o) }

// WithConfig supplies the configuration directly instead of reading it from
// the environment.
func WithConfig(cfg Config) Option {
	return optionFunc(func(o *exportOptions) { o.config = &cfg })
}

// WithSite supplies an already-connected Site. The export will not close it.
func WithSite(site *Site) Option {
	return optionFunc(func(o *exportOptions) { o.site = site })
}

// WithAttachment declares a file to upload against the test's execution when
// result reporting is enabled. May be repeated.
func WithAttachment(path, title, description string) Option {
	return optionFunc(func(o *exportOptions) {
		o.attachments = append(o.attachments, attachmentDecl{path, title, description})
	})
}

// WithStatusNotes sets the notes recorded with the execution result.
func WithStatusNotes(notes string) Option {
	return optionFunc(func(o *exportOptions) { o.statusNotes = notes })
}

// Export pushes the declared test-case metadata to the TestLink server. It is
// meant to be called at the top of a test:
//
//	func TestLogin(t *testing.T) {
//		tltest.Export(t, tltest.Case{
//			Info: tltest.Info{Project: "p1", Suite: "s1"},
//			Script: tltest.Script{
//				Actions:         []string{"Open application", "Login"},
//				ExpectedResults: []string{"Application starts", "User is authenticated"},
//			},
//		})
//		// the test itself
//	}
//
// When the environment has no connection configuration the test runs offline
// and nothing is exported. The export resolves the project and suite by name,
// creates the test case (a new version when it already exists), and links any
// declared requirements. When a test plan is configured, the test's result is
// reported against the plan after the test finishes, and any declared
// attachments are uploaded against that execution.
//
// Any failure during the export aborts the test; there is no retrying.
// Returns the created test case, or nil when offline.
func Export(t TestingT, c Case, opts ...Option) *testlink.TestCase {
	t.Helper()

	var options exportOptions
	for _, o := range opts {
		o.apply(&options)
	}

	var cfg Config
	if options.config != nil {
		cfg = options.config.withDefaults()
	} else {
		cfg = ConfigFromEnv()
	}

	if options.site == nil && cfg.Offline() {
		t.Logf("running test offline")
		return nil
	}

	site := options.site
	if site == nil {
		var err error
		site, err = Connect(cfg, testLogger{t})
		if err != nil {
			fail(t, err)
			return nil
		}
		t.Cleanup(func() { _ = site.Close() })
	}

	if err := c.validate(); err != nil {
		fail(t, err)
		return nil
	}

	var steps []testlink.TestCaseStep
	if c.Script.declared() {
		var err error
		steps, err = BuildSteps(c.Script.Actions, c.Script.ExpectedResults)
		if err != nil {
			fail(t, err)
			return nil
		}
	}

	project, err := site.FindProject(c.Info.Project)
	if err != nil {
		fail(t, err)
		return nil
	}
	suite, err := site.FindFirstLevelSuite(project.ID.Int(), c.Info.Suite)
	if err != nil {
		fail(t, err)
		return nil
	}

	name := c.Name
	if name == "" {
		name = t.Name()
	}
	summary := c.Summary
	if summary == "" {
		summary = cfg.Summary
	}
	preconditions := c.Preconditions
	if preconditions == "" {
		preconditions = cfg.Preconditions
	}

	tc, err := site.CreateCaseWithSteps(name, suite.ID.Int(), project.ID.Int(),
		cfg.Author, summary, preconditions, steps)
	if err != nil {
		fail(t, err)
		return nil
	}

	if c.Coverage.Declared() {
		srs, ids, err := c.Coverage.ParseIDs()
		if err != nil {
			fail(t, err)
			return nil
		}
		if err := site.AssignRequirements(tc, srs, ids); err != nil {
			fail(t, err)
			return nil
		}
	}

	if cfg.Plan != "" {
		registerResultReporting(t, site, cfg, c.Info.Project, tc, options)
	}

	return tc
}

// registerResultReporting defers the execution-result push until the test has
// finished, so the recorded status reflects the real outcome. Failures at
// this stage are reported but cannot abort the test - the run is already
// finishing.
func registerResultReporting(t TestingT, site *Site, cfg Config, projectName string,
	tc *testlink.TestCase, options exportOptions) {
	t.Cleanup(func() {
		plan, err := site.FindPlan(projectName, cfg.Plan)
		if err != nil {
			t.Errorf("cannot report result to TestLink: %v", err)
			return
		}
		build, err := site.EnsureBuild(plan.ID.Int(), cfg.Build)
		if err != nil {
			t.Errorf("cannot report result to TestLink: %v", err)
			return
		}
		status := testlink.StatusPassed
		if t.Failed() {
			status = testlink.StatusFailed
		}
		executionID, err := site.ReportResult(tc.ID.Int(), plan.ID.Int(), build.ID.Int(),
			status, options.statusNotes)
		if err != nil {
			t.Errorf("cannot report result to TestLink: %v", err)
			return
		}
		for _, a := range options.attachments {
			if _, err := site.UploadExecutionAttachment(executionID, a.path, a.title, a.description); err != nil {
				t.Errorf("cannot upload attachment %q: %v", a.path, err)
			}
		}
	})
}

func fail(t TestingT, err error) {
	t.Helper()
	t.Errorf("testlink export failed: %v", err)
	t.FailNow()
}

// testLogger routes Site logging into the test's own log.
type testLogger struct {
	t TestingT
}

func (l testLogger) Println(args ...interface{}) {
	l.t.Logf("%s", strings.TrimRight(fmt.Sprintln(args...), "\r\n"))
}

func (l testLogger) Printf(format string, args ...interface{}) {
	l.t.Logf(format, args...)
}
