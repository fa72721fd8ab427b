package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/exp/slices"

	"github.com/kinow/testlink-unit/logging"
	"github.com/kinow/testlink-unit/manifest"
	"github.com/kinow/testlink-unit/testlink"
	"github.com/kinow/testlink-unit/tltest"
)

var successColor = color.New(color.FgGreen) //nolint:gochecknoglobals
var failureColor = color.New(color.FgRed)   //nolint:gochecknoglobals

func run(params commandParams, command string, args []string) error {
	cfg, err := params.resolveConfig()
	if err != nil {
		return err
	}
	if cfg.Offline() {
		return fmt.Errorf("no server configured: set -url and -devkey, or %s and %s",
			tltest.EnvURL, tltest.EnvDevKey)
	}

	logger := logging.NullLogger()
	if params.debug {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	site, err := tltest.Connect(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = site.Close() }()

	switch command {
	case "ping":
		return runPing(site)
	case "projects":
		return runProjects(site)
	case "create-project":
		return runCreateProject(site, args)
	case "import":
		return runImport(site, cfg, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (c *commandParams) resolveConfig() (tltest.Config, error) {
	var cfg tltest.Config
	var err error
	if c.envFile != "" {
		cfg, err = tltest.ConfigFromEnvFile(c.envFile)
		if err != nil {
			return tltest.Config{}, err
		}
	} else {
		cfg = tltest.ConfigFromEnv()
	}
	if c.url != "" {
		cfg.URL = c.url
	}
	if c.devKey != "" {
		cfg.DevKey = c.devKey
	}
	if c.author != "" {
		cfg.Author = c.author
	}
	return cfg, nil
}

func runPing(site *tltest.Site) error {
	answer, err := site.Ping()
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}

func runProjects(site *tltest.Site) error {
	projects, err := site.Projects()
	if err != nil {
		return err
	}
	slices.SortFunc(projects, func(a, b testlink.TestProject) int {
		return strings.Compare(a.Name, b.Name)
	})
	for _, p := range projects {
		fmt.Printf("%6d  %-8s %s\n", p.ID.Int(), p.Prefix, p.Name)
	}
	return nil
}

func runCreateProject(site *tltest.Site, args []string) error {
	fs := flag.NewFlagSet("create-project", flag.ExitOnError)
	name := fs.String("name", "", "project name (required)")
	prefix := fs.String("prefix", "", "test case prefix (required)")
	notes := fs.String("notes", "", "project description")
	requirements := fs.Bool("requirements", true, "enable the requirements feature")
	priority := fs.Bool("priority", true, "enable test priority")
	automation := fs.Bool("automation", true, "enable test automation (API keys)")
	inventory := fs.Bool("inventory", false, "enable inventory")
	inactive := fs.Bool("inactive", false, "create the project inactive")
	private := fs.Bool("private", false, "create the project private")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *prefix == "" {
		return fmt.Errorf("create-project requires -name and -prefix")
	}
	project, err := site.CreateProject(testlink.CreateProjectParams{
		Name:               *name,
		Prefix:             *prefix,
		Notes:              *notes,
		EnableRequirements: *requirements,
		EnableTestPriority: *priority,
		EnableAutomation:   *automation,
		EnableInventory:    *inventory,
		Active:             !*inactive,
		Public:             !*private,
	})
	if err != nil {
		return err
	}
	_, _ = successColor.Printf("Created project %q (id %d)\n", project.Name, project.ID.Int())
	return nil
}

func runImport(site *tltest.Site, cfg tltest.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("import requires at least one manifest file or directory")
	}
	var docs []manifest.Document
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			loaded, err := manifest.ReadDir(path)
			if err != nil {
				return err
			}
			docs = append(docs, loaded...)
		} else {
			doc, err := manifest.ReadFile(path)
			if err != nil {
				return err
			}
			docs = append(docs, *doc)
		}
	}

	created, failed := 0, 0
	for _, doc := range docs {
		fmt.Printf("%s: %s / %s\n", doc.FilePath, doc.Project, doc.Suite)
		project, err := site.FindProject(doc.Project)
		if err != nil {
			_, _ = failureColor.Printf("  FAILED: %v\n", err)
			failed += len(doc.Cases)
			continue
		}
		suite, err := site.FindFirstLevelSuite(project.ID.Int(), doc.Suite)
		if err != nil {
			_, _ = failureColor.Printf("  FAILED: %v\n", err)
			failed += len(doc.Cases)
			continue
		}
		for _, c := range doc.Cases {
			if err := importCase(site, cfg, project, suite, c); err != nil {
				_, _ = failureColor.Printf("  FAILED: %s: %v\n", c.Name, err)
				failed++
			} else {
				fmt.Printf("  created: %s\n", c.Name)
				created++
			}
		}
	}
	if failed > 0 {
		_, _ = failureColor.Printf("%d case(s) failed, %d created\n", failed, created)
		return fmt.Errorf("%d of %d cases failed", failed, created+failed)
	}
	_, _ = successColor.Printf("%d case(s) created\n", created)
	return nil
}

func importCase(site *tltest.Site, cfg tltest.Config,
	project *testlink.TestProject, suite *testlink.TestSuite, c manifest.Case) error {
	steps := tltest.BuildStepPairs(c.StepPairs())
	summary := c.Summary
	if summary == "" {
		summary = cfg.Summary
	}
	preconditions := c.Preconditions
	if preconditions == "" {
		preconditions = cfg.Preconditions
	}
	tc, err := site.CreateCaseWithSteps(c.Name, suite.ID.Int(), project.ID.Int(),
		cfg.Author, summary, preconditions, steps)
	if err != nil {
		return err
	}
	if len(c.Requirements) > 0 {
		coverage := tltest.Coverage{SRS: c.SRS, Requirements: c.Requirements}
		srs, ids, err := coverage.ParseIDs()
		if err != nil {
			return err
		}
		if err := site.AssignRequirements(tc, srs, ids); err != nil {
			return err
		}
	}
	return nil
}
