package tltest

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names, the process-wide configuration of the
// integration.
const (
	EnvURL           = "TESTLINK_URL"
	EnvDevKey        = "TESTLINK_DEVKEY"
	EnvAuthor        = "TESTLINK_AUTHOR"
	EnvSummary       = "TESTLINK_SUMMARY"
	EnvPreconditions = "TESTLINK_PRECONDITIONS"
	EnvPlan          = "TESTLINK_PLAN"
	EnvBuild         = "TESTLINK_BUILD"
	EnvFile          = "TESTLINK_ENV"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultAuthor        = "admin"
	DefaultSummary       = "Exported Unit Test"
	DefaultPreconditions = "No preconditions for this test"
	DefaultBuild         = "automated"
)

// Config is the connection and defaulting configuration for exports. URL is
// the full API endpoint (ending in /lib/api/xmlrpc.php). When Plan is set,
// exported tests also report their execution result against that plan.
type Config struct {
	URL           string
	DevKey        string
	Author        string
	Summary       string
	Preconditions string
	Plan          string
	Build         string
}

// ConfigFromEnv reads the configuration from environment variables. When
// TESTLINK_ENV names an env file it is loaded first; otherwise a .env file in
// the working directory is loaded if present. Variables already set in the
// environment take precedence over the file.
func ConfigFromEnv() Config {
	if path := os.Getenv(EnvFile); path != "" {
		_ = godotenv.Load(path)
	} else {
		_ = godotenv.Load()
	}
	return configFromEnvironment()
}

// ConfigFromEnvFile loads the named env file and then reads the configuration
// from the environment.
func ConfigFromEnvFile(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil {
		return Config{}, fmt.Errorf("cannot load env file %q: %w", path, err)
	}
	return configFromEnvironment(), nil
}

func configFromEnvironment() Config {
	return Config{
		URL:           os.Getenv(EnvURL),
		DevKey:        os.Getenv(EnvDevKey),
		Author:        os.Getenv(EnvAuthor),
		Summary:       os.Getenv(EnvSummary),
		Preconditions: os.Getenv(EnvPreconditions),
		Plan:          os.Getenv(EnvPlan),
		Build:         os.Getenv(EnvBuild),
	}.withDefaults()
}

// Offline reports whether the configuration lacks the connection parameters.
// Offline exports log that the test is running offline and do nothing.
func (c Config) Offline() bool {
	return c.URL == "" || c.DevKey == ""
}

func (c Config) withDefaults() Config {
	if c.Author == "" {
		c.Author = DefaultAuthor
	}
	if c.Summary == "" {
		c.Summary = DefaultSummary
	}
	if c.Preconditions == "" {
		c.Preconditions = DefaultPreconditions
	}
	if c.Build == "" {
		c.Build = DefaultBuild
	}
	return c
}
