package testdb

import "os"

// Database URL environment variables, in order of preference.
const (
	EnvScryTestDBURL = "SCRY_TEST_DB_URL"
	EnvDatabaseURL   = "DATABASE_URL"
)

var ciEnvVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS", "CIRCLECI"}

// IsCI reports whether the tests run under a CI provider.
func IsCI() bool {
	for _, name := range ciEnvVars {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// DatabaseURL returns the first configured database URL, or "".
func DatabaseURL() string {
	for _, name := range []string{EnvScryTestDBURL, EnvDatabaseURL} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
