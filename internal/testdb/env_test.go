package testdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseURL_Preference(t *testing.T) {
	t.Setenv(EnvScryTestDBURL, "")
	t.Setenv(EnvDatabaseURL, "")
	assert.Empty(t, DatabaseURL())

	t.Setenv(EnvDatabaseURL, "postgres://fallback")
	assert.Equal(t, "postgres://fallback", DatabaseURL())

	t.Setenv(EnvScryTestDBURL, "postgres://preferred")
	assert.Equal(t, "postgres://preferred", DatabaseURL())
}

func TestIsCI(t *testing.T) {
	for _, name := range ciEnvVars {
		t.Setenv(name, "")
	}
	assert.False(t, IsCI())

	t.Setenv("GITHUB_ACTIONS", "true")
	assert.True(t, IsCI())
}
