package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Ordered(t *testing.T) {
	names, err := Migrations()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"001_schema.sql",
		"002_admission_policy.sql",
		"003_attendee_exports.sql",
	}, names)
}

func TestMigrations_PolicyDefaults(t *testing.T) {
	sql, err := migrationsFS.ReadFile("migrations/002_admission_policy.sql")
	require.NoError(t, err)
	assert.Contains(t, string(sql), "allow_multiple_per_device BOOLEAN NOT NULL DEFAULT FALSE")
	assert.Contains(t, string(sql), "max_per_device INTEGER NOT NULL DEFAULT 1")
}
