package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateRejectsMemoryDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("ICOOK_CONFIG", "")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "up"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PostgreSQL")
}

func TestCommandTree(t *testing.T) {
	cmd := newRootCmd()
	for _, path := range [][]string{{"serve"}, {"migrate", "up"}, {"migrate", "down"}} {
		found, _, err := cmd.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[len(path)-1], found.Name())
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}
