package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiring(t *testing.T) {
	cmd := newRootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "migrate")
	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestMigrateRequiresPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate"})
	assert.ErrorIs(t, cmd.Execute(), errMigrateDriver)
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"serve"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store driver "sqlite"`)
}
