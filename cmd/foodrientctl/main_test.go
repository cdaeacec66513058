package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(t.Context())
}

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "migrate")
	assert.Contains(t, names, "create-admin")

	migrate, _, err := root.Find([]string{"migrate", "down"})
	require.NoError(t, err)
	assert.Equal(t, "1", migrate.Flag("steps").DefValue)
}

func TestMigrateForce_RejectsNonNumericVersion(t *testing.T) {
	err := execute(t, "migrate", "force", "latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version must be an integer")
}

func TestCreateAdmin_ValidatesBeforeConnecting(t *testing.T) {
	err := execute(t, "create-admin", "--email", "not-an-email", "--password", "longenough", "--name", "Ops")
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	err = execute(t, "create-admin", "--email", "ops@foodrient.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
