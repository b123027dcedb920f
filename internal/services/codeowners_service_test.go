package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCodeowners(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "CODEOWNERS")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAuthorizedUsers(t *testing.T) {
	t.Run("Registry line contributes mentions", func(t *testing.T) {
		path := writeCodeowners(t, `# Governance
* @someone
governance/contributors.yaml @Lead @second-owner
docs/ @writer
`)
		svc := NewCodeownersService(path, "governance/contributors.yaml")

		users := svc.AuthorizedUsers()
		assert.Len(t, users, 2)
		assert.True(t, users["lead"])
		assert.True(t, users["second-owner"])
		assert.False(t, users["someone"])
	})

	t.Run("Authorization is case-insensitive", func(t *testing.T) {
		path := writeCodeowners(t, "governance/contributors.yaml @Lead\n")
		svc := NewCodeownersService(path, "governance/contributors.yaml")

		assert.True(t, svc.IsAuthorized("lead"))
		assert.True(t, svc.IsAuthorized("LEAD"))
		assert.False(t, svc.IsAuthorized("intruder"))
	})

	t.Run("Missing file yields empty set", func(t *testing.T) {
		svc := NewCodeownersService(filepath.Join(t.TempDir(), "missing"), "governance/contributors.yaml")
		assert.Empty(t, svc.AuthorizedUsers())
		assert.False(t, svc.IsAuthorized("anyone"))
	})
}
