package commands

import (
	"os"
	"testing"

	"github.com/dyluth/sixhat/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCommand(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	out, err := executeCommand(t, "", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully initialized sixhat")
	assert.FileExists(t, config.DefaultPath)

	cfg, err := config.Load(config.DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, ".sixhat/sessions.db", cfg.Archive.Path)

	t.Run("refuses to overwrite", func(t *testing.T) {
		require.NoError(t, os.WriteFile(config.DefaultPath, []byte("# edited\n"), 0644))

		_, err := executeCommand(t, "", "init")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already initialized")

		content, err := os.ReadFile(config.DefaultPath)
		require.NoError(t, err)
		assert.Equal(t, "# edited\n", string(content))
	})

	t.Run("force overwrites", func(t *testing.T) {
		_, err := executeCommand(t, "", "init", "--force")
		require.NoError(t, err)

		_, err = config.Load(config.DefaultPath)
		require.NoError(t, err)
	})
}
