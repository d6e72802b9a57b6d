package scaffold

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/sixhat/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		force   bool
		setup   func(t *testing.T, dir string)
		wantErr bool
	}{
		{
			name:  "fresh directory",
			setup: func(t *testing.T, dir string) {},
		},
		{
			name:  "force replaces existing file",
			force: true,
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultPath), []byte("old: content"), 0644))
			},
		},
		{
			name: "existing file without force",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultPath), []byte("old: content"), 0644))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)

			path, err := Initialize(dir, tt.force)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "sixhat init --force")
				content, readErr := os.ReadFile(filepath.Join(dir, config.DefaultPath))
				require.NoError(t, readErr)
				assert.Equal(t, "old: content", string(content))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, config.DefaultPath), path)

			content, err := os.ReadFile(path)
			require.NoError(t, err)
			template, err := Template()
			require.NoError(t, err)
			assert.Equal(t, template, content)
		})
	}
}

func TestTemplate_MatchesDefaults(t *testing.T) {
	content, err := Template()
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal(content, &cfg))
	require.NoError(t, cfg.Validate())

	o := cfg.Orchestration()
	assert.Equal(t, config.DefaultMaxIterations, o.MaxIterations)
	assert.Equal(t, config.DefaultRetryBound, o.RetryBound)
	assert.Equal(t, config.DefaultRoundTimeout, o.RoundTimeout)
	assert.Equal(t, config.DefaultCallTimeout, o.CallTimeout)

	r := cfg.ResearchLimits()
	assert.True(t, r.Enabled)
	assert.Equal(t, config.DefaultMaxPages, r.MaxPages)
	assert.Equal(t, config.ProviderOpenRouter, cfg.Backend.Provider)
	assert.Equal(t, ".sixhat/sessions.db", cfg.Archive.Path)
}

func TestCheckExisting(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, CheckExisting(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultPath), nil, 0644))
	assert.Error(t, CheckExisting(dir))
}

func TestPrintSuccess(t *testing.T) {
	var buf bytes.Buffer
	PrintSuccess(&buf, "sixhat.yml")
	assert.Contains(t, buf.String(), "✓ sixhat.yml")
	assert.Contains(t, buf.String(), "Run 'sixhat'")
}
