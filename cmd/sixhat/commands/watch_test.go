package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/sixhat/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCommand_Errors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	noRedis := filepath.Join(dir, "no-redis.yml")
	require.NoError(t, os.WriteFile(noRedis, []byte("version: \"1.0\"\n"), 0644))
	withRedis := filepath.Join(dir, "redis.yml")
	require.NoError(t, os.WriteFile(withRedis, []byte("version: \"1.0\"\nblackboard:\n  redis_url: redis://127.0.0.1:1\n"), 0644))

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"session required", []string{"watch", "--config", noRedis}, `required flag(s) "session" not set`},
		{"unknown format", []string{"watch", "--config", noRedis, "--session", "x", "--output", "json"}, "invalid output format"},
		{"memory blackboard", []string{"watch", "--config", noRedis, "--session", "x"}, "no Redis blackboard configured"},
		{"short id without archive", []string{"watch", "--config", withRedis, "--session", "1a2b3c"}, "invalid session ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(t, "", tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestResolveWatchSession(t *testing.T) {
	cfgPath := setupArchive(t)
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	ctx := context.Background()

	full, err := resolveWatchSession(ctx, cfg, hoardSessionA)
	require.NoError(t, err)
	assert.Equal(t, hoardSessionA, full)

	full, err = resolveWatchSession(ctx, cfg, "1a2b3c4d")
	require.NoError(t, err)
	assert.Equal(t, hoardSessionA, full)

	_, err = resolveWatchSession(ctx, cfg, "1a2b3c")
	require.Error(t, err)
	assert.Equal(t, "cannot resolve session '1a2b3c'", err.Error())
}
