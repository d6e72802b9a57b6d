package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// cannedReply satisfies every role: analysts and the report take it as
// prose, reflection finds its DECISION line and the evaluator its JSON.
const cannedReply = `# Four-day week

Retention improves and meeting load falls.

{"comprehensiveness": 80, "consistency": 70, "practicality": 90, "summary": "Balanced"}

DECISION: STOP`

type fakeBackend struct {
	*httptest.Server
	calls atomic.Int32
}

// newFakeBackend serves Azure-style chat completions. A non-200 status
// makes every call fail with it.
func newFakeBackend(t *testing.T, status int) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	fb.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.calls.Add(1)
		if status != http.StatusOK {
			http.Error(w, "backend down", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": cannedReply}},
			},
		})
	}))
	t.Cleanup(fb.Close)
	return fb
}

// clearEnv stops the host environment leaking into config resolution.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"API_TYPE", "OPENROUTER_API_KEY", "OPENROUTER_MODEL",
		"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_DEPLOYMENT", "AZURE_OPENAI_API_VERSION",
		"GEMINI_API_KEY", "GEMINI_MODEL",
		"SIXHAT_REDIS_URL", "SIXHAT_ARCHIVE", "SIXHAT_MAX_ITERATIONS",
	} {
		t.Setenv(key, "")
	}
}

// writeConfig writes a sixhat.yml for an Azure backend at endpoint with
// research disabled and an archive in dir.
func writeConfig(t *testing.T, dir, endpoint, redisURL string) (cfgPath, archivePath string) {
	t.Helper()
	archivePath = filepath.Join(dir, "sessions.db")
	var b strings.Builder
	fmt.Fprintf(&b, `version: "1.0"
backend:
  provider: azure
  endpoint: %s
  deployment: test
  requests_per_second: 0
orchestrator:
  max_iterations: 2
  retry_bound: 0
  retry_backoff: 1ms
  call_timeout: 5s
  round_timeout: 10s
  finalize_timeout: 5s
research:
  disabled: true
archive:
  path: %s
`, endpoint, archivePath)
	if redisURL != "" {
		fmt.Fprintf(&b, "blackboard:\n  redis_url: %s\n", redisURL)
	}
	cfgPath = filepath.Join(dir, "sixhat.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(b.String()), 0644))
	return cfgPath, archivePath
}

// resetFlags returns every flag to its default. Cobra keeps parsed values,
// including --help and --version, across Execute calls.
func resetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmds := append([]*cobra.Command{rootCmd}, rootCmd.Commands()...)
	for _, c := range cmds {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
	}
}

// executeCommand runs the real command tree with args, feeding stdin and
// capturing stdout.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(func() {
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := Execute()
	return out.String(), err
}
