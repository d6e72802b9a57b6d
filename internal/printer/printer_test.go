package printer

import (
	"bytes"
	"testing"

	"github.com/dyluth/sixhat/pkg/blackboard"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		err := Error("Test Error", "This is a test error", nil)
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})

	t.Run("returns error with title for multiple suggestions", func(t *testing.T) {
		err := Error("Test Error", "Explanation", []string{"First option", "Second option"})
		require.Equal(t, "Test Error", err.Error())
	})

	t.Run("with context", func(t *testing.T) {
		err := ErrorWithContext("Test Error", "Explanation", map[string]string{"Session": "abc"}, []string{"Fix it"})
		require.Equal(t, "Test Error", err.Error())
	})
}

func TestWriteError(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name        string
		details     map[string]string
		suggestions []string
		want        string
	}{
		{
			name: "no suggestions",
			want: "Title\n\nExplanation\n",
		},
		{
			name:        "one suggestion",
			suggestions: []string{"Run sixhat init"},
			want:        "Title\n\nExplanation\n\nRun sixhat init\n",
		},
		{
			name:        "several suggestions",
			details:     map[string]string{"Path": "sixhat.yml"},
			suggestions: []string{"a", "b"},
			want:        "Title\n\nExplanation\n\n  Path: sixhat.yml\n\nEither:\n  1. a\n  2. b\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writeError(&buf, "Title", "Explanation", tt.details, tt.suggestions)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestHat(t *testing.T) {
	for _, section := range blackboard.Sections() {
		assert.NotNil(t, Hat(section), "section %s", section)
	}
	assert.NotNil(t, Hat(blackboard.Section("unknown")))
	assert.NotSame(t, Hat(blackboard.SectionRed), Hat(blackboard.SectionGreen))
}
