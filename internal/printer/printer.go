// Package printer writes coloured CLI output. Diagnostics and errors go to
// stderr so stdout carries only the report.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dyluth/sixhat/pkg/blackboard"
	"github.com/fatih/color"
)

func init() {
	// Force colour even without a TTY; NO_COLOR still disables it.
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// hatColors gives each section the colour of the hat that writes it.
var hatColors = map[blackboard.Section]*color.Color{
	blackboard.SectionRequirement: color.New(color.Bold),
	blackboard.SectionPlan:        color.New(color.FgBlue, color.Bold),
	blackboard.SectionResearch:    color.New(color.FgCyan),
	blackboard.SectionWhite:       color.New(color.FgHiWhite, color.Bold),
	blackboard.SectionRed:         color.New(color.FgRed),
	blackboard.SectionYellow:      color.New(color.FgYellow),
	blackboard.SectionBlack:       color.New(color.FgHiBlack, color.Bold),
	blackboard.SectionGreen:       color.New(color.FgGreen),
	blackboard.SectionReflection:  color.New(color.FgMagenta),
	blackboard.SectionReport:      color.New(color.FgHiBlue, color.Bold),
	blackboard.SectionEvaluation:  color.New(color.FgHiMagenta),
}

// Hat returns the colour for a section.
func Hat(section blackboard.Section) *color.Color {
	if c, ok := hatColors[section]; ok {
		return c
	}
	return color.New(color.Reset)
}

// Success prints a green message to stderr with a checkmark prefix.
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(os.Stderr, msg)
}

// Info prints an uncoloured message to stderr.
func Info(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format, a...)
}

// Warning prints a yellow message to stderr with a warning prefix.
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprint(os.Stderr, msg)
}

// Step prints a progress line.
func Step(format string, a ...any) {
	cyan.Fprintf(os.Stderr, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints title, explanation and suggestions to stderr and returns an
// error carrying only the title, for cobra with SilenceErrors set.
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value details.
func ErrorWithContext(title string, explanation string, details map[string]string, suggestions []string) error {
	writeError(os.Stderr, title, explanation, details, suggestions)
	return fmt.Errorf("%s", title)
}

func writeError(w io.Writer, title, explanation string, details map[string]string, suggestions []string) {
	red.Fprintf(w, "%s\n\n", title)
	if explanation != "" {
		fmt.Fprintf(w, "%s\n", explanation)
	}

	if len(details) > 0 {
		fmt.Fprintln(w)
		for key, value := range details {
			fmt.Fprintf(w, "  %s: %s\n", key, value)
		}
	}

	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(w, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(w, "\nEither:\n")
		for i, suggestion := range suggestions {
			fmt.Fprintf(w, "  %d. %s\n", i+1, suggestion)
		}
	}
}
