package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/dyluth/sixhat/internal/orchestrator"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const reportWrapWidth = 80

// renderReport writes the Markdown report, styled for the terminal unless raw.
func renderReport(w io.Writer, markdown string, raw bool) error {
	if raw {
		_, err := io.WriteString(w, ensureNewline(markdown))
		return err
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(reportWrapWidth),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(markdown)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// writeScorecard prints the Evaluator's scores and the session outcome.
func writeScorecard(w io.Writer, res *orchestrator.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Scorecard")
	t.AppendHeader(table.Row{"Measure", "Value"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})

	if res.Score.Available {
		t.AppendRows([]table.Row{
			{"Comprehensiveness", formatScore(res.Score.Comprehensiveness)},
			{"Consistency", formatScore(res.Score.Consistency)},
			{"Practicality", formatScore(res.Score.Practicality)},
		})
		t.AppendSeparator()
		t.AppendRow(table.Row{"Overall", formatScore(res.Score.Overall)})
	} else {
		t.AppendRow(table.Row{"Overall", "unavailable"})
	}

	t.AppendSeparator()
	t.AppendRow(table.Row{"Rounds", res.Rounds})
	t.AppendRow(table.Row{"Stopped", stopLabel(res.StopReason)})
	if n := len(res.Degraded); n > 0 {
		t.AppendRow(table.Row{"Degraded roles", n})
	}
	if err := res.StopError(); err != nil {
		t.SetCaption("%v", err)
	}
	t.Render()

	if res.Score.Available && res.Score.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", res.Score.Summary)
	}
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func stopLabel(reason orchestrator.StopReason) string {
	switch reason {
	case orchestrator.StopVerdict:
		return "reflection judged the analysis complete"
	case orchestrator.StopIterationLimit:
		return "iteration limit reached"
	case orchestrator.StopNonProgress:
		return "no progress in two rounds"
	case orchestrator.StopCancelled:
		return "interrupted"
	default:
		return string(reason)
	}
}
