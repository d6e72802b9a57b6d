package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dyluth/sixhat/internal/tools"
	"github.com/dyluth/sixhat/pkg/blackboard"
	"go.uber.org/zap"
)

const rawExcerptLength = 800

// informationAgent gathers external research for the analysts.
// Tool failures degrade the notes instead of failing the role.
type informationAgent struct {
	base
}

func (a *informationAgent) Run(ctx context.Context, snap *blackboard.Snapshot, cfg Config) (*Artifact, error) {
	requirement, ok := requirementOf(snap)
	if !ok {
		return nil, invalid(a.role, "snapshot has no requirement")
	}

	art := a.artifact("")
	if !cfg.Research.Enabled {
		a.logger.Debug("research disabled")
		return art, nil
	}

	plan, _ := snap.LatestUsable(blackboard.SectionPlan)
	query := researchQuery(requirement, plan.Content)

	hits, err := a.search(ctx, query, cfg)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, Classify(a.role, ctxErr)
		}
		if !errors.Is(err, tools.ErrToolUnavailable) {
			return nil, &Failure{Role: a.role, Reason: ReasonToolError, Err: err}
		}
		a.logger.Warn("search unavailable, continuing without research",
			zap.String("query", query), zap.Error(err))
		art.Degraded = true
		return art, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "### Search results for %q\n\n", query)
	if len(hits) == 0 {
		sb.WriteString("No results.\n")
	}
	for i, hit := range hits {
		fmt.Fprintf(&sb, "%d. [%s](%s)", i+1, hit.Title, hit.URL)
		if hit.Snippet != "" {
			fmt.Fprintf(&sb, " - %s", hit.Snippet)
		}
		sb.WriteString("\n")
	}

	for i, hit := range hits {
		if i >= cfg.Research.MaxPages {
			break
		}
		summary, err := a.source(ctx, hit, cfg)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&sb, "\n### Source: %s\n\n%s\n", hit.URL, summary)
		art.Sources = append(art.Sources, hit.URL)
	}

	art.Content = strings.TrimSpace(sb.String())
	return art, nil
}

// source fetches and summarises one hit, falling back to the raw page text
// or the search snippet. Only cancellation is returned as an error.
func (a *informationAgent) source(ctx context.Context, hit tools.Snippet, cfg Config) (string, error) {
	page, err := a.fetch(ctx, hit.URL, cfg)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", Classify(a.role, ctxErr)
		}
		a.logger.Debug("fetch failed, using snippet", zap.String("url", hit.URL), zap.Error(err))
		return snippetOrTitle(hit), nil
	}
	if strings.TrimSpace(page) == "" {
		return snippetOrTitle(hit), nil
	}

	prompt := fmt.Sprintf("Source URL: %s\n\nPage text:\n%s", hit.URL, page)
	summary, err := a.complete(ctx, prompt, summarizeInstructions)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", Classify(a.role, ctxErr)
		}
		a.logger.Debug("summary failed, using raw excerpt", zap.String("url", hit.URL), zap.Error(err))
		return excerpt(page, rawExcerptLength), nil
	}
	return summary, nil
}

func (a *informationAgent) search(ctx context.Context, query string, cfg Config) ([]tools.Snippet, error) {
	ctx, cancel := toolContext(ctx, cfg.ToolTimeout)
	defer cancel()
	hits, err := a.deps.Tools.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if max := cfg.Research.MaxResults; max > 0 && len(hits) > max {
		hits = hits[:max]
	}
	return hits, nil
}

func (a *informationAgent) fetch(ctx context.Context, url string, cfg Config) (string, error) {
	ctx, cancel := toolContext(ctx, cfg.ToolTimeout)
	defer cancel()
	page, err := a.deps.Tools.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	if max := cfg.Research.MaxPageLength; max > 0 && len(page) > max {
		page = excerpt(page, max)
	}
	return page, nil
}

func toolContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// researchQuery combines the requirement headline with the plan's focus line.
func researchQuery(requirement, plan string) string {
	query := firstLine(requirement, 120)
	for _, line := range strings.Split(plan, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "*_ "))
		if len(line) >= len(focusPrefix) && strings.EqualFold(line[:len(focusPrefix)], focusPrefix) {
			if focus := strings.TrimSpace(line[len(focusPrefix):]); focus != "" {
				query += " " + focus
			}
			break
		}
	}
	return strings.TrimSpace(query)
}

func snippetOrTitle(hit tools.Snippet) string {
	if hit.Snippet != "" {
		return hit.Snippet
	}
	return hit.Title
}

func excerpt(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max]) + "..."
}
