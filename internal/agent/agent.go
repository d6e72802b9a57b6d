// Package agent implements the Six Thinking Hats roles.
//
// Every role is a function of a blackboard snapshot and a per-run Config.
// Roles never write to the blackboard themselves: they return an Artifact
// and the orchestrator commits it, so a result computed against an old
// snapshot can be rejected by the stale-write guard.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dyluth/sixhat/internal/config"
	"github.com/dyluth/sixhat/internal/inference"
	"github.com/dyluth/sixhat/internal/tools"
	"github.com/dyluth/sixhat/pkg/blackboard"
	"go.uber.org/zap"
)

// Agent is the capability shared by every role.
type Agent interface {
	Role() Role
	Run(ctx context.Context, snap *blackboard.Snapshot, cfg Config) (*Artifact, error)
}

// Config carries the per-run settings handed to a role.
type Config struct {
	// Iteration is the round the artifact will be committed under.
	Iteration     int
	MaxIterations int
	Research      config.Research
	ToolTimeout   time.Duration
}

// Decision is the Reflection role's continue/stop verdict.
type Decision string

const (
	DecisionNone     Decision = ""
	DecisionContinue Decision = "continue"
	DecisionStop     Decision = "stop"
)

// Artifact is what a successful run produces.
type Artifact struct {
	Role    Role
	Section blackboard.Section
	Content string

	// Decision is set by Reflection.
	Decision Decision
	// Sources lists what the artifact was built from: page URLs for
	// Information, entry IDs (sorted) for Report.
	Sources []string
	// Score is set by the Evaluator.
	Score *Score
	// Degraded marks a result produced without part of its inputs,
	// such as research notes written after the tool gateway failed.
	Degraded bool
}

// Deps are the collaborators roles call out to.
type Deps struct {
	Inference inference.Client
	Tools     tools.Gateway
	Logger    *zap.Logger
}

// New returns the agent variant for role.
func New(role Role, deps Deps) (Agent, error) {
	if err := role.Validate(); err != nil {
		return nil, err
	}
	if deps.Inference == nil {
		return nil, fmt.Errorf("%s: inference client is required", role)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Tools == nil {
		deps.Tools = tools.Unavailable{}
	}

	base := base{role: role, deps: deps, logger: deps.Logger.With(zap.String("role", string(role)))}
	switch {
	case role == RoleBlue:
		return &blueAgent{base}, nil
	case role.IsAnalyst():
		return &analystAgent{base}, nil
	case role == RoleInformation:
		return &informationAgent{base}, nil
	case role == RoleReflection:
		return &reflectionAgent{base}, nil
	case role == RoleReport:
		return &reportAgent{base}, nil
	case role == RoleEvaluator:
		return &evaluatorAgent{base}, nil
	}
	return nil, fmt.Errorf("no agent for role %q", role)
}

// NewSet builds one agent per role.
func NewSet(deps Deps) (map[Role]Agent, error) {
	set := make(map[Role]Agent, len(roles))
	for role := range roles {
		a, err := New(role, deps)
		if err != nil {
			return nil, err
		}
		set[role] = a
	}
	return set, nil
}

type base struct {
	role   Role
	deps   Deps
	logger *zap.Logger
}

func (b *base) Role() Role {
	return b.role
}

// complete calls the inference backend and rejects blank answers.
func (b *base) complete(ctx context.Context, roleContext, instructions string) (string, error) {
	start := time.Now()
	text, err := b.deps.Inference.Complete(ctx, roleContext, instructions)
	if err != nil {
		return "", Classify(b.role, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", invalid(b.role, "empty response")
	}
	b.logger.Debug("inference call completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("chars", len(text)))
	return text, nil
}

func (b *base) artifact(content string) *Artifact {
	return &Artifact{Role: b.role, Section: b.role.Section(), Content: content}
}
