// Package tools provides the external lookups available to the Information role.
package tools

import (
	"context"
	"errors"
)

// ErrToolUnavailable is matched by every failure a Gateway returns.
var ErrToolUnavailable = errors.New("tool unavailable")

// Snippet is a single search hit.
type Snippet struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Gateway issues external lookups on behalf of a role.
type Gateway interface {
	Search(ctx context.Context, query string) ([]Snippet, error)
	Fetch(ctx context.Context, url string) (string, error)
}

// Unavailable is a Gateway that fails every call. It stands in when research
// is disabled so the Information role still exercises its degraded path.
type Unavailable struct{}

func (Unavailable) Search(ctx context.Context, query string) ([]Snippet, error) {
	return nil, ErrToolUnavailable
}

func (Unavailable) Fetch(ctx context.Context, url string) (string, error) {
	return "", ErrToolUnavailable
}
