package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MinShortIDLength is the shortest prefix ResolveSessionID accepts.
const MinShortIDLength = 6

// ResolveSessionID expands a session ID prefix to the full ID. A full UUID
// is checked for existence and returned as-is.
func (a *Archive) ResolveSessionID(ctx context.Context, shortID string) (string, error) {
	if _, err := uuid.Parse(shortID); err == nil && len(shortID) == 36 {
		if _, err := a.GetSession(ctx, shortID); err != nil {
			return "", err
		}
		return shortID, nil
	}

	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	// Escape LIKE wildcards so the prefix is matched literally.
	pattern := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(shortID) + "%"
	rows, err := a.db.QueryContext(ctx,
		`SELECT id FROM sessions WHERE id LIKE ? ESCAPE '\' ORDER BY id`, pattern)
	if err != nil {
		return "", fmt.Errorf("search sessions: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan session id: %w", err)
		}
		matches = append(matches, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("search sessions: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// NotFoundError indicates no session matched the ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no sessions found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple sessions matched a short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d sessions", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError lists up to ten matches and suggests a longer prefix.
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ambiguous short ID '%s' matches %d sessions:\n", err.ShortID, len(err.Matches))
	shown := min(len(err.Matches), 10)
	for _, id := range err.Matches[:shown] {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	if len(err.Matches) > shown {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-shown)
	}
	b.WriteString("\nUse a longer prefix to uniquely identify the session.")
	return b.String()
}

// IsNotFound reports whether err is a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAmbiguous reports whether err is an *AmbiguousError.
func IsAmbiguous(err error) bool {
	var amb *AmbiguousError
	return errors.As(err, &amb)
}
