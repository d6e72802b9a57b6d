package blackboard

import "context"

// Store is the persistence behind a Blackboard. Implementations are scoped
// to one session and must make Append and Seal atomic with respect to the
// stale-write check.
type Store interface {
	// SessionID returns the session this store is scoped to.
	SessionID() string

	// Append adds an entry to its section. Returns a *StaleWriteError if the
	// entry's iteration is below the section counter or the session
	// high-water mark.
	Append(ctx context.Context, e *Entry) error

	// Seal closes marker.Section for marker.Iteration. If the section has no
	// entry for that iteration the marker is appended. Either way the section
	// counter is raised to marker.Iteration+1. Reports whether the marker was
	// written.
	Seal(ctx context.Context, marker *Entry) (bool, error)

	// Latest returns the newest entry in a section, or ErrNotFound.
	Latest(ctx context.Context, section Section) (*Entry, error)

	// History returns every entry in a section ordered by iteration.
	History(ctx context.Context, section Section) ([]*Entry, error)

	// Sections returns the non-empty sections in canonical order.
	Sections(ctx context.Context) ([]Section, error)

	Close() error
}
