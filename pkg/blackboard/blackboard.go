package blackboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Blackboard is the session-facing API over a Store. It stamps entries with
// IDs and timestamps; ordering rules are enforced by the store.
type Blackboard struct {
	store Store
	now   func() time.Time
}

// New wraps a store.
func New(store Store) *Blackboard {
	return &Blackboard{store: store, now: time.Now}
}

// SessionID returns the session the blackboard belongs to.
func (b *Blackboard) SessionID() string {
	return b.store.SessionID()
}

// Store exposes the underlying store.
func (b *Blackboard) Store() Store {
	return b.store
}

func (b *Blackboard) newEntry(section Section, iteration int, producer string) *Entry {
	return &Entry{
		ID:           uuid.NewString(),
		SessionID:    b.store.SessionID(),
		Section:      section,
		Iteration:    iteration,
		ProducerRole: producer,
		CreatedAtMs:  b.now().UnixMilli(),
	}
}

// Write appends a result entry. Fails with a *StaleWriteError if iteration
// is behind the section's counter.
func (b *Blackboard) Write(ctx context.Context, section Section, iteration int, content, producer string) (*Entry, error) {
	e := b.newEntry(section, iteration, producer)
	e.Content = content
	e.Status = StatusOK
	if err := b.store.Append(ctx, e); err != nil {
		return nil, fmt.Errorf("write %s@%d: %w", section, iteration, err)
	}
	return e, nil
}

// MarkUnavailable appends a marker recording that producer could not
// deliver a result for this iteration.
func (b *Blackboard) MarkUnavailable(ctx context.Context, section Section, iteration int, producer, reason string) (*Entry, error) {
	e := b.newEntry(section, iteration, producer)
	e.Status = StatusUnavailable
	e.Reason = reason
	if err := b.store.Append(ctx, e); err != nil {
		return nil, fmt.Errorf("mark %s@%d unavailable: %w", section, iteration, err)
	}
	return e, nil
}

// Seal closes section for iteration. If nothing was written for the
// iteration an unavailable marker with the given reason is recorded.
// Any later write at or below iteration is rejected as stale.
func (b *Blackboard) Seal(ctx context.Context, section Section, iteration int, producer, reason string) (bool, error) {
	e := b.newEntry(section, iteration, producer)
	e.Status = StatusUnavailable
	e.Reason = reason
	written, err := b.store.Seal(ctx, e)
	if err != nil {
		return false, fmt.Errorf("seal %s@%d: %w", section, iteration, err)
	}
	return written, nil
}

// ReadLatest returns the newest entry of a section, or ErrNotFound.
func (b *Blackboard) ReadLatest(ctx context.Context, section Section) (*Entry, error) {
	return b.store.Latest(ctx, section)
}

// ReadHistory returns the full ordered history of a section.
func (b *Blackboard) ReadHistory(ctx context.Context, section Section) ([]*Entry, error) {
	return b.store.History(ctx, section)
}

// Snapshot captures the current history of every section.
func (b *Blackboard) Snapshot(ctx context.Context) (*Snapshot, error) {
	sections, err := b.store.Sections(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	var entries []Entry
	for _, section := range sections {
		history, err := b.store.History(ctx, section)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		for _, e := range history {
			entries = append(entries, *e)
		}
	}

	return NewSnapshot(b.store.SessionID(), entries), nil
}

// Snapshot is an immutable view of the blackboard at one point in time.
// All accessors return copies.
type Snapshot struct {
	sessionID string
	iteration int
	history   map[Section][]Entry
}

// NewSnapshot builds a snapshot from a flat list of entries. Entries are
// grouped by section and ordered by iteration, keeping input order within
// one iteration.
func NewSnapshot(sessionID string, entries []Entry) *Snapshot {
	s := &Snapshot{
		sessionID: sessionID,
		iteration: -1,
		history:   make(map[Section][]Entry),
	}
	for _, e := range entries {
		s.history[e.Section] = append(s.history[e.Section], e)
		if e.Iteration > s.iteration {
			s.iteration = e.Iteration
		}
	}
	for _, h := range s.history {
		sort.SliceStable(h, func(i, j int) bool { return h[i].Iteration < h[j].Iteration })
	}
	return s
}

func (s *Snapshot) SessionID() string { return s.sessionID }

// Iteration is the highest iteration present, or -1 for an empty snapshot.
func (s *Snapshot) Iteration() int { return s.iteration }

// Latest returns the newest entry of a section.
func (s *Snapshot) Latest(section Section) (Entry, bool) {
	h := s.history[section]
	if len(h) == 0 {
		return Entry{}, false
	}
	return h[len(h)-1], true
}

// LatestUsable returns the newest entry of a section that carries a result.
func (s *Snapshot) LatestUsable(section Section) (Entry, bool) {
	h := s.history[section]
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Usable() {
			return h[i], true
		}
	}
	return Entry{}, false
}

// AtIteration returns the section's entries for one iteration.
func (s *Snapshot) AtIteration(section Section, iteration int) []Entry {
	var out []Entry
	for _, e := range s.history[section] {
		if e.Iteration == iteration {
			out = append(out, e)
		}
	}
	return out
}

// History returns a copy of a section's ordered history.
func (s *Snapshot) History(section Section) []Entry {
	h := s.history[section]
	out := make([]Entry, len(h))
	copy(out, h)
	return out
}

// Sections returns the non-empty sections in canonical order.
func (s *Snapshot) Sections() []Section {
	out := make([]Section, 0, len(s.history))
	for section, h := range s.history {
		if len(h) > 0 {
			out = append(out, section)
		}
	}
	sortSections(out)
	return out
}

// Entries returns every entry, section by section in canonical order.
func (s *Snapshot) Entries() []Entry {
	var out []Entry
	for _, section := range s.Sections() {
		out = append(out, s.history[section]...)
	}
	return out
}

// Len returns the total number of entries.
func (s *Snapshot) Len() int {
	n := 0
	for _, h := range s.history {
		n += len(h)
	}
	return n
}
