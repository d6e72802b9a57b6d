package blackboard

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Section names a region of the blackboard.
type Section string

const (
	SectionRequirement Section = "requirement"
	SectionPlan        Section = "plan"
	SectionResearch    Section = "research"
	SectionWhite       Section = "white"
	SectionRed         Section = "red"
	SectionYellow      Section = "yellow"
	SectionBlack       Section = "black"
	SectionGreen       Section = "green"
	SectionReflection  Section = "reflection"
	SectionReport      Section = "report"
	SectionEvaluation  Section = "evaluation"
)

// sectionOrder is the canonical display and snapshot order.
var sectionOrder = []Section{
	SectionRequirement,
	SectionPlan,
	SectionResearch,
	SectionWhite,
	SectionRed,
	SectionYellow,
	SectionBlack,
	SectionGreen,
	SectionReflection,
	SectionReport,
	SectionEvaluation,
}

// AnalystSections lists the sections owned by the five analyst hats.
var AnalystSections = []Section{
	SectionWhite,
	SectionRed,
	SectionYellow,
	SectionBlack,
	SectionGreen,
}

// Sections returns all known sections in canonical order.
func Sections() []Section {
	out := make([]Section, len(sectionOrder))
	copy(out, sectionOrder)
	return out
}

// Validate reports whether s is a known section.
func (s Section) Validate() error {
	if s.rank() < 0 {
		return fmt.Errorf("unknown section: %q", string(s))
	}
	return nil
}

func (s Section) rank() int {
	for i, known := range sectionOrder {
		if s == known {
			return i
		}
	}
	return -1
}

// Status marks whether an entry carries a usable result.
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnavailable Status = "unavailable"
)

// Entry is one immutable blackboard record.
type Entry struct {
	ID           string  `json:"id"`
	SessionID    string  `json:"session_id"`
	Section      Section `json:"section"`
	Iteration    int     `json:"iteration"`
	Content      string  `json:"content"`
	ProducerRole string  `json:"producer_role"`
	Status       Status  `json:"status"`
	Reason       string  `json:"reason,omitempty"`
	CreatedAtMs  int64   `json:"created_at_ms"`
}

// Usable reports whether the entry holds a real result rather than an
// unavailable marker.
func (e *Entry) Usable() bool {
	return e.Status == StatusOK
}

// Validate checks the entry's structural invariants.
func (e *Entry) Validate() error {
	if _, err := uuid.Parse(e.ID); err != nil {
		return fmt.Errorf("invalid entry ID: %w", err)
	}
	if e.SessionID == "" {
		return fmt.Errorf("session ID is required")
	}
	if err := e.Section.Validate(); err != nil {
		return err
	}
	if e.Iteration < 0 {
		return fmt.Errorf("iteration must be >= 0, got %d", e.Iteration)
	}
	if e.ProducerRole == "" {
		return fmt.Errorf("producer role is required")
	}
	switch e.Status {
	case StatusOK:
		if e.Reason != "" {
			return fmt.Errorf("reason is only valid on unavailable entries")
		}
	case StatusUnavailable:
		if e.Content != "" {
			return fmt.Errorf("unavailable entries carry no content")
		}
	default:
		return fmt.Errorf("invalid status: %q", string(e.Status))
	}
	return nil
}

var (
	// ErrNotFound is returned when a section has no entries.
	ErrNotFound = errors.New("blackboard: not found")

	// ErrStaleWrite matches every *StaleWriteError.
	ErrStaleWrite = errors.New("blackboard: stale write")
)

// StaleWriteError reports a write whose iteration is behind the current
// counter for its section (or for the session).
type StaleWriteError struct {
	Section   Section
	Iteration int
	Current   int
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("stale write to section %q: iteration %d is behind current %d", e.Section, e.Iteration, e.Current)
}

// Is lets errors.Is(err, ErrStaleWrite) match.
func (e *StaleWriteError) Is(target error) bool {
	return target == ErrStaleWrite
}

// IsStaleWrite returns true if the error is a stale-write rejection.
func IsStaleWrite(err error) bool {
	return errors.Is(err, ErrStaleWrite)
}
