package blackboard

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by session ID so that
// many sessions can share one Redis server.
//
// Key pattern: sixhat:{session_id}:{entity}[:{id}]
// Channel pattern: sixhat:{session_id}:entry_events

// EntryKey returns the Redis key for an entry hash.
// Pattern: sixhat:{session_id}:entry:{entry_id}
func EntryKey(sessionID, entryID string) string {
	return fmt.Sprintf("sixhat:%s:entry:%s", sessionID, entryID)
}

// SectionKey returns the Redis key for a section's history ZSET.
// Pattern: sixhat:{session_id}:section:{section}
func SectionKey(sessionID string, section Section) string {
	return fmt.Sprintf("sixhat:%s:section:%s", sessionID, section)
}

// SectionsKey returns the Redis key for the set of non-empty sections.
func SectionsKey(sessionID string) string {
	return fmt.Sprintf("sixhat:%s:sections", sessionID)
}

// FenceKey returns the Redis key for the per-section seal fences.
func FenceKey(sessionID string) string {
	return fmt.Sprintf("sixhat:%s:fence", sessionID)
}

// MetaKey returns the Redis key for session-wide counters.
func MetaKey(sessionID string) string {
	return fmt.Sprintf("sixhat:%s:meta", sessionID)
}

// EntryEventsChannel returns the Pub/Sub channel name for entry events.
// Pattern: sixhat:{session_id}:entry_events
func EntryEventsChannel(sessionID string) string {
	return fmt.Sprintf("sixhat:%s:entry_events", sessionID)
}

// History scores
//
// Section histories are ZSETs whose members are entry IDs. The score packs
// the iteration and the append sequence so that ZRANGE yields entries
// ordered by iteration, then by append order within one iteration.

// ScoreSpan bounds the number of entries a single section can hold.
const ScoreSpan = 1_000_000

// HistoryScore converts an iteration and append sequence to a ZSET score.
func HistoryScore(iteration, seq int) float64 {
	return float64(iteration)*ScoreSpan + float64(seq)
}

// IterationFromScore recovers the iteration from a ZSET score.
func IterationFromScore(score float64) int {
	return int(score / ScoreSpan)
}
