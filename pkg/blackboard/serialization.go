package blackboard

import (
	"fmt"
	"strconv"
)

// Serialization helpers for converting between entries and Redis hashes.

// EntryToHash converts an Entry to a Redis hash field map.
func EntryToHash(e *Entry) map[string]interface{} {
	return map[string]interface{}{
		"id":            e.ID,
		"session_id":    e.SessionID,
		"section":       string(e.Section),
		"iteration":     e.Iteration,
		"content":       e.Content,
		"producer_role": e.ProducerRole,
		"status":        string(e.Status),
		"reason":        e.Reason,
		"created_at_ms": e.CreatedAtMs,
	}
}

// entryToArgs flattens an entry into field/value pairs for script ARGV.
func entryToArgs(e *Entry) []interface{} {
	hash := EntryToHash(e)
	args := make([]interface{}, 0, len(hash)*2)
	for field, value := range hash {
		args = append(args, field, value)
	}
	return args
}

// HashToEntry converts a Redis hash back to an Entry.
func HashToEntry(hash map[string]string) (*Entry, error) {
	iteration, err := strconv.Atoi(hash["iteration"])
	if err != nil {
		return nil, fmt.Errorf("invalid iteration field: %w", err)
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)

	return &Entry{
		ID:           hash["id"],
		SessionID:    hash["session_id"],
		Section:      Section(hash["section"]),
		Iteration:    iteration,
		Content:      hash["content"],
		ProducerRole: hash["producer_role"],
		Status:       Status(hash["status"]),
		Reason:       hash["reason"],
		CreatedAtMs:  createdAtMs,
	}, nil
}
