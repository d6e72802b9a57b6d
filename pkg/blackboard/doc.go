// Package blackboard provides the shared, append-only memory that every
// sixhat role communicates through.
//
// # Overview
//
// A session's blackboard is a set of sections (requirement, plan, research,
// one section per analyst hat, reflection, report, evaluation). Each section
// holds an ordered history of entries. Writers never overwrite: a later
// iteration appends a new entry, and readers see "latest by section" or the
// full history.
//
// # Ordering
//
// Every section has a counter: the iteration of its newest entry, raised
// further by Seal when the orchestrator closes a round. A write whose
// iteration is below that counter, or below the highest iteration written
// anywhere in the session, fails with a *StaleWriteError. The check and the
// append happen atomically, so results that arrive after a round was sealed
// are rejected rather than merged.
//
// # Snapshots
//
// Snapshot captures every section's history at one point in time. Roles are
// handed a snapshot, never the live blackboard, so all analysts in a round
// reason over the same plan and research.
//
// # Stores
//
// Two Store implementations ship with the package:
//
//   - Client keeps entries in Redis. Entries are hashes, section histories
//     are ZSETs scored by iteration, and appends run as Lua scripts.
//     Entry events are published on a per-session Pub/Sub channel.
//   - MemoryStore keeps entries in process for single-shot CLI runs.
//
// # Redis Schema
//
//	Entries:   sixhat:{session_id}:entry:{entry_id}
//	Sections:  sixhat:{session_id}:section:{section}   (ZSET)
//	Index:     sixhat:{session_id}:sections            (SET)
//	Fences:    sixhat:{session_id}:fence               (HASH section -> iteration)
//	Meta:      sixhat:{session_id}:meta                (HASH high_water)
//	Events:    sixhat:{session_id}:entry_events        (Pub/Sub)
package blackboard
