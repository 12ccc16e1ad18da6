package model

import (
	"fmt"
	"strings"
	"time"
)

// MemoryState is the lifecycle state of a memory.
type MemoryState string

const (
	StateActive   MemoryState = "active"
	StatePaused   MemoryState = "paused"
	StateArchived MemoryState = "archived"
	StateDeleted  MemoryState = "deleted"
)

// Valid reports whether s is one of the four known states.
func (s MemoryState) Valid() bool {
	switch s {
	case StateActive, StatePaused, StateArchived, StateDeleted:
		return true
	}
	return false
}

// ParseMemoryState parses a case-insensitive state name.
func ParseMemoryState(v string) (MemoryState, error) {
	s := MemoryState(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", NewValidationError("state", fmt.Sprintf("unknown state %q", v))
	}
	return s, nil
}

// CanTransition reports whether a memory in state from may move to state to.
// Deleted is terminal; every other state may move anywhere, including to itself so
// repeated calls are idempotent. Archived is not terminal: it only hides a memory
// from default listings, and PUT /memories/state may restore it to active or paused.
// Bulk pause and resume never select archived memories.
func CanTransition(from, to MemoryState) bool {
	if !to.Valid() {
		return false
	}
	if from == StateDeleted {
		return to == StateDeleted
	}
	return from.Valid()
}

// StateTimestamps returns the archived_at and deleted_at values a memory must carry
// once it is in state s. At most one is non-nil.
func StateTimestamps(s MemoryState, now time.Time) (archivedAt, deletedAt *time.Time) {
	switch s {
	case StateArchived:
		return &now, nil
	case StateDeleted:
		return nil, &now
	}
	return nil, nil
}
