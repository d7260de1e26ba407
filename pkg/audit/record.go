// Package audit implements the append-only audit trail for the vault.
//
// Records are written as JSON Lines: one self-contained record per line,
// so a crashed writer never corrupts previously written records and the
// log stays streamable and greppable. Each record carries the hash of
// its predecessor, forming a tamper-evident chain over the whole trail.
package audit

import (
	"time"
)

// EventType categorizes audit records.
type EventType string

const (
	EventRead             EventType = "read"
	EventCreate           EventType = "create"
	EventRollback         EventType = "rollback"
	EventAccessDenied     EventType = "access_denied"
	EventIntegrityFailure EventType = "integrity_failure"
	EventInjectionAttempt EventType = "injection_attempt"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventRead, EventCreate, EventRollback, EventAccessDenied,
		EventIntegrityFailure, EventInjectionAttempt:
		return true
	}
	return false
}

// Record is a single immutable entry in the audit trail.
type Record struct {
	ID              string         `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	Actor           string         `json:"actor"`
	EventType       EventType      `json:"event_type"`
	ArtifactName    string         `json:"artifact_name"`
	ArtifactVersion string         `json:"artifact_version,omitempty"`
	Success         bool           `json:"success"`
	Details         map[string]any `json:"details,omitempty"`
	PreviousHash    string         `json:"previous_hash"`
	RecordHash      string         `json:"record_hash"`
}

// Filter selects records during a Query. Zero-value fields match
// everything.
type Filter struct {
	Actor        string
	EventType    EventType
	ArtifactName string
	Since        time.Time
	Until        time.Time
	Limit        int
}

func (f Filter) matches(r Record) bool {
	if f.Actor != "" && r.Actor != f.Actor {
		return false
	}
	if f.EventType != "" && r.EventType != f.EventType {
		return false
	}
	if f.ArtifactName != "" && r.ArtifactName != f.ArtifactName {
		return false
	}
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.Timestamp.After(f.Until) {
		return false
	}
	return true
}
