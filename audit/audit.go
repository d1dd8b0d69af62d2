// Package audit defines the audit Entry entity, its store interface, and
// the Sink abstraction the engine reports decisions and changes to.
package audit

import (
	"time"

	"github.com/xraph/bastion/id"
)

// Kind names what an entry records.
type Kind string

// Entry kinds.
const (
	KindCheck      Kind = "check"
	KindGrant      Kind = "grant"
	KindRevoke     Kind = "revoke"
	KindReplace    Kind = "replace"
	KindSupervisor Kind = "supervisor"
	KindRole       Kind = "role"
)

// Entry is a single audit record.
type Entry struct {
	ID         id.AuditID     `json:"id" db:"id"`
	Kind       Kind           `json:"kind" db:"kind"`
	ActorID    id.UserID      `json:"actor_id,omitempty" db:"actor_id"`
	SubjectID  id.UserID      `json:"subject_id,omitempty" db:"subject_id"`
	Module     string         `json:"module,omitempty" db:"module"`
	Permission string         `json:"permission,omitempty" db:"permission"`
	Decision   string         `json:"decision,omitempty" db:"decision"`
	Reason     string         `json:"reason,omitempty" db:"reason"`
	Context    map[string]any `json:"context,omitempty" db:"context"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying audit entries.
type QueryFilter struct {
	Kind      Kind       `json:"kind,omitempty"`
	SubjectID *id.UserID `json:"subject_id,omitempty"`
	ActorID   *id.UserID `json:"actor_id,omitempty"`
	Module    string     `json:"module,omitempty"`
	Decision  string     `json:"decision,omitempty"`
	After     *time.Time `json:"after,omitempty"`
	Before    *time.Time `json:"before,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}
