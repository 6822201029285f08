package models

import (
	"time"

	"github.com/google/uuid"
)

// ExclusionTargetType describes what an exclusion blocks
type ExclusionTargetType string

const (
	TargetDomain    ExclusionTargetType = "domain"
	TargetIP        ExclusionTargetType = "ip"
	TargetPlacement ExclusionTargetType = "placement"
)

// LifecycleState is the derived status of an exclusion record
type LifecycleState string

const (
	LifecycleRemoved LifecycleState = "removed"
	LifecyclePending LifecycleState = "pending"
	LifecycleFailed  LifecycleState = "failed"
	LifecycleExpired LifecycleState = "expired"
	LifecycleActive  LifecycleState = "active"
)

// AllLifecycleStates lists the five lifecycle states in precedence order
var AllLifecycleStates = []LifecycleState{
	LifecycleRemoved,
	LifecyclePending,
	LifecycleFailed,
	LifecycleExpired,
	LifecycleActive,
}

// Exclusion is a block record pushed to ad networks on behalf of a tenant.
// Only raw fields are stored; the lifecycle state is derived on every read.
type Exclusion struct {
	ID           uuid.UUID           `json:"id" db:"id"`
	OrgID        uuid.UUID           `json:"org_id" db:"org_id"`
	Target       string              `json:"target" db:"target"`
	TargetType   ExclusionTargetType `json:"target_type" db:"target_type"`
	RemovedAt    *time.Time          `json:"removed_at,omitempty" db:"removed_at"`
	ErrorMessage *string             `json:"error_message,omitempty" db:"error_message"`
	ExcludedAt   *time.Time          `json:"excluded_at,omitempty" db:"excluded_at"`
	ExpiresAt    *time.Time          `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt    time.Time           `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Exclusion model
func (Exclusion) TableName() string {
	return "exclusions"
}

// NewExclusion creates a new Exclusion instance
func NewExclusion(orgID uuid.UUID, target string, targetType ExclusionTargetType) *Exclusion {
	return &Exclusion{
		ID:         uuid.New(),
		OrgID:      orgID,
		Target:     target,
		TargetType: targetType,
		CreatedAt:  time.Now(),
	}
}

// HasError returns true when a non-empty propagation error is recorded
func (e *Exclusion) HasError() bool {
	return e.ErrorMessage != nil && *e.ErrorMessage != ""
}
