package domain

import "time"

// EntityType names the aggregates the audit trail covers.
type EntityType string

const (
	EntityAccount     EntityType = "account"
	EntityTransfer    EntityType = "transfer"
	EntityLoanRequest EntityType = "loan_request"
	EntitySubsidyPool EntityType = "subsidy_pool"
)

// AuditLogEntry is one append-only record of a state-changing operation.
// Entries are written in the same store transaction as the mutation they
// document and are never updated or deleted.
type AuditLogEntry struct {
	ID          string      `json:"id" bson:"_id,omitempty"`
	ActorID     string      `json:"actor_id" bson:"actor_id"`
	EntityType  EntityType  `json:"entity_type" bson:"entity_type"`
	EntityID    string      `json:"entity_id" bson:"entity_id"`
	Action      string      `json:"action" bson:"action"`
	BeforeState interface{} `json:"before_state,omitempty" bson:"before_state,omitempty"`
	AfterState  interface{} `json:"after_state,omitempty" bson:"after_state,omitempty"`
	// Note carries free-form actor context, e.g. a cancellation reason.
	Note       string    `json:"note,omitempty" bson:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at" bson:"occurred_at"`
}
