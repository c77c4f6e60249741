package audit

import "time"

// Actions recorded in the audit log.
const (
	ActionRegistered   = "user.registered"
	ActionCreated      = "user.created"
	ActionUpdated      = "user.updated"
	ActionDeleted      = "user.deleted"
	ActionScoreAdded   = "user.score_added"
	ActionSkillUpdated = "user.skill_updated"
	ActionPurged       = "users.purged"
)

// Event is one audit record. It is published to RabbitMQ by the API and
// persisted to Postgres by the worker.
type Event struct {
	ID         int       `json:"id,omitempty"`
	Action     string    `json:"action"`
	UserID     string    `json:"user_id"`
	ActorID    string    `json:"actor_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
