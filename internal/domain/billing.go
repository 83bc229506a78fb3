package domain

// Subscription is owned by the billing collaborator; the edit pipeline only
// reads it to decide whether trial-quota logic applies.
type Subscription struct {
	UserID string `json:"user_id"`
	Plan   string `json:"plan,omitempty"`
	Status string `json:"status"`
}

const (
	SubscriptionStatusActive  = "active"
	SubscriptionStatusPending = "pending"
)

// MetricEditsCompleted is the usage counter incremented once per edit that
// reaches the completed state.
const MetricEditsCompleted = "edits_completed"
