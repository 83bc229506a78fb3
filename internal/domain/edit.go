package domain

import "time"

// EditStatus enumerates the lifecycle states of an edit request.
type EditStatus string

const (
	EditStatusQueued    EditStatus = "queued"
	EditStatusCompleted EditStatus = "completed"
	EditStatusFailed    EditStatus = "failed"
)

// Terminal reports whether no further transition is permitted from s.
func (s EditStatus) Terminal() bool {
	return s == EditStatusCompleted || s == EditStatusFailed
}

// CanTransition reports whether moving from s to next is a legal
// state-machine step. Transitions are one-directional: queued may move to
// either terminal state and terminal states never move again.
func (s EditStatus) CanTransition(next EditStatus) bool {
	if s == next {
		return false
	}
	return s == EditStatusQueued && next.Terminal()
}

// Edit tracks one requested transformation of a source image through a
// terminal lifecycle. Created queued by the controller, finished by the
// executor, never deleted.
type Edit struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	ImageID      string     `json:"image_id"`
	Prompt       string     `json:"prompt"`
	Status       EditStatus `json:"status"`
	ResultPath   string     `json:"result_path,omitempty"`
	ErrorMessage string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// EditUpdate carries the fields the executor may merge into an edit record.
// Nil fields are left untouched by the store.
type EditUpdate struct {
	Status       *EditStatus
	ResultPath   *string
	ErrorMessage *string
}
