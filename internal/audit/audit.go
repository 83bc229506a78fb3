// Package audit emits structured audit events. The sink is append-only and
// fire-and-forget; nothing in the service ever reads events back.
package audit

import (
	"github.com/rs/zerolog"
)

// Actions recorded by the service.
const (
	ActionRegister              = "register"
	ActionLogin                 = "login"
	ActionUploadImage           = "upload_image"
	ActionEditRequested         = "edit_requested"
	ActionEditCompleted         = "edit_completed"
	ActionEditFailed            = "edit_failed"
	ActionSubscriptionCheckout  = "subscription_checkout"
	ActionSubscriptionActivated = "subscription_activated"
)

// Recorder writes audit events to the service log stream.
type Recorder struct {
	logger zerolog.Logger
}

// NewRecorder builds a Recorder tagged as the audit component.
func NewRecorder(logger zerolog.Logger) *Recorder {
	return &Recorder{logger: logger.With().Str("component", "audit").Logger()}
}

// Event records one audit entry. Details must never contain secrets or raw
// credentials.
func (r *Recorder) Event(action, userID string, details map[string]any) {
	if r == nil {
		return
	}
	evt := r.logger.Info().Str("action", action).Str("user_id", userID)
	if details != nil {
		evt = evt.Interface("details", details)
	}
	evt.Msg("audit event")
}
