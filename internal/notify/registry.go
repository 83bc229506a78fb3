// Package notify maintains the process-local directory of live client
// channels per user and fans events out to them. Delivery is best effort
// and at most once: there is no queueing, replay, or acknowledgment.
package notify

import (
	"sync"

	"github.com/rs/zerolog"
)

// Event is the unit of delivery pushed to a channel.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Event types emitted by the edit pipeline.
const (
	EventEditStatus = "edit_status"
	EventUsageAlert = "usage_alert"
)

// Channel is one live connection for one user. Send must be safe for
// concurrent use; a returned error marks the channel dead and causes its
// removal from the registry.
type Channel interface {
	Send(event Event) error
	Close() error
}

// Handle identifies a registered channel for later removal.
type Handle struct {
	userID  string
	channel Channel
}

// Registry maps user ids to their currently open channels. Mutations are
// serialized; delivery fan-out works on a snapshot so sends never block a
// new registration.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[Channel]struct{}
	logger   zerolog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		channels: make(map[string]map[Channel]struct{}),
		logger:   logger.With().Str("component", "notify").Logger(),
	}
}

// Register adds a channel to the user's active set. A user may hold any
// number of concurrent channels (multiple tabs or devices).
func (r *Registry) Register(userID string, ch Channel) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.channels[userID]
	if !ok {
		set = make(map[Channel]struct{})
		r.channels[userID] = set
	}
	set[ch] = struct{}{}
	return &Handle{userID: userID, channel: ch}
}

// Unregister removes a channel. Removing a channel that is no longer
// present is a no-op.
func (r *Registry) Unregister(h *Handle) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(h.userID, h.channel)
}

func (r *Registry) removeLocked(userID string, ch Channel) {
	set, ok := r.channels[userID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(r.channels, userID)
	}
}

// Send delivers the event to every channel currently registered for the
// user. Zero registered channels is a successful no-op. Each delivery is
// attempted independently: a failing channel is logged, closed, and
// unregistered without affecting the user's other channels.
func (r *Registry) Send(userID, eventType string, payload any) {
	r.mu.RLock()
	targets := make([]Channel, 0, len(r.channels[userID]))
	for ch := range r.channels[userID] {
		targets = append(targets, ch)
	}
	r.mu.RUnlock()

	event := Event{Type: eventType, Payload: payload}
	for _, ch := range targets {
		if err := ch.Send(event); err != nil {
			r.logger.Warn().Err(err).Str("user_id", userID).Str("event", eventType).Msg("channel delivery failed, dropping channel")
			_ = ch.Close()
			r.mu.Lock()
			r.removeLocked(userID, ch)
			r.mu.Unlock()
		}
	}
}

// ChannelCount reports the number of live channels for a user.
func (r *Registry) ChannelCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[userID])
}
