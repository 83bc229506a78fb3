package domain

import "context"

// UserStore defines access methods for user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// ImageStore defines persistence for uploaded images.
type ImageStore interface {
	CreateImage(ctx context.Context, userID, filename, storageKey, mime string) (*Image, error)
	// GetImage returns the image only when it exists and belongs to userID;
	// a mismatch is indistinguishable from absence and yields ErrNotFound.
	GetImage(ctx context.Context, userID, imageID string) (*Image, error)
	ListImages(ctx context.Context, userID string) ([]Image, error)
}

// EditStore defines persistence for edit requests.
type EditStore interface {
	CreateEdit(ctx context.Context, userID, imageID, prompt string) (*Edit, error)
	GetEdit(ctx context.Context, userID, editID string) (*Edit, error)
	// UpdateEdit merges the non-nil fields and refreshes the updated
	// timestamp. Status changes out of a terminal state fail with
	// ErrInvalidTransition.
	UpdateEdit(ctx context.Context, editID string, upd EditUpdate) (*Edit, error)
	ListEditsForImage(ctx context.Context, userID, imageID string) ([]Edit, error)
}

// BillingStore defines subscription and usage-counter persistence.
type BillingStore interface {
	SetSubscription(ctx context.Context, userID, plan, status string) (*Subscription, error)
	GetSubscription(ctx context.Context, userID string) (*Subscription, error)
	// IncrementUsage atomically adds amount to the metric counter and
	// returns the new total. Counters only ever grow.
	IncrementUsage(ctx context.Context, userID, metric string, amount int) (int, error)
	GetUsage(ctx context.Context, userID string) (map[string]int, error)
}

// Store is the full record-store contract consumed by the service.
type Store interface {
	UserStore
	ImageStore
	EditStore
	BillingStore
}
