package domain

import "time"

// Image is an uploaded source asset. The edit pipeline only reads it: it
// needs the owning user for access checks and the storage key for bytes.
type Image struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Filename   string    `json:"filename"`
	StorageKey string    `json:"storage_key"`
	MIME       string    `json:"mime"`
	CreatedAt  time.Time `json:"created_at"`
}
