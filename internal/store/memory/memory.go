// Package memory provides a volatile record store. It is the reference
// collaborator for tests and for running the service without a database;
// all state is lost on process exit.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"enhancer/internal/domain"
)

// Store keeps every record in process memory behind a single mutex, which
// serializes per-record updates the way the record-store contract requires.
type Store struct {
	mu            sync.Mutex
	users         map[string]domain.User
	images        map[string]domain.Image
	edits         map[string]domain.Edit
	subscriptions map[string]domain.Subscription
	usage         map[string]map[string]int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:         make(map[string]domain.User),
		images:        make(map[string]domain.Image),
		edits:         make(map[string]domain.Edit),
		subscriptions: make(map[string]domain.Subscription),
		usage:         make(map[string]map[string]int),
	}
}

var _ domain.Store = (*Store)(nil)

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         "user",
		CreatedAt:    time.Now().UTC(),
	}
	s.users[user.ID] = user
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) CreateImage(ctx context.Context, userID, filename, storageKey, mime string) (*domain.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img := domain.Image{
		ID:         uuid.NewString(),
		UserID:     userID,
		Filename:   filename,
		StorageKey: storageKey,
		MIME:       mime,
		CreatedAt:  time.Now().UTC(),
	}
	s.images[img.ID] = img
	return &img, nil
}

func (s *Store) GetImage(ctx context.Context, userID, imageID string) (*domain.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[imageID]
	if !ok || img.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return &img, nil
}

func (s *Store) ListImages(ctx context.Context, userID string) ([]domain.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Image, 0)
	for _, img := range s.images {
		if img.UserID == userID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (s *Store) CreateEdit(ctx context.Context, userID, imageID, prompt string) (*domain.Edit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	edit := domain.Edit{
		ID:        uuid.NewString(),
		UserID:    userID,
		ImageID:   imageID,
		Prompt:    prompt,
		Status:    domain.EditStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.edits[edit.ID] = edit
	return &edit, nil
}

func (s *Store) GetEdit(ctx context.Context, userID, editID string) (*domain.Edit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	edit, ok := s.edits[editID]
	if !ok || edit.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return &edit, nil
}

func (s *Store) UpdateEdit(ctx context.Context, editID string, upd domain.EditUpdate) (*domain.Edit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	edit, ok := s.edits[editID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.Status != nil {
		if !edit.Status.CanTransition(*upd.Status) {
			return nil, domain.ErrInvalidTransition
		}
		edit.Status = *upd.Status
	}
	if upd.ResultPath != nil {
		edit.ResultPath = *upd.ResultPath
	}
	if upd.ErrorMessage != nil {
		edit.ErrorMessage = *upd.ErrorMessage
	}
	edit.UpdatedAt = time.Now().UTC()
	s.edits[editID] = edit
	return &edit, nil
}

func (s *Store) ListEditsForImage(ctx context.Context, userID, imageID string) ([]domain.Edit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Edit, 0)
	for _, edit := range s.edits {
		if edit.UserID == userID && edit.ImageID == imageID {
			out = append(out, edit)
		}
	}
	return out, nil
}

func (s *Store) SetSubscription(ctx context.Context, userID, plan, status string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := domain.Subscription{UserID: userID, Plan: plan, Status: status}
	s.subscriptions[userID] = sub
	return &sub, nil
}

func (s *Store) GetSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sub, nil
}

func (s *Store) IncrementUsage(ctx context.Context, userID, metric string, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counters, ok := s.usage[userID]
	if !ok {
		counters = make(map[string]int)
		s.usage[userID] = counters
	}
	counters[metric] += amount
	return counters[metric], nil
}

func (s *Store) GetUsage(ctx context.Context, userID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.usage[userID]))
	for metric, count := range s.usage[userID] {
		out[metric] = count
	}
	return out, nil
}
