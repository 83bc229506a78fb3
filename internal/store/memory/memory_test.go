package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"enhancer/internal/domain"
)

func TestImageOwnership(t *testing.T) {
	s := New()
	ctx := context.Background()

	img, err := s.CreateImage(ctx, "user-a", "house.jpg", "uploads/x_house.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("CreateImage error: %v", err)
	}

	if _, err := s.GetImage(ctx, "user-a", img.ID); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := s.GetImage(ctx, "user-b", img.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
	if _, err := s.GetImage(ctx, "user-a", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing image, got %v", err)
	}
}

func TestEditLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	edit, err := s.CreateEdit(ctx, "user-a", "img-1", "make it brighter")
	if err != nil {
		t.Fatalf("CreateEdit error: %v", err)
	}
	if edit.Status != domain.EditStatusQueued {
		t.Fatalf("new edit status = %s, want queued", edit.Status)
	}
	if edit.ResultPath != "" {
		t.Fatalf("new edit has result path: %s", edit.ResultPath)
	}

	completed := domain.EditStatusCompleted
	result := "results/abc_enhanced.jpg"
	updated, err := s.UpdateEdit(ctx, edit.ID, domain.EditUpdate{Status: &completed, ResultPath: &result})
	if err != nil {
		t.Fatalf("UpdateEdit error: %v", err)
	}
	if updated.Status != domain.EditStatusCompleted || updated.ResultPath != result {
		t.Fatalf("unexpected record after update: %+v", updated)
	}
	if !updated.UpdatedAt.After(edit.CreatedAt) && !updated.UpdatedAt.Equal(edit.CreatedAt) {
		t.Fatalf("updated timestamp not refreshed")
	}

	// Terminal states are final.
	failed := domain.EditStatusFailed
	if _, err := s.UpdateEdit(ctx, edit.ID, domain.EditUpdate{Status: &failed}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	queued := domain.EditStatusQueued
	if _, err := s.UpdateEdit(ctx, edit.ID, domain.EditUpdate{Status: &queued}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition back to queued, got %v", err)
	}
}

func TestListEditsForImage(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.CreateEdit(ctx, "user-a", "img-1", "one"); err != nil {
		t.Fatalf("CreateEdit error: %v", err)
	}
	if _, err := s.CreateEdit(ctx, "user-a", "img-1", "two"); err != nil {
		t.Fatalf("CreateEdit error: %v", err)
	}
	if _, err := s.CreateEdit(ctx, "user-a", "img-2", "other image"); err != nil {
		t.Fatalf("CreateEdit error: %v", err)
	}
	if _, err := s.CreateEdit(ctx, "user-b", "img-1", "other user"); err != nil {
		t.Fatalf("CreateEdit error: %v", err)
	}

	edits, err := s.ListEditsForImage(ctx, "user-a", "img-1")
	if err != nil {
		t.Fatalf("ListEditsForImage error: %v", err)
	}
	if len(edits) != 2 {
		t.Fatalf("got %d edits, want 2", len(edits))
	}
}

func TestIncrementUsageConcurrent(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementUsage(ctx, "user-a", domain.MetricEditsCompleted, 1); err != nil {
				t.Errorf("IncrementUsage error: %v", err)
			}
		}()
	}
	wg.Wait()

	usage, err := s.GetUsage(ctx, "user-a")
	if err != nil {
		t.Fatalf("GetUsage error: %v", err)
	}
	if usage[domain.MetricEditsCompleted] != 50 {
		t.Fatalf("counter = %d, want 50", usage[domain.MetricEditsCompleted])
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, "Agent@Example.com", "hash"); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if _, err := s.CreateUser(ctx, "agent@example.com", "hash"); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	u, err := s.GetUserByEmail(ctx, "AGENT@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail error: %v", err)
	}
	if u.Email != "agent@example.com" {
		t.Fatalf("email not normalized: %s", u.Email)
	}
}

func TestSubscriptionRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.GetSubscription(ctx, "user-a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before set, got %v", err)
	}
	if _, err := s.SetSubscription(ctx, "user-a", "pro", domain.SubscriptionStatusActive); err != nil {
		t.Fatalf("SetSubscription error: %v", err)
	}
	sub, err := s.GetSubscription(ctx, "user-a")
	if err != nil {
		t.Fatalf("GetSubscription error: %v", err)
	}
	if sub.Plan != "pro" || sub.Status != domain.SubscriptionStatusActive {
		t.Fatalf("unexpected subscription: %+v", sub)
	}
}
