package edit

import (
	"context"
	"strings"

	"enhancer/internal/audit"
	"enhancer/internal/domain"
)

// Service is the externally facing entry point of the edit pipeline. It
// validates ownership, creates the queued record, and schedules the
// executor without waiting for it, so request latency stays decoupled from
// the multi-second enhancement call.
type Service struct {
	store      domain.Store
	executor   *Executor
	dispatcher Dispatcher
	audit      *audit.Recorder
}

// NewService wires the controller.
func NewService(store domain.Store, executor *Executor, dispatcher Dispatcher, recorder *audit.Recorder) *Service {
	return &Service{
		store:      store,
		executor:   executor,
		dispatcher: dispatcher,
		audit:      recorder,
	}
}

// Submit creates a queued edit for an image the user owns and schedules its
// processing. The returned record reflects the state before the executor
// has run. A missing or foreign image yields domain.ErrNotFound and no
// record is created.
func (s *Service) Submit(ctx context.Context, userID, imageID, prompt string) (*domain.Edit, error) {
	prompt = strings.TrimSpace(prompt)

	img, err := s.store.GetImage(ctx, userID, imageID)
	if err != nil {
		return nil, err
	}

	ed, err := s.store.CreateEdit(ctx, userID, imageID, prompt)
	if err != nil {
		return nil, err
	}

	s.audit.Event(audit.ActionEditRequested, userID, map[string]any{
		"edit_id":  ed.ID,
		"image_id": imageID,
		"prompt":   prompt,
	})

	// The executor outlives this request, so it runs on a fresh context.
	// Once scheduled it is not cancelable.
	task := *ed
	imageKey := img.StorageKey
	s.dispatcher.Dispatch(func() {
		s.executor.Process(context.Background(), &task, imageKey)
	})

	return ed, nil
}

// ListForImage returns all edits for an image the user owns. Enumeration
// order follows the store; no further ordering is guaranteed.
func (s *Service) ListForImage(ctx context.Context, userID, imageID string) ([]domain.Edit, error) {
	if _, err := s.store.GetImage(ctx, userID, imageID); err != nil {
		return nil, err
	}
	return s.store.ListEditsForImage(ctx, userID, imageID)
}

// GetEdit returns a single edit the user owns.
func (s *Service) GetEdit(ctx context.Context, userID, editID string) (*domain.Edit, error) {
	return s.store.GetEdit(ctx, userID, editID)
}
