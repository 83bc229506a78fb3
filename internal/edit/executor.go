package edit

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"enhancer/internal/audit"
	"enhancer/internal/domain"
	"enhancer/internal/enhance"
	"enhancer/internal/notify"
	"enhancer/internal/storage"
	"enhancer/internal/usage"
)

// Executor drives one edit from queued to a terminal state: external
// enhancement call, result persistence, usage accounting, and client
// notification. Failures never propagate to the request that created the
// edit; they surface only as the failed terminal state and its
// notification.
type Executor struct {
	store    domain.Store
	files    *storage.FileStore
	enhancer enhance.Enhancer
	registry *notify.Registry
	gate     *usage.Gate
	audit    *audit.Recorder
	logger   zerolog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewExecutor wires the executor's collaborators.
func NewExecutor(
	store domain.Store,
	files *storage.FileStore,
	enhancer enhance.Enhancer,
	registry *notify.Registry,
	gate *usage.Gate,
	recorder *audit.Recorder,
	logger zerolog.Logger,
) *Executor {
	return &Executor{
		store:    store,
		files:    files,
		enhancer: enhancer,
		registry: registry,
		gate:     gate,
		audit:    recorder,
		logger:   logger.With().Str("component", "edit_executor").Logger(),
		inflight: make(map[string]struct{}),
	}
}

// Process runs the full pipeline for one edit. Two invocations for the same
// edit id never run concurrently; the second one returns immediately.
// Executors for different edits are independent.
func (e *Executor) Process(ctx context.Context, ed *domain.Edit, imageKey string) {
	e.mu.Lock()
	if _, busy := e.inflight[ed.ID]; busy {
		e.mu.Unlock()
		e.logger.Warn().Str("edit_id", ed.ID).Msg("edit already in flight, skipping")
		return
	}
	e.inflight[ed.ID] = struct{}{}
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.inflight, ed.ID)
		e.mu.Unlock()
	}()

	if err := e.run(ctx, ed, imageKey); err != nil {
		e.fail(ctx, ed, err)
	}
}

func (e *Executor) run(ctx context.Context, ed *domain.Edit, imageKey string) error {
	// A redelivered task for an edit that already reached a terminal state
	// must not re-run the pipeline or double-count usage.
	if current, err := e.store.GetEdit(ctx, ed.UserID, ed.ID); err == nil && current.Status.Terminal() {
		e.logger.Warn().Str("edit_id", ed.ID).Str("status", string(current.Status)).Msg("edit already terminal, skipping")
		return nil
	}

	source, err := e.files.Read(ctx, imageKey)
	if err != nil {
		return err
	}

	resultURL, err := e.enhancer.Enhance(ctx, source, imageKey, ed.Prompt)
	if err != nil {
		return err
	}

	result, err := e.enhancer.Fetch(ctx, resultURL)
	if err != nil {
		return err
	}

	resultKey, err := e.files.Write(ctx, storage.NewResultKey("enhanced.jpg"), result)
	if err != nil {
		return err
	}

	completed := domain.EditStatusCompleted
	updated, err := e.store.UpdateEdit(ctx, ed.ID, domain.EditUpdate{Status: &completed, ResultPath: &resultKey})
	if err != nil {
		return err
	}

	// The store write above is visible before any client hears about it, so
	// a re-fetch triggered by the notification observes the completed state.
	e.registry.Send(ed.UserID, notify.EventEditStatus, map[string]any{
		"edit_id":     ed.ID,
		"status":      string(domain.EditStatusCompleted),
		"result_path": resultKey,
	})

	count, err := e.gate.RecordCompletion(ctx, ed.UserID)
	if err != nil {
		e.logger.Error().Err(err).Str("edit_id", ed.ID).Msg("usage accounting failed")
	} else {
		alert, alertErr := e.gate.ShouldAlert(ctx, ed.UserID, count)
		if alertErr != nil {
			e.logger.Error().Err(alertErr).Str("edit_id", ed.ID).Msg("alert check failed")
		} else if alert {
			e.registry.Send(ed.UserID, notify.EventUsageAlert, map[string]any{
				"message":   usage.AlertMessage,
				"remaining": usage.Remaining(count),
			})
		}
	}

	e.audit.Event(audit.ActionEditCompleted, ed.UserID, map[string]any{
		"edit_id":    ed.ID,
		"image_path": updated.ResultPath,
	})
	e.logger.Info().Str("edit_id", ed.ID).Str("result", resultKey).Msg("edit completed")
	return nil
}

// fail marks the edit terminally failed and tells the owner's live
// channels. The error text is user-visible.
func (e *Executor) fail(ctx context.Context, ed *domain.Edit, cause error) {
	e.logger.Error().Err(cause).Str("edit_id", ed.ID).Msg("edit failed")

	failed := domain.EditStatusFailed
	msg := cause.Error()
	if _, err := e.store.UpdateEdit(ctx, ed.ID, domain.EditUpdate{Status: &failed, ErrorMessage: &msg}); err != nil {
		e.logger.Error().Err(err).Str("edit_id", ed.ID).Msg("failed to record terminal state")
	}

	e.registry.Send(ed.UserID, notify.EventEditStatus, map[string]any{
		"edit_id": ed.ID,
		"status":  string(domain.EditStatusFailed),
		"error":   msg,
	})

	e.audit.Event(audit.ActionEditFailed, ed.UserID, map[string]any{
		"edit_id": ed.ID,
		"error":   msg,
	})
}
