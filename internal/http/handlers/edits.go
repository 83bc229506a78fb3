package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"enhancer/internal/domain"
)

type editRequest struct {
	Prompt string `json:"prompt"`
}

// EditsCreate submits a natural-language edit for an owned image. The
// response carries the queued record; processing happens asynchronously
// and the outcome is delivered over the websocket channel (or by polling).
func (a *App) EditsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	imageID := chi.URLParam(r, "id")
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt required")
		return
	}

	ed, err := a.Edits.Submit(r.Context(), userID, imageID, req.Prompt)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "image not found")
			return
		}
		a.Logger.Error().Err(err).Msg("edit submit failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create edit")
		return
	}
	a.json(w, http.StatusAccepted, ed)
}

// EditsGet returns one edit owned by the caller.
func (a *App) EditsGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	editID := chi.URLParam(r, "id")
	ed, err := a.Edits.GetEdit(r.Context(), userID, editID)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "edit not found")
		return
	}
	a.json(w, http.StatusOK, ed)
}

// EditsList returns all edits for an owned image.
func (a *App) EditsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	imageID := chi.URLParam(r, "id")
	edits, err := a.Edits.ListForImage(r.Context(), userID, imageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "image not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to list edits")
		return
	}
	a.json(w, http.StatusOK, edits)
}
