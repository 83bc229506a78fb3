package handlers

import (
	"encoding/json"
	"net/http"

	"enhancer/internal/audit"
	"enhancer/internal/domain"
	"enhancer/internal/edit"
	"enhancer/internal/infra"
	"enhancer/internal/middleware"
	"enhancer/internal/notify"
	"enhancer/internal/storage"
)

// App bundles the dependencies shared by all HTTP handlers.
type App struct {
	Store     domain.Store
	Files     *storage.FileStore
	Edits     *edit.Service
	Registry  *notify.Registry
	Audit     *audit.Recorder
	Logger    infra.Logger
	JWTSecret string
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorResponse{Code: code, Message: message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
