package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"enhancer/internal/audit"
	"enhancer/internal/storage"
)

const maxUploadBytes = 10 << 20 // 10 MiB

var allowedUploadMIME = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// ImagesUpload stores a multipart image upload and registers its record.
func (a *App) ImagesUpload(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read file")
		return
	}
	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	mime = strings.ToLower(strings.TrimSpace(mime))
	if _, ok := allowedUploadMIME[mime]; !ok {
		a.error(w, http.StatusUnsupportedMediaType, "unsupported_media", "only jpeg, png and webp uploads are accepted")
		return
	}

	key, err := a.Files.Write(r.Context(), storage.NewUploadKey(header.Filename), data)
	if err != nil {
		a.Logger.Error().Err(err).Msg("upload write failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store upload")
		return
	}
	img, err := a.Store.CreateImage(r.Context(), userID, header.Filename, key, mime)
	if err != nil {
		a.Logger.Error().Err(err).Msg("image record failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to record upload")
		return
	}

	a.Audit.Event(audit.ActionUploadImage, userID, map[string]any{
		"image_id": img.ID,
		"path":     key,
	})
	a.json(w, http.StatusCreated, img)
}

func (a *App) ImagesList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	images, err := a.Store.ListImages(r.Context(), userID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list images")
		return
	}
	a.json(w, http.StatusOK, images)
}

func (a *App) ImagesGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	imageID := chi.URLParam(r, "image_id")
	img, err := a.Store.GetImage(r.Context(), userID, imageID)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "image not found")
		return
	}
	a.json(w, http.StatusOK, img)
}
