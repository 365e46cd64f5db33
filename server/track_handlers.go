package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"clipwave/core/catalog"
	"clipwave/logger"
	"clipwave/repository"

	"github.com/gorilla/mux"
)

// APIHandler handles all API requests.
type APIHandler struct {
	catalog  *catalog.Service
	userRepo repository.UserRepository
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(catalogService *catalog.Service, userRepo repository.UserRepository) *APIHandler {
	return &APIHandler{
		catalog:  catalogService,
		userRepo: userRepo,
	}
}

// CreateTrackRequest represents the track registration request body.
type CreateTrackRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ObjectKey   string   `json:"objectKey"`
	Duration    *float64 `json:"durationSeconds,omitempty"`
}

// writeCatalogError maps catalog sentinel errors to HTTP status codes.
func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnauthenticated):
		http.Error(w, "Please sign in", http.StatusUnauthorized)
	case errors.Is(err, catalog.ErrInvalidArgument):
		http.Error(w, "Title and description must not be blank", http.StatusBadRequest)
	case errors.Is(err, catalog.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	default:
		logger.Error("Catalog operation failed", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// GetTracksHandler returns the full catalog, newest first, as display tracks.
func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.catalog.ListTracks(r.Context())
	if err != nil {
		writeCatalogError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tracks); err != nil {
		logger.Error("Failed to encode tracks response", logger.ErrorField(err))
	}
}

// GetMyTracksHandler returns only the caller's uploads, newest first.
func (h *APIHandler) GetMyTracksHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	tracks, err := h.catalog.ListTracksByUploader(r.Context(), userID)
	if err != nil {
		writeCatalogError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tracks); err != nil {
		logger.Error("Failed to encode tracks response", logger.ErrorField(err))
	}
}

// BeginUploadHandler issues a presigned upload slot for the caller. The
// client PUTs the audio bytes directly to the slot URL and registers the
// object key afterwards via CreateTrackHandler.
func (h *APIHandler) BeginUploadHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	slot, err := h.catalog.BeginUpload(r.Context(), userID)
	if err != nil {
		writeCatalogError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(slot); err != nil {
		logger.Error("Failed to encode upload slot response", logger.ErrorField(err))
	}
}

// CreateTrackHandler registers an uploaded object as a new track.
func (h *APIHandler) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := h.catalog.CreateTrack(r.Context(), userID, catalog.CreateTrackParams{
		Title:       req.Title,
		Description: req.Description,
		ObjectKey:   req.ObjectKey,
		Duration:    req.Duration,
	})
	if err != nil {
		writeCatalogError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]int64{"id": id})
}

// RecordPlayHandler counts one play of a track. Each call is an
// unconditional +1; de-duplication is the client's concern.
func (h *APIHandler) RecordPlayHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	trackID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid track id", http.StatusBadRequest)
		return
	}

	if err := h.catalog.RecordPlay(r.Context(), trackID); err != nil {
		writeCatalogError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
