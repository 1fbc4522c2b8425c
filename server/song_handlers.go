package server

import (
	"errors"
	"net/http"
	"strconv"

	"duetfm/cache"
	"duetfm/core/library"
	"duetfm/core/session"
	"duetfm/logger"

	"github.com/gorilla/mux"
)

// resolveIdentity is the shared preamble of the authenticated song handlers.
func (h *APIHandler) resolveIdentity(w http.ResponseWriter, r *http.Request) *session.Identity {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil
	}
	identity, err := h.sessions.Resolve(r.Context(), userID)
	if err != nil {
		logger.Error("identity resolution failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to resolve identity")
		return nil
	}
	return identity
}

func songIDFromRequest(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// GetSongsHandler returns the library with per-song stats, newest first.
// An optional ?tab= query restricts to favorites/mine/theirs.
func (h *APIHandler) GetSongsHandler(w http.ResponseWriter, r *http.Request) {
	identity := h.resolveIdentity(w, r)
	if identity == nil {
		return
	}

	store := h.newStore(identity)
	if _, err := store.Load(r.Context()); err != nil {
		logger.Error("[Songs] library load failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load library")
		return
	}

	tab := library.Tab(r.URL.Query().Get("tab"))
	if tab == "" {
		tab = library.TabAll
	}
	writeJSON(w, http.StatusOK, store.Filter(tab))
}

// UploadSongHandler handles audio uploads and metadata.
// Expected multipart form fields:
// - audioFile: the audio blob (required)
// - title: song title (required)
// - coverFile: cover art image (optional; a cover failure is non-fatal)
func (h *APIHandler) UploadSongHandler(w http.ResponseWriter, r *http.Request) {
	identity := h.resolveIdentity(w, r)
	if identity == nil {
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse multipart form")
		return
	}

	title := r.FormValue("title")
	if title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"fieldErrors": []FieldError{{Field: "title", Message: "Please enter a title"}},
		})
		return
	}

	audioFile, audioHeader, err := r.FormFile("audioFile")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing 'audioFile' in form")
		return
	}
	defer audioFile.Close()

	audio := library.UploadFile{
		Name:        audioHeader.Filename,
		Reader:      audioFile,
		Size:        audioHeader.Size,
		ContentType: audioHeader.Header.Get("Content-Type"),
	}

	var cover *library.UploadFile
	if coverFile, coverHeader, err := r.FormFile("coverFile"); err == nil {
		defer coverFile.Close()
		cover = &library.UploadFile{
			Name:        coverHeader.Filename,
			Reader:      coverFile,
			Size:        coverHeader.Size,
			ContentType: coverHeader.Header.Get("Content-Type"),
		}
	}

	store := h.newStore(identity)
	song, err := store.Upload(r.Context(), title, audio, cover)
	if err != nil {
		logger.Error("[Upload] failed", logger.String("title", title), logger.ErrorField(err))
		writeError(w, http.StatusBadGateway, "Upload failed")
		return
	}

	logger.Info("[Upload] song created",
		logger.Int64("songId", song.ID),
		logger.String("title", song.Title),
		logger.Int64("uploadedBy", identity.Profile.ID))
	writeJSON(w, http.StatusCreated, song)
}

// DeleteSongHandler deletes a song. Only the uploader may delete.
func (h *APIHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	identity := h.resolveIdentity(w, r)
	if identity == nil {
		return
	}

	songID, err := songIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid song id")
		return
	}

	store := h.newStore(identity)
	switch err := store.Delete(r.Context(), songID); {
	case errors.Is(err, library.ErrSongNotFound):
		writeError(w, http.StatusNotFound, "Song not found")
	case errors.Is(err, library.ErrNotUploader):
		writeError(w, http.StatusForbidden, "Only the uploader may delete a song")
	case err != nil:
		logger.Error("[Delete] failed", logger.Int64("songId", songID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete song")
	default:
		h.invalidateStats(r, identity)
		w.WriteHeader(http.StatusNoContent)
	}
}

// RecordPlayHandler appends a play event for the current profile.
func (h *APIHandler) RecordPlayHandler(w http.ResponseWriter, r *http.Request) {
	identity := h.resolveIdentity(w, r)
	if identity == nil {
		return
	}

	songID, err := songIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid song id")
		return
	}

	store := h.newStore(identity)
	if err := store.RecordPlay(r.Context(), songID); err != nil {
		logger.Error("[Play] record failed", logger.Int64("songId", songID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to record play")
		return
	}

	h.invalidateStats(r, identity)
	w.WriteHeader(http.StatusNoContent)
}

// ToggleFavoriteHandler flips the favorite membership for the current
// profile and returns the new state.
func (h *APIHandler) ToggleFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	identity := h.resolveIdentity(w, r)
	if identity == nil {
		return
	}

	songID, err := songIDFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid song id")
		return
	}

	store := h.newStore(identity)
	if _, err := store.Load(r.Context()); err != nil {
		logger.Error("[Favorite] library load failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load library")
		return
	}

	isFavorite, err := store.ToggleFavorite(r.Context(), songID)
	if errors.Is(err, library.ErrSongNotFound) {
		writeError(w, http.StatusNotFound, "Song not found")
		return
	}
	if err != nil {
		logger.Error("[Favorite] toggle failed", logger.Int64("songId", songID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to toggle favorite")
		return
	}

	h.invalidateStats(r, identity)
	writeJSON(w, http.StatusOK, map[string]bool{"isFavorite": isFavorite})
}

func (h *APIHandler) invalidateStats(r *http.Request, identity *session.Identity) {
	ids := []int64{identity.Profile.ID}
	if identity.Partner != nil {
		ids = append(ids, identity.Partner.ID)
	}
	cache.InvalidateWeeklyStats(r.Context(), ids...)
}
