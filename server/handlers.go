package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"duetfm/config"
	"duetfm/core/library"
	"duetfm/core/session"
	"duetfm/repository"
	"duetfm/storage"
)

// APIHandler handles all API requests.
type APIHandler struct {
	sessions  *session.Manager
	songs     repository.SongRepository
	plays     repository.PlayRepository
	favorites repository.FavoriteRepository
	profiles  repository.ProfileRepository
	objects   storage.ObjectStore
	cfg       *config.Config
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(
	sessions *session.Manager,
	songs repository.SongRepository,
	plays repository.PlayRepository,
	favorites repository.FavoriteRepository,
	profiles repository.ProfileRepository,
	objects storage.ObjectStore,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		sessions:  sessions,
		songs:     songs,
		plays:     plays,
		favorites: favorites,
		profiles:  profiles,
		objects:   objects,
		cfg:       cfg,
	}
}

// newStore builds a library store bound to the request's identity.
func (h *APIHandler) newStore(identity *session.Identity) *library.Store {
	return library.NewStore(library.Deps{
		Songs:     h.songs,
		Plays:     h.plays,
		Favorites: h.favorites,
		Profiles:  h.profiles,
		Objects:   h.objects,
	}, identity.Profile, identity.Partner)
}

type contextKey string

const userIDKey contextKey = "userID"

// GetUserIDFromContext extracts the user ID set by AuthMiddleware.
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(userIDKey).(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
