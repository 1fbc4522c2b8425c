package server

import (
	"net/http"
	"time"

	"duetfm/cache"
	"duetfm/core/stats"
	"duetfm/logger"
)

// WeeklyStatsHandler returns this week's highlights: top-5 per person over
// the trailing 7 days plus the shared favorites. Results are cached for a
// short TTL per profile.
func (h *APIHandler) WeeklyStatsHandler(w http.ResponseWriter, r *http.Request) {
	identity := h.resolveIdentity(w, r)
	if identity == nil {
		return
	}

	if cached, err := cache.GetWeeklyStats(r.Context(), identity.Profile.ID); err == nil && cached != nil {
		writeJSON(w, http.StatusOK, cached)
		return
	} else if err != nil {
		logger.Warn("[Stats] cache read failed", logger.ErrorField(err))
	}

	now := time.Now()
	plays, err := h.plays.GetPlaysSince(r.Context(), now.Add(-stats.Window))
	if err != nil {
		logger.Error("[Stats] plays fetch failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	songs, err := h.songs.GetAllSongs(r.Context())
	if err != nil {
		logger.Error("[Stats] songs fetch failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	profiles, err := h.profiles.GetAllProfiles(r.Context())
	if err != nil {
		logger.Error("[Stats] profiles fetch failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	favorites, err := h.favorites.GetAllFavorites(r.Context())
	if err != nil {
		logger.Error("[Stats] favorites fetch failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}

	weekly := stats.Compute(identity.Profile, identity.Partner, plays, songs, profiles, favorites, now)

	if err := cache.SetWeeklyStats(r.Context(), identity.Profile.ID, weekly); err != nil {
		logger.Warn("[Stats] cache write failed", logger.ErrorField(err))
	}
	writeJSON(w, http.StatusOK, weekly)
}
