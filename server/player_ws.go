package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"duetfm/core/library"
	"duetfm/core/player"
	"duetfm/core/session"
	"duetfm/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// playerMessage is what the browser sends: user intents and transport
// events (the audio element lives client-side, the state machine here).
type playerMessage struct {
	Type     string  `json:"type"`
	SongID   int64   `json:"songId,omitempty"`
	Tab      string  `json:"tab,omitempty"`
	Seconds  float64 `json:"seconds,omitempty"`
	Level    float64 `json:"level,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// playerDirective is what the server pushes back: transport commands and
// state snapshots.
type playerDirective struct {
	Type    string  `json:"type"`
	URL     string  `json:"url,omitempty"`
	SongID  int64   `json:"songId,omitempty"`
	Seconds float64 `json:"seconds,omitempty"`
	Level   float64 `json:"level,omitempty"`
	Muted   bool    `json:"muted,omitempty"`
	State   string  `json:"state,omitempty"`
}

// wsTransport sends transport commands over the websocket. It satisfies
// player.Transport; the browser applies each command to its audio element.
type wsTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (t *wsTransport) send(d playerDirective) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.conn.WriteJSON(d); err != nil {
		logger.Debug("player ws write failed", logger.ErrorField(err))
	}
}

func (t *wsTransport) SetSource(url string) { t.send(playerDirective{Type: "source", URL: url}) }
func (t *wsTransport) Play() { t.send(playerDirective{Type: "play"}) }
func (t *wsTransport) Pause() { t.send(playerDirective{Type: "pause"}) }
func (t *wsTransport) Seek(seconds float64) { t.send(playerDirective{Type: "seek", Seconds: seconds}) }
func (t *wsTransport) SetVolume(level float64) { t.send(playerDirective{Type: "volume", Level: level}) }
func (t *wsTransport) SetMuted(muted bool) { t.send(playerDirective{Type: "muted", Muted: muted}) }

// PlayerWSHandler runs one playback session per websocket connection. The
// token travels as a query parameter since browsers cannot set headers on
// websocket upgrades.
func (h *APIHandler) PlayerWSHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := h.sessions.ParseToken(r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	if err := h.sessions.Validate(r.Context(), claims.UserID); err != nil {
		if errors.Is(err, session.ErrSessionExpired) {
			writeError(w, http.StatusUnauthorized, "Session expired, please sign in again")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	identity, err := h.sessions.Resolve(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve identity")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("player ws upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	logger.Info("player session opened",
		logger.String("sessionId", sessionID),
		logger.Int64("profileId", identity.Profile.ID))

	store := h.newStore(identity)
	ctx := r.Context()
	if _, err := store.Load(ctx); err != nil {
		logger.Error("player library load failed", logger.ErrorField(err))
		return
	}

	transport := &wsTransport{conn: conn}
	playback := player.NewSession(transport, func(songID int64) {
		if err := store.RecordPlay(ctx, songID); err != nil {
			logger.Error("record play failed",
				logger.String("sessionId", sessionID),
				logger.Int64("songId", songID),
				logger.ErrorField(err))
		}
		h.invalidateStats(r, identity)
		transport.send(playerDirective{Type: "playComplete", SongID: songID})
	})
	playback.SetQueue(store.Filter(library.TabAll))

	for {
		var msg playerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		h.handlePlayerMessage(ctx, store, playback, msg)
		h.pushState(playback, transport)
	}

	logger.Info("player session closed", logger.String("sessionId", sessionID))
}

func (h *APIHandler) handlePlayerMessage(ctx context.Context, store *library.Store, playback *player.Session, msg playerMessage) {
	switch msg.Type {
	case "queue":
		tab := library.Tab(msg.Tab)
		if tab == "" {
			tab = library.TabAll
		}
		playback.SetQueue(store.Filter(tab))
	case "load":
		for _, song := range store.Songs() {
			if song.ID == msg.SongID {
				playback.Load(song)
				break
			}
		}
	case "toggle":
		playback.TogglePlayPause()
	case "seek":
		playback.Seek(msg.Seconds)
	case "volume":
		playback.SetVolume(msg.Level)
	case "mute":
		playback.ToggleMute()
	case "next":
		playback.Next()
	case "previous":
		playback.Previous()
	case "metadata":
		playback.HandleMetadata(msg.Duration)
	case "ended":
		playback.HandleEnded()
	case "favorite":
		if _, err := store.ToggleFavorite(ctx, msg.SongID); err != nil {
			logger.Warn("favorite toggle over ws failed", logger.Int64("songId", msg.SongID), logger.ErrorField(err))
		}
	default:
		logger.Debug("unknown player message", logger.String("type", msg.Type))
	}
}

func (h *APIHandler) pushState(playback *player.Session, transport *wsTransport) {
	d := playerDirective{
		Type:  "state",
		State: playback.State().String(),
		Level: playback.Volume(),
		Muted: playback.Muted(),
	}
	if current := playback.Current(); current != nil {
		d.SongID = current.ID
	}
	transport.send(d)
}
