package player

import (
	"fmt"
	"math"
	"sync"

	"duetfm/model"
)

// State is the playback session state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	}
	return "unknown"
}

// Transport is the single audio output the session drives. Assigning a new
// source implicitly stops whatever was playing.
type Transport interface {
	SetSource(url string)
	Play()
	Pause()
	Seek(seconds float64)
	SetVolume(level float64)
	SetMuted(muted bool)
}

// Session is the playback state machine. It owns the transport exclusively
// and sequences through the queue the host supplies; on natural completion
// it reports the finished song and advances.
type Session struct {
	mu        sync.Mutex
	transport Transport
	state     State
	current   *model.SongWithStats
	queue     []*model.SongWithStats
	duration  float64
	volume    float64
	muted     bool

	// onPlayComplete fires once per natural completion, before advancing.
	onPlayComplete func(songID int64)
}

// NewSession creates an idle session at full volume.
func NewSession(transport Transport, onPlayComplete func(songID int64)) *Session {
	return &Session{
		transport:      transport,
		state:          StateIdle,
		volume:         1,
		onPlayComplete: onPlayComplete,
	}
}

// SetQueue replaces the ordered list Next/Previous sequence over.
// The currently loaded song keeps playing even if it left the queue.
func (s *Session) SetQueue(queue []*model.SongWithStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = make([]*model.SongWithStats, len(queue))
	copy(s.queue, queue)
}

// Load assigns a new source and starts playback immediately, interrupting
// whatever was playing. Valid from any state.
func (s *Session) Load(song *model.SongWithStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(song)
}

func (s *Session) loadLocked(song *model.SongWithStats) {
	s.current = song
	s.duration = 0
	s.state = StateLoading
	s.transport.SetSource(song.AudioURL)
	s.transport.Play()
	s.state = StatePlaying
}

// TogglePlayPause flips between Playing and Paused. No-op from Idle.
func (s *Session) TogglePlayPause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StatePlaying:
		s.transport.Pause()
		s.state = StatePaused
	case StatePaused:
		s.transport.Play()
		s.state = StatePlaying
	}
}

// Seek sets the transport position. Valid while Playing or Paused; the
// transport clamps to [0, duration].
func (s *Session) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StatePlaying || s.state == StatePaused {
		s.transport.Seek(seconds)
	}
}

// SetVolume sets the transport volume, clamped to [0,1]. Zero also raises
// the muted flag. Play/pause state is untouched.
func (s *Session) SetVolume(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	s.volume = level
	s.transport.SetVolume(level)
	s.muted = level == 0
}

// ToggleMute flips the muted flag independent of the volume level;
// unmuting restores the last numeric volume.
func (s *Session) ToggleMute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = !s.muted
	s.transport.SetMuted(s.muted)
}

// HandleMetadata records the duration reported by the transport.
func (s *Session) HandleMetadata(duration float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duration = duration
}

// HandleEnded processes natural completion: playback stops, the finished
// song is reported exactly once, then the session advances to the song
// Next would select. A single-song queue replays; an empty queue leaves
// the session paused on the finished song.
func (s *Session) HandleEnded() {
	s.mu.Lock()
	finished := s.current
	s.state = StatePaused
	s.mu.Unlock()

	if finished == nil {
		return
	}
	if s.onPlayComplete != nil {
		s.onPlayComplete(finished.ID)
	}
	s.Next()
}

// Next loads the song after the current one in the queue, wrapping past the
// end. No-op when nothing is loaded or the queue is empty.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || len(s.queue) == 0 {
		return
	}
	idx := s.indexOfCurrentLocked()
	s.loadLocked(s.queue[(idx+1)%len(s.queue)])
}

// Previous loads the song before the current one, wrapping to the end.
// No-op when nothing is loaded or the queue is empty.
func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || len(s.queue) == 0 {
		return
	}
	idx := s.indexOfCurrentLocked()
	if idx < 0 {
		idx = 0
	}
	s.loadLocked(s.queue[(idx-1+len(s.queue))%len(s.queue)])
}

// indexOfCurrentLocked returns -1 when the current song is not in the
// queue, which makes Next fall through to the first entry.
func (s *Session) indexOfCurrentLocked() int {
	for i, song := range s.queue {
		if song.ID == s.current.ID {
			return i
		}
	}
	return -1
}

// Current returns the loaded song, nil while Idle.
func (s *Session) Current() *model.SongWithStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// State returns the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Volume returns the last set volume level.
func (s *Session) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Muted returns the muted flag.
func (s *Session) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// Duration returns the duration the transport reported for the current
// source, 0 until metadata arrives.
func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// FormatTime renders seconds as m:ss with zero-padded seconds. An
// unavailable duration (NaN, infinite or negative) renders as 0:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	whole := int(seconds)
	return fmt.Sprintf("%d:%02d", whole/60, whole%60)
}
