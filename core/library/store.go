package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"duetfm/logger"
	"duetfm/model"
	"duetfm/repository"
	"duetfm/storage"
)

var (
	// ErrSongNotFound is returned for operations against an unknown song.
	ErrSongNotFound = errors.New("song not found")
	// ErrNotUploader is returned when someone other than the uploader
	// tries to delete a song.
	ErrNotUploader = errors.New("only the uploader may delete a song")
)

// Tab selects which slice of the library the caller is looking at. The
// player sequences over the filtered list, so the filter lives here.
type Tab string

const (
	TabAll       Tab = "all"
	TabFavorites Tab = "favorites"
	TabMine      Tab = "mine"
	TabTheirs    Tab = "theirs"
)

// UploadFile is one blob handed to Upload.
type UploadFile struct {
	Name        string
	Reader      io.Reader
	Size        int64
	ContentType string
}

// Store loads the shared library with per-song stats for one identity and
// keeps an optimistic in-memory snapshot patched by the mutation methods.
// The snapshot is reconciled with server truth on the next full Load.
type Store struct {
	songs     repository.SongRepository
	plays     repository.PlayRepository
	favorites repository.FavoriteRepository
	profiles  repository.ProfileRepository
	objects   storage.ObjectStore

	me      *model.Profile
	partner *model.Profile
	now     func() time.Time

	mu         sync.Mutex
	snapshot   []*model.SongWithStats
	generation uint64
}

// Deps bundles the store's collaborators.
type Deps struct {
	Songs     repository.SongRepository
	Plays     repository.PlayRepository
	Favorites repository.FavoriteRepository
	Profiles  repository.ProfileRepository
	Objects   storage.ObjectStore
	Now       func() time.Time
}

// NewStore creates a library store bound to one profile/partner pairing.
// Partner may be nil.
func NewStore(deps Deps, me, partner *model.Profile) *Store {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Store{
		songs:     deps.Songs,
		plays:     deps.Plays,
		favorites: deps.Favorites,
		profiles:  deps.Profiles,
		objects:   deps.Objects,
		me:        me,
		partner:   partner,
		now:       deps.Now,
	}
}

// Load fetches songs, plays, favorites and profiles and derives the
// SongWithStats list, newest song first. Each Load carries a generation;
// a Load superseded by a newer one before finishing returns its result but
// does not install it as the snapshot.
func (s *Store) Load(ctx context.Context) ([]*model.SongWithStats, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	songs, err := s.songs.GetAllSongs(ctx)
	if err != nil {
		return nil, err
	}
	plays, err := s.plays.GetAllPlays(ctx)
	if err != nil {
		return nil, err
	}
	favorites, err := s.favorites.GetAllFavorites(ctx)
	if err != nil {
		return nil, err
	}
	profiles, err := s.profiles.GetAllProfiles(ctx)
	if err != nil {
		return nil, err
	}

	enriched := BuildSongStats(songs, plays, favorites, profiles, s.me, s.partner)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation {
		s.snapshot = enriched
	}
	return enriched, nil
}

// BuildSongStats derives per-song stats from the four collections. Song
// order is preserved. Partner may be nil; partner plays are 0 then.
func BuildSongStats(songs []*model.Song, plays []*model.Play, favorites []*model.Favorite, profiles []*model.Profile, me, partner *model.Profile) []*model.SongWithStats {
	myPlays := make(map[int64]int)
	partnerPlays := make(map[int64]int)
	for _, play := range plays {
		if play.PlayedBy == me.ID {
			myPlays[play.SongID]++
		} else if partner != nil && play.PlayedBy == partner.ID {
			partnerPlays[play.SongID]++
		}
	}

	favoriteSet := make(map[int64]bool)
	for _, fav := range favorites {
		if fav.UserID == me.ID {
			favoriteSet[fav.SongID] = true
		}
	}

	profileByID := make(map[int64]*model.Profile, len(profiles))
	for _, p := range profiles {
		profileByID[p.ID] = p
	}

	enriched := make([]*model.SongWithStats, 0, len(songs))
	for _, song := range songs {
		mine := myPlays[song.ID]
		theirs := partnerPlays[song.ID]
		enriched = append(enriched, &model.SongWithStats{
			Song:         *song,
			MyPlays:      mine,
			PartnerPlays: theirs,
			TotalPlays:   mine + theirs,
			IsFavorite:   favoriteSet[song.ID],
			Uploader:     profileByID[song.UploadedBy],
		})
	}
	return enriched
}

// Songs returns the current snapshot.
func (s *Store) Songs() []*model.SongWithStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.SongWithStats, len(s.snapshot))
	copy(out, s.snapshot)
	return out
}

// Filter returns the snapshot restricted to a tab, order preserved.
func (s *Store) Filter(tab Tab) []*model.SongWithStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.SongWithStats, 0, len(s.snapshot))
	for _, song := range s.snapshot {
		switch tab {
		case TabFavorites:
			if !song.IsFavorite {
				continue
			}
		case TabMine:
			if song.UploadedBy != s.me.ID {
				continue
			}
		case TabTheirs:
			if s.partner == nil || song.UploadedBy != s.partner.ID {
				continue
			}
		}
		out = append(out, song)
	}
	return out
}

// RecordPlay appends a play event for the current profile and bumps the
// song's counters in the snapshot without a refetch.
func (s *Store) RecordPlay(ctx context.Context, songID int64) error {
	play := &model.Play{
		SongID:   songID,
		PlayedBy: s.me.ID,
		PlayedAt: s.now(),
	}
	if _, err := s.plays.CreatePlay(ctx, play); err != nil {
		return fmt.Errorf("failed to record play for song %d: %w", songID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, song := range s.snapshot {
		if song.ID == songID {
			song.MyPlays++
			song.TotalPlays++
			break
		}
	}
	return nil
}

// ToggleFavorite inserts or removes the favorite row for the current
// profile and flips the snapshot flag. Returns the new state.
func (s *Store) ToggleFavorite(ctx context.Context, songID int64) (bool, error) {
	s.mu.Lock()
	var target *model.SongWithStats
	for _, song := range s.snapshot {
		if song.ID == songID {
			target = song
			break
		}
	}
	s.mu.Unlock()

	if target == nil {
		return false, ErrSongNotFound
	}

	if target.IsFavorite {
		if err := s.favorites.DeleteFavorite(ctx, songID, s.me.ID); err != nil {
			return true, err
		}
	} else {
		fav := &model.Favorite{SongID: songID, UserID: s.me.ID}
		if _, err := s.favorites.CreateFavorite(ctx, fav); err != nil && !errors.Is(err, repository.ErrDuplicateFavorite) {
			return false, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	target.IsFavorite = !target.IsFavorite
	return target.IsFavorite, nil
}

// Upload stores the audio blob (and optionally a cover) under the
// uploader-scoped path, inserts the song row and reloads. A cover failure is
// non-fatal: the song is created without a cover. An audio or insert failure
// leaves the snapshot untouched.
func (s *Store) Upload(ctx context.Context, title string, audio UploadFile, cover *UploadFile) (*model.Song, error) {
	uploadedAt := s.now()

	audioKey := storage.ObjectKey(s.me.ID, audio.Name, uploadedAt)
	if err := s.objects.Upload(ctx, storage.BucketAudio, audioKey, audio.Reader, audio.Size, audio.ContentType); err != nil {
		return nil, fmt.Errorf("audio upload failed: %w", err)
	}
	audioURL := s.objects.PublicURL(storage.BucketAudio, audioKey)

	var coverURL *string
	if cover != nil {
		coverKey := storage.ObjectKey(s.me.ID, cover.Name, uploadedAt)
		if err := s.objects.Upload(ctx, storage.BucketCovers, coverKey, cover.Reader, cover.Size, cover.ContentType); err != nil {
			logger.Warn("cover upload failed, continuing without cover",
				logger.String("title", title), logger.ErrorField(err))
		} else {
			url := s.objects.PublicURL(storage.BucketCovers, coverKey)
			coverURL = &url
		}
	}

	song := &model.Song{
		Title:      title,
		AudioURL:   audioURL,
		CoverURL:   coverURL,
		UploadedBy: s.me.ID,
		CreatedAt:  uploadedAt,
	}
	if _, err := s.songs.CreateSong(ctx, song); err != nil {
		return nil, fmt.Errorf("song insert failed: %w", err)
	}

	if _, err := s.Load(ctx); err != nil {
		logger.Warn("reload after upload failed", logger.ErrorField(err))
	}
	return song, nil
}

// Delete removes a song. Only the uploader may delete; the row disappears
// from the snapshot immediately.
func (s *Store) Delete(ctx context.Context, songID int64) error {
	song, err := s.songs.GetSongByID(ctx, songID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrSongNotFound
	}
	if err != nil {
		return err
	}
	if song.UploadedBy != s.me.ID {
		return ErrNotUploader
	}

	if err := s.songs.DeleteSong(ctx, songID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.snapshot[:0]
	for _, sw := range s.snapshot {
		if sw.ID != songID {
			kept = append(kept, sw)
		}
	}
	s.snapshot = kept
	return nil
}
