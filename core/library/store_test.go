package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"duetfm/model"
	"duetfm/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = &model.Profile{ID: 1, UserID: 10, DisplayName: "Alice"}
	bob   = &model.Profile{ID: 2, UserID: 20, DisplayName: "Bob"}
)

// memSongRepo keeps songs newest first, the same order the real repository
// returns them in.
type memSongRepo struct {
	songs  []*model.Song
	nextID int64
	// onGetAll, when set, fires once on the first GetAllSongs call.
	onGetAll func()
}

func (r *memSongRepo) CreateSong(ctx context.Context, song *model.Song) (int64, error) {
	r.nextID++
	song.ID = r.nextID
	r.songs = append([]*model.Song{song}, r.songs...)
	return song.ID, nil
}

func (r *memSongRepo) GetAllSongs(ctx context.Context) ([]*model.Song, error) {
	out := make([]*model.Song, len(r.songs))
	copy(out, r.songs)
	if r.onGetAll != nil {
		hook := r.onGetAll
		r.onGetAll = nil
		hook()
	}
	return out, nil
}

func (r *memSongRepo) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	for _, song := range r.songs {
		if song.ID == id {
			return song, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memSongRepo) DeleteSong(ctx context.Context, id int64) error {
	for i, song := range r.songs {
		if song.ID == id {
			r.songs = append(r.songs[:i], r.songs[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type memPlayRepo struct {
	plays  []*model.Play
	nextID int64
	failed bool
}

func (r *memPlayRepo) CreatePlay(ctx context.Context, play *model.Play) (int64, error) {
	if r.failed {
		return 0, errors.New("insert failed")
	}
	r.nextID++
	play.ID = r.nextID
	r.plays = append(r.plays, play)
	return play.ID, nil
}

func (r *memPlayRepo) GetAllPlays(ctx context.Context) ([]*model.Play, error) {
	out := make([]*model.Play, len(r.plays))
	copy(out, r.plays)
	return out, nil
}

func (r *memPlayRepo) GetPlaysSince(ctx context.Context, cutoff time.Time) ([]*model.Play, error) {
	out := make([]*model.Play, 0, len(r.plays))
	for _, play := range r.plays {
		if !play.PlayedAt.Before(cutoff) {
			out = append(out, play)
		}
	}
	return out, nil
}

type memFavoriteRepo struct {
	favorites []*model.Favorite
	nextID    int64
}

func (r *memFavoriteRepo) CreateFavorite(ctx context.Context, fav *model.Favorite) (int64, error) {
	for _, existing := range r.favorites {
		if existing.SongID == fav.SongID && existing.UserID == fav.UserID {
			return 0, repository.ErrDuplicateFavorite
		}
	}
	r.nextID++
	fav.ID = r.nextID
	r.favorites = append(r.favorites, fav)
	return fav.ID, nil
}

func (r *memFavoriteRepo) DeleteFavorite(ctx context.Context, songID, profileID int64) error {
	for i, fav := range r.favorites {
		if fav.SongID == songID && fav.UserID == profileID {
			r.favorites = append(r.favorites[:i], r.favorites[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *memFavoriteRepo) GetAllFavorites(ctx context.Context) ([]*model.Favorite, error) {
	out := make([]*model.Favorite, len(r.favorites))
	copy(out, r.favorites)
	return out, nil
}

type memProfileRepo struct {
	profiles []*model.Profile
}

func (r *memProfileRepo) CreateProfile(ctx context.Context, profile *model.Profile) (int64, error) {
	r.profiles = append(r.profiles, profile)
	return profile.ID, nil
}

func (r *memProfileRepo) GetAllProfiles(ctx context.Context) ([]*model.Profile, error) {
	return r.profiles, nil
}

func (r *memProfileRepo) GetProfileByID(ctx context.Context, id int64) (*model.Profile, error) {
	for _, p := range r.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memProfileRepo) GetProfileByUserID(ctx context.Context, userID int64) (*model.Profile, error) {
	for _, p := range r.profiles {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

// memObjectStore records uploads and can fail per bucket.
type memObjectStore struct {
	uploads    map[string][]byte
	failBucket string
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{uploads: make(map[string][]byte)}
}

func (s *memObjectStore) Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	if bucket == s.failBucket {
		return errors.New("upload failed")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.uploads[bucket+"/"+key] = data
	return nil
}

func (s *memObjectStore) PublicURL(bucket, key string) string {
	return fmt.Sprintf("http://files.local/%s/%s", bucket, key)
}

type fixture struct {
	songs     *memSongRepo
	plays     *memPlayRepo
	favorites *memFavoriteRepo
	profiles  *memProfileRepo
	objects   *memObjectStore
}

func newFixture() *fixture {
	return &fixture{
		songs:     &memSongRepo{},
		plays:     &memPlayRepo{},
		favorites: &memFavoriteRepo{},
		profiles:  &memProfileRepo{profiles: []*model.Profile{alice, bob}},
		objects:   newMemObjectStore(),
	}
}

func (f *fixture) store(me, partner *model.Profile) *Store {
	return NewStore(Deps{
		Songs:     f.songs,
		Plays:     f.plays,
		Favorites: f.favorites,
		Profiles:  f.profiles,
		Objects:   f.objects,
	}, me, partner)
}

func (f *fixture) addSong(uploadedBy int64, title string) *model.Song {
	song := &model.Song{Title: title, AudioURL: "http://files.local/audio/x", UploadedBy: uploadedBy}
	f.songs.CreateSong(context.Background(), song)
	return song
}

func TestLoadBuildsStats(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s1 := f.addSong(alice.ID, "first")
	s2 := f.addSong(bob.ID, "second")

	now := time.Now()
	f.plays.CreatePlay(ctx, &model.Play{SongID: s1.ID, PlayedBy: alice.ID, PlayedAt: now})
	f.plays.CreatePlay(ctx, &model.Play{SongID: s1.ID, PlayedBy: bob.ID, PlayedAt: now})
	f.plays.CreatePlay(ctx, &model.Play{SongID: s1.ID, PlayedBy: bob.ID, PlayedAt: now})
	f.favorites.CreateFavorite(ctx, &model.Favorite{SongID: s2.ID, UserID: alice.ID})

	store := f.store(alice, bob)
	snapshot, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 2)

	// Newest first.
	assert.Equal(t, s2.ID, snapshot[0].ID)
	assert.True(t, snapshot[0].IsFavorite)
	assert.Equal(t, 0, snapshot[0].TotalPlays)
	require.NotNil(t, snapshot[0].Uploader)
	assert.Equal(t, "Bob", snapshot[0].Uploader.DisplayName)

	assert.Equal(t, 1, snapshot[1].MyPlays)
	assert.Equal(t, 2, snapshot[1].PartnerPlays)
	assert.Equal(t, 3, snapshot[1].TotalPlays)
	assert.False(t, snapshot[1].IsFavorite)
}

func TestBuildSongStatsSoloPartnerPlaysZero(t *testing.T) {
	now := time.Now()
	songs := []*model.Song{{ID: 1, UploadedBy: alice.ID}}
	plays := []*model.Play{
		{SongID: 1, PlayedBy: alice.ID, PlayedAt: now},
		{SongID: 1, PlayedBy: bob.ID, PlayedAt: now},
	}

	enriched := BuildSongStats(songs, plays, nil, []*model.Profile{alice}, alice, nil)

	require.Len(t, enriched, 1)
	assert.Equal(t, 1, enriched[0].MyPlays)
	assert.Equal(t, 0, enriched[0].PartnerPlays)
	assert.Equal(t, 1, enriched[0].TotalPlays)
}

func TestRecordPlayKeepsTotalsConsistent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	song := f.addSong(bob.ID, "tune")

	store := f.store(alice, bob)
	_, err := store.Load(ctx)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordPlay(ctx, song.ID))
	}

	got := store.Songs()
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].MyPlays)
	assert.Equal(t, got[0].MyPlays+got[0].PartnerPlays, got[0].TotalPlays)
	assert.Len(t, f.plays.plays, 3)
}

func TestRecordPlayWriteFailureLeavesSnapshot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	song := f.addSong(bob.ID, "tune")

	store := f.store(alice, bob)
	_, err := store.Load(ctx)
	require.NoError(t, err)

	f.plays.failed = true
	err = store.RecordPlay(ctx, song.ID)
	require.Error(t, err)

	got := store.Songs()
	assert.Equal(t, 0, got[0].TotalPlays)
}

func TestToggleFavoriteTwiceRestoresState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	song := f.addSong(bob.ID, "tune")

	store := f.store(alice, bob)
	_, err := store.Load(ctx)
	require.NoError(t, err)

	on, err := store.ToggleFavorite(ctx, song.ID)
	require.NoError(t, err)
	assert.True(t, on)
	assert.Len(t, f.favorites.favorites, 1)

	off, err := store.ToggleFavorite(ctx, song.ID)
	require.NoError(t, err)
	assert.False(t, off)
	assert.Empty(t, f.favorites.favorites)
}

func TestToggleFavoriteUnknownSong(t *testing.T) {
	f := newFixture()
	store := f.store(alice, bob)
	_, err := store.Load(context.Background())
	require.NoError(t, err)

	_, err = store.ToggleFavorite(context.Background(), 404)
	assert.ErrorIs(t, err, ErrSongNotFound)
}

func TestUploadCreatesSongWithZeroPlays(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	store := f.store(alice, bob)
	_, err := store.Load(ctx)
	require.NoError(t, err)

	audio := UploadFile{Name: "test.mp3", Reader: strings.NewReader("audio-bytes"), Size: 11, ContentType: "audio/mpeg"}
	song, err := store.Upload(ctx, "Test", audio, nil)
	require.NoError(t, err)

	assert.Equal(t, "Test", song.Title)
	assert.Nil(t, song.CoverURL)
	assert.Equal(t, alice.ID, song.UploadedBy)
	assert.Contains(t, song.AudioURL, "http://files.local/audio/")

	got := store.Songs()
	require.Len(t, got, 1)
	assert.Equal(t, song.ID, got[0].ID)
	assert.Equal(t, 0, got[0].MyPlays)
	assert.Equal(t, 0, got[0].TotalPlays)
	assert.False(t, got[0].IsFavorite)
}

func TestUploadCoverFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	f.objects.failBucket = "covers"
	ctx := context.Background()
	store := f.store(alice, bob)

	audio := UploadFile{Name: "a.mp3", Reader: strings.NewReader("a"), Size: 1, ContentType: "audio/mpeg"}
	cover := &UploadFile{Name: "c.jpg", Reader: strings.NewReader("c"), Size: 1, ContentType: "image/jpeg"}
	song, err := store.Upload(ctx, "NoCover", audio, cover)
	require.NoError(t, err)
	assert.Nil(t, song.CoverURL)
}

func TestUploadAudioFailureCreatesNothing(t *testing.T) {
	f := newFixture()
	f.objects.failBucket = "audio"
	ctx := context.Background()
	store := f.store(alice, bob)

	audio := UploadFile{Name: "a.mp3", Reader: strings.NewReader("a"), Size: 1, ContentType: "audio/mpeg"}
	_, err := store.Upload(ctx, "Broken", audio, nil)
	require.Error(t, err)
	assert.Empty(t, f.songs.songs)
}

func TestDeleteOnlyByUploader(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mine := f.addSong(alice.ID, "mine")
	theirs := f.addSong(bob.ID, "theirs")

	store := f.store(alice, bob)
	_, err := store.Load(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, store.Delete(ctx, theirs.ID), ErrNotUploader)
	assert.ErrorIs(t, store.Delete(ctx, 404), ErrSongNotFound)

	require.NoError(t, store.Delete(ctx, mine.ID))
	got := store.Songs()
	require.Len(t, got, 1)
	assert.Equal(t, theirs.ID, got[0].ID)
	assert.Len(t, f.songs.songs, 1)
}

func TestFilterTabs(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	mine := f.addSong(alice.ID, "mine")
	theirs := f.addSong(bob.ID, "theirs")
	f.favorites.CreateFavorite(ctx, &model.Favorite{SongID: theirs.ID, UserID: alice.ID})

	store := f.store(alice, bob)
	_, err := store.Load(ctx)
	require.NoError(t, err)

	assert.Len(t, store.Filter(TabAll), 2)

	favs := store.Filter(TabFavorites)
	require.Len(t, favs, 1)
	assert.Equal(t, theirs.ID, favs[0].ID)

	own := store.Filter(TabMine)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)

	other := store.Filter(TabTheirs)
	require.Len(t, other, 1)
	assert.Equal(t, theirs.ID, other[0].ID)
}

func TestFilterTheirsEmptyWithoutPartner(t *testing.T) {
	f := newFixture()
	f.addSong(alice.ID, "mine")

	store := f.store(alice, nil)
	_, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Empty(t, store.Filter(TabTheirs))
	assert.Len(t, store.Filter(TabAll), 1)
}

func TestSupersededLoadDoesNotInstallSnapshot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	stale := f.addSong(alice.ID, "stale")
	store := f.store(alice, bob)

	// While the outer Load is mid-fetch, a song appears and a newer Load
	// completes. The outer Load returns the older view but must not
	// overwrite the snapshot with it.
	f.songs.onGetAll = func() {
		f.addSong(bob.ID, "fresh")
		_, err := store.Load(ctx)
		require.NoError(t, err)
	}

	result, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, stale.ID, result[0].ID)

	assert.Len(t, store.Songs(), 2)
}
