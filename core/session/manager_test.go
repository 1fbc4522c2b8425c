package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"duetfm/model"
	"duetfm/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUserRepo struct {
	users      []*model.User
	nextID     int64
	profiles   *memProfileRepo
	profileErr error
}

func (r *memUserRepo) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return 0, repository.ErrDuplicateUser
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users = append(r.users, user)
	return user.ID, nil
}

func (r *memUserRepo) CreateUserWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error {
	if _, err := r.CreateUser(ctx, user); err != nil {
		return err
	}
	if r.profileErr != nil {
		r.users = r.users[:len(r.users)-1]
		return r.profileErr
	}
	profile.UserID = user.ID
	_, err := r.profiles.CreateProfile(ctx, profile)
	return err
}

func (r *memUserRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memProfileRepo struct {
	profiles []*model.Profile
	nextID   int64
}

func (r *memProfileRepo) CreateProfile(ctx context.Context, profile *model.Profile) (int64, error) {
	r.nextID++
	profile.ID = r.nextID
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

type memActivityStore struct {
	last map[int64]time.Time
}

func newMemActivityStore() *memActivityStore {
	return &memActivityStore{last: make(map[int64]time.Time)}
}

func (s *memActivityStore) Touch(ctx context.Context, userID int64, at time.Time) error {
	s.last[userID] = at
	return nil
}

func (s *memActivityStore) Last(ctx context.Context, userID int64) (time.Time, bool, error) {
	at, ok := s.last[userID]
	return at, ok, nil
}

func (s *memActivityStore) Clear(ctx context.Context, userID int64) error {
	delete(s.last, userID)
	return nil
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newTestManager(t *testing.T) (*Manager, *memUserRepo, *memProfileRepo, *memActivityStore, *clock) {
	t.Helper()
	profiles := &memProfileRepo{}
	users := &memUserRepo{profiles: profiles}
	activity := newMemActivityStore()
	c := &clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(Options{
		Users:     users,
		Profiles:  profiles,
		Activity:  activity,
		JWTSecret: "test-secret",
		TokenTTL:  24 * time.Hour,
		IdleLimit: 7 * 24 * time.Hour,
		Now:       c.Now,
	})
	return m, users, profiles, activity, c
}

func TestSignUpCreatesUserProfileAndToken(t *testing.T) {
	m, users, profiles, activity, c := newTestManager(t)
	ctx := context.Background()

	user, token, err := m.SignUp(ctx, "alice@example.com", "secret123", "Alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	require.Len(t, profiles.profiles, 1)
	assert.Equal(t, user.ID, profiles.profiles[0].UserID)
	assert.Equal(t, "Alice", profiles.profiles[0].DisplayName)
	assert.Equal(t, c.now, activity.last[user.ID])
	assert.Len(t, users.users, 1)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	m, _, _, _, _ := newTestManager(t)
	ctx := context.Background()

	_, _, err := m.SignUp(ctx, "alice@example.com", "secret123", "Alice")
	require.NoError(t, err)

	_, _, err = m.SignUp(ctx, "alice@example.com", "other456", "Imposter")
	assert.ErrorIs(t, err, repository.ErrDuplicateUser)
}

func TestSignInChecksCredentials(t *testing.T) {
	m, _, _, _, _ := newTestManager(t)
	ctx := context.Background()

	_, _, err := m.SignUp(ctx, "alice@example.com", "secret123", "Alice")
	require.NoError(t, err)

	_, token, err := m.SignIn(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = m.SignIn(ctx, "alice@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown email yields the same error as a wrong password.
	_, _, err = m.SignIn(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateRefreshesActivity(t *testing.T) {
	m, _, _, activity, c := newTestManager(t)
	ctx := context.Background()

	user, _, err := m.SignUp(ctx, "alice@example.com", "secret123", "Alice")
	require.NoError(t, err)

	c.now = c.now.Add(3 * 24 * time.Hour)
	require.NoError(t, m.Validate(ctx, user.ID))
	assert.Equal(t, c.now, activity.last[user.ID])
}

func TestValidateExpiresIdleSession(t *testing.T) {
	m, _, _, activity, c := newTestManager(t)
	ctx := context.Background()

	user, _, err := m.SignUp(ctx, "alice@example.com", "secret123", "Alice")
	require.NoError(t, err)

	c.now = c.now.Add(8 * 24 * time.Hour)
	err = m.Validate(ctx, user.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, ok := activity.last[user.ID]
	assert.False(t, ok)
}

func TestValidateMissingActivityRecordRejected(t *testing.T) {
	m, users, _, activity, _ := newTestManager(t)
	ctx := context.Background()

	// Sign-in always stamps a record, so a missing one means the key
	// outlived the idle window. The token alone must not get back in.
	users.users = append(users.users, &model.User{ID: 5, Email: "b@example.com"})

	assert.ErrorIs(t, m.Validate(ctx, 5), ErrSessionExpired)
	_, ok := activity.last[5]
	assert.False(t, ok)
}

// evictingActivityStore drops records older than its TTL on read, the way
// the Redis-backed store's key expiry behaves.
type evictingActivityStore struct {
	inner *memActivityStore
	ttl   time.Duration
	now   func() time.Time
}

func (s *evictingActivityStore) Touch(ctx context.Context, userID int64, at time.Time) error {
	return s.inner.Touch(ctx, userID, at)
}

func (s *evictingActivityStore) Last(ctx context.Context, userID int64) (time.Time, bool, error) {
	at, ok, err := s.inner.Last(ctx, userID)
	if ok && s.now().Sub(at) > s.ttl {
		return time.Time{}, false, nil
	}
	return at, ok, err
}

func (s *evictingActivityStore) Clear(ctx context.Context, userID int64) error {
	return s.inner.Clear(ctx, userID)
}

func TestValidateRejectsLongIdleAfterKeyEviction(t *testing.T) {
	idleLimit := 7 * 24 * time.Hour
	c := &clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	profiles := &memProfileRepo{}
	users := &memUserRepo{profiles: profiles}
	activity := &evictingActivityStore{
		inner: newMemActivityStore(),
		ttl:   idleLimit + 24*time.Hour,
		now:   c.Now,
	}
	m := NewManager(Options{
		Users:     users,
		Profiles:  profiles,
		Activity:  activity,
		JWTSecret: "test-secret",
		TokenTTL:  30 * 24 * time.Hour,
		IdleLimit: idleLimit,
		Now:       c.Now,
	})
	ctx := context.Background()

	user, _, err := m.SignUp(ctx, "alice@example.com", "secret123", "Alice")
	require.NoError(t, err)

	// Idle past the limit but before key expiry: rejected on the timestamp.
	c.now = c.now.Add(8 * 24 * time.Hour)
	assert.ErrorIs(t, m.Validate(ctx, user.ID), ErrSessionExpired)

	// Idle long enough that the key itself expired: still rejected, even
	// though the token would remain valid for 30 days.
	_, _, err = m.SignIn(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)
	c.now = c.now.Add(20 * 24 * time.Hour)
	assert.ErrorIs(t, m.Validate(ctx, user.ID), ErrSessionExpired)
}

func TestSignUpProfileFailureLeavesNoAccount(t *testing.T) {
	m, users, profiles, _, _ := newTestManager(t)
	ctx := context.Background()

	users.profileErr = errors.New("profile insert failed")
	_, _, err := m.SignUp(ctx, "alice@example.com", "secret123", "Alice")
	require.Error(t, err)
	assert.Empty(t, users.users)
	assert.Empty(t, profiles.profiles)

	// The email stays usable once the failure clears.
	users.profileErr = nil
	_, token, err := m.SignUp(ctx, "alice@example.com", "secret123", "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestSignOutClearsActivity(t *testing.T) {
	m, _, _, activity, _ := newTestManager(t)
	ctx := context.Background()

	user, _, err := m.SignUp(ctx, "alice@example.com", "secret123", "Alice")
	require.NoError(t, err)

	require.NoError(t, m.SignOut(ctx, user.ID))
	_, ok := activity.last[user.ID]
	assert.False(t, ok)
}

func TestResolvePartitionsProfiles(t *testing.T) {
	m, _, _, _, _ := newTestManager(t)
	ctx := context.Background()

	aliceUser, _, err := m.SignUp(ctx, "alice@example.com", "secret123", "Alice")
	require.NoError(t, err)
	bobUser, _, err := m.SignUp(ctx, "bob@example.com", "secret456", "Bob")
	require.NoError(t, err)

	identity, err := m.Resolve(ctx, aliceUser.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", identity.Profile.DisplayName)
	require.NotNil(t, identity.Partner)
	assert.Equal(t, "Bob", identity.Partner.DisplayName)

	identity, err = m.Resolve(ctx, bobUser.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", identity.Profile.DisplayName)
	assert.Equal(t, "Alice", identity.Partner.DisplayName)
}

func TestResolveSoloHasNoPartner(t *testing.T) {
	m, _, _, _, _ := newTestManager(t)
	ctx := context.Background()

	user, _, err := m.SignUp(ctx, "alice@example.com", "secret123", "Alice")
	require.NoError(t, err)

	identity, err := m.Resolve(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", identity.Profile.DisplayName)
	assert.Nil(t, identity.Partner)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	m, _, _, _, _ := newTestManager(t)

	_, err := m.ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	m, _, _, _, _ := newTestManager(t)
	ctx := context.Background()

	_, token, err := m.SignUp(ctx, "alice@example.com", "secret123", "Alice")
	require.NoError(t, err)

	other := NewManager(Options{
		Users:     &memUserRepo{},
		Profiles:  &memProfileRepo{},
		Activity:  newMemActivityStore(),
		JWTSecret: "different-secret",
	})
	_, err = other.ParseToken(token)
	assert.Error(t, err)
}
