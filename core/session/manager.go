package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"duetfm/core/auth"
	"duetfm/logger"
	"duetfm/model"
	"duetfm/repository"
)

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionExpired is returned when the idle-timeout policy rejects a
	// technically valid token.
	ErrSessionExpired = errors.New("session expired due to inactivity")
)

// ActivityStore persists the per-user last-activity timestamp.
type ActivityStore interface {
	Touch(ctx context.Context, userID int64, at time.Time) error
	Last(ctx context.Context, userID int64) (time.Time, bool, error)
	Clear(ctx context.Context, userID int64) error
}

// Identity is the resolved two-person pairing for an authenticated user.
// Partner is nil while the other half has not signed up yet.
type Identity struct {
	User    *model.User
	Profile *model.Profile
	Partner *model.Profile
}

// Manager owns sign-up/sign-in, identity resolution and the idle-timeout
// policy. Constructed once at startup and injected into its consumers.
type Manager struct {
	users     repository.UserRepository
	profiles  repository.ProfileRepository
	activity  ActivityStore
	secret    string
	tokenTTL  time.Duration
	idleLimit time.Duration
	now       func() time.Time
}

// Options configures a Manager.
type Options struct {
	Users     repository.UserRepository
	Profiles  repository.ProfileRepository
	Activity  ActivityStore
	JWTSecret string
	TokenTTL  time.Duration
	IdleLimit time.Duration
	Now       func() time.Time
}

// NewManager creates a session manager.
func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		users:     opts.Users,
		profiles:  opts.Profiles,
		activity:  opts.Activity,
		secret:    opts.JWTSecret,
		tokenTTL:  opts.TokenTTL,
		idleLimit: opts.IdleLimit,
		now:       opts.Now,
	}
}

// SignUp registers an account with its profile and returns a session token.
// Account and profile are inserted in one transaction.
func (m *Manager) SignUp(ctx context.Context, email, password, displayName string) (*model.User, string, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	user := &model.User{Email: email, PasswordHash: hash}
	profile := &model.Profile{DisplayName: displayName}
	if err := m.users.CreateUserWithProfile(ctx, user, profile); err != nil {
		return nil, "", err
	}

	token, err := m.issue(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// SignIn checks credentials and returns a session token.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := m.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := m.issue(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// SignOut clears the activity timestamp. The token itself simply stops being
// honored on the client side.
func (m *Manager) SignOut(ctx context.Context, userID int64) error {
	return m.activity.Clear(ctx, userID)
}

// Validate enforces the idle-timeout policy for an authenticated request.
// A session whose last recorded activity is older than the idle limit is
// rejected and its activity state cleared; otherwise the timestamp is
// refreshed, since the request itself is an interaction. Every sign-in
// stamps an activity record, so a missing record means the key outlived the
// idle window and is rejected too.
func (m *Manager) Validate(ctx context.Context, userID int64) error {
	last, ok, err := m.activity.Last(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionExpired
	}
	if m.now().Sub(last) > m.idleLimit {
		if err := m.activity.Clear(ctx, userID); err != nil {
			logger.Warn("failed to clear expired activity", logger.Int64("userId", userID), logger.ErrorField(err))
		}
		return ErrSessionExpired
	}
	return m.activity.Touch(ctx, userID, m.now())
}

// Resolve partitions the profile collection into the caller's profile and
// the partner (the first other row, nil when alone). More than two profiles
// is a configuration error; the extra rows are ignored with a warning.
func (m *Manager) Resolve(ctx context.Context, userID int64) (*Identity, error) {
	user, err := m.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	profiles, err := m.profiles.GetAllProfiles(ctx)
	if err != nil {
		return nil, err
	}
	if len(profiles) > 2 {
		logger.Warn("more than two profiles exist", logger.Int("count", len(profiles)))
	}

	identity := &Identity{User: user}
	for _, p := range profiles {
		switch {
		case p.UserID == userID:
			identity.Profile = p
		case identity.Partner == nil:
			identity.Partner = p
		}
	}
	if identity.Profile == nil {
		return nil, fmt.Errorf("no profile for user %d: %w", userID, repository.ErrNotFound)
	}
	return identity, nil
}

func (m *Manager) issue(ctx context.Context, user *model.User) (string, error) {
	token, err := auth.GenerateToken(m.secret, user.ID, user.Email, m.tokenTTL)
	if err != nil {
		return "", err
	}
	if err := m.activity.Touch(ctx, user.ID, m.now()); err != nil {
		logger.Warn("failed to stamp activity", logger.Int64("userId", user.ID), logger.ErrorField(err))
	}
	return token, nil
}

// ParseToken exposes token validation to the transport layer.
func (m *Manager) ParseToken(token string) (*auth.Claims, error) {
	return auth.ParseToken(m.secret, token)
}
