package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/encorehq/encore/internal/client/identity"
	"github.com/encorehq/encore/internal/client/models"
	"github.com/encorehq/encore/internal/client/remote"
	"github.com/encorehq/encore/internal/client/repositories/metadata"
	"github.com/encorehq/encore/internal/common"
	"github.com/encorehq/encore/internal/logging"
	"github.com/google/uuid"
)

// usernameRe is the allowed handle shape: word characters only, 3-20 long.
var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// AuthAPI is the slice of the gateway the auth flows need.
type AuthAPI interface {
	Register(ctx context.Context, email, password, username string) (*remote.AuthResult, error)
	Login(ctx context.Context, email, password string) (*remote.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*remote.TokenPair, error)
	EmailForUsername(ctx context.Context, username string) (string, error)
	IsUsernameAvailable(ctx context.Context, username string) (bool, error)
	FetchProfile(ctx context.Context, owner identity.Owner) (*models.ProfileRow, error)
	UpsertProfile(ctx context.Context, row models.ProfileRow) error
}

// AuthService drives sign-in, registration, and session persistence. The
// session survives restarts through the metadata store; tokens are refreshed
// lazily when a call comes back unauthenticated.
type AuthService struct {
	log      logging.Logger
	api      AuthAPI
	session  *identity.Session
	metadata metadata.Repository
}

func NewAuthService(log logging.Logger, api AuthAPI, session *identity.Session, meta metadata.Repository) *AuthService {
	return &AuthService{log: log, api: api, session: session, metadata: meta}
}

// SignIn authenticates with either an email address or a username. A
// username is resolved to its email first; an unknown one maps to
// common.ErrNotFound without ever hitting the login endpoint.
func (s *AuthService) SignIn(ctx context.Context, identifier, password string) error {
	email := strings.TrimSpace(identifier)
	if !strings.Contains(email, "@") {
		resolved, err := s.api.EmailForUsername(ctx, email)
		if err != nil {
			return fmt.Errorf("resolving username: %w", err)
		}
		if resolved == "" {
			return fmt.Errorf("unknown username %q: %w", email, common.ErrNotFound)
		}
		email = resolved
	}

	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return s.establish(ctx, res)
}

// Register creates an account. The username is validated and checked for
// availability up front so the common failure modes surface before the
// account exists; the server still enforces uniqueness for the race.
func (s *AuthService) Register(ctx context.Context, email, password, username string) error {
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("username must be 3-20 letters, digits or underscores")
	}
	available, err := s.api.IsUsernameAvailable(ctx, username)
	if err != nil {
		return fmt.Errorf("checking username: %w", err)
	}
	if !available {
		return fmt.Errorf("username %q is taken: %w", username, common.ErrConflict)
	}

	res, err := s.api.Register(ctx, email, password, username)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	if err := s.establish(ctx, res); err != nil {
		return err
	}

	// seed the profile so username lookups work immediately
	profile := models.ProfileRow{ID: res.UserID, Username: username, Email: res.Email}
	if err := s.api.UpsertProfile(s.session.Context(), profile); err != nil {
		s.log.Warn(ctx, "profile seeding failed, will retry on next sign-in", "error", err)
	}
	if err := s.metadata.Set(ctx, metadata.KeyUsername, []byte(username)); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}
	return nil
}

// establish switches the session to the authenticated user and persists it.
func (s *AuthService) establish(ctx context.Context, res *remote.AuthResult) error {
	uid, err := uuid.Parse(res.UserID)
	if err != nil {
		return fmt.Errorf("bad user id in auth response: %w", common.ErrDecoding)
	}
	s.session.SignIn(identity.User(uid), res.AccessToken, res.RefreshToken)

	pairs := map[string]string{
		metadata.KeyUserID:       res.UserID,
		metadata.KeyEmail:        res.Email,
		metadata.KeyAccessToken:  res.AccessToken,
		metadata.KeyRefreshToken: res.RefreshToken,
	}
	for key, value := range pairs {
		if err := s.metadata.Set(ctx, key, []byte(value)); err != nil {
			return fmt.Errorf("persisting session: %w", err)
		}
	}
	return nil
}

// Restore rebuilds the session from the metadata store. Returns false when
// no persisted session exists; the client then starts as guest.
func (s *AuthService) Restore(ctx context.Context) (bool, error) {
	rawID, err := s.metadata.Get(ctx, metadata.KeyUserID)
	if err != nil {
		return false, err
	}
	if len(rawID) == 0 {
		return false, nil
	}
	uid, err := uuid.Parse(string(rawID))
	if err != nil {
		// stale garbage in the store; drop it and start as guest
		_ = s.metadata.Clear(ctx)
		return false, nil
	}

	access, _ := s.metadata.Get(ctx, metadata.KeyAccessToken)
	refresh, _ := s.metadata.Get(ctx, metadata.KeyRefreshToken)
	s.session.SignIn(identity.User(uid), string(access), string(refresh))
	return true, nil
}

// RefreshTokens rotates the token pair using the stored refresh token.
func (s *AuthService) RefreshTokens(ctx context.Context) error {
	_, refresh := s.session.Tokens()
	if refresh == "" {
		return common.ErrUnauthenticated
	}
	pair, err := s.api.Refresh(ctx, refresh)
	if err != nil {
		return fmt.Errorf("token refresh: %w", err)
	}
	s.session.SetTokens(pair.AccessToken, pair.RefreshToken)

	if err := s.metadata.Set(ctx, metadata.KeyAccessToken, []byte(pair.AccessToken)); err != nil {
		return err
	}
	return s.metadata.Set(ctx, metadata.KeyRefreshToken, []byte(pair.RefreshToken))
}

// SignOut drops the session and the persisted copy of it. Guest mirror rows
// and the signed-out user's mirror rows both stay on the device.
func (s *AuthService) SignOut(ctx context.Context) error {
	s.session.SignOut()
	if err := s.metadata.Clear(ctx); err != nil {
		return fmt.Errorf("clearing persisted session: %w", err)
	}
	return nil
}

// Profile fetches the signed-in user's profile row.
func (s *AuthService) Profile(ctx context.Context) (*models.ProfileRow, error) {
	owner := s.session.Current()
	if owner.IsGuest() {
		return nil, common.ErrUnauthenticated
	}
	return s.api.FetchProfile(ctx, owner)
}
