package users

import (
	"context"
	"testing"
	"time"

	"github.com/encorehq/encore/internal/common"
	"github.com/encorehq/encore/internal/server/auth"
	"github.com/encorehq/encore/internal/server/config"
	"github.com/encorehq/encore/internal/server/refreshtokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUserRepo struct {
	byEmail map[string]*User
	nextID  int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byEmail: map[string]*User{}, nextID: 1}
}

func (r *memUserRepo) Create(_ context.Context, user *User) (*User, error) {
	if _, exists := r.byEmail[user.Email]; exists {
		return nil, common.ErrConflict
	}
	user.ID = string(rune('a' + r.nextID))
	user.CreatedAt = time.Now()
	r.nextID++
	r.byEmail[user.Email] = user
	return user, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	return user, nil
}

type memTokenRepo struct {
	tokens map[string]*refreshtokens.RefreshToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: map[string]*refreshtokens.RefreshToken{}}
}

func (r *memTokenRepo) Create(_ context.Context, userID, token string, validity time.Duration) error {
	r.tokens[token] = &refreshtokens.RefreshToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().Add(validity),
	}
	return nil
}

func (r *memTokenRepo) Find(_ context.Context, token string) (*refreshtokens.RefreshToken, error) {
	rt, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrInvalidToken
	}
	return rt, nil
}

func (r *memTokenRepo) Delete(_ context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

func newTestService() (*Service, *memUserRepo, *memTokenRepo) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	userRepo := newMemUserRepo()
	tokenRepo := newMemTokenRepo()
	return NewService(userRepo, tokenRepo, cfg), userRepo, tokenRepo
}

func TestRegister_IssuesWorkingTokens(t *testing.T) {
	svc, _, tokens := newTestService()

	user, pair, err := svc.Register(context.Background(), "ada@example.org", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	// access token round-trips through the validator
	gotID, err := auth.GetUserIDFromToken(pair.AccessToken, []byte("secretKey"))
	require.NoError(t, err)
	assert.Equal(t, user.ID, gotID)

	// refresh token is on record
	_, err = tokens.Find(context.Background(), pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.Register(context.Background(), "ada@example.org", "hunter22")
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), "ada@example.org", "other")
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService()
	registered, _, err := svc.Register(context.Background(), "ada@example.org", "hunter22")
	require.NoError(t, err)

	user, pair, err := svc.Login(context.Background(), "ada@example.org", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestLogin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	svc, _, _ := newTestService()
	_, _, err := svc.Register(context.Background(), "ada@example.org", "hunter22")
	require.NoError(t, err)

	_, _, wrongPass := svc.Login(context.Background(), "ada@example.org", "nope")
	_, _, unknown := svc.Login(context.Background(), "ghost@example.org", "nope")

	assert.ErrorIs(t, wrongPass, common.ErrUnauthenticated)
	assert.ErrorIs(t, unknown, common.ErrUnauthenticated)
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, _, tokens := newTestService()
	_, pair, err := svc.Register(context.Background(), "ada@example.org", "hunter22")
	require.NoError(t, err)

	fresh, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, fresh.RefreshToken)

	// the old token is gone: a second refresh with it must fail
	_, err = tokens.Find(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	svc, _, tokens := newTestService()
	_, pair, err := svc.Register(context.Background(), "ada@example.org", "hunter22")
	require.NoError(t, err)

	tokens.tokens[pair.RefreshToken].ExpiresAt = time.Now().Add(-time.Minute)

	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrRefreshTokenExpired)

	// expired tokens are purged on sight
	_, err = tokens.Find(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestRefresh_UnknownToken(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Refresh(context.Background(), "never-issued")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}
