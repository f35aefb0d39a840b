package remote

import "context"

// TokenPair is the access/refresh token pair issued by the identity
// endpoints.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResult is a successful register/login response.
type AuthResult struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	TokenPair
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register creates an account. The server enforces username uniqueness; a
// taken name surfaces as common.ErrConflict.
func (g *Gateway) Register(ctx context.Context, email, password, username string) (*AuthResult, error) {
	var out AuthResult
	req := registerRequest{Email: email, Password: password, Username: username}
	if err := g.hc.DoJSON(ctx, g.newRequest("/auth/register", nil, req), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates by email.
func (g *Gateway) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	req := loginRequest{Email: email, Password: password}
	if err := g.hc.DoJSON(ctx, g.newRequest("/auth/login", nil, req), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a fresh pair.
func (g *Gateway) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var out TokenPair
	if err := g.hc.DoJSON(ctx, g.newRequest("/auth/refresh", nil, refreshRequest{RefreshToken: refreshToken}), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
