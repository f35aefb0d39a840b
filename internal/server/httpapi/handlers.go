package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/encorehq/encore/internal/common"
	"github.com/encorehq/encore/internal/server/storage"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// errBadRequest marks malformed payloads and validation failures for the
// status mapping.
var errBadRequest = errors.New("bad request")

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

type authResponse struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// handleRegister creates the account and seeds its profile row, reserving
// the username. A taken username or email answers 409 before any tokens are
// issued.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" || req.Username == "" {
		s.writeError(w, r, fmt.Errorf("%w: email, password and username are required", errBadRequest))
		return
	}

	profiles := s.collections["profiles"]
	taken, err := s.store.Select(r.Context(), profiles, storage.Query{
		Filters: map[string]any{"username": req.Username},
		Limit:   1,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(taken) > 0 {
		s.writeError(w, r, fmt.Errorf("%w: username taken", common.ErrConflict))
		return
	}

	user, pair, err := s.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	profileRow := map[string]any{"id": user.ID, "username": req.Username, "email": user.Email}
	if err := s.store.Upsert(r.Context(), profiles, profileRow, []string{"id"}); err != nil {
		// lost a username race between the check and the insert
		s.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, authResponse{
		UserID:       user.ID,
		Email:        user.Email,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, pair, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, authResponse{
		UserID:       user.ID,
		Email:        user.Email,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	pair, err := s.accounts.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}
	uid := userID(r.Context())
	if uid == "" {
		s.writeError(w, r, common.ErrUnauthenticated)
		return
	}

	var row map[string]any
	if err := decodeJSON(r, &row); err != nil {
		s.writeError(w, r, err)
		return
	}

	var conflictKeys []string
	if raw := r.URL.Query().Get("on_conflict"); raw != "" {
		conflictKeys = strings.Split(raw, ",")
	}

	if err := c.AuthorizeWrite(row, uid); err != nil {
		s.writeError(w, r, asBadRequestUnlessAuth(err))
		return
	}
	if err := s.store.Upsert(r.Context(), c, row, conflictKeys); err != nil {
		s.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, struct{}{})
}

// handleSelect reads rows. Profile lookups are allowed anonymously: the
// sign-in flow resolves usernames to emails and checks availability before
// any token exists.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}
	if c.Name != "profiles" && userID(r.Context()) == "" {
		s.writeError(w, r, common.ErrUnauthenticated)
		return
	}

	var q storage.Query
	if err := decodeJSON(r, &q); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := c.ValidateFilters(q.Filters); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	rows, err := s.store.Select(r.Context(), c, q)
	if err != nil {
		s.writeError(w, r, asBadRequestUnlessAuth(err))
		return
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	respondJSON(w, http.StatusOK, rows)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}
	uid := userID(r.Context())
	if uid == "" {
		s.writeError(w, r, common.ErrUnauthenticated)
		return
	}

	var req struct {
		Filters map[string]any `json:"filters"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := c.AuthorizeDelete(req.Filters, uid); err != nil {
		s.writeError(w, r, asBadRequestUnlessAuth(err))
		return
	}
	n, err := s.store.Delete(r.Context(), c, req.Filters)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// handleRPC runs a named read. my_saved_setlists is pinned to the caller:
// whatever user_id the body carries is replaced with the authenticated one.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	proc := chi.URLParam(r, "proc")

	params := map[string]string{}
	if err := decodeJSON(r, &params); err != nil {
		s.writeError(w, r, err)
		return
	}

	if proc == "my_saved_setlists" {
		uid := userID(r.Context())
		if uid == "" {
			s.writeError(w, r, common.ErrUnauthenticated)
			return
		}
		params["user_id"] = uid
	}

	rows, err := s.store.CallRPC(r.Context(), proc, params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	respondJSON(w, http.StatusOK, rows)
}

func (s *Server) collection(w http.ResponseWriter, r *http.Request) (storage.Collection, bool) {
	name := chi.URLParam(r, "collection")
	c, ok := s.collections[name]
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: no collection %q", common.ErrNotFound, name))
	}
	return c, ok
}

// asBadRequestUnlessAuth keeps authorization failures at 401 and turns
// everything else (unknown columns, bad order) into a 400.
func asBadRequestUnlessAuth(err error) error {
	if errors.Is(err, common.ErrUnauthenticated) || errors.Is(err, common.ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: %w", errBadRequest, err)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthenticated),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err.Error())
	}

	respondJSON(w, status, map[string]any{"code": status, "message": err.Error()})
}

func decodeJSON(r *http.Request, out any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %w", errBadRequest, err)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
