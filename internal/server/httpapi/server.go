// Package httpapi exposes the server over HTTP: the auth endpoints and the
// generic collection verbs (upsert/select/delete) plus named RPC reads.
// Every endpoint is a JSON POST; errors render as {code,message}.
package httpapi

import (
	"context"
	"net/http"

	"github.com/encorehq/encore/internal/logging"
	"github.com/encorehq/encore/internal/server/storage"
	"github.com/encorehq/encore/internal/server/users"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// CollectionStore is the storage surface the handlers need. *storage.Store
// satisfies it; tests substitute an in-memory fake.
type CollectionStore interface {
	Upsert(ctx context.Context, c storage.Collection, row map[string]any, conflictKeys []string) error
	Select(ctx context.Context, c storage.Collection, q storage.Query) ([]map[string]any, error)
	Delete(ctx context.Context, c storage.Collection, filters map[string]any) (int64, error)
	CallRPC(ctx context.Context, proc string, params map[string]string) ([]map[string]any, error)
}

// Accounts is the slice of users.Service the auth handlers use.
type Accounts interface {
	Register(ctx context.Context, email, password string) (*users.User, *users.TokenPair, error)
	Login(ctx context.Context, email, password string) (*users.User, *users.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*users.TokenPair, error)
}

type Server struct {
	log         logging.Logger
	store       CollectionStore
	accounts    Accounts
	secretKey   []byte
	collections map[string]storage.Collection
}

func NewServer(log logging.Logger, store CollectionStore, accounts Accounts, secretKey []byte) *Server {
	return &Server{
		log:         log,
		store:       store,
		accounts:    accounts,
		secretKey:   secretKey,
		collections: storage.Registry(),
	}
}

// Handler builds the route tree.
//
// The auth endpoints are public. The db/rpc endpoints run behind the bearer
// middleware, which only rejects tokens that are present and bad; whether an
// identity is required is each handler's decision, so profile lookups
// (username availability, username to email) keep working before login.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Post("/db/{collection}/upsert", s.handleUpsert)
		r.Post("/db/{collection}/select", s.handleSelect)
		r.Post("/db/{collection}/delete", s.handleDelete)
		r.Post("/rpc/{proc}", s.handleRPC)
	})

	return r
}
