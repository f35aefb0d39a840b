package identity

import (
	"context"
	"sync"
)

// Event classifies an identity transition.
type Event int

const (
	EventSignedIn Event = iota
	EventSignedOut
)

// Change is delivered to subscribers on every identity transition.
type Change struct {
	Event Event
	Owner Owner
}

// Session holds the current owner and token pair, and hands out a context
// per identity epoch. Signing out (or switching users) cancels the previous
// epoch's context, so in-flight work keyed to the outgoing identity is
// aborted rather than writing into the wrong owner scope.
type Session struct {
	mu           sync.Mutex
	owner        Owner
	accessToken  string
	refreshToken string
	ctx          context.Context
	cancel       context.CancelFunc
	subs         []chan Change
}

// NewSession returns a session starting out as guest.
func NewSession() *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{ctx: ctx, cancel: cancel}
}

// SignIn switches the session to the given user and rotates the epoch
// context. Subscribers are notified after the switch.
func (s *Session) SignIn(owner Owner, accessToken, refreshToken string) {
	s.mu.Lock()
	s.cancel()
	s.owner = owner
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	s.publish(Change{Event: EventSignedIn, Owner: owner})
}

// SignOut reverts to guest, cancelling the outgoing identity's context.
func (s *Session) SignOut() {
	s.mu.Lock()
	s.cancel()
	s.owner = Guest
	s.accessToken = ""
	s.refreshToken = ""
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	s.publish(Change{Event: EventSignedOut, Owner: Guest})
}

// Current returns the owner the session is scoped to right now.
func (s *Session) Current() Owner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Context returns the context of the current identity epoch. It is cancelled
// by the next SignIn or SignOut.
func (s *Session) Context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Tokens returns the current access and refresh tokens.
func (s *Session) Tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

// SetTokens replaces the token pair after a refresh, without rotating the
// identity epoch.
func (s *Session) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
}

// AccessToken returns just the access token; used as the gateway's token
// source.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// Subscribe returns a channel receiving identity changes. Delivery is
// best-effort: a subscriber that stops draining loses events rather than
// blocking the session.
func (s *Session) Subscribe() <-chan Change {
	ch := make(chan Change, 8)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Session) publish(c Change) {
	s.mu.Lock()
	subs := make([]chan Change, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- c:
		default:
		}
	}
}
