package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"taskdesk/internal/api"
	"taskdesk/internal/model"
)

// Session is the authenticated-user state. The zero value is "logged out".
type Session struct {
	Token string
	User  model.User
}

func (s Session) Empty() bool { return strings.TrimSpace(s.Token) == "" }

// Authenticator is the slice of the API client that Login needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
}

// Reader exposes the current snapshot.
type Reader interface {
	Snapshot() Session
}

// LoginError carries the message shown to the user and the underlying cause.
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string { return e.Message }
func (e *LoginError) Unwrap() error { return e.Err }

// Store holds the process-wide session. The snapshot is only ever replaced
// whole, so readers never observe a half-updated session.
type Store struct {
	persist Persister
	log     *slog.Logger

	mu      sync.RWMutex
	cur     Session
	subs    map[int]func(Session)
	nextSub int
}

// Open primes the in-memory session from persisted state without contacting
// the server.
func Open(ctx context.Context, p Persister, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Store{persist: p, log: logger, subs: map[int]func(Session){}}
	rec, ok, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		s.cur = Session{Token: rec.Token, User: rec.User}
		logger.Debug("session restored", "user_id", rec.User.ID)
	}
	return s, nil
}

func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Token implements api.TokenSource.
func (s *Store) Token() string { return s.Snapshot().Token }

// Subscribe registers fn to run after every login/logout transition.
func (s *Store) Subscribe(fn func(Session)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Login authenticates and persists token + user together. On failure the
// current session is left untouched.
func (s *Store) Login(ctx context.Context, auth Authenticator, email, password string) (Session, error) {
	resp, err := auth.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		s.log.Info("login failed", "err", err)
		return s.Snapshot(), &LoginError{Message: api.MessageOr(err, "Login failed"), Err: err}
	}
	next := Session{Token: resp.AccessToken, User: resp.User}
	if err := s.persist.Save(ctx, Record{Token: next.Token, User: next.User}); err != nil {
		return s.Snapshot(), &LoginError{Message: "Login failed", Err: err}
	}
	s.replace(next)
	s.log.Info("logged in", "user_id", next.User.ID)
	return next, nil
}

// Logout clears persisted and in-memory state. Calling it again is harmless.
func (s *Store) Logout(ctx context.Context) error {
	err := s.persist.Clear(ctx)
	if s.replace(Session{}) {
		s.log.Info("logged out")
	}
	return err
}

// HandleUnauthorized is the API client's 401 hook.
func (s *Store) HandleUnauthorized() {
	if err := s.persist.Clear(context.Background()); err != nil {
		s.log.Error("clear session after 401", "err", err)
	}
	if s.replace(Session{}) {
		s.log.Warn("session cleared by server (401)")
	}
}

// replace swaps the snapshot and notifies subscribers when it changed.
func (s *Store) replace(next Session) bool {
	s.mu.Lock()
	if s.cur == next {
		s.mu.Unlock()
		return false
	}
	s.cur = next
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Session), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
	return true
}

// ErrNotLoggedIn is returned by guarded operations without a session.
var ErrNotLoggedIn = errors.New("not logged in")

// Guard returns view when a session is active, otherwise fallback().
func Guard[V any](r Reader, view V, fallback func() V) V {
	if r.Snapshot().Empty() {
		return fallback()
	}
	return view
}

// Require is the error-returning form of Guard used by scripted commands.
func Require(r Reader) (Session, error) {
	snap := r.Snapshot()
	if snap.Empty() {
		return Session{}, ErrNotLoggedIn
	}
	return snap, nil
}
