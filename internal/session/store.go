// Package session owns the authenticated user's identity and bearer token.
//
// A Store is created once per process, bootstrapped from its Jar before
// anything renders, and handed to the task gateway as an oauth2.TokenSource.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"taskdash/internal/service"
	"taskdash/internal/validate"
)

const (
	// TokenEntry is the jar entry holding the bearer token.
	TokenEntry = "token"

	// UserEntry is the jar entry holding the serialized user record.
	UserEntry = "user"

	// DefaultTTL is how long a persisted session lives.
	DefaultTTL = 7 * 24 * time.Hour
)

// Destinations of navigation events.
const (
	DashboardPath = "/dashboard"
	LoginPath     = "/login"
)

// EventKind identifies what changed the session.
type EventKind string

const (
	EventLogin    EventKind = "login"
	EventRegister EventKind = "register"
	EventLogout   EventKind = "logout"
)

// Event asks the surrounding application to navigate.
type Event struct {
	Kind EventKind
	To   string
}

// Store is the session store.
type Store struct {
	mu        sync.RWMutex
	jar       Jar
	auth      service.Authenticator
	ttl       time.Duration
	now       func() time.Time
	log       *slog.Logger
	user      *service.User
	token     string
	listeners []func(Event)
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the lifetime of persisted entries.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithClock overrides time.Now (for testing).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an inactive Store. Call Bootstrap before use.
func New(jar Jar, auth service.Authenticator, opts ...Option) *Store {
	s := &Store{
		jar:  jar,
		auth: auth,
		ttl:  DefaultTTL,
		now:  time.Now,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnNavigate registers a listener for navigation events.
func (s *Store) OnNavigate(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Bootstrap restores the persisted session. If the token and user entries are
// not both present and consistent, both are removed and the session stays
// inactive. Bootstrap only fails if the jar itself cannot be read or cleared.
func (s *Store) Bootstrap() error {
	token, user, err := s.restore()
	if err == nil {
		s.mu.Lock()
		s.token, s.user = token, &user
		s.mu.Unlock()
		s.log.Debug("session restored", "user_id", user.ID)
		return nil
	}
	if !errors.Is(err, service.ErrInconsistentSession) {
		return err
	}

	s.log.Debug("discarding persisted session", "reason", err)
	s.mu.Lock()
	s.token, s.user = "", nil
	s.mu.Unlock()
	return s.clear()
}

func (s *Store) restore() (string, service.User, error) {
	token, hasToken, err := s.jar.Get(TokenEntry)
	if err != nil {
		return "", service.User{}, err
	}
	raw, hasUser, err := s.jar.Get(UserEntry)
	if err != nil {
		return "", service.User{}, err
	}

	switch {
	case !hasToken && !hasUser:
		return "", service.User{}, fmt.Errorf("%w: no session", service.ErrInconsistentSession)
	case !hasToken:
		return "", service.User{}, fmt.Errorf("%w: user without token", service.ErrInconsistentSession)
	case !hasUser:
		return "", service.User{}, fmt.Errorf("%w: token without user", service.ErrInconsistentSession)
	}

	var user service.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == "" {
		return "", service.User{}, fmt.Errorf("%w: malformed user record", service.ErrInconsistentSession)
	}
	if err := checkToken(token, user, s.now()); err != nil {
		return "", service.User{}, err
	}
	return token, user, nil
}

// Login authenticates with email and password.
// Any failure is returned as a *service.AuthError and leaves the session unchanged.
func (s *Store) Login(ctx context.Context, email, password string) error {
	if err := validate.Login(validate.LoginForm{Email: email, Password: password}); err != nil {
		return err
	}
	res, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.log.Debug("login failed", "error", err)
		return &service.AuthError{Err: err}
	}
	return s.establish(res, EventLogin)
}

// Register creates an account and logs into it.
// Any failure is returned as a *service.AuthError and leaves the session unchanged.
func (s *Store) Register(ctx context.Context, name, email, password string) error {
	if err := validate.Register(validate.RegisterForm{Name: name, Email: email, Password: password}); err != nil {
		return err
	}
	res, err := s.auth.Register(ctx, name, email, password)
	if err != nil {
		s.log.Debug("registration failed", "error", err)
		return &service.AuthError{Err: err}
	}
	return s.establish(res, EventRegister)
}

func (s *Store) establish(res service.AuthResult, kind EventKind) error {
	if res.Token == "" || res.User.ID == "" {
		return &service.AuthError{Err: errors.New("incomplete auth response")}
	}

	data, err := json.Marshal(res.User)
	if err != nil {
		return err
	}
	if err := s.jar.Set(TokenEntry, res.Token, s.ttl); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := s.jar.Set(UserEntry, string(data), s.ttl); err != nil {
		_ = s.jar.Remove(TokenEntry)
		return fmt.Errorf("failed to save user: %w", err)
	}

	user := res.User
	s.mu.Lock()
	s.token, s.user = res.Token, &user
	s.mu.Unlock()

	s.log.Info("session started", "user_id", user.ID, "via", string(kind))
	s.emit(Event{Kind: kind, To: DashboardPath})
	return nil
}

// Logout clears the persisted and in-memory session.
// Calling it without an active session is a no-op apart from the event.
func (s *Store) Logout() error {
	s.mu.Lock()
	s.token, s.user = "", nil
	s.mu.Unlock()

	if err := s.clear(); err != nil {
		return err
	}
	s.emit(Event{Kind: EventLogout, To: LoginPath})
	return nil
}

func (s *Store) clear() error {
	return errors.Join(s.jar.Remove(TokenEntry), s.jar.Remove(UserEntry))
}

// IsAuthenticated reports whether a token and user are both held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

// User returns the current user.
func (s *Store) User() (service.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return service.User{}, false
	}
	return *s.user, true
}

// Token implements oauth2.TokenSource.
// It is read on every request, so a logged-out token is never sent again.
func (s *Store) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.user == nil {
		return nil, service.ErrNotAuthenticated
	}
	return &oauth2.Token{AccessToken: s.token, TokenType: "Bearer"}, nil
}

func (s *Store) emit(ev Event) {
	s.mu.RLock()
	listeners := make([]func(Event), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
