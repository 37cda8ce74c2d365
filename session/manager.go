// Package session owns the signed-in identity: it logs in and out against the
// API, mirrors the token and profile into durable storage, and restores them
// on startup.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"library-client/api"
	"library-client/library"
	"library-client/store"
)

// ErrNoExpiry is returned when a token carries no exp claim.
var ErrNoExpiry = errors.New("token has no exp claim")

// Storage is the durable key/value store the session is mirrored into.
type Storage interface {
	GetItem(key string) (string, bool, error)
	SetItems(items map[string]string) error
	RemoveItems(keys ...string) error
}

// Authenticator performs the login and register calls.
type Authenticator interface {
	Login(ctx context.Context, creds library.Credentials) (*library.AuthResponse, error)
	Register(ctx context.Context, reg library.Registration) (*library.AuthResponse, error)
}

// Session is a token together with the profile it was issued for.
type Session struct {
	Token string
	User  library.Profile
}

// Result is the outcome of Login and Register. Failures never surface as Go
// errors so callers only have to render Error.
type Result struct {
	Success bool
	Error   string
}

// Manager is the single source of truth for who is signed in. It is passed
// explicitly to everything that needs it.
type Manager struct {
	store Storage
	auth  Authenticator
	log   *zap.Logger
	now   func() time.Time

	revalidate bool

	mu      sync.RWMutex
	current *Session
}

// Option customises a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRevalidateExpiry makes Token check the exp claim on every call and log
// out once it has passed. Without it expiry is only checked by Restore.
func WithRevalidateExpiry(on bool) Option {
	return func(m *Manager) { m.revalidate = on }
}

// NewManager returns a signed-out manager; call Restore to pick up a
// persisted session.
func NewManager(st Storage, auth Authenticator, opts ...Option) *Manager {
	m := &Manager{
		store: st,
		auth:  auth,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login authenticates and, on success, persists the session.
func (m *Manager) Login(ctx context.Context, creds library.Credentials) Result {
	resp, err := m.auth.Login(ctx, creds)
	if err != nil {
		return m.failure("login", "Login failed", err)
	}
	return m.establish("login", "Login failed", resp)
}

// Register creates an account and signs straight in.
func (m *Manager) Register(ctx context.Context, reg library.Registration) Result {
	resp, err := m.auth.Register(ctx, reg)
	if err != nil {
		return m.failure("register", "Registration failed", err)
	}
	return m.establish("register", "Registration failed", resp)
}

// Logout forgets the session in memory and in storage. It is safe to call
// when nobody is signed in.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if err := m.store.RemoveItems(store.KeyToken, store.KeyUser); err != nil {
		m.log.Warn("clear persisted session", zap.Error(err))
	}
}

// Restore loads a persisted session if its token is unexpired. Anything
// else (no exp, expired, undecodable token or profile) is an implicit logout.
// It reports whether a session is now active.
func (m *Manager) Restore(ctx context.Context) bool {
	token, ok, err := m.store.GetItem(store.KeyToken)
	if err != nil {
		m.log.Warn("read persisted token", zap.Error(err))
		m.Logout()
		return false
	}
	if !ok || token == "" {
		// Keeps token and user paired: a stray profile goes too.
		m.Logout()
		return false
	}

	exp, err := TokenExpiry(token)
	if err != nil {
		m.log.Info("discarding undecodable token", zap.Error(err))
		m.Logout()
		return false
	}
	if !exp.After(m.now()) {
		m.log.Info("persisted session expired", zap.Time("exp", exp))
		m.Logout()
		return false
	}

	raw, ok, err := m.store.GetItem(store.KeyUser)
	if err != nil || !ok {
		m.log.Info("persisted token has no profile", zap.Error(err))
		m.Logout()
		return false
	}
	var profile library.Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		m.log.Info("discarding malformed profile", zap.Error(err))
		m.Logout()
		return false
	}
	profile.Raw = json.RawMessage(raw)

	m.mu.Lock()
	m.current = &Session{Token: token, User: profile}
	m.mu.Unlock()

	m.log.Debug("session restored", zap.String("username", profile.Username), zap.String("role", string(profile.Role)))
	return true
}

// Token implements api.TokenSource. It reads the persisted token on every
// call so the header tracks storage, not memory.
func (m *Manager) Token(ctx context.Context) (string, bool) {
	token, ok, err := m.store.GetItem(store.KeyToken)
	if err != nil {
		m.log.Warn("read persisted token", zap.Error(err))
		return "", false
	}
	if !ok || token == "" {
		return "", false
	}
	if m.revalidate {
		exp, err := TokenExpiry(token)
		if err != nil || !exp.After(m.now()) {
			m.log.Info("session expired mid-use")
			m.Logout()
			return "", false
		}
	}
	return token, true
}

// Current returns a copy of the active session.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// IsAuthenticated reports whether a session is active.
func (m *Manager) IsAuthenticated() bool {
	_, ok := m.Current()
	return ok
}

// Role is the active user's role, or "" when signed out.
func (m *Manager) Role() library.Role {
	s, ok := m.Current()
	if !ok {
		return ""
	}
	return s.User.Role
}

// Capability flags, derived from the role on every call.

func (m *Manager) IsAdmin() bool      { return m.Role().IsAdmin() }
func (m *Manager) IsSuperAdmin() bool { return m.Role().IsSuperAdmin() }
func (m *Manager) IsLibrarian() bool  { return m.Role().IsLibrarian() }

func (m *Manager) establish(op, generic string, resp *library.AuthResponse) Result {
	if resp == nil || resp.Token == "" {
		m.log.Warn(op+" response has no token")
		return Result{Error: generic}
	}
	raw := resp.Raw
	if len(raw) == 0 {
		var err error
		if raw, err = json.Marshal(resp); err != nil {
			return m.failure(op, generic, err)
		}
	}

	if err := m.store.SetItems(map[string]string{
		store.KeyToken: resp.Token,
		store.KeyUser:  string(raw),
	}); err != nil {
		return m.failure(op, generic, err)
	}

	profile := resp.Profile
	profile.Raw = raw

	m.mu.Lock()
	m.current = &Session{Token: resp.Token, User: profile}
	m.mu.Unlock()

	m.log.Info(op+" succeeded", zap.String("username", profile.Username), zap.String("role", string(profile.Role)))
	return Result{Success: true}
}

// failure keeps status details out of the message: any HTTP rejection reads
// as generic, other failures keep their own text.
func (m *Manager) failure(op, generic string, err error) Result {
	m.log.Warn(op+" failed", zap.Error(err))
	if api.IsStatus(err) {
		return Result{Error: generic}
	}
	return Result{Error: err.Error()}
}

// TokenExpiry reads the exp claim from the payload segment of a JWT-shaped
// token. The header and signature are never looked at.
func TokenExpiry(token string) (time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("token has %d segment(s), want a payload", len(parts))
	}
	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("decode token payload: %w", err)
	}
	var claims jwt.RegisteredClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, fmt.Errorf("decode token claims: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}
