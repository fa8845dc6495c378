// Package session holds the staff login state: the bearer token kept in the
// client's storage and the admin profile it resolves to.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"detailing-booking/internal/backend"
	"detailing-booking/internal/model"
	"detailing-booking/internal/query"
)

// TokenKey is the fixed client-storage key of the admin token.
const TokenKey = "detailing_admin_token"

const (
	LoginPath     = "/admin"
	DashboardPath = "/admin/dashboard"
)

var (
	ErrMisconfigured = errors.New("session: backend and token store are required")
	ErrTokenExpired  = errors.New("session: token expired")
)

// TokenStore is the client-side persistent storage of the token.
type TokenStore interface {
	Get() (string, bool)
	Set(token string)
	Delete()
}

// Backend is the slice of the backend client a Session needs.
type Backend interface {
	Login(ctx context.Context, creds model.Credentials) (string, error)
	Me(ctx context.Context, token string) (*model.Admin, error)
}

// State is the resolution state of a session.
type State int

const (
	Anonymous State = iota
	Loading
	Authenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	}
	return "anonymous"
}

// Session is created once per client and passed to whatever needs it.
type Session struct {
	mu       sync.Mutex
	backend  Backend
	tokens   TokenStore
	profiles *query.Cache
	logger   *zap.Logger
	now      func() time.Time

	state State
	admin *model.Admin
}

// Option configures a Session.
type Option func(*Session)

// WithProfileCache shares resolved profiles across sessions holding the same token.
func WithProfileCache(c *query.Cache) Option {
	return func(s *Session) { s.profiles = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New builds a session. Both b and tokens are required.
func New(b Backend, tokens TokenStore, opts ...Option) (*Session, error) {
	if b == nil || tokens == nil {
		return nil, ErrMisconfigured
	}
	s := &Session{
		backend: b,
		tokens:  tokens,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Admin returns the resolved profile, or nil.
func (s *Session) Admin() *model.Admin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admin
}

// Token returns the stored token, if any.
func (s *Session) Token() (string, bool) {
	return s.tokens.Get()
}

// LoginResult tells the caller where to go next or what to show.
type LoginResult struct {
	Redirect string `json:"redirect,omitempty"`
	Message  string `json:"message,omitempty"`
}

// LogIn exchanges credentials for a token and stores it.
func (s *Session) LogIn(ctx context.Context, creds model.Credentials) LoginResult {
	token, err := s.backend.Login(ctx, creds)
	if err != nil {
		s.logger.Warn("admin login failed", zap.String("account", creds.ID), zap.Error(err))
		if errors.Is(err, backend.ErrUnavailable) {
			return LoginResult{Message: "Unable to reach the server, please try again."}
		}
		return LoginResult{Message: backend.Message(err, "Incorrect account or password.")}
	}
	if token == "" {
		return LoginResult{Message: "Incorrect account or password."}
	}

	s.mu.Lock()
	s.tokens.Set(token)
	s.admin = nil
	s.state = Anonymous
	s.mu.Unlock()
	return LoginResult{Redirect: DashboardPath}
}

// LogOut forgets the token and profile and returns the login route.
func (s *Session) LogOut() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token, ok := s.tokens.Get(); ok && s.profiles != nil {
		s.profiles.Invalidate(profileKey(token))
	}
	s.tokens.Delete()
	s.admin = nil
	s.state = Anonymous
	return LoginPath
}

// Refresh resolves the profile when a token is stored and none is cached.
// A rejected or expired token is cleared; a transport failure keeps the token
// so the next request can try again, but this request stays anonymous.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	token, ok := s.tokens.Get()
	if !ok || token == "" {
		s.admin = nil
		s.state = Anonymous
		s.mu.Unlock()
		return nil
	}
	if s.admin != nil {
		s.state = Authenticated
		s.mu.Unlock()
		return nil
	}
	if tokenExpired(token, s.now()) {
		s.tokens.Delete()
		s.state = Anonymous
		s.mu.Unlock()
		return ErrTokenExpired
	}
	s.state = Loading
	s.mu.Unlock()

	admin, err := s.fetchProfile(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.admin = nil
		s.state = Anonymous
		if !errors.Is(err, backend.ErrUnavailable) {
			s.tokens.Delete()
		}
		s.logger.Info("admin profile refresh failed", zap.Error(err))
		return err
	}
	s.admin = admin
	s.state = Authenticated
	return nil
}

func (s *Session) fetchProfile(ctx context.Context, token string) (*model.Admin, error) {
	if s.profiles == nil {
		return s.backend.Me(ctx, token)
	}
	return query.Get(ctx, s.profiles, profileKey(token), func(ctx context.Context) (*model.Admin, error) {
		return s.backend.Me(ctx, token)
	})
}

// ForgetProfile drops the cached profile so the next Refresh refetches it,
// e.g. after the admin edited their account.
func (s *Session) ForgetProfile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token, ok := s.tokens.Get(); ok && s.profiles != nil {
		s.profiles.Invalidate(profileKey(token))
	}
	s.admin = nil
}

func profileKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return query.Key("admin_me", hex.EncodeToString(sum[:]))
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are left to the backend to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
