// Package auth implements email/password accounts and sliding sessions.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8

	defaultSessionTTL = 7 * 24 * time.Hour
	defaultCacheTTL   = 5 * time.Minute
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is an authenticated browser session.
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store persists users and sessions.
type Store interface {
	CreateUser(ctx context.Context, user User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (*Session, error)
	ExtendSession(ctx context.Context, token string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Options configures a Manager.
type Options struct {
	SessionTTL time.Duration
	CacheTTL   time.Duration
}

// Manager handles sign up, login and session validation.
type Manager struct {
	store      Store
	sessionTTL time.Duration
	cache      *SessionCache
}

// NewManager creates a new authentication manager.
func NewManager(store Store, opts Options) *Manager {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	return &Manager{
		store:      store,
		sessionTTL: opts.SessionTTL,
		cache:      NewSessionCache(opts.CacheTTL),
	}
}

// Close stops the session cache.
func (m *Manager) Close() {
	m.cache.Close()
}

// SessionTTL returns the lifetime granted to new and refreshed sessions.
func (m *Manager) SessionTTL() time.Duration {
	return m.sessionTTL
}

// NormalizeEmail lower-cases and validates an email address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken returns a random 256-bit hex token.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SignUp registers a new account and opens a session for it.
func (m *Manager) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	if _, err := m.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := m.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return m.openSession(ctx, &user)
}

// Login authenticates a user and creates a session.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := m.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return m.openSession(ctx, user)
}

func (m *Manager) openSession(ctx context.Context, user *User) (*Session, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	session := Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(m.sessionTTL),
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	m.cache.Set(&session)
	return &session, nil
}

// Validate returns the session for token if it exists and has not expired.
func (m *Manager) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	if s, ok := m.cache.Get(token); ok {
		return s, nil
	}

	s, err := m.store.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if time.Now().After(s.ExpiresAt) {
		_ = m.store.DeleteSession(ctx, token)
		m.cache.Delete(token)
		return nil, ErrTokenExpired
	}
	m.cache.Set(s)
	return s, nil
}

// Refresh validates token and slides its expiry forward once less than half
// of the session lifetime remains. The returned session carries the
// possibly updated expiry.
func (m *Manager) Refresh(ctx context.Context, token string) (*Session, error) {
	s, err := m.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if s.ExpiresAt.Sub(now) > m.sessionTTL/2 {
		return s, nil
	}

	refreshed := *s
	refreshed.ExpiresAt = now.Add(m.sessionTTL)
	if err := m.store.ExtendSession(ctx, token, refreshed.ExpiresAt); err != nil {
		return nil, err
	}
	m.cache.Set(&refreshed)
	return &refreshed, nil
}

// Logout ends a session. Unknown tokens are not an error.
func (m *Manager) Logout(ctx context.Context, token string) error {
	m.cache.Delete(token)
	if err := m.store.DeleteSession(ctx, token); err != nil && !errors.Is(err, ErrInvalidToken) {
		return err
	}
	return nil
}

// PurgeExpired removes expired sessions from the store.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpiredSessions(ctx, time.Now())
}
