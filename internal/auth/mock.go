package auth

import (
	"context"
	"sync"
	"time"
)

// MockStore is an in-memory Store for tests.
type MockStore struct {
	mu       sync.Mutex
	users    map[string]User
	sessions map[string]Session

	// GetSessionCalls counts store lookups, to observe cache hits.
	GetSessionCalls int
}

// NewMockStore creates an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:    make(map[string]User),
		sessions: make(map[string]Session),
	}
}

func (m *MockStore) CreateUser(_ context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return ErrUserExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *MockStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *MockStore) CreateSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
	return nil
}

func (m *MockStore) GetSession(_ context.Context, token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetSessionCalls++
	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	return &s, nil
}

func (m *MockStore) ExtendSession(_ context.Context, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return ErrInvalidToken
	}
	s.ExpiresAt = expiresAt
	m.sessions[token] = s
	return nil
}

func (m *MockStore) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[token]; !ok {
		return ErrInvalidToken
	}
	delete(m.sessions, token)
	return nil
}

func (m *MockStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for token, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

// SessionCount returns the number of stored sessions.
func (m *MockStore) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Verify MockStore implements Store at compile time.
var _ Store = (*MockStore)(nil)
