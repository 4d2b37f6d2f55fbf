package auth

import (
	"sync"
	"time"
)

// SessionCache keeps recently validated sessions in memory so that most
// requests skip the database.
type SessionCache struct {
	mu       sync.RWMutex
	sessions map[string]*cachedSession
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type cachedSession struct {
	session  Session
	cachedAt time.Time
}

// NewSessionCache creates a cache whose entries live at most ttl.
func NewSessionCache(ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	c := &SessionCache{
		sessions: make(map[string]*cachedSession),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get returns a copy of the cached session for token.
func (c *SessionCache) Get(token string) (*Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, ok := c.sessions[token]
	if !ok {
		return nil, false
	}
	now := time.Now()
	if now.After(cached.cachedAt.Add(c.ttl)) || now.After(cached.session.ExpiresAt) {
		return nil, false
	}
	s := cached.session
	return &s, true
}

// Set stores a session.
func (c *SessionCache) Set(s *Session) {
	if s == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[s.Token] = &cachedSession{session: *s, cachedAt: time.Now()}
}

// Delete removes a session.
func (c *SessionCache) Delete(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, token)
}

// Size returns the number of cached sessions.
func (c *SessionCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// Close stops the background cleanup.
func (c *SessionCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *SessionCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *SessionCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for token, cached := range c.sessions {
		if now.After(cached.cachedAt.Add(c.ttl)) || now.After(cached.session.ExpiresAt) {
			delete(c.sessions, token)
		}
	}
}
