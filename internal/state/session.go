package state

import (
	"sync/atomic"
	"time"

	"github.com/AbdelilahOu/DBRouter/internal/client"
)

// Session is one dynamically opened connection pool, owned by the registry.
type Session struct {
	ID        string
	Label     string
	CreatedAt time.Time
	TTL       time.Duration

	client     *client.DBClient
	lastAccess atomic.Int64 // unix nanos
}

func newSession(id string, c *client.DBClient, ttl time.Duration, now time.Time) *Session {
	s := &Session{
		ID:        id,
		Label:     c.Label,
		CreatedAt: now,
		TTL:       ttl,
		client:    c,
	}
	s.lastAccess.Store(now.UnixNano())
	return s
}

// LastAccess is the last time the session was touched.
func (s *Session) LastAccess() time.Time {
	return time.Unix(0, s.lastAccess.Load())
}

// touch moves lastAccess forward to now; it never moves backwards.
func (s *Session) touch(now time.Time) {
	n := now.UnixNano()
	for {
		cur := s.lastAccess.Load()
		if n <= cur || s.lastAccess.CompareAndSwap(cur, n) {
			return
		}
	}
}

func (s *Session) idleFor(now time.Time) time.Duration {
	return now.Sub(s.LastAccess())
}

func (s *Session) expired(now time.Time) bool {
	return s.idleFor(now) > s.TTL
}

// SessionInfo is a point-in-time view of a session for listing.
type SessionInfo struct {
	ID           string
	Label        string
	Kind         client.Kind
	CreatedAt    time.Time
	LastAccessAt time.Time
	ExpiresAt    time.Time
}

func (s *Session) info() SessionInfo {
	last := s.LastAccess()
	return SessionInfo{
		ID:           s.ID,
		Label:        s.Label,
		Kind:         s.client.Kind,
		CreatedAt:    s.CreatedAt,
		LastAccessAt: last,
		ExpiresAt:    last.Add(s.TTL),
	}
}
