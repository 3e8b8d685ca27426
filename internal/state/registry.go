package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AbdelilahOu/DBRouter/internal/client"
	"github.com/AbdelilahOu/DBRouter/internal/logger"
	"github.com/google/uuid"
)

// DefaultTTL is how long a session may sit idle when no TTL is configured.
const DefaultTTL = 30 * time.Minute

// Builder opens a validated pool for a target.
type Builder interface {
	Build(ctx context.Context, t client.Target) (*client.DBClient, error)
}

// Policy decides whether a session outlives the unit of work that used it.
type Policy string

const (
	// PolicyReuse keeps sessions alive across calls until closed or idle past
	// their TTL.
	PolicyReuse Policy = "reuse"

	// PolicySingleUse removes a session as soon as one unit of work has run
	// against it.
	PolicySingleUse Policy = "single-use"
)

// ParsePolicy parses a policy name; empty means PolicyReuse.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(PolicyReuse):
		return PolicyReuse, nil
	case string(PolicySingleUse), "single_use", "singleuse":
		return PolicySingleUse, nil
	}
	return "", fmt.Errorf("unknown session policy %q (want %q or %q)", s, PolicyReuse, PolicySingleUse)
}

// Options configures a Registry.
type Options struct {
	TTL     time.Duration
	Policy  Policy
	Default *client.DBClient // may be nil: the default route then has no pool
}

// ConnectResult is returned by a successful Connect.
type ConnectResult struct {
	ID        string
	ExpiresAt time.Time
}

// Registry owns every dynamic session and keeps the routing table in sync with
// them. All methods are safe for concurrent use.
type Registry struct {
	builder Builder
	ttl     time.Duration
	policy  Policy
	router  *Router
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry whose routing table holds only the
// default route.
func NewRegistry(builder Builder, opts Options) *Registry {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Policy == "" {
		opts.Policy = PolicyReuse
	}
	return &Registry{
		builder:  builder,
		ttl:      opts.TTL,
		policy:   opts.Policy,
		router:   newRouter(opts.Default),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// TTL is the idle time-to-live given to new sessions.
func (r *Registry) TTL() time.Duration { return r.ttl }

// Policy is the session policy RunWithSession applies.
func (r *Registry) Policy() Policy { return r.policy }

// Router exposes the routing table.
func (r *Registry) Router() *Router { return r.router }

// Default returns the default pool, or nil if none is configured.
func (r *Registry) Default() *client.DBClient { return r.router.def }

// Connect opens a pool for t and registers it under a fresh id. A failed
// connect leaves the registry untouched.
func (r *Registry) Connect(ctx context.Context, t client.Target) (ConnectResult, error) {
	// The build may block on the network, so it runs without the lock.
	c, err := r.builder.Build(ctx, t)
	if err != nil {
		if errors.Is(err, client.ErrInvalidTarget) {
			return ConnectResult{}, badRequest("invalid datasource config", err)
		}
		return ConnectResult{}, badRequest("database connection failed", err)
	}

	now := r.now()

	r.mu.Lock()
	id := uuid.NewString()
	for r.sessions[id] != nil {
		id = uuid.NewString()
	}
	r.sessions[id] = newSession(id, c, r.ttl, now)
	r.publishLocked()
	r.mu.Unlock()

	logger.LogSessionEvent("open", id, c.Label, string(c.Kind))

	return ConnectResult{ID: id, ExpiresAt: now.Add(r.ttl)}, nil
}

// Touch marks a session as used now.
func (r *Registry) Touch(id string) error {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return notFound(id)
	}
	s.touch(r.now())
	return nil
}

// EnsureExists fails with a not-found error unless id is a live session.
func (r *Registry) EnsureExists(id string) error {
	r.mu.RLock()
	_, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return notFound(id)
	}
	return nil
}

// Remove detaches a session, republishes the routing table and closes the
// session's pool. Unknown ids, including DefaultKey, are ignored. The returned
// error only reports a failure closing the pool; the session is gone either way.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		r.publishLocked()
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return r.closeSession(s, "close")
}

// RemoveAll closes every session and returns how many there were. The default
// route is untouched.
func (r *Registry) RemoveAll() int {
	r.mu.Lock()
	removed := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		removed = append(removed, s)
	}
	r.sessions = make(map[string]*Session)
	r.publishLocked()
	r.mu.Unlock()

	for _, s := range removed {
		_ = r.closeSession(s, "close")
	}
	return len(removed)
}

// List returns a snapshot of all sessions ordered by id.
func (r *Registry) List() []SessionInfo {
	r.mu.RLock()
	infos := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, s.info())
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes every session idle longer than its TTL as of now. A failure
// closing one pool does not stop the others from being removed.
func (r *Registry) Sweep(now time.Time) ([]string, error) {
	r.mu.RLock()
	var candidates []string
	for id, s := range r.sessions {
		if s.expired(now) {
			candidates = append(candidates, id)
		}
	}
	r.mu.RUnlock()

	sort.Strings(candidates)

	var removed []string
	var errs []error
	for _, id := range candidates {
		ok, err := r.removeIfExpired(id, now)
		if ok {
			removed = append(removed, id)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	return removed, errors.Join(errs...)
}

// removeIfExpired re-checks expiry under the write lock so a session touched
// after the sweep snapshot survives.
func (r *Registry) removeIfExpired(id string, now time.Time) (bool, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok || !s.expired(now) {
		r.mu.Unlock()
		return false, nil
	}
	delete(r.sessions, id)
	r.publishLocked()
	r.mu.Unlock()

	return true, r.closeSession(s, "expire")
}

// Resolve returns the pool serving ctx: the session it carries, or the
// default pool when it carries none. A session that is no longer in the
// routing table is not found; its work never runs on the default pool.
func (r *Registry) Resolve(ctx context.Context) (*client.DBClient, error) {
	if id, ok := SessionFromContext(ctx); ok && id != DefaultKey {
		c, ok := r.router.lookup(id)
		if !ok {
			return nil, notFound(id)
		}
		return c, nil
	}
	c := r.router.ResolveContext(ctx)
	if c == nil {
		return nil, ErrNoDefaultConnection
	}
	return c, nil
}

// publishLocked rebuilds the routing table from the session set. r.mu must be
// held for writing.
func (r *Registry) publishLocked() {
	routes := make(map[string]*client.DBClient, len(r.sessions))
	for id, s := range r.sessions {
		routes[id] = s.client
	}
	r.router.publish(routes)
}

func (r *Registry) closeSession(s *Session, event string) error {
	err := s.client.Close()
	if err == nil {
		logger.LogSessionEvent(event, s.ID, s.Label, string(s.client.Kind))
	}
	return err
}
