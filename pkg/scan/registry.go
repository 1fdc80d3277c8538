package scan

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry holds live sessions keyed by id for servers that receive frames
// of many scans over separate requests.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	defaults []SessionOption
	now      func() time.Time
}

// NewRegistry returns an empty registry. defaults are applied to every
// session before the per-call options.
func NewRegistry(defaults ...SessionOption) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		defaults: defaults,
		now:      time.Now,
	}
}

// Create starts a new session with a random id.
func (r *Registry) Create(opts ...SessionOption) *Session {
	all := make([]SessionOption, 0, len(r.defaults)+len(opts))
	all = append(all, r.defaults...)
	all = append(all, opts...)
	s := NewSession(uuid.NewString(), all...)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	n := len(r.sessions)
	r.mu.Unlock()
	sessionsActive.Set(float64(n))
	return s
}

// Get returns the session with id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete drops the session with id and reports whether it existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	sessionsActive.Set(float64(n))
	return ok
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than maxIdle and returns how many
// were removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	removed := 0
	for id, s := range r.sessions {
		if s.lastTouched().Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()
	sessionsActive.Set(float64(n))
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done.
func (r *Registry) StartSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(maxIdle); n > 0 {
				log.Printf("SCAN swept %d idle sessions", n)
			}
		}
	}
}
