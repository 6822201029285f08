package actionstate

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type session struct {
	tracker  *Tracker
	lastSeen time.Time
}

// Registry owns one Tracker per session. Trackers are created on first use,
// share the registry's options and live until Drop, EvictIdle or Close.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	opts     []Option
	clock    clockwork.Clock
	logger   *zap.Logger
}

// NewRegistry creates a new Registry
func NewRegistry(logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append(opts, WithLogger(logger))

	// Resolve the shared clock the same way trackers do
	resolved := New(opts...)

	return &Registry{
		sessions: make(map[string]*session),
		opts:     opts,
		clock:    resolved.clock,
		logger:   logger,
	}
}

// For returns the tracker of id, creating it if needed. Every call counts as
// activity for idle eviction.
func (r *Registry) For(id string) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if s, ok := r.sessions[id]; ok {
		s.lastSeen = now
		return s.tracker
	}

	opts := make([]Option, 0, len(r.opts)+1)
	opts = append(opts, r.opts...)
	opts = append(opts, WithSession(id))
	t := New(opts...)
	r.sessions[id] = &session{tracker: t, lastSeen: now}

	r.logger.Debug("action tracker created", zap.String("session", id))
	return t
}

// Len returns the number of live trackers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Drop closes and forgets the tracker of id
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.tracker.Close()
		r.logger.Debug("action tracker dropped", zap.String("session", id))
	}
}

// EvictIdle drops every tracker unused for longer than maxIdle and returns
// how many were dropped. A non-positive maxIdle evicts nothing.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}

	r.mu.Lock()
	now := r.clock.Now()
	var idle []*Tracker
	for id, s := range r.sessions {
		if now.Sub(s.lastSeen) > maxIdle {
			idle = append(idle, s.tracker)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, t := range idle {
		t.Close()
	}
	return len(idle)
}

// Close stops the timers of every tracker
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.tracker.Close()
	}
}
