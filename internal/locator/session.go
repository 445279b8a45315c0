package locator

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/observability"
)

// State is the lifecycle position of a Session.
type State string

const (
	StateIdle     State = "idle"
	StatePending  State = "pending"
	StateResolved State = "resolved"
)

// Session accumulates the asset names one request needs.
//
//	Idle -(EnqueueAsset)-> Pending -(ResolveEnqueuedAssets)-> Resolved
//
// Enqueueing after resolution returns the session to Pending.
type Session struct {
	id      string
	manager *Manager

	mu       sync.Mutex
	state    State
	pending  []string
	queued   map[string]struct{}
	resolved map[string]string
}

// NewSession starts an idle session.
func (m *Manager) NewSession() *Session {
	return &Session{
		id:      uuid.NewString(),
		manager: m,
		state:   StateIdle,
		queued:  make(map[string]struct{}),
	}
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// EnqueueAsset adds names in first-seen order. Names already queued are
// ignored.
func (s *Session) EnqueueAsset(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := false
	for _, name := range names {
		if _, ok := s.queued[name]; ok {
			continue
		}
		s.queued[name] = struct{}{}
		s.pending = append(s.pending, name)
		added = true
	}
	if added {
		s.state = StatePending
	}
}

// GetEnqueuedAssets returns the queued names in order.
func (s *Session) GetEnqueuedAssets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pending)
}

// ResolveEnqueuedAssets resolves every queued name to HTML. cached=false
// bypasses the stored HTML. Unknown or failing names are omitted.
func (s *Session) ResolveEnqueuedAssets(ctx context.Context, cached bool) map[string]string {
	names := s.GetEnqueuedAssets()
	ctx = observability.WithSessionID(ctx, s.id)
	out := s.manager.Resolve(ctx, names, cached)

	s.mu.Lock()
	s.resolved = out
	s.state = StateResolved
	s.mu.Unlock()

	observability.Debug(ctx, s.manager.logger, "Resolved enqueued assets",
		logfields.Count(len(out)))
	return out
}

// GetResolvedAssets returns the result of the last resolution.
func (s *Session) GetResolvedAssets() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.resolved))
	for k, v := range s.resolved {
		out[k] = v
	}
	return out
}
