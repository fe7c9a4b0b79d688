package session

import (
	"context"
	"sync"

	"github.com/R3E-Network/rentals/internal/database"
	"github.com/R3E-Network/rentals/internal/domain"
	"github.com/R3E-Network/rentals/internal/logging"
	"github.com/R3E-Network/rentals/supabase/client"
)

// Watcher keeps the role of the current identity in step with the session.
// Each session change triggers a fresh resolution; results of superseded or
// post-teardown resolutions are dropped.
type Watcher struct {
	resolver *RoleResolver
	logger   *logging.Logger
	unsub    func()

	mu       sync.RWMutex
	identity string
	role     domain.Role
	gen      uint64
	closed   bool
	onRole   []func(identity string, role domain.Role)
}

// NewWatcher subscribes to mgr and resolves the role of the current session
// right away.
func NewWatcher(ctx context.Context, mgr *Manager, resolver *RoleResolver, logger *logging.Logger) *Watcher {
	w := &Watcher{resolver: resolver, logger: logger}
	w.unsub = mgr.OnChange(func(c Change) {
		w.apply(ctx, c.Session)
	})
	w.apply(ctx, mgr.Current())
	return w
}

// OnResolve registers fn to be called after every role resolution.
func (w *Watcher) OnResolve(fn func(identity string, role domain.Role)) {
	w.mu.Lock()
	w.onRole = append(w.onRole, fn)
	w.mu.Unlock()
}

// Identity returns the signed-in identity, or "" when signed out.
func (w *Watcher) Identity() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.identity
}

// Role returns the last resolved role.
func (w *Watcher) Role() domain.Role {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.role
}

// View returns the dashboard for the current role.
func (w *Watcher) View() View {
	return Gate(w.Role())
}

// Close unsubscribes from session changes.
func (w *Watcher) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.unsub()
}

func (w *Watcher) apply(ctx context.Context, s *client.Session) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.gen++
	gen := w.gen
	identity := ""
	if s != nil && s.User != nil {
		identity = s.User.ID
	}
	w.identity = identity
	w.role = domain.RoleUnknown
	w.mu.Unlock()

	if identity == "" {
		w.publish(gen, identity, domain.RoleUnknown)
		return
	}

	role, err := w.resolver.Resolve(database.WithAccessToken(ctx, s.AccessToken), identity)
	if err != nil {
		w.logger.WithContext(ctx).WithError(err).WithField("user_id", identity).Warn("role resolution failed")
		role = domain.RoleUnknown
	}
	w.publish(gen, identity, role)
}

func (w *Watcher) publish(gen uint64, identity string, role domain.Role) {
	w.mu.Lock()
	if w.closed || gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.role = role
	callbacks := append([]func(string, domain.Role){}, w.onRole...)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(identity, role)
	}
}
