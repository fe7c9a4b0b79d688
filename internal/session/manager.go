// Package session tracks the signed-in identity of a client and resolves the
// role that decides which dashboard it may see.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/R3E-Network/rentals/supabase/client"
)

// ErrNoSession is returned when an operation needs a signed-in identity.
var ErrNoSession = errors.New("no active session")

// refreshSkew refreshes access tokens this long before they expire.
const refreshSkew = time.Minute

// Event names a session transition.
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
	EventSignedOut      Event = "SIGNED_OUT"
)

// Change is delivered to subscribers on every transition. Session is nil after
// sign-out.
type Change struct {
	Event   Event
	Session *client.Session
}

// Authenticator is the subset of the Supabase auth client the manager needs.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*client.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*client.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Store persists the session between runs.
type Store interface {
	Load() (*client.Session, error)
	Save(s *client.Session) error
	Clear() error
}

// Manager owns the current session and notifies subscribers of changes.
type Manager struct {
	auth  Authenticator
	store Store
	now   func() time.Time

	mu      sync.RWMutex
	current *client.Session
	subs    map[int]func(Change)
	nextSub int
}

// NewManager creates a manager. store may be nil for an in-memory session.
func NewManager(auth Authenticator, store Store) *Manager {
	return &Manager{
		auth:  auth,
		store: store,
		now:   time.Now,
		subs:  make(map[int]func(Change)),
	}
}

// Current returns the session, or nil when signed out.
func (m *Manager) Current() *client.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// UserID returns the identity of the current session.
func (m *Manager) UserID() (string, error) {
	s := m.Current()
	if s == nil || s.User == nil {
		return "", ErrNoSession
	}
	return s.User.ID, nil
}

// OnChange subscribes fn to session transitions. Call the returned function to
// unsubscribe.
func (m *Manager) OnChange(fn func(Change)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Restore loads a persisted session, refreshing it when the access token has
// expired. A session that can no longer be refreshed is discarded.
func (m *Manager) Restore(ctx context.Context) error {
	if m.store == nil {
		return ErrNoSession
	}
	s, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		return ErrNoSession
	}

	if s.Expired(m.now(), refreshSkew) {
		fresh, err := m.auth.RefreshSession(ctx, s.RefreshToken)
		if err != nil {
			_ = m.store.Clear()
			return fmt.Errorf("%w: refresh failed: %v", ErrNoSession, err)
		}
		s = fresh
		if err := m.store.Save(s); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}

	m.set(EventInitialSession, s)
	return nil
}

// SignIn authenticates with email and password.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*client.Session, error) {
	s, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if m.store != nil {
		if err := m.store.Save(s); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
	}
	m.set(EventSignedIn, s)
	return s, nil
}

// Refresh exchanges the refresh token for a new session.
func (m *Manager) Refresh(ctx context.Context) (*client.Session, error) {
	cur := m.Current()
	if cur == nil {
		return nil, ErrNoSession
	}
	s, err := m.auth.RefreshSession(ctx, cur.RefreshToken)
	if err != nil {
		return nil, err
	}
	if m.store != nil {
		if err := m.store.Save(s); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
	}
	m.set(EventTokenRefreshed, s)
	return s, nil
}

// AccessToken returns a valid access token, refreshing it if it is about to
// expire.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	cur := m.Current()
	if cur == nil {
		return "", ErrNoSession
	}
	if !cur.Expired(m.now(), refreshSkew) {
		return cur.AccessToken, nil
	}
	s, err := m.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return s.AccessToken, nil
}

// SignOut revokes the session remotely and forgets it locally. The local
// session is dropped even when the remote call fails.
func (m *Manager) SignOut(ctx context.Context) error {
	cur := m.Current()
	if cur == nil {
		return nil
	}

	remoteErr := m.auth.SignOut(ctx, cur.AccessToken)
	if m.store != nil {
		if err := m.store.Clear(); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
	}
	m.set(EventSignedOut, nil)
	if remoteErr != nil {
		return fmt.Errorf("sign out: %w", remoteErr)
	}
	return nil
}

func (m *Manager) set(ev Event, s *client.Session) {
	m.mu.Lock()
	m.current = s
	subs := make([]func(Change), 0, len(m.subs))
	for i := 0; i < m.nextSub; i++ {
		if fn, ok := m.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(Change{Event: ev, Session: s})
	}
}
