// Package session provides session management for the auth service.
// Sessions are opaque random ids stored server-side and carried in a cookie.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gatehouse/internal/users"
)

const (
	// DefaultCookieName is the cookie used when none is configured
	DefaultCookieName = "auth_session"
	// DefaultTTL is the lifetime of a new or renewed session
	DefaultTTL = 30 * 24 * time.Hour

	idEntropyBytes = 25
	maxIDLength    = 255
)

var idEncoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// UserLookup resolves the owner of a session
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

// Options configures a Manager
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	Clock      func() time.Time
	Logger     *slog.Logger
}

// Manager creates, validates, renews and invalidates sessions
type Manager struct {
	store      Store
	users      UserLookup
	cookieName string
	ttl        time.Duration
	secure     bool
	now        func() time.Time
	logger     *slog.Logger
}

// NewManager creates a new session manager
func NewManager(store Store, lookup UserLookup, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Manager{
		store:      store,
		users:      lookup,
		cookieName: opts.CookieName,
		ttl:        opts.TTL,
		secure:     opts.Secure,
		now:        opts.Clock,
		logger:     opts.Logger,
	}
}

// CookieName returns the name of the session cookie
func (m *Manager) CookieName() string {
	return m.cookieName
}

// TTL returns the session lifetime
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// GenerateID returns a new session id: 25 random bytes as lowercase base32
func GenerateID() (string, error) {
	b := make([]byte, idEntropyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return idEncoding.EncodeToString(b), nil
}

// CreateSession starts a new session for userID
func (m *Manager) CreateSession(ctx context.Context, userID string) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: m.now().Add(m.ttl),
	}
	if err := m.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sess.Fresh = true
	return sess, nil
}

// ValidateSession resolves a session id to its session and owner.
// Unknown, expired and orphaned sessions yield (nil, nil, nil); the latter
// two are removed from the store. A session in the second half of its
// lifetime is extended and marked Fresh.
func (m *Manager) ValidateSession(ctx context.Context, id string) (*Session, *users.User, error) {
	if id == "" || len(id) > maxIDLength {
		return nil, nil, nil
	}

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	now := m.now()
	if sess.IsExpired(now) {
		if err := m.store.Delete(ctx, id); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil
	}

	user, err := m.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			m.logger.Warn("Dropping session of missing user", "user_id", sess.UserID)
			if err := m.store.Delete(ctx, id); err != nil {
				return nil, nil, err
			}
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to get session user: %w", err)
	}

	sess.Fresh = false
	if !now.Before(sess.ExpiresAt.Add(-m.ttl / 2)) {
		expiresAt := now.Add(m.ttl)
		if err := m.store.UpdateExpiry(ctx, id, expiresAt); err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return nil, nil, nil
			}
			return nil, nil, err
		}
		sess.ExpiresAt = expiresAt
		sess.Fresh = true
	}

	return sess, user, nil
}

// InvalidateSession deletes a session. Unknown ids are not an error.
func (m *Manager) InvalidateSession(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	return nil
}

// InvalidateUserSessions deletes every session of a user
func (m *Manager) InvalidateUserSessions(ctx context.Context, userID string) error {
	if err := m.store.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to invalidate user sessions: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every expired session from the store
func (m *Manager) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return n, nil
}

// StartCleanup runs DeleteExpiredSessions every interval until ctx is
// cancelled. A non-positive interval disables the sweeper.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := m.DeleteExpiredSessions(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					m.logger.Error("Session cleanup failed", "error", err)
					continue
				}
				if n > 0 {
					m.logger.Info("Removed expired sessions", "count", n)
				}
			}
		}
	}()
}
