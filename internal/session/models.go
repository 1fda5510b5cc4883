package session

import "time"

// Session represents a logged-in user session
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`

	// Fresh is set when the session was just created or renewed and the
	// cookie has to be sent again. It is never persisted.
	Fresh bool `json:"-"`
}

// IsExpired reports whether the session is past its expiry at now
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
