package session

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned by stores when no session has the given id
var ErrSessionNotFound = errors.New("session not found")

// Store defines the persistence operations the Manager needs. Every
// implementation must make Delete and DeleteByUser idempotent.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
