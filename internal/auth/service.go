// Package auth implements username and password authentication on top of
// server-side sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"gatehouse/internal/session"
	"gatehouse/internal/users"
)

// dummyPassword is hashed once and verified against when a login names an
// unknown user, so both failure paths cost one argon2 derivation.
const dummyPassword = "gatehouse-dummy-password"

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(encoded, password string) (bool, error)
}

// SessionManager creates and invalidates sessions
type SessionManager interface {
	CreateSession(ctx context.Context, userID string) (*session.Session, error)
	InvalidateSession(ctx context.Context, id string) error
}

// Service defines the authentication service interface
type Service interface {
	Signup(ctx context.Context, username, password string) (*session.Session, error)
	Login(ctx context.Context, username, password string) (*session.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// service implements the Service interface
type service struct {
	users    users.Store
	sessions SessionManager
	hasher   PasswordHasher
	logger   *slog.Logger

	dummyOnce sync.Once
	dummyHash string
	dummyErr  error
}

// NewService creates a new authentication service
func NewService(userStore users.Store, sessions SessionManager, hasher PasswordHasher, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		users:    userStore,
		sessions: sessions,
		hasher:   hasher,
		logger:   logger,
	}
}

// Signup registers a new user and starts a session for them
func (s *service) Signup(ctx context.Context, username, password string) (*session.Session, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &users.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, users.ErrUsernameTaken) {
			return nil, &ValidationError{Message: msgUsernameTaken}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	sess, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User signed up", "user_id", user.ID, "username", user.Username)
	return sess, nil
}

// Login checks credentials and starts a session
func (s *service) Login(ctx context.Context, username, password string) (*session.Session, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			s.verifyDummy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", "user_id", user.ID)
	return sess, nil
}

// Logout invalidates the given session
func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.InvalidateSession(ctx, sessionID)
}

func (s *service) verifyDummy(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, s.dummyErr = s.hasher.Hash(dummyPassword)
	})
	if s.dummyErr != nil {
		s.logger.Warn("Failed to prepare dummy hash", "error", s.dummyErr)
		return
	}
	_, _ = s.hasher.Verify(s.dummyHash, password)
}
