// Package users persists user accounts. Username uniqueness is enforced by
// the storage layer, so concurrent signups for one name produce exactly one
// row and an ErrUsernameTaken for everyone else.
package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gatehouse/internal/database"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when inserting a duplicate username
	ErrUsernameTaken = errors.New("username already taken")
)

// Store defines the credential storage operations
type Store interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Insert(ctx context.Context, user *User) error
	List(ctx context.Context) ([]User, error)
}

// PostgresStore implements Store on the "user" table
type PostgresStore struct {
	db database.DBTX
}

// NewPostgresStore creates a pgx-backed user store
func NewPostgresStore(db database.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// FindByUsername retrieves a user by username
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return s.getOne(ctx, `SELECT id, username, password_hash FROM "user" WHERE username = $1`, username)
}

// GetByID retrieves a user by id
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*User, error) {
	return s.getOne(ctx, `SELECT id, username, password_hash FROM "user" WHERE id = $1`, id)
}

func (s *PostgresStore) getOne(ctx context.Context, query string, arg string) (*User, error) {
	var u User
	err := s.db.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// Insert creates a user row. The UNIQUE constraint on username decides races.
func (s *PostgresStore) Insert(ctx context.Context, user *User) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO "user" (id, username, password_hash) VALUES ($1, $2, $3)`,
		user.ID, user.Username, user.PasswordHash,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// List returns every user ordered by username
func (s *PostgresStore) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.Query(ctx, `SELECT id, username, password_hash FROM "user" ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	list := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return list, nil
}

// MemoryStore implements Store in process memory
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]User
	byUsername map[string]string
}

// NewMemoryStore creates an empty in-memory user store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]User),
		byUsername: make(map[string]string),
	}
}

// FindByUsername retrieves a user by username
func (m *MemoryStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byUsername[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := m.byID[id]
	return &u, nil
}

// GetByID retrieves a user by id
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// Insert adds a user, failing with ErrUsernameTaken on a duplicate name
func (m *MemoryStore) Insert(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byUsername[user.Username]; exists {
		return ErrUsernameTaken
	}
	if _, exists := m.byID[user.ID]; exists {
		return fmt.Errorf("failed to insert user: duplicate id %q", user.ID)
	}

	m.byID[user.ID] = *user
	m.byUsername[user.Username] = user.ID
	return nil
}

// List returns every user ordered by username
func (m *MemoryStore) List(ctx context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]User, 0, len(m.byID))
	for _, u := range m.byID {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Username < list[j].Username })
	return list, nil
}
