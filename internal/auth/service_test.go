package auth

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatehouse/internal/logger"
	"gatehouse/internal/password"
	"gatehouse/internal/session"
	"gatehouse/internal/users"
)

var fastParams = password.Params{MemoryCost: 64, TimeCost: 1, OutputLen: 32, Parallelism: 1}

// countingStore wraps a users.Store and counts calls
type countingStore struct {
	users.Store
	calls     atomic.Int32
	insertErr error
}

func (s *countingStore) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	s.calls.Add(1)
	return s.Store.FindByUsername(ctx, username)
}

func (s *countingStore) Insert(ctx context.Context, u *users.User) error {
	s.calls.Add(1)
	if s.insertErr != nil {
		return s.insertErr
	}
	return s.Store.Insert(ctx, u)
}

// countingHasher wraps the real hasher and counts calls
type countingHasher struct {
	*password.Hasher
	hashes   atomic.Int32
	verifies atomic.Int32
}

func (h *countingHasher) Hash(pw string) (string, error) {
	h.hashes.Add(1)
	return h.Hasher.Hash(pw)
}

func (h *countingHasher) Verify(encoded, pw string) (bool, error) {
	h.verifies.Add(1)
	return h.Hasher.Verify(encoded, pw)
}

type serviceFixture struct {
	svc      Service
	store    *countingStore
	hasher   *countingHasher
	sessions *session.MemoryStore
	mgr      *session.Manager
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	h, err := password.NewHasher(fastParams)
	require.NoError(t, err)

	store := &countingStore{Store: users.NewMemoryStore()}
	hasher := &countingHasher{Hasher: h}
	sessions := session.NewMemoryStore()
	mgr := session.NewManager(sessions, store, session.Options{Logger: logger.Discard()})

	return &serviceFixture{
		svc:      NewService(store, mgr, hasher, logger.Discard()),
		store:    store,
		hasher:   hasher,
		sessions: sessions,
		mgr:      mgr,
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		valid    bool
	}{
		{"minimum length", "abc", true},
		{"maximum length", strings.Repeat("a", 31), true},
		{"digits dash underscore", "a_b-9", true},
		{"too short", "ab", false},
		{"too long", strings.Repeat("a", 32), false},
		{"uppercase", "Alice", false},
		{"space", "al ice", false},
		{"unicode", "алиса", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "Invalid username", verr.Message)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret"))
	assert.NoError(t, ValidatePassword(strings.Repeat("p", 255)))

	for _, pw := range []string{"", "12345", strings.Repeat("p", 256)} {
		var verr *ValidationError
		require.ErrorAs(t, ValidatePassword(pw), &verr)
		assert.Equal(t, "Invalid password", verr.Message)
	}
}

func TestValidatePassword_CountsCharacters(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"three two-byte characters", "ééé", false},
		{"five characters of mixed width", "pässw", false},
		{"six two-byte characters", "éééééé", true},
		{"150 two-byte characters", strings.Repeat("é", 150), true},
		{"255 four-byte characters", strings.Repeat("🔑", 255), true},
		{"256 two-byte characters", strings.Repeat("é", 256), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "Invalid password", verr.Message)
		})
	}
}

func TestService_InvalidInputTouchesNothing(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		message  string
	}{
		{"username too short", "Al", "secret1", "Invalid username"},
		{"username too long", strings.Repeat("a", 32), "secret1", "Invalid username"},
		{"uppercase username", "Alice", "secret1", "Invalid username"},
		{"username with space", "al ice", "secret1", "Invalid username"},
		{"empty username", "", "secret1", "Invalid username"},
		{"password too short", "alice", "123", "Invalid password"},
		{"password too long", "alice", strings.Repeat("x", 256), "Invalid password"},
		{"multibyte password too short", "alice", "ééé", "Invalid password"},
	}

	flows := map[string]func(Service, string, string) error{
		"signup": func(svc Service, u, p string) error {
			_, err := svc.Signup(ctx, u, p)
			return err
		},
		"login": func(svc Service, u, p string) error {
			_, err := svc.Login(ctx, u, p)
			return err
		},
	}

	for flow, call := range flows {
		for _, tt := range tests {
			t.Run(flow+"/"+tt.name, func(t *testing.T) {
				f := newServiceFixture(t)

				var verr *ValidationError
				require.ErrorAs(t, call(f.svc, tt.username, tt.password), &verr)
				assert.Equal(t, tt.message, verr.Message)

				assert.Zero(t, f.store.calls.Load())
				assert.Zero(t, f.hasher.hashes.Load())
				assert.Zero(t, f.hasher.verifies.Load())
				assert.Equal(t, 0, f.sessions.Len())
			})
		}
	}
}

func TestService_Signup(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user and session", func(t *testing.T) {
		f := newServiceFixture(t)

		sess, err := f.svc.Signup(ctx, "alice", "secret1")
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.True(t, sess.Fresh)

		u, err := f.store.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, u.ID, sess.UserID)
		assert.NotEqual(t, "secret1", u.PasswordHash)
		assert.True(t, strings.HasPrefix(u.PasswordHash, "$argon2id$"))
		assert.Equal(t, 1, f.sessions.Len())
	})

	t.Run("duplicate username", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Signup(ctx, "alice", "secret1")
		require.NoError(t, err)

		_, err = f.svc.Signup(ctx, "alice", "another1")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Username already taken", verr.Message)
		assert.Equal(t, 1, f.sessions.Len())
	})

	t.Run("storage failure is wrapped", func(t *testing.T) {
		f := newServiceFixture(t)
		boom := errors.New("disk full")
		f.store.insertErr = boom

		_, err := f.svc.Signup(ctx, "alice", "secret1")
		assert.ErrorIs(t, err, boom)
		var verr *ValidationError
		assert.False(t, errors.As(err, &verr))
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("correct credentials", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Signup(ctx, "alice", "secret1")
		require.NoError(t, err)

		sess, err := f.svc.Login(ctx, "alice", "secret1")
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, 2, f.sessions.Len())
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Signup(ctx, "alice", "secret1")
		require.NoError(t, err)

		_, wrongPw := f.svc.Login(ctx, "alice", "wrong-pw")
		_, unknown := f.svc.Login(ctx, "bob", "secret1")

		assert.ErrorIs(t, wrongPw, ErrInvalidCredentials)
		assert.ErrorIs(t, unknown, ErrInvalidCredentials)
		assert.Equal(t, wrongPw.Error(), unknown.Error())
		assert.Equal(t, int32(2), f.hasher.verifies.Load(), "unknown user still runs a verification")
		assert.Equal(t, 1, f.sessions.Len())
	})
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	sess, err := f.svc.Signup(ctx, "alice", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, sess.ID))
	require.NoError(t, f.svc.Logout(ctx, sess.ID))

	got, _, err := f.mgr.ValidateSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
