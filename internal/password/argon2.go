// Package password hashes and verifies user passwords with argon2id.
//
// Hashes are stored in PHC string format:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
//
// Salt and hash are unpadded standard base64.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"
	saltLength  = 16
)

var (
	// ErrInvalidHash is returned when a stored hash cannot be parsed
	ErrInvalidHash = errors.New("invalid password hash")
	// ErrParamsMismatch is returned when a hash was produced with different cost parameters
	ErrParamsMismatch = errors.New("password hash parameters do not match configuration")
	// ErrInvalidParams is returned by NewHasher for zero cost parameters
	ErrInvalidParams = errors.New("invalid argon2 parameters")
)

// Params are the argon2id cost parameters. They must be the same for every
// Hash and Verify call in the system.
type Params struct {
	MemoryCost  uint32 // KiB
	TimeCost    uint32
	OutputLen   uint32
	Parallelism uint8
}

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{
		MemoryCost:  19456,
		TimeCost:    2,
		OutputLen:   32,
		Parallelism: 1,
	}
}

// Hasher hashes and verifies passwords with a fixed set of Params.
type Hasher struct {
	params Params
}

// NewHasher validates p and returns a Hasher bound to it.
func NewHasher(p Params) (*Hasher, error) {
	if p.MemoryCost == 0 || p.TimeCost == 0 || p.OutputLen == 0 || p.Parallelism == 0 {
		return nil, ErrInvalidParams
	}
	return &Hasher{params: p}, nil
}

// Params returns the configured parameters.
func (h *Hasher) Params() Params {
	return h.params
}

// Hash derives a salted argon2id hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := h.derive(password, salt)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.params.MemoryCost,
		h.params.TimeCost,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. A hash made with other
// parameters yields ErrParamsMismatch rather than a silent false.
func (h *Hasher) Verify(encoded, password string) (bool, error) {
	parsed, err := parse(encoded)
	if err != nil {
		return false, err
	}
	if parsed.params != h.params {
		return false, ErrParamsMismatch
	}

	key := h.derive(password, parsed.salt)
	return subtle.ConstantTimeCompare(key, parsed.key) == 1, nil
}

func (h *Hasher) derive(password string, salt []byte) []byte {
	return argon2.IDKey(
		[]byte(password),
		salt,
		h.params.TimeCost,
		h.params.MemoryCost,
		h.params.Parallelism,
		h.params.OutputLen,
	)
}

type phc struct {
	params Params
	salt   []byte
	key    []byte
}

func parse(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, ErrInvalidHash
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") || version != argon2.Version {
		return nil, ErrInvalidHash
	}

	var p Params
	var m, t, par uint64
	seen := 0
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, ErrInvalidHash
		}
		switch k {
		case "m":
			m, err = strconv.ParseUint(v, 10, 32)
		case "t":
			t, err = strconv.ParseUint(v, 10, 32)
		case "p":
			par, err = strconv.ParseUint(v, 10, 8)
		default:
			return nil, ErrInvalidHash
		}
		if err != nil {
			return nil, ErrInvalidHash
		}
		seen++
	}
	if seen != 3 {
		return nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, ErrInvalidHash
	}

	p.MemoryCost = uint32(m)
	p.TimeCost = uint32(t)
	p.Parallelism = uint8(par)
	p.OutputLen = uint32(len(key))

	return &phc{params: p, salt: salt, key: key}, nil
}
