// Package cryptox holds the password hasher and random helpers.
//
// Passwords are stored as argon2id digests in PHC string form:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
//
// Parameters travel with each digest, so they can be raised later without
// invalidating existing users.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

var (
	ErrInvalidDigest       = errors.New("invalid password digest")
	ErrUnsupportedDigest   = errors.New("unsupported password digest")
	ErrInvalidHasherParams = errors.New("invalid hasher parameters")
)

// Params configures argon2id. Memory is in KiB.
type Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams matches the cost the server has always used for key derivation.
func DefaultParams() Params {
	return Params{Memory: 64 * 1024, Time: 1, Parallelism: 4, SaltLength: 16, KeyLength: 32}
}

// Hasher produces and checks salted argon2id digests.
type Hasher struct {
	params Params
	dummy  string
}

// NewHasher validates p and precomputes a digest used to equalize work for
// lookups that found no user.
func NewHasher(p Params) (*Hasher, error) {
	if p.Memory < 8 || p.Time < 1 || p.Parallelism < 1 || p.SaltLength < 8 || p.KeyLength < 16 {
		return nil, ErrInvalidHasherParams
	}
	h := &Hasher{params: p}

	dummy, err := h.Hash(GenerateRandHexString(16))
	if err != nil {
		return nil, err
	}
	h.dummy = dummy
	return h, nil
}

// Hash returns the PHC-encoded digest of password under a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt, err := RandBytes(int(h.params.SaltLength))
	if err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		h.params.Memory, h.params.Time, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches digest. A malformed digest never
// matches; its parse error is returned alongside false.
func (h *Hasher) Verify(password, digest string) (bool, error) {
	d, err := parseDigest(digest)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(password), d.salt, d.time, d.memory, d.parallelism, uint32(len(d.key)))
	return subtle.ConstantTimeCompare(key, d.key) == 1, nil
}

// VerifyDummy burns the same work as Verify without a real digest.
// It always returns false.
func (h *Hasher) VerifyDummy(password string) bool {
	_, _ = h.Verify(password, h.dummy)
	return false
}

type digest struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parseDigest(s string) (*digest, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, ErrInvalidDigest
	}
	if parts[1] != algorithmID {
		return nil, ErrUnsupportedDigest
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return nil, ErrInvalidDigest
	}
	if version != argon2.Version {
		return nil, ErrUnsupportedDigest
	}

	d := &digest{}
	var m, t, p uint64
	for _, pair := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, ErrInvalidDigest
		}
		switch k {
		case "m":
			m, err = strconv.ParseUint(v, 10, 32)
		case "t":
			t, err = strconv.ParseUint(v, 10, 32)
		case "p":
			p, err = strconv.ParseUint(v, 10, 8)
		default:
			return nil, ErrInvalidDigest
		}
		if err != nil {
			return nil, ErrInvalidDigest
		}
	}
	if m == 0 || t == 0 || p == 0 {
		return nil, ErrInvalidDigest
	}
	d.memory, d.time, d.parallelism = uint32(m), uint32(t), uint8(p)

	if d.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(d.salt) == 0 {
		return nil, ErrInvalidDigest
	}
	if d.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(d.key) == 0 {
		return nil, ErrInvalidDigest
	}
	return d, nil
}
