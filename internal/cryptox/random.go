package cryptox

import (
	"crypto/rand"
	"encoding/hex"
)

// RandBytes returns n bytes from the system CSPRNG.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// GenerateRandHexString returns 2*size hex characters of random data.
// It panics if the system random source fails.
func GenerateRandHexString(size int) string {
	b, err := RandBytes(size)
	if err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// WipeByteArray overwrites b with zeros. A nil slice is left alone.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
