package tokenhash

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	SaltLen = 16
	time    = 2
	memory  = 19 * 1024
	threads = 1
	keyLen  = 32
)

// Digest is an argon2id hash of a bearer token. The token itself is not
// retained.
type Digest struct {
	salt []byte
	hash []byte
}

func randomBytes(n int) ([]byte, error) {
	data := make([]byte, n)
	_, err := rand.Read(data)
	if err != nil {
		return nil, err
	}

	return data, nil
}

func New(token string) (Digest, error) {
	salt, err := randomBytes(SaltLen)
	if err != nil {
		return Digest{}, fmt.Errorf("failed to generate salt: %w", err)
	}

	return FromSalt(token, salt)
}

func FromSalt(token string, salt []byte) (Digest, error) {
	if len(salt) != SaltLen {
		return Digest{}, fmt.Errorf("invalid salt length: %d", len(salt))
	}

	hash := argon2.IDKey([]byte(token), salt, time, memory, threads, keyLen)

	return Digest{salt: salt, hash: hash}, nil
}

func (d Digest) Matches(token string) bool {
	if len(d.salt) != SaltLen {
		return false
	}

	candidate := argon2.IDKey([]byte(token), d.salt, time, memory, threads, keyLen)

	return subtle.ConstantTimeCompare(candidate, d.hash) == 1
}
