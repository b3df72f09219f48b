// Package credentials derives password digests and session tokens.
package credentials

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"golang.org/x/crypto/blake2b"
)

const (
	SaltSize = 16
	KeySize  = 20
)

var ErrInvalidSize = errors.New("digest size must be between 1 and 64 bytes")

// Digester hashes passwords with keyed blake2b over salt and password, and
// derives auth tokens with blake2b over salt and the user identity.
type Digester struct {
	passwordSize int
	tokenSize    int
}

func NewDigester(passwordSize, tokenSize int) (*Digester, error) {
	for _, size := range []int{passwordSize, tokenSize} {
		if size < 1 || size > blake2b.Size {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
		}
	}
	return &Digester{
		passwordSize: passwordSize,
		tokenSize:    tokenSize,
	}, nil
}

func (d *Digester) NewSalt() ([]byte, error) {
	return random(SaltSize)
}

func (d *Digester) NewKey() ([]byte, error) {
	return random(KeySize)
}

func (d *Digester) Digest(password string, salt, key []byte) (string, error) {
	h, err := blake2b.New(d.passwordSize, key)
	if err != nil {
		return "", err
	}
	h.Write(salt)
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (d *Digester) Verify(candidate, stored string) bool {
	if candidate == "" || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(stored)) == 1
}

func (d *Digester) Token(identity string, salt []byte) (string, error) {
	h, err := blake2b.New(d.tokenSize, nil)
	if err != nil {
		return "", err
	}
	h.Write(salt)
	h.Write([]byte(identity))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func random(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("can't read random bytes: %w", err)
	}
	return b, nil
}
