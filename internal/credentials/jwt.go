package credentials

import (
	"encoding/hex"
	"errors"
	"github.com/golang-jwt/jwt/v5"
	"time"
)

var ErrEmptySecret = errors.New("jwt secret must not be empty")

// JWTDigester issues HS256 signed tokens instead of bare digests. The salt
// becomes the token id so every issued token is distinct.
type JWTDigester struct {
	*Digester
	secret []byte
	now    func() time.Time
}

func NewJWTDigester(d *Digester, secret []byte) (*JWTDigester, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &JWTDigester{
		Digester: d,
		secret:   secret,
		now:      time.Now,
	}, nil
}

func (j *JWTDigester) Token(identity string, salt []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  identity,
		ID:       hex.EncodeToString(salt),
		IssuedAt: jwt.NewNumericDate(j.now()),
	})
	return token.SignedString(j.secret)
}
