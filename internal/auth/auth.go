// internal/auth/auth.go
//
// Pluggable arena-key verification.
//
// The protocol's authenticate request carries an opaque secret; everything
// this package decides is whether that secret is acceptable. Three modes,
// selected by environment at startup:
//
//   - ARENA_JWT_SECRET set → the secret must be a valid HS256 JWT signed
//     with that key (unexpired).
//   - ARENA_KEY_HASH set   → the secret is checked against a bcrypt hash of
//     the shared arena key.
//   - ARENA_API_KEY set    → constant-time comparison with a plain key
//     (development convenience).
//
// An empty secret never authenticates, in any mode.

package auth

import (
	"crypto/subtle"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Verifier decides whether a presented secret authenticates a connection.
type Verifier interface {
	Verify(secret string) bool
}

// StaticKey accepts one plain shared key.
type StaticKey struct {
	key string
}

// NewStaticKey builds a plain-comparison verifier.
func NewStaticKey(key string) *StaticKey { return &StaticKey{key: key} }

func (v *StaticKey) Verify(secret string) bool {
	if secret == "" || v.key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(v.key)) == 1
}

// BcryptKey accepts any secret matching a stored bcrypt hash.
type BcryptKey struct {
	hash string
}

// NewBcryptKey builds a hashed-key verifier. hash is a standard bcrypt
// digest (e.g. produced by `htpasswd -B`).
func NewBcryptKey(hash string) *BcryptKey { return &BcryptKey{hash: hash} }

func (v *BcryptKey) Verify(secret string) bool {
	if secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(v.hash), []byte(secret)) == nil
}

// JWTKey accepts HS256 tokens signed with a shared secret. Standard claim
// validation applies, so expired tokens are rejected.
type JWTKey struct {
	secret []byte
}

// NewJWTKey builds a token verifier.
func NewJWTKey(secret string) *JWTKey { return &JWTKey{secret: []byte(secret)} }

func (v *JWTKey) Verify(secret string) bool {
	if secret == "" {
		return false
	}
	token, err := jwt.Parse(secret, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	return err == nil && token.Valid
}

// FromEnv selects a verifier from the environment, preferring JWT, then
// bcrypt, then plain key. With none configured it returns a verifier that
// rejects everything (a closed arena is safer than an open one).
func FromEnv() Verifier {
	if s := os.Getenv("ARENA_JWT_SECRET"); s != "" {
		return NewJWTKey(s)
	}
	if h := os.Getenv("ARENA_KEY_HASH"); h != "" {
		return NewBcryptKey(h)
	}
	return NewStaticKey(os.Getenv("ARENA_API_KEY"))
}
