package jwtsigner

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer issues HS256 JWTs from the shared secret the service validates
// with. Used by the CLI and by tests; production tokens come from the
// deployment's identity provider.
type Signer struct {
	secret []byte
	Issuer string
}

func New(secret, iss string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("jwtsigner: empty secret")
	}
	return &Signer{secret: []byte(secret), Issuer: iss}, nil
}

// Sign issues a JWT for subject `sub` with TTL and extra claims.
func (s *Signer) Sign(sub string, ttl time.Duration, claims map[string]any) (string, error) {
	now := time.Now()
	m := jwt.MapClaims{}
	for k, v := range claims {
		m[k] = v
	}
	m["iss"] = s.Issuer
	m["sub"] = sub
	m["iat"] = now.Unix()
	m["exp"] = now.Add(ttl).Unix()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, m)
	return t.SignedString(s.secret)
}
