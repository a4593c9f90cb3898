package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HMACToken accepts HS256 JWTs signed with Secret. Expiry is enforced when
// the token carries an exp claim.
type HMACToken struct {
	Secret []byte
}

func (h HMACToken) Validate(token string) error {
	if len(h.Secret) == 0 || token == "" {
		return ErrUnauthorized
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return h.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}

// Issue signs an HS256 token for subject. A zero ttl omits exp.
func (h HMACToken) Issue(subject string, ttl time.Duration, now time.Time) (string, error) {
	if len(h.Secret) == 0 {
		return "", fmt.Errorf("auth: empty signing secret")
	}
	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.Secret)
}

// AnyOf accepts a token if any non-nil validator does.
type AnyOf []Validator

func (a AnyOf) Validate(token string) error {
	for _, v := range a {
		if v != nil && v.Validate(token) == nil {
			return nil
		}
	}
	return ErrUnauthorized
}
