// Package auth guards the central's mutating admin routes with a shared
// bearer token. Radio frames are never authenticated.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/danmuck/espblink/internal/logging"
	"github.com/gin-gonic/gin"
)

var ErrUnauthorized = errors.New("auth: unauthorized")

// Validator validates an authentication token.
type Validator interface {
	Validate(token string) error
}

// StaticToken is a validator for a single shared admin token.
type StaticToken struct {
	Token string
}

func (s StaticToken) Validate(token string) error {
	if s.Token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// FuncValidator adapts a function into a Validator.
type FuncValidator func(token string) error

func (f FuncValidator) Validate(token string) error {
	return f(token)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Require rejects requests whose bearer token fails v. A nil validator
// lets everything through.
func Require(v Validator) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if v == nil {
			ctx.Next()
			return
		}
		if err := v.Validate(BearerToken(ctx.GetHeader("Authorization"))); err != nil {
			logging.Warnf("auth.Require denied path=%s client=%s", ctx.FullPath(), ctx.ClientIP())
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthorized.Error()})
			return
		}
		ctx.Next()
	}
}
