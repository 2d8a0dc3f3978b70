package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskdash/internal/service"
)

// identityClaims are the claim names the API may use for the user ID.
var identityClaims = []string{"id", "userId", "sub"}

// checkToken reports whether token can belong to user at time now.
// JWTs are inspected without verifying the signature: an expired exp claim or
// an identity claim naming another user is inconsistent. Anything else is an
// opaque token and only has to be non-empty and free of whitespace.
func checkToken(token string, user service.User, now time.Time) error {
	if token == "" || strings.ContainsAny(token, " \t\r\n") {
		return fmt.Errorf("%w: malformed token", service.ErrInconsistentSession)
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("%w: bad exp claim", service.ErrInconsistentSession)
	}
	if exp != nil && !now.Before(exp.Time) {
		return fmt.Errorf("%w: token expired", service.ErrInconsistentSession)
	}

	for _, name := range identityClaims {
		id, ok := claims[name].(string)
		if !ok || id == "" {
			continue
		}
		if id != user.ID {
			return fmt.Errorf("%w: token issued for another user", service.ErrInconsistentSession)
		}
		break
	}
	return nil
}
