package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of JWT claims the client shows to the user.  The
// signature is not checked: the client cannot verify it and only uses
// the values for display and to bound how long the token is persisted.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time // zero when the token does not expire
}

// ParseClaims decodes token without verifying it.  ok is false for
// opaque (non-JWT) tokens, which the service is free to issue.
func ParseClaims(token string) (Claims, bool) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, false
	}

	var c Claims
	switch sub := mc["sub"].(type) {
	case nil:
	case string:
		c.Subject = sub
	case float64:
		c.Subject = fmt.Sprintf("%.0f", sub)
	default:
		c.Subject = fmt.Sprint(sub)
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	return c, true
}

// Expired reports whether the token carries an expiry at or before now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// TTL returns the remaining lifetime at now, or 0 when the token has no
// expiry.  An expired token yields a negative duration.
func (c Claims) TTL(now time.Time) time.Duration {
	if c.ExpiresAt.IsZero() {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}
