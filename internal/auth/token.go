// ABOUTME: Client-side inspection of bearer tokens issued by the chat server
// ABOUTME: Reads sub/is_admin/exp claims without the signing secret to reject expired tokens early

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// Claims are the fields the client reads from an access token.
type Claims struct {
	Subject   string
	IsAdmin   bool
	ExpiresAt time.Time // zero when the token carries no exp
	IssuedAt  time.Time
}

// ParseClaims decodes the token payload without verifying the signature.
// The client never holds the server's secret; the server still verifies every
// request. This only lets the client drop tokens that are already unusable.
func ParseClaims(tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	out := Claims{Subject: sub}

	if admin, ok := claims["is_admin"].(bool); ok {
		out.IsAdmin = admin
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: exp: %v", ErrInvalidToken, err)
	}
	if exp != nil {
		out.ExpiresAt = exp.Time
	}

	iat, err := claims.GetIssuedAt()
	if err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}

	return out, nil
}

// Expired reports whether the token is past its exp claim at now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// CheckToken parses the token and rejects it if it has expired at now.
func CheckToken(tokenString string, now time.Time) (Claims, error) {
	claims, err := ParseClaims(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if claims.Expired(now) {
		return claims, ErrExpiredToken
	}
	return claims, nil
}

// IsRejection reports whether err means the token itself is unusable, as
// opposed to a failure to reach the server.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrMissingClaim)
}
