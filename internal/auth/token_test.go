// ABOUTME: Unit tests for client-side token claim inspection
// ABOUTME: Tests valid, admin, expired, malformed, and claim-less tokens

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return token
}

func TestParseClaims_ValidToken(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token := signToken(t, jwt.MapClaims{
		"sub":      "alice",
		"is_admin": false,
		"exp":      exp.Unix(),
	})

	claims, err := ParseClaims(token)
	if err != nil {
		t.Fatalf("ParseClaims() error = %v", err)
	}
	if claims.Subject != "alice" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "alice")
	}
	if claims.IsAdmin {
		t.Error("IsAdmin = true, want false")
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt, exp)
	}
}

func TestParseClaims_AdminToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": "Admin", "is_admin": true})

	claims, err := ParseClaims(token)
	if err != nil {
		t.Fatalf("ParseClaims() error = %v", err)
	}
	if !claims.IsAdmin {
		t.Error("IsAdmin = false, want true")
	}
	if !claims.ExpiresAt.IsZero() {
		t.Errorf("ExpiresAt = %v, want zero", claims.ExpiresAt)
	}
}

func TestParseClaims_SignatureNotChecked(t *testing.T) {
	// Tokens signed with any key parse; the server is the verifier
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "bob"}).SignedString([]byte("other"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseClaims(token); err != nil {
		t.Errorf("ParseClaims() error = %v, want nil", err)
	}
}

func TestParseClaims_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty token", token: "", want: ErrInvalidToken},
		{name: "garbage token", token: "not-a-jwt", want: ErrInvalidToken},
		{name: "malformed JWT", token: "header.payload.signature", want: ErrInvalidToken},
		{name: "missing sub", token: signToken(t, jwt.MapClaims{"is_admin": false}), want: ErrMissingClaim},
		{name: "non-numeric exp", token: signToken(t, jwt.MapClaims{"sub": "a", "exp": "soon"}), want: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseClaims(tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseClaims() error = %v, want %v", err, tt.want)
			}
			if !IsRejection(err) {
				t.Errorf("IsRejection(%v) = false, want true", err)
			}
		})
	}
}

func TestCheckToken_Expired(t *testing.T) {
	now := time.Now()
	token := signToken(t, jwt.MapClaims{"sub": "alice", "exp": now.Add(-time.Minute).Unix()})

	_, err := CheckToken(token, now)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("CheckToken() error = %v, want ErrExpiredToken", err)
	}
}

func TestCheckToken_NotYetExpired(t *testing.T) {
	now := time.Now()
	token := signToken(t, jwt.MapClaims{"sub": "alice", "exp": now.Add(time.Minute).Unix()})

	claims, err := CheckToken(token, now)
	if err != nil {
		t.Fatalf("CheckToken() error = %v", err)
	}
	if claims.Expired(now) {
		t.Error("Expired() = true, want false")
	}
	if !claims.Expired(now.Add(2 * time.Minute)) {
		t.Error("Expired() two minutes later = false, want true")
	}
}

func TestIsRejection_NetworkError(t *testing.T) {
	if IsRejection(errors.New("connection refused")) {
		t.Error("IsRejection() = true for a transport error")
	}
}
