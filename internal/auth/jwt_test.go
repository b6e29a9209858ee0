package auth

import (
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	dept := "Computer Science"
	token, err := NewAccessToken("secret", "issuer", time.Minute, Claims{
		UserID:             "user-1",
		UserType:           "student",
		Department:         &dept,
		MustChangePassword: true,
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if claims.UserID != "user-1" || claims.UserType != "student" {
		t.Fatalf("unexpected claims")
	}
	if claims.Department == nil || *claims.Department != dept {
		t.Fatalf("expected department claim")
	}
	if !claims.MustChangePassword {
		t.Fatalf("expected must_change_password claim")
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewAccessToken("secret", "issuer", time.Minute, Claims{
		UserID:   "user-1",
		UserType: "faculty",
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("other-secret", token); err == nil {
		t.Fatalf("expected parse failure with wrong secret")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := NewAccessToken("secret", "issuer", -time.Minute, Claims{
		UserID:   "user-1",
		UserType: "student",
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret", token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}
