package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskmaster/tasks/internal/infrastructure/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", ExpiresIn: time.Hour, Issuer: "task-api"}
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewAuthService(testJWTConfig())

	token, err := svc.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "admin" || claims.TokenID == "" {
		t.Fatalf("claims=%+v", claims)
	}
}

func TestGenerateToken_EmptySubject(t *testing.T) {
	svc := NewAuthService(testJWTConfig())

	if _, err := svc.GenerateToken(""); !errors.Is(err, ErrEmptySubject) {
		t.Fatalf("err=%v", err)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewAuthService(testJWTConfig())
	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }

	token, err := svc.GenerateToken("admin")
	if err != nil {
		t.Fatal(err)
	}

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("err=%v", err)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := NewAuthService(testJWTConfig()).GenerateToken("admin")
	if err != nil {
		t.Fatal(err)
	}

	other := testJWTConfig()
	other.Secret = "another-secret"
	if _, err := NewAuthService(other).ValidateToken(token); !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		t.Fatalf("err=%v", err)
	}
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	token, err := NewAuthService(testJWTConfig()).GenerateToken("admin")
	if err != nil {
		t.Fatal(err)
	}

	other := testJWTConfig()
	other.Issuer = "someone-else"
	if _, err := NewAuthService(other).ValidateToken(token); !errors.Is(err, jwt.ErrTokenInvalidIssuer) {
		t.Fatalf("err=%v", err)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	if _, err := NewAuthService(testJWTConfig()).ValidateToken("not-a-token"); err == nil {
		t.Fatalf("expected error")
	}
}
