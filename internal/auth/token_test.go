package auth

import (
	"testing"

	"github.com/spec-kit/task-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	token, expiresAt, err := tm.GenerateToken("u1", domain.RoleManager)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if expiresAt.IsZero() {
		t.Error("expiry should be set")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.UserID != "u1" {
		t.Errorf("UserID = %s, want u1", claims.UserID)
	}
	if claims.Role != domain.RoleManager {
		t.Errorf("Role = %s, want MANAGER", claims.Role)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 60).GenerateToken("u1", domain.RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := NewTokenManager("secret-b", 60).ParseToken(token); err == nil {
		t.Fatal("token signed with another secret should be rejected")
	}
}

func TestParseToken_Garbage(t *testing.T) {
	if _, err := NewTokenManager("secret", 60).ParseToken("not-a-token"); err == nil {
		t.Fatal("malformed token should be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 4)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if err := ComparePassword(hash, "s3cret-pass"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Error("wrong password accepted")
	}
}

func TestPasswordHashing_OutOfRangeCostFallsBack(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 0)
	if err != nil {
		t.Fatalf("HashPassword with zero cost failed: %v", err)
	}
	if err := ComparePassword(hash, "s3cret-pass"); err != nil {
		t.Errorf("hash from fallback cost rejected: %v", err)
	}
}
