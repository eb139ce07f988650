package security

import (
	"strings"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("expected user 42, got %d", claims.UserID)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	if _, err := ValidateToken("garbage"); err == nil {
		t.Fatal("expected error for malformed token")
	}
	if _, err := ValidateToken("aaa.bbb.ccc"); err == nil {
		t.Fatal("expected error for forged token")
	}
}

func TestExtractSignature(t *testing.T) {
	token, err := GenerateToken(1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	signature, err := ExtractSignature(token)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if signature != strings.Split(token, ".")[2] {
		t.Fatal("expected third segment as signature")
	}

	if _, err = ExtractSignature("one.two"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hashed == "secret123" {
		t.Fatal("expected password to be hashed")
	}

	if err = CheckPasswordHash("secret123", hashed); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err = CheckPasswordHash("wrong", hashed); err == nil {
		t.Fatal("expected mismatch error")
	}
}
