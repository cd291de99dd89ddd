package security

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "secret123" {
		t.Fatalf("hash equals plaintext")
	}

	if err := CheckPasswordHash("secret123", hash); err != nil {
		t.Fatalf("CheckPasswordHash failed: %v", err)
	}
	if err := CheckPasswordHash("wrong", hash); err == nil {
		t.Fatalf("wrong password accepted")
	}

	if _, err := HashPassword(""); err == nil {
		t.Fatalf("empty password accepted")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(42)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Issuer != "Reclaim" {
		t.Fatalf("Issuer = %q, want Reclaim", claims.Issuer)
	}

	if _, err := ValidateToken("not.a.token"); err == nil {
		t.Fatalf("garbage token accepted")
	}

	// 篡改签名后应校验失败
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + "forgedsignature"
	if _, err := ValidateToken(tampered); err == nil {
		t.Fatalf("tampered token accepted")
	}
}

func TestExtractSignature(t *testing.T) {
	token, err := GenerateToken(1)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	signature, err := ExtractSignature(token)
	if err != nil {
		t.Fatalf("ExtractSignature failed: %v", err)
	}
	parts := strings.Split(token, ".")
	if signature != parts[2] {
		t.Fatalf("signature = %q, want %q", signature, parts[2])
	}

	if _, err := ExtractSignature("malformed"); err == nil {
		t.Fatalf("malformed token accepted")
	}
}
