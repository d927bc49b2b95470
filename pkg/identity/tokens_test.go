package identity

import (
	"strings"
	"testing"
)

func TestGenerateToken_Format(t *testing.T) {
	plaintext, hash, prefix, err := generateToken()
	if err != nil {
		t.Fatalf("generateToken() error = %v", err)
	}
	if !strings.HasPrefix(plaintext, TokenPrefix) {
		t.Errorf("token %q should start with %q", plaintext, TokenPrefix)
	}
	if len(hash) != 64 {
		t.Errorf("hash length = %d, want 64 (sha256 hex)", len(hash))
	}
	if !strings.HasPrefix(prefix, TokenPrefix) {
		t.Errorf("prefix %q should start with %q", prefix, TokenPrefix)
	}
	if hashToken(plaintext) != hash {
		t.Errorf("hashToken(plaintext) = %q, want %q", hashToken(plaintext), hash)
	}
}

func TestGenerateToken_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		plaintext, _, _, err := generateToken()
		if err != nil {
			t.Fatalf("generateToken() error = %v", err)
		}
		if seen[plaintext] {
			t.Fatalf("duplicate token generated: %s", plaintext)
		}
		seen[plaintext] = true
	}
}
