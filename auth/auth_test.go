// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGenerateID(t *testing.T) {
	tests := []struct {
		name    string
		byteLen int
		wantLen int // hex encoded length = byteLen * 2
	}{
		{"8 bytes", 8, 16},
		{"16 bytes", 16, 32},
		{"24 bytes", 24, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := GenerateID(tt.byteLen)
			if err != nil {
				t.Fatalf("GenerateID() error = %v", err)
			}
			if len(id) != tt.wantLen {
				t.Errorf("GenerateID() length = %d, want %d", len(id), tt.wantLen)
			}
			for _, c := range id {
				if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
					t.Errorf("GenerateID() contains invalid hex char: %c", c)
				}
			}
		})
	}

	id1, _ := GenerateID(16)
	id2, _ := GenerateID(16)
	if id1 == id2 {
		t.Error("GenerateID() produced duplicate IDs (extremely unlikely)")
	}
}

func TestValidateAdminKey(t *testing.T) {
	tests := []struct {
		name     string
		provided string
		expected string
		wantErr  bool
	}{
		{"valid key", "s3cret", "s3cret", false},
		{"wrong key", "nope", "s3cret", true},
		{"prefix only", "s3c", "s3cret", true},
		{"empty key", "", "s3cret", true},
		{"unconfigured", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAdminKey(tt.provided, tt.expected)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAdminKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != ErrInvalidAdminKey {
				t.Errorf("ValidateAdminKey() error = %v, want %v", err, ErrInvalidAdminKey)
			}
		})
	}
}

func TestVoterID(t *testing.T) {
	id := VoterID("a@b.com")

	if len(id) != 64 {
		t.Errorf("VoterID() length = %d, want 64", len(id))
	}
	if VoterID("  A@B.com ") != id {
		t.Error("VoterID() should normalize case and whitespace")
	}
	if VoterID("c@b.com") == id {
		t.Error("VoterID() produced same id for different emails")
	}
	// sha256("a@b.com")
	const want = "fb98d44ad7501a959f3f4f4a3f004fe2d9e581ea6207e218c4b02c08a4d75adf"
	if id != want {
		t.Errorf("VoterID() = %s, want %s", id, want)
	}
}

func TestHashIP(t *testing.T) {
	hash := HashIP("192.168.1.1", "ip-salt")
	if len(hash) != 16 {
		t.Errorf("HashIP() length = %d, want 16", len(hash))
	}
	if HashIP("192.168.1.1", "ip-salt") != hash {
		t.Error("HashIP() is not deterministic")
	}
	if HashIP("192.168.1.2", "ip-salt") == hash {
		t.Error("HashIP() produced same hash for different IPs")
	}
	if HashIP("192.168.1.1", "other") == hash {
		t.Error("HashIP() produced same hash for different salts")
	}
}

func TestDeriveKey(t *testing.T) {
	k := DeriveKey("poll-secret", "rate-limit")
	if len(k) != 64 {
		t.Errorf("DeriveKey() length = %d, want 64", len(k))
	}
	if k == "poll-secret" || strings.Contains(k, "poll-secret") {
		t.Error("DeriveKey() leaked the secret")
	}
	if DeriveKey("poll-secret", "rate-limit") != k {
		t.Error("DeriveKey() is not deterministic")
	}
	if DeriveKey("poll-secret", "other") == k {
		t.Error("DeriveKey() ignored the purpose")
	}
	if DeriveKey("other-secret", "rate-limit") == k {
		t.Error("DeriveKey() ignored the secret")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name   string
		email  string
		pollID string
	}{
		{"simple", "a@b.com", "P1"},
		{"normalized", "  Voter@Example.COM ", "poll-42"},
		{"unicode poll id", "x@y.it", "domanda-è"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPayload(tt.email, tt.pollID, expiry)
			token, err := Sign(p, secret)
			if err != nil {
				t.Fatalf("Sign() error = %v", err)
			}
			if strings.Count(token, ".") != 1 {
				t.Errorf("token should have exactly one separator: %s", token)
			}

			got, err := Verify(token, secret)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if got != p {
				t.Errorf("Verify() = %+v, want %+v", got, p)
			}
			if !got.ExpiresAt().Equal(expiry) {
				t.Errorf("ExpiresAt() = %v, want %v", got.ExpiresAt(), expiry)
			}
		})
	}
}

func TestVerifyRejectsEveryByteFlip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Sign(NewPayload("a@b.com", "P1", time.Now().Add(time.Hour)), secret)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	for i := 0; i < len(token); i++ {
		// the separator changes the part count; see TestVerifySeparatorFlipsAreMalformed
		if token[i] == '.' {
			continue
		}
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]

		_, err := Verify(tampered, secret)
		if !errors.Is(err, ErrBadSignature) {
			t.Fatalf("flip at %d: Verify() error = %v, want ErrBadSignature", i, err)
		}
	}
}

// A byte changed to the separator, or the separator changed to anything
// else, alters the part count and is rejected before the signature check.
func TestVerifySeparatorFlipsAreMalformed(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Sign(NewPayload("a@b.com", "P1", time.Now().Add(time.Hour)), secret)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	dot := strings.Index(token, ".")

	for i := 0; i < len(token); i++ {
		replacement := byte('.')
		if i == dot {
			replacement = 'A'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]

		_, err := Verify(tampered, secret)
		if !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("separator flip at %d: Verify() error = %v, want ErrMalformedToken", i, err)
		}
	}
}

func TestVerifyErrors(t *testing.T) {
	secret := []byte("test-secret")
	valid, _ := Sign(NewPayload("a@b.com", "P1", time.Now().Add(time.Hour)), secret)

	// correctly signed but undecodable segments
	notJSON := "bm90LWpzb24"
	notJSONToken := notJSON + "." + signature(notJSON, secret)
	missing := "eyJlIjoiYUBiLmNvbSJ9" // {"e":"a@b.com"}
	missingToken := missing + "." + signature(missing, secret)

	tests := []struct {
		name    string
		token   string
		secret  []byte
		wantErr error
	}{
		{"empty", "", secret, ErrMalformedToken},
		{"no separator", "abcdef", secret, ErrMalformedToken},
		{"three parts", "a.b.c", secret, ErrMalformedToken},
		{"empty signature", "abc.", secret, ErrMalformedToken},
		{"empty payload", ".abc", secret, ErrMalformedToken},
		{"wrong secret", valid, []byte("other"), ErrBadSignature},
		{"garbage signature", strings.Split(valid, ".")[0] + ".zz", secret, ErrBadSignature},
		{"payload not json", notJSONToken, secret, ErrMalformedPayload},
		{"payload missing fields", missingToken, secret, ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Verify(tt.token, tt.secret)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPayloadExpired(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewPayload("a@b.com", "P1", now)

	if p.Expired(now) {
		t.Error("token should still be valid at its expiry instant")
	}
	if !p.Expired(now.Add(time.Second)) {
		t.Error("token should be expired one second later")
	}
}

func BenchmarkSign(b *testing.B) {
	secret := []byte("bench-secret")
	p := NewPayload("a@b.com", "P1", time.Now().Add(time.Hour))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Sign(p, secret)
	}
}

func BenchmarkVerify(b *testing.B) {
	secret := []byte("bench-secret")
	token, _ := Sign(NewPayload("a@b.com", "P1", time.Now().Add(time.Hour)), secret)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Verify(token, secret)
	}
}
