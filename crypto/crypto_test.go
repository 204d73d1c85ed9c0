package crypto

import (
	"bytes"
	"testing"
)

func TestGenerateEphemeralKeyPairUnique(t *testing.T) {
	kp1, err := GenerateEphemeralKeyPair()
	if err != nil {
		t.Fatalf("GenerateEphemeralKeyPair() error: %v", err)
	}
	kp2, err := GenerateEphemeralKeyPair()
	if err != nil {
		t.Fatalf("GenerateEphemeralKeyPair() error: %v", err)
	}

	if bytes.Equal(kp1.PublicKeyBytes(), kp2.PublicKeyBytes()) {
		t.Error("two ephemeral key pairs produced identical public keys")
	}
}

func TestECDHAgreement(t *testing.T) {
	alice, err := GenerateEphemeralKeyPair()
	if err != nil {
		t.Fatalf("GenerateEphemeralKeyPair() error: %v", err)
	}
	bob, err := GenerateEphemeralKeyPair()
	if err != nil {
		t.Fatalf("GenerateEphemeralKeyPair() error: %v", err)
	}

	secretA, err := alice.DeriveSharedSecret(bob.PublicKeyBytes())
	if err != nil {
		t.Fatalf("alice.DeriveSharedSecret() error: %v", err)
	}
	secretB, err := bob.DeriveSharedSecret(alice.PublicKeyBytes())
	if err != nil {
		t.Fatalf("bob.DeriveSharedSecret() error: %v", err)
	}

	if !bytes.Equal(secretA, secretB) {
		t.Fatal("ECDH did not agree on a shared secret")
	}
}

func TestDeriveSharedSecretRejectsInvalidPoint(t *testing.T) {
	kp, err := GenerateEphemeralKeyPair()
	if err != nil {
		t.Fatalf("GenerateEphemeralKeyPair() error: %v", err)
	}

	garbage := make([]byte, 65)
	garbage[0] = 0x04

	if _, err := kp.DeriveSharedSecret(garbage); err == nil {
		t.Fatal("expected an error for an invalid peer public key")
	}
}

func TestSecureRandomRejectsDegenerate(t *testing.T) {
	if isDegenerate(make([]byte, 32)) != true {
		t.Error("all-zero buffer should be flagged degenerate")
	}
	allFF := make([]byte, 32)
	for i := range allFF {
		allFF[i] = 0xFF
	}
	if !isDegenerate(allFF) {
		t.Error("all-0xFF buffer should be flagged degenerate")
	}

	mixed := make([]byte, 32)
	mixed[0] = 0x01
	if isDegenerate(mixed) {
		t.Error("mixed buffer should not be flagged degenerate")
	}
}

func TestSecureRandomSize(t *testing.T) {
	buf, err := SecureRandom(32)
	if err != nil {
		t.Fatalf("SecureRandom() error: %v", err)
	}
	if len(buf) != 32 {
		t.Fatalf("SecureRandom() returned %d bytes, want 32", len(buf))
	}
}

func TestConstantTimeEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b []byte
		want bool
	}{
		{"equal", []byte("abcdef"), []byte("abcdef"), true},
		{"different length", []byte("abc"), []byte("abcd"), false},
		{"differs at start", []byte("xbcdef"), []byte("abcdef"), false},
		{"differs at end", []byte("abcdex"), []byte("abcdef"), false},
		{"both empty", []byte{}, []byte{}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ConstantTimeEqual(tc.a, tc.b); got != tc.want {
				t.Errorf("ConstantTimeEqual(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestHMACSHA256Deterministic(t *testing.T) {
	key := []byte("key-material-32-bytes-long-xxxx")
	data := []byte("transcript bytes")

	tag1 := HMACSHA256(key, data)
	tag2 := HMACSHA256(key, data)

	if len(tag1) != HMACTagSize {
		t.Fatalf("HMACSHA256() returned %d bytes, want %d", len(tag1), HMACTagSize)
	}
	if !bytes.Equal(tag1, tag2) {
		t.Fatal("HMACSHA256() is not deterministic")
	}

	tag3 := HMACSHA256(key, []byte("different transcript"))
	if bytes.Equal(tag1, tag3) {
		t.Fatal("HMACSHA256() produced identical tags for different inputs")
	}
}

func TestAEADRoundTrip(t *testing.T) {
	key := make([]byte, AEADKeySize)
	for i := range key {
		key[i] = byte(i)
	}
	nonce := make([]byte, AEADNonceSize)
	plaintext := []byte("hello, subtylsocket")
	aad := []byte("associated-data")

	ciphertext, tag, err := AEADSeal(key, nonce, plaintext, aad)
	if err != nil {
		t.Fatalf("AEADSeal() error: %v", err)
	}
	if len(tag) != AEADTagSize {
		t.Fatalf("AEADSeal() tag length = %d, want %d", len(tag), AEADTagSize)
	}

	got, err := AEADOpen(key, nonce, ciphertext, tag, aad)
	if err != nil {
		t.Fatalf("AEADOpen() error: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("AEADOpen() = %q, want %q", got, plaintext)
	}
}

func TestAEADOpenTamperedCiphertext(t *testing.T) {
	key := make([]byte, AEADKeySize)
	nonce := make([]byte, AEADNonceSize)
	ciphertext, tag, err := AEADSeal(key, nonce, []byte("payload"), nil)
	if err != nil {
		t.Fatalf("AEADSeal() error: %v", err)
	}

	ciphertext[0] ^= 0xFF

	if _, err := AEADOpen(key, nonce, ciphertext, tag, nil); err != ErrAeadTagMismatch {
		t.Fatalf("AEADOpen() error = %v, want ErrAeadTagMismatch", err)
	}
}
