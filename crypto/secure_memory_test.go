package crypto

import (
	"bytes"
	"testing"
)

func TestSecureWipe(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	original := append([]byte(nil), data...)

	if err := SecureWipe(data); err != nil {
		t.Fatalf("SecureWipe() error: %v", err)
	}

	if !bytes.Equal(data, make([]byte, len(data))) {
		t.Fatal("SecureWipe() did not zero the buffer")
	}
	if bytes.Equal(data, original) {
		t.Fatal("SecureWipe() left the buffer unchanged")
	}
}

func TestSecureWipeNil(t *testing.T) {
	if err := SecureWipe(nil); err == nil {
		t.Fatal("SecureWipe(nil) should return an error")
	}
}

func TestZeroBytes(t *testing.T) {
	data := []byte{9, 9, 9, 9}
	ZeroBytes(data)
	for i, b := range data {
		if b != 0 {
			t.Fatalf("ZeroBytes() left byte %d non-zero", i)
		}
	}
}

func TestEphemeralKeyPairZero(t *testing.T) {
	kp, err := GenerateEphemeralKeyPair()
	if err != nil {
		t.Fatalf("GenerateEphemeralKeyPair() error: %v", err)
	}
	if len(kp.PublicKeyBytes()) == 0 {
		t.Fatal("PublicKeyBytes() returned empty key before Zero()")
	}
	kp.Zero()
	if kp.private != nil {
		t.Fatal("Zero() did not clear the private key reference")
	}
}
