package keyschedule

import (
	"bytes"
	"testing"
)

func fixedSecret() []byte {
	s := make([]byte, 32)
	for i := range s {
		s[i] = byte(i)
	}
	return s
}

func fixedNonce(seed byte) []byte {
	n := make([]byte, 32)
	for i := range n {
		n[i] = seed
	}
	return n
}

func TestDeriveAgreement(t *testing.T) {
	secret := fixedSecret()
	in, rn := fixedNonce(0x11), fixedNonce(0x22)

	k1, err := Derive(secret, in, rn)
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}
	k2, err := Derive(secret, in, rn)
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}

	if k1.Encryption != k2.Encryption || k1.Authentication != k2.Authentication || k1.Confirmation != k2.Confirmation {
		t.Fatal("Derive() is not deterministic given identical inputs")
	}
}

func TestDeriveDomainSeparation(t *testing.T) {
	secret := fixedSecret()
	in, rn := fixedNonce(0x11), fixedNonce(0x22)

	keys, err := Derive(secret, in, rn)
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}

	if keys.Encryption == keys.Authentication {
		t.Error("encryption and authentication keys must differ")
	}
	if keys.Encryption == keys.Confirmation {
		t.Error("encryption and confirmation keys must differ")
	}
	if keys.Authentication == keys.Confirmation {
		t.Error("authentication and confirmation keys must differ")
	}
}

func TestInfoLabelByteExact(t *testing.T) {
	got := info(labelEncryption)
	want := append([]byte{byte(len(labelEncryption))}, append([]byte(labelEncryption), infoVersion)...)
	if !bytes.Equal(got, want) {
		t.Fatalf("info() = %x, want %x", got, want)
	}
}

func TestDeriveSaltSensitivity(t *testing.T) {
	secret := fixedSecret()
	in := fixedNonce(0x11)

	k1, err := Derive(secret, in, fixedNonce(0x22))
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}

	flipped := fixedNonce(0x22)
	flipped[0] ^= 0x01
	k2, err := Derive(secret, in, flipped)
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}

	if k1.Encryption == k2.Encryption {
		t.Error("flipping a single nonce bit did not change the derived encryption key")
	}
}

func TestDeriveRejectsWrongNonceLength(t *testing.T) {
	secret := fixedSecret()
	if _, err := Derive(secret, make([]byte, 31), fixedNonce(0x01)); err == nil {
		t.Fatal("expected an error for a short initiator nonce")
	}
}

func TestZero(t *testing.T) {
	secret := fixedSecret()
	keys, err := Derive(secret, fixedNonce(0x01), fixedNonce(0x02))
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}

	keys.Zero()

	var zero [32]byte
	if keys.Encryption != zero || keys.Authentication != zero || keys.Confirmation != zero {
		t.Fatal("Zero() did not clear all three keys")
	}
}
