package channel

import (
	"encoding/json"
	"testing"
)

func testKeys() ([32]byte, [32]byte) {
	var enc, auth [32]byte
	for i := range enc {
		enc[i] = byte(i)
	}
	for i := range auth {
		auth[i] = byte(255 - i)
	}
	return enc, auth
}

func TestSealOpenRoundTrip(t *testing.T) {
	enc, auth := testKeys()
	c := New(enc, auth)
	defer c.Close()

	plaintext := []byte("hello over the wire")
	env, err := c.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}

	got, err := c.Open(env)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("Open() = %q, want %q", got, plaintext)
	}
}

func TestSealProducesDistinctNonces(t *testing.T) {
	enc, auth := testKeys()
	c := New(enc, auth)
	defer c.Close()

	env1, err := c.Seal([]byte("message one"))
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	env2, err := c.Seal([]byte("message one"))
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}

	var e1, e2 envelope
	json.Unmarshal(env1, &e1)
	json.Unmarshal(env2, &e2)

	if e1.Encrypted.Metadata.IV == e2.Encrypted.Metadata.IV {
		t.Fatal("two Seal() calls reused a nonce")
	}
	if e1.Encrypted.Data == e2.Encrypted.Data {
		t.Fatal("identical plaintexts under distinct nonces produced identical ciphertext")
	}
}

func TestOpenRejectsAlgorithmMismatch(t *testing.T) {
	enc, auth := testKeys()
	c := New(enc, auth)
	defer c.Close()

	env, err := c.Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	var e envelope
	json.Unmarshal(env, &e)
	e.Algorithm = "chacha20-poly1305"
	tampered, _ := json.Marshal(e)

	if _, err := c.Open(tampered); err != ErrAlgorithmMismatch {
		t.Fatalf("Open() error = %v, want ErrAlgorithmMismatch", err)
	}
}

func TestOpenRejectsWrongEnvelopeType(t *testing.T) {
	enc, auth := testKeys()
	c := New(enc, auth)
	defer c.Close()

	bogus, _ := json.Marshal(map[string]string{"type": "something-else"})
	if _, err := c.Open(bogus); err != ErrWrongEnvelopeType {
		t.Fatalf("Open() error = %v, want ErrWrongEnvelopeType", err)
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	enc, auth := testKeys()
	c := New(enc, auth)
	defer c.Close()

	env, err := c.Seal([]byte("tamper me"))
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	var e envelope
	json.Unmarshal(env, &e)
	e.Encrypted.Data = e.Encrypted.Data[:len(e.Encrypted.Data)-4] + "AAAA"
	tampered, _ := json.Marshal(e)

	if _, err := c.Open(tampered); err == nil {
		t.Fatal("expected an error opening tampered ciphertext")
	}
}

func TestCloseZeroesKeys(t *testing.T) {
	enc, auth := testKeys()
	c := New(enc, auth)
	c.Close()

	var zero [32]byte
	if c.encryptionKey != zero {
		t.Error("Close() did not zero the encryption key")
	}
	if c.authenticationKey != zero {
		t.Error("Close() did not zero the authentication key")
	}
}
