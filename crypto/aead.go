package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/sirupsen/logrus"
)

const (
	// AEADKeySize is the AES-256 key size in bytes.
	AEADKeySize = 32
	// AEADNonceSize is the GCM nonce (IV) size in bytes. The reference this
	// protocol descends from used a 16-byte IV in one helper and 12 bytes
	// elsewhere; this package standardizes on the NIST-recommended 12 bytes
	// everywhere.
	AEADNonceSize = 12
	// AEADTagSize is the GCM authentication tag size in bytes.
	AEADTagSize = 16
)

// AEADSeal encrypts plaintext under key with AES-256-GCM using the given
// 12-byte nonce and optional associated data, returning the ciphertext and
// authentication tag as separate buffers (the wire envelope carries them in
// separate fields).
func AEADSeal(key, nonce, plaintext, aad []byte) (ciphertext, tag []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	if len(nonce) != AEADNonceSize {
		return nil, nil, fmt.Errorf("crypto: AEAD nonce must be %d bytes, got %d", AEADNonceSize, len(nonce))
	}

	sealed := gcm.Seal(nil, nonce, plaintext, aad)
	split := len(sealed) - AEADTagSize
	ciphertext = sealed[:split]
	tag = sealed[split:]
	return ciphertext, tag, nil
}

// AEADOpen decrypts and authenticates ciphertext||tag under key with the
// given nonce and associated data. Any alteration to ciphertext, tag, nonce,
// or aad surfaces as ErrAeadTagMismatch.
func AEADOpen(key, nonce, ciphertext, tag, aad []byte) ([]byte, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "AEADOpen",
		"package":  "crypto",
	})

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != AEADNonceSize {
		logger.Warn("AEAD nonce has unexpected length")
		return nil, ErrAeadTagMismatch
	}
	if len(tag) != AEADTagSize {
		logger.Warn("AEAD tag has unexpected length")
		return nil, ErrAeadTagMismatch
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, aad)
	if err != nil {
		logger.Debug("AEAD authentication failed")
		return nil, ErrAeadTagMismatch
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != AEADKeySize {
		return nil, fmt.Errorf("crypto: AEAD key must be %d bytes, got %d", AEADKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, AEADNonceSize)
	if err != nil {
		return nil, fmt.Errorf("crypto: cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
