package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"

	"github.com/sirupsen/logrus"
)

// EphemeralKeyPair is a fresh P-256 key pair generated once per handshake.
// The private half never leaves this type; the public half is handed out in
// the standard uncompressed SEC1 form used on the wire.
type EphemeralKeyPair struct {
	private *ecdh.PrivateKey
}

// GenerateEphemeralKeyPair draws a fresh P-256 key pair from the OS CSPRNG.
func GenerateEphemeralKeyPair() (*EphemeralKeyPair, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "GenerateEphemeralKeyPair",
		"package":  "crypto",
	})
	logger.Debug("Function entry: generating ephemeral P-256 key pair")

	private, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"error":     err.Error(),
			"operation": "ecdh.P256().GenerateKey",
		}).Error("Failed to generate ephemeral key pair")
		return nil, fmt.Errorf("generate ephemeral key pair: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"public_key_preview": fmt.Sprintf("%x", private.PublicKey().Bytes()[:8]),
	}).Debug("Ephemeral key pair generated")

	return &EphemeralKeyPair{private: private}, nil
}

// PublicKeyBytes returns the uncompressed SEC1 encoding (0x04 || X || Y) of
// the public half, the exact form both peers must agree on for the wire.
func (kp *EphemeralKeyPair) PublicKeyBytes() []byte {
	return kp.private.PublicKey().Bytes()
}

// DeriveSharedSecret performs ECDH against a peer's uncompressed SEC1 public
// key. Point validation, including rejection of the identity point, is
// delegated to crypto/ecdh.
func (kp *EphemeralKeyPair) DeriveSharedSecret(peerPublicKey []byte) ([]byte, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "DeriveSharedSecret",
		"package":  "crypto",
	})

	peer, err := ecdh.P256().NewPublicKey(peerPublicKey)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"error":     err.Error(),
			"operation": "ecdh.P256().NewPublicKey",
		}).Warn("Rejected peer public key")
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	secret, err := kp.private.ECDH(peer)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"error":     err.Error(),
			"operation": "ECDH",
		}).Warn("ECDH computation rejected peer key")
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	logger.Debug("Shared secret derived")
	return secret, nil
}

// Zero drops this key pair's reference to its private key. crypto/ecdh.PrivateKey
// does not expose its raw scalar for overwriting, so the scalar itself is not
// wiped; the
// garbage collector reclaims the only copy. Callers must still zero any
// byte slices they pulled out of this type (shared secrets, serialized
// public keys used in transcripts) themselves.
func (kp *EphemeralKeyPair) Zero() {
	kp.private = nil
}
