package crypto

import "errors"

// Sentinel errors returned by the primitives in this package. Higher layers
// wrap them with %w; the handshake reports ErrInvalidPublicKey failures under
// its InvalidPublicKey ErrorKind.
var (
	// ErrInsufficientEntropy indicates the CSPRNG returned a buffer that
	// failed the all-zero / all-0xFF sanity check.
	ErrInsufficientEntropy = errors.New("crypto: random source returned a degenerate buffer")
	// ErrInvalidPublicKey indicates a peer's elliptic curve point was
	// rejected by the underlying ECDH implementation (including the
	// identity point).
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")
	// ErrAeadTagMismatch indicates AEAD decryption failed authentication.
	ErrAeadTagMismatch = errors.New("crypto: AEAD tag mismatch")
)
