// Package crypto implements the cryptographic primitives the handshake and
// channel layers build on: P-256 ECDH, HMAC-SHA-256, AES-256-GCM, a
// CSPRNG with a sanity check against a catastrophically broken source, and
// a constant-time equality check.
//
// None of these primitives are specific to the handshake wire format; they
// are the leaf layer everything else is built from.
//
// # Ephemeral keys
//
//	kp, err := crypto.GenerateEphemeralKeyPair()
//	defer kp.Zero()
//	secret, err := kp.DeriveSharedSecret(peerPublicKey)
//	defer crypto.ZeroBytes(secret)
//
// # Secure memory handling
//
// Sensitive buffers should always be wiped after use:
//
//	defer crypto.ZeroBytes(sensitive)
//
// [SecureWipe] zeroes the buffer by XORing it with itself through
// crypto/subtle, rather than a plain loop over zero assignments.
package crypto
