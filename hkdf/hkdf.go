// Package hkdf implements RFC 5869 HKDF (Extract-then-Expand) over
// SHA-256, built on golang.org/x/crypto/hkdf. The extra layer over the
// x/crypto primitive exists only to enforce the length ceiling as a named
// error instead of letting the reader fail partway through a read.
package hkdf

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	xhkdf "golang.org/x/crypto/hkdf"
)

// MaxExpandLength is the RFC 5869 ceiling: 255 * HashLen for SHA-256.
const MaxExpandLength = 255 * sha256.Size

// ErrLengthTooLarge is returned when Expand is asked for more output than
// RFC 5869 permits for the underlying hash.
var ErrLengthTooLarge = errors.New("hkdf: requested length exceeds 255 * hash size")

// Extract computes PRK = HMAC-SHA-256(salt, ikm), a 32-byte pseudorandom key.
func Extract(ikm, salt []byte) []byte {
	return xhkdf.Extract(sha256.New, ikm, salt)
}

// Expand derives length bytes from prk and info per RFC 5869 §2.3:
// T(1) || T(2) || ... || T(n), truncated to length.
func Expand(prk, info []byte, length int) ([]byte, error) {
	if length > MaxExpandLength {
		return nil, fmt.Errorf("%w: requested %d, max %d", ErrLengthTooLarge, length, MaxExpandLength)
	}
	if length <= 0 {
		return nil, fmt.Errorf("hkdf: length must be positive, got %d", length)
	}

	reader := xhkdf.Expand(sha256.New, prk, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, fmt.Errorf("hkdf: expand: %w", err)
	}
	return out, nil
}

// Derive runs Extract followed by Expand in a single call, the common case
// for one-shot key derivation.
func Derive(ikm, salt, info []byte, length int) ([]byte, error) {
	prk := Extract(ikm, salt)
	return Expand(prk, info, length)
}
