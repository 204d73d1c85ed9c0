package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// HMACTagSize is the output length of HMAC-SHA-256.
const HMACTagSize = sha256.Size

// HMACSHA256 computes HMAC-SHA-256(key, data), returning a 32-byte tag.
func HMACSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
