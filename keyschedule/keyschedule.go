// Package keyschedule derives the three session keys — encryption,
// authentication, confirmation — from the ECDH shared secret and the two
// peer nonces, per the handshake's domain-separated HKDF info strings.
package keyschedule

import (
	"fmt"

	"github.com/subtylsocket/subtylsocket/hkdf"
)

const (
	keySize     = 32
	nonceSize   = 32
	infoVersion = 1
)

const (
	labelEncryption     = "SubtylSocket-Encryption"
	labelAuthentication = "SubtylSocket-Authentication"
	labelConfirmation   = "SubtylSocket-KeyConfirmation"
)

// DerivedKeys holds the three keys produced by a single key-schedule run.
// All three are derived together; there is no way to obtain one without the
// others, matching the "simultaneously installed" invariant at the
// handshake layer.
type DerivedKeys struct {
	Encryption     [keySize]byte
	Authentication [keySize]byte
	Confirmation   [keySize]byte
}

// Zero overwrites all three derived keys. Callers must call this once the
// keys are no longer needed (session teardown, or immediately for a key
// schedule run that is discarded because confirmation failed).
func (k *DerivedKeys) Zero() {
	for i := range k.Encryption {
		k.Encryption[i] = 0
	}
	for i := range k.Authentication {
		k.Authentication[i] = 0
	}
	for i := range k.Confirmation {
		k.Confirmation[i] = 0
	}
}

// Derive computes the three session keys from the ECDH shared secret and
// the initiator/responder nonces. salt = initiatorNonce || responderNonce;
// both nonces must be exactly 32 bytes.
func Derive(sharedSecret, initiatorNonce, responderNonce []byte) (*DerivedKeys, error) {
	if len(initiatorNonce) != nonceSize || len(responderNonce) != nonceSize {
		return nil, fmt.Errorf("keyschedule: nonces must be %d bytes, got %d and %d",
			nonceSize, len(initiatorNonce), len(responderNonce))
	}

	salt := make([]byte, 0, 2*nonceSize)
	salt = append(salt, initiatorNonce...)
	salt = append(salt, responderNonce...)

	keys := &DerivedKeys{}

	enc, err := hkdf.Derive(sharedSecret, salt, info(labelEncryption), keySize)
	if err != nil {
		return nil, fmt.Errorf("keyschedule: derive encryption key: %w", err)
	}
	copy(keys.Encryption[:], enc)

	auth, err := hkdf.Derive(sharedSecret, salt, info(labelAuthentication), keySize)
	if err != nil {
		keys.Zero()
		return nil, fmt.Errorf("keyschedule: derive authentication key: %w", err)
	}
	copy(keys.Authentication[:], auth)

	conf, err := hkdf.Derive(sharedSecret, salt, info(labelConfirmation), keySize)
	if err != nil {
		keys.Zero()
		return nil, fmt.Errorf("keyschedule: derive confirmation key: %w", err)
	}
	copy(keys.Confirmation[:], conf)

	return keys, nil
}

// info builds the byte-exact HKDF info prefix: [len(label)] || utf8(label) || [version].
// The length-prefix and trailing version octet must match byte-for-byte
// between implementations or the derived keys silently diverge.
func info(label string) []byte {
	buf := make([]byte, 0, 1+len(label)+1)
	buf = append(buf, byte(len(label)))
	buf = append(buf, label...)
	buf = append(buf, infoVersion)
	return buf
}
