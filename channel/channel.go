// Package channel implements the AEAD-protected message channel used once a
// handshake reaches its confirmed state. Every outbound plaintext is sealed
// under a fresh nonce; every inbound envelope is checked for the expected
// algorithm name before the ciphertext is ever touched.
package channel

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/subtylsocket/subtylsocket/crypto"
)

const envelopeType = "encrypted-plugin-message"
const algorithmName = "aes-256-gcm"

// ErrAlgorithmMismatch is returned when an inbound envelope names an AEAD
// algorithm other than the one this channel was built for.
var ErrAlgorithmMismatch = errors.New("channel: envelope algorithm does not match aes-256-gcm")

// ErrWrongEnvelopeType is returned when an inbound message is not an
// encrypted-plugin-message envelope.
var ErrWrongEnvelopeType = errors.New("channel: unexpected envelope type")

type envelope struct {
	Type      string           `json:"type"`
	Algorithm string           `json:"algorithm"`
	Encrypted encryptedPayload `json:"encrypted"`
}

type encryptedPayload struct {
	Data     string   `json:"data"`
	Metadata metadata `json:"metadata"`
}

type metadata struct {
	IV  string `json:"iv"`
	Tag string `json:"tag"`
}

// AEADChannel seals and opens application messages with the encryption key
// produced by a confirmed handshake. The authentication key is accepted at
// construction and zeroed on Close but is not used by this channel; it is
// reserved for a future per-message signature layer.
type AEADChannel struct {
	encryptionKey     [32]byte
	authenticationKey [32]byte
	closed            bool
}

// New builds a channel bound to the two session keys produced by a
// confirmed handshake. It takes ownership of zeroing both keys on Close.
func New(encryptionKey, authenticationKey [32]byte) *AEADChannel {
	return &AEADChannel{encryptionKey: encryptionKey, authenticationKey: authenticationKey}
}

// Seal encrypts plaintext under a fresh random nonce and returns the wire
// envelope bytes.
func (c *AEADChannel) Seal(plaintext []byte) ([]byte, error) {
	logger := logrus.WithFields(logrus.Fields{"function": "AEADChannel.Seal", "package": "channel"})

	if c.closed {
		return nil, errors.New("channel: Seal called after Close")
	}

	nonce, err := crypto.SecureRandom(crypto.AEADNonceSize)
	if err != nil {
		return nil, fmt.Errorf("channel: generate nonce: %w", err)
	}

	ciphertext, tag, err := crypto.AEADSeal(c.encryptionKey[:], nonce, plaintext, nil)
	if err != nil {
		return nil, fmt.Errorf("channel: seal: %w", err)
	}

	env := envelope{
		Type:      envelopeType,
		Algorithm: algorithmName,
		Encrypted: encryptedPayload{
			Data: base64.StdEncoding.EncodeToString(ciphertext),
			Metadata: metadata{
				IV:  base64.StdEncoding.EncodeToString(nonce),
				Tag: base64.StdEncoding.EncodeToString(tag),
			},
		},
	}

	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("channel: marshal envelope: %w", err)
	}

	sealOps.Inc()
	logger.WithFields(logrus.Fields{"plaintext_len": len(plaintext)}).Debug("message sealed")
	return out, nil
}

// Open validates and decrypts a wire envelope, returning the plaintext.
func (c *AEADChannel) Open(envBytes []byte) ([]byte, error) {
	logger := logrus.WithFields(logrus.Fields{"function": "AEADChannel.Open", "package": "channel"})

	if c.closed {
		return nil, errors.New("channel: Open called after Close")
	}

	var env envelope
	if err := json.Unmarshal(envBytes, &env); err != nil {
		openOps.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("channel: unmarshal envelope: %w", err)
	}
	if env.Type != envelopeType {
		openOps.WithLabelValues("wrong-type").Inc()
		return nil, ErrWrongEnvelopeType
	}
	if env.Algorithm != algorithmName {
		openOps.WithLabelValues("algorithm-mismatch").Inc()
		return nil, ErrAlgorithmMismatch
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.Encrypted.Data)
	if err != nil {
		openOps.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("channel: decode ciphertext: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Encrypted.Metadata.IV)
	if err != nil {
		openOps.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("channel: decode iv: %w", err)
	}
	tag, err := base64.StdEncoding.DecodeString(env.Encrypted.Metadata.Tag)
	if err != nil {
		openOps.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("channel: decode tag: %w", err)
	}

	plaintext, err := crypto.AEADOpen(c.encryptionKey[:], nonce, ciphertext, tag, nil)
	if err != nil {
		openOps.WithLabelValues("tag-mismatch").Inc()
		logger.WithFields(logrus.Fields{"error": err.Error()}).Warn("rejected envelope")
		return nil, fmt.Errorf("channel: open: %w", err)
	}

	openOps.WithLabelValues("ok").Inc()
	logger.WithFields(logrus.Fields{"plaintext_len": len(plaintext)}).Debug("message opened")
	return plaintext, nil
}

// Close zeroes both session keys. Safe to call more than once.
func (c *AEADChannel) Close() {
	crypto.ZeroBytes(c.encryptionKey[:])
	crypto.ZeroBytes(c.authenticationKey[:])
	c.closed = true
}
