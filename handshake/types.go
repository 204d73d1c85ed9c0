package handshake

import (
	"encoding/base64"

	"github.com/google/uuid"
	"github.com/subtylsocket/subtylsocket/crypto"
)

const nonceSize = 32

// Status reports the outcome of processing one inbound message, or of
// starting a handshake.
type Status int

const (
	// StatusInProgress means an outbound message was produced and the
	// handshake is waiting on the next inbound message.
	StatusInProgress Status = iota
	// StatusConfirmed means the handshake completed successfully; the
	// session's derived keys are now available.
	StatusConfirmed
	// StatusFailed means the handshake is dead; no further messages are
	// processed.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in-progress"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is returned by every state transition. Outbound is nil when the
// transition produced nothing to send (the Initiator's handling of
// KEY_CONFIRMATION, any failure, or a no-op ignored while already
// Confirmed).
type Result struct {
	Outbound []byte
	Status   Status
	Err      error
}

// SessionKeys is the pair of keys handed to the channel layer once a
// handshake reaches StatusConfirmed. The confirmation key used internally
// during the handshake is never exposed here.
type SessionKeys struct {
	Encryption     [32]byte
	Authentication [32]byte
}

// Zero overwrites both keys.
func (k *SessionKeys) Zero() {
	for i := range k.Encryption {
		k.Encryption[i] = 0
	}
	for i := range k.Authentication {
		k.Authentication[i] = 0
	}
}

type stateKind uint8

const (
	stateFresh stateKind = iota
	stateInitSent
	stateInitRecv
	stateAwaitingConfirm
	stateConfirmed
	stateFailed
)

func newSessionID() (string, []byte) {
	raw := uuid.New()
	b := raw[:]
	return base64.StdEncoding.EncodeToString(b), b
}

func newNonce() ([]byte, error) {
	return crypto.SecureRandom(nonceSize)
}

func b64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func unb64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
