package handshake

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/subtylsocket/subtylsocket/crypto"
	"github.com/subtylsocket/subtylsocket/keyschedule"
)

// Responder drives the consumer side of the handshake: it replies to
// HANDSHAKE_INIT with HANDSHAKE_RESPONSE, then to KEY_CONFIRM_REQUEST with
// KEY_CONFIRMATION. Unlike Initiator its session identifier is not known
// until the first inbound message binds it.
type Responder struct {
	state     stateKind
	startedAt time.Time

	sessionIDStr string
	nonce        []byte
	keyPair      *crypto.EphemeralKeyPair

	initiatorPub   []byte
	initiatorNonce []byte

	derived *keyschedule.DerivedKeys
	keys    *SessionKeys

	err *Error
}

// NewResponder generates a fresh ephemeral key pair and nonce. The session
// identifier is bound on the first call to Handle.
func NewResponder() (*Responder, error) {
	kp, err := crypto.GenerateEphemeralKeyPair()
	if err != nil {
		return nil, fmt.Errorf("handshake: new responder: %w", err)
	}
	nonce, err := newNonce()
	if err != nil {
		return nil, fmt.Errorf("handshake: new responder: %w", err)
	}
	return &Responder{state: stateFresh, startedAt: time.Now(), nonce: nonce, keyPair: kp}, nil
}

// SessionID returns the bound session identifier, or ("", false) before the
// first message has been processed.
func (r *Responder) SessionID() (string, bool) {
	if r.sessionIDStr == "" {
		return "", false
	}
	return r.sessionIDStr, true
}

// Confirmed reports whether the handshake has reached StatusConfirmed.
func (r *Responder) Confirmed() bool { return r.state == stateConfirmed }

// DerivedKeys returns the session keys, available only once Confirmed.
func (r *Responder) DerivedKeys() (SessionKeys, bool) {
	if r.state != stateConfirmed || r.keys == nil {
		return SessionKeys{}, false
	}
	return *r.keys, true
}

// Handle processes one inbound message according to the current state.
func (r *Responder) Handle(msg []byte) *Result {
	switch r.state {
	case stateFresh:
		return r.handleInit(msg)
	case stateInitRecv:
		return r.handleConfirmRequest(msg)
	case stateConfirmed:
		return &Result{Status: StatusConfirmed}
	case stateFailed:
		return &Result{Status: StatusFailed, Err: r.err}
	default:
		return r.fail(newError(UnexpectedMessage, fmt.Errorf("Handle called in state %d", r.state)))
	}
}

func (r *Responder) handleInit(msg []byte) *Result {
	logger := logrus.WithFields(logrus.Fields{"function": "Responder.handleInit", "package": "handshake"})

	typ, err := decodeType(msg)
	if err != nil {
		return r.fail(newError(MalformedMessage, err))
	}
	if typ != typeHandshakeInit {
		return r.fail(newError(UnexpectedMessage, fmt.Errorf("expected %s, got %s", typeHandshakeInit, typ)))
	}

	var init handshakeInitMsg
	if err := json.Unmarshal(msg, &init); err != nil {
		return r.fail(newError(MalformedMessage, err))
	}
	if init.Version != protocolVersion {
		return r.fail(newError(UnsupportedVersion, fmt.Errorf("got version %d", init.Version)))
	}
	if !containsString(init.SupportedCiphers, cipherAES256GCM) {
		return r.fail(newError(UnsupportedAlgorithm, fmt.Errorf("no common cipher in %v", init.SupportedCiphers)))
	}
	if !containsString(init.SupportedHashes, hashSHA256) {
		return r.fail(newError(UnsupportedAlgorithm, fmt.Errorf("no common hash in %v", init.SupportedHashes)))
	}

	peerPub, err := unb64(init.PublicKey)
	if err != nil {
		return r.fail(newError(MalformedMessage, err))
	}
	peerNonce, err := unb64(init.ProviderNonce)
	if err != nil {
		return r.fail(newError(MalformedMessage, err))
	}
	if len(peerNonce) != nonceSize {
		return r.fail(newError(MalformedMessage, fmt.Errorf("nonce must be %d bytes", nonceSize)))
	}

	r.sessionIDStr = init.SessionID
	r.initiatorPub = peerPub
	r.initiatorNonce = peerNonce

	out, err := json.Marshal(handshakeResponseMsg{
		Type:           typeHandshakeResponse,
		SessionID:      r.sessionIDStr,
		PublicKey:      b64(r.keyPair.PublicKeyBytes()),
		ConsumerNonce:  b64(r.nonce),
		SelectedCipher: cipherAES256GCM,
		SelectedHash:   hashSHA256,
	})
	if err != nil {
		return r.fail(newError(MalformedMessage, err))
	}

	r.state = stateInitRecv
	logger.WithFields(logrus.Fields{"session_id": r.sessionIDStr}).Debug("handshake-response sent")
	return &Result{Outbound: out, Status: StatusInProgress}
}

func (r *Responder) handleConfirmRequest(msg []byte) *Result {
	logger := logrus.WithFields(logrus.Fields{"function": "Responder.handleConfirmRequest", "package": "handshake"})

	typ, err := decodeType(msg)
	if err != nil {
		return r.fail(newError(MalformedMessage, err))
	}
	if typ != typeKeyConfirmRequest {
		return r.fail(newError(UnexpectedMessage, fmt.Errorf("expected %s, got %s", typeKeyConfirmRequest, typ)))
	}

	var req keyConfirmRequestMsg
	if err := json.Unmarshal(msg, &req); err != nil {
		return r.fail(newError(MalformedMessage, err))
	}
	if req.SessionID != r.sessionIDStr {
		return r.fail(newError(SessionIDMismatch, fmt.Errorf("session id mismatch")))
	}

	shared, err := r.keyPair.DeriveSharedSecret(r.initiatorPub)
	if err != nil {
		return r.fail(newError(InvalidPublicKey, err))
	}
	defer crypto.ZeroBytes(shared)

	derived, err := keyschedule.Derive(shared, r.initiatorNonce, r.nonce)
	if err != nil {
		return r.fail(newError(MalformedMessage, err))
	}
	r.derived = derived

	receivedMAC, err := unb64(req.ConfirmationMAC)
	if err != nil {
		return r.fail(newError(MalformedMessage, err))
	}

	expectedMAC := initiatorMAC(derived.Confirmation[:], r.initiatorNonce, r.nonce, r.initiatorPub, r.keyPair.PublicKeyBytes())
	if !crypto.ConstantTimeEqual(receivedMAC, expectedMAC) {
		return r.fail(newError(KeyConfirmationFailed, fmt.Errorf("confirmation MAC mismatch")))
	}

	mac := responderMAC(derived.Confirmation[:], r.initiatorNonce, r.nonce, r.initiatorPub, r.keyPair.PublicKeyBytes())

	out, err := json.Marshal(keyConfirmationMsg{
		Type:            typeKeyConfirmation,
		SessionID:       r.sessionIDStr,
		PublicKey:       b64(r.keyPair.PublicKeyBytes()),
		ConfirmationMAC: b64(mac),
	})
	if err != nil {
		return r.fail(newError(MalformedMessage, err))
	}

	r.keys = &SessionKeys{Encryption: derived.Encryption, Authentication: derived.Authentication}
	derived.Zero()
	// The protocol has no state distinct from stateConfirmed once this
	// message is built: the responder never expects a further inbound
	// message, so there is nothing that stateConfirmSent would gate.
	r.state = stateConfirmed

	logger.Debug("handshake confirmed, key-confirmation sent")
	res := &Result{Outbound: out, Status: StatusConfirmed}
	observeOutcome("responder", res, r.startedAt)
	return res
}

func (r *Responder) fail(e *Error) *Result {
	r.state = stateFailed
	r.err = e
	res := &Result{Status: StatusFailed, Err: e}
	observeOutcome("responder", res, r.startedAt)
	return res
}

// Destroy zeroes all key material held by this handshake and marks it
// Failed, so Confirmed, DerivedKeys, and Handle all treat it as terminally
// dead from this point on. Safe to call more than once and safe to call at
// any state.
func (r *Responder) Destroy() {
	crypto.ZeroBytes(r.nonce)
	crypto.ZeroBytes(r.initiatorNonce)
	if r.keyPair != nil {
		r.keyPair.Zero()
	}
	if r.derived != nil {
		r.derived.Zero()
	}
	if r.keys != nil {
		r.keys.Zero()
	}
	if r.state != stateFailed {
		r.err = newError(UnexpectedMessage, fmt.Errorf("handshake: destroyed"))
	}
	r.state = stateFailed
}
