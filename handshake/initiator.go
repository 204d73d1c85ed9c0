package handshake

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/subtylsocket/subtylsocket/crypto"
	"github.com/subtylsocket/subtylsocket/keyschedule"
)

// Initiator drives the provider side of the handshake: it sends
// HANDSHAKE_INIT first, then KEY_CONFIRM_REQUEST once it has validated the
// responder's key material.
type Initiator struct {
	state     stateKind
	startedAt time.Time

	sessionIDStr string
	nonce        []byte
	keyPair      *crypto.EphemeralKeyPair

	responderPub   []byte
	responderNonce []byte

	derived *keyschedule.DerivedKeys
	keys    *SessionKeys

	err *Error
}

// NewInitiator generates a fresh ephemeral key pair, nonce, and session
// identifier, ready for Start.
func NewInitiator() (*Initiator, error) {
	logger := logrus.WithFields(logrus.Fields{"function": "NewInitiator", "package": "handshake"})

	kp, err := crypto.GenerateEphemeralKeyPair()
	if err != nil {
		return nil, fmt.Errorf("handshake: new initiator: %w", err)
	}
	nonce, err := newNonce()
	if err != nil {
		return nil, fmt.Errorf("handshake: new initiator: %w", err)
	}
	idStr, _ := newSessionID()

	logger.WithFields(logrus.Fields{"session_id": idStr}).Debug("initiator constructed")

	return &Initiator{
		state:        stateFresh,
		startedAt:    time.Now(),
		sessionIDStr: idStr,
		nonce:        nonce,
		keyPair:      kp,
	}, nil
}

// SessionID returns the base64 session identifier bound to this handshake.
func (in *Initiator) SessionID() string { return in.sessionIDStr }

// Confirmed reports whether the handshake has reached StatusConfirmed.
func (in *Initiator) Confirmed() bool { return in.state == stateConfirmed }

// DerivedKeys returns the session keys, available only once Confirmed.
func (in *Initiator) DerivedKeys() (SessionKeys, bool) {
	if in.state != stateConfirmed || in.keys == nil {
		return SessionKeys{}, false
	}
	return *in.keys, true
}

// Start builds and returns the HANDSHAKE_INIT message. It must be called
// exactly once, before any call to Handle.
func (in *Initiator) Start() *Result {
	logger := logrus.WithFields(logrus.Fields{"function": "Initiator.Start", "package": "handshake"})

	if in.state != stateFresh {
		return in.fail(newError(UnexpectedMessage, fmt.Errorf("Start called in state %d", in.state)))
	}

	msg := handshakeInitMsg{
		Type:             typeHandshakeInit,
		Version:          protocolVersion,
		SessionID:        in.sessionIDStr,
		PublicKey:        b64(in.keyPair.PublicKeyBytes()),
		ProviderNonce:    b64(in.nonce),
		SupportedCiphers: []string{cipherAES256GCM},
		SupportedHashes:  []string{hashSHA256},
	}
	out, err := json.Marshal(msg)
	if err != nil {
		return in.fail(newError(MalformedMessage, err))
	}

	in.state = stateInitSent
	handshakesStarted.Inc()
	logger.Debug("handshake-init sent")
	return &Result{Outbound: out, Status: StatusInProgress}
}

// Handle processes one inbound message according to the current state.
func (in *Initiator) Handle(msg []byte) *Result {
	switch in.state {
	case stateInitSent:
		return in.handleResponse(msg)
	case stateAwaitingConfirm:
		return in.handleConfirmation(msg)
	case stateConfirmed:
		return &Result{Status: StatusConfirmed}
	case stateFailed:
		return &Result{Status: StatusFailed, Err: in.err}
	default:
		return in.fail(newError(UnexpectedMessage, fmt.Errorf("Handle called in state %d", in.state)))
	}
}

func (in *Initiator) handleResponse(msg []byte) *Result {
	logger := logrus.WithFields(logrus.Fields{"function": "Initiator.handleResponse", "package": "handshake"})

	typ, err := decodeType(msg)
	if err != nil {
		return in.fail(newError(MalformedMessage, err))
	}
	if typ != typeHandshakeResponse {
		return in.fail(newError(UnexpectedMessage, fmt.Errorf("expected %s, got %s", typeHandshakeResponse, typ)))
	}

	var resp handshakeResponseMsg
	if err := json.Unmarshal(msg, &resp); err != nil {
		return in.fail(newError(MalformedMessage, err))
	}
	if resp.SessionID != in.sessionIDStr {
		return in.fail(newError(SessionIDMismatch, fmt.Errorf("session id mismatch")))
	}
	if resp.SelectedCipher != cipherAES256GCM || resp.SelectedHash != hashSHA256 {
		return in.fail(newError(UnsupportedAlgorithm, fmt.Errorf("unsupported selection %s/%s", resp.SelectedCipher, resp.SelectedHash)))
	}

	peerPub, err := unb64(resp.PublicKey)
	if err != nil {
		return in.fail(newError(MalformedMessage, err))
	}
	peerNonce, err := unb64(resp.ConsumerNonce)
	if err != nil {
		return in.fail(newError(MalformedMessage, err))
	}
	if len(peerNonce) != nonceSize {
		return in.fail(newError(MalformedMessage, fmt.Errorf("nonce must be %d bytes", nonceSize)))
	}

	shared, err := in.keyPair.DeriveSharedSecret(peerPub)
	if err != nil {
		return in.fail(newError(InvalidPublicKey, err))
	}
	defer crypto.ZeroBytes(shared)

	derived, err := keyschedule.Derive(shared, in.nonce, peerNonce)
	if err != nil {
		return in.fail(newError(MalformedMessage, err))
	}

	in.responderPub = peerPub
	in.responderNonce = peerNonce
	in.derived = derived

	mac := initiatorMAC(derived.Confirmation[:], in.nonce, peerNonce, in.keyPair.PublicKeyBytes(), peerPub)

	out, err := json.Marshal(keyConfirmRequestMsg{
		Type:            typeKeyConfirmRequest,
		SessionID:       in.sessionIDStr,
		ConfirmationMAC: b64(mac),
	})
	if err != nil {
		return in.fail(newError(MalformedMessage, err))
	}

	in.state = stateAwaitingConfirm
	logger.Debug("key-confirmation-request sent")
	return &Result{Outbound: out, Status: StatusInProgress}
}

func (in *Initiator) handleConfirmation(msg []byte) *Result {
	logger := logrus.WithFields(logrus.Fields{"function": "Initiator.handleConfirmation", "package": "handshake"})

	typ, err := decodeType(msg)
	if err != nil {
		return in.fail(newError(MalformedMessage, err))
	}
	if typ != typeKeyConfirmation {
		return in.fail(newError(UnexpectedMessage, fmt.Errorf("expected %s, got %s", typeKeyConfirmation, typ)))
	}

	var conf keyConfirmationMsg
	if err := json.Unmarshal(msg, &conf); err != nil {
		return in.fail(newError(MalformedMessage, err))
	}
	if conf.SessionID != in.sessionIDStr {
		return in.fail(newError(SessionIDMismatch, fmt.Errorf("session id mismatch")))
	}

	echoedPub, err := unb64(conf.PublicKey)
	if err != nil {
		return in.fail(newError(MalformedMessage, err))
	}
	if !crypto.ConstantTimeEqual(echoedPub, in.responderPub) {
		return in.fail(newError(SessionIDMismatch, fmt.Errorf("echoed responder public key does not match")))
	}

	receivedMAC, err := unb64(conf.ConfirmationMAC)
	if err != nil {
		return in.fail(newError(MalformedMessage, err))
	}

	expectedMAC := responderMAC(in.derived.Confirmation[:], in.nonce, in.responderNonce, in.keyPair.PublicKeyBytes(), in.responderPub)
	if !crypto.ConstantTimeEqual(receivedMAC, expectedMAC) {
		return in.fail(newError(KeyConfirmationFailed, fmt.Errorf("confirmation MAC mismatch")))
	}

	in.keys = &SessionKeys{Encryption: in.derived.Encryption, Authentication: in.derived.Authentication}
	in.derived.Zero()
	in.state = stateConfirmed

	logger.Debug("handshake confirmed")
	res := &Result{Status: StatusConfirmed}
	observeOutcome("initiator", res, in.startedAt)
	return res
}

func (in *Initiator) fail(e *Error) *Result {
	in.state = stateFailed
	in.err = e
	res := &Result{Status: StatusFailed, Err: e}
	observeOutcome("initiator", res, in.startedAt)
	return res
}

// Destroy zeroes all key material held by this handshake and marks it
// Failed, so Confirmed, DerivedKeys, and Handle all treat it as terminally
// dead from this point on. Safe to call more than once and safe to call at
// any state.
func (in *Initiator) Destroy() {
	crypto.ZeroBytes(in.nonce)
	crypto.ZeroBytes(in.responderNonce)
	if in.keyPair != nil {
		in.keyPair.Zero()
	}
	if in.derived != nil {
		in.derived.Zero()
	}
	if in.keys != nil {
		in.keys.Zero()
	}
	if in.state != stateFailed {
		in.err = newError(UnexpectedMessage, fmt.Errorf("handshake: destroyed"))
	}
	in.state = stateFailed
}
