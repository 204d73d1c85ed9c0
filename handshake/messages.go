package handshake

import "encoding/json"

// Wire message type discriminators. Field names mirror the original
// provider/consumer framing from which Initiator/Responder are drawn, and
// must stay byte-exact: they are load-bearing for interop with any other
// implementation of this protocol.
const (
	typeHandshakeInit     = "handshake-init"
	typeHandshakeResponse = "handshake-response"
	typeKeyConfirmRequest = "key-confirmation-request"
	typeKeyConfirmation   = "key-confirmation"
	protocolVersion       = 1
	cipherAES256GCM       = "aes-256-gcm"
	hashSHA256            = "sha256"
)

// envelope is decoded first to read the discriminator before unmarshaling
// into the concrete message type.
type envelope struct {
	Type string `json:"type"`
}

type handshakeInitMsg struct {
	Type             string   `json:"type"`
	Version          int      `json:"version"`
	SessionID        string   `json:"sessionId"`
	PublicKey        string   `json:"publicKey"`
	ProviderNonce    string   `json:"providerNonce"`
	SupportedCiphers []string `json:"supportedCiphers"`
	SupportedHashes  []string `json:"supportedHashes"`
}

type handshakeResponseMsg struct {
	Type           string `json:"type"`
	SessionID      string `json:"sessionId"`
	PublicKey      string `json:"publicKey"`
	ConsumerNonce  string `json:"consumerNonce"`
	SelectedCipher string `json:"selectedCipher"`
	SelectedHash   string `json:"selectedHash"`
}

type keyConfirmRequestMsg struct {
	Type            string `json:"type"`
	SessionID       string `json:"sessionId"`
	ConfirmationMAC string `json:"confirmationMac"`
}

type keyConfirmationMsg struct {
	Type            string `json:"type"`
	SessionID       string `json:"sessionId"`
	PublicKey       string `json:"publicKey"`
	ConfirmationMAC string `json:"confirmationMac"`
}

func decodeType(msg []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}

func containsString(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
