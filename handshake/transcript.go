package handshake

import "github.com/subtylsocket/subtylsocket/crypto"

// initiatorMAC computes MAC_I = HMAC(Kconf, N_I || N_R || PK_I || PK_R), the
// tag the initiator sends to prove it derived the same confirmation key.
func initiatorMAC(confirmationKey, initiatorNonce, responderNonce, initiatorPub, responderPub []byte) []byte {
	transcript := make([]byte, 0, len(initiatorNonce)+len(responderNonce)+len(initiatorPub)+len(responderPub))
	transcript = append(transcript, initiatorNonce...)
	transcript = append(transcript, responderNonce...)
	transcript = append(transcript, initiatorPub...)
	transcript = append(transcript, responderPub...)
	return crypto.HMACSHA256(confirmationKey, transcript)
}

// responderMAC computes MAC_R = HMAC(Kconf, N_R || N_I || PK_R || PK_I), the
// mirrored transcript ordering so neither tag can be replayed as the other.
func responderMAC(confirmationKey, initiatorNonce, responderNonce, initiatorPub, responderPub []byte) []byte {
	transcript := make([]byte, 0, len(initiatorNonce)+len(responderNonce)+len(initiatorPub)+len(responderPub))
	transcript = append(transcript, responderNonce...)
	transcript = append(transcript, initiatorNonce...)
	transcript = append(transcript, responderPub...)
	transcript = append(transcript, initiatorPub...)
	return crypto.HMACSHA256(confirmationKey, transcript)
}
