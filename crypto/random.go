package crypto

import (
	"crypto/rand"

	"github.com/sirupsen/logrus"
)

// SecureRandom draws size bytes from the OS CSPRNG and rejects a
// catastrophically broken source: a buffer that comes back all-zero or
// all-0xFF. This is a cheap sanity check, not a statistical test — it
// catches a /dev/urandom misconfiguration or a stubbed-out reader, nothing
// subtler.
func SecureRandom(size int) ([]byte, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "SecureRandom",
		"package":  "crypto",
		"size":     size,
	})

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		logger.WithField("error", err.Error()).Error("CSPRNG read failed")
		return nil, err
	}

	if isDegenerate(buf) {
		logger.Error("CSPRNG returned an all-zero or all-0xFF buffer")
		return nil, ErrInsufficientEntropy
	}

	return buf, nil
}

// isDegenerate reports whether buf is entirely 0x00 or entirely 0xFF.
func isDegenerate(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}
	allZero, allFF := true, true
	for _, b := range buf {
		if b != 0x00 {
			allZero = false
		}
		if b != 0xFF {
			allFF = false
		}
		if !allZero && !allFF {
			return false
		}
	}
	return allZero || allFF
}
