package session

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"strings"
)

// defaultIDEntropy is the entropy of generated session ids in bytes.
const defaultIDEntropy = 25

var idEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// generateID returns an opaque, collision-resistant session id with the
// given bytes of entropy, base32-encoded in lowercase. Callers must not
// assume any internal structure.
func generateID(entropyBytes int) (string, error) {
	b := make([]byte, entropyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrIDGeneration, err)
	}
	return strings.ToLower(idEncoding.EncodeToString(b)), nil
}
