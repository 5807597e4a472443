package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// TokenGenerator produces session identifiers and secret tokens. Pure
// generation, no persistence.
type TokenGenerator struct{}

func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

// NewSessionID returns "session_<unix>_<hex>": the wall-clock component keeps
// ids sortable and debuggable, the 4 random bytes make collisions within the
// same second vanishingly unlikely.
func (g *TokenGenerator) NewSessionID() (string, error) {
	suffix, err := randomHex(4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("session_%d_%s", time.Now().Unix(), suffix), nil
}

// NewToken returns a 16-byte CSPRNG value, hex encoded. Holding the session
// id alone must never be enough to record attendance; the token is the
// capability.
func (g *TokenGenerator) NewToken() (string, error) {
	return randomHex(16)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
