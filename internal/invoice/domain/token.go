package domain

import (
	"crypto/rand"
	"encoding/base64"
)

// NewPublicToken returns an unguessable token for payer-facing invoice links.
// 32 random bytes keeps brute-force enumeration out of reach.
func NewPublicToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
