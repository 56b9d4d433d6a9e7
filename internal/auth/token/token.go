// Package token issues the opaque refresh tokens handed to clients. Only
// their SHA-256 digest is ever stored.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// RefreshSize is the entropy of a refresh token in bytes.
const RefreshSize = 48

// Refresh is a freshly minted refresh token and its storage digest.
type Refresh struct {
	Raw  string
	Hash string
}

// NewRefresh mints a random refresh token.
func NewRefresh() (Refresh, error) {
	b := make([]byte, RefreshSize)
	if _, err := rand.Read(b); err != nil {
		return Refresh{}, err
	}
	raw := base64.RawURLEncoding.EncodeToString(b)
	return Refresh{Raw: raw, Hash: Hash(raw)}, nil
}

// Hash is the storage digest of a raw refresh token.
func Hash(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
