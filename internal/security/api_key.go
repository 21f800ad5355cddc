package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// apiKeyPrefix is the namespace tag for generated gateway API keys.
const apiKeyPrefix = "gw"

// previewLen is the number of digest characters exposed in key listings.
const previewLen = 8

// GenerateAPIKey creates a new random API key secret and its digest.
//
// The secret has the form gw_<environment>_<random> with 256 bits of
// entropy, URL-safe encoded. The plaintext is shown to the caller exactly
// once; only the digest is ever persisted.
func GenerateAPIKey(environment string) (plaintext string, digest string, err error) {
	secret := make([]byte, 32)
	if _, err = io.ReadFull(rand.Reader, secret); err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	plaintext = apiKeyPrefix + "_" + environment + "_" + base64.RawURLEncoding.EncodeToString(secret)
	return plaintext, HashAPIKey(plaintext), nil
}

// HashAPIKey returns the SHA-256 hex digest of an API key secret. This is
// the only representation of the secret ever written to the store.
func HashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// DigestPreview returns a short fixed-length prefix of a key digest for
// human identification in listings. Never reveals the full digest.
func DigestPreview(digest string) string {
	if len(digest) <= previewLen {
		return digest
	}
	return digest[:previewLen] + "..."
}
