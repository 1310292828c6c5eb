// Package cryptoutil provides digest helpers for generated secrets
package cryptoutil

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// FingerprintSize is the number of digest bytes kept in a fingerprint
const FingerprintSize = 8

// Bytes2Hex encodes a byte slice to hex string
func Bytes2Hex(d []byte) string {
	return hex.EncodeToString(d)
}

// Fingerprint returns a short BLAKE2b-256 digest of value, hex encoded.
// It identifies a secret without revealing it.
func Fingerprint(value string) string {
	sum := blake2b.Sum256([]byte(value))
	return Bytes2Hex(sum[:FingerprintSize])
}
