// Package fingerprint computes stable content-addressed identifiers for
// media payloads. Equal payload bytes always produce equal fingerprints,
// across calls and across process restarts; the fingerprint is both the
// in-batch duplicate key and the unique key in the archive.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Compute returns the canonical fingerprint of a payload: the lowercase
// hex SHA-256 digest of its bytes. Changing this algorithm invalidates
// every previously archived fingerprint, so treat it as frozen.
func Compute(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// FromReader computes the fingerprint of a stream without buffering it
// in memory.
func FromReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash payload: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
