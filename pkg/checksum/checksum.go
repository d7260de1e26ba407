// Package checksum provides content integrity digests for stored prompts.
//
// Digests are SHA-256 over the raw content bytes, rendered as lowercase
// hex. Verification is constant-time on the digest comparison so a
// checksum read from an untrusted header cannot be probed byte by byte.
package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Size is the length in bytes of a raw digest.
const Size = sha256.Size

// Digest computes the hex-encoded SHA-256 digest of content.
func Digest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the digest of content and compares it against the
// expected value. It never fails with an error: a malformed expected
// digest simply does not match. Callers translate a false return into
// their own integrity failure.
func Verify(content, expected string) bool {
	decoded, err := hex.DecodeString(expected)
	if err != nil || len(decoded) != Size {
		return false
	}
	sum := sha256.Sum256([]byte(content))
	return subtle.ConstantTimeCompare(sum[:], decoded) == 1
}
