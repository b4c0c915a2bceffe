// Package token implements the shared-token authorization scheme.
//
// Credentials are opaque bearer secrets. The service only ever stores a
// salted one-way digest of each secret, encoded as a single string; the
// plaintext is presented verbatim by callers on every request and compared
// against the stored list. Revoked entries are replaced in place with a
// sentinel so list positions stay stable for external references.
package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Revoked is the sentinel stored in place of a credential's hash to
// permanently invalidate it. Verification against it always fails.
const Revoked = "REVOKED"

const saltSize = 16

// Issue hashes a fresh secret for persistence. The returned entry is
// hex(digest) + "$" + hex(salt); the plaintext secret is never stored.
func Issue(secret string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	return hex.EncodeToString(digest(salt, secret)) + "$" + hex.EncodeToString(salt), nil
}

// Verify reports whether the presented secret matches a stored entry.
// A revoked or malformed entry never matches, regardless of input.
func Verify(entry, secret string) bool {
	if entry == Revoked {
		return false
	}

	digestHex, saltHex, ok := strings.Cut(entry, "$")
	if !ok {
		return false
	}
	want, err := hex.DecodeString(digestHex)
	if err != nil {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(want, digest(salt, secret)) == 1
}

// Revoke replaces every entry matching the presented secret with the
// sentinel, in place, preserving positions. Non-matching entries, including
// already-revoked sentinels, are untouched.
func Revoke(entries []string, secret string) []string {
	for i, entry := range entries {
		if Verify(entry, secret) {
			entries[i] = Revoked
		}
	}
	return entries
}

// Authenticate is the per-request authorization decision: true iff the
// presented secret verifies against at least one non-revoked entry. An
// absent secret is simply unauthenticated, never an error.
func Authenticate(entries []string, secret string) bool {
	if secret == "" {
		return false
	}
	for _, entry := range entries {
		if Verify(entry, secret) {
			return true
		}
	}
	return false
}

func digest(salt []byte, secret string) []byte {
	h := sha3.New256()
	h.Write(salt)
	h.Write([]byte(secret))
	return h.Sum(nil)
}
