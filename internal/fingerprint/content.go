// Package fingerprint computes the opaque photo fingerprints forwarded to
// external duplicate-submission tracking, and the short reference codes
// handed back to submitters. Fingerprints are never used to re-derive the
// image.
package fingerprint

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// submissionCodeAlphabet avoids lowercase to keep codes easy to read back
// over the phone.
const (
	submissionCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	submissionCodeLength   = 8
)

// ContentHash returns the SHA-256 hex digest of the raw photo bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NewSubmissionCode generates an 8-character reference code (A-Z, 0-9).
func NewSubmissionCode() string {
	buf := make([]byte, submissionCodeLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	code := make([]byte, submissionCodeLength)
	for i, b := range buf {
		code[i] = submissionCodeAlphabet[int(b)%len(submissionCodeAlphabet)]
	}
	return string(code)
}
