package ir

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/roach88/nlq/internal/errors"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainQuery     = "nlq/query/v1"
	DomainStatement = "nlq/statement/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content-addressed identity of a canonical object
// under the given domain prefix. Equal objects always hash equal, so two
// compilations of the same request can be compared by fingerprint alone.
func Fingerprint(domain string, obj IRObject) (string, error) {
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", errors.Wrap(err, "fingerprint")
	}
	return hashWithDomain(domain, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(domain string, obj IRObject) string {
	fp, err := Fingerprint(domain, obj)
	if err != nil {
		panic(err)
	}
	return fp
}
