package hir

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future encoding migration.
const (
	DomainFunction = "hirssa/function/v1"
	DomainSource   = "hirssa/source/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes a content hash of fn that is stable under consistent
// relabeling of identifier and block ids. Identifier names are NFC
// normalized so visually identical sources hash equally.
//
// Two fresh builds of the same source always share a fingerprint; replay
// relies on this to detect nondeterministic lowering or SSA conversion.
func Fingerprint(fn *Function) string {
	text := norm.NFC.String(PrintNormalized(fn))
	return hashWithDomain(DomainFunction, []byte(text))
}

// SourceHash computes the content hash of a source file.
func SourceHash(src []byte) string {
	return hashWithDomain(DomainSource, norm.NFC.Bytes(src))
}
