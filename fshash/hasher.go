/*
	Package fshash implements the running content digest shared by the
	archive walker and the extractor.

	One Hasher is allocated per operation and its sum is taken exactly
	once.  All bytes pass through line-ending normalization first, so the
	digest is stable across platforms that disagree about newlines.

	The two directions feed the hasher differently, on purpose: the
	build-side walker mixes each file's relative path into the digest
	(content, then "\n", then path), while the extract-side verification
	digest covers content only.  The two sums are separate, non-comparable
	values; do not unify them.
*/
package fshash

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"hash"
)

var (
	crlf = []byte("\r\n")
	cr   = []byte("\r")
	lf   = []byte("\n")
)

// Normalize rewrites every CRLF pair and every lone CR to a single LF.
func Normalize(b []byte) []byte {
	b = bytes.ReplaceAll(b, crlf, lf)
	return bytes.ReplaceAll(b, cr, lf)
}

// Hasher accumulates a SHA-256 digest over normalized bytes.
type Hasher struct {
	h hash.Hash
}

func New() *Hasher {
	return &Hasher{h: sha256.New()}
}

// WriteNormalized feeds one complete chunk through normalization and into
// the digest.  Callers hand in whole file contents, never partial reads:
// a CRLF split across two calls would normalize wrong.
func (h *Hasher) WriteNormalized(b []byte) {
	h.h.Write(Normalize(b))
}

// WriteStringNormalized is WriteNormalized for text inputs.
func (h *Hasher) WriteStringNormalized(s string) {
	h.h.Write(Normalize([]byte(s)))
}

// SumBase64 finalizes the digest as a base64 string.  Call once.
func (h *Hasher) SumBase64() string {
	return base64.StdEncoding.EncodeToString(h.h.Sum(nil))
}

// SumBytesBase64 digests a single normalized chunk in one shot.
// The walker uses it for per-file debug dump lines.
func SumBytesBase64(b []byte) string {
	sum := sha256.Sum256(Normalize(b))
	return base64.StdEncoding.EncodeToString(sum[:])
}
