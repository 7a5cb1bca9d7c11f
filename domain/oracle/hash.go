package oracle

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeCommitHash returns SHA-256 of the concatenation of value and salt
// as UTF-8 bytes without a separator.
func ComputeCommitHash(value, salt string) CommitHash {
	return CommitHash(sha256.Sum256([]byte(value + salt)))
}

// ParseCommitHash decodes a 64-character lowercase hex string into a
// CommitHash. It rejects anything that is not exactly 32 bytes once decoded.
func ParseCommitHash(s string) (CommitHash, bool) {
	if len(s) != 64 {
		return CommitHash{}, false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return CommitHash{}, false
		}
	}
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return CommitHash{}, false
	}
	var h CommitHash
	copy(h[:], b)
	return h, true
}

// String renders h as lowercase hex.
func (h CommitHash) String() string {
	return hex.EncodeToString(h[:])
}
