package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
)

// sha256Hex computes the Document.SHA256 digest over the raw uploaded
// bytes.
func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
