// Package checksum derives document revisions and their HTTP entity tags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag quotes a revision for the ETag header.
func ETag(rev string) string {
	return `"` + rev + `"`
}

// ParseETag returns the revision carried by an If-Match or ETag value. Weak
// tags are accepted; "*" and empty values yield "", which matches anything.
func ParseETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	if v == "*" {
		return ""
	}
	return v
}
