package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
)

// Hash returns the hex SHA-256 of the parts joined with a NUL separator.
func Hash(parts ...string) string {
	hasher := sha256.New()
	for i, p := range parts {
		if i > 0 {
			hasher.Write([]byte{0})
		}
		hasher.Write([]byte(p))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// StableURLKey hashes a URL without its query string and fragment, so
// re-signed links to the same object share a key.
func StableURLKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return Hash(raw)
	}
	return Hash(u.Scheme, u.Host, u.Path)
}
