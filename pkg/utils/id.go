package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// Uid2 returns a random URL-safe base64 string of the given byte length,
// used as a node's identity (uid) and as the correlation id (muid) on an
// outgoing clients-request so responses can be matched to their query.
func Uid2(length int) (string, error) {
	r := make([]byte, length)
	if _, err := rand.Read(r); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(r), nil
}
