// Package signature implements the signed-URL admission scheme.
// A signature is the HMAC-SHA-256 of the room name under the server's
// signing key, encoded as URL-safe Base64 without padding. Possession of
// a valid signature grants admission to exactly that room.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
)

var roomNamePattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// ValidRoomName reports whether room is a non-empty string of
// alphanumerics and hyphens.
func ValidRoomName(room string) bool {
	return roomNamePattern.MatchString(room)
}

// Sign computes the admission signature for room under key.
func Sign(key, room string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(room))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is the valid admission signature for room
// under key. The comparison is constant-time. A missing key never
// verifies.
func Verify(key, room, sig string) bool {
	if key == "" {
		return false
	}
	expected := Sign(key, room)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// SignedURL mints the full wire URL for room, signed under key.
// Mint and verify share the no-padding encoding.
func SignedURL(baseURL, key, room string) string {
	return fmt.Sprintf("%s/?room=%s&signature=%s",
		baseURL, url.QueryEscape(room), Sign(key, room))
}
