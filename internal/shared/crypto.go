package shared

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Bytes at or above this bound are rejected so that b % len(alphabet) stays uniform.
const maxUnbiased = 256 - (256 % len(alphabet))

// randRead is the secure entropy source. Replaced in tests only.
var randRead = rand.Read

// RandomString returns length characters drawn uniformly from [A-Za-z0-9] using crypto/rand.
//
// There is no fallback: if the secure source fails, the error is returned.
func RandomString(length int) (string, error) {
	if length < 0 {
		return "", fmt.Errorf("%w: negative length %d", ErrInvalidArgument, length)
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+1)
	for len(out) < length {
		if _, err := randRead(buf); err != nil {
			return "", fmt.Errorf("secure random source unavailable: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

// SHA256 returns the 32-byte digest of data.
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// Base64URL encodes data as unpadded base64url (RFC 4648 §5).
func Base64URL(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}
