package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

const secretSize = 32

// ErrMalformedSecret is returned for secrets that cannot have been minted by
// NewSecret.
var ErrMalformedSecret = errors.New("malformed secret")

// NewSecret returns a one-time secret for the caller and the SHA-256 hex
// digest that is persisted in its place.
func NewSecret() (plain, digest string, err error) {
	var raw [secretSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", "", err
	}
	plain = base64.RawURLEncoding.EncodeToString(raw[:])
	return plain, HashSecret(plain), nil
}

// HashSecret digests a caller-presented secret for lookup.
func HashSecret(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// ParseSecret rejects inputs that are not base64url of the expected size and
// returns the lookup digest otherwise.
func ParseSecret(plain string) (string, error) {
	plain = strings.TrimSpace(plain)
	raw, err := base64.RawURLEncoding.DecodeString(plain)
	if err != nil || len(raw) != secretSize {
		return "", ErrMalformedSecret
	}
	return HashSecret(plain), nil
}
