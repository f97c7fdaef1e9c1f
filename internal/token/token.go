// Package token mints and verifies the opaque bearer tokens used to
// authenticate gateway requests.
//
// A token has the form pg_<64 lowercase hex chars> (32 bytes of cryptographic
// randomness). Only the SHA-256 hash of the full token string is stored; the
// secret itself is shown to the operator exactly once at mint time.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Prefix identifies gateway tokens on sight.
const Prefix = "pg_"

const (
	randomBytes = 32
	// hexLen is the encoded length of the random part.
	hexLen = randomBytes * 2
	// displayPrefixLen is how much of the token is kept for operator UX.
	displayPrefixLen = 8
)

var (
	// ErrMissingHeader is returned when no Authorization header is present.
	ErrMissingHeader = errors.New("missing authorization header")

	// ErrInvalidFormat is returned when the header carries something that is
	// not shaped like a gateway token. It short-circuits before any store hit.
	ErrInvalidFormat = errors.New("invalid token format")
)

// Minted is the result of minting a new token. Secret is returned once and
// never stored.
type Minted struct {
	Secret string
	Hash   string
	Prefix string
}

// Mint generates a fresh token from crypto/rand.
func Mint() (Minted, error) {
	buf := make([]byte, randomBytes)
	if _, err := rand.Read(buf); err != nil {
		return Minted{}, err
	}

	secret := Prefix + hex.EncodeToString(buf)
	return Minted{
		Secret: secret,
		Hash:   Hash(secret),
		Prefix: secret[:displayPrefixLen],
	}, nil
}

// Hash returns the hex-encoded SHA-256 digest of the full token string.
// This digest is the sole lookup key for token validation.
func Hash(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

// ValidFormat reports whether s is shaped like a token: correct prefix and
// total length. It does not check hex-ness; the store lookup settles that.
func ValidFormat(s string) bool {
	return strings.HasPrefix(s, Prefix) && len(s) == len(Prefix)+hexLen
}

// FromHeader extracts a token from an Authorization header value. Both
// "Bearer <token>" and a bare "<token>" are accepted.
func FromHeader(header string) (string, error) {
	if header == "" {
		return "", ErrMissingHeader
	}

	tok := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if !ValidFormat(tok) {
		return "", ErrInvalidFormat
	}
	return tok, nil
}
