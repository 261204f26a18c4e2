package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Digest is the keyed one-way hash of a SourceID.
type Digest [sha256.Size]byte

// Hash computes HMAC-SHA256(secret, plaintext).
// An empty or whitespace-only secret is rejected so nothing is ever hashed unkeyed.
func Hash(secret string, plaintext SourceID) (Digest, error) {
	if err := validateSecret(secret); err != nil {
		return Digest{}, err
	}
	return digest(secret, plaintext), nil
}

func validateSecret(secret string) error {
	if strings.TrimSpace(secret) == "" {
		return ErrInvalidKey
	}
	return nil
}

// digest assumes the secret has already been validated.
func digest(secret string, plaintext SourceID) Digest {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(plaintext))

	var d Digest
	copy(d[:], mac.Sum(nil))
	return d
}

// String returns the lowercase hex form.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDigest parses the hex form produced by Digest.String.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("could not decode digest: %w", err)
	}
	if len(raw) != len(d) {
		return d, fmt.Errorf("digest must be %d bytes, got %d", len(d), len(raw))
	}
	copy(d[:], raw)
	return d, nil
}
