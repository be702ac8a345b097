package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"
)

// Prefix marks every gateway credential on the wire.
// Format: gwt_<lookupId>_<secret>
// Example: gwt_9f2c4a1be0d37c55_Qm9vdHN0cmFwIHNlY3JldCB2YWx1ZSBmb3IgdGVzdA
const Prefix = "gwt"

const (
	lookupIDBytes = 8  // 16 hex chars
	secretBytes   = 32 // 43 base64url chars
	saltBytes     = 32 // 64 hex chars
)

// ErrEntropy is returned when the randomness source cannot supply bytes.
var ErrEntropy = errors.New("credential: entropy source failure")

// Credential is a freshly minted token. Plaintext must be shown to the caller
// once and never persisted.
type Credential struct {
	Plaintext string
	LookupID  string
	Hash      string
	Salt      string
}

// Codec mints and verifies gateway credentials.
type Codec struct {
	rand    io.Reader
	newHash func() hash.Hash
}

// Option customises a Codec.
type Option func(*Codec)

// WithRand replaces the randomness source (crypto/rand by default).
func WithRand(r io.Reader) Option {
	return func(c *Codec) { c.rand = r }
}

// WithHash replaces the digest constructor (SHA-256 by default).
func WithHash(fn func() hash.Hash) Option {
	return func(c *Codec) { c.newHash = fn }
}

// NewCodec builds a Codec with crypto/rand and SHA-256 unless overridden.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{rand: rand.Reader, newHash: sha256.New}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate mints a new credential.
func (c *Codec) Generate() (*Credential, error) {
	lookup, err := c.read(lookupIDBytes)
	if err != nil {
		return nil, err
	}
	secret, err := c.read(secretBytes)
	if err != nil {
		return nil, err
	}
	salt, err := c.read(saltBytes)
	if err != nil {
		return nil, err
	}

	lookupID := hex.EncodeToString(lookup)
	plaintext := fmt.Sprintf("%s_%s_%s", Prefix, lookupID, base64.RawURLEncoding.EncodeToString(secret))

	return &Credential{
		Plaintext: plaintext,
		LookupID:  lookupID,
		Hash:      hex.EncodeToString(c.digest(plaintext, salt)),
		Salt:      hex.EncodeToString(salt),
	}, nil
}

// Verify recomputes the digest of plaintext with the stored salt and compares it
// to hashHex in constant time. Malformed stored values yield false.
func (c *Codec) Verify(plaintext, hashHex, saltHex string) bool {
	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) == 0 {
		return false
	}
	want, err := hex.DecodeString(hashHex)
	if err != nil || len(want) == 0 {
		return false
	}
	got := c.digest(plaintext, salt)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// ParseLookupID extracts the public index key from a wire-format token.
func ParseLookupID(plaintext string) (string, bool) {
	// the secret alphabet includes '_', so only the first two separators count
	parts := strings.SplitN(plaintext, "_", 3)
	if len(parts) != 3 || parts[0] != Prefix {
		return "", false
	}
	lookupID, secret := parts[1], parts[2]
	if len(lookupID) != lookupIDBytes*2 || len(secret) != base64.RawURLEncoding.EncodedLen(secretBytes) {
		return "", false
	}
	if _, err := hex.DecodeString(lookupID); err != nil {
		return "", false
	}
	if _, err := base64.RawURLEncoding.DecodeString(secret); err != nil {
		return "", false
	}
	return lookupID, true
}

func (c *Codec) read(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(c.rand, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntropy, err)
	}
	return b, nil
}

func (c *Codec) digest(plaintext string, salt []byte) []byte {
	h := c.newHash()
	h.Write([]byte(plaintext))
	h.Write(salt)
	return h.Sum(nil)
}
