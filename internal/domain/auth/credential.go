// Package auth authenticates API credentials via HMAC-SHA256 hashed keys.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// Scopes attached to credentials.
const (
	ScopeAdmin    = "admin"
	ScopeCustomer = "customer"
)

var (
	// ErrNotFound is returned when no active credential matches a hash.
	ErrNotFound = errors.New("credential not found")
	// ErrUnauthorized is returned for any presented key that does not
	// resolve to an active credential.
	ErrUnauthorized = errors.New("unauthorized")
)

// Credential holds the identity and permission data for a validated key.
type Credential struct {
	ID      string
	KeyHash string
	Name    string
	// UserID ties customer credentials to their carts and orders.
	UserID string
	Scopes []string
}

// HasScope reports whether the credential carries the given scope.
func (c *Credential) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Admin reports whether the credential carries the admin scope.
func (c *Credential) Admin() bool {
	return c.HasScope(ScopeAdmin)
}

// Repository provides lookup of credentials by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*Credential, error)
}

// Verifier authenticates presented keys by computing their HMAC-SHA256
// under a server-side pepper and comparing against the stored hash in
// constant time.
type Verifier struct {
	creds  Repository
	pepper []byte
}

func NewVerifier(creds Repository, pepper []byte) *Verifier {
	return &Verifier{creds: creds, pepper: pepper}
}

// HashKey returns the hex HMAC-SHA256 of a raw key under the pepper.
// Seeding and verification must agree on this.
func (v *Verifier) HashKey(key string) string {
	mac := hmac.New(sha256.New, v.pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify resolves a presented key to its credential. Every failure mode
// collapses to ErrUnauthorized so callers leak nothing about why.
func (v *Verifier) Verify(ctx context.Context, key string) (*Credential, error) {
	mac := hmac.New(sha256.New, v.pepper)
	mac.Write([]byte(key))
	hash := mac.Sum(nil)
	hexHash := hex.EncodeToString(hash)

	cred, err := v.creds.FindByHash(ctx, hexHash)
	if err != nil {
		return nil, ErrUnauthorized
	}

	// Constant-time comparison guards against timing side-channels even
	// though the lookup already succeeded.
	storedBytes, err := hex.DecodeString(cred.KeyHash)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(hash, storedBytes) != 1 {
		return nil, ErrUnauthorized
	}

	return cred, nil
}
