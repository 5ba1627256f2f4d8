// Package confirm gates destructive operations behind a two-call protocol.
// The first call issues a short-lived single-use token without performing the
// operation; only a second call presenting that token, for the exact same
// operation and target, is allowed to proceed.
package confirm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 5 * time.Minute

var (
	// ErrUnknownToken means the token was never issued or already consumed.
	ErrUnknownToken = errors.New("confirmation token invalid or expired")
	// ErrExpiredToken means the token's expiry window has passed.
	ErrExpiredToken = errors.New("confirmation token expired")
	// ErrMismatch means the token was issued for a different operation or target.
	ErrMismatch = errors.New("confirmation token was issued for a different operation")
)

type pending struct {
	fingerprint string
	issuedAt    time.Time
	expiresAt   time.Time
}

// Registry holds pending confirmations keyed by token.
type Registry struct {
	ttl     time.Duration
	enabled bool
	now     func() time.Time

	mu      sync.Mutex
	pending map[string]pending
}

// NewRegistry creates a token registry. When enabled is false the two-phase
// handshake is bypassed entirely and Required reports false for every
// operation (trusted/automated deployments).
func NewRegistry(ttl time.Duration, enabled bool) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		ttl:     ttl,
		enabled: enabled,
		now:     time.Now,
		pending: make(map[string]pending),
	}
}

// Enabled reports whether the confirmation handshake is active.
func (r *Registry) Enabled() bool { return r.enabled }

// Issue stores a pending confirmation for the (kind, params) fingerprint and
// returns a fresh token with its expiry. The operation itself must not be
// performed until the token comes back via Consume.
func (r *Registry) Issue(kind string, params any) (string, time.Time, error) {
	fp, err := fingerprint(kind, params)
	if err != nil {
		return "", time.Time{}, err
	}

	token := uuid.New().String()
	now := r.now()
	expires := now.Add(r.ttl)

	r.mu.Lock()
	r.pending[token] = pending{fingerprint: fp, issuedAt: now, expiresAt: expires}
	r.mu.Unlock()

	return token, expires, nil
}

// Consume validates and removes a token. It succeeds only when the token
// exists, has not expired, and was issued for exactly this (kind, params)
// pair. An expired or mismatched token never performs a partial consume: the
// expired entry is removed, a mismatched one is kept for the correct retry.
func (r *Registry) Consume(token, kind string, params any) error {
	fp, err := fingerprint(kind, params)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[token]
	if !ok {
		return ErrUnknownToken
	}
	if r.now().After(p.expiresAt) {
		delete(r.pending, token)
		return ErrExpiredToken
	}
	if p.fingerprint != fp {
		return ErrMismatch
	}
	delete(r.pending, token)
	return nil
}

// Pending returns the number of outstanding confirmations.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// fingerprint canonically hashes the operation kind and parameters. Map keys
// are sorted by encoding/json, so logically equal parameter sets hash equal.
func fingerprint(kind string, params any) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("fingerprint params: %w", err)
	}
	sum := sha256.Sum256(append([]byte(kind+"\x00"), data...))
	return hex.EncodeToString(sum[:]), nil
}
