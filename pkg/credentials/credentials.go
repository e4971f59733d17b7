// Package credentials manages bearer tokens for orchestrator access.
//
// A credential manager issues tokens scoped to a project; this package
// never inspects token contents, it only stores and expires them. Two
// backends are provided: FileStore for CLI use (tokens as files in the
// user's config directory) and RedisStore for multi-instance deployments.
package credentials

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for token operations.
var (
	// ErrNotFound is returned when no token is stored for a project/scope.
	ErrNotFound = errors.New("token not found")

	// ErrExpired is returned when a stored token has exceeded its lifetime.
	ErrExpired = errors.New("token expired")
)

// Token is a bearer token for one project and scope. The token string is
// opaque; expiry is tracked locally so callers refresh before the
// orchestrator rejects a call.
type Token struct {
	Project   string    `json:"project"`
	Scope     string    `json:"scope"`
	Bearer    string    `json:"bearer"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired returns true if the token has expired. Tokens without an
// expiry never expire.
func (t *Token) IsExpired() bool {
	return !t.ExpiresAt.IsZero() && time.Now().After(t.ExpiresAt)
}

// Key returns the storage key for a project/scope pair.
func (t *Token) Key() string {
	return Key(t.Project, t.Scope)
}

// Key builds the storage key for a project/scope pair.
func Key(project, scope string) string {
	return project + ":" + scope
}

// Store is the interface for token storage backends.
type Store interface {
	// Get retrieves the token for a project/scope.
	// Returns ErrNotFound when absent and ErrExpired when stale.
	Get(ctx context.Context, project, scope string) (*Token, error)

	// Set stores a token under its project/scope key.
	Set(ctx context.Context, token *Token) error

	// Delete removes a token. Deleting an absent token is not an error.
	Delete(ctx context.Context, project, scope string) error

	// Close releases backend resources.
	Close() error
}

// DefaultTTL is the lifetime assumed for tokens issued without an
// explicit expiry.
const DefaultTTL = time.Hour

// New creates a token for a project/scope with the given lifetime.
// A ttl of 0 produces a token that never expires locally.
func New(project, scope, bearer string, ttl time.Duration) *Token {
	now := time.Now()
	t := &Token{
		Project:   project,
		Scope:     scope,
		Bearer:    bearer,
		CreatedAt: now,
	}
	if ttl > 0 {
		t.ExpiresAt = now.Add(ttl)
	}
	return t
}
