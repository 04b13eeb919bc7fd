package ports

// Package ports defines interfaces (hexagonal ports) for forward authentication.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/oformaniuk/fwda/internal/domain/auth"
)

// ErrCacheMiss is returned by TicketCache.Get when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

// BeginInput carries inputs for initiating an auth flow.
type BeginInput struct {
	// RedirectURI is the callback URI synthesized for this request.
	RedirectURI string
}

// BeginResult holds the provider URL and the values the callback must echo.
type BeginResult struct {
	AuthURL  string
	State    string
	Nonce    string
	Verifier string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code        string
	Nonce       string
	Verifier    string
	RedirectURI string
}

// AuthProvider initiates and completes an authorization-code flow against an IdP.
type AuthProvider interface {
	// Begin builds the authorization URL with fresh state, nonce and PKCE verifier.
	Begin(ctx context.Context, in BeginInput) (BeginResult, error)

	// Exchange redeems the code, verifies the ID token and nonce, and returns
	// the provider claims, completed from the user-info endpoint.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Assertion, error)
}

// TicketCache is the distributed byte cache behind the ticket store.
// Implementations must be safe for concurrent use.
type TicketCache interface {
	// Get returns the value and refreshes its TTL to sliding. Missing keys yield ErrCacheMiss.
	Get(ctx context.Context, key string, sliding time.Duration) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// TicketStore persists session tickets referenced by opaque handles.
type TicketStore interface {
	Store(ctx context.Context, ticket *domainauth.Ticket) (domainauth.TicketHandle, error)
	Renew(ctx context.Context, handle domainauth.TicketHandle, ticket *domainauth.Ticket) error
	// Retrieve returns nil, nil for a missing, empty or unreadable handle.
	Retrieve(ctx context.Context, handle domainauth.TicketHandle) (*domainauth.Ticket, error)
	Remove(ctx context.Context, handle domainauth.TicketHandle) error
}

// KeySource supplies the master key shared by every instance.
type KeySource interface {
	MasterKey(ctx context.Context) ([]byte, error)
}
