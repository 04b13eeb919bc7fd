package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	domainauth "github.com/oformaniuk/fwda/internal/domain/auth"
	"github.com/oformaniuk/fwda/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider = (*MockAuthProvider)(nil)
	_ ports.TicketStore  = (*MemoryTicketStore)(nil)
	_ ports.KeySource    = StaticKeySource(nil)
)

// MockAuthProvider simulates an IdP for tests with deterministic state/nonce handling.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (ports.BeginResult, error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Assertion, error)

	// Deterministic values for predictable testing
	AuthURL       string
	StatePrefix   string
	NoncePrefix   string
	Issuer        string
	DefaultClaims map[string]any

	mu           sync.Mutex
	callCount    int
	LastBegin    ports.BeginInput
	LastExchange ports.ExchangeInput
}

// NewMockAuthProvider creates a MockAuthProvider with sensible defaults.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL:     "https://mock-idp/auth",
		StatePrefix: "state",
		NoncePrefix: "nonce",
		Issuer:      "https://mock-idp",
		DefaultClaims: map[string]any{
			"sub":                "mock-user-1",
			"preferred_username": "mock.user",
			"name":               "Mock User",
			"email":              "mock.user@example.com",
			"roles":              []any{"users"},
		},
	}
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (ports.BeginResult, error) {
	m.mu.Lock()
	m.LastBegin = in
	m.callCount++
	n := m.callCount
	m.mu.Unlock()

	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}

	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	statePrefix := m.StatePrefix
	if statePrefix == "" {
		statePrefix = "state"
	}
	noncePrefix := m.NoncePrefix
	if noncePrefix == "" {
		noncePrefix = "nonce"
	}

	res := ports.BeginResult{
		State:    fmt.Sprintf("%s-%d", statePrefix, n),
		Nonce:    fmt.Sprintf("%s-%d", noncePrefix, n),
		Verifier: fmt.Sprintf("verifier-%d", n),
	}
	q := url.Values{}
	q.Set("state", res.State)
	q.Set("nonce", res.Nonce)
	q.Set("redirect_uri", in.RedirectURI)
	res.AuthURL = authURL + "?" + q.Encode()
	return res, nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Assertion, error) {
	m.mu.Lock()
	m.LastExchange = in
	m.mu.Unlock()

	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}

	claims := make(map[string]any, len(m.DefaultClaims))
	for k, v := range m.DefaultClaims {
		claims[k] = v
	}
	return domainauth.Assertion{
		Issuer:          m.Issuer,
		Claims:          claims,
		AuthenticatedAt: time.Now(),
	}, nil
}

// Calls returns how many times Begin was invoked.
func (m *MockAuthProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// MemoryTicketStore is an in-memory ticket store for unit tests.
type MemoryTicketStore struct {
	mu      sync.Mutex
	tickets map[domainauth.TicketHandle]domainauth.Ticket

	// Err, when set, is returned by every operation.
	Err error
}

// NewMemoryTicketStore creates a new in-memory ticket store.
func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{tickets: make(map[domainauth.TicketHandle]domainauth.Ticket)}
}

func (m *MemoryTicketStore) Store(_ context.Context, t *domainauth.Ticket) (domainauth.TicketHandle, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if t == nil {
		return "", errors.New("ticket cannot be nil")
	}
	h := domainauth.NewTicketHandle()
	m.mu.Lock()
	m.tickets[h] = *t
	m.mu.Unlock()
	return h, nil
}

func (m *MemoryTicketStore) Renew(_ context.Context, h domainauth.TicketHandle, t *domainauth.Ticket) error {
	if m.Err != nil {
		return m.Err
	}
	if h == "" {
		return errors.New("ticket handle cannot be empty")
	}
	m.mu.Lock()
	m.tickets[h] = *t
	m.mu.Unlock()
	return nil
}

func (m *MemoryTicketStore) Retrieve(_ context.Context, h domainauth.TicketHandle) (*domainauth.Ticket, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[h]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *MemoryTicketStore) Remove(_ context.Context, h domainauth.TicketHandle) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	delete(m.tickets, h)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored tickets.
func (m *MemoryTicketStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickets)
}

// StaticKeySource returns a fixed master key.
type StaticKeySource []byte

func (s StaticKeySource) MasterKey(context.Context) ([]byte, error) {
	if len(s) == 0 {
		return nil, errors.New("no master key")
	}
	return []byte(s), nil
}
