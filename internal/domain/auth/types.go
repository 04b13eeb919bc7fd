package auth

// Package auth contains domain-level types for forward authentication.
// It is pure and free of framework/adapter concerns.

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HandlePrefix starts every ticket handle.
const HandlePrefix = "AuthSession:"

var handlePattern = regexp.MustCompile(`^AuthSession:[0-9a-f]{32}$`)

// Principal is the minimized identity persisted for a session.
// Roles has set semantics: no duplicates, first-seen order kept.
type Principal struct {
	Subject     string   `json:"sub"`
	DisplayName string   `json:"name"`
	Roles       []string `json:"roles,omitempty"`
	Portal      string   `json:"portal"`
	ReturnURL   string   `json:"returnUrl,omitempty"`
}

// ValidFor reports whether the principal may pass an auth check for portal.
func (p *Principal) ValidFor(portal string) bool {
	return p != nil && portal != "" && p.Portal == portal
}

// Ticket is the full server-side authentication record. It is never placed
// in a cookie; the browser only holds its handle.
type Ticket struct {
	Principal       Principal `json:"principal"`
	Scheme          string    `json:"scheme"`
	Issuer          string    `json:"issuer,omitempty"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
	IssuedAt        time.Time `json:"issued_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Expired reports whether the ticket's absolute expiry is before now.
func (t *Ticket) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// NeedsRenewal reports whether more than half of the lifetime has elapsed.
func (t *Ticket) NeedsRenewal(now time.Time) bool {
	if t.IssuedAt.IsZero() || t.ExpiresAt.IsZero() {
		return false
	}
	half := t.ExpiresAt.Sub(t.IssuedAt) / 2
	return now.After(t.IssuedAt.Add(half))
}

// TicketHandle is the opaque, unguessable reference to a stored ticket.
type TicketHandle string

// NewTicketHandle returns "AuthSession:" followed by 32 lowercase hex chars
// taken from a random UUID.
func NewTicketHandle() TicketHandle {
	return TicketHandle(HandlePrefix + strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Valid reports whether h has the shape produced by NewTicketHandle.
func (h TicketHandle) Valid() bool {
	return handlePattern.MatchString(string(h))
}

func (h TicketHandle) String() string { return string(h) }

// Assertion is what a provider vouched for after a successful code exchange.
type Assertion struct {
	Issuer          string
	Claims          map[string]any
	AuthenticatedAt time.Time
}
