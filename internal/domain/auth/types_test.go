package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTicketHandle(t *testing.T) {
	a := NewTicketHandle()
	b := NewTicketHandle()

	assert.True(t, a.Valid(), a)
	assert.Len(t, string(a), len(HandlePrefix)+32)
	assert.NotEqual(t, a, b)
}

func TestTicketHandle_Valid(t *testing.T) {
	tests := []struct {
		handle TicketHandle
		want   bool
	}{
		{"AuthSession:0123456789abcdef0123456789abcdef", true},
		{"AuthSession:0123456789ABCDEF0123456789ABCDEF", false},
		{"AuthSession:0123", false},
		{"Other:0123456789abcdef0123456789abcdef", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.handle), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.handle.Valid())
		})
	}
}

func TestPrincipal_ValidFor(t *testing.T) {
	var nilPrincipal *Principal
	assert.False(t, nilPrincipal.ValidFor("p"))

	p := &Principal{Subject: "u1", Portal: "p"}
	assert.True(t, p.ValidFor("p"))
	assert.False(t, p.ValidFor("q"))
	assert.False(t, (&Principal{}).ValidFor(""))
}

func TestTicket_Lifetime(t *testing.T) {
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tk := Ticket{IssuedAt: issued, ExpiresAt: issued.Add(60 * time.Minute)}

	assert.False(t, tk.NeedsRenewal(issued.Add(10*time.Minute)))
	assert.True(t, tk.NeedsRenewal(issued.Add(31*time.Minute)))
	assert.False(t, tk.Expired(issued.Add(59*time.Minute)))
	assert.True(t, tk.Expired(issued.Add(61*time.Minute)))

	assert.False(t, (&Ticket{}).NeedsRenewal(issued))
	assert.False(t, (&Ticket{}).Expired(issued))
}

func TestSchemeNames(t *testing.T) {
	assert.Equal(t, "cookie-portal1", CookieScheme("portal1"))
	assert.Equal(t, "oidc-portal1", OIDCScheme("portal1"))
	assert.Equal(t, "fwda-portal1", CookieName("portal1"))
	assert.Equal(t, "fwda-oidc-portal1", CorrelationCookieName("portal1"))
	assert.Equal(t, "/callback/portal1", CallbackPath("portal1"))
}
