package ports_test

import (
	"testing"

	"github.com/oformaniuk/fwda/internal/mocks"
	mockauth "github.com/oformaniuk/fwda/internal/mocks/auth"
	"github.com/oformaniuk/fwda/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.AuthProvider = (*mockauth.MockAuthProvider)(nil)
	var _ ports.TicketStore = (*mockauth.MemoryTicketStore)(nil)
	var _ ports.KeySource = mockauth.StaticKeySource(nil)
	var _ ports.TicketCache = (*mocks.MockTicketCache)(nil)
}
