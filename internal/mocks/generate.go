// Package mocks provides generated mock implementations of fwda ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks.
// Hand-written doubles live in the auth subpackage.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	cache := mocks.NewMockTicketCache(ctrl)
//	cache.EXPECT().Get(gomock.Any(), "k", time.Hour).Return(nil, ports.ErrCacheMiss)
package mocks

// Generate mock for TicketCache interface from internal/ports package.
// This creates MockTicketCache with methods for all TicketCache interface methods:
// Get, Set, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ticket_cache_mock.go github.com/oformaniuk/fwda/internal/ports TicketCache
