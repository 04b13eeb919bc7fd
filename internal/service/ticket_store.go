package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"

	domainauth "github.com/oformaniuk/fwda/internal/domain/auth"
	apperrors "github.com/oformaniuk/fwda/internal/errors"
	"github.com/oformaniuk/fwda/internal/observability/metrics"
	"github.com/oformaniuk/fwda/internal/ports"
)

var ticketJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Protector seals and opens ticket payloads.
type Protector interface {
	Protect(plaintext []byte) ([]byte, error)
	Unprotect(protected []byte) ([]byte, error)
}

// TicketStoreConfig holds tunables for TicketStore.
type TicketStoreConfig struct {
	// Timeout is the sliding TTL of every cache entry. Defaults to 60 minutes.
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// TicketStoreOptions groups dependencies for TicketStore.
type TicketStoreOptions struct {
	Cache     ports.TicketCache // Required
	Protector Protector         // Required
	Config    TicketStoreConfig
}

// TicketStore keeps encrypted session tickets in a TicketCache.
type TicketStore struct {
	cache     ports.TicketCache
	protector Protector
	timeout   time.Duration
	logger    *slog.Logger
	metrics   metrics.Recorder
}

var _ ports.TicketStore = (*TicketStore)(nil)

// NewTicketStore constructs a TicketStore.
func NewTicketStore(opts TicketStoreOptions) *TicketStore {
	if opts.Cache == nil {
		panic("TicketStore requires a Cache")
	}
	if opts.Protector == nil {
		panic("TicketStore requires a Protector")
	}
	timeout := opts.Config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Minute
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TicketStore{
		cache:     opts.Cache,
		protector: opts.Protector,
		timeout:   timeout,
		logger:    logger.With("component", "ticket_store"),
		metrics:   metrics.OrNoop(opts.Config.Metrics),
	}
}

// Store persists ticket under a fresh handle.
func (s *TicketStore) Store(ctx context.Context, ticket *domainauth.Ticket) (domainauth.TicketHandle, error) {
	if ticket == nil {
		return "", errors.New("store ticket: ticket is nil")
	}
	handle := domainauth.NewTicketHandle()
	err := s.write(ctx, handle, ticket)
	s.metrics.TicketOperation("store", metrics.Outcome(err))
	if err != nil {
		return "", fmt.Errorf("store ticket: %w", err)
	}
	return handle, nil
}

// Renew overwrites the ticket stored under handle and resets its TTL.
func (s *TicketStore) Renew(ctx context.Context, handle domainauth.TicketHandle, ticket *domainauth.Ticket) error {
	if handle == "" {
		return apperrors.ValidationField("handle", "renew requires a ticket handle")
	}
	if ticket == nil {
		return errors.New("renew ticket: ticket is nil")
	}
	err := s.write(ctx, handle, ticket)
	s.metrics.TicketOperation("renew", metrics.Outcome(err))
	if err != nil {
		return fmt.Errorf("renew ticket: %w", err)
	}
	return nil
}

// Retrieve loads the ticket for handle. Missing, malformed and undecryptable
// entries are reported as nil, nil; only cache failures are errors.
func (s *TicketStore) Retrieve(ctx context.Context, handle domainauth.TicketHandle) (*domainauth.Ticket, error) {
	if handle == "" || !handle.Valid() {
		return nil, nil
	}

	raw, err := s.cache.Get(ctx, string(handle), s.timeout)
	if errors.Is(err, ports.ErrCacheMiss) {
		s.metrics.TicketOperation("retrieve", metrics.ResultAbsent)
		return nil, nil
	}
	if err != nil {
		mapped := apperrors.MapCacheError(err)
		s.metrics.TicketOperation("retrieve", metrics.Outcome(mapped))
		return nil, fmt.Errorf("retrieve ticket: %w", mapped)
	}

	plain, err := s.protector.Unprotect(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable ticket", "error", err)
		s.metrics.TicketOperation("retrieve", metrics.ResultAbsent)
		return nil, nil
	}
	var ticket domainauth.Ticket
	if err := ticketJSON.Unmarshal(plain, &ticket); err != nil {
		s.logger.WarnContext(ctx, "discarding undecodable ticket", "error", err)
		s.metrics.TicketOperation("retrieve", metrics.ResultAbsent)
		return nil, nil
	}

	s.metrics.TicketOperation("retrieve", metrics.ResultSuccess)
	return &ticket, nil
}

// Remove deletes the ticket for handle. An empty handle is a no-op.
func (s *TicketStore) Remove(ctx context.Context, handle domainauth.TicketHandle) error {
	if handle == "" {
		return nil
	}
	err := apperrors.MapCacheError(s.cache.Delete(ctx, string(handle)))
	s.metrics.TicketOperation("remove", metrics.Outcome(err))
	if err != nil {
		return fmt.Errorf("remove ticket: %w", err)
	}
	return nil
}

func (s *TicketStore) write(ctx context.Context, handle domainauth.TicketHandle, ticket *domainauth.Ticket) error {
	payload, err := ticketJSON.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	sealed, err := s.protector.Protect(payload)
	if err != nil {
		return fmt.Errorf("protect: %w", err)
	}
	if err := s.cache.Set(ctx, string(handle), sealed, s.timeout); err != nil {
		return apperrors.MapCacheError(err)
	}
	return nil
}
