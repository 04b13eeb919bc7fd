package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oformaniuk/fwda/internal/adapters/memcache"
	"github.com/oformaniuk/fwda/internal/data/cryptoutil"
	domainauth "github.com/oformaniuk/fwda/internal/domain/auth"
	apperrors "github.com/oformaniuk/fwda/internal/errors"
	"github.com/oformaniuk/fwda/internal/mocks"
	"github.com/oformaniuk/fwda/internal/ports"
	"github.com/oformaniuk/fwda/internal/testutil"
)

type recordingMetrics struct {
	mu     sync.Mutex
	events []string
}

func (m *recordingMetrics) add(kind, a, b string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, kind+":"+a+":"+b)
}

func (m *recordingMetrics) AuthCheck(p, r string) { m.add("auth", p, r) }
func (m *recordingMetrics) Challenge(p, o string) { m.add("challenge", p, o) }
func (m *recordingMetrics) Callback(p, o string) { m.add("callback", p, o) }
func (m *recordingMetrics) TicketOperation(op, o string) { m.add("ticket", op, o) }

func (m *recordingMetrics) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

func testProtector(t *testing.T) *cryptoutil.AESGCMProtector {
	t.Helper()
	p, err := cryptoutil.ForPurpose(make([]byte, cryptoutil.KeySize), cryptoutil.PurposeTicketStore)
	require.NoError(t, err)
	return p
}

func sampleTicket(now time.Time) *domainauth.Ticket {
	return &domainauth.Ticket{
		Principal: domainauth.Principal{
			Subject:     "user-1",
			DisplayName: "alice",
			Roles:       []string{"admin", "dev"},
			Portal:      "portal1",
			ReturnURL:   "https://app.example.com/x",
		},
		Scheme:          "cookie-portal1",
		Issuer:          "https://idp.example.com",
		AuthenticatedAt: now,
		IssuedAt:        now,
		ExpiresAt:       now.Add(time.Hour),
	}
}

func newMemoryTicketStore(t *testing.T) (*TicketStore, *memcache.TicketCache, *recordingMetrics) {
	t.Helper()
	cache := memcache.NewTicketCache()
	rec := &recordingMetrics{}
	store := NewTicketStore(TicketStoreOptions{
		Cache:     cache,
		Protector: testProtector(t),
		Config:    TicketStoreConfig{Timeout: time.Hour, Metrics: rec},
	})
	return store, cache, rec
}

func TestTicketStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _, rec := newMemoryTicketStore(t)
	now := testutil.TestTime()
	want := sampleTicket(now)

	handle, err := store.Store(ctx, want)
	require.NoError(t, err)
	assert.True(t, handle.Valid())

	got, err := store.Retrieve(ctx, handle)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Principal, got.Principal)
	assert.Equal(t, want.Scheme, got.Scheme)
	assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))

	assert.Equal(t, []string{"ticket:store:success", "ticket:retrieve:success"}, rec.Events())
}

func TestTicketStore_DistinctHandles(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newMemoryTicketStore(t)
	ticket := sampleTicket(time.Now())

	h1, err := store.Store(ctx, ticket)
	require.NoError(t, err)
	h2, err := store.Store(ctx, ticket)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestTicketStore_RemoveThenRetrieve(t *testing.T) {
	ctx := context.Background()
	store, cache, _ := newMemoryTicketStore(t)

	handle, err := store.Store(ctx, sampleTicket(time.Now()))
	require.NoError(t, err)
	require.NoError(t, store.Remove(ctx, handle))
	assert.Zero(t, cache.Len())

	got, err := store.Retrieve(ctx, handle)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTicketStore_Renew(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newMemoryTicketStore(t)
	now := time.Now().UTC()
	ticket := sampleTicket(now)

	handle, err := store.Store(ctx, ticket)
	require.NoError(t, err)

	ticket.IssuedAt = now.Add(40 * time.Minute)
	ticket.ExpiresAt = ticket.IssuedAt.Add(time.Hour)
	require.NoError(t, store.Renew(ctx, handle, ticket))

	got, err := store.Retrieve(ctx, handle)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, ticket.ExpiresAt.Equal(got.ExpiresAt))
}

func TestTicketStore_RenewEmptyHandle(t *testing.T) {
	store, _, _ := newMemoryTicketStore(t)
	err := store.Renew(context.Background(), "", sampleTicket(time.Now()))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestTicketStore_EmptyAndMalformedHandles(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockTicketCache(ctrl)
	store := NewTicketStore(TicketStoreOptions{Cache: cache, Protector: testProtector(t)})

	for _, h := range []domainauth.TicketHandle{"", "AuthSession:short", "other"} {
		got, err := store.Retrieve(context.Background(), h)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	require.NoError(t, store.Remove(context.Background(), ""))
}

func TestTicketStore_CorruptedEntryIsAbsent(t *testing.T) {
	tests := []struct {
		name string
		raw  func(t *testing.T) []byte
	}{
		{
			name: "garbage bytes",
			raw:  func(*testing.T) []byte { return []byte("not a sealed ticket") },
		},
		{
			name: "sealed with another key",
			raw: func(t *testing.T) []byte {
				other, err := cryptoutil.ForPurpose([]byte("0123456789abcdef0123456789abcdef"), cryptoutil.PurposeTicketStore)
				require.NoError(t, err)
				out, err := other.Protect([]byte(`{"principal":{"sub":"x"}}`))
				require.NoError(t, err)
				return out
			},
		},
		{
			name: "sealed but not json",
			raw: func(t *testing.T) []byte {
				out, err := testProtector(t).Protect([]byte("{{{"))
				require.NoError(t, err)
				return out
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			cache := mocks.NewMockTicketCache(ctrl)
			handle := domainauth.NewTicketHandle()
			cache.EXPECT().Get(gomock.Any(), string(handle), 30*time.Minute).Return(tt.raw(t), nil)

			store := NewTicketStore(TicketStoreOptions{
				Cache:     cache,
				Protector: testProtector(t),
				Config:    TicketStoreConfig{Timeout: 30 * time.Minute},
			})
			got, err := store.Retrieve(context.Background(), handle)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestTicketStore_CacheMissIsAbsent(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockTicketCache(ctrl)
	handle := domainauth.NewTicketHandle()
	cache.EXPECT().Get(gomock.Any(), string(handle), time.Hour).Return(nil, ports.ErrCacheMiss)

	store := NewTicketStore(TicketStoreOptions{Cache: cache, Protector: testProtector(t)})
	got, err := store.Retrieve(context.Background(), handle)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTicketStore_CacheDown(t *testing.T) {
	down := errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
	handle := domainauth.NewTicketHandle()

	t.Run("retrieve", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockTicketCache(ctrl)
		cache.EXPECT().Get(gomock.Any(), string(handle), gomock.Any()).Return(nil, down)
		rec := &recordingMetrics{}
		store := NewTicketStore(TicketStoreOptions{
			Cache:     cache,
			Protector: testProtector(t),
			Config:    TicketStoreConfig{Metrics: rec},
		})

		got, err := store.Retrieve(context.Background(), handle)
		require.Error(t, err)
		assert.Nil(t, got)
		assert.True(t, apperrors.IsCacheUnavailable(err))
		assert.Equal(t, []string{"ticket:retrieve:cache_unavailable"}, rec.Events())
	})

	t.Run("store", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockTicketCache(ctrl)
		cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), time.Hour).Return(down)
		store := NewTicketStore(TicketStoreOptions{Cache: cache, Protector: testProtector(t)})

		_, err := store.Store(context.Background(), sampleTicket(time.Now()))
		require.Error(t, err)
		assert.True(t, apperrors.IsCacheUnavailable(err))
	})

	t.Run("remove", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockTicketCache(ctrl)
		cache.EXPECT().Delete(gomock.Any(), string(handle)).Return(down)
		store := NewTicketStore(TicketStoreOptions{Cache: cache, Protector: testProtector(t)})

		err := store.Remove(context.Background(), handle)
		require.Error(t, err)
		assert.True(t, apperrors.IsCacheUnavailable(err))
	})
}

func TestTicketStore_StoredBytesAreEncrypted(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockTicketCache(ctrl)
	var stored []byte
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), time.Hour).
		DoAndReturn(func(_ context.Context, key string, value []byte, _ time.Duration) error {
			assert.True(t, domainauth.TicketHandle(key).Valid())
			stored = value
			return nil
		})

	store := NewTicketStore(TicketStoreOptions{Cache: cache, Protector: testProtector(t)})
	_, err := store.Store(context.Background(), sampleTicket(time.Now()))
	require.NoError(t, err)
	assert.NotContains(t, string(stored), "alice")
	assert.NotContains(t, string(stored), "portal1")
}

func TestNewTicketStore_PanicsWithoutDependencies(t *testing.T) {
	assert.Panics(t, func() { NewTicketStore(TicketStoreOptions{Protector: testProtector(t)}) })
	assert.Panics(t, func() { NewTicketStore(TicketStoreOptions{Cache: memcache.NewTicketCache()}) })
}
