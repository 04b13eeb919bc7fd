package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oformaniuk/fwda/internal/ports"
	"github.com/oformaniuk/fwda/internal/testutil"
)

const handle = "AuthSession:0123456789abcdef0123456789abcdef"

func TestTicketCache_GetSliding(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewTicketCache(db)

	mock.ExpectGetEx(DefaultInstanceName+handle, time.Hour).SetVal("ciphertext")

	got, err := cache.Get(context.Background(), handle, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []byte("ciphertext"), got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketCache_GetWithoutSliding(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewTicketCacheWithPrefix(db, "test:")

	mock.ExpectGet("test:" + handle).SetVal("v")

	got, err := cache.Get(context.Background(), handle, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketCache_GetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewTicketCache(db)

	mock.ExpectGetEx(DefaultInstanceName+handle, time.Minute).RedisNil()

	_, err := cache.Get(context.Background(), handle, time.Minute)
	assert.ErrorIs(t, err, ports.ErrCacheMiss)

	_, err = cache.Get(context.Background(), "", time.Minute)
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketCache_GetFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewTicketCache(db)

	down := errors.New("connection refused")
	mock.ExpectGetEx(DefaultInstanceName+handle, time.Minute).SetErr(down)

	_, err := cache.Get(context.Background(), handle, time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, ports.ErrCacheMiss)
}

func TestTicketCache_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewTicketCache(db)

	value := []byte{0x01, 0x02, 0x03}
	mock.ExpectSet(DefaultInstanceName+handle, value, 30*time.Minute).SetVal("OK")

	require.NoError(t, cache.Set(context.Background(), handle, value, 30*time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Error(t, cache.Set(context.Background(), "", value, time.Minute))
}

func TestTicketCache_Delete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewTicketCache(db)

	mock.ExpectDel(DefaultInstanceName + handle).SetVal(1)
	require.NoError(t, cache.Delete(context.Background(), handle))

	// Empty keys never reach Redis.
	require.NoError(t, cache.Delete(context.Background(), ""))

	mock.ExpectDel(DefaultInstanceName + handle).SetErr(errors.New("down"))
	require.Error(t, cache.Delete(context.Background(), handle))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketCache_Integration(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	cache := NewTicketCacheWithPrefix(client, "fwda-test:")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, handle, []byte("payload"), time.Minute))

	got, err := cache.Get(ctx, handle, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	ttl, err := client.TTL(ctx, "fwda-test:"+handle).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Minute)

	require.NoError(t, cache.Delete(ctx, handle))
	_, err = cache.Get(ctx, handle, time.Minute)
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
}
