package httpx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDFromContext(t *testing.T) {
	// No id
	id, ok := RequestIDFromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, id)

	// With id
	ctx := SetRequestIDInContext(context.Background(), "req-1")
	id, ok = RequestIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
}

func TestSetRequestIDInContext_EmptyIsNoop(t *testing.T) {
	parent := context.Background()
	assert.Equal(t, parent, SetRequestIDInContext(parent, ""))
}
