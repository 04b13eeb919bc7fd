package secrets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_NeverPrintsPlaintext(t *testing.T) {
	v := NewValue("hunter2")

	assert.Equal(t, "hunter2", v.Reveal())
	assert.False(t, v.IsZero())
	assert.NotContains(t, fmt.Sprintf("%v %s %+v %#v", v, v, v, v), "hunter2")

	b, err := json.Marshal(struct{ S Value }{S: v})
	require.NoError(t, err)
	assert.JSONEq(t, `{"S":"[REDACTED]"}`, string(b))

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("cfg", "secret", v)
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestValue_Zero(t *testing.T) {
	var v Value
	assert.True(t, v.IsZero())
	assert.Equal(t, "", v.String())
}
