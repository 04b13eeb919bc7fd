package errors

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/oformaniuk/fwda/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"app error", apperrors.Configurationf("x"), "configuration"},
		{"wrapped app error", fmt.Errorf("outer: %w", apperrors.MapCacheError(errors.New("io"))), "cache_unavailable"},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, "errors_errorstring"},
		{"plain", errors.New("boom"), "errors_errorstring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
