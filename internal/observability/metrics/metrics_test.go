package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/oformaniuk/fwda/internal/errors"
)

func TestPrometheus_Counters(t *testing.T) {
	p := NewPrometheus()

	p.AuthCheck("portal1", ResultAuthenticated)
	p.AuthCheck("portal1", ResultAuthenticated)
	p.AuthCheck("portal2", ResultAnonymous)
	p.Challenge("portal1", ResultRedirected)
	p.Callback("portal1", ResultSuccess)
	p.TicketOperation("store", ResultSuccess)

	assert.InDelta(t, 2, testutil.ToFloat64(p.authChecks.WithLabelValues("portal1", ResultAuthenticated)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.authChecks.WithLabelValues("portal2", ResultAnonymous)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.challenges.WithLabelValues("portal1", ResultRedirected)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.callbacks.WithLabelValues("portal1", ResultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.ticketOps.WithLabelValues("store", ResultSuccess)), 0)
}

func TestPrometheus_Handler(t *testing.T) {
	p := NewPrometheus()
	p.AuthCheck("portal1", ResultAnonymous)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `fwda_auth_checks_total{portal="portal1",result="anonymous"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, ResultSuccess, Outcome(nil))
	assert.Equal(t, "cache_unavailable", Outcome(apperrors.MapCacheError(errors.New("io"))))
}

func TestOrNoop(t *testing.T) {
	assert.Equal(t, Noop{}, OrNoop(nil))
	p := NewPrometheus()
	assert.Same(t, p, OrNoop(p))
}
