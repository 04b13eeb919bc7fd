package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	obserrors "github.com/oformaniuk/fwda/internal/observability/errors"
)

// Result constants for metric labels.
const (
	ResultSuccess       = "success"
	ResultError         = "error"
	ResultAuthenticated = "authenticated"
	ResultAnonymous     = "anonymous"
	ResultUnknownPortal = "unknown_portal"
	ResultRedirected    = "redirected"
	ResultAbsent        = "absent"
)

// Recorder receives gateway counters. Implementations must be safe for concurrent use.
type Recorder interface {
	AuthCheck(portal, result string)
	Challenge(portal, outcome string)
	Callback(portal, outcome string)
	TicketOperation(operation, outcome string)
}

// Outcome turns an error into a label: ResultSuccess for nil, the error class otherwise.
func Outcome(err error) string {
	if err == nil {
		return ResultSuccess
	}
	return obserrors.Classify(err)
}

// Noop discards everything.
type Noop struct{}

func (Noop) AuthCheck(string, string) {}
func (Noop) Challenge(string, string) {}
func (Noop) Callback(string, string) {}
func (Noop) TicketOperation(string, string) {}

// OrNoop returns r, or Noop when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return Noop{}
	}
	return r
}

// Prometheus records counters on a private registry.
type Prometheus struct {
	registry   *prometheus.Registry
	authChecks *prometheus.CounterVec
	challenges *prometheus.CounterVec
	callbacks  *prometheus.CounterVec
	ticketOps  *prometheus.CounterVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus builds the gateway counters plus the Go and process collectors.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		authChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fwda_auth_checks_total",
			Help: "Forward-auth checks by portal and result.",
		}, []string{"portal", "result"}),
		challenges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fwda_challenges_total",
			Help: "Sign-in attempts by portal and outcome.",
		}, []string{"portal", "outcome"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fwda_callbacks_total",
			Help: "Provider callbacks by portal and outcome.",
		}, []string{"portal", "outcome"}),
		ticketOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fwda_ticket_store_operations_total",
			Help: "Ticket store operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
	p.registry.MustRegister(
		p.authChecks,
		p.challenges,
		p.callbacks,
		p.ticketOps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) AuthCheck(portal, result string) {
	p.authChecks.WithLabelValues(portal, result).Inc()
}

func (p *Prometheus) Challenge(portal, outcome string) {
	p.challenges.WithLabelValues(portal, outcome).Inc()
}

func (p *Prometheus) Callback(portal, outcome string) {
	p.callbacks.WithLabelValues(portal, outcome).Inc()
}

func (p *Prometheus) TicketOperation(operation, outcome string) {
	p.ticketOps.WithLabelValues(operation, outcome).Inc()
}

// Registry exposes the underlying registry for tests and extra collectors.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
