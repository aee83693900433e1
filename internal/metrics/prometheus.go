package metrics

import (
	"fmt"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

type promRecorder struct {
	searchTotal     *prom.CounterVec
	searchSeconds   *prom.HistogramVec
	flowTransitions *prom.CounterVec
	httpTotal       *prom.CounterVec
	httpSeconds     *prom.HistogramVec
}

func (p *promRecorder) IncSearchTotal(success bool) {
	p.searchTotal.WithLabelValues(fmt.Sprintf("%t", success)).Inc()
}

func (p *promRecorder) ObserveSearchSeconds(success bool, seconds float64) {
	p.searchSeconds.WithLabelValues(fmt.Sprintf("%t", success)).Observe(seconds)
}

func (p *promRecorder) IncFlowTransition(to string) {
	p.flowTransitions.WithLabelValues(to).Inc()
}

func (p *promRecorder) IncHTTPRequest(route string, status int) {
	p.httpTotal.WithLabelValues(route, fmt.Sprintf("%d", status)).Inc()
}

func (p *promRecorder) ObserveHTTPSeconds(route string, seconds float64) {
	p.httpSeconds.WithLabelValues(route).Observe(seconds)
}

// EnablePrometheus installs a Prometheus-backed recorder and returns the
// handler to mount at /metrics.
func EnablePrometheus() http.Handler {
	registry := prom.NewRegistry()
	p := &promRecorder{
		searchTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "warmpath_searches_total",
			Help: "Total number of path searches",
		}, []string{"success"}),
		searchSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "warmpath_search_seconds",
			Help:    "Path search duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"success"}),
		flowTransitions: prom.NewCounterVec(prom.CounterOpts{
			Name: "warmpath_flow_transitions_total",
			Help: "Total introduction flow status transitions",
		}, []string{"to"}),
		httpTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "warmpath_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"route", "status"}),
		httpSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "warmpath_http_request_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"route"}),
	}

	registry.MustRegister(p.searchTotal, p.searchSeconds, p.flowTransitions,
		p.httpTotal, p.httpSeconds)
	SetRecorder(p)

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
