package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDefaultIsNoop(t *testing.T) {
	// Must not panic with no recorder installed.
	Default().IncSearchTotal(true)
	Default().IncFlowTransition("completed")
	done := TimeSearch()
	done(true)
}

func TestEnablePrometheus(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetRecorder(prev) })

	handler := EnablePrometheus()

	Default().IncSearchTotal(true)
	Default().IncFlowTransition("completed")
	Default().IncHTTPRequest("/v1/path/searches", 200)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, metric := range []string{
		"warmpath_searches_total",
		"warmpath_flow_transitions_total",
		"warmpath_http_requests_total",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("metrics output missing %s", metric)
		}
	}
}
