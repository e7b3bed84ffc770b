package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/kodasoftware/example-api/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "internal", Outcome(errors.New("boom")))
	assert.Equal(t, "account exists", Outcome(common.E(common.KindAccountExists, "op", "")))
}

func TestObserve_CountsByOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveLogin(nil)
	m.ObserveLogin(common.E(common.KindInvalidCredentials, "op", ""))
	m.ObserveLogin(nil)
	m.ObserveRefresh(common.E(common.KindInvalidToken, "op", ""))
	m.ObserveLinkage(common.E(common.KindUserAlreadyLinked, "op", ""))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LoginsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginsTotal.WithLabelValues("invalid credentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshesTotal.WithLabelValues("invalid token")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LinkagesTotal.WithLabelValues("user already linked")))
}

func TestObserve_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveLogin(nil)
		m.ObserveRefresh(nil)
		m.ObserveLinkage(nil)
	})
}

func TestHTTPMiddleware_AndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := mux.NewRouter()
	r.Use(HTTPMiddleware(m))
	r.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", Handler(reg))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/items/{id}", "418")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "example_api_http_requests_total"))
}
