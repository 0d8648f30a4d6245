package obs_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/match-video-api/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("matchvideo", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/requests"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodPost, "/api/v1/requests", "201")))
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Equal(t, float64(0), testutil.ToFloat64(metrics.InFlight))
}

func TestRequestLoggerLevelFollowsStatus(t *testing.T) {
	cases := map[int]string{
		http.StatusOK:                  "info",
		http.StatusNotFound:            "warn",
		http.StatusInternalServerError: "error",
	}
	for status, level := range cases {
		var buf bytes.Buffer
		logger := obs.RequestLogger{Logger: zerolog.New(&buf)}
		h := logger.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/masters", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		h.ServeHTTP(httptest.NewRecorder(), req)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		require.Equal(t, level, entry["level"])
		require.Equal(t, "203.0.113.7", entry["client_ip"])
		require.Equal(t, float64(status), entry["status"])
	}
}

func TestRequestLoggerQuietsProbes(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.RequestLogger{Logger: zerolog.New(&buf)}
	h := logger.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "debug", entry["level"])
	require.NotContains(t, entry, "trace_id")
}

func TestDomainMetricsObservers(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("matchvideo", registry)

	before := testutil.ToFloat64(obs.RequestSubmissionsTotal.WithLabelValues("ok"))
	obs.ObserveSubmission("ok", 22340)
	obs.ObserveSubmission("validation", 0)
	require.Equal(t, before+1, testutil.ToFloat64(obs.RequestSubmissionsTotal.WithLabelValues("ok")))
	require.GreaterOrEqual(t, testutil.ToFloat64(obs.RequestSubmissionsTotal.WithLabelValues("validation")), float64(1))

	hits := testutil.ToFloat64(obs.MastersCacheTotal.WithLabelValues("hit"))
	obs.ObserveMastersCache(true)
	require.Equal(t, hits+1, testutil.ToFloat64(obs.MastersCacheTotal.WithLabelValues("hit")))

	ready := testutil.ToFloat64(obs.QuotePreviewsTotal.WithLabelValues("false"))
	obs.ObservePreview(false)
	require.Equal(t, ready+1, testutil.ToFloat64(obs.QuotePreviewsTotal.WithLabelValues("false")))
}

func TestParseBucketsCSV(t *testing.T) {
	require.Nil(t, obs.ParseBucketsCSV(" "))
	require.Equal(t, []float64{5, 12.5, 100}, obs.ParseBucketsCSV("5, 12.5,abc,-1,0,100"))
}

func TestHTTPMetricsReuseRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("matchvideo", nil, registry)
	second := obs.NewHTTPMetrics("matchvideo", nil, registry)
	require.Same(t, first.ReqTotal, second.ReqTotal)
}
