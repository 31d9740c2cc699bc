// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/polutek/tingtong/internal/platform/metrics"
)

func TestDomainHooks(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.OrphanedReply(2)
	m.OrphanedReply(0)
	m.VoteTransition(metrics.TransitionCreated)
	m.VoteTransition(metrics.TransitionCreated)
	m.VoteRace(metrics.RaceAbsorbed)
	m.Repaired(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrphanedReplies))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.VoteTransitions.WithLabelValues(metrics.TransitionCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VoteRaces.WithLabelValues(metrics.RaceAbsorbed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ReconcileRepaired))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.OrphanedReply(1)
		m.VoteTransition(metrics.TransitionRemoved)
		m.VoteRace(metrics.RaceRetried)
		m.Repaired(1)
	})
}

func TestInstrument_UsesRoutePattern(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	router := chi.NewRouter()
	router.Use(m.Instrument)
	router.Get("/comments/{commentID}", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusTeapot)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/comments/abc", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/comments/{commentID}", "418")))

	recorder := httptest.NewRecorder()
	metrics.Handler(registry).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, recorder.Body.String(), "tingtong_http_requests_total")
}
