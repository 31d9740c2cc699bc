// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics owns the Prometheus collectors of the Tingtong API.

Collectors are registered on an explicit [prometheus.Registerer] instead of the
global default registry, so tests can build an isolated set and assert on it
with prometheus/testutil.

Exposed series:

  - tingtong_http_requests_total{method,route,status}
  - tingtong_http_request_duration_seconds{method,route}
  - tingtong_comment_orphaned_replies_total
  - tingtong_vote_transitions_total{transition}
  - tingtong_vote_races_total{outcome}
  - tingtong_reconcile_repaired_total
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polutek/tingtong/internal/platform/middleware"
)

const namespace = "tingtong"

// Vote transition labels.
const (
	TransitionCreated  = "created"
	TransitionRemoved  = "removed"
	TransitionSwitched = "switched"
)

// Vote race outcome labels.
const (
	RaceRetried  = "retried"
	RaceAbsorbed = "absorbed"
)

// Metrics groups every collector the service updates.
type Metrics struct {
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	OrphanedReplies   prometheus.Counter
	VoteTransitions   *prometheus.CounterVec
	VoteRaces         *prometheus.CounterVec
	ReconcileRepaired prometheus.Counter
}

// New creates the collectors and registers them on registerer.
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),

		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		OrphanedReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comment_orphaned_replies_total",
			Help:      "Replies skipped while building a thread because their parent was missing.",
		}),

		VoteTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_transitions_total",
			Help:      "Vote ledger transitions by kind.",
		}, []string{"transition"}),

		VoteRaces: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_races_total",
			Help:      "Unique-constraint races on the vote ledger by outcome.",
		}, []string{"outcome"}),

		ReconcileRepaired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_repaired_total",
			Help:      "Comments whose denormalized counters were repaired by reconciliation.",
		}),
	}

	registerer.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.OrphanedReplies,
		m.VoteTransitions,
		m.VoteRaces,
		m.ReconcileRepaired,
	)

	return m
}

// Handler exposes gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Instrument records request counts and latency per chi route pattern.
//
// The pattern ("/api/v1/comments/{commentID}") is used instead of the raw
// path to keep label cardinality bounded.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := time.Now()
		recorder := middleware.NewStatusRecorder(writer)

		next.ServeHTTP(recorder, request)

		route := "unmatched"
		if routeCtx := chi.RouteContext(request.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		m.HTTPRequests.WithLabelValues(request.Method, route, strconv.Itoa(recorder.Status)).Inc()
		m.HTTPDuration.WithLabelValues(request.Method, route).Observe(time.Since(start).Seconds())
	})
}

// # Domain Hooks
//
// Small helpers so domain packages depend on behaviour, not on collector
// types. A nil *Metrics is valid and records nothing.

// OrphanedReply counts n skipped replies.
func (m *Metrics) OrphanedReply(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.OrphanedReplies.Add(float64(n))
}

// VoteTransition counts one ledger transition.
func (m *Metrics) VoteTransition(transition string) {
	if m == nil {
		return
	}
	m.VoteTransitions.WithLabelValues(transition).Inc()
}

// VoteRace counts one unique-constraint race outcome.
func (m *Metrics) VoteRace(outcome string) {
	if m == nil {
		return
	}
	m.VoteRaces.WithLabelValues(outcome).Inc()
}

// Repaired counts n reconciled comments.
func (m *Metrics) Repaired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ReconcileRepaired.Add(float64(n))
}
