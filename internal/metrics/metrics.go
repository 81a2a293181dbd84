// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package metrics records client-side statistics for transport calls and
// processing jobs in Prometheus collectors. The CLI registers them on a
// private registry and prints a summary with `upload --stats`.
package metrics

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"freetron/cli/internal/transport"
)

const namespace = "freetron_client"

// Metrics implements transport.Observer and job.Recorder.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	polls    prometheus.Counter
	jobs     *prometheus.CounterVec
}

// New registers the collectors on reg. Collectors already registered by an
// earlier call are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Transport calls by route and outcome.",
		}, []string{"route", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Wall time from send to terminal callback.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_attempts_total",
			Help:      "form_process polls issued while processing.",
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Submissions by terminal phase.",
		}, []string{"phase"}),
	}
	var err error
	if m.calls, err = register(reg, m.calls); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.polls, err = register(reg, m.polls); err != nil {
		return nil, err
	}
	if m.jobs, err = register(reg, m.jobs); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, fmt.Errorf("register metrics collector: %w", err)
}

// ObserveCall implements transport.Observer.
func (m *Metrics) ObserveCall(endpoint string, outcome transport.Outcome, elapsed time.Duration) {
	r := Route(endpoint)
	m.calls.WithLabelValues(r, string(outcome)).Inc()
	m.duration.WithLabelValues(r).Observe(elapsed.Seconds())
}

// PollAttempt implements job.Recorder.
func (m *Metrics) PollAttempt() { m.polls.Inc() }

// JobFinished implements job.Recorder.
func (m *Metrics) JobFinished(phase string) { m.jobs.WithLabelValues(phase).Inc() }

// Route drops numeric path segments so upload keys and job IDs do not become
// label values: "/upload/42" becomes "/upload".
func Route(endpoint string) string {
	if i := strings.Index(endpoint, "://"); i >= 0 {
		endpoint = endpoint[i+3:]
		if j := strings.IndexByte(endpoint, '/'); j >= 0 {
			endpoint = endpoint[j:]
		} else {
			endpoint = "/"
		}
	}
	parts := strings.Split(strings.Trim(endpoint, "/"), "/")
	kept := parts[:0]
	for _, p := range parts {
		if p == "" || strings.Trim(p, "0123456789") == "" {
			continue
		}
		kept = append(kept, p)
	}
	return "/" + strings.Join(kept, "/")
}

// WriteSummary prints every sample gathered from g, one per line, sorted.
func WriteSummary(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			lines = append(lines, formatSample(mf, metric))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

func formatSample(mf *dto.MetricFamily, metric *dto.Metric) string {
	var labels []string
	for _, lp := range metric.GetLabel() {
		labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
	}
	name := mf.GetName()
	if len(labels) > 0 {
		name += "{" + strings.Join(labels, ",") + "}"
	}
	switch mf.GetType() {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%s %g", name, metric.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%s %g", name, metric.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := metric.GetHistogram()
		return fmt.Sprintf("%s count=%d sum=%.3fs", name, h.GetSampleCount(), h.GetSampleSum())
	default:
		return name
	}
}
