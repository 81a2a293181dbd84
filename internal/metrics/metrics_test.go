// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freetron/cli/internal/transport"
)

func TestRoute(t *testing.T) {
	tests := map[string]string{
		"/upload/42":                 "/upload",
		"/rpc/form_process":          "/rpc/form_process",
		"http://host:8080/upload/9/": "/upload",
		"https://forms.example.com":  "/",
		"/process/17":                "/process",
		"rpc/account_login":          "/rpc/account_login",
	}
	for in, want := range tests {
		assert.Equal(t, want, Route(in), in)
	}
}

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveCall("/upload/42", transport.OutcomeComplete, 120*time.Millisecond)
	m.ObserveCall("/upload/43", transport.OutcomeComplete, 80*time.Millisecond)
	m.ObserveCall("/rpc/form_process", transport.OutcomeFail, time.Millisecond)
	m.PollAttempt()
	m.PollAttempt()
	m.JobFinished("done")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.calls.WithLabelValues("/upload", "complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("/rpc/form_process", "fail")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.polls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobs.WithLabelValues("done")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	first.PollAttempt()
	assert.Equal(t, 1.0, testutil.ToFloat64(second.polls))
}

func TestWriteSummary(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.ObserveCall("/upload/1", transport.OutcomeCancel, time.Second)
	m.JobFinished("canceled")

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, reg))
	out := buf.String()
	assert.Contains(t, out, `freetron_client_calls_total{outcome="cancel",route="/upload"} 1`)
	assert.Contains(t, out, `freetron_client_jobs_total{phase="canceled"} 1`)
	assert.Contains(t, out, `freetron_client_call_duration_seconds{route="/upload"} count=1 sum=1.000s`)
}
