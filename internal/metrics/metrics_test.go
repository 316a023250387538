package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCall(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveCall("getAllTweets", time.Now(), nil)
	m.ObserveCall("getAllTweets", time.Now(), errors.New("boom"))
	m.ObserveCall("getAllTweets", time.Now(), nil)

	if got := testutil.ToFloat64(m.gatewayCalls.WithLabelValues("getAllTweets", "ok")); got != 2 {
		t.Errorf("ok calls = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.gatewayCalls.WithLabelValues("getAllTweets", "error")); got != 1 {
		t.Errorf("error calls = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.gatewayLatency); n != 1 {
		t.Errorf("latency series = %d, want 1", n)
	}
}

func TestWorkflowAndRateLimited(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Workflow("like", "rejected")
	m.RateLimited()
	m.RateLimited()

	if got := testutil.ToFloat64(m.workflows.WithLabelValues("like", "rejected")); got != 1 {
		t.Errorf("workflows = %v", got)
	}
	if got := testutil.ToFloat64(m.rateLimited); got != 2 {
		t.Errorf("rate limited = %v", got)
	}
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCall("isPaused", time.Now(), nil)
	m.Workflow("connect", "ok")
	m.RateLimited()
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("registering twice on one registry should panic")
		}
	}()
	New(reg)
}
