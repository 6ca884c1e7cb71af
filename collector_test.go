package promise

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

const collectorMetricCount = 15

func TestCollectorDescribe(t *testing.T) {
	e := newTestEngine()
	c := NewCollector(e)

	ch := make(chan *prometheus.Desc, collectorMetricCount+1)
	c.Describe(ch)
	close(ch)

	n := 0
	for range ch {
		n++
	}
	if n != collectorMetricCount {
		t.Errorf("described %d metrics, want %d", n, collectorMetricCount)
	}
}

func TestCollectorCollect(t *testing.T) {
	e := newTestEngine()
	e.New(func(d Handle) { d.Resolve() }).Then(func() {})

	c := NewCollector(e)
	ch := make(chan prometheus.Metric, collectorMetricCount+1)
	c.Collect(ch)
	close(ch)

	n := 0
	for range ch {
		n++
	}
	if n != collectorMetricCount {
		t.Errorf("collected %d metrics, want %d", n, collectorMetricCount)
	}
}

func TestCollectorRegisters(t *testing.T) {
	e := newTestEngine()
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(e)); err != nil {
		t.Fatalf("register: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != collectorMetricCount {
		t.Errorf("gathered %d families, want %d", len(families), collectorMetricCount)
	}
}
