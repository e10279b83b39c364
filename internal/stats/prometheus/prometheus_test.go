package prometheus

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/discochess/gameweek/internal/stats"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric %s not found in registry", name)
	return nil
}

func TestNew_DefaultRegistry(t *testing.T) {
	c := New(nil)
	if c.registry != prometheus.DefaultRegisterer {
		t.Error("registry should default to prometheus.DefaultRegisterer")
	}
}

func TestCollector_IncCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.IncCounter(stats.MetricJobsCompleted, 5)
	c.IncCounter(stats.MetricJobsCompleted, 3)

	f := gather(t, reg, stats.MetricJobsCompleted)
	if got := f.GetMetric()[0].GetCounter().GetValue(); got != 8 {
		t.Errorf("counter value = %v, want 8", got)
	}
	if f.GetHelp() != stats.Help(stats.MetricJobsCompleted) {
		t.Errorf("help = %q", f.GetHelp())
	}
}

func TestCollector_SetGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.SetGauge(stats.MetricQueueDepth, 42)
	c.SetGauge(stats.MetricQueueDepth, 7)

	f := gather(t, reg, stats.MetricQueueDepth)
	if got := f.GetMetric()[0].GetGauge().GetValue(); got != 7 {
		t.Errorf("gauge value = %v, want 7", got)
	}
}

func TestCollector_ObserveHistogram(t *testing.T) {
	tests := []struct {
		name        string
		metric      string
		wantBuckets int
	}{
		{"duration", stats.MetricEvaluationSeconds, len(durationBuckets)},
		{"default buckets", "gameweek_test_values", len(prometheus.DefBuckets)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			c := New(reg)

			c.ObserveHistogram(tt.metric, 0.5)
			c.ObserveHistogram(tt.metric, 1.5)
			c.ObserveHistogram(tt.metric, 2.5)

			h := gather(t, reg, tt.metric).GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 3 {
				t.Errorf("sample count = %v, want 3", h.GetSampleCount())
			}
			if len(h.GetBucket()) != tt.wantBuckets {
				t.Errorf("buckets = %d, want %d", len(h.GetBucket()), tt.wantBuckets)
			}
		})
	}
}

func TestCollector_UnknownMetricHelp(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.IncCounter("gameweek_unlisted_total", 1)

	if got := gather(t, reg, "gameweek_unlisted_total").GetHelp(); got != "gameweek_unlisted_total" {
		t.Errorf("help = %q, want metric name", got)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.IncCounter(stats.MetricEvaluations, 1)
				c.SetGauge(stats.MetricEvalCacheSize, int64(j))
				c.ObserveHistogram(stats.MetricJobSeconds, float64(j))
			}
		}()
	}
	wg.Wait()

	if got := gather(t, reg, stats.MetricEvaluations).GetMetric()[0].GetCounter().GetValue(); got != 1000 {
		t.Errorf("counter value = %v, want 1000", got)
	}
	if got := gather(t, reg, stats.MetricJobSeconds).GetMetric()[0].GetHistogram().GetSampleCount(); got != 1000 {
		t.Errorf("histogram count = %v, want 1000", got)
	}
	gather(t, reg, stats.MetricEvalCacheSize)
}

func TestCollector_AlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()

	existing := prometheus.NewCounter(prometheus.CounterOpts{
		Name: stats.MetricReportsPublished,
		Help: stats.Help(stats.MetricReportsPublished),
	})
	reg.MustRegister(existing)
	existing.Add(100)

	c := New(reg)
	c.IncCounter(stats.MetricReportsPublished, 5)

	if got := gather(t, reg, stats.MetricReportsPublished).GetMetric()[0].GetCounter().GetValue(); got != 105 {
		t.Errorf("counter value = %v, want 105", got)
	}
}
