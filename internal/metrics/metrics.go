// Package metrics exposes the counters and gauges of a reconciliation run.
// mirrorsync is a batch job, so metrics live in their own registry and are
// pushed to a Prometheus Pushgateway at the end of a run, if one is
// configured.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	registry = prometheus.NewRegistry()
	factory  = promauto.With(registry)

	Refs = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mirrorsync_refs",
			Help: "Number of references listed per platform and kind during the last run",
		},
		[]string{"platform", "kind"},
	)

	ObsoleteRefs = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mirrorsync_obsolete_refs",
			Help: "Number of mirror references absent from the source during the last run",
		},
		[]string{"kind"},
	)

	RefDeletions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirrorsync_ref_deletions_total",
			Help: "Deletion attempts of obsolete references by result",
		},
		[]string{"kind", "result"},
	)

	RunDuration = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "mirrorsync_run_duration_seconds",
			Help: "Duration of the last reconciliation run in seconds",
		},
	)

	LastRunEnd = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mirrorsync_last_run_end_timestamp",
			Help: "Unix timestamp of when the last run ended",
		},
		[]string{"status"},
	)
)

func RunFinished(startTime time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	RunDuration.Set(time.Since(startTime).Seconds())
	LastRunEnd.WithLabelValues(status).SetToCurrentTime()
}

func Gatherer() prometheus.Gatherer {
	return registry
}

// Push sends the current values to the Pushgateway at url, grouped under job
// and the given grouping labels. Previous values for the group are replaced.
func Push(ctx context.Context, url, job string, grouping map[string]string) error {
	p := push.New(url, job).Gatherer(registry)
	for name, value := range grouping {
		p = p.Grouping(name, value)
	}
	return p.PushContext(ctx)
}
