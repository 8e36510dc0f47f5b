package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

type Metrics struct {
	StageSeconds    *prometheus.HistogramVec
	FeaturesFetched prometheus.Counter
	LinesMatched    prometheus.Counter
	ResultVertices  prometheus.Gauge
	Runs            *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		StageSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "borocut_stage_duration_seconds",
			Help:    "Duration of each pipeline stage.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 180},
		}, []string{"stage"}),
		FeaturesFetched: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "borocut_osm_features_fetched_total",
			Help: "Total number of OSM features returned by the feature source.",
		}),
		LinesMatched: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "borocut_osm_lines_matched_total",
			Help: "Total number of OSM lines whose name matched the street filter.",
		}),
		ResultVertices: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "borocut_result_vertices",
			Help: "Number of vertices in the last computed region outline.",
		}),
		Runs: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "borocut_runs_total",
			Help: "Total number of pipeline runs by outcome.",
		}, []string{"status"}),
	}
}

// Push sends everything gathered by g to a Pushgateway under the job name.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
