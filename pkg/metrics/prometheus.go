package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
)

// Metrics tracks training-run execution statistics.
type Metrics struct {
	EpisodesTotal      int64
	EpisodesFailed     int64
	RoundsTotal        int64
	CheckpointsWritten int64
	PolicyUpdates      int64
}

// PrometheusExporter exports metrics in Prometheus text format
type PrometheusExporter struct {
	metrics *Metrics
}

// NewPrometheusExporter creates a new Prometheus exporter
func NewPrometheusExporter(m *Metrics) *PrometheusExporter {
	return &PrometheusExporter{
		metrics: m,
	}
}

// Export returns metrics in Prometheus text format
func (e *PrometheusExporter) Export() string {
	var b strings.Builder

	episodesTotal := atomic.LoadInt64(&e.metrics.EpisodesTotal)
	episodesFailed := atomic.LoadInt64(&e.metrics.EpisodesFailed)
	roundsTotal := atomic.LoadInt64(&e.metrics.RoundsTotal)
	checkpointsWritten := atomic.LoadInt64(&e.metrics.CheckpointsWritten)
	policyUpdates := atomic.LoadInt64(&e.metrics.PolicyUpdates)

	fmt.Fprintf(&b, "essaydqn_episodes_total{status=\"ok\"} %d\n", episodesTotal-episodesFailed)
	fmt.Fprintf(&b, "essaydqn_episodes_total{status=\"failed\"} %d\n", episodesFailed)
	fmt.Fprintf(&b, "essaydqn_episodes_total %d\n", episodesTotal)
	fmt.Fprintf(&b, "essaydqn_rounds_total %d\n", roundsTotal)
	fmt.Fprintf(&b, "essaydqn_checkpoints_written_total %d\n", checkpointsWritten)
	fmt.Fprintf(&b, "essaydqn_policy_updates_total %d\n", policyUpdates)

	var failureRate float64
	if episodesTotal > 0 {
		failureRate = float64(episodesFailed) / float64(episodesTotal)
	}
	fmt.Fprintf(&b, "essaydqn_episode_failure_rate %s\n", formatFloat(failureRate))

	return b.String()
}

// Handler returns an HTTP handler for the /metrics endpoint
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, e.Export())
	})
}

// formatFloat formats a float64 for Prometheus (removes trailing zeros)
func formatFloat(f float64) string {
	if f == 0.0 {
		return "0"
	}
	s := fmt.Sprintf("%.4f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
