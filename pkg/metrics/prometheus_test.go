package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPrometheusExporter_Export(t *testing.T) {
	m := &Metrics{
		EpisodesTotal:      100,
		EpisodesFailed:     15,
		RoundsTotal:        340,
		CheckpointsWritten: 4,
		PolicyUpdates:      96,
	}

	exporter := NewPrometheusExporter(m)
	output := exporter.Export()

	expectedLines := []string{
		"essaydqn_episodes_total{status=\"ok\"} 85",
		"essaydqn_episodes_total{status=\"failed\"} 15",
		"essaydqn_episodes_total 100",
		"essaydqn_rounds_total 340",
		"essaydqn_checkpoints_written_total 4",
		"essaydqn_policy_updates_total 96",
		"essaydqn_episode_failure_rate 0.15",
	}

	for _, expected := range expectedLines {
		if !strings.Contains(output, expected) {
			t.Errorf("Export() missing expected line: %s\nGot:\n%s", expected, output)
		}
	}
}

func TestPrometheusExporter_Handler(t *testing.T) {
	m := &Metrics{
		EpisodesTotal:  42,
		EpisodesFailed: 2,
	}

	exporter := NewPrometheusExporter(m)

	handler := exporter.Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Handler() status = %d, want %d", rec.Code, http.StatusOK)
	}

	contentType := rec.Header().Get("Content-Type")
	expectedContentType := "text/plain; version=0.0.4; charset=utf-8"
	if contentType != expectedContentType {
		t.Errorf("Handler() Content-Type = %s, want %s", contentType, expectedContentType)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "essaydqn_episodes_total{status=\"ok\"} 40") {
		t.Errorf("Handler() body missing expected metric:\nGot:\n%s", body)
	}

	if !strings.Contains(body, "essaydqn_episode_failure_rate") {
		t.Errorf("Handler() body missing failure rate metric:\nGot:\n%s", body)
	}
}

func TestPrometheusExporter_FailureRate(t *testing.T) {
	tests := []struct {
		name           string
		episodesTotal  int64
		episodesFailed int64
		wantRate       float64
	}{
		{name: "15% failure rate", episodesTotal: 100, episodesFailed: 15, wantRate: 0.15},
		{name: "zero episodes", episodesTotal: 0, episodesFailed: 0, wantRate: 0.0},
		{name: "100% failure", episodesTotal: 50, episodesFailed: 50, wantRate: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Metrics{
				EpisodesTotal:  tt.episodesTotal,
				EpisodesFailed: tt.episodesFailed,
			}

			exporter := NewPrometheusExporter(m)
			output := exporter.Export()

			rateStr := formatFloatTest(tt.wantRate)
			expectedLine := "essaydqn_episode_failure_rate " + rateStr
			if !strings.Contains(output, expectedLine) {
				t.Errorf("Export() failure rate = want %s in output:\n%s", expectedLine, output)
			}
		})
	}
}

func formatFloatTest(f float64) string {
	if f == 0.0 {
		return "0"
	}
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", f), "0"), ".")
	return s
}
