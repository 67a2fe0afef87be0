package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"HTTPRequestsInFlight", HTTPRequestsInFlight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestDiscoveryMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"DiscoveriesTotal", DiscoveriesTotal},
		{"RecordsAddedTotal", RecordsAddedTotal},
		{"RecordsTotal", RecordsTotal},
		{"IngestDuration", IngestDuration},
		{"SidecarParsesTotal", SidecarParsesTotal},
		{"UnclassifiedTotal", UnclassifiedTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestFlushMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"FlushScheduledTotal", FlushScheduledTotal},
		{"FlushCoalescedTotal", FlushCoalescedTotal},
		{"FlushRunsTotal", FlushRunsTotal},
		{"FlushDuration", FlushDuration},
		{"FlushPending", FlushPending},
		{"RenderTotal", RenderTotal},
		{"PublishTotal", PublishTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestInitializeMetricsPopulatesLabels(t *testing.T) {
	InitializeMetrics()

	tests := []struct {
		name      string
		collector prometheus.Collector
		minSeries int
	}{
		{"DiscoveriesTotal", DiscoveriesTotal, 8},
		{"RecordsTotal", RecordsTotal, len(Categories)},
		{"SidecarParsesTotal", SidecarParsesTotal, 4},
		{"PublishTotal", PublishTotal, 3},
		{"WatcherEventsTotal", WatcherEventsTotal, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.CollectAndCount(tt.collector); got < tt.minSeries {
				t.Errorf("Expected at least %d series for %s, got %d", tt.minSeries, tt.name, got)
			}
		})
	}
}

func TestCategoriesCoverSiteTabs(t *testing.T) {
	expected := map[string]bool{
		"tvshow": true, "movie": true, "collection": true,
		"animation": true, "magazine": true, "unknown": true,
	}
	if len(Categories) != len(expected) {
		t.Fatalf("Expected %d categories, got %d", len(expected), len(Categories))
	}
	for _, c := range Categories {
		if !expected[c] {
			t.Errorf("Unexpected category %q", c)
		}
	}
}
