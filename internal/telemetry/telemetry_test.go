package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger("not-a-level", "development")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestMetrics_ObserveHTTPIncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("engram_test", reg)

	m.ObserveHTTP("POST", "/v1/memory/remember", "201", 12*time.Millisecond)

	count := testutilCounterValue(t, reg, "engram_test_http_requests_total")
	assert.Equal(t, float64(1), count)
}

func testutilCounterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			var total float64
			for _, metric := range f.GetMetric() {
				total += metric.GetCounter().GetValue()
			}
			return total
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
