package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("notify").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("notify").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("notify", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("notify", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("notify")))
}

func TestAddNotification(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddNotification("success")
	m.AddNotification("success")
	m.AddNotification("")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.notifications.WithLabelValues("success")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NoError(t, m.Track("notify").End(nil))
	m.AddNotification("destructive")
}
