package metrics_test

import (
	"errors"
	"testing"

	"github.com/Mohsinsiddi/h2o/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, metrics.StatusOK, metrics.Status(nil))
	assert.Equal(t, metrics.StatusError, metrics.Status(errors.New("boom")))
}

func TestCountersIncrementByLabel(t *testing.T) {
	before := testutil.ToFloat64(metrics.SwapBacksTotal.WithLabelValues(metrics.StatusSkipped))
	metrics.SwapBacksTotal.WithLabelValues(metrics.StatusSkipped).Inc()
	after := testutil.ToFloat64(metrics.SwapBacksTotal.WithLabelValues(metrics.StatusSkipped))
	assert.Equal(t, before+1, after)
}

func TestBuildInfoGauge(t *testing.T) {
	metrics.BuildInfo.WithLabelValues("test").Set(1)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.BuildInfo.WithLabelValues("test")))
}
