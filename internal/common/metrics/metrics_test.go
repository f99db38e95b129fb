package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackUnit(t *testing.T) {
	const engine = "track-unit-test"

	done := TrackUnit(engine)
	assert.Equal(t, float64(1), testutil.ToFloat64(UnitsActive.WithLabelValues(engine)))

	done(OutcomeDegraded)
	assert.Equal(t, float64(0), testutil.ToFloat64(UnitsActive.WithLabelValues(engine)))
	assert.Equal(t, float64(1), testutil.ToFloat64(UnitsTotal.WithLabelValues(engine, OutcomeDegraded)))
	assert.Equal(t, float64(0), testutil.ToFloat64(UnitsTotal.WithLabelValues(engine, OutcomeOK)))
}

func TestRecordDegraded(t *testing.T) {
	const engine = "record-degraded-test"

	RecordDegraded(engine, "fallback")
	RecordDegraded(engine, "fallback")
	RecordDegraded(engine, "timeout")

	assert.Equal(t, float64(2), testutil.ToFloat64(DegradedResults.WithLabelValues(engine, "fallback")))
	assert.Equal(t, float64(1), testutil.ToFloat64(DegradedResults.WithLabelValues(engine, "timeout")))
}
