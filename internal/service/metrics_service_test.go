package service

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveDetectionRunClearsStaleKinds(t *testing.T) {
	m := NewMetricsService()

	m.ObserveDetectionRun(map[string]int{"room": 2, "teacher": 1})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.openConflicts.WithLabelValues("room")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.openConflicts.WithLabelValues("teacher")))

	m.ObserveDetectionRun(map[string]int{"teacher": 1})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.openConflicts.WithLabelValues("room")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.openConflicts.WithLabelValues("teacher")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.openConflicts.WithLabelValues("section")))

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.DetectionRuns)
	assert.Equal(t, 1, snap.OpenConflicts)
}
