package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()

	assert.NotNil(t, contestsFoundTotal)
	assert.NotNil(t, fetchAttemptsTotal)
	assert.NotNil(t, corpusSize)
}

func TestRecorderObserveSource(t *testing.T) {
	r := NewRecorder()

	r.ObserveSource("metrics-test-source", 4, 2, false)
	r.ObserveSource("metrics-test-source", 1, 0, true)

	assert.InDelta(t, 5, testutil.ToFloat64(contestsFoundTotal.WithLabelValues("metrics-test-source")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(contestsSkippedTotal.WithLabelValues("metrics-test-source")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(sourceErrorsTotal.WithLabelValues("metrics-test-source")), 0)
}

func TestRecorderObserveFetch(t *testing.T) {
	r := NewRecorder()
	before := testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues("metrics-test"))

	r.ObserveFetch("metrics-test")

	assert.InDelta(t, before+1, testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues("metrics-test")), 0)
}

func TestRecorderObserveRefresh(t *testing.T) {
	r := NewRecorder()

	r.ObserveRefresh(2*time.Second, 42, nil)
	assert.InDelta(t, 42, testutil.ToFloat64(corpusSize), 0)

	r.ObserveRefresh(time.Second, 0, errors.New("boom"))
	assert.InDelta(t, 42, testutil.ToFloat64(corpusSize), 0)
	assert.Positive(t, testutil.CollectAndCount(refreshDurationSeconds))
}
