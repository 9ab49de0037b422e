package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordPersistence(t *testing.T) {
	before := testutil.ToFloat64(persistenceTotal.WithLabelValues("file", "failed"))

	RecordPersistence("file", "failed")
	RecordPersistence("file", "failed")

	assert.Equal(t, before+2, testutil.ToFloat64(persistenceTotal.WithLabelValues("file", "failed")))
}

func TestSetSubscribers(t *testing.T) {
	SetSubscribers(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(activeSubscribers))

	SetSubscribers(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(activeSubscribers))
}

func TestRecordStateWrite(t *testing.T) {
	before := testutil.ToFloat64(stateWritesTotal)
	RecordStateWrite()
	assert.Equal(t, before+1, testutil.ToFloat64(stateWritesTotal))
}
