package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "failure", Outcome(errors.New("boom")))
}

func TestRecordsProcessed(t *testing.T) {
	before := testutil.ToFloat64(RecordsProcessed.WithLabelValues("create", "success"))
	RecordsProcessed.WithLabelValues("create", "success").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RecordsProcessed.WithLabelValues("create", "success")))
}
