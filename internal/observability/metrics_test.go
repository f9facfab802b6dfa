package observability

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordEdit("proportional", "percent")
	m.RecordEdit("proportional", "percent")
	m.RecordEdit("fixed", "chunk")
	m.RecordRejection("proportional", "weight_overflow")
	m.RecordSubmit("unconstrained")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Edits.WithLabelValues("proportional", "percent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Edits.WithLabelValues("fixed", "chunk")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("proportional", "weight_overflow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("unconstrained")))
}

func TestMetrics_PoolHistogram(t *testing.T) {
	m := NewMetrics()

	m.RecordAllocation("proportional", 10)
	m.RecordAllocation("proportional", 3)

	assert.Equal(t, 1, testutil.CollectAndCount(m.PoolUnits))
}

func TestMetrics_PrivateRegistry(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordSubmit("fixed")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Submissions.WithLabelValues("fixed")))
	assert.Equal(t, 0, testutil.CollectAndCount(b.Submissions))
}

func TestMetrics_WriteSummary(t *testing.T) {
	m := NewMetrics()
	m.RecordEdit("proportional", "lock")
	m.RecordAllocation("proportional", 10)
	m.RecordAllocation("proportional", 4)

	var buf bytes.Buffer
	require.NoError(t, m.WriteSummary(&buf))

	out := buf.String()
	assert.Contains(t, out, `allocation_edits_total{kind="lock",policy="proportional"} 1`)
	assert.Contains(t, out, `allocation_pool_units{policy="proportional"} count=2 sum=14`)
	assert.NotContains(t, out, "allocation_submits_total")
}
