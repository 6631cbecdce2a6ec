package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRender(t *testing.T) {
	before := testutil.ToFloat64(RendersTotal.WithLabelValues(SourceWorker, ResultEmpty))

	ObserveRender(SourceWorker, ResultEmpty, time.Now().Add(-time.Millisecond))

	after := testutil.ToFloat64(RendersTotal.WithLabelValues(SourceWorker, ResultEmpty))
	assert.Equal(t, before+1, after)
	assert.Positive(t, testutil.CollectAndCount(RenderDuration))
}
