package pipeline_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"coordconv/internal/metrics"
	"coordconv/internal/pipeline"
)

func TestWorkerUpdatesMetrics(t *testing.T) {
	dir := t.TempDir()
	good := writeInput(t, dir, "good.csv", sampleCSV)
	bad := writeInput(t, dir, "bad.csv", "x,y\n1,2\n")

	okFiles := testutil.ToFloat64(metrics.FilesTotal.WithLabelValues("ok"))
	badFiles := testutil.ToFloat64(metrics.FilesTotal.WithLabelValues("failed"))
	okRows := testutil.ToFloat64(metrics.RowsTotal.WithLabelValues("ok"))
	badRows := testutil.ToFloat64(metrics.RowsTotal.WithLabelValues("failed"))
	done := testutil.ToFloat64(metrics.JobsTotal.WithLabelValues("done"))

	collect(t, pipeline.NewWorker(newJob(t, good, bad)))

	assert.Equal(t, okFiles+1, testutil.ToFloat64(metrics.FilesTotal.WithLabelValues("ok")))
	assert.Equal(t, badFiles+1, testutil.ToFloat64(metrics.FilesTotal.WithLabelValues("failed")))
	assert.Equal(t, okRows+1, testutil.ToFloat64(metrics.RowsTotal.WithLabelValues("ok")))
	assert.Equal(t, badRows+3, testutil.ToFloat64(metrics.RowsTotal.WithLabelValues("failed")))
	assert.Equal(t, done+1, testutil.ToFloat64(metrics.JobsTotal.WithLabelValues("done")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.JobsRunning))
}
