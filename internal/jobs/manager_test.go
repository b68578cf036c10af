package jobs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	m := NewManager()
	job := m.CreateJob("generic", "run-generic")
	assert.Equal(t, JobPending, job.GetStatus())

	job.Start(100)
	job.Advance(50)
	assert.Equal(t, JobRunning, job.GetStatus())
	assert.Equal(t, 0.5, job.GetProgress())

	job.Advance(109)
	assert.Equal(t, 1.0, job.GetProgress())

	job.AddLog("done")
	job.Complete("ok")
	assert.Equal(t, JobCompleted, job.GetStatus())
	assert.Len(t, job.GetLogs(), 1)
	assert.GreaterOrEqual(t, job.Duration().Nanoseconds(), int64(0))

	got, ok := m.GetJob(job.ID)
	require.True(t, ok)
	assert.Same(t, job, got)
}

func TestJobFailure(t *testing.T) {
	job := NewManager().CreateJob("combined", "")
	job.Start(10)
	job.Fail(fmt.Errorf("fold 3 failed"))
	assert.Equal(t, JobFailed, job.GetStatus())
	assert.EqualError(t, job.GetError(), "fold 3 failed")
}

func TestListJobsInCreationOrder(t *testing.T) {
	m := NewManager()
	for _, name := range []string{"combined", "generic", "provenance"} {
		m.CreateJob(name, "")
	}
	jobs := m.ListJobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, "combined", jobs[0].FeatureSet)
	assert.Equal(t, "provenance", jobs[2].FeatureSet)
}
