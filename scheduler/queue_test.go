//go:build unit
// +build unit

package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qiqb-osaka/readout-engine/core"
	"github.com/stretchr/testify/assert"
)

func queuedJobForTest(t *testing.T) *queuedJob {
	t.Helper()
	jd := core.NewJobData()
	jd.ID = uuid.NewString()
	jd.Status = core.READY
	j := &core.NormalJob{}
	j.UpdateJobData(jd)
	wg := &sync.WaitGroup{}
	wg.Add(1)
	return &queuedJob{
		job:      j,
		finished: wg,
	}
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := &FIFOQueue{}
	assert.NoError(t, q.Setup(&core.Conf{QueueMaxSize: 2, QueueRefillThreshold: 2}))
	defer q.TearDown()

	first := queuedJobForTest(t)
	second := queuedJobForTest(t)
	third := queuedJobForTest(t)
	q.queueChan <- first
	q.queueChan <- second
	q.queueChan <- third

	// the third job is rejected and released immediately
	third.finished.Wait()
	assert.Equal(t, core.FAILED, third.job.JobData().Status)
	assert.Equal(t, 2, q.GetCurrentSize())
	assert.True(t, q.IsOverRefillThreshold())
}

func TestQueueDequeueAndDelete(t *testing.T) {
	q := &FIFOQueue{}
	assert.NoError(t, q.Setup(&core.Conf{QueueMaxSize: 10, QueueRefillThreshold: 5}))
	defer q.TearDown()

	first := queuedJobForTest(t)
	second := queuedJobForTest(t)
	q.queueChan <- first
	q.queueChan <- second

	got, err := q.Dequeue(true)
	assert.NoError(t, err)
	assert.Equal(t, first.job.JobData().ID, got.job.JobData().ID)

	assert.Eventually(t, func() bool { return q.GetCurrentSize() == 1 },
		time.Second, 10*time.Millisecond)
	assert.NoError(t, q.Delete(second.job.JobData().ID))
	assert.Equal(t, 0, q.GetCurrentSize())
	assert.False(t, q.IsOverRefillThreshold())

	_, err = q.Dequeue(false)
	assert.Error(t, err)

	assert.ErrorContains(t, q.Delete("missing"), "No entry")
}
