//go:build unit
// +build unit

package sampling

import (
	"testing"

	"github.com/google/uuid"
	"github.com/qiqb-osaka/readout-engine/core"
	"github.com/qiqb-osaka/readout-engine/spam"
	"github.com/stretchr/testify/assert"
)

func samplingJob(t *testing.T, mitigationInfo string) *SamplingJob {
	t.Helper()
	jd := core.NewJobData()
	jd.ID = uuid.NewString()
	jd.Status = core.READY
	jd.Shots = 1000
	jd.JobType = SAMPLING_JOB
	jd.Program = "OPENQASM 3;\nqubit[2] q;\nbit[2] c;\nc[0] = measure q[0];\nc[1] = measure q[1];\n"
	jd.MitigationInfo = mitigationInfo
	jc, err := core.NewJobContext()
	assert.NoError(t, err)
	return (&SamplingJob{}).New(jd, jc).(*SamplingJob)
}

func TestSamplingJobWithoutMitigation(t *testing.T) {
	s := core.SCWithUnimplementedContainer()
	defer s.TearDown()

	j := samplingJob(t, "")
	j.PreProcess()
	assert.NotNil(t, j.mitigationInfo)
	assert.False(t, j.mitigationInfo.NeedToBeMitigated)
	assert.False(t, j.IsFinished())

	j.Process()
	assert.Equal(t, core.SUCCEEDED, j.JobData().Status)
	assert.True(t, j.IsFinished())

	j.PostProcess()
	assert.Nil(t, j.JobData().Result.Correction)
}

func TestSamplingJobRejectsReusedJobID(t *testing.T) {
	s := core.SCWithUnimplementedContainer()
	defer s.TearDown()

	j := samplingJob(t, "")
	assert.NoError(t, s.Invoke(func(d core.DBManager) error {
		d.AddToInnerJobIDSet(j.JobData().ID)
		return nil
	}))
	j.PreProcess()
	assert.Equal(t, core.FAILED, j.JobData().Status)
	assert.Equal(t, core.ErrorJobIDConflict.Error(), j.JobData().Result.Message)
	assert.True(t, j.IsFinished())
}

func TestSamplingJobWithMitigation(t *testing.T) {
	s := core.SCWithUnimplementedContainer()
	defer s.TearDown()

	layout, err := spam.NewLayout([][]uint32{{0, 1}})
	assert.NoError(t, err)
	assert.NoError(t, s.Invoke(func(cs core.CalibrationStore) error {
		cs.Put(core.MockDeviceID, spam.IdentityCalibrationSet(layout))
		return nil
	}))

	j := samplingJob(t, `{"readout": "invert"}`)
	j.PreProcess()
	assert.True(t, j.mitigationInfo.NeedToBeMitigated)
	assert.Equal(t, spam.MethodInvert, j.mitigationInfo.Readout)

	j.Process()
	assert.Equal(t, core.SUCCEEDED, j.JobData().Status)
	// the counts are not corrected until post-processing
	assert.False(t, j.IsFinished())

	j.JobData().Result.Counts = core.Counts{"00": 600, "11": 400}
	j.PostProcess()
	assert.True(t, j.IsFinished())
	assert.Equal(t, core.SUCCEEDED, j.JobData().Status)
	assert.Equal(t, core.Counts{"00": 600, "11": 400}, j.JobData().Result.Counts)
	assert.Equal(t, core.Counts{"00": 600, "11": 400}, j.JobData().Result.RawCounts)
	assert.Equal(t, spam.MethodInvert, j.JobData().Result.Correction.Method)
}

func TestSamplingJobCloneKeepsMitigationInfo(t *testing.T) {
	s := core.SCWithUnimplementedContainer()
	defer s.TearDown()

	j := samplingJob(t, `{"readout": "minimise"}`)
	j.PreProcess()
	cloned := j.Clone().(*SamplingJob)
	assert.Equal(t, j.JobData().ID, cloned.JobData().ID)
	assert.NotSame(t, j.JobData(), cloned.JobData())
	assert.True(t, cloned.mitigationInfo.NeedToBeMitigated)
}
