package sampling

import (
	"fmt"

	"github.com/qiqb-osaka/readout-engine/core"
	"github.com/qiqb-osaka/readout-engine/mitig"
	"go.uber.org/zap"
)

const SAMPLING_JOB = "sampling"

// SamplingJob runs one circuit on the QPU and, when the job requests it,
// corrects the measured counts against the stored device calibration in its
// post-process stage.
type SamplingJob struct {
	jobData        *core.JobData
	jobContext     *core.JobContext
	mitigationInfo *mitig.MitigationInfo
}

func (j *SamplingJob) New(jd *core.JobData, jc *core.JobContext) core.Job {
	return &SamplingJob{
		jobData:    jd,
		jobContext: jc,
	}
}

func (j *SamplingJob) PreProcess() {
	if err := j.preProcessImpl(); err != nil {
		zap.L().Error(fmt.Sprintf("failed to pre-process a job(%s). Reason:%s",
			j.JobData().ID, err.Error()))
		core.SetFailureWithError(j, err)
		return
	}
	j.setMitigationInfo()
}

func (j *SamplingJob) preProcessImpl() (err error) {
	jd := j.JobData()
	container := core.GetSystemComponents().Container
	err = container.Invoke(
		func(d core.DBManager) error {
			if d.ExistInInnerJobIDSet(jd.ID) {
				return core.ErrorJobIDConflict
			}
			return nil
		})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to check the existence of a job(%s). Reason:%s",
			jd.ID, err.Error()))
		return
	}
	err = container.Invoke(
		func(q core.QPUManager) error {
			return q.Validate(jd.Program)
		})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to validate the program of a job(%s). Reason:%s",
			jd.ID, err.Error()))
		return
	}
	_ = container.Invoke(
		func(d core.DBManager) error {
			d.AddToInnerJobIDSet(jd.ID)
			return nil
		})
	return
}

func (j *SamplingJob) Process() {
	c := core.GetSystemComponents().Container
	err := c.Invoke(
		func(q core.QPUManager) error {
			return q.Send(j)
		})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to send a job(%s) to QPU. Reason:%s", j.JobData().ID, err.Error()))
		j.JobData().Status = core.FAILED
	}
	zap.L().Debug(fmt.Sprintf("finished to process a job(%s)/status:%s", j.JobData().ID, j.JobData().Status))
}

func (j *SamplingJob) PostProcess() {
	if j.mitigationInfo == nil {
		j.setMitigationInfo()
	}
	j.mitigationInfo.Mitigated = true
	if j.mitigationInfo.NeedToBeMitigated {
		zap.L().Debug(fmt.Sprintf("start to correct readout errors of job(%s) with %s",
			j.JobData().ID, j.mitigationInfo.Readout))
		mitig.ReadoutMitigation(j.JobData(), j.mitigationInfo.Readout)
	} else {
		zap.L().Debug(fmt.Sprintf("skip readout correction of job(%s)", j.JobData().ID))
	}
}

func (j *SamplingJob) IsFinished() bool {
	if j.mitigationInfo != nil && j.mitigationInfo.NeedToBeMitigated {
		zap.L().Debug(fmt.Sprintf("job(%s) needs to be mitigated", j.JobData().ID))
		return j.mitigationInfo.Mitigated
	}
	return j.JobData().Status == core.SUCCEEDED || j.JobData().Status == core.FAILED
}

func (j *SamplingJob) JobData() *core.JobData {
	return j.jobData
}

func (j *SamplingJob) JobType() string {
	return SAMPLING_JOB
}

func (j *SamplingJob) JobContext() *core.JobContext {
	return j.jobContext
}

func (j *SamplingJob) UpdateJobData(jd *core.JobData) {
	j.jobData = jd
}

func (j *SamplingJob) Clone() core.Job {
	return &SamplingJob{
		jobData:        j.jobData.Clone(),
		jobContext:     j.jobContext,
		mitigationInfo: j.mitigationInfo,
	}
}

func (j *SamplingJob) setMitigationInfo() {
	j.mitigationInfo = mitig.NewMitigationInfoFromJobData(j.JobData())
}
