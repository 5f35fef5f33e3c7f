package mitig

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/qiqb-osaka/readout-engine/core"
	"github.com/qiqb-osaka/readout-engine/spam"
	"go.uber.org/zap"
)

// MitigationInfo is the parsed mitigation request of a job. Readout holds the
// requested correction method when NeedToBeMitigated is set.
type MitigationInfo struct {
	NeedToBeMitigated bool
	Mitigated         bool
	Readout           string
}

func NewMitigationInfoFromJobData(jd *core.JobData) *MitigationInfo {
	m := &MitigationInfo{
		Mitigated: false,
	}
	inputBytes := []byte(jd.MitigationInfo)
	if len(inputBytes) == 0 {
		zap.L().Debug(fmt.Sprintf("JobID:%s MitigationInfo is empty, assuming not mitigated", jd.ID))
		return m
	}
	var conf core.MitigationConfig
	if err := json.Unmarshal(inputBytes, &conf); err != nil {
		zap.L().Warn(fmt.Sprintf("JobID:%s MitigationInfo is not valid JSON, assuming not mitigated: %s",
			jd.ID, jd.MitigationInfo))
		return m
	}
	if conf.Readout == "" || conf.Readout == "none" {
		zap.L().Debug(fmt.Sprintf("JobID:%s does not need to be mitigated", jd.ID))
		return m
	}
	method, err := spam.ParseMethod(conf.Readout)
	if err != nil {
		zap.L().Warn(fmt.Sprintf("JobID:%s requested %s/reason:%s, assuming not mitigated",
			jd.ID, conf.Readout, err))
		return m
	}
	zap.L().Debug(fmt.Sprintf("JobID:%s Need to be mitigated with %s", jd.ID, method))
	m.NeedToBeMitigated = true
	m.Readout = method
	return m
}

// ReadoutMitigation corrects the counts of a finished job against the stored
// calibration of the current device. The raw counts are kept in RawCounts and
// the applied method with the raw-vs-corrected Jensen-Shannon divergence is
// recorded in the correction log. A missing calibration is not an error; the
// job keeps its raw counts. Jobs that already failed on the QPU are left
// untouched.
func ReadoutMitigation(jd *core.JobData, method string) {
	ctx, span := core.Tracer().Start(context.Background(), "readout-mitigation")
	defer span.End()

	if jd.Status == core.FAILED {
		zap.L().Debug(fmt.Sprintf("job(%s) already failed, skipping readout correction", jd.ID))
		return
	}
	raw := jd.Result.Counts
	if len(raw) == 0 {
		zap.L().Error(fmt.Sprintf("no counts to correct for job(%s)", jd.ID))
		jd.Status = core.FAILED
		return
	}
	mapping, err := measuredMapping(jd)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to resolve the measured qubit mapping of job(%s)/reason:%s",
			jd.ID, err))
		jd.Status = core.FAILED
		return
	}

	sc := core.GetSystemComponents()
	deviceID := sc.GetDeviceInfo().DeviceName
	var (
		set   *spam.CalibrationSet
		found bool
	)
	_ = sc.Invoke(func(cs core.CalibrationStore) error {
		set, found = cs.Get(deviceID)
		return nil
	})
	if !found {
		zap.L().Warn(fmt.Sprintf("no calibration for device %s, job(%s) keeps raw counts",
			deviceID, jd.ID))
		return
	}

	correcter, err := spam.NewCorrecter(set)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to build a correcter for job(%s)/reason:%s", jd.ID, err))
		jd.Status = core.FAILED
		return
	}
	corrected, err := correcter.CorrectCounts(raw, mapping, method, spam.Options{})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to correct counts of job(%s)/reason:%s", jd.ID, err))
		core.SetFailureWithErrorToJobData(jd, err)
		return
	}
	js := spam.JSDivergence(
		spam.DistributionFromCounts(raw),
		spam.DistributionFromCounts(corrected))

	jd.Result.RawCounts = raw
	jd.Result.Counts = corrected
	jd.Result.Correction = &core.CorrectionLog{
		Method:       method,
		JSDivergence: js,
	}
	jd.Status = core.SUCCEEDED
	core.CountCorrectedJob(ctx)
	zap.L().Debug(fmt.Sprintf("corrected counts of job(%s) with %s/js divergence:%f",
		jd.ID, method, js))
}

// measuredMapping resolves where each qubit sits in the counts bitstrings,
// falling back to the identity mapping when the QPU reported none.
func measuredMapping(jd *core.JobData) (core.MeasuredQubitMapping, error) {
	if len(jd.Measured) > 0 {
		return jd.Measured.ToMap()
	}
	numQubits, err := getNumOfQubits(jd.Result.Counts)
	if err != nil {
		return nil, err
	}
	mapping := make(core.MeasuredQubitMapping)
	for i := 0; i < numQubits; i++ {
		mapping[uint32(i)] = uint32(i)
	}
	return mapping, nil
}

func getNumOfQubits(counts core.Counts) (int, error) {
	if len(counts) == 0 {
		return 0, fmt.Errorf("counts is empty")
	}
	candidateNum := 0
	for k := range counts {
		if candidateNum == 0 {
			candidateNum = len(k)
		} else if candidateNum != len(k) {
			return 0, fmt.Errorf("different length of keys in counts")
		}
	}
	return candidateNum, nil
}
