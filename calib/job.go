package calib

import (
	"context"
	"fmt"

	"github.com/go-faster/jx"
	"github.com/qiqb-osaka/readout-engine/core"
	"github.com/qiqb-osaka/readout-engine/qpu"
	"github.com/qiqb-osaka/readout-engine/spam"
	"go.uber.org/zap"
)

const CALIBRATION_JOB = "calibration"
const CALIBRATION_SETTING_KEY = "calibration"

const DEFAULT_MAX_SUBSET_QUBITS = 4

type CalibrationSetting struct {
	MaxSubsetQubits int
}

func NewCalibrationSetting() CalibrationSetting {
	setting := CalibrationSetting{
		MaxSubsetQubits: DEFAULT_MAX_SUBSET_QUBITS,
	}
	val, ok := core.GetComponentSetting(CALIBRATION_SETTING_KEY)
	if !ok {
		zap.L().Debug("calibration setting is not found, using the default")
		return setting
	}
	mapVal, ok := val.(map[string]interface{})
	if !ok {
		zap.L().Error("calibration setting is broken, using the default")
		return setting
	}
	if raw, ok := mapVal["max_subset_qubits"]; ok {
		if v, ok := raw.(int64); ok {
			setting.MaxSubsetQubits = int(v)
		}
	}
	return setting
}

// CalibrationJob measures the readout confusion matrices of the device. The
// job info names disjoint qubit subsets, one calibration circuit is run for
// every joint basis state of those subsets and the accumulated matrices are
// published to the calibration store under the current device name.
type CalibrationJob struct {
	setting    CalibrationSetting
	jobData    *core.JobData
	jobContext *core.JobContext
	layout     *spam.Layout
	set        *spam.CalibrationSet
	finished   bool
}

func (j *CalibrationJob) New(jd *core.JobData, jc *core.JobContext) core.Job {
	return &CalibrationJob{
		setting:    NewCalibrationSetting(),
		jobData:    jd,
		jobContext: jc,
	}
}

func (j *CalibrationJob) PreProcess() {
	if err := j.preProcessImpl(); err != nil {
		zap.L().Error(fmt.Sprintf("failed to pre-process a job(%s). Reason:%s",
			j.JobData().ID, err.Error()))
		core.SetFailureWithError(j, err)
		j.finished = true
	}
}

func (j *CalibrationJob) preProcessImpl() error {
	jd := j.JobData()
	container := core.GetSystemComponents().Container
	err := container.Invoke(
		func(d core.DBManager) error {
			if d.ExistInInnerJobIDSet(jd.ID) {
				return core.ErrorJobIDConflict
			}
			d.AddToInnerJobIDSet(jd.ID)
			return nil
		})
	if err != nil {
		return err
	}

	subsets, err := parseQubitSubsets(jd.Info)
	if err != nil {
		return err
	}
	for i, subset := range subsets {
		if len(subset) > j.setting.MaxSubsetQubits {
			return fmt.Errorf("subset %d has %d qubits over the limit(%d)",
				i, len(subset), j.setting.MaxSubsetQubits)
		}
	}
	layout, err := spam.NewLayout(subsets)
	if err != nil {
		return err
	}
	maxQubits := core.GetSystemComponents().GetDeviceInfo().MaxQubits
	for _, q := range layout.Qubits() {
		if int(q) >= maxQubits {
			return fmt.Errorf("qubit %d is out of the device(%d qubits)", q, maxQubits)
		}
	}
	zap.L().Debug(fmt.Sprintf("job(%s) calibrates qubits %v with %d circuits",
		jd.ID, layout.Qubits(), layout.NumPreparations()))
	j.layout = layout
	j.set = spam.NewCalibrationSet(layout)
	return nil
}

func (j *CalibrationJob) Process() {
	jd := j.JobData()
	for _, prep := range j.layout.Preparations() {
		circ := qpu.NewCalibrationCircuit(j.layout, prep)
		jd.Program = circ.QASM()
		err := core.GetSystemComponents().Invoke(
			func(q core.QPUManager) error {
				return q.Send(j)
			})
		if err != nil {
			zap.L().Error(fmt.Sprintf("failed to send a calibration circuit of job(%s). Reason:%s",
				jd.ID, err.Error()))
			core.SetFailureWithError(j, err)
			j.finished = true
			return
		}
		if jd.Status == core.FAILED {
			j.finished = true
			return
		}
		if err := j.set.Add(prep, jd.Result.Counts, measuredMapping(jd, circ)); err != nil {
			zap.L().Error(fmt.Sprintf("failed to accumulate calibration counts of job(%s). Reason:%s",
				jd.ID, err.Error()))
			core.SetFailureWithError(j, err)
			j.finished = true
			return
		}
	}
	zap.L().Debug(fmt.Sprintf("finished to process a job(%s)/status:%s", jd.ID, jd.Status))
}

func (j *CalibrationJob) PostProcess() {
	if err := j.postProcessImpl(); err != nil {
		zap.L().Error(fmt.Sprintf("failed to post-process a job(%s). Reason:%s",
			j.JobData().ID, err.Error()))
		core.SetFailureWithError(j, err)
	}
	j.finished = true
}

func (j *CalibrationJob) postProcessImpl() error {
	jd := j.JobData()
	if err := j.set.Finalize(); err != nil {
		return err
	}
	sc := core.GetSystemComponents()
	deviceID := sc.GetDeviceInfo().DeviceName
	err := sc.Invoke(
		func(cs core.CalibrationStore) error {
			cs.Put(deviceID, j.set)
			return nil
		})
	if err != nil {
		return err
	}
	core.CalibrationRunCounter.Add(context.Background(), 1)
	jd.Result.Message = fmt.Sprintf("calibrated qubits %v of device %s with %d circuits",
		j.layout.Qubits(), deviceID, j.layout.NumPreparations())
	jd.Status = core.SUCCEEDED
	return nil
}

func (j *CalibrationJob) IsFinished() bool {
	return j.finished
}

func (j *CalibrationJob) JobData() *core.JobData {
	return j.jobData
}

func (j *CalibrationJob) JobType() string {
	return CALIBRATION_JOB
}

func (j *CalibrationJob) JobContext() *core.JobContext {
	return j.jobContext
}

func (j *CalibrationJob) UpdateJobData(jd *core.JobData) {
	j.jobData = jd
}

func (j *CalibrationJob) Clone() core.Job {
	return &CalibrationJob{
		setting:    j.setting,
		jobData:    j.jobData.Clone(),
		jobContext: j.jobContext,
		layout:     j.layout,
		set:        j.set,
		finished:   j.finished,
	}
}

// measuredMapping prefers the mapping the QPU reported and falls back to the
// one the circuit was built with.
func measuredMapping(jd *core.JobData, circ *qpu.Circuit) core.MeasuredQubitMapping {
	if len(jd.Measured) > 0 {
		if m, err := jd.Measured.ToMap(); err == nil {
			return m
		}
	}
	return circ.Mapping()
}

// parseQubitSubsets decodes the calibration job info, a JSON object of the
// form {"qubit_subsets": [[0, 1], [2]]}.
func parseQubitSubsets(info string) ([][]uint32, error) {
	if info == "" {
		return nil, fmt.Errorf("no job info")
	}
	d := jx.DecodeStr(info)
	var subsets [][]uint32
	seen := false
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "qubit_subsets" {
			return d.Skip()
		}
		seen = true
		return d.Arr(func(d *jx.Decoder) error {
			var subset []uint32
			if err := d.Arr(func(d *jx.Decoder) error {
				q, err := d.UInt32()
				if err != nil {
					return err
				}
				subset = append(subset, q)
				return nil
			}); err != nil {
				return err
			}
			subsets = append(subsets, subset)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse the job info: %s", err)
	}
	if !seen {
		return nil, fmt.Errorf("no qubit_subsets in the job info")
	}
	return subsets, nil
}
