package qpu

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/go-openapi/strfmt"
	jsoniter "github.com/json-iterator/go"
	"github.com/qiqb-osaka/readout-engine/core"

	"go.uber.org/zap"
)

var source rand.Source = rand.NewSource(time.Now().UnixNano())
var randGenerator *rand.Rand = rand.New(source)

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

const DummyDeviceName = "DummyQPU"
const DummyProviderName = "DummyProvider"

// DummyQPU executes circuits by sampling the ideal measurement outcome and
// flipping each readout bit with the error rates of the device setting. A
// calibration run against it therefore reproduces the configured confusion
// matrices up to shot noise.
type DummyQPU struct {
	deviceSetting *DeviceSetting
}

func (d *DummyQPU) Setup(conf *core.Conf) error {
	zap.L().Debug("setting up Dummy-QPU")
	ds, err := LoadDeviceSetting(conf.DeviceSettingPath)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to load a device setting. Reason:%s", err))
		return err
	}
	d.deviceSetting = ds
	return nil
}

func (d *DummyQPU) Send(j core.Job) error {
	jd := j.JobData()
	zap.L().Info("[Dummy] starting QPU execution of Job ID:" + jd.ID)
	circ, err := ParseCircuit(jd.Program)
	if err != nil {
		msg := core.SetFailureWithError(j, err)
		zap.L().Info(msg)
		return err
	}

	startTime := time.Now()
	counts := d.sample(circ, jd.Shots)
	endTime := time.Now()

	jd.Result.Counts = counts
	jd.Result.Message = "dummy success result"
	jd.Result.ExecutionTime = endTime.Sub(startTime)
	measured, err := circ.Mapping().ToRaw()
	if err != nil {
		msg := core.SetFailureWithError(j, err)
		zap.L().Info(msg)
		return err
	}
	jd.Measured = measured
	jd.Status = core.SUCCEEDED
	jd.Ended = strfmt.DateTime(time.Now())
	zap.L().Debug(fmt.Sprintf("[Dummy] Job ID:%s, Counts:%v", jd.ID, jd.Result.Counts))
	return nil
}

func (d *DummyQPU) sample(circ *Circuit, shots int) core.Counts {
	ideal := make([]byte, circ.NumBits)
	flip0 := make([]float64, circ.NumBits)
	flip1 := make([]float64, circ.NumBits)
	for bit, q := range circ.Measured {
		ideal[bit] = '0'
		for _, e := range circ.Excited {
			if e == q {
				ideal[bit] = '1'
			}
		}
		flip0[bit], flip1[bit] = d.deviceSetting.MeasError(q)
	}

	counts := make(core.Counts)
	observed := make([]byte, circ.NumBits)
	for s := 0; s < shots; s++ {
		copy(observed, ideal)
		for bit := range observed {
			switch observed[bit] {
			case '0':
				if flip0[bit] > 0 && randGenerator.Float64() < flip0[bit] {
					observed[bit] = '1'
				}
			default:
				if flip1[bit] > 0 && randGenerator.Float64() < flip1[bit] {
					observed[bit] = '0'
				}
			}
		}
		counts[string(observed)]++
	}
	return counts
}

func (d *DummyQPU) Validate(qasm string) error {
	return circuitValidate(qasm, d.deviceSetting.MaxQubits)
}

func (d *DummyQPU) GetDeviceInfo() *core.DeviceInfo {
	specJson, err := jsonIter.Marshal(d.deviceSetting.toDeviceInfoSpec())
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to marshal device info spec/reason:%s", err))
		specJson = []byte("{}")
	}
	return &core.DeviceInfo{
		DeviceName:         d.deviceSetting.DeviceName,
		ProviderName:       d.deviceSetting.ProviderName,
		Type:               "DummyQPU",
		Status:             core.Available,
		MaxQubits:          d.deviceSetting.MaxQubits,
		MaxShots:           d.deviceSetting.MaxShots,
		DeviceInfoSpecJson: string(specJson),
		CalibratedAt:       time.Now().Format(time.RFC3339),
	}
}

func (d *DummyQPU) TearDown() {}
