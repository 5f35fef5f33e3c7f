package qpu

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/qiqb-osaka/readout-engine/common"
	"github.com/qiqb-osaka/readout-engine/core"
	"go.uber.org/zap"
)

type DeviceSetting struct {
	DeviceName    string         `toml:"device_name"`
	ProviderName  string         `toml:"provider_name"`
	MaxQubits     int            `toml:"max_qubits"`
	MaxShots      int            `toml:"max_shots"`
	PollingPeriod uint32         `toml:"polling_period"`
	Qubits        []QubitSetting `toml:"qubits"`
}

// QubitSetting carries the per-qubit readout error rates the dummy QPU
// simulates and the device spec json reports.
type QubitSetting struct {
	ID             int     `toml:"id"`
	Fidelity       float64 `toml:"fidelity"`
	ProbMeas1Prep0 float64 `toml:"prob_meas1_prep0"`
	ProbMeas0Prep1 float64 `toml:"prob_meas0_prep1"`
	T1             float64 `toml:"t1"`
	T2             float64 `toml:"t2"`
}

func NewDeviceSetting() *DeviceSetting {
	return &DeviceSetting{
		DeviceName:    DummyDeviceName,
		ProviderName:  DummyProviderName,
		MaxQubits:     4,
		MaxShots:      10000,
		PollingPeriod: 60,
	}
}

func LoadDeviceSetting(path string) (*DeviceSetting, error) {
	blob, assetErr := common.ReadFile(path)
	ds := NewDeviceSetting()
	if assetErr != nil {
		zap.L().Info(fmt.Sprintf("Failed to read file:%s Reason:%s", path, assetErr))
		return ds, nil
	}
	if _, err := toml.Decode(blob, ds); err != nil {
		zap.L().Error(fmt.Sprintf("failed to decode blob:%s", blob))
		return &DeviceSetting{}, err
	}
	if err := ds.validate(); err != nil {
		zap.L().Error(fmt.Sprintf("invalid device setting in %s/reason:%s", path, err))
		return &DeviceSetting{}, err
	}
	return ds, nil
}

func (ds *DeviceSetting) validate() error {
	seen := make(map[int]struct{})
	for _, q := range ds.Qubits {
		if q.ID < 0 || q.ID >= ds.MaxQubits {
			return fmt.Errorf("qubit id %d is out of the device range [0, %d)", q.ID, ds.MaxQubits)
		}
		if _, ok := seen[q.ID]; ok {
			return fmt.Errorf("qubit id %d is configured twice", q.ID)
		}
		seen[q.ID] = struct{}{}
		if q.ProbMeas1Prep0 < 0 || q.ProbMeas1Prep0 > 1 ||
			q.ProbMeas0Prep1 < 0 || q.ProbMeas0Prep1 > 1 {
			return fmt.Errorf("qubit id %d has readout error rates outside [0, 1]", q.ID)
		}
	}
	return nil
}

// MeasError looks up the configured readout error rates of a qubit. Qubits
// absent from the setting read perfectly.
func (ds *DeviceSetting) MeasError(qubit uint32) (prob1Prep0, prob0Prep1 float64) {
	for _, q := range ds.Qubits {
		if q.ID == int(qubit) {
			return q.ProbMeas1Prep0, q.ProbMeas0Prep1
		}
	}
	return 0, 0
}

func (ds *DeviceSetting) toDeviceInfoSpec() *core.DeviceInfoSpec {
	spec := &core.DeviceInfoSpec{
		DeviceID: ds.DeviceName,
	}
	for _, q := range ds.Qubits {
		spec.Qubits = append(spec.Qubits, core.Qubit{
			ID:       q.ID,
			Fidelity: q.Fidelity,
			MeasError: core.MeasError{
				ProbMeas1Prep0:         q.ProbMeas1Prep0,
				ProbMeas0Prep1:         q.ProbMeas0Prep1,
				ReadoutAssignmentError: (q.ProbMeas1Prep0 + q.ProbMeas0Prep1) / 2,
			},
			QubitLife: core.QubitLife{T1: q.T1, T2: q.T2},
		})
	}
	return spec
}
