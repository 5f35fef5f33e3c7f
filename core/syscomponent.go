package core

import (
	"encoding/json"
	"fmt"

	"github.com/go-faster/jx"
	"github.com/qiqb-osaka/readout-engine/spam"
	"go.uber.org/dig"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	systemComponents            *SystemComponents
	defaultMitigationConfigJson map[string]jx.Raw
)

func init() {
	dmc := DEFAULT_MITIGATION_CONFIG()
	dmcj := make(map[string]jx.Raw)
	dmcj["readout"] = jx.Raw(fmt.Sprintf("%q", dmc.Readout))
	defaultMitigationConfigJson = dmcj
}

func DefaultMitigationConfigJson() map[string]jx.Raw {
	return defaultMitigationConfigJson
}

type DBChan chan Job

type Channels struct {
	DBChan
	// when more channel is needed, add here
}

func NewChannels() *Channels {
	return &Channels{
		DBChan: make(DBChan),
	}
}

func (c *Channels) Close() {
	close(c.DBChan)
}

func (c *Channels) Check() error {
	if c.DBChan == nil {
		return fmt.Errorf("DBChan is nil")
	}
	return nil
}

type DeviceInfo struct {
	DeviceName         string       `json:"device_name"`
	ProviderName       string       `json:"provider_name"`
	Type               string       `json:"type"`
	Status             DeviceStatus `json:"status"`
	MaxQubits          int          `json:"max_qubits"`
	MaxShots           int          `json:"max_shots"`
	DeviceInfoSpecJson string       `json:"device_info"`
	CalibratedAt       string       `json:"calibrated_at"`
}

type DeviceInfoSpec struct {
	DeviceID string  `json:"device_id"`
	Qubits   []Qubit `json:"qubits"`
}

type Qubit struct {
	ID        int       `json:"id"`
	Position  Position  `json:"position"`
	Fidelity  float64   `json:"fidelity"`
	MeasError MeasError `json:"meas_error"`
	QubitLife QubitLife `json:"qubit_lifetime"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type MeasError struct {
	ProbMeas1Prep0         float64 `json:"prob_meas1_prep0"`
	ProbMeas0Prep1         float64 `json:"prob_meas0_prep1"`
	ReadoutAssignmentError float64 `json:"readout_assignment_error"`
}

type QubitLife struct {
	T1 float64 `json:"t1"`
	T2 float64 `json:"t2"`
}

type DeviceStatus int

const (
	Available DeviceStatus = iota
	Unavailable
	QueuePaused
)

func (ds DeviceStatus) String() string {
	switch ds {
	case Available:
		return "Available"
	case Unavailable:
		return "Unavailable"
	case QueuePaused:
		return "QueuePaused"
	default:
		return "Unknown"
	}
}

type QPUManager interface {
	Setup(*Conf) error
	Send(Job) error
	Validate(program string) error
	GetDeviceInfo() *DeviceInfo
	TearDown()
}

type MitigationConfig struct {
	Readout string `json:"readout"` // minimise, invert or bayesian
}

func DEFAULT_MITIGATION_CONFIG() *MitigationConfig {
	return &MitigationConfig{
		Readout: spam.MethodMinimise,
	}
}

type Scheduler interface {
	Setup(*Conf) error
	Start() error
	HandleJob(Job)
	// Queue Data Access
	GetCurrentQueueSize() int
	IsOverRefillThreshold() bool
}

type DBManager interface {
	Setup(DBChan, *Conf) error
	Insert(Job) error
	Get(string) (Job, error)
	Update(Job) error
	Delete(string) error

	AddToInnerJobIDSet(string)
	RemoveFromInnerJobIDSet(string)
	ExistInInnerJobIDSet(string) bool
}

// CalibrationStore keeps the confusion matrices produced by calibration jobs,
// keyed by device id. Sampling jobs read from it when correcting counts.
type CalibrationStore interface {
	Setup(*Conf) error
	Put(deviceID string, set *spam.CalibrationSet)
	Get(deviceID string) (*spam.CalibrationSet, bool)
	CalibratedAt(deviceID string) (string, bool)
}

type SystemComponents struct {
	*dig.Container
	*Channels
}

func NewSystemComponents(con *dig.Container) *SystemComponents {
	return &SystemComponents{
		con,
		NewChannels(),
	}
}

func GetSystemComponents() *SystemComponents {
	return systemComponents
}

func (s *SystemComponents) Setup(conf *Conf) error {
	dbChan := s.DBChan

	zap.L().Debug("Setting up scheduler")
	var err error
	err = s.Invoke(
		func(sc Scheduler) error {
			return sc.Setup(conf)
		})
	if err != nil {
		return err
	}

	zap.L().Debug("Setting up DB")
	err = s.Invoke(
		func(d DBManager) error {
			return d.Setup(dbChan, conf)
		})
	if err != nil {
		return err
	}

	zap.L().Debug("Setting up QPU")
	err = s.Invoke(func(q QPUManager) error {
		return q.Setup(conf)
	})
	if err != nil {
		return err
	}

	zap.L().Debug("Setting up calibration store")
	err = s.Invoke(
		func(cs CalibrationStore) error {
			return cs.Setup(conf)
		})
	if err != nil {
		return err
	}
	systemComponents = s
	return nil
}

func (s *SystemComponents) TearDown() {
	errs := multierr.Combine(
		s.Invoke(func(q QPUManager) { q.TearDown() }),
	)
	if errs != nil {
		zap.L().Warn(fmt.Sprintf("teardown finished with errors: %s", errs))
	}
	s.Channels.Close()
}

func (s *SystemComponents) StartContainer() error {
	return s.Container.Invoke(
		func(s Scheduler) error {
			return s.Start()
		})
}

func (s *SystemComponents) GetDeviceInfo() *DeviceInfo {
	var deviceInfo *DeviceInfo
	s.Invoke(
		func(q QPUManager) error {
			deviceInfo = q.GetDeviceInfo()
			return nil
		})
	return deviceInfo
}

// GetDeviceInfoSpec parses the raw device spec json of the current device.
func (s *SystemComponents) GetDeviceInfoSpec() (*DeviceInfoSpec, error) {
	di := s.GetDeviceInfo()
	if di == nil {
		return nil, fmt.Errorf("device info is not available")
	}
	var dis DeviceInfoSpec
	if err := json.Unmarshal([]byte(di.DeviceInfoSpecJson), &dis); err != nil {
		zap.L().Error(fmt.Sprintf("failed to unmarshal device info spec json/reason:%s", err))
		return nil, err
	}
	return &dis, nil
}

func (s *SystemComponents) GetCurrentQueueSize() int {
	var size int
	s.Invoke(
		func(sc Scheduler) {
			size = sc.GetCurrentQueueSize()
		})
	return size
}

func (s *SystemComponents) IsQueueOverRefillThreshold() bool {
	var over bool
	s.Invoke(
		func(sc Scheduler) {
			over = sc.IsOverRefillThreshold()
		})
	return over
}
