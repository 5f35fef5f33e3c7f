package core

import (
	"fmt"

	"github.com/qiqb-osaka/readout-engine/spam"
	"go.uber.org/dig"
)

const MockMaxQubits int = 10
const MockMaxShots int = 10000
const MockDeviceID = "MockDevice"

type UnimplementedJob struct {
	jobData    *JobData
	jobContext *JobContext
}

func (j *UnimplementedJob) New(jd *JobData, jc *JobContext) Job {
	return &UnimplementedJob{
		jobData:    jd,
		jobContext: jc,
	}
}

func (j *UnimplementedJob) PreProcess() {
	return
}

func (j *UnimplementedJob) Process() {
	return
}

func (j *UnimplementedJob) PostProcess() {
	return
}

func (j *UnimplementedJob) IsFinished() bool {
	return j.JobData().Status == SUCCEEDED || j.JobData().Status == FAILED
}

func (j *UnimplementedJob) JobData() *JobData {
	return j.jobData
}

func (j *UnimplementedJob) JobType() string {
	return j.jobData.JobType
}

func (j *UnimplementedJob) JobContext() *JobContext {
	return j.jobContext
}

func (j *UnimplementedJob) Clone() Job {
	cloned := &UnimplementedJob{
		jobData:    j.jobData.Clone(),
		jobContext: j.jobContext,
	}
	return cloned
}

type UnimplementedQPU struct{}

func (u *UnimplementedQPU) Setup(*Conf) error {
	return nil
}

func (u *UnimplementedQPU) Send(Job) error {
	return nil
}

func (u *UnimplementedQPU) Validate(string) error {
	return nil
}

func (u *UnimplementedQPU) TearDown() {}

func (u *UnimplementedQPU) GetDeviceInfo() *DeviceInfo {
	return &DeviceInfo{
		MaxQubits:  MockMaxQubits,
		MaxShots:   MockMaxShots,
		DeviceName: MockDeviceID,
		Status:     Available,
		DeviceInfoSpecJson: `
			{
			"device_id": "MockDevice",
			"qubits":
			[{
			"id": 0, "qubit_lifetime": {"t1": 36.9, "t2": 23.8}, "fidelity": 0.99, "meas_error": {"prob_meas0_prep1": 0.02, "prob_meas1_prep0": 0.01}
			},
			{
			"id": 1, "qubit_lifetime": {"t1": 35.8, "t2": 24.8}, "fidelity": 0.98, "meas_error": {"prob_meas0_prep1": 0.05, "prob_meas1_prep0": 0.03}
			},
			{
			"id": 2, "qubit_lifetime": {"t1": 34.1, "t2": 21.9}, "fidelity": 0.98, "meas_error": {"prob_meas0_prep1": 0.04, "prob_meas1_prep0": 0.02}
			},
			{
			"id": 3, "qubit_lifetime": {"t1": 33.4, "t2": 20.0}, "fidelity": 0.97, "meas_error": {"prob_meas0_prep1": 0.03, "prob_meas1_prep0": 0.02}
			}]
			}`,
	}
}

type successQPUForTest struct {
	UnimplementedQPU
}

func (successQPUForTest) Send(j Job) error {
	j.JobData().Status = SUCCEEDED
	return nil
}

type unimplementedDB struct {
	innerJobIDSet map[string]struct{}
}

func (u *unimplementedDB) Setup(DBChan, *Conf) error {
	u.innerJobIDSet = make(map[string]struct{})
	return nil
}
func (u *unimplementedDB) Insert(Job) error { return nil }
func (u *unimplementedDB) Get(jobID string) (Job, error) {
	return &NormalJob{}, nil
}
func (u *unimplementedDB) Update(Job) error    { return nil }
func (u *unimplementedDB) Delete(string) error { return nil }
func (u *unimplementedDB) AddToInnerJobIDSet(jobID string) {
	u.innerJobIDSet[jobID] = struct{}{}
}
func (u *unimplementedDB) RemoveFromInnerJobIDSet(jobID string) {
	delete(u.innerJobIDSet, jobID)
}
func (u *unimplementedDB) ExistInInnerJobIDSet(jobID string) bool {
	_, ok := u.innerJobIDSet[jobID]
	return ok
}

type notFindDBForTest struct {
	unimplementedDB
}

func (notFindDBForTest) Get(jobID string) (Job, error) {
	return &NormalJob{}, fmt.Errorf("failed to find %s", jobID)
}

type unimplementedScheduler struct{}

func (u *unimplementedScheduler) Setup(*Conf) error           { return nil }
func (u *unimplementedScheduler) Start() error                { return nil }
func (u *unimplementedScheduler) HandleJob(_ Job)             { return }
func (u *unimplementedScheduler) GetCurrentQueueSize() int    { return 0 }
func (u *unimplementedScheduler) IsOverRefillThreshold() bool { return false }

type mapCalibrationStore struct {
	sets map[string]*spam.CalibrationSet
	when map[string]string
}

func (m *mapCalibrationStore) Setup(*Conf) error {
	m.sets = make(map[string]*spam.CalibrationSet)
	m.when = make(map[string]string)
	return nil
}

func (m *mapCalibrationStore) Put(deviceID string, set *spam.CalibrationSet) {
	m.sets[deviceID] = set
	m.when[deviceID] = "now"
}

func (m *mapCalibrationStore) Get(deviceID string) (*spam.CalibrationSet, bool) {
	s, ok := m.sets[deviceID]
	return s, ok
}

func (m *mapCalibrationStore) CalibratedAt(deviceID string) (string, bool) {
	w, ok := m.when[deviceID]
	return w, ok
}

// SCWithScheduler builds system components around a real scheduler with a
// memory DB consuming the DB channel, for scheduler-level tests.
func SCWithScheduler(sc Scheduler) *SystemComponents {
	c := dig.New()
	c.Provide(func() QPUManager { return &successQPUForTest{} })
	c.Provide(func() Scheduler { return sc })
	c.Provide(func() DBManager { return &MemoryDB{} })
	c.Provide(func() CalibrationStore { return &mapCalibrationStore{} })
	s := NewSystemComponents(c)
	if err := s.Setup(&Conf{QueueMaxSize: 10, QueueRefillThreshold: 5}); err != nil {
		panic(err)
	}
	return s
}

func SCWithUnimplementedContainer() *SystemComponents {
	c := dig.New()
	c.Provide(func() QPUManager { return &successQPUForTest{} })
	c.Provide(func() Scheduler { return &unimplementedScheduler{} })
	c.Provide(func() DBManager {
		db := &unimplementedDB{}
		db.Setup(nil, &Conf{})
		return db
	})
	c.Provide(func() CalibrationStore {
		cs := &mapCalibrationStore{}
		cs.Setup(&Conf{})
		return cs
	})
	s := NewSystemComponents(c)
	systemComponents = s
	return s
}
