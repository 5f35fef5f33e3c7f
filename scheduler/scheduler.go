package scheduler

import (
	"fmt"
	"sync"

	"github.com/qiqb-osaka/readout-engine/core"
	"go.uber.org/zap"
)

// statusManager records the status transitions of a job while it is handled.
type statusManager struct {
	mu      sync.RWMutex
	history map[string][]core.Status
}

func newStatusManager() *statusManager {
	return &statusManager{
		history: make(map[string][]core.Status),
	}
}

func (m *statusManager) Update(j core.Job, st core.Status) {
	j.JobData().Status = st
	m.Record(j.JobData().ID, st)
}

func (m *statusManager) Record(jobID string, st core.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[jobID] = append(m.history[jobID], st)
}

func (m *statusManager) Delete(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, jobID)
}

func (m *statusManager) Get(jobID string) []core.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history[jobID]
}

// FIFOScheduler processes jobs one at a time in arrival order. HandleJob
// drives the pre-process and post-process stages in a goroutine per job; the
// process stage is serialized through the queue so only one job occupies the
// QPU.
type FIFOScheduler struct {
	queue         *FIFOQueue
	statusManager *statusManager
}

func (s *FIFOScheduler) Setup(conf *core.Conf) error {
	s.queue = &FIFOQueue{}
	if err := s.queue.Setup(conf); err != nil {
		return err
	}
	s.statusManager = newStatusManager()
	return nil
}

func (s *FIFOScheduler) Start() error {
	go func() {
		for {
			zap.L().Debug("checking the queue...")
			qj, err := s.queue.Dequeue(true)
			if err != nil {
				zap.L().Error(fmt.Sprintf("failed to get a job from the queue. Reason:%s", err))
				continue
			}
			s.processJob(qj)
		}
	}()
	return nil
}

func (s *FIFOScheduler) processJob(qj *queuedJob) {
	defer qj.finished.Done()
	jid := qj.job.JobData().ID
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error(fmt.Sprintf("recovered from a panic while processing job(%s): %v", jid, r))
			core.SetFailureWithError(qj.job, fmt.Errorf("panic in process: %v", r))
		}
	}()
	zap.L().Debug(fmt.Sprintf("processing job:%s", jid))
	s.statusManager.Update(qj.job, core.RUNNING)
	qj.job.JobContext().DBChan <- qj.job.Clone()
	qj.job.Process()
	zap.L().Debug(fmt.Sprintf("finished to process job(%s), status:%s", jid, qj.job.JobData().Status))
}

func (s *FIFOScheduler) HandleJob(j core.Job) {
	zap.L().Debug(fmt.Sprintf("starting to handle job(%s) in %s", j.JobData().ID, j.JobData().Status))
	go func() {
		defer func() {
			jid := j.JobData().ID
			zap.L().Debug(fmt.Sprintf("status history of job(%s): %v", jid, s.statusManager.Get(jid)))
			s.statusManager.Delete(jid)
		}()
		s.handleImpl(j)
	}()
}

func (s *FIFOScheduler) HandleJobForTest(j core.Job, wg *sync.WaitGroup) {
	go func() {
		defer wg.Done()
		s.handleImpl(j)
	}()
}

func (s *FIFOScheduler) handleImpl(j core.Job) {
	jid := j.JobData().ID
	j.JobData().UseJobInfoUpdate = false
	s.statusManager.Record(jid, j.JobData().Status)
	if j.JobData().Status != core.READY {
		zap.L().Error(fmt.Sprintf("finished to handle job(%s) with unexpected status:%s",
			jid, j.JobData().Status.String()))
		return
	}

	zap.L().Debug(fmt.Sprintf("handling job(%s). start pre-processing", jid))
	j.PreProcess()
	if j.IsFinished() {
		j.JobData().UseJobInfoUpdate = true
		s.statusManager.Record(jid, j.JobData().Status)
		j.JobContext().DBChan <- j.Clone()
		zap.L().Debug(fmt.Sprintf("finished to handle job(%s) after pre-processing", jid))
		return
	}
	j.JobContext().DBChan <- j.Clone()

	var wg sync.WaitGroup
	wg.Add(1)
	s.queue.queueChan <- &queuedJob{
		job:      j,
		finished: &wg,
	}
	wg.Wait() // wait for processing
	j.JobData().UseJobInfoUpdate = true
	zap.L().Debug(fmt.Sprintf("Processed Job Status: %s", j.JobData().Status))
	if j.IsFinished() {
		s.statusManager.Record(jid, j.JobData().Status)
		j.JobContext().DBChan <- j.Clone()
		zap.L().Debug(fmt.Sprintf("finished to handle job(%s) after processing with status:%s",
			jid, j.JobData().Status.String()))
		return
	}

	zap.L().Debug(fmt.Sprintf("handling job(%s). start post-processing", jid))
	j.PostProcess()
	s.statusManager.Record(jid, j.JobData().Status)
	j.JobContext().DBChan <- j.Clone()
	zap.L().Debug(fmt.Sprintf("finished to handle job(%s) after post-processing with status:%s",
		jid, j.JobData().Status.String()))
}

func (s *FIFOScheduler) GetCurrentQueueSize() int {
	return s.queue.GetCurrentSize()
}

func (s *FIFOScheduler) IsOverRefillThreshold() bool {
	return s.queue.IsOverRefillThreshold()
}
