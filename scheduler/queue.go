package scheduler

import (
	"fmt"
	"sync"

	conq "github.com/enriquebris/goconcurrentqueue"
	"github.com/qiqb-osaka/readout-engine/core"
	"go.uber.org/zap"
)

type queueChan chan *queuedJob

// queuedJob is one job waiting for its turn on the QPU. finished is released
// once the process stage ran.
type queuedJob struct {
	job      core.Job
	finished *sync.WaitGroup
}

type fifo interface {
	Enqueue(*queuedJob) error
	Dequeue() (*queuedJob, error)
	DequeueOrWaitForNextElement() (*queuedJob, error)
	Get(index int) (*queuedJob, error)
	GetLen() int
	Remove(index int) error
}

type conqFIFO struct {
	conq.FIFO
}

func newConqFIFO() *conqFIFO {
	return &conqFIFO{
		FIFO: *conq.NewFIFO(),
	}
}

func (c *conqFIFO) Enqueue(qj *queuedJob) error {
	return c.FIFO.Enqueue(qj)
}

func (c *conqFIFO) Dequeue() (*queuedJob, error) {
	tmp, err := c.FIFO.Dequeue()
	if err != nil {
		return nil, err
	}
	return tmp.(*queuedJob), nil
}

func (c *conqFIFO) DequeueOrWaitForNextElement() (*queuedJob, error) {
	tmp, err := c.FIFO.DequeueOrWaitForNextElement()
	if err != nil {
		return nil, err
	}
	return tmp.(*queuedJob), nil
}

func (c *conqFIFO) Get(index int) (*queuedJob, error) {
	tmp, err := c.FIFO.Get(index)
	if err != nil {
		return nil, err
	}
	return tmp.(*queuedJob), nil
}

func (c *conqFIFO) GetLen() int {
	return c.FIFO.GetLen()
}

func (c *conqFIFO) Remove(index int) error {
	return c.FIFO.Remove(index)
}

type FIFOQueue struct {
	fifo            fifo
	maxSize         int
	refillThreshold int
	queueChan       queueChan
	cancelChan      chan struct{}
}

func (q *FIFOQueue) Setup(conf *core.Conf) error {
	q.refillThreshold = conf.QueueRefillThreshold
	q.maxSize = conf.QueueMaxSize
	q.fifo = newConqFIFO()
	q.queueChan = make(queueChan)
	q.cancelChan = make(chan struct{})
	go func() {
		for {
			var qj *queuedJob
			select {
			case <-q.cancelChan:
				return
			case qj = <-q.queueChan:
			}
			jd := qj.job.JobData()
			if q.maxSize <= q.fifo.GetLen() {
				zap.L().Info(fmt.Sprintf("Failed to put %s. Queue is full.", jd.ID))
				core.SetFailureWithError(qj.job, fmt.Errorf("queue is full"))
				qj.finished.Done()
				continue
			}
			zap.L().Debug(fmt.Sprintf("Putting %s to the queue", jd.ID))
			if err := q.fifo.Enqueue(qj); err != nil {
				zap.L().Error(fmt.Sprintf("Failed to put %s to the queue. Reason:%s", jd.ID, err))
				core.SetFailureWithError(qj.job, err)
				qj.finished.Done()
			}
		}
	}()
	return nil
}

func (q *FIFOQueue) TearDown() {
	close(q.cancelChan)
}

// Dequeue blocks until a job is available when wait is true.
func (q *FIFOQueue) Dequeue(wait bool) (*queuedJob, error) {
	var qj *queuedJob
	var err error
	if wait {
		qj, err = q.fifo.DequeueOrWaitForNextElement()
	} else {
		qj, err = q.fifo.Dequeue()
	}
	if err != nil {
		zap.L().Debug("no job in the queue.", zap.Error(err))
		return nil, err
	}
	zap.L().Debug(fmt.Sprintf("Dequeued job:%s", qj.job.JobData().ID))
	return qj, nil
}

func (q *FIFOQueue) Delete(jobID string) error {
	zap.L().Debug(fmt.Sprintf("deleting %s from the queue", jobID))
	idx, err := q.getIdx(jobID)
	if err != nil {
		zap.L().Info(fmt.Sprintf("Failed to Delete %s. Reason:%s", jobID, err))
		return err
	}
	if err := q.fifo.Remove(idx); err != nil {
		zap.L().Error(fmt.Sprintf("Failed to remove idx:%d. Reason:%s", idx, err))
		return err
	}
	return nil
}

func (q *FIFOQueue) IsOverRefillThreshold() bool {
	return q.refillThreshold <= q.fifo.GetLen()
}

func (q *FIFOQueue) GetCurrentSize() int {
	return q.fifo.GetLen()
}

func (q *FIFOQueue) getIdx(jobID string) (int, error) {
	for i := 0; i < q.fifo.GetLen(); i++ {
		qj, err := q.fifo.Get(i)
		if err == nil {
			if qj.job.JobData().ID == jobID {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("No entry")
}
