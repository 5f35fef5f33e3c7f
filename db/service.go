package db

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/jx"
	jsoniter "github.com/json-iterator/go"
	"github.com/qiqb-osaka/readout-engine/core"
	"go.uber.org/zap"
)

const apiKeyHeader = "X-API-Key"

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

// ServiceDB mirrors job status and results to the cloud job API. The edge
// never reads jobs back from the cloud, so Get and Delete stay local no-ops.
type ServiceDB struct {
	endpoint string
	apiKey   string
	client   *http.Client
	dbc      core.DBChan

	mu            sync.RWMutex
	innerJobIDSet map[string]struct{}
}

func (s *ServiceDB) Setup(dbc core.DBChan, c *core.Conf) error {
	zap.L().Debug("Setting up Service DB")
	s.innerJobIDSet = make(map[string]struct{})
	endpoint := c.ServiceDBEndpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	s.endpoint = endpoint
	s.apiKey = c.ServiceDBAPIKey
	s.client = &http.Client{Timeout: 30 * time.Second}
	s.dbc = dbc
	go func() {
		for {
			job := <-s.dbc
			if job == nil { //when dbChan is closed
				return
			}
			zap.L().Debug(fmt.Sprintf("[ServiceDB] Received %s", job.JobData().ID))
			s.Update(job)
		}
	}()
	return nil
}

func (s *ServiceDB) Insert(j core.Job) error {
	// ad hoc impl
	zap.L().Debug("[ServiceDB] Does not insert " + j.JobData().ID)
	return nil
}

func (s *ServiceDB) Get(jobID string) (core.Job, error) {
	// ad hoc impl
	zap.L().Debug("[ServiceDB] Do not get " + jobID)
	return &core.NormalJob{}, fmt.Errorf("not found %s", jobID)
}

func (s *ServiceDB) Update(j core.Job) error {
	jd := j.JobData()
	jid := jd.ID
	zap.L().Debug(fmt.Sprintf("Updating %s/status:%s", jid, jd.Status))
	if !jd.UseJobInfoUpdate {
		switch jd.Status {
		case core.RUNNING:
			return s.patchStatus(jid, jd.Status)
		case core.SUCCEEDED:
			zap.L().Debug(fmt.Sprintf("Job(%s) is succeeded", jid))
		case core.FAILED:
			zap.L().Debug(fmt.Sprintf("Job(%s) is failed", jid))
		case core.READY:
			zap.L().Debug(fmt.Sprintf("Job(%s) is ready. Not update DB", jid))
		default:
			zap.L().Error(fmt.Sprintf("Unexpected status %s", jd.Status))
		}
		return nil
	}
	zap.L().Debug("JobsInfo Updating")
	return s.patchJobInfo(jd)
}

func (s *ServiceDB) Delete(jobID string) error {
	// ad hoc impl
	zap.L().Debug("[ServiceDB] Do not delete " + jobID)
	return nil
}

func (s *ServiceDB) AddToInnerJobIDSet(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.innerJobIDSet[jobID] = struct{}{}
}

func (s *ServiceDB) RemoveFromInnerJobIDSet(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.innerJobIDSet, jobID)
}

func (s *ServiceDB) ExistInInnerJobIDSet(jobID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.innerJobIDSet[jobID]
	return ok
}

func (s *ServiceDB) patchStatus(jobID string, status core.Status) error {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str(status.String()) })
	})
	uri := fmt.Sprintf("%s/jobs/%s", s.endpoint, jobID)
	if err := s.patch(uri, e.Bytes()); err != nil {
		zap.L().Error(fmt.Sprintf("failed to update the status of %s/reason:%s", jobID, err))
		return err
	}
	zap.L().Debug(fmt.Sprintf("updated to the %s status %s", status, jobID))
	return nil
}

func (s *ServiceDB) patchJobInfo(jd *core.JobData) error {
	body, err := encodeJobInfoUpdate(jd)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to encode the job info of %s/reason:%s", jd.ID, err))
		return err
	}
	uri := fmt.Sprintf("%s/jobs/%s/job-info", s.endpoint, jd.ID)
	if err := s.patch(uri, body); err != nil {
		zap.L().Error(fmt.Sprintf("failed to update the job info of %s/reason:%s", jd.ID, err))
		return err
	}
	zap.L().Debug(fmt.Sprintf("updated the job info of %s", jd.ID))
	return nil
}

// encodeJobInfoUpdate builds the job-info patch body. A failed job reports a
// null result and keeps only the message.
func encodeJobInfoUpdate(jd *core.JobData) ([]byte, error) {
	var resultRaw []byte
	if jd.Status == core.FAILED {
		resultRaw = []byte("null")
	} else {
		raw, err := jsonIter.Marshal(jd.Result)
		if err != nil {
			return nil, err
		}
		resultRaw = raw
	}
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("overwrite_status", func(e *jx.Encoder) { e.Str(jd.Status.String()) })
		e.Field("execution_time", func(e *jx.Encoder) { e.Float64(jd.Result.ExecutionTime.Seconds()) })
		e.Field("job_info", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("result", func(e *jx.Encoder) { e.Raw(resultRaw) })
				e.Field("message", func(e *jx.Encoder) { e.Str(jd.Result.Message) })
			})
		})
	})
	return e.Bytes(), nil
}

func (s *ServiceDB) patch(uri string, body []byte) error {
	req, err := http.NewRequest(http.MethodPatch, uri, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, s.apiKey)
	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		resBody, _ := io.ReadAll(res.Body)
		return fmt.Errorf("unexpected response %s/message:%s", res.Status, string(resBody))
	}
	return nil
}
