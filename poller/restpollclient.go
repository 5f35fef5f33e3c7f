package poller

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-faster/jx"
	"github.com/qiqb-osaka/readout-engine/calib"
	"github.com/qiqb-osaka/readout-engine/core"
	"github.com/qiqb-osaka/readout-engine/sampling"
	"go.uber.org/zap"
)

const apiKeyHeader = "X-API-Key"

// restPollClient fetches submitted jobs from the cloud job API.
type restPollClient struct {
	client *http.Client

	count      int
	endpoint   string
	edgeName   string
	deviceName string
	apiKey     string
}

type restPollClientParams struct {
	cred       aws.Credentials
	region     string
	count      int
	endpoint   string
	edgeName   string
	deviceName string

	apiKey string
}

func newRESTPollClient(p *restPollClientParams) (*restPollClient, error) {
	if _, err := url.Parse(p.endpoint); err != nil {
		zap.L().Error(fmt.Sprintf("failed to parse the endpoint %s/reason:%s", p.endpoint, err))
		return nil, err
	}
	return &restPollClient{
		client:     &http.Client{Timeout: 30 * time.Second},
		count:      p.count,
		endpoint:   p.endpoint,
		edgeName:   p.edgeName,
		deviceName: p.deviceName,
		apiKey:     p.apiKey,
	}, nil
}

func (c *restPollClient) request() ([]core.Job, error) {
	zap.L().Debug(fmt.Sprintf("requesting get jobs to %s. EdgeName: %s, DeviceName: %s",
		c.endpoint, c.edgeName, c.deviceName))
	q := url.Values{}
	q.Set("device_id", c.deviceName)
	q.Set("status", "submitted")
	q.Set("max_results", strconv.Itoa(c.count))
	req, err := http.NewRequest(http.MethodGet, c.endpoint+"/jobs?"+q.Encode(), nil)
	if err != nil {
		return []core.Job{}, err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	res, err := c.client.Do(req)
	if err != nil {
		return []core.Job{}, fmt.Errorf("failed to get jobs/reason:%s", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return []core.Job{}, fmt.Errorf("failed to get jobs/status:%s", res.Status)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return []core.Job{}, err
	}
	jds, err := decodeCloudJobs(body)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to decode the jobs response/reason:%s", err))
		return []core.Job{}, err
	}
	return toJobSlice(jds)
}

// decodeCloudJobs parses the cloud job list. Jobs arrive in the submitted
// status and enter the edge in READY.
func decodeCloudJobs(data []byte) ([]*core.JobData, error) {
	d := jx.DecodeBytes(data)
	jds := []*core.JobData{}
	err := d.Arr(func(d *jx.Decoder) error {
		jd := core.NewJobData()
		jd.Status = core.READY
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "job_id":
				jd.ID, err = d.Str()
			case "job_type":
				jd.JobType, err = d.Str()
			case "shots":
				jd.Shots, err = d.Int()
			case "program":
				jd.Program, err = d.Str()
			case "job_info":
				var raw jx.Raw
				raw, err = d.Raw()
				jd.Info = string(raw)
			case "mitigation_info":
				var raw jx.Raw
				raw, err = d.Raw()
				jd.MitigationInfo = string(raw)
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		jds = append(jds, jd)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jds, nil
}

func toJobSlice(jds []*core.JobData) ([]core.Job, error) {
	jobs := []core.Job{}
	jm := core.GetJobManager()
	for _, jd := range jds {
		jc, err := core.NewJobContext()
		if err != nil {
			zap.L().Error(fmt.Sprintf("Failed to create a job context. Reason:%s", err))
			return []core.Job{}, err
		}
		switch jd.JobType {
		case core.NORMAL_JOB, sampling.SAMPLING_JOB, calib.CALIBRATION_JOB:
		default:
			msg := fmt.Sprintf("unknown job type %s", jd.JobType)
			zap.L().Error(msg)
			return []core.Job{}, fmt.Errorf(msg)
		}
		newJob, err := jm.NewJobFromJobDataWithValidation(jd, jc)
		if err != nil {
			msg := core.SetFailureWithErrorToJobData(jd, err)
			zap.L().Error(fmt.Sprintf("Failed to validate a job. Reason:%s", msg))
			newJob = (&core.UnknownJob{}).New(jd, jc)
		} else {
			zap.L().Debug(fmt.Sprintf("Created a job. Job ID:%s created:%s, status:%s",
				jd.ID, jd.Created, jd.Status))
		}
		jobs = append(jobs, newJob)
	}
	return jobs, nil
}
