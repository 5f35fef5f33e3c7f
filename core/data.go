package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-openapi/strfmt"
	jsoniter "github.com/json-iterator/go"
	"github.com/mohae/deepcopy"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"
)

type Status int // Status of the job known to the cloud that is not as the same meaning in edge.
type Counts map[string]uint32

// MeasuredQubitMapping maps a qubit id to its position in the measured
// bitstring. Position 0 is the leftmost character of a counts key.
type MeasuredQubitMapping map[uint32]uint32
type MeasuredQubitMappingRaw json.RawMessage

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

func (c Counts) String() string {
	st, err := jsonIter.Marshal(c)
	if err != nil {
		zap.L().Error("Failed to marshal core.Counts")
		return ""
	}
	return string(st)
}

// TotalShots sums the counts of all observed bitstrings.
func (c Counts) TotalShots() uint32 {
	var total uint32
	for _, v := range c {
		total += v
	}
	return total
}

func ToStatus(s string) (Status, error) {
	switch s {
	case "submitted":
		return SUBMITTED, nil
	case "ready":
		return READY, nil
	case "running":
		return RUNNING, nil
	case "succeeded":
		return SUCCEEDED, nil
	case "failed":
		return FAILED, nil
	case "cancelled":
		return CANCELLED, nil
	default:
		return 0, fmt.Errorf("unknown status: %s", s)
	}
}

func (m MeasuredQubitMapping) String() string {
	st, err := jsonIter.Marshal(m)
	if err != nil {
		zap.L().Error("Failed to marshal core.MeasuredQubitMapping")
		return ""
	}
	return string(st)
}

func (r MeasuredQubitMappingRaw) String() string {
	st, err := jsonIter.Marshal(r)
	if err != nil {
		zap.L().Error("Failed to marshal core.MeasuredQubitMappingRaw")
		return ""
	}
	return string(st)
}

func (r MeasuredQubitMappingRaw) ToMap() (MeasuredQubitMapping, error) {
	// JSON object keys are always strings, so unmarshaling directly into a
	// map[uint32]uint32 fails. Unmarshal into a map[string]uint32 first.
	var temp map[string]uint32
	if err := json.Unmarshal(r, &temp); err != nil {
		zap.L().Error(fmt.Sprintf("failed to unmarshal MeasuredQubitMappingRaw:%v/reason:%s",
			r, err))
		return nil, err
	}

	result := make(MeasuredQubitMapping)
	for k, v := range temp {
		key, err := strconv.ParseUint(k, 10, 32)
		if err != nil {
			zap.L().Error(fmt.Sprintf("failed to convert key:%s/reason:%s", k, err))
			return nil, err
		}
		result[uint32(key)] = v
	}
	return result, nil
}

func (m MeasuredQubitMapping) ToRaw() (MeasuredQubitMappingRaw, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return b, nil
}

const (
	SUBMITTED Status = iota // In the queue in the cloud server.
	READY                   // Has never been processed on QPU. All the jobs in edge are in this status at first.
	RUNNING                 // Being processed on QPU in engine server.
	SUCCEEDED               // Finished successfully.
	FAILED                  // Finished with failure.
	CANCELLED               // Finished with cancellation.
)

func (s Status) String() string {
	switch s {
	case SUBMITTED:
		return "submitted"
	case READY:
		return "ready"
	case RUNNING:
		return "running"
	case SUCCEEDED:
		return "succeeded"
	case FAILED:
		return "failed"
	case CANCELLED:
		return "cancelled"
	default:
		return "unknown"
	}
}

type Result struct {
	Counts        Counts         `json:"counts"`
	RawCounts     Counts         `json:"raw_counts"`
	Correction    *CorrectionLog `json:"correction"`
	Message       string         `json:"message"`
	ExecutionTime time.Duration  `json:"execution_time"`
}

// CorrectionLog reports what readout correction was applied to Counts.
// RawCounts keeps the uncorrected distribution when a correction ran.
type CorrectionLog struct {
	Method       string  `json:"method"`
	JSDivergence float64 `json:"js_divergence"` // raw vs corrected, base 2
}

func cloneCounts(counts Counts) Counts {
	clone := make(Counts)
	for k, v := range counts {
		clone[k] = v
	}
	return clone
}

type JobData struct {
	ID       string
	Status   Status
	Shots    int
	Program  string // QASM text sent to the QPU
	Result   *Result
	JobType  string
	Created  strfmt.DateTime
	Ended    strfmt.DateTime
	Info     string // job-type specific JSON payload
	Measured MeasuredQubitMappingRaw

	MitigationInfo string

	UseJobInfoUpdate bool
}

func (jd *JobData) Clone() *JobData {
	c := deepcopy.Copy(jd).(*JobData)
	c.Created = *jd.Created.DeepCopy()
	c.Ended = *jd.Ended.DeepCopy()
	c.UseJobInfoUpdate = jd.UseJobInfoUpdate
	return c
}

func NewResult() *Result {
	return &Result{
		Counts: make(Counts),
	}
}

func NewJobData() *JobData {
	return &JobData{
		Result:  NewResult(),
		Created: strfmt.DateTime(time.Now()),
	}
}

func CloneJobData(i *JobData) *JobData {
	o := NewJobData()
	o.ID = i.ID
	o.Status = i.Status
	o.Shots = i.Shots
	o.Program = i.Program
	o.Result.Counts = cloneCounts(i.Result.Counts)
	if i.Result.RawCounts != nil {
		o.Result.RawCounts = cloneCounts(i.Result.RawCounts)
	}
	if i.Result.Correction != nil {
		correction := *i.Result.Correction
		o.Result.Correction = &correction
	}
	o.Result.Message = i.Result.Message
	o.Result.ExecutionTime = i.Result.ExecutionTime
	o.JobType = i.JobType
	o.Created = i.Created
	o.Ended = i.Ended
	o.Info = i.Info
	o.Measured = MeasuredQubitMappingRaw(append(json.RawMessage(nil), i.Measured...))
	o.MitigationInfo = i.MitigationInfo
	return o
}

func (r *Result) ToString() string {
	st, err := jsonIter.Marshal(r)
	if err != nil {
		zap.L().Error("Failed to marshal core.Result")
		return ""
	}
	st = pretty.Pretty(st)
	return string(st)
}
