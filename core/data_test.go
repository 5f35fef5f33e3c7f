//go:build unit
// +build unit

package core

import (
	"testing"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
)

func TestResultToString(t *testing.T) {
	tests := []struct {
		name       string
		result     *Result
		wantString string
	}{
		{
			name:   "empty result",
			result: NewResult(),
			wantString: heredoc.Doc(`
			  {
			    "counts": {},
			    "raw_counts": null,
			    "correction": null,
			    "message": "",
			    "execution_time": 0
			  }
			`),
		},
		{
			name:   "message in result",
			result: messageInResult(),
			wantString: heredoc.Doc(`
			  {
			    "counts": {},
			    "raw_counts": null,
			    "correction": null,
			    "message": "dummy message",
			    "execution_time": 0
			  }
			`),
		},
		{
			name:   "counts in result",
			result: countsInResult(),
			wantString: heredoc.Doc(`
			  {
			    "counts": {
			      "0000": 10,
			      "0001": 20
			    },
			    "raw_counts": null,
			    "correction": null,
			    "message": "",
			    "execution_time": 0
			  }
			`),
		},
		{
			name:   "corrected result",
			result: correctedResult(),
			wantString: heredoc.Doc(`
			  {
			    "counts": {
			      "0000": 10,
			      "0001": 20
			    },
			    "raw_counts": {
			      "0000": 12,
			      "0001": 18
			    },
			    "correction": {
			      "method": "minimise",
			      "js_divergence": 0.25
			    },
			    "message": "dummy message",
			    "execution_time": 0
			  }
			`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := tt.result.ToString()
			assert.Equal(t, tt.wantString, act)
		})
	}
}

func messageInResult() *Result {
	r := NewResult()
	r.Message = "dummy message"
	return r
}

func countsInResult() *Result {
	r := NewResult()
	r.Counts = Counts{"0000": 10, "0001": 20}
	return r
}

func correctedResult() *Result {
	r := countsInResult()
	r.Message = "dummy message"
	r.RawCounts = Counts{"0000": 12, "0001": 18}
	r.Correction = &CorrectionLog{
		Method:       "minimise",
		JSDivergence: 0.25,
	}
	return r
}

func TestCountsTotalShots(t *testing.T) {
	assert.Equal(t, uint32(0), Counts{}.TotalShots())
	assert.Equal(t, uint32(1000), Counts{"00": 600, "11": 400}.TotalShots())
}

func TestMeasuredQubitMappingRoundTrip(t *testing.T) {
	m := MeasuredQubitMapping{0: 1, 5: 0}
	raw, err := m.ToRaw()
	assert.Nil(t, err)
	back, err := raw.ToMap()
	assert.Nil(t, err)
	assert.Equal(t, m, back)
}

func TestMeasuredQubitMappingRawBroken(t *testing.T) {
	_, err := MeasuredQubitMappingRaw(`{"x": 1}`).ToMap()
	assert.Error(t, err)
}

func TestCloneJobData(t *testing.T) {
	tests := []struct {
		name    string
		jobData *JobData
	}{
		{
			name: "no properties",
			jobData: &JobData{
				ID:      "dummy_id",
				Program: "dummy_program",
				Shots:   1000,
				Result:  NewResult(),
				Created: strfmt.NewDateTime(),
				Ended:   strfmt.NewDateTime(),
			},
		},
		{
			name: "with properties",
			jobData: &JobData{
				ID:      "dummy_id",
				Program: "dummy_program",
				Shots:   1000,
				Result:  timedCorrectedResult(),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clonedJobData := tt.jobData.Clone()

			assert.False(t, tt.jobData == clonedJobData)
			assert.Equal(t, tt.jobData.ID, clonedJobData.ID)
			assert.Equal(t, tt.jobData.Program, clonedJobData.Program)
			assert.Equal(t, tt.jobData.Shots, clonedJobData.Shots)
			assert.Equal(t, tt.jobData.Created, clonedJobData.Created)
			assert.Equal(t, tt.jobData.Ended, clonedJobData.Ended)
			assert.False(t, tt.jobData.Result == clonedJobData.Result)
		})
	}
}

func TestCloneJobDataCopiesWholeResult(t *testing.T) {
	src := &JobData{
		ID:             "dummy_id",
		Status:         SUCCEEDED,
		Program:        "dummy_program",
		Shots:          1000,
		Result:         timedCorrectedResult(),
		JobType:        "sampling",
		Info:           `{"qubit_subsets": [[0, 1]]}`,
		MitigationInfo: `{"readout": "minimise"}`,
	}
	src.Measured, _ = MeasuredQubitMapping{0: 1, 1: 0}.ToRaw()

	cloned := CloneJobData(src)

	assert.False(t, src == cloned)
	assert.False(t, src.Result == cloned.Result)
	assert.Equal(t, src.Result, cloned.Result)
	assert.False(t, src.Result.Correction == cloned.Result.Correction)
	assert.Equal(t, src.Info, cloned.Info)
	assert.Equal(t, src.MitigationInfo, cloned.MitigationInfo)
	assert.Equal(t, src.Measured, cloned.Measured)

	cloned.Result.RawCounts["0000"] = 99
	assert.Equal(t, uint32(12), src.Result.RawCounts["0000"])
}

func timedCorrectedResult() *Result {
	r := correctedResult()
	r.ExecutionTime = 42 * time.Millisecond
	return r
}
