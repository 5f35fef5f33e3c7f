//go:build unit
// +build unit

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/qiqb-osaka/readout-engine/core"
	"github.com/stretchr/testify/assert"
)

func TestDailyLoggerWritesToDatedFile(t *testing.T) {
	dir := t.TempDir()
	dl := newDailyLogger(dir)
	defer dl.Close()

	_, err := dl.Write([]byte("first line\n"))
	assert.NoError(t, err)
	_, err = dl.Write([]byte("second line\n"))
	assert.NoError(t, err)

	fileName := fmt.Sprintf("metrics-%s.log", time.Now().Format("2006-01-02"))
	content, err := os.ReadFile(filepath.Join(dir, fileName))
	assert.NoError(t, err)
	assert.Equal(t, "first line\nsecond line\n", string(content))
}

func TestMetricsLogTaskSetParams(t *testing.T) {
	m := &MetricsLogTaskImpl{}
	assert.NoError(t, m.SetParams(nil))
	assert.NoError(t, m.SetParams(map[string]interface{}{"file_dir": "/tmp/metrics"}))
	assert.Equal(t, "/tmp/metrics", m.FileDir)
	assert.Error(t, m.SetParams("broken"))
}

func TestMetricsLogTaskEmitsCorrectedJobsTotal(t *testing.T) {
	s := core.SCWithUnimplementedContainer()
	defer s.TearDown()

	m := &MetricsLogTaskImpl{FileDir: t.TempDir()}
	assert.NoError(t, m.Setup())
	defer m.Cleanup()

	core.CountCorrectedJob(context.Background())
	m.Task()

	fileName := fmt.Sprintf("metrics-%s.log", time.Now().Format("2006-01-02"))
	content, err := os.ReadFile(filepath.Join(m.FileDir, fileName))
	assert.NoError(t, err)

	var line struct {
		QueueLength   int    `json:"queue_length"`
		DeviceStatus  string `json:"device_status"`
		CorrectedJobs int64  `json:"corrected_jobs"`
	}
	assert.NoError(t, json.Unmarshal(bytes.TrimSpace(content), &line))
	assert.Equal(t, 0, line.QueueLength)
	assert.Equal(t, "Available", line.DeviceStatus)
	assert.GreaterOrEqual(t, line.CorrectedJobs, int64(1))
}

func TestMetricsLogTaskSetupRejectsMissingDir(t *testing.T) {
	m := &MetricsLogTaskImpl{FileDir: filepath.Join(t.TempDir(), "missing")}
	assert.Error(t, m.Setup())
}
