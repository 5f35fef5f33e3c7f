//go:build unit
// +build unit

package qpu

import (
	"testing"

	"github.com/qiqb-osaka/readout-engine/core"
	"github.com/stretchr/testify/assert"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestJsonCodecRoundTrip(t *testing.T) {
	codec := jsonCodec{}
	assert.Equal(t, "json", codec.Name())

	req := &runCircuitRequest{
		JobID:   "job-1",
		Shots:   100,
		Program: "OPENQASM 3;",
	}
	blob, err := codec.Marshal(req)
	assert.NoError(t, err)

	decoded := &runCircuitRequest{}
	assert.NoError(t, codec.Unmarshal(blob, decoded))
	assert.Equal(t, req, decoded)
}

func TestMapServingStatusToDeviceStatus(t *testing.T) {
	assert.Equal(t, core.Available,
		mapServingStatusToDeviceStatus(healthpb.HealthCheckResponse_SERVING))
	assert.Equal(t, core.Unavailable,
		mapServingStatusToDeviceStatus(healthpb.HealthCheckResponse_NOT_SERVING))
	assert.Equal(t, core.Unavailable,
		mapServingStatusToDeviceStatus(healthpb.HealthCheckResponse_SERVICE_UNKNOWN))
}

func TestGatewayQPUSendWhenDisconnected(t *testing.T) {
	q := &GatewayQPU{
		connected:         false,
		currentDeviceInfo: &core.DeviceInfo{Status: core.Unavailable},
	}
	j := newTestJob(t, "OPENQASM 3;", 10)
	assert.ErrorContains(t, q.Send(j), "not connected")
	assert.Equal(t, core.FAILED, j.JobData().Status)
}

func TestNewDeviceAgentSetting(t *testing.T) {
	s := NewDeviceAgentSetting()
	assert.Equal(t, "localhost", s.AgentHost)
	assert.Equal(t, "50051", s.AgentPort)
}
