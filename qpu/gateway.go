package qpu

import (
	"context"
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/qiqb-osaka/readout-engine/common"
	"github.com/qiqb-osaka/readout-engine/core"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const jsonCodecName = "json"

const (
	runCircuitMethod    = "/qiqb.deviceagent.v1.DeviceAgentService/RunCircuit"
	getDeviceInfoMethod = "/qiqb.deviceagent.v1.DeviceAgentService/GetDeviceInfo"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec lets the device-agent calls go over gRPC as JSON payloads. The
// agent speaks the same subtype, so no generated stubs are needed.
type jsonCodec struct{}

func (jsonCodec) Name() string { return jsonCodecName }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return jsonIter.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return jsonIter.Unmarshal(data, v)
}

type runCircuitRequest struct {
	JobID   string `json:"job_id"`
	Shots   uint32 `json:"shots"`
	Program string `json:"program"`
}

type runCircuitReply struct {
	Status   string            `json:"status"`
	Counts   map[string]uint32 `json:"counts"`
	Measured map[string]uint32 `json:"measured_qubits"`
	Message  string            `json:"message"`
}

type deviceInfoReply struct {
	DeviceID     string `json:"device_id"`
	ProviderID   string `json:"provider_id"`
	Type         string `json:"type"`
	MaxQubits    int    `json:"max_qubits"`
	MaxShots     int    `json:"max_shots"`
	DeviceInfo   string `json:"device_info"`
	CalibratedAt string `json:"calibrated_at"`
}

type DeviceAgent interface {
	Setup() error
	CallDeviceInfo() (*core.DeviceInfo, error)
	CallJob(core.Job) error
	Reset()
	Close()

	GetAddress() string
}

type DeviceAgentSetting struct {
	AgentHost string `toml:"agent_host"`
	AgentPort string `toml:"agent_port"`
	DeviceId  string `toml:"device_id"`
}

func NewDeviceAgentSetting() DeviceAgentSetting {
	return DeviceAgentSetting{
		AgentHost: "localhost",
		AgentPort: "50051",
		DeviceId:  "your_device_id",
	}
}

type DefaultDeviceAgent struct {
	setting      DeviceAgentSetting
	agentAddress string
	agentConn    *grpc.ClientConn
	healthClient healthpb.HealthClient
	ctx          context.Context
}

func NewDeviceAgent() *DefaultDeviceAgent {
	return &DefaultDeviceAgent{}
}

func (a *DefaultDeviceAgent) Setup() (err error) {
	s, ok := core.GetComponentSetting("gateway")
	if !ok {
		msg := "gateway setting is not found"
		return fmt.Errorf(msg)
	}
	zap.L().Debug(fmt.Sprintf("gateway setting:%v", s))
	mapped, ok := s.(map[string]interface{})
	if !ok {
		a.setting = NewDeviceAgentSetting()
	} else {
		a.setting = DeviceAgentSetting{
			AgentHost: mapped["agent_host"].(string),
			AgentPort: mapped["agent_port"].(string),
			DeviceId:  mapped["device_id"].(string),
		}
	}
	address, err := common.ValidAddress(a.setting.AgentHost, a.setting.AgentPort)
	if err != nil {
		return err
	}
	a.agentAddress = address
	a.Reset()
	return nil
}

func (a *DefaultDeviceAgent) CallDeviceInfo() (*core.DeviceInfo, error) {
	hres, err := a.healthClient.Check(a.ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		a.Reset()
		zap.L().Error(fmt.Sprintf("failed to health-check %s/reason:%s", a.agentAddress, err))
		return &core.DeviceInfo{}, err
	}
	status := mapServingStatusToDeviceStatus(hres.GetStatus())

	reply := &deviceInfoReply{}
	err = a.agentConn.Invoke(a.ctx, getDeviceInfoMethod, &struct{}{}, reply,
		grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		a.Reset()
		zap.L().Error(fmt.Sprintf("failed to get device info from %s/reason:%s", a.agentAddress, err))
		return &core.DeviceInfo{}, err
	}
	zap.L().Debug(fmt.Sprintf(
		"DeviceID:%s, ProviderID:%s, Type:%s, MaxQubits:%d, MaxShots:%d, CalibratedAt:%s",
		reply.DeviceID, reply.ProviderID, reply.Type, reply.MaxQubits, reply.MaxShots,
		reply.CalibratedAt))
	return &core.DeviceInfo{
		DeviceName:         reply.DeviceID,
		ProviderName:       reply.ProviderID,
		Type:               reply.Type,
		Status:             status,
		MaxQubits:          reply.MaxQubits,
		MaxShots:           reply.MaxShots,
		DeviceInfoSpecJson: reply.DeviceInfo,
		CalibratedAt:       reply.CalibratedAt,
	}, nil
}

func mapServingStatusToDeviceStatus(ss healthpb.HealthCheckResponse_ServingStatus) core.DeviceStatus {
	switch ss {
	case healthpb.HealthCheckResponse_SERVING:
		return core.Available
	case healthpb.HealthCheckResponse_NOT_SERVING:
		return core.Unavailable
	default:
		zap.L().Error(fmt.Sprintf("unknown serving status %d, treating as Unavailable", ss))
		return core.Unavailable
	}
}

func (a *DefaultDeviceAgent) CallJob(j core.Job) error {
	jd := j.JobData()
	zap.L().Debug(fmt.Sprintf("Sending a job to QPU/JobID:%s, Shots:%d, Program:%s",
		jd.ID, jd.Shots, jd.Program))
	req := &runCircuitRequest{
		JobID:   jd.ID,
		Shots:   uint32(jd.Shots),
		Program: jd.Program,
	}
	reply := &runCircuitReply{}
	startTime := time.Now()
	err := a.agentConn.Invoke(a.ctx, runCircuitMethod, req, reply,
		grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to call the job in %s/reason:%s", a.agentAddress, err))
		return err
	}
	endTime := time.Now()
	switch reply.Status {
	case "success":
		jd.Status = core.SUCCEEDED
	case "failure":
		jd.Status = core.FAILED
	default:
		msg := fmt.Sprintf("unknown status %q", reply.Status)
		zap.L().Error(msg)
		return fmt.Errorf(msg)
	}
	zap.L().Debug(fmt.Sprintf("JobID:%s, Status:%s", jd.ID, jd.Status))

	r := jd.Result
	r.Counts = reply.Counts
	r.Message = reply.Message
	r.ExecutionTime = endTime.Sub(startTime)
	if len(reply.Measured) > 0 {
		raw, err := jsonIter.Marshal(reply.Measured)
		if err != nil {
			zap.L().Error(fmt.Sprintf("failed to marshal measured qubits/reason:%s", err))
			return err
		}
		jd.Measured = core.MeasuredQubitMappingRaw(raw)
	}
	zap.L().Debug(fmt.Sprintf("JobID:%s, Counts:%v, Message:%s, ExecutionTime:%s",
		jd.ID, r.Counts, r.Message, r.ExecutionTime))
	return nil
}

func (a *DefaultDeviceAgent) Reset() {
	a.Close()
	a.ctx = context.Background()
	conn, connErr := common.GRPCConnection(a.agentAddress, 0, false)
	if connErr != nil {
		// connErr is not returned because it is not a main error of this function
		zap.L().Error(fmt.Sprintf("failed to make connection to %s/reason:%s", a.agentAddress, connErr))
		return
	}
	a.agentConn = conn
	a.healthClient = healthpb.NewHealthClient(conn)
	zap.L().Debug(fmt.Sprintf("DeviceAgent is ready to use %s", a.agentAddress))
}

func (a *DefaultDeviceAgent) Close() {
	if a.agentConn != nil {
		_ = a.agentConn.Close()
	}
}

func (a *DefaultDeviceAgent) GetAddress() string {
	return a.agentAddress
}

type GatewayQPU struct {
	agent             DeviceAgent
	deviceSetting     *DeviceSetting
	connected         bool
	currentDeviceInfo *core.DeviceInfo

	pollingDone chan struct{}
}

func (q *GatewayQPU) Setup(conf *core.Conf) error {
	zap.L().Debug("Setting up Gateway QPU")
	ds, err := LoadDeviceSetting(conf.DeviceSettingPath)
	if err != nil {
		zap.L().Error(fmt.Sprintf("Failed to load a device setting. Reason:%s", err))
		return err
	}
	q.agent = NewDeviceAgent()
	if err := q.agent.Setup(); err != nil {
		zap.L().Error(fmt.Sprintf("failed to setup Gateway QPU/reason:%s", err))
		return err
	}
	q.deviceSetting = ds
	q.connected = false
	q.currentDeviceInfo = &core.DeviceInfo{
		Status: core.Unavailable,
	}
	q.pollingDone = make(chan struct{})
	if !conf.DisableStartDevicePolling {
		q.startDevicePolling()
	}
	return nil
}

func (q *GatewayQPU) Validate(qasm string) error {
	maxQubits := q.deviceSetting.MaxQubits
	if q.connected && q.currentDeviceInfo.MaxQubits > 0 {
		maxQubits = q.currentDeviceInfo.MaxQubits
	}
	return circuitValidate(qasm, maxQubits)
}

func (q *GatewayQPU) Send(j core.Job) error {
	jd := j.JobData()
	zap.L().Info("Starting Gateway QPU execution of Job ID:" + jd.ID)

	if !q.GetConnected() {
		err := fmt.Errorf("Gateway QPU is not connected")
		msg := core.SetFailureWithError(j, err)
		zap.L().Info(msg)
		return err
	}
	zap.L().Debug(fmt.Sprintf("Job ID:%s is processing", jd.ID))
	if err := q.agent.CallJob(j); err != nil {
		zap.L().Error(fmt.Sprintf("Failed to call the job (%s) in %s. Reason:%s",
			jd.ID, q.agent.GetAddress(), err))
		msg := core.SetFailureWithError(j, err)
		zap.L().Info(msg)
		return err
	}
	zap.L().Debug(fmt.Sprintf("Job ID:%s is processed/status:%s", jd.ID, jd.Status))
	jd.Ended = strfmt.DateTime(time.Now())
	return nil
}

func (q *GatewayQPU) GetDeviceInfo() *core.DeviceInfo {
	return q.currentDeviceInfo
}

func (q *GatewayQPU) GetConnected() bool {
	return q.connected
}

func (q *GatewayQPU) TearDown() {
	close(q.pollingDone)
	q.agent.Close()
}

func (q *GatewayQPU) startDevicePolling() {
	go func() {
		t := time.NewTicker(time.Duration(q.deviceSetting.PollingPeriod) * time.Second)
		defer t.Stop()
		zap.L().Debug("Starting Device Polling")
		for {
			di, err := q.agent.CallDeviceInfo()
			if err != nil {
				zap.L().Error(fmt.Sprintf("Failed to call device info. Reason:%s", err))
				q.currentDeviceInfo = &core.DeviceInfo{Status: core.Unavailable}
				q.connected = false
			} else {
				q.currentDeviceInfo = di
				q.connected = true
			}
			zap.L().Debug(fmt.Sprintf(
				"Waiting %d seconds for the next device polling to %s",
				q.deviceSetting.PollingPeriod, q.agent.GetAddress()))
			select {
			case <-q.pollingDone:
				return
			case <-t.C:
			}
		}
	}()
}
