package core

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/qiqb-osaka/readout-engine"

var (
	meter  metric.Meter
	tracer trace.Tracer

	HandledJobsCounter    metric.Int64Counter
	CorrectedJobsCounter  metric.Int64Counter
	CalibrationRunCounter metric.Int64Counter
)

// Counters are created against the global meter provider. Without an SDK
// installed they are no-ops, so call sites never need nil checks.
func init() {
	meter = otel.Meter(instrumentationName)
	tracer = otel.Tracer(instrumentationName)

	var err error
	HandledJobsCounter, err = meter.Int64Counter("engine.jobs.handled",
		metric.WithDescription("jobs accepted by the scheduler"))
	if err != nil {
		zap.L().Warn("failed to create handled-jobs counter")
	}
	CorrectedJobsCounter, err = meter.Int64Counter("engine.jobs.corrected",
		metric.WithDescription("jobs whose counts were readout-corrected"))
	if err != nil {
		zap.L().Warn("failed to create corrected-jobs counter")
	}
	CalibrationRunCounter, err = meter.Int64Counter("engine.calibrations.run",
		metric.WithDescription("calibration jobs completed"))
	if err != nil {
		zap.L().Warn("failed to create calibration counter")
	}
}

func Tracer() trace.Tracer {
	return tracer
}

// correctedJobsTotal mirrors CorrectedJobsCounter so the metrics log task can
// read the count without an otel SDK reader installed.
var correctedJobsTotal atomic.Int64

func CountCorrectedJob(ctx context.Context) {
	CorrectedJobsCounter.Add(ctx, 1)
	correctedJobsTotal.Add(1)
}

// CorrectedJobsTotal reports how many jobs had their counts readout-corrected
// since startup.
func CorrectedJobsTotal() int64 {
	return correctedJobsTotal.Load()
}
