package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type perfGauges struct {
	cpu        metric.Float64Gauge
	memory     metric.Int64Gauge
	goroutines metric.Int64Gauge
}

func newPerfGauges() (perfGauges, error) {
	meter := otel.Meter("tixwatch.perf_stats")
	cpuGauge, err := meter.Float64Gauge("cpu_usage", metric.WithUnit("%"))
	if err != nil {
		return perfGauges{}, err
	}
	memoryGauge, err := meter.Int64Gauge("allocated_mb", metric.WithUnit("MB"))
	if err != nil {
		return perfGauges{}, err
	}
	goroutineGauge, err := meter.Int64Gauge("goroutine_count")
	if err != nil {
		return perfGauges{}, err
	}
	return perfGauges{cpu: cpuGauge, memory: memoryGauge, goroutines: goroutineGauge}, nil
}

func (g perfGauges) sample(ctx context.Context, window time.Duration) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	cpuUsage, err := cpu.PercentWithContext(ctx, window, false)
	if err == nil && len(cpuUsage) > 0 {
		g.cpu.Record(ctx, cpuUsage[0])
	} else if err != nil {
		slog.DebugContext(ctx, "failed to read cpu usage", "err", err)
	}
	g.memory.Record(ctx, int64(memStats.Alloc/1_000_000))
	g.goroutines.Record(ctx, int64(runtime.NumGoroutine()))
}

// InstrumentPerfStats records process resource gauges every interval until
// ctx is done. Long crawl and validation runs use it to spot leaks.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	gauges, err := newPerfGauges()
	if err != nil {
		slog.WarnContext(ctx, "perf stats disabled", "err", err)
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				gauges.sample(ctx, time.Second)
			case <-ctx.Done():
				return
			}
		}
	}()
}
