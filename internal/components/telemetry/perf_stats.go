package telemetry

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
)

const report_perf_stats = "perf_stats"

// InstrumentPerfStats periodically reports process statistics until ctx is
// done. Headless chrome children are counted so leaked browsers show up.
func InstrumentPerfStats(ctx context.Context, tel API, interval time.Duration) {
	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		self, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			tel.ReportWarning(report_perf_stats, err)
		}

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				cpuUsage, err := cpu.PercentWithContext(ctx, time.Second, false)
				if err == nil && len(cpuUsage) > 0 {
					tel.ReportCount("perf.cpu-percent", int64(cpuUsage[0]))
				} else if err != nil {
					tel.ReportWarning(report_perf_stats, err)
				}

				tel.ReportCount("perf.allocated-mb", int64(memStats.Alloc/1_000_000))
				tel.ReportCount("perf.goroutines", int64(runtime.NumGoroutine()))

				if self != nil {
					children, err := self.ChildrenWithContext(ctx)
					if err == nil {
						tel.ReportCount("perf.child-processes", int64(len(children)))
					} else {
						// no children is reported as an error by gopsutil
						tel.ReportCount("perf.child-processes", 0)
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
