// Package sysmon samples host CPU and memory utilisation on a fixed
// interval for the duration of a run. It is purely observational: its
// output never feeds back into pacing, cancellation, or assertion
// evaluation, so a misbehaving sampler can never distort a test's
// own measurements.
package sysmon

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/pulseload/pulse/pkg/logging"
)

// Sample is one point-in-time host resource reading.
type Sample struct {
	Timestamp      time.Time
	CPUPercent     float64
	MemUsedPercent float64
	MemUsedBytes   uint64
	MemTotalBytes  uint64
}

// Run samples host resource usage every interval until ctx is
// cancelled, sending each Sample on out; it returns only once ctx is
// done. Sends never block: a full out channel simply drops that
// tick's sample. Run does not close out.
func Run(ctx context.Context, interval time.Duration, out chan<- Sample, logger *logging.Logger) {
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample, err := collect(ctx)
			if err != nil {
				if logger != nil {
					logger.WithError(err).Warn("sysmon: sample collection failed")
				}
				continue
			}
			select {
			case out <- sample:
			default:
			}
		}
	}
}

func collect(ctx context.Context) (Sample, error) {
	percentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Sample{}, err
	}
	var cpuPercent float64
	if len(percentages) > 0 {
		cpuPercent = percentages[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, err
	}

	return Sample{
		Timestamp:      time.Now(),
		CPUPercent:     cpuPercent,
		MemUsedPercent: vm.UsedPercent,
		MemUsedBytes:   vm.Used,
		MemTotalBytes:  vm.Total,
	}, nil
}
