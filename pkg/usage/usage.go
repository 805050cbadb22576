// Package usage samples host CPU and memory utilisation for bot status
// commands.
package usage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// DefaultInterval is the CPU sampling window.
const DefaultInterval = time.Second

// Usage is a point-in-time sample. It is only meaningful for the moment it
// was taken.
type Usage struct {
	CPUPercent    float64
	MemoryPercent float64
	MemoryUsed    uint64
	MemoryTotal   uint64
	SampledAt     time.Time
}

var (
	cpuPercent    = cpu.PercentWithContext
	virtualMemory = mem.VirtualMemoryWithContext
)

// ErrUnavailable reports that the platform offers no usable counters.
var ErrUnavailable = errors.New("usage sampling unavailable")

// Sample measures CPU over interval (DefaultInterval when <= 0) and reads the
// current memory figures. It returns nil and ErrUnavailable when the platform
// does not expose the counters.
func Sample(ctx context.Context, interval time.Duration) (*Usage, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	percents, err := cpuPercent(ctx, interval, false)
	if notImplemented(err) {
		return nil, ErrUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("sample cpu: %w", err)
	}
	if len(percents) == 0 {
		return nil, ErrUnavailable
	}

	vm, err := virtualMemory(ctx)
	if notImplemented(err) {
		return nil, ErrUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("sample memory: %w", err)
	}
	if vm == nil {
		return nil, ErrUnavailable
	}

	return &Usage{
		CPUPercent:    percents[0],
		MemoryPercent: vm.UsedPercent,
		MemoryUsed:    vm.Used,
		MemoryTotal:   vm.Total,
		SampledAt:     time.Now().UTC(),
	}, nil
}

// notImplemented matches gopsutil's unsupported-platform error, which lives in
// an internal package and cannot be compared with errors.Is.
func notImplemented(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not implemented yet")
}

// String renders the sample for chat replies.
func (u *Usage) String() string {
	if u == nil {
		return "usage unavailable"
	}
	return fmt.Sprintf("CPU %s | Memory %s (%s / %s)",
		Percent(u.CPUPercent),
		Percent(u.MemoryPercent),
		HumanBytes(u.MemoryUsed),
		HumanBytes(u.MemoryTotal),
	)
}
