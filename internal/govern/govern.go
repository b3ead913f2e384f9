// Package govern implements the concurrency gate and resource-overload
// check of §4.12 / §5.
package govern

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"golang.org/x/sync/semaphore"
)

const DefaultConcurrency = 5

// Gate bounds in-flight requests to a fixed concurrency cap.
type Gate struct {
	sem *semaphore.Weighted
}

// NewGate constructs a Gate with the given concurrency cap (default 5).
func NewGate(cap int) *Gate {
	if cap <= 0 {
		cap = DefaultConcurrency
	}
	return &Gate{sem: semaphore.NewWeighted(int64(cap))}
}

// TryAcquire attempts to admit one request without blocking; the caller must
// call Release when done if it returns true.
func (g *Gate) TryAcquire() bool {
	return g.sem.TryAcquire(1)
}

// Release returns one slot to the gate.
func (g *Gate) Release() { g.sem.Release(1) }

// ResourceChecker aborts admission when CPU or memory usage exceeds the
// configured thresholds (§4.12: abort with 503 when CPU > 80% or mem > 80%).
type ResourceChecker struct {
	CPUThresholdPct float64
	MemThresholdPct float64
}

// NewResourceChecker constructs a checker with the given thresholds
// (defaulting to 80/80 when zero).
func NewResourceChecker(cpuPct, memPct float64) *ResourceChecker {
	if cpuPct <= 0 {
		cpuPct = 80
	}
	if memPct <= 0 {
		memPct = 80
	}
	return &ResourceChecker{CPUThresholdPct: cpuPct, MemThresholdPct: memPct}
}

// Sample is one CPU/memory reading.
type Sample struct {
	CPUPercent float64
	MemPercent float64
}

// Check samples current CPU and memory utilization and reports whether the
// system is overloaded, alongside the raw sample for stats reporting.
func (r *ResourceChecker) Check(ctx context.Context) (overloaded bool, sample Sample, err error) {
	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return false, Sample{}, fmt.Errorf("sample cpu: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return false, Sample{}, fmt.Errorf("sample memory: %w", err)
	}
	var cpuPct float64
	if len(cpuPercents) > 0 {
		cpuPct = cpuPercents[0]
	}
	sample = Sample{CPUPercent: cpuPct, MemPercent: vm.UsedPercent}
	overloaded = sample.CPUPercent > r.CPUThresholdPct || sample.MemPercent > r.MemThresholdPct
	return overloaded, sample, nil
}
