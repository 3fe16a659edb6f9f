package server

import (
	"runtime"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const bytesPerMB = 1024 * 1024

type MemoryStats struct {
	AllocMB     float64 `json:"alloc_mb"`
	SysMB       float64 `json:"sys_mb"`
	HeapInuseMB float64 `json:"heap_inuse_mb"`
	HeapObjects uint64  `json:"heap_objects"`
	NumGC       uint32  `json:"num_gc"`
}

type CPUStats struct {
	NumCPU       int     `json:"num_cpu"`
	UsagePercent float64 `json:"usage_percent"`
}

// SystemStats is the process resource snapshot served by /system.
type SystemStats struct {
	Memory     MemoryStats `json:"memory"`
	CPU        CPUStats    `json:"cpu"`
	Goroutines int         `json:"goroutines"`
	GoVersion  string      `json:"go_version"`
	Uptime     string      `json:"uptime"`
	Timestamp  time.Time   `json:"timestamp"`
}

// SystemMonitor samples process CPU time through getrusage and reports
// usage as the share of wall time spent on CPU since the previous sample.
type SystemMonitor struct {
	mu        sync.Mutex
	started   time.Time
	lastCPU   time.Duration
	lastWall  time.Time
	lastUsage float64
}

func NewSystemMonitor() *SystemMonitor {
	now := time.Now()
	return &SystemMonitor{
		started:  now,
		lastCPU:  processCPUTime(),
		lastWall: now,
	}
}

func processCPUTime() time.Duration {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	return time.Duration(ru.Utime.Nano() + ru.Stime.Nano())
}

// CPUUsage returns the process CPU usage percentage since the last call,
// normalised to the number of CPUs. Calls closer than 100ms apart return the
// previous value.
func (sm *SystemMonitor) CPUUsage() float64 {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	wall := now.Sub(sm.lastWall)
	if wall < 100*time.Millisecond {
		return sm.lastUsage
	}
	cpu := processCPUTime()
	usage := 100 * float64(cpu-sm.lastCPU) / float64(wall) / float64(runtime.NumCPU())
	if usage < 0 {
		usage = 0
	}
	if usage > 100 {
		usage = 100
	}
	sm.lastCPU = cpu
	sm.lastWall = now
	sm.lastUsage = usage
	return usage
}

func (sm *SystemMonitor) Stats() SystemStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return SystemStats{
		Memory: MemoryStats{
			AllocMB:     float64(mem.Alloc) / bytesPerMB,
			SysMB:       float64(mem.Sys) / bytesPerMB,
			HeapInuseMB: float64(mem.HeapInuse) / bytesPerMB,
			HeapObjects: mem.HeapObjects,
			NumGC:       mem.NumGC,
		},
		CPU: CPUStats{
			NumCPU:       runtime.NumCPU(),
			UsagePercent: sm.CPUUsage(),
		},
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
		Uptime:     time.Since(sm.started).Round(time.Second).String(),
		Timestamp:  time.Now(),
	}
}
