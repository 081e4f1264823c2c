// Package diagnostics inspects the host before model subprocesses are
// launched and reports system resources for `medpanel doctor`.
//
//   - Collector: memory, CPU, disk and load readings (gopsutil) plus a
//     best-effort GPU inventory (ghw).
//   - Preflight: resource thresholds checked before a CLI model runs.
package diagnostics

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// gpuCacheTTL bounds how often the GPU inventory is re-read.
const gpuCacheTTL = 5 * time.Minute

// GPUInfo describes one graphics card.
type GPUInfo struct {
	Name string `json:"name"`
}

// SystemMetrics holds system-wide resource usage.
type SystemMetrics struct {
	Timestamp time.Time `json:"timestamp"`

	// CPU
	CPUModel   string  `json:"cpu_model"`
	CPUCores   int     `json:"cpu_cores"`
	CPUThreads int     `json:"cpu_threads"`
	CPUPercent float64 `json:"cpu_percent"`

	// Memory (in MB)
	MemTotalMB     float64 `json:"mem_total_mb"`
	MemUsedMB      float64 `json:"mem_used_mb"`
	MemAvailableMB float64 `json:"mem_available_mb"`
	MemPercent     float64 `json:"mem_percent"`

	// Disk (in GB)
	DiskTotalGB float64 `json:"disk_total_gb"`
	DiskUsedGB  float64 `json:"disk_used_gb"`
	DiskPercent float64 `json:"disk_percent"`

	// Load Average (Unix)
	LoadAvg1  float64 `json:"load_avg_1"`
	LoadAvg5  float64 `json:"load_avg_5"`
	LoadAvg15 float64 `json:"load_avg_15"`

	Goroutines int       `json:"goroutines"`
	GPUs       []GPUInfo `json:"gpus,omitempty"`
}

// Summary renders the metrics as short human-readable lines.
func (m SystemMetrics) Summary() []string {
	lines := []string{
		fmt.Sprintf("CPU: %s (%d cores, %d threads)", orUnknown(m.CPUModel), m.CPUCores, m.CPUThreads),
		fmt.Sprintf("Memory: %.0f/%.0f MB used (%.1f%%), %.0f MB available", m.MemUsedMB, m.MemTotalMB, m.MemPercent, m.MemAvailableMB),
		fmt.Sprintf("Disk: %.1f/%.1f GB used (%.1f%%)", m.DiskUsedGB, m.DiskTotalGB, m.DiskPercent),
		fmt.Sprintf("Load: %.2f %.2f %.2f", m.LoadAvg1, m.LoadAvg5, m.LoadAvg15),
	}
	if len(m.GPUs) == 0 {
		return append(lines, "GPU: none detected")
	}
	names := make([]string, len(m.GPUs))
	for i, g := range m.GPUs {
		names[i] = g.Name
	}
	return append(lines, "GPU: "+strings.Join(names, ", "))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// Collector gathers system statistics. CPU percent is measured between
// successive calls, so the first reading reports zero.
type Collector struct {
	mu           sync.Mutex
	lastCPUTotal float64
	lastCPUIdle  float64

	infoCollected bool
	cpuModel      string
	cpuCores      int
	cpuThreads    int

	lastGPUUpdate time.Time
	gpuCache      []GPUInfo
	withGPU       bool
}

// NewCollector creates a collector. GPU inventory is skipped unless withGPU
// is set, since it can be slow on some hosts.
func NewCollector(withGPU bool) *Collector {
	return &Collector{withGPU: withGPU}
}

// Collect gathers current system statistics. Readings that fail are left
// at zero.
func (c *Collector) Collect() SystemMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := SystemMetrics{Timestamp: time.Now(), Goroutines: runtime.NumGoroutine()}
	c.collectHardwareInfo(&stats)
	c.collectMemoryInfo(&stats)
	c.collectCPUInfo(&stats)
	c.collectDiskInfo(&stats)
	c.collectLoadAvg(&stats)
	if c.withGPU {
		c.collectGPUInfo(&stats)
	}
	return stats
}

func (c *Collector) collectMemoryInfo(stats *SystemMetrics) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return
	}
	stats.MemTotalMB = float64(vm.Total) / 1024 / 1024
	stats.MemUsedMB = float64(vm.Used) / 1024 / 1024
	stats.MemAvailableMB = float64(vm.Available) / 1024 / 1024
	stats.MemPercent = vm.UsedPercent
}

func (c *Collector) collectCPUInfo(stats *SystemMetrics) {
	times, err := cpu.Times(false)
	if err != nil || len(times) == 0 {
		return
	}

	t := times[0]
	total := t.User + t.Nice + t.System + t.Idle + t.Iowait + t.Irq + t.Softirq + t.Steal
	idleTime := t.Idle + t.Iowait

	if c.lastCPUTotal > 0 {
		totalDelta := total - c.lastCPUTotal
		idleDelta := idleTime - c.lastCPUIdle
		if totalDelta > 0 {
			stats.CPUPercent = (1 - idleDelta/totalDelta) * 100
		}
	}
	c.lastCPUTotal = total
	c.lastCPUIdle = idleTime
}

func (c *Collector) collectDiskInfo(stats *SystemMetrics) {
	usage, err := disk.Usage(rootDiskPath())
	if err != nil {
		return
	}
	stats.DiskTotalGB = float64(usage.Total) / 1024 / 1024 / 1024
	stats.DiskUsedGB = float64(usage.Used) / 1024 / 1024 / 1024
	stats.DiskPercent = usage.UsedPercent
}

func (c *Collector) collectLoadAvg(stats *SystemMetrics) {
	avg, err := load.Avg()
	if err != nil {
		return
	}
	stats.LoadAvg1 = avg.Load1
	stats.LoadAvg5 = avg.Load5
	stats.LoadAvg15 = avg.Load15
}

func (c *Collector) collectHardwareInfo(stats *SystemMetrics) {
	if !c.infoCollected {
		if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
			c.cpuModel = strings.TrimSpace(infos[0].ModelName)
		}
		if cores, err := cpu.Counts(false); err == nil && cores > 0 {
			c.cpuCores = cores
		}
		if threads, err := cpu.Counts(true); err == nil && threads > 0 {
			c.cpuThreads = threads
		}
		c.infoCollected = true
	}
	stats.CPUModel = c.cpuModel
	stats.CPUCores = c.cpuCores
	stats.CPUThreads = c.cpuThreads
}

func (c *Collector) collectGPUInfo(stats *SystemMetrics) {
	now := time.Now()
	if c.gpuCache == nil || now.Sub(c.lastGPUUpdate) >= gpuCacheTTL {
		c.gpuCache = queryGPUs()
		c.lastGPUUpdate = now
	}
	stats.GPUs = append([]GPUInfo(nil), c.gpuCache...)
}

func queryGPUs() []GPUInfo {
	info, err := ghw.GPU()
	if err != nil || info == nil || len(info.GraphicsCards) == 0 {
		return []GPUInfo{}
	}

	gpus := make([]GPUInfo, 0, len(info.GraphicsCards))
	for _, card := range info.GraphicsCards {
		name := ""
		if card.DeviceInfo != nil {
			if card.DeviceInfo.Vendor != nil && card.DeviceInfo.Product != nil {
				name = strings.TrimSpace(card.DeviceInfo.Vendor.Name + " " + card.DeviceInfo.Product.Name)
			} else if card.DeviceInfo.Product != nil {
				name = strings.TrimSpace(card.DeviceInfo.Product.Name)
			} else if card.DeviceInfo.Vendor != nil {
				name = strings.TrimSpace(card.DeviceInfo.Vendor.Name)
			}
		}
		if name == "" {
			name = fmt.Sprintf("GPU %d", card.Index)
		}
		gpus = append(gpus, GPUInfo{Name: name})
	}
	return gpus
}

func rootDiskPath() string {
	if runtime.GOOS == "windows" {
		drive := os.Getenv("SystemDrive")
		if drive == "" {
			drive = "C:"
		}
		return drive + "\\"
	}
	return "/"
}
