package crawlers

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/RecoveryAshes/SitemapWarmup/internal/utils"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceMonitor 系统资源监控器
// 根据可用内存和CPU负载限制预热并发数
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 系统总内存(字节)
	totalMemory uint64

	// 缓存的内存统计数据
	lastMemStats runtime.MemStats
	mu           sync.RWMutex

	// CPU使用率
	lastCPUUsage float64
	cpuUsageMu   sync.RWMutex

	cancelFunc context.CancelFunc
	isRunning  bool
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 安全保留内存(字节)
	SafetyThreshold     int64 // 安全阈值(字节)
	CPULoadThreshold    int   // CPU负载阈值(%), >=200 表示不检查
	MaxWorkersLimit     int   // 绝对最大并发数, 0 表示不限制
	WorkerMemoryUsage   int64 // 单个请求平均内存消耗(字节)
}

// NewResourceMonitor 创建资源监控器实例
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.WorkerMemoryUsage <= 0 {
		config.WorkerMemoryUsage = 8 * 1024 * 1024
	}

	var totalMem uint64
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		utils.Warnf("获取系统内存失败,使用默认值4GB: %v", err)
		totalMem = 4 * 1024 * 1024 * 1024
	} else {
		totalMem = vmStat.Total
		utils.Debugf("系统总内存: %.2f GB", float64(totalMem)/(1024*1024*1024))
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &ResourceMonitor{
		config:       config,
		totalMemory:  totalMem,
		lastMemStats: memStats,
	}
}

// StartMonitoring 启动后台采样
func (rm *ResourceMonitor) StartMonitoring(interval time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isRunning {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rm.cancelFunc = cancel
	rm.isRunning = true

	go rm.monitoringLoop(ctx, interval)
}

func (rm *ResourceMonitor) monitoringLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)

			rm.mu.Lock()
			rm.lastMemStats = memStats
			rm.mu.Unlock()

			cpuUsage := sampleCPUUsage()
			rm.cpuUsageMu.Lock()
			rm.lastCPUUsage = cpuUsage
			rm.cpuUsageMu.Unlock()
		}
	}
}

// sampleCPUUsage 所有核心的平均使用率
func sampleCPUUsage() float64 {
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(percentages) == 0 {
		utils.Debugf("获取CPU使用率失败: %v", err)
		return 0.0
	}
	return percentages[0]
}

// StopMonitoring 停止后台采样
func (rm *ResourceMonitor) StopMonitoring() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isRunning && rm.cancelFunc != nil {
		rm.cancelFunc()
		rm.isRunning = false
		rm.cancelFunc = nil
	}
}

// availableMemory 可用内存(扣除安全保留)
func (rm *ResourceMonitor) availableMemory() int64 {
	rm.mu.RLock()
	allocated := rm.lastMemStats.Alloc
	rm.mu.RUnlock()
	return int64(rm.totalMemory) - int64(allocated) - rm.config.SafetyReserveMemory
}

// CalculateMaxWorkers 基于可用内存计算当前允许的最大并发数
func (rm *ResourceMonitor) CalculateMaxWorkers() int {
	maxWorkers := 1
	if available := rm.availableMemory(); available > rm.config.SafetyThreshold {
		maxWorkers = int((available - rm.config.SafetyThreshold) / rm.config.WorkerMemoryUsage)
	}
	if rm.config.MaxWorkersLimit > 0 && rm.config.MaxWorkersLimit < maxWorkers {
		maxWorkers = rm.config.MaxWorkersLimit
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return maxWorkers
}

// CheckResourceAvailability 检查资源是否允许满负荷运行
func (rm *ResourceMonitor) CheckResourceAvailability() (ok bool, reason string) {
	if available := rm.availableMemory(); available < rm.config.SafetyThreshold {
		return false, fmt.Sprintf("内存不足(当前%dMB)", available/(1024*1024))
	}

	if rm.config.CPULoadThreshold > 0 && rm.config.CPULoadThreshold < 200 {
		rm.cpuUsageMu.RLock()
		cpuUsage := rm.lastCPUUsage
		rm.cpuUsageMu.RUnlock()

		if cpuUsage > float64(rm.config.CPULoadThreshold) {
			return false, fmt.Sprintf("CPU负载过高(当前%.1f%%)", cpuUsage)
		}
	}
	return true, ""
}

// CapWorkers 将请求的并发数限制在资源允许范围内
// 资源紧张时减半
func (rm *ResourceMonitor) CapWorkers(requested int) int {
	if requested < 1 {
		requested = 1
	}

	result := requested
	if maxWorkers := rm.CalculateMaxWorkers(); maxWorkers < result {
		result = maxWorkers
	}

	if ok, reason := rm.CheckResourceAvailability(); !ok {
		utils.Warnf("%s, 降低预热并发数", reason)
		result /= 2
	}

	if result < 1 {
		result = 1
	}
	return result
}
