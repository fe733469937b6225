package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v3/cpu"
)

// CommonMetrics are process-level gauges shared by every service.
type CommonMetrics struct {
	startTime        time.Time
	UptimeSeconds    prometheus.Gauge
	MemoryUsageBytes prometheus.Gauge
	CPUUsagePercent  prometheus.Gauge
	GoroutinesActive prometheus.Gauge
}

func newCommonMetrics(namespace, subsystem string, reg prometheus.Registerer) *CommonMetrics {
	factory := promauto.With(reg)
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}
	return &CommonMetrics{
		startTime:        time.Now(),
		UptimeSeconds:    gauge("uptime_seconds", "Time passed since service started in seconds"),
		MemoryUsageBytes: gauge("memory_usage_bytes", "Service memory consumption in bytes"),
		CPUUsagePercent:  gauge("cpu_usage_percent", "CPU utilization percentage"),
		GoroutinesActive: gauge("goroutines_active", "Number of active goroutines"),
	}
}

// Update refreshes every gauge.
func (cm *CommonMetrics) Update() {
	cm.UptimeSeconds.Set(time.Since(cm.startTime).Seconds())

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	cm.MemoryUsageBytes.Set(float64(m.Alloc))
	cm.GoroutinesActive.Set(float64(runtime.NumGoroutine()))

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		cm.CPUUsagePercent.Set(pct[0])
	}
}
