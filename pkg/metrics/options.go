package metrics

import "time"

type CollectorOptions struct {
	Namespace string
	// EnableCommonMetrics turns on the gopsutil-backed uptime, CPU and
	// memory gauges refreshed every SystemMetricsInterval.
	EnableCommonMetrics   bool
	SystemMetricsInterval time.Duration
	// EnableRuntimeCollectors registers the client library's Go runtime and
	// process collectors.
	EnableRuntimeCollectors bool
}

type Option func(*CollectorOptions)

func defaultOptions() CollectorOptions {
	return CollectorOptions{
		Namespace:               defaultNamespace,
		EnableCommonMetrics:     true,
		SystemMetricsInterval:   15 * time.Second,
		EnableRuntimeCollectors: true,
	}
}

func WithNamespace(namespace string) Option {
	return func(o *CollectorOptions) { o.Namespace = namespace }
}

func WithCommonMetrics(enable bool) Option {
	return func(o *CollectorOptions) { o.EnableCommonMetrics = enable }
}

func WithSystemMetricsInterval(interval time.Duration) Option {
	return func(o *CollectorOptions) { o.SystemMetricsInterval = interval }
}

func WithRuntimeCollectors(enable bool) Option {
	return func(o *CollectorOptions) { o.EnableRuntimeCollectors = enable }
}
