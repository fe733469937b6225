package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a registry and the HTTP handler exposing it.
type Collector struct {
	serviceName   string
	namespace     string
	registry      *prometheus.Registry
	commonMetrics *CommonMetrics
	handler       http.Handler
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
	options       CollectorOptions

	txOnce     sync.Once
	tx         *TxMetrics
	quorumOnce sync.Once
	quorum     *QuorumMetrics
	apiOnce    sync.Once
	api        *APIMetrics
}

func NewCollector(serviceName string, opts ...Option) *Collector {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	registry := prometheus.NewRegistry()
	c := &Collector{
		serviceName: serviceName,
		namespace:   options.Namespace,
		registry:    registry,
		stopCh:      make(chan struct{}),
		options:     options,
		handler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}
	if options.EnableRuntimeCollectors {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if options.EnableCommonMetrics {
		c.commonMetrics = newCommonMetrics(options.Namespace, serviceName, registry)
	}
	return c
}

// Start begins periodic collection of process metrics.
func (c *Collector) Start() {
	if c.commonMetrics == nil || c.options.SystemMetricsInterval <= 0 {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.options.SystemMetricsInterval)
		defer ticker.Stop()
		c.commonMetrics.Update()
		for {
			select {
			case <-ticker.C:
				c.commonMetrics.Update()
			case <-c.stopCh:
				return
			}
		}
	}()
}

func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

func (c *Collector) Handler() http.Handler {
	return c.handler
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Common() *CommonMetrics {
	return c.commonMetrics
}

// Tx returns the transaction manager metrics bound to this collector.
func (c *Collector) Tx() *TxMetrics {
	c.txOnce.Do(func() { c.tx = NewTxMetrics(c.registry, c.namespace) })
	return c.tx
}

// Quorum returns the quorum coordinator metrics bound to this collector.
func (c *Collector) Quorum() *QuorumMetrics {
	c.quorumOnce.Do(func() { c.quorum = NewQuorumMetrics(c.registry, c.namespace) })
	return c.quorum
}

// API returns the HTTP API metrics bound to this collector.
func (c *Collector) API() *APIMetrics {
	c.apiOnce.Do(func() { c.api = NewAPIMetrics(c.registry, c.namespace) })
	return c.api
}
