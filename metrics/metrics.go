// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics exposes the exchange's Prometheus counters and gauges.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector groups every metric ExchangeService updates. A nil *Collector
// is valid and all its methods are no-ops, so metrics are optional.
type Collector struct {
	ExecutedTotal    *prometheus.CounterVec
	RollbacksTotal   prometheus.Counter
	FinalizedTotal   prometheus.Counter
	RejectedExecutes prometheus.Counter
	PoolsGauge       prometheus.Gauge
}

// NewCollector builds and registers the exchange's metrics on registerer.
func NewCollector(registerer prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		ExecutedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ree",
			Name:      "executed_total",
			Help:      "Number of execute_tx calls committed, by action.",
		}, []string{"action"}),
		RollbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ree",
			Name:      "rollbacks_total",
			Help:      "Number of rollback_tx calls processed.",
		}),
		FinalizedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ree",
			Name:      "finalized_total",
			Help:      "Number of per-pool states finalized during new_block.",
		}),
		RejectedExecutes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ree",
			Name:      "rejected_executes_total",
			Help:      "Number of execute_tx calls rejected by the execution serializer.",
		}),
		PoolsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ree",
			Name:      "pools",
			Help:      "Number of pools registered.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		c.ExecutedTotal, c.RollbacksTotal, c.FinalizedTotal, c.RejectedExecutes, c.PoolsGauge,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) ObserveExecuted(action string) {
	if c == nil {
		return
	}
	c.ExecutedTotal.WithLabelValues(action).Inc()
}

func (c *Collector) ObserveRollback() {
	if c == nil {
		return
	}
	c.RollbacksTotal.Inc()
}

func (c *Collector) ObserveFinalized(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.FinalizedTotal.Add(float64(n))
}

func (c *Collector) ObserveRejectedExecute() {
	if c == nil {
		return
	}
	c.RejectedExecutes.Inc()
}

func (c *Collector) SetPoolsGauge(n int) {
	if c == nil {
		return
	}
	c.PoolsGauge.Set(float64(n))
}
