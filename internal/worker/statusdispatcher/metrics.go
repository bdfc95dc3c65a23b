// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package statusdispatcher

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/evershalik/oai-ran-du-k8s-operator/core/status"
)

const metricsNamespace = "du_status"

var knownStatuses = []status.Status{status.Blocked, status.Active, status.Error}

// Collector is a prometheus.Collector that collects metrics about the
// status dispatcher.
type Collector struct {
	events          *prometheus.CounterVec
	evaluations     *prometheus.CounterVec
	publishes       prometheus.Counter
	publishRetries  prometheus.Counter
	publishFailures prometheus.Counter
	currentStatus   *prometheus.GaugeVec
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "events_total",
				Help:      "The number of events processed, by kind.",
			}, []string{"kind"},
		),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "evaluations_total",
				Help:      "The number of status evaluations, by resulting status.",
			}, []string{"status"},
		),
		publishes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "publishes_total",
				Help:      "The number of status changes published to the platform.",
			},
		),
		publishRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "publish_retries_total",
				Help:      "The number of failed publish attempts that were retried.",
			},
		),
		publishFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "publish_failures_total",
				Help:      "The number of status changes that could not be published.",
			},
		),
		currentStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "current",
				Help:      "Set to 1 for the last published workload status.",
			}, []string{"status"},
		),
	}
}

func (c *Collector) setCurrent(current status.Status) {
	for _, s := range knownStatuses {
		value := 0.0
		if s == current {
			value = 1
		}
		c.currentStatus.WithLabelValues(string(s)).Set(value)
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.events.Describe(ch)
	c.evaluations.Describe(ch)
	c.publishes.Describe(ch)
	c.publishRetries.Describe(ch)
	c.publishFailures.Describe(ch)
	c.currentStatus.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.events.Collect(ch)
	c.evaluations.Collect(ch)
	c.publishes.Collect(ch)
	c.publishRetries.Collect(ch)
	c.publishFailures.Collect(ch)
	c.currentStatus.Collect(ch)
}
