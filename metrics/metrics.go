/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package metrics wires the daemon's Prometheus surface: per-port request
// counters, rate-limit rejection counters, and per-target health-score
// gauges, all served from a private registry rather than the global
// default so tests can build one per case without collector collisions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric this module exports. Build one with New and
// share it across proxy, netmon and admin.
type Collector struct {
	reg *prometheus.Registry

	RequestsTotal       *prometheus.CounterVec
	RateLimitRejections *prometheus.CounterVec
	TargetHealthScore   *prometheus.GaugeVec
	PortHealthy         *prometheus.GaugeVec
}

// New builds a Collector on a fresh registry and registers every metric.
func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wdproxy",
			Subsystem: "port",
			Name:      "requests_total",
			Help:      "Count of proxied requests by outcome.",
		}, []string{"port", "result"}),
		RateLimitRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wdproxy",
			Name:      "rate_limit_rejections_total",
			Help:      "Count of requests rejected by the token-bucket rate limiter.",
		}, []string{"port", "window"}),
		TargetHealthScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wdproxy",
			Subsystem: "target",
			Name:      "health_score",
			Help:      "Relative health score [-100,100] of one upstream target.",
		}, []string{"port", "target_idx"}),
		PortHealthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wdproxy",
			Subsystem: "port",
			Name:      "healthy",
			Help:      "1 if the port's aggregate health is up, 0 otherwise.",
		}, []string{"port"}),
	}

	reg.MustRegister(c.RequestsTotal, c.RateLimitRejections, c.TargetHealthScore, c.PortHealthy)
	return c
}

// Handler returns the /metrics HTTP handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
