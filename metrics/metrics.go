/*
 * MIT License
 *
 * Copyright (c) 2024 ctrlplane contributors
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
 */

// Package metrics exports TransportStats and LatencyMetrics as Prometheus
// collectors, the ambient observability surface every long-lived
// component in this repository carries. Dashboards and profilers are
// higher-layer UI concerns left to operators; a counter/gauge exporter
// is the library's job.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ctrlplane/devicetransport/transport"
)

// Exporter registers one gauge family per metric, labeled by each
// transport's Name() and kind, so a single Exporter can front many
// concurrently-live transports (e.g. every entry a factory.Factory built).
type Exporter struct {
	bytesSent       *prometheus.GaugeVec
	bytesReceived   *prometheus.GaugeVec
	txSuccess       *prometheus.GaugeVec
	txFailed        *prometheus.GaugeVec
	reconnects      *prometheus.GaugeVec
	avgLatencyMs    *prometheus.GaugeVec
	maxLatencyMs    *prometheus.GaugeVec
	latencyP95Ms    *prometheus.GaugeVec
	latencyP99Ms    *prometheus.GaugeVec
	violations      *prometheus.GaugeVec
}

// New constructs an Exporter and registers its collectors with reg. Pass
// prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer to publish on the global /metrics handler.
func New(reg prometheus.Registerer) *Exporter {
	labels := []string{"transport", "kind"}
	e := &Exporter{
		bytesSent:     vec(labels, "devicetransport_bytes_sent_total", "Bytes sent by this transport."),
		bytesReceived: vec(labels, "devicetransport_bytes_received_total", "Bytes received by this transport."),
		txSuccess:     vec(labels, "devicetransport_transactions_success_total", "Successful send/receive/transact operations."),
		txFailed:      vec(labels, "devicetransport_transactions_failed_total", "Failed send/receive/transact operations."),
		reconnects:    vec(labels, "devicetransport_reconnects_total", "Completed reconnection attempts."),
		avgLatencyMs:  vec(labels, "devicetransport_latency_avg_ms", "Running average operation latency."),
		maxLatencyMs:  vec(labels, "devicetransport_latency_max_ms", "Maximum observed operation latency."),
		latencyP95Ms:  vec(labels, "devicetransport_latency_p95_ms", "95th percentile operation latency."),
		latencyP99Ms:  vec(labels, "devicetransport_latency_p99_ms", "99th percentile operation latency."),
		violations:    vec(labels, "devicetransport_latency_violations_total", "Operations that exceeded their latency budget."),
	}
	for _, c := range e.collectors() {
		reg.MustRegister(c)
	}
	return e
}

func vec(labels []string, name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
}

func (e *Exporter) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		e.bytesSent, e.bytesReceived, e.txSuccess, e.txFailed, e.reconnects,
		e.avgLatencyMs, e.maxLatencyMs, e.latencyP95Ms, e.latencyP99Ms, e.violations,
	}
}

// Observe pulls a fresh Stats()/LatencyMetrics() snapshot from tr and
// updates every gauge for it. Callers are expected to call this on a
// ticker (e.g. from a supervising goroutine); the
// Exporter itself runs no background loop.
func (e *Exporter) Observe(tr transport.Transport) {
	labels := prometheus.Labels{"transport": tr.Name(), "kind": tr.TransportType().String()}

	st := tr.Stats()
	e.bytesSent.With(labels).Set(float64(st.BytesSent))
	e.bytesReceived.With(labels).Set(float64(st.BytesReceived))
	e.txSuccess.With(labels).Set(float64(st.TransactionsSuccess))
	e.txFailed.With(labels).Set(float64(st.TransactionsFailed))
	e.reconnects.With(labels).Set(float64(st.ReconnectCount))

	lat := tr.LatencyMetrics()
	e.avgLatencyMs.With(labels).Set(lat.AvgMs)
	e.maxLatencyMs.With(labels).Set(lat.MaxMs)
	e.latencyP95Ms.With(labels).Set(lat.P95)
	e.latencyP99Ms.With(labels).Set(lat.P99)
	e.violations.With(labels).Set(float64(lat.Violations))
}
