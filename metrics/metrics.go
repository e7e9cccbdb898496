// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.
// Package metrics exports PHY, CSMA-CA and MAC activity of a simulation as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wpansim/wpansim/csmaca"
	"github.com/wpansim/wpansim/mac"
	"github.com/wpansim/wpansim/phy"
	. "github.com/wpansim/wpansim/types"
)

// Collector holds the simulation metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	PhyTraceEvents   *prometheus.CounterVec
	PhyStateChanges  *prometheus.CounterVec
	RxSinrDb         prometheus.Histogram
	CsmaEvents       *prometheus.CounterVec
	CsmaBackoffDelay prometheus.Histogram
	MacTxFrames      *prometheus.CounterVec
	MacRxFrames      prometheus.Counter
	Nodes            prometheus.Gauge
	SimTimeUs        prometheus.Gauge
}

// NewCollector registers the simulation metrics against reg, or the default registerer when reg is nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	var err error
	c := &Collector{gatherer: gatherer}

	if c.PhyTraceEvents, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wpan_phy_trace_events_total",
		Help: "PHY packet trace events by type.",
	}, []string{"type"}), "wpan_phy_trace_events_total"); err != nil {
		return nil, err
	}
	if c.PhyStateChanges, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wpan_phy_state_changes_total",
		Help: "PHY transceiver state transitions by new state.",
	}, []string{"state"}), "wpan_phy_state_changes_total"); err != nil {
		return nil, err
	}
	if c.RxSinrDb, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wpan_phy_rx_sinr_db",
		Help:    "SINR of completed receptions evaluated by an error model.",
		Buckets: prometheus.LinearBuckets(-5, 5, 12),
	}), "wpan_phy_rx_sinr_db"); err != nil {
		return nil, err
	}
	if c.CsmaEvents, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wpan_csma_events_total",
		Help: "CSMA-CA algorithm events by type.",
	}, []string{"event"}), "wpan_csma_events_total"); err != nil {
		return nil, err
	}
	if c.CsmaBackoffDelay, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wpan_csma_backoff_delay_us",
		Help:    "Random backoff delays drawn by CSMA-CA, in simulated microseconds.",
		Buckets: prometheus.ExponentialBuckets(320, 2, 9),
	}), "wpan_csma_backoff_delay_us"); err != nil {
		return nil, err
	}
	if c.MacTxFrames, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wpan_mac_tx_frames_total",
		Help: "MAC data requests completed, by outcome.",
	}, []string{"status"}), "wpan_mac_tx_frames_total"); err != nil {
		return nil, err
	}
	if c.MacRxFrames, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wpan_mac_rx_frames_total",
		Help: "Data frames delivered to the MAC user.",
	}), "wpan_mac_rx_frames_total"); err != nil {
		return nil, err
	}
	if c.Nodes, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wpan_nodes",
		Help: "Number of nodes in the simulation.",
	}), "wpan_nodes"); err != nil {
		return nil, err
	}
	if c.SimTimeUs, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wpan_sim_time_us",
		Help: "Current simulated time in microseconds.",
	}), "wpan_sim_time_us"); err != nil {
		return nil, err
	}
	return c, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler serves the gathered metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// AttachPhy subscribes the collector to the trace events of p.
func (c *Collector) AttachPhy(p *phy.Phy) {
	if c == nil {
		return
	}
	p.AddTracer(phy.TracerFunc(c.onPhyTrace))
}

func (c *Collector) onPhyTrace(evt *phy.TraceEvent) {
	if evt.Type == phy.TraceStateChange {
		c.PhyStateChanges.WithLabelValues(evt.NewState.String()).Inc()
		return
	}
	c.PhyTraceEvents.WithLabelValues(evt.Type.String()).Inc()
	if evt.Type == phy.TraceRxEnd && evt.Sinr > 0 {
		c.RxSinrDb.Observe(RatioToDb(evt.Sinr))
	}
}

// AttachCsma subscribes the collector to the trace events of cc.
func (c *Collector) AttachCsma(cc *csmaca.CsmaCa) {
	if c == nil {
		return
	}
	cc.AddTracer(csmaca.TracerFunc(c.onCsmaTrace))
}

func (c *Collector) onCsmaTrace(evt *csmaca.TraceEvent) {
	c.CsmaEvents.WithLabelValues(evt.Type.String()).Inc()
	if evt.Type == csmaca.TraceBackoff {
		c.CsmaBackoffDelay.Observe(float64(evt.DelayUs))
	}
}

// ObserveMacTx counts a completed MAC data request.
func (c *Collector) ObserveMacTx(status mac.TxStatus) {
	if c == nil {
		return
	}
	c.MacTxFrames.WithLabelValues(status.String()).Inc()
}

// IncMacRx counts a data frame delivered to the MAC user.
func (c *Collector) IncMacRx() {
	if c == nil {
		return
	}
	c.MacRxFrames.Inc()
}

// SetNodes updates the node count gauge.
func (c *Collector) SetNodes(count int) {
	if c == nil {
		return
	}
	c.Nodes.Set(float64(count))
}

// SetSimTime updates the simulated time gauge.
func (c *Collector) SetSimTime(us uint64) {
	if c == nil {
		return
	}
	c.SimTimeUs.Set(float64(us))
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
