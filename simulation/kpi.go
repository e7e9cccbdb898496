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
package simulation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/wpansim/wpansim/logger"
	. "github.com/wpansim/wpansim/types"
)

type KpiManager struct {
	sim           *Simulation
	data          *Kpi
	startCounters NodeCountersStore
	curCounters   NodeCountersStore
	startChannels RadioStatsStore
	curChannels   RadioStatsStore
	isRunning     bool
}

type NodeCountersStore map[NodeId]NodeCounters
type RadioStatsStore map[ChannelId]KpiChannel

// NewKpiManager creates a new KPI manager/bookkeeper for a particular simulation.
func NewKpiManager() *KpiManager {
	km := &KpiManager{}
	return km
}

// Init inits the KPI manager for the given simulation.
func (km *KpiManager) Init(sim *Simulation) {
	logger.AssertNil(km.sim)
	logger.AssertFalse(km.isRunning)
	km.sim = sim
	km.data = &Kpi{Status: "ok", RunId: sim.RunId()}
	km.startCounters = NodeCountersStore{}
	km.curCounters = NodeCountersStore{}
}

// Start begins a new KPI period at the current simulation time.
func (km *KpiManager) Start() {
	logger.AssertNotNil(km.sim)
	km.data = &Kpi{Status: "ok", RunId: km.sim.RunId()}
	km.startCounters = km.retrieveNodeCounters()
	km.startChannels = km.sim.channelStatsSnapshot()
	km.data.TimeUs.StartTimeUs = km.sim.eq.Now()
	km.isRunning = true
}

// Stop ends the KPI period, computes the KPIs and saves them to the default file.
func (km *KpiManager) Stop() error {
	if !km.isRunning {
		return nil
	}
	km.update()
	km.isRunning = false
	return km.SaveDefaultFile()
}

func (km *KpiManager) IsRunning() bool {
	return km.isRunning
}

// Data returns the KPIs of the running period up to now, or of the last finished period.
func (km *KpiManager) Data() *Kpi {
	if km.isRunning {
		km.update()
	}
	return km.data
}

func (km *KpiManager) SaveDefaultFile() error {
	return km.SaveFile(km.getDefaultSaveFileName())
}

func (km *KpiManager) SaveFile(fn string) error {
	logger.AssertNotNil(km.sim)
	if km.isRunning {
		km.update()
	}

	km.data.FileTime = time.Now().Format(time.RFC3339)
	data, err := json.MarshalIndent(km.data, "", "    ")
	if err != nil {
		return errors.Wrap(err, "marshal KPI data")
	}
	if err = os.WriteFile(fn, data, 0644); err != nil {
		return errors.Wrapf(err, "write KPI file %s", fn)
	}
	logger.Debugf("KPI file saved: %s", fn)
	return nil
}

func (km *KpiManager) stopNode(nodeid NodeId) {
	// deleted nodes during a KPI period won't be used anymore in final node-specific KPI calculations.
	delete(km.startCounters, nodeid)
	delete(km.curCounters, nodeid)
}

func (km *KpiManager) update() {
	km.curCounters = km.retrieveNodeCounters()
	km.curChannels = km.sim.channelStatsSnapshot()
	km.calculateKpis()
}

func (km *KpiManager) retrieveNodeCounters() NodeCountersStore {
	nodes := km.sim.GetNodes()
	nodesMap := make(NodeCountersStore, len(nodes))
	for _, nid := range nodes {
		nodesMap[nid] = km.sim.nodes[nid].Counters()
	}
	return nodesMap
}

func getCountersDiff(curCtr NodeCounters, startCtr NodeCounters) NodeCounters {
	ret := NodeCounters{}
	for k, v := range curCtr {
		var startVal uint64 // if node wasn't known at start, it was created during - use 0 for a counter's start value.
		if sv, ok := startCtr[k]; ok {
			startVal = sv
		}
		ret[k] = v - startVal
	}
	return ret
}

func percentage(part, total uint64) float64 {
	if total == 0 {
		return 0.0
	}
	return 100.0 * float64(part) / float64(total)
}

func average(sum, n uint64) float64 {
	if n == 0 {
		return 0.0
	}
	return float64(sum) / float64(n)
}

func (km *KpiManager) calculateKpis() {
	// time
	km.data.TimeUs.EndTimeUs = km.sim.eq.Now()
	km.data.TimeUs.PeriodUs = km.data.TimeUs.EndTimeUs - km.data.TimeUs.StartTimeUs
	km.data.TimeSec.StartTimeSec = float64(km.data.TimeUs.StartTimeUs) / 1e6
	km.data.TimeSec.EndTimeSec = float64(km.data.TimeUs.EndTimeUs) / 1e6
	km.data.TimeSec.PeriodSec = float64(km.data.TimeUs.PeriodUs) / 1e6

	// channels
	passedTime := km.data.TimeUs.PeriodUs
	km.data.Channels = make(map[ChannelId]KpiChannel)
	for ch, cur := range km.curChannels {
		start := km.startChannels[ch]
		chanKpi := KpiChannel{
			TxTimeUs:  cur.TxTimeUs - start.TxTimeUs,
			NumFrames: cur.NumFrames - start.NumFrames,
		}
		if passedTime > 0 {
			chanKpi.TxPercentage = 100.0 * float64(chanKpi.TxTimeUs) / float64(passedTime)
			chanKpi.AvgFps = 1.0e6 * float64(chanKpi.NumFrames) / float64(passedTime)
		}
		km.data.Channels[ch] = chanKpi
	}

	// counters
	km.data.Mac.AccessFailurePercentage = make(map[NodeId]float64)
	km.data.Mac.AvgTxDelayUs = make(map[NodeId]float64)
	km.data.Csma.BusyCcaPercentage = make(map[NodeId]float64)
	km.data.Csma.AvgBackoffUs = make(map[NodeId]float64)
	km.data.Counters = make(map[NodeId]NodeCounters)
	for nid, ctr := range km.curCounters {
		counters := getCountersDiff(ctr, km.startCounters[nid])
		confirmed := counters["mac.TxSuccess"] + counters["mac.TxChannelAccessFailure"] + counters["mac.TxAborted"]
		km.data.Mac.AccessFailurePercentage[nid] = percentage(counters["mac.TxChannelAccessFailure"], confirmed)
		km.data.Mac.AvgTxDelayUs[nid] = average(counters["mac.TxDelaySumUs"], confirmed)
		km.data.Csma.BusyCcaPercentage[nid] = percentage(counters["csma.CcaBusy"], counters["csma.Cca"])
		km.data.Csma.AvgBackoffUs[nid] = average(counters["csma.BackoffTimeUs"], counters["csma.Backoffs"])
		km.data.Counters[nid] = counters
	}
}

func (km *KpiManager) getDefaultSaveFileName() string {
	return filepath.Join(km.sim.cfg.OutputDir, fmt.Sprintf("%d_kpi.json", km.sim.cfg.Id))
}
