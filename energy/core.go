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

package energy

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/wpansim/wpansim/logger"
	. "github.com/wpansim/wpansim/types"
)

type EnergyAnalyser struct {
	nodes                map[NodeId]*NodeEnergy
	consumption          Consumption
	networkHistory       []NetworkConsumption
	energyHistoryByNodes [][]NodeEnergyReport
	title                string
}

func NewEnergyAnalyser() *EnergyAnalyser {
	ea := &EnergyAnalyser{
		nodes:                make(map[NodeId]*NodeEnergy),
		consumption:          DefaultConsumption(),
		networkHistory:       make([]NetworkConsumption, 0, 3600), //Start with space for 1 sample every 30s for 1 hour = 1*60*60/30 = 3600 samples
		energyHistoryByNodes: make([][]NodeEnergyReport, 0, 3600),
	}
	return ea
}

func (e *EnergyAnalyser) SetConsumption(c Consumption) {
	e.consumption = c
}

// AddNode starts tracking a node whose radio is in state at timestamp. The returned NodeEnergy must be
// registered as a tracer on the node's PHY.
func (e *EnergyAnalyser) AddNode(nodeID NodeId, timestamp uint64, state RadioState) *NodeEnergy {
	if node, ok := e.nodes[nodeID]; ok {
		return node
	}
	node := newNode(nodeID, timestamp, state)
	e.nodes[nodeID] = node
	return node
}

func (e *EnergyAnalyser) DeleteNode(nodeID NodeId) {
	delete(e.nodes, nodeID)

	if len(e.nodes) == 0 {
		e.ClearEnergyData()
	}
}

func (e *EnergyAnalyser) GetNode(nodeID NodeId) *NodeEnergy {
	return e.nodes[nodeID]
}

func (e *EnergyAnalyser) GetNetworkEnergyHistory() []NetworkConsumption {
	return e.networkHistory
}

func (e *EnergyAnalyser) GetEnergyHistoryByNodes() [][]NodeEnergyReport {
	return e.energyHistoryByNodes
}

// GetLatestEnergyOfNodes returns the last stored snapshot, or nil if none was stored.
func (e *EnergyAnalyser) GetLatestEnergyOfNodes() []NodeEnergyReport {
	if len(e.energyHistoryByNodes) == 0 {
		return nil
	}
	return e.energyHistoryByNodes[len(e.energyHistoryByNodes)-1]
}

// Report brings all nodes up to timestamp and returns their energy, sorted by node id.
func (e *EnergyAnalyser) Report(timestamp uint64) []NodeEnergyReport {
	reports := make([]NodeEnergyReport, 0, len(e.nodes))
	for _, id := range e.sortedNodeIds() {
		node := e.nodes[id]
		node.ComputeRadioState(timestamp)
		reports = append(reports, node.report(&e.consumption))
	}
	return reports
}

func (e *EnergyAnalyser) StoreNetworkEnergy(timestamp uint64) {
	nodesEnergySnapshot := e.Report(timestamp)
	networkSnapshot := NetworkConsumption{
		Timestamp: timestamp,
	}

	netSize := float64(len(e.nodes))
	for _, r := range nodesEnergySnapshot {
		networkSnapshot.Energy[RadioOff] += r.Off / netSize
		networkSnapshot.Energy[RadioIdle] += r.Idle / netSize
		networkSnapshot.Energy[RadioListen] += r.Listen / netSize
		networkSnapshot.Energy[RadioTx] += r.Tx / netSize
		networkSnapshot.Energy[RadioRx] += r.Rx / netSize
	}

	e.networkHistory = append(e.networkHistory, networkSnapshot)
	e.energyHistoryByNodes = append(e.energyHistoryByNodes, nodesEnergySnapshot)
}

// SaveEnergyDataToFile writes <name>_nodes.txt and <name>.txt into dir.
func (e *EnergyAnalyser) SaveEnergyDataToFile(dir string, name string, timestamp uint64) error {
	if name == "" {
		if e.title == "" {
			name = "energy"
		} else {
			name = e.title
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create energy results directory")
	}

	path := filepath.Join(dir, name)
	fileNodes, err := os.Create(path + "_nodes.txt")
	if err != nil {
		return errors.Wrapf(err, "error creating file")
	}
	defer fileNodes.Close()

	fileNetwork, err := os.Create(path + ".txt")
	if err != nil {
		return errors.Wrapf(err, "error creating file")
	}
	defer fileNetwork.Close()

	//Save all nodes' energy data to file
	e.WriteEnergyByNodes(fileNodes, timestamp)

	//Save network energy data to file (timestamp converted to milliseconds)
	e.writeNetworkEnergy(fileNetwork, timestamp)
	return nil
}

// WriteEnergyByNodes writes a table of the energy per node and radio state up to timestamp.
func (e *EnergyAnalyser) WriteEnergyByNodes(w io.Writer, timestamp uint64) {
	fmt.Fprintf(w, "Duration of the simulated network (in milliseconds): %d\n", timestamp/1000)
	fmt.Fprintf(w, "ID\tOff (mJ)\tIdle (mJ)\tListening (mJ)\tTransmitting (mJ)\tReceiving (mJ)\n")
	for _, r := range e.Report(timestamp) {
		fmt.Fprintf(w, "%d\t%f\t%f\t%f\t%f\t%f\n", r.NodeId, r.Off, r.Idle, r.Listen, r.Tx, r.Rx)
	}
}

func (e *EnergyAnalyser) writeNetworkEnergy(w io.Writer, timestamp uint64) {
	fmt.Fprintf(w, "Duration of the simulated network (in milliseconds): %d\n", timestamp/1000)
	fmt.Fprintf(w, "Time (ms)\tOff (mJ)\tIdle (mJ)\tListening (mJ)\tTransmitting (mJ)\tReceiving (mJ)\n")
	for _, snapshot := range e.networkHistory {
		fmt.Fprintf(w, "%d\t%f\t%f\t%f\t%f\t%f\n",
			snapshot.Timestamp/1000,
			snapshot.Energy[RadioOff],
			snapshot.Energy[RadioIdle],
			snapshot.Energy[RadioListen],
			snapshot.Energy[RadioTx],
			snapshot.Energy[RadioRx],
		)
	}
}

func (e *EnergyAnalyser) ClearEnergyData() {
	logger.Debugf("Node's energy data cleared")
	e.networkHistory = make([]NetworkConsumption, 0, 3600)
	e.energyHistoryByNodes = make([][]NodeEnergyReport, 0, 3600)
}

func (e *EnergyAnalyser) SetTitle(title string) {
	e.title = title
}

func (e *EnergyAnalyser) sortedNodeIds() []NodeId {
	ids := make([]NodeId, 0, len(e.nodes))
	for id := range e.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
