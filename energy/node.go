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
	"github.com/wpansim/wpansim/logger"
	"github.com/wpansim/wpansim/phy"
	. "github.com/wpansim/wpansim/types"
)

// NodeEnergy tracks the time a node's radio spends in each power state. It is a phy.Tracer.
type NodeEnergy struct {
	nodeId    NodeId
	state     RadioState
	timestamp uint64
	spent     [numRadioStates]uint64 // us
}

func newNode(nodeID NodeId, timestamp uint64, state RadioState) *NodeEnergy {
	return &NodeEnergy{
		nodeId:    nodeID,
		state:     state,
		timestamp: timestamp,
	}
}

func (node *NodeEnergy) ComputeRadioState(timestamp uint64) {
	logger.AssertTrue(timestamp >= node.timestamp, "energy: time going backwards")
	if node.state >= numRadioStates {
		logger.Panicf("unknown radio state: %v", node.state)
	}
	node.spent[node.state] += timestamp - node.timestamp
	node.timestamp = timestamp
}

func (node *NodeEnergy) SetRadioState(state RadioState, timestamp uint64) {
	//Mandatory: compute energy consumed by the radio first.
	node.ComputeRadioState(timestamp)
	node.state = state
}

func (node *NodeEnergy) State() RadioState {
	return node.state
}

// SpentUs returns the time spent in state up to the last update.
func (node *NodeEnergy) SpentUs(state RadioState) uint64 {
	return node.spent[state]
}

// OnPhyTrace implements phy.Tracer.
func (node *NodeEnergy) OnPhyTrace(evt *phy.TraceEvent) {
	if evt.Type == phy.TraceStateChange {
		node.SetRadioState(RadioStateOf(evt.NewState), evt.Timestamp)
	}
}

func (node *NodeEnergy) report(c *Consumption) NodeEnergyReport {
	return NodeEnergyReport{
		NodeId: node.nodeId,
		Off:    float64(node.spent[RadioOff]) * c[RadioOff],
		Idle:   float64(node.spent[RadioIdle]) * c[RadioIdle],
		Listen: float64(node.spent[RadioListen]) * c[RadioListen],
		Tx:     float64(node.spent[RadioTx]) * c[RadioTx],
		Rx:     float64(node.spent[RadioRx]) * c[RadioRx],
	}
}
