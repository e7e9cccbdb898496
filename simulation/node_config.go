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
	"github.com/pkg/errors"

	"github.com/wpansim/wpansim/csmaca"
	"github.com/wpansim/wpansim/mac"
	"github.com/wpansim/wpansim/phy"
	. "github.com/wpansim/wpansim/types"
)

// NodeConfig describes a node to add. Nil layer configs take the simulation's defaults.
type NodeConfig struct {
	ID           NodeId
	X, Y, Z      int
	IsAutoPlaced bool
	RadioRange   int
	Phy          *phy.Config
	Csma         *csmaca.Config
	Mac          *mac.Config
}

func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		ID:           -1, // < 0 for the next available nodeid
		IsAutoPlaced: true,
		RadioRange:   defaultRadioRange,
	}
}

func (cfg *NodeConfig) Validate() error {
	if cfg.ID > MaxNodeId {
		return errors.Errorf("node id %d out of range", cfg.ID)
	}
	if cfg.RadioRange < 0 {
		return errors.Errorf("invalid radio range %d", cfg.RadioRange)
	}
	if cfg.Phy != nil {
		if err := cfg.Phy.Validate(); err != nil {
			return errors.Wrap(err, "phy")
		}
	}
	if cfg.Csma != nil {
		if err := cfg.Csma.Validate(); err != nil {
			return errors.Wrap(err, "csma")
		}
	}
	if cfg.Mac != nil {
		if err := cfg.Mac.Validate(); err != nil {
			return errors.Wrap(err, "mac")
		}
	}
	return nil
}

// NodeConfigFinalize fills in the node id and the layer configs a new node takes from the simulation.
func (s *Simulation) NodeConfigFinalize(nodeCfg *NodeConfig) {
	if nodeCfg.ID <= 0 {
		nodeCfg.ID = s.genNodeId()
	}
	if nodeCfg.Phy == nil {
		c := s.cfg.Phy
		nodeCfg.Phy = &c
	}
	if nodeCfg.Csma == nil {
		c := s.cfg.Csma
		nodeCfg.Csma = &c
	}
	if nodeCfg.Mac == nil {
		c := s.cfg.Mac
		nodeCfg.Mac = &c
	}
}

type NodeAutoPlacer struct {
	X, Y, Z    int
	Xref, Yref int
	Xmax       int
	NodeDelta  int
	isReset    bool
}

func NewNodeAutoPlacer() *NodeAutoPlacer {
	return &NodeAutoPlacer{
		Xref:      100,
		Yref:      100,
		Xmax:      1450,
		X:         100,
		Y:         100,
		Z:         0,
		NodeDelta: 100,
		isReset:   true,
	}
}

// UpdateReference updates the reference position of the NodeAutoPlacer to 'x', 'y', 'z'. It starts placing
// from there.
func (nap *NodeAutoPlacer) UpdateReference(x, y, z int) {
	nap.Xref = x
	nap.X = x
	nap.Yref = y
	nap.Y = y
	nap.Z = z
	nap.isReset = false
}

// NextNodePosition lets the autoplacer pick the next position for a new node to be placed. Nodes are placed
// in rows of NodeDelta spacing, wrapping to a new row beyond Xmax.
func (nap *NodeAutoPlacer) NextNodePosition() (int, int, int) {
	if !nap.isReset {
		nap.X += nap.NodeDelta
		if nap.X > nap.Xmax {
			nap.X = nap.Xref
			nap.Y += nap.NodeDelta
		}
	}
	nap.isReset = false
	return nap.X, nap.Y, nap.Z
}

// ReuseNextNodePosition instructs the autoplacer to re-use the NextNodePosition() that was given out in the
// last call to this method.
func (nap *NodeAutoPlacer) ReuseNextNodePosition() {
	nap.isReset = true
}
