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
	"time"

	"github.com/pkg/errors"

	"github.com/wpansim/wpansim/logger"
)

// ExportNetwork exports config info of network to a YAML-friendly object.
func (s *Simulation) ExportNetwork() YamlNetworkConfig {
	model := s.cfg.RadioModel
	seed := s.cfg.Seed
	return YamlNetworkConfig{
		Position:   [3]int{0, 0, 0}, // when exporting, always a 0-offset is used.
		RadioModel: &model,
		Seed:       &seed,
	}
}

// ExportNodes exports config/position info of all nodes to a YAML-friendly object.
func (s *Simulation) ExportNodes(nwConfig *YamlNetworkConfig) []YamlNodeConfig {
	res := make([]YamlNodeConfig, 0, len(s.nodes))

	s.VisitNodesInOrder(func(node *Node) {
		x, y, z := node.Position()
		cfg := YamlNodeConfig{
			ID:       node.Id,
			Position: [3]int{x, y, z},
		}

		// include per-node settings only if they differ from the network-wide ones
		rr := node.cfg.RadioRange
		if (nwConfig.RadioRange != nil && rr != *nwConfig.RadioRange) ||
			(nwConfig.RadioRange == nil && rr != defaultRadioRange) {
			cfg.RadioRange = &rr
		}
		if ch := node.Phy.CurrentChannel(); ch != s.cfg.Phy.Channel {
			cfg.Channel = &ch
		}
		if code := node.Phy.Pib().TransmitPower; code != s.cfg.Phy.TransmitPower {
			cfg.TxPowerCode = &code
		}
		if rxOn := node.Mac.Config().RxOnWhenIdle; rxOn != s.cfg.Mac.RxOnWhenIdle {
			cfg.RxOnWhenIdle = &rxOn
		}
		res = append(res, cfg)
	})
	return res
}

// ExportTraffic exports the settings of all running traffic generators.
func (s *Simulation) ExportTraffic() []TrafficConfig {
	res := make([]TrafficConfig, 0, len(s.traffic))
	for _, tg := range s.Traffic() {
		if tg.IsRunning() {
			res = append(res, tg.Config())
		}
	}
	return res
}

// ExportScenario exports the current network as a scenario that ImportScenario (or a new simulation) can load.
func (s *Simulation) ExportScenario(duration time.Duration) *YamlConfigFile {
	nw := s.ExportNetwork()
	return &YamlConfigFile{
		NetworkConfig: nw,
		PhyConfig:     s.cfg.Phy,
		CsmaConfig:    s.cfg.Csma,
		MacConfig:     s.cfg.Mac,
		NodesList:     s.ExportNodes(&nw),
		TrafficList:   s.ExportTraffic(),
		Duration:      duration,
	}
}

func (s *Simulation) ImportNodes(nwConfig YamlNetworkConfig, nodes []YamlNodeConfig) error {
	allOk := true
	rr := defaultRadioRange
	if nwConfig.RadioRange != nil {
		rr = *nwConfig.RadioRange
	}
	posOffset := nwConfig.Position
	nodeIdOffset := 0
	if nwConfig.BaseId != nil {
		nodeIdOffset = *nwConfig.BaseId
	}

	for _, node := range nodes {
		cfg := DefaultNodeConfig()

		// fill config with entries from YAML 'node'
		cfg.ID = node.ID + nodeIdOffset
		if node.RadioRange != nil {
			cfg.RadioRange = *node.RadioRange
		} else {
			cfg.RadioRange = rr
		}
		cfg.IsAutoPlaced = false
		cfg.X = node.Position[0] + posOffset[0]
		cfg.Y = node.Position[1] + posOffset[1]
		cfg.Z = node.Position[2] + posOffset[2]

		s.NodeConfigFinalize(&cfg)
		if node.Channel != nil {
			cfg.Phy.Channel = *node.Channel
		}
		if node.TxPowerCode != nil {
			cfg.Phy.TransmitPower = *node.TxPowerCode
		}
		if node.RxOnWhenIdle != nil {
			cfg.Mac.RxOnWhenIdle = *node.RxOnWhenIdle
		}

		if _, err := s.AddNode(&cfg); err != nil {
			logger.Warnf("Warn: %s", err)
			allOk = false // continue trying to import remaining nodes
		}
	}

	if !allOk {
		return errors.New("not all nodes could be imported - see error log above")
	}
	return nil
}

// ImportTraffic starts a traffic generator per entry. Node ids are shifted by the network's base id.
func (s *Simulation) ImportTraffic(nwConfig YamlNetworkConfig, traffic []TrafficConfig) error {
	nodeIdOffset := 0
	if nwConfig.BaseId != nil {
		nodeIdOffset = *nwConfig.BaseId
	}
	for i := range traffic {
		cfg := traffic[i]
		cfg.Src += nodeIdOffset
		if cfg.Dst > 0 {
			cfg.Dst += nodeIdOffset
		}
		if _, err := s.AddTraffic(&cfg); err != nil {
			return errors.Wrapf(err, "traffic entry %d", i)
		}
	}
	return nil
}

// ImportScenario adds the nodes and traffic of a loaded scenario to the running simulation.
func (s *Simulation) ImportScenario(cf *YamlConfigFile) error {
	if err := s.ImportNodes(cf.NetworkConfig, cf.NodesList); err != nil {
		return err
	}
	return s.ImportTraffic(cf.NetworkConfig, cf.TrafficList)
}
