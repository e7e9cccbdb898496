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
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/wpansim/wpansim/csmaca"
	"github.com/wpansim/wpansim/mac"
	"github.com/wpansim/wpansim/phy"
)

type YamlNetworkConfig struct {
	Position   [3]int  `yaml:"pos-shift,flow"`
	RadioRange *int    `yaml:"radio-range,omitempty"`
	BaseId     *int    `yaml:"base-id,omitempty"`
	RadioModel *string `yaml:"radio-model,omitempty"`
	Seed       *int64  `yaml:"seed,omitempty"`
}

type YamlNodeConfig struct {
	ID           int    `yaml:"id"`
	Position     [3]int `yaml:"pos,flow"`
	RadioRange   *int   `yaml:"radio-range,omitempty"`
	Channel      *int   `yaml:"channel,omitempty"`
	TxPowerCode  *uint8 `yaml:"tx-power-code,omitempty"`
	RxOnWhenIdle *bool  `yaml:"rx-on-when-idle,omitempty"`
}

// YamlConfigFile is the scenario file format. Layer sections left out keep the defaults they were
// initialized with before unmarshalling.
type YamlConfigFile struct {
	NetworkConfig YamlNetworkConfig `yaml:"network"`
	PhyConfig     phy.Config        `yaml:"phy"`
	CsmaConfig    csmaca.Config     `yaml:"csma"`
	MacConfig     mac.Config        `yaml:"mac"`
	NodesList     []YamlNodeConfig  `yaml:"nodes"`
	TrafficList   []TrafficConfig   `yaml:"traffic,omitempty"`
	Duration      time.Duration     `yaml:"duration,omitempty"`
}

// ParseYamlConfig parses a scenario, using the layer configs of base as defaults.
func ParseYamlConfig(data []byte, base *Config) (*YamlConfigFile, error) {
	cfgFile := &YamlConfigFile{
		PhyConfig:  base.Phy,
		CsmaConfig: base.Csma,
		MacConfig:  base.Mac,
	}
	if err := yaml.Unmarshal(data, cfgFile); err != nil {
		return nil, errors.Wrap(err, "parse scenario")
	}
	if err := cfgFile.PhyConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "scenario phy section")
	}
	if err := cfgFile.CsmaConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "scenario csma section")
	}
	if err := cfgFile.MacConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "scenario mac section")
	}
	for i := range cfgFile.TrafficList {
		if err := cfgFile.TrafficList[i].Validate(); err != nil {
			return nil, errors.Wrapf(err, "scenario traffic entry %d", i)
		}
	}
	return cfgFile, nil
}

// LoadYamlConfigFile reads and parses a scenario file.
func LoadYamlConfigFile(filename string, base *Config) (*YamlConfigFile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "read scenario %s", filename)
	}
	return ParseYamlConfig(data, base)
}

// ApplyTo copies the simulation-wide settings of the scenario into cfg. It is used before the simulation
// is created.
func (cf *YamlConfigFile) ApplyTo(cfg *Config) {
	if cf.NetworkConfig.RadioModel != nil {
		cfg.RadioModel = *cf.NetworkConfig.RadioModel
	}
	if cf.NetworkConfig.Seed != nil {
		cfg.Seed = *cf.NetworkConfig.Seed
	}
	cfg.Phy = cf.PhyConfig
	cfg.Csma = cf.CsmaConfig
	cfg.Mac = cf.MacConfig
}

// SaveYamlConfigFile writes the scenario to filename.
func SaveYamlConfigFile(filename string, cf *YamlConfigFile) error {
	data, err := yaml.Marshal(cf)
	if err != nil {
		return errors.Wrap(err, "marshal scenario")
	}
	if err = os.WriteFile(filename, data, 0644); err != nil {
		return errors.Wrapf(err, "write scenario %s", filename)
	}
	return nil
}
