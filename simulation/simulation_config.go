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
	"math"

	"github.com/pkg/errors"

	"github.com/wpansim/wpansim/csmaca"
	"github.com/wpansim/wpansim/logger"
	"github.com/wpansim/wpansim/mac"
	"github.com/wpansim/wpansim/pcap"
	"github.com/wpansim/wpansim/phy"
	"github.com/wpansim/wpansim/radiomodel"
)

const (
	DefaultSpeed      = 1.0
	MaxSimulateSpeed  = 1000000
	DefaultOutputDir  = "current"
	defaultRadioRange = 220
)

type Config struct {
	Id           int
	Speed        float64
	OutputDir    string
	LogLevel     logger.Level
	RadioModel   string
	Seed         int64
	ErrorModel   bool
	PcapType     pcap.FrameType
	EnergyStats  bool
	AutoStartKpi bool
	StatsLog     bool

	Phy  phy.Config
	Csma csmaca.Config
	Mac  mac.Config
}

func DefaultConfig() *Config {
	return &Config{
		Id:           0,
		Speed:        DefaultSpeed,
		OutputDir:    DefaultOutputDir,
		LogLevel:     logger.DefaultLevel,
		RadioModel:   radiomodel.ModelItu,
		ErrorModel:   true,
		PcapType:     pcap.FrameTypeWpan,
		EnergyStats:  true,
		AutoStartKpi: true,
		StatsLog:     true,
		Phy:          *phy.DefaultConfig(),
		Csma:         *csmaca.DefaultConfig(),
		Mac:          *mac.DefaultConfig(),
	}
}

// Validate checks the simulation config including the default layer configs of new nodes.
func (cfg *Config) Validate() error {
	if cfg.Speed <= 0 || math.IsNaN(cfg.Speed) {
		return errors.Errorf("invalid speed %v", cfg.Speed)
	}
	if len(cfg.OutputDir) == 0 {
		return errors.Errorf("output directory not set")
	}
	if cfg.PcapType == pcap.FrameTypeUnknown {
		return errors.Errorf("invalid pcap frame type")
	}
	if _, err := radiomodel.NewChannelParams(cfg.RadioModel); err != nil {
		return err
	}
	if err := cfg.Phy.Validate(); err != nil {
		return errors.Wrap(err, "phy")
	}
	if err := cfg.Csma.Validate(); err != nil {
		return errors.Wrap(err, "csma")
	}
	if err := cfg.Mac.Validate(); err != nil {
		return errors.Wrap(err, "mac")
	}
	return nil
}

func (cfg *Config) IsMaxSpeed() bool {
	return cfg.Speed >= MaxSimulateSpeed
}
