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

package radiomodel

import (
	"math"
	"strings"

	"github.com/pkg/errors"

	. "github.com/wpansim/wpansim/types"
)

// default radio parameters
const (
	defaultMeterPerUnit       float64 = 0.10 // Default distance equivalent in meters of one grid distance unit.
	defaultPropagationDelayUs uint64  = 1
	defaultRxPowerMinDbm      DbValue = -120.0
)

// Names of the path loss models.
const (
	ModelItu     = "itu"
	Model3gpp    = "3gpp"
	ModelOutdoor = "outdoor"
)

// ChannelParams stores the parameters of the channel model.
type ChannelParams struct {
	Name                string  // name of the path loss model
	MeterPerUnit        float64 // the distance in meters, equivalent to a single distance unit
	IsDiscLimit         bool    // If true, a signal does not reach beyond the radio range of its transmitter
	PropagationDelayUs  uint64  // delay between tx start and rx start, in us
	RxPowerMinDbm       DbValue // signals received below this power are not delivered at all
	ExponentDb          DbValue // the exponent (dB) in the regular/LOS model
	FixedLossDb         DbValue // the fixed loss (dB) term in the regular/LOS model
	NlosExponentDb      DbValue // the exponent (dB) in the NLOS model
	NlosFixedLossDb     DbValue // the fixed loss (dB) term in the NLOS model
	ShadowFadingSigmaDb DbValue // sigma (stddev) parameter for Shadow Fading (SF), in dB
	NoiseFigureDb       DbValue // receiver noise figure added to the thermal noise density
}

// NewChannelParams returns the default parameters of the named path loss model.
func NewChannelParams(model string) (*ChannelParams, error) {
	params := &ChannelParams{
		Name:                strings.ToLower(model),
		MeterPerUnit:        defaultMeterPerUnit,
		PropagationDelayUs:  defaultPropagationDelayUs,
		RxPowerMinDbm:       defaultRxPowerMinDbm,
		ExponentDb:          UndefinedDbValue,
		FixedLossDb:         UndefinedDbValue,
		NlosExponentDb:      UndefinedDbValue,
		NlosFixedLossDb:     UndefinedDbValue,
		ShadowFadingSigmaDb: 0.0,
		NoiseFigureDb:       0.0,
	}
	switch params.Name {
	case ModelItu, "":
		params.Name = ModelItu
		setIndoorModelParamsItu(params)
	case Model3gpp:
		setIndoorModelParams3gpp(params)
	case ModelOutdoor:
		setOutdoorModelParams(params)
	default:
		return nil, errors.Errorf("unknown path loss model: %s", model)
	}
	return params, nil
}

// ITU-T model
func setIndoorModelParamsItu(params *ChannelParams) {
	params.ExponentDb = 30.0
	params.FixedLossDb = paround(20.0*math.Log10(2400) - 28.0)
}

// see 3GPP TR 38.901 V17.0.0, Table 7.4.1-1: Pathloss models.
func setIndoorModelParams3gpp(params *ChannelParams) {
	params.ExponentDb = 17.3
	params.FixedLossDb = paround(32.4 + 20*math.Log10(2.4))
	params.NlosExponentDb = 38.3
	params.NlosFixedLossDb = paround(17.3 + 24.9*math.Log10(2.4))
	params.ShadowFadingSigmaDb = 8.03
}

// experimental outdoor model with LoS
func setOutdoorModelParams(params *ChannelParams) {
	params.MeterPerUnit = 0.5
	params.ExponentDb = 17.3
	params.FixedLossDb = paround(32.4 + 20*math.Log10(2.4))
	params.ShadowFadingSigmaDb = 3.0
}
