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
	. "github.com/wpansim/wpansim/types"
)

// RadioState groups the PHY transceiver states by power draw.
type RadioState uint8

const (
	RadioOff RadioState = iota // TRX_OFF
	RadioIdle                  // TX_ON, turned around but not transmitting
	RadioListen                // RX_ON, listening or sensing the channel
	RadioTx                    // BUSY_TX
	RadioRx                    // BUSY_RX
	numRadioStates
)

func (s RadioState) String() string {
	switch s {
	case RadioOff:
		return "off"
	case RadioIdle:
		return "idle"
	case RadioListen:
		return "listen"
	case RadioTx:
		return "tx"
	case RadioRx:
		return "rx"
	default:
		return "invalid"
	}
}

// RadioStateOf maps a PHY transceiver state onto its power state.
func RadioStateOf(state PhyEnumValue) RadioState {
	switch state {
	case PhyRxOn:
		return RadioListen
	case PhyTxOn:
		return RadioIdle
	case PhyBusyTx:
		return RadioTx
	case PhyBusyRx:
		return RadioRx
	default:
		return RadioOff
	}
}

/*
 * Default consumption values by state of STM32WB55rg at 3.3V.
 * Consumption in kilowatts, time in microseconds, resulting energy in mJ.
 */
const (
	RadioOffConsumption    float64 = 0.00000011 //kilowatts, to be confirmed
	RadioIdleConsumption   float64 = 0.00001485 //kilowatts @ i = 4.5 mA
	RadioListenConsumption float64 = 0.00001485 //kilowatts @ i = 4.5 mA
	RadioTxConsumption     float64 = 0.00001716 //kilowatts @ i = 5.2 mA
	RadioRxConsumption     float64 = 0.00001485 //kilowatts @ i = 4.5 mA
)

// Consumption holds the power draw per radio state, in kilowatts.
type Consumption [numRadioStates]float64

func DefaultConsumption() Consumption {
	return Consumption{
		RadioOff:    RadioOffConsumption,
		RadioIdle:   RadioIdleConsumption,
		RadioListen: RadioListenConsumption,
		RadioTx:     RadioTxConsumption,
		RadioRx:     RadioRxConsumption,
	}
}

const (
	ComputePeriod uint64 = 30000000 // in microseconds
)

// NetworkConsumption is the mean energy per node spent in each radio state up to Timestamp, in mJ.
type NetworkConsumption struct {
	Timestamp uint64
	Energy    [numRadioStates]float64
}

// NodeEnergyReport is the energy one node spent in each radio state, in mJ.
type NodeEnergyReport struct {
	NodeId NodeId  `json:"node"`
	Off    float64 `json:"off"`
	Idle   float64 `json:"idle"`
	Listen float64 `json:"listen"`
	Tx     float64 `json:"tx"`
	Rx     float64 `json:"rx"`
}

// Total returns the energy over all states, in mJ.
func (r *NodeEnergyReport) Total() float64 {
	return r.Off + r.Idle + r.Listen + r.Tx + r.Rx
}
