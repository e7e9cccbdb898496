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

package phy

import (
	"math"

	. "github.com/wpansim/wpansim/types"
)

// ccaMode1ThresholdRatio is the ED threshold for CCA mode 1: 10 dB above the rx sensitivity.
const ccaMode1ThresholdRatio = 10.0

// PlmeCcaRequest starts a clear channel assessment of CcaDurationSymbols. The PHY must be in RX_ON;
// otherwise the current state is confirmed right away.
func (p *Phy) PlmeCcaRequest() {
	if p.trxState != PhyRxOn {
		p.plmeCcaConfirm(p.trxState)
		return
	}
	p.ccaEvent.Cancel()
	p.ccaEvent = p.sched.Schedule(p.phyOption.SymbolsToUs(CcaDurationSymbols), p.EndCca)
}

// EndCca reports the channel as BUSY or IDLE according to the CCA mode.
func (p *Phy) EndCca() {
	p.ccaEvent = nil
	energyAbove := p.RxTotalPowerW()/p.rxSensitivityW >= ccaMode1ThresholdRatio
	carrierSensed := p.rxConcurrentNum > 0

	sensed := PhyIdle
	if p.IsBusy() || carrierSensed {
		sensed = PhyBusy
	} else {
		switch p.pib.CcaMode {
		case 1:
			if energyAbove {
				sensed = PhyBusy
			}
		case 2:
			if carrierSensed {
				sensed = PhyBusy
			}
		case 3:
			if energyAbove && carrierSensed {
				sensed = PhyBusy
			}
		}
	}
	p.log.Tracef("CCA mode %d: %v", p.pib.CcaMode, sensed)
	p.plmeCcaConfirm(sensed)
}

// PlmeEdRequest starts an energy detection of CcaDurationSymbols. The PHY must be in RX_ON; otherwise
// the current state is confirmed right away with energy level 0.
func (p *Phy) PlmeEdRequest() {
	if p.trxState != PhyRxOn {
		p.plmeEdConfirm(p.trxState, 0)
		return
	}
	p.edEvent.Cancel()
	p.edPeakW = p.RxTotalPowerW()
	p.edEvent = p.sched.Schedule(p.phyOption.SymbolsToUs(CcaDurationSymbols), p.EndEd)
}

// EndEd reports the peak energy seen during the measurement.
func (p *Phy) EndEd() {
	p.edEvent = nil
	p.plmeEdConfirm(PhySuccess, energyLevel(p.edPeakW, p.rxSensitivityW))
}

// energyLevel maps the received power onto the 0-255 ED scale: 0 up to 10 dB above sensitivity,
// 255 from 40 dB above, linear in dB in between.
func energyLevel(powerW float64, sensitivityW float64) uint8 {
	if powerW <= 0 {
		return 0
	}
	ratioDb := 10.0 * math.Log10(powerW/sensitivityW)
	if ratioDb <= 10.0 {
		return 0
	} else if ratioDb >= 40.0 {
		return 255
	}
	return uint8((ratioDb/10.0 - 1.0) * (255.0 / 3.0))
}

func (p *Phy) updateEdPeak() {
	if p.edEvent.IsRunning() {
		if total := p.RxTotalPowerW(); total > p.edPeakW {
			p.edPeakW = total
		}
	}
}

// abortChannelSensing ends a running CCA or ED when the transceiver leaves RX_ON on request. The
// requester gets the new state as result.
func (p *Phy) abortChannelSensing() {
	if p.ccaEvent.IsRunning() {
		p.ccaEvent.Cancel()
		p.ccaEvent = nil
		p.plmeCcaConfirm(p.trxState)
	}
	if p.edEvent.IsRunning() {
		p.edEvent.Cancel()
		p.edEvent = nil
		p.plmeEdConfirm(p.trxState, 0)
	}
}
