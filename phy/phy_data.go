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
	"github.com/wpansim/wpansim/event"
	"github.com/wpansim/wpansim/logger"
	. "github.com/wpansim/wpansim/types"
)

// interferer is a signal on the air that the PHY is not locked on to.
type interferer struct {
	powerW     float64
	detectable bool
	end        *event.Handle
}

// PdDataRequest requests transmission of a PSDU of psduLength octets. The outcome is reported
// through the data confirm callback.
func (p *Phy) PdDataRequest(psduLength int, pkt *Packet) {
	if psduLength > MaxPhyPacketSize {
		p.log.Debugf("PdDataRequest: PSDU too long (%d octets)", psduLength)
		p.pdDataConfirm(PhyUnspecified)
		p.emitPacket(TraceTxDrop, pkt, 0)
		return
	}

	switch p.trxState {
	case PhyTxOn:
		logger.AssertTrue(pkt != nil && pkt.Size() == psduLength, "PSDU length mismatch")
		txTime := p.phyOption.TxTimeUs(psduLength)
		params := &SignalParams{
			SrcId:    p.id,
			Channel:  p.pib.CurrentChannel,
			Duration: txTime,
			PowerW:   DbmToWatt(p.txPowerDbm),
			Packet:   pkt,
		}
		p.currentTx = InFlightPacket{Packet: pkt}
		if p.channel != nil {
			p.channel.StartTx(params)
		}
		p.txEvent = p.sched.Schedule(txTime, p.EndTx)
		p.changeTrxState(PhyBusyTx)
		p.emitPacket(TraceTxBegin, pkt, 0)
	case PhyRxOn, PhyTrxOff, PhyBusyTx:
		p.log.Debugf("PdDataRequest: radio not ready (%v)", p.trxState)
		p.pdDataConfirm(p.trxState)
		p.emitPacket(TraceTxDrop, pkt, 0)
	default:
		p.log.Panicf("PdDataRequest in unexpected state %v", p.trxState)
	}
}

// EndTx completes the transmission started by PdDataRequest.
func (p *Phy) EndTx() {
	p.txEvent = nil
	if p.trxState != PhyBusyTx && p.trxState != PhyTrxOff {
		p.log.Panicf("EndTx in unexpected state %v", p.trxState)
	}

	pkt := p.currentTx.Packet
	corrupted := p.currentTx.Corrupted
	p.currentTx.clear()

	if !corrupted {
		p.emitPacket(TraceTxEnd, pkt, 0)
		p.pdDataConfirm(PhySuccess)
	} else {
		logger.AssertTrue(p.trxState == PhyTrxOff)
		p.log.Debugf("transmission aborted")
		p.emitPacket(TraceTxDrop, pkt, 0)
		p.pdDataConfirm(p.trxState)
	}

	// After a forced TRX_OFF the transceiver stays off.
	if p.trxState == PhyBusyTx {
		p.resolvePendingState()
	}
}

// StartRx is called by the channel when a signal starts arriving. The PHY locks on to it when it is
// listening (RX_ON), the signal is on its channel, carries a packet and is at or above the rx
// sensitivity. Any other in-band signal is interference for its duration. A reception aborted by a
// state change or retune stays in flight until its EndRx; signals arriving before that are
// interference too.
func (p *Phy) StartRx(params *SignalParams) {
	if params.Channel != p.pib.CurrentChannel {
		return
	}

	if p.trxState == PhyRxOn && !p.currentRx.isActive() && params.Packet != nil &&
		params.PowerW >= p.rxSensitivityW {
		p.changeTrxState(PhyBusyRx)
		p.currentRx = InFlightPacket{Packet: params.Packet}
		p.rxSignalW = params.PowerW
		p.rxPeakInterferenceW = p.interferenceW
		p.rxEvent = p.sched.Schedule(params.Duration, p.EndRx)
		p.emitPacket(TraceRxBegin, params.Packet, 0)
		p.updateEdPeak()
		p.log.Tracef("rx start from %d, %.1f dBm", params.SrcId, WattToDbm(params.PowerW))
		return
	}

	p.addInterferer(params)
}

// EndRx completes the reception started by StartRx.
func (p *Phy) EndRx() {
	p.rxEvent = nil
	logger.AssertTrue(p.currentRx.isActive(), "EndRx without a reception")
	pkt := p.currentRx.Packet
	corrupted := p.currentRx.Corrupted
	signalW := p.rxSignalW
	interferenceW := p.rxPeakInterferenceW

	p.currentRx.clear()
	p.rxSignalW = 0
	p.rxPeakInterferenceW = 0

	if corrupted {
		p.emitPacket(TraceRxDrop, pkt, 0)
	} else if p.errorModel != nil {
		sinr := signalW / (p.noiseW + interferenceW)
		per := 1.0 - p.errorModel.ChunkSuccessRate(sinr, pkt.Size()*8)
		if p.rand.Float64() > per {
			p.emitPacket(TraceRxEnd, pkt, sinr)
			p.pdDataIndication(pkt.Size(), pkt, sinr)
		} else {
			p.log.Debugf("rx error, sinr=%.1f dB per=%.3f", RatioToDb(sinr), per)
			p.emitPacket(TraceRxEnd, pkt, sinr)
			p.emitPacket(TraceRxDrop, pkt, sinr)
		}
	} else {
		p.log.Warnf("no error model set, assuming error-free reception")
		p.emitPacket(TraceRxEnd, pkt, 0)
		p.pdDataIndication(pkt.Size(), pkt, 0)
	}

	// A state request issued during the reception already moved the transceiver on.
	if p.trxState == PhyBusyRx {
		p.resolvePendingState()
	}
}

func (p *Phy) addInterferer(params *SignalParams) {
	it := &interferer{
		powerW:     params.PowerW,
		detectable: params.Packet != nil && params.PowerW >= p.rxSensitivityW,
	}
	p.interferers[it] = struct{}{}
	p.interferenceW += it.powerW
	if it.detectable {
		p.rxConcurrentNum++
	}
	if p.currentRx.isActive() && p.interferenceW > p.rxPeakInterferenceW {
		p.rxPeakInterferenceW = p.interferenceW
	}
	p.updateEdPeak()
	it.end = p.sched.Schedule(params.Duration, func() {
		p.removeInterferer(it)
	})
}

func (p *Phy) removeInterferer(it *interferer) {
	if _, ok := p.interferers[it]; !ok {
		return
	}
	delete(p.interferers, it)
	if it.detectable {
		p.rxConcurrentNum--
	}
	if len(p.interferers) == 0 {
		p.interferenceW = 0
	} else {
		p.interferenceW -= it.powerW
	}
}

func (p *Phy) clearInterferers() {
	for it := range p.interferers {
		it.end.Cancel()
	}
	p.interferers = map[*interferer]struct{}{}
	p.interferenceW = 0
	p.rxConcurrentNum = 0
}
