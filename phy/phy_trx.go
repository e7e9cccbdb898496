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
	. "github.com/wpansim/wpansim/types"
)

// PlmeSetTRXStateRequest requests a transceiver state change. Only RX_ON, TX_ON, TRX_OFF and
// FORCE_TRX_OFF may be requested. The result is reported through the set-TRX-state confirm callback,
// either right away or once an ongoing operation or the turnaround time completes.
func (p *Phy) PlmeSetTRXStateRequest(state PhyEnumValue) {
	if state != PhyRxOn && state != PhyTrxOff && state != PhyForceTrxOff && state != PhyTxOn {
		p.log.Panicf("PlmeSetTRXStateRequest: invalid state %v", state)
	}
	p.log.Tracef("set trx state %v -> %v", p.trxState, state)

	// a new request always overrides earlier ones
	p.trxStatePending = PhyIdle
	p.setTrxStateEvent.Cancel()
	p.setTrxStateEvent = nil

	if state == p.trxState {
		p.plmeSetTrxStateConfirm(state)
		return
	}

	if p.trxState == PhyBusyTx && (state == PhyRxOn || state == PhyTrxOff || state == PhyTxOn) {
		p.log.Debugf("busy transmitting, %v pending", state)
		p.trxStatePending = state
		return
	}

	if state == PhyTrxOff && p.trxState == PhyBusyRx && p.currentRx.isActive() && !p.currentRx.Corrupted {
		p.log.Debugf("busy receiving, %v pending", state)
		p.trxStatePending = state
		return
	}

	switch state {
	case PhyTxOn:
		prior := p.trxState
		p.changeTrxState(PhyTxOn)
		p.abortChannelSensing()
		if prior == PhyBusyRx || prior == PhyRxOn {
			if p.currentRx.isActive() {
				p.log.Debugf("TX_ON terminates reception")
				p.currentRx.Corrupted = true
			}
			p.trxStatePending = PhyTxOn
			p.setTrxStateEvent = p.sched.Schedule(p.turnaroundTimeUs(), p.EndSetTRXState)
			return
		}
		p.plmeSetTrxStateConfirm(PhySuccess)

	case PhyForceTrxOff:
		if p.trxState != PhyTrxOff {
			if p.currentRx.isActive() {
				p.currentRx.Corrupted = true
			}
			if p.trxState == PhyBusyTx {
				p.log.Debugf("FORCE_TRX_OFF terminates transmission")
				p.currentTx.Corrupted = true
			}
			p.changeTrxState(PhyTrxOff)
			p.abortChannelSensing()
		}
		p.plmeSetTrxStateConfirm(PhySuccess)

	case PhyRxOn:
		switch p.trxState {
		case PhyTxOn, PhyTrxOff:
			p.trxStatePending = PhyRxOn
			p.setTrxStateEvent = p.sched.Schedule(p.turnaroundTimeUs(), p.EndSetTRXState)
		case PhyBusyRx:
			// receiving is a substate of RX_ON
			p.plmeSetTrxStateConfirm(PhyRxOn)
		default:
			p.log.Panicf("PlmeSetTRXStateRequest: %v -> %v not handled", p.trxState, state)
		}

	case PhyTrxOff:
		if p.trxState != PhyRxOn && p.trxState != PhyTxOn && p.trxState != PhyBusyRx {
			p.log.Panicf("PlmeSetTRXStateRequest: %v -> %v not handled", p.trxState, state)
		}
		if p.currentRx.isActive() {
			p.currentRx.Corrupted = true
		}
		p.changeTrxState(PhyTrxOff)
		p.abortChannelSensing()
		p.plmeSetTrxStateConfirm(PhySuccess)
	}
}

// EndSetTRXState commits the pending state after the turnaround time.
func (p *Phy) EndSetTRXState() {
	p.setTrxStateEvent = nil
	if p.trxStatePending != PhyRxOn && p.trxStatePending != PhyTxOn {
		p.log.Panicf("EndSetTRXState: invalid pending state %v", p.trxStatePending)
	}

	// A transmission started during the turnaround; EndTx applies the pending state.
	if p.trxState == PhyBusyTx {
		return
	}

	pending := p.trxStatePending
	p.trxStatePending = PhyIdle
	if pending != p.trxState {
		p.changeTrxState(pending)
	}
	p.plmeSetTrxStateConfirm(PhySuccess)
}

// resolvePendingState ends a transmission or reception: a pending state is applied and confirmed,
// otherwise the transceiver returns to RX_ON.
func (p *Phy) resolvePendingState() {
	if p.trxStatePending != PhyIdle {
		pending := p.trxStatePending
		p.trxStatePending = PhyIdle
		p.log.Tracef("apply pending state %v", pending)
		p.changeTrxState(pending)
		p.plmeSetTrxStateConfirm(PhySuccess)
	} else {
		p.changeTrxState(PhyRxOn)
	}
}
