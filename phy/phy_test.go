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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wpansim/wpansim/event"
	. "github.com/wpansim/wpansim/types"
)

type edResult struct {
	status PhyEnumValue
	level  uint8
}

type phyRecorder struct {
	dataConfirms []PhyEnumValue
	trxConfirms  []PhyEnumValue
	ccaConfirms  []PhyEnumValue
	edConfirms   []edResult
	setConfirms  []PhyEnumValue
	getStatus    []PhyEnumValue
	getPib       []PibAttributes
	indications  []*Packet
	sinrs        []float64
	traces       []TraceEvent
}

func (r *phyRecorder) tracesOfType(tt TraceType) []TraceEvent {
	var res []TraceEvent
	for _, evt := range r.traces {
		if evt.Type == tt {
			res = append(res, evt)
		}
	}
	return res
}

type fakeChannel struct {
	sent []*SignalParams
}

func (fc *fakeChannel) StartTx(params *SignalParams) {
	fc.sent = append(fc.sent, params)
}

type fixedErrorModel float64

func (f fixedErrorModel) ChunkSuccessRate(sinr float64, nbits int) float64 {
	return float64(f)
}

func newTestPhy() (*Phy, *event.Queue, *phyRecorder, *fakeChannel) {
	eq := event.NewQueue()
	p := New(1, eq, DefaultConfig())
	rec := &phyRecorder{}
	ch := &fakeChannel{}
	p.SetChannel(ch)
	p.SetPdDataConfirmCallback(func(status PhyEnumValue) {
		rec.dataConfirms = append(rec.dataConfirms, status)
	})
	p.SetPdDataIndicationCallback(func(psduLength int, pkt *Packet, sinr float64) {
		rec.indications = append(rec.indications, pkt)
		rec.sinrs = append(rec.sinrs, sinr)
	})
	p.SetPlmeSetTrxStateConfirmCallback(func(status PhyEnumValue) {
		rec.trxConfirms = append(rec.trxConfirms, status)
	})
	p.SetPlmeCcaConfirmCallback(func(status PhyEnumValue) {
		rec.ccaConfirms = append(rec.ccaConfirms, status)
	})
	p.SetPlmeEdConfirmCallback(func(status PhyEnumValue, level uint8) {
		rec.edConfirms = append(rec.edConfirms, edResult{status, level})
	})
	p.SetPlmeSetAttributeConfirmCallback(func(status PhyEnumValue, id PibAttributeId) {
		rec.setConfirms = append(rec.setConfirms, status)
	})
	p.SetPlmeGetAttributeConfirmCallback(func(status PhyEnumValue, id PibAttributeId, attrs *PibAttributes) {
		rec.getStatus = append(rec.getStatus, status)
		rec.getPib = append(rec.getPib, *attrs)
	})
	p.AddTracer(TracerFunc(func(evt *TraceEvent) {
		rec.traces = append(rec.traces, *evt)
	}))
	return p, eq, rec, ch
}

func packetSignal(powerDbm DbValue, duration uint64, size int) *SignalParams {
	return &SignalParams{
		SrcId:    2,
		Channel:  DefaultChannel,
		Duration: duration,
		PowerW:   DbmToWatt(powerDbm),
		Packet:   NewPacket(make([]byte, size)),
	}
}

func energySignal(powerDbm DbValue, duration uint64) *SignalParams {
	return &SignalParams{
		SrcId:    3,
		Channel:  DefaultChannel,
		Duration: duration,
		PowerW:   DbmToWatt(powerDbm),
	}
}

// toTxOn brings a PHY in RX_ON to TX_ON, including the turnaround.
func toTxOn(p *Phy, eq *event.Queue) {
	p.PlmeSetTRXStateRequest(PhyTxOn)
	eq.RunUntil(eq.Now() + p.turnaroundTimeUs())
}

func TestNew(t *testing.T) {
	p, _, _, _ := newTestPhy()
	assert.Equal(t, PhyRxOn, p.State())
	assert.Equal(t, PhyIdle, p.PendingState())
	assert.Equal(t, Phy2400MhzOqpsk, p.PhyOption())
	assert.Equal(t, 62500.0, p.SymbolRate())
	assert.Equal(t, 250000.0, p.BitRate())
	assert.Equal(t, DbValue(0), p.TxPowerDbm())
	assert.InDelta(t, 3.1623e-12, p.RxSensitivityW(), 1e-15)
	assert.Equal(t, uint64(192), p.turnaroundTimeUs())

	pib := p.Pib()
	assert.Equal(t, DefaultChannel, pib.CurrentChannel)
	assert.Equal(t, uint8(1), pib.CcaMode)
	assert.Equal(t, DefaultChannelsSupported, pib.ChannelsSupported[0])
	assert.Equal(t, DefaultChannelsSupported, pib.ChannelsSupported[31])
	assert.Equal(t, uint32(10), pib.ShrDuration)
	assert.Equal(t, 2.0, pib.SymbolsPerOctet)
	assert.Equal(t, uint32(266), pib.MaxFrameDuration)
}

func TestPhy_PdDataRequestTooLong(t *testing.T) {
	setups := map[string]func(p *Phy, eq *event.Queue){
		"RX_ON":   func(p *Phy, eq *event.Queue) {},
		"TRX_OFF": func(p *Phy, eq *event.Queue) { p.PlmeSetTRXStateRequest(PhyForceTrxOff) },
		"TX_ON":   toTxOn,
		"BUSY_RX": func(p *Phy, eq *event.Queue) { p.StartRx(packetSignal(-60, 1000, 20)) },
		"BUSY_TX": func(p *Phy, eq *event.Queue) {
			toTxOn(p, eq)
			p.PdDataRequest(20, NewPacket(make([]byte, 20)))
		},
	}
	for name, setup := range setups {
		p, eq, rec, _ := newTestPhy()
		setup(p, eq)
		stateBefore := p.State()
		numDrops := len(rec.tracesOfType(TraceTxDrop))
		numConfirms := len(rec.dataConfirms)

		p.PdDataRequest(128, NewPacket(make([]byte, 128)))

		assert.Equal(t, numConfirms+1, len(rec.dataConfirms), name)
		assert.Equal(t, PhyUnspecified, rec.dataConfirms[len(rec.dataConfirms)-1], name)
		assert.Equal(t, numDrops+1, len(rec.tracesOfType(TraceTxDrop)), name)
		assert.Equal(t, stateBefore, p.State(), name)
	}
}

func TestPhy_Transmit(t *testing.T) {
	p, eq, rec, ch := newTestPhy()
	toTxOn(p, eq)
	assert.Equal(t, []PhyEnumValue{PhySuccess}, rec.trxConfirms)
	assert.Equal(t, PhyTxOn, p.State())

	start := eq.Now()
	pkt := NewPacket(make([]byte, 20))
	p.PdDataRequest(20, pkt)
	assert.Equal(t, PhyBusyTx, p.State())
	assert.Equal(t, 1, len(ch.sent))
	assert.Equal(t, uint64(192+640), ch.sent[0].Duration)
	assert.Equal(t, pkt, ch.sent[0].Packet)
	assert.InDelta(t, 0.001, ch.sent[0].PowerW, 1e-12)
	assert.Equal(t, 1, len(rec.tracesOfType(TraceTxBegin)))

	eq.RunUntil(start + 831)
	assert.Equal(t, 0, len(rec.dataConfirms))
	eq.RunUntil(start + 832)
	assert.Equal(t, []PhyEnumValue{PhySuccess}, rec.dataConfirms)
	txEnd := rec.tracesOfType(TraceTxEnd)
	assert.Equal(t, 1, len(txEnd))
	assert.Equal(t, pkt, txEnd[0].Packet)
	assert.Equal(t, start+832, txEnd[0].Timestamp)
	assert.Equal(t, PhyRxOn, p.State())
}

func TestPhy_PdDataRequestNotReady(t *testing.T) {
	p, _, rec, ch := newTestPhy()
	p.PdDataRequest(10, NewPacket(make([]byte, 10)))
	assert.Equal(t, []PhyEnumValue{PhyRxOn}, rec.dataConfirms)
	assert.Equal(t, 1, len(rec.tracesOfType(TraceTxDrop)))
	assert.Equal(t, 0, len(ch.sent))
	assert.Equal(t, PhyRxOn, p.State())
}

func TestPhy_SetTrxStateIdempotent(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	numTraces := len(rec.traces)
	p.PlmeSetTRXStateRequest(PhyRxOn)
	assert.Equal(t, []PhyEnumValue{PhyRxOn}, rec.trxConfirms)
	assert.Equal(t, numTraces, len(rec.traces))
	assert.Equal(t, 0, eq.Len())

	p.PlmeSetTRXStateRequest(PhyForceTrxOff)
	numTraces = len(rec.traces)
	p.PlmeSetTRXStateRequest(PhyTrxOff)
	assert.Equal(t, PhyTrxOff, rec.trxConfirms[len(rec.trxConfirms)-1])
	assert.Equal(t, numTraces, len(rec.traces))
}

func TestPhy_ForceTrxOffFromAnyState(t *testing.T) {
	setups := map[string]func(p *Phy, eq *event.Queue){
		"RX_ON":      func(p *Phy, eq *event.Queue) {},
		"TRX_OFF":    func(p *Phy, eq *event.Queue) { p.PlmeSetTRXStateRequest(PhyTrxOff) },
		"TX_ON":      toTxOn,
		"turnaround": func(p *Phy, eq *event.Queue) { p.PlmeSetTRXStateRequest(PhyTxOn) },
		"BUSY_RX":    func(p *Phy, eq *event.Queue) { p.StartRx(packetSignal(-60, 1000, 20)) },
		"BUSY_TX": func(p *Phy, eq *event.Queue) {
			toTxOn(p, eq)
			p.PdDataRequest(20, NewPacket(make([]byte, 20)))
		},
		"pending": func(p *Phy, eq *event.Queue) {
			toTxOn(p, eq)
			p.PdDataRequest(20, NewPacket(make([]byte, 20)))
			p.PlmeSetTRXStateRequest(PhyRxOn)
		},
	}
	for name, setup := range setups {
		p, eq, rec, _ := newTestPhy()
		setup(p, eq)
		numConfirms := len(rec.trxConfirms)
		now := eq.Now()

		p.PlmeSetTRXStateRequest(PhyForceTrxOff)
		assert.Equal(t, numConfirms+1, len(rec.trxConfirms), name)
		assert.Equal(t, PhySuccess, rec.trxConfirms[len(rec.trxConfirms)-1], name)
		assert.Equal(t, now, eq.Now(), name)
		assert.Equal(t, PhyTrxOff, p.State(), name)
		assert.Equal(t, PhyIdle, p.PendingState(), name)

		// stays off after any outstanding operation ends
		eq.RunUntil(now + 10000)
		assert.Equal(t, PhyTrxOff, p.State(), name)
		assert.Equal(t, numConfirms+1, len(rec.trxConfirms), name)
		assert.Equal(t, 0, len(rec.indications), name)
	}
}

func TestPhy_ForceTrxOffAbortsTransmission(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	toTxOn(p, eq)
	p.PdDataRequest(20, NewPacket(make([]byte, 20)))
	p.PlmeSetTRXStateRequest(PhyForceTrxOff)
	eq.RunUntil(eq.Now() + 1000)

	assert.Equal(t, []PhyEnumValue{PhyTrxOff}, rec.dataConfirms)
	assert.Equal(t, 1, len(rec.tracesOfType(TraceTxDrop)))
	assert.Equal(t, 0, len(rec.tracesOfType(TraceTxEnd)))
}

func TestPhy_TxOnWhileBusyRx(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	p.StartRx(packetSignal(-60, 1000, 20))
	assert.Equal(t, PhyBusyRx, p.State())
	assert.Equal(t, 1, len(rec.tracesOfType(TraceRxBegin)))

	p.PlmeSetTRXStateRequest(PhyTxOn)
	assert.Equal(t, PhyTxOn, p.State())
	assert.Equal(t, 0, len(rec.trxConfirms))

	eq.RunUntil(191)
	assert.Equal(t, 0, len(rec.trxConfirms))
	eq.RunUntil(192)
	assert.Equal(t, []PhyEnumValue{PhySuccess}, rec.trxConfirms)

	eq.RunUntil(1000)
	assert.Equal(t, 1, len(rec.tracesOfType(TraceRxDrop)))
	assert.Equal(t, 0, len(rec.tracesOfType(TraceRxEnd)))
	assert.Equal(t, 0, len(rec.indications))
	assert.Equal(t, PhyTxOn, p.State())
}

func TestPhy_RxOnDeferredDuringBusyTx(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	toTxOn(p, eq)
	p.PdDataRequest(20, NewPacket(make([]byte, 20)))
	p.PlmeSetTRXStateRequest(PhyTrxOff)
	assert.Equal(t, PhyTrxOff, p.PendingState())
	p.PlmeSetTRXStateRequest(PhyRxOn)
	assert.Equal(t, PhyRxOn, p.PendingState())
	assert.Equal(t, 1, len(rec.trxConfirms))

	eq.RunUntil(eq.Now() + 1000)
	assert.Equal(t, []PhyEnumValue{PhySuccess}, rec.dataConfirms)
	assert.Equal(t, []PhyEnumValue{PhySuccess, PhySuccess}, rec.trxConfirms)
	assert.Equal(t, PhyRxOn, p.State())
	assert.Equal(t, PhyIdle, p.PendingState())
}

func TestPhy_TrxOffDeferredDuringBusyRx(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	p.StartRx(packetSignal(-60, 1000, 20))
	p.PlmeSetTRXStateRequest(PhyTrxOff)
	assert.Equal(t, PhyBusyRx, p.State())
	assert.Equal(t, PhyTrxOff, p.PendingState())

	eq.RunUntil(1000)
	assert.Equal(t, 1, len(rec.indications))
	assert.Equal(t, []PhyEnumValue{PhySuccess}, rec.trxConfirms)
	assert.Equal(t, PhyTrxOff, p.State())
}

func TestPhy_RxOnAfterTurnaround(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	toTxOn(p, eq)
	p.PlmeSetTRXStateRequest(PhyRxOn)
	assert.Equal(t, PhyTxOn, p.State())
	assert.Equal(t, PhyRxOn, p.PendingState())
	eq.RunUntil(eq.Now() + 192)
	assert.Equal(t, PhyRxOn, p.State())
	assert.Equal(t, []PhyEnumValue{PhySuccess, PhySuccess}, rec.trxConfirms)

	p.PlmeSetTRXStateRequest(PhyTrxOff)
	assert.Equal(t, PhyTrxOff, p.State())
	p.PlmeSetTRXStateRequest(PhyRxOn)
	assert.Equal(t, PhyTrxOff, p.State())
	eq.RunUntil(eq.Now() + 192)
	assert.Equal(t, PhyRxOn, p.State())
}

func TestPhy_NewRequestCancelsTurnaround(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	p.PlmeSetTRXStateRequest(PhyTxOn)
	p.PlmeSetTRXStateRequest(PhyTxOn)
	assert.Equal(t, []PhyEnumValue{PhyTxOn}, rec.trxConfirms)
	eq.RunUntil(1000)
	assert.Equal(t, []PhyEnumValue{PhyTxOn}, rec.trxConfirms)
	assert.Equal(t, PhyIdle, p.PendingState())
}

func TestPhy_InvalidTrxStateRequestPanics(t *testing.T) {
	p, _, _, _ := newTestPhy()
	assert.Panics(t, func() { p.PlmeSetTRXStateRequest(PhyBusyRx) })
	assert.Panics(t, func() { p.PlmeSetTRXStateRequest(PhySuccess) })
}

func TestPhy_Receive(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	sig := packetSignal(-60, 800, 20)
	p.StartRx(sig)
	eq.RunUntil(800)
	assert.Equal(t, []*Packet{sig.Packet}, rec.indications)
	assert.Equal(t, 1, len(rec.tracesOfType(TraceRxEnd)))
	assert.Equal(t, PhyRxOn, p.State())
	assert.Equal(t, 0.0, p.RxTotalPowerW())
}

func TestPhy_ReceiveBelowSensitivity(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	p.StartRx(packetSignal(-90, 800, 20))
	assert.Equal(t, PhyRxOn, p.State())
	assert.Equal(t, 0, p.ConcurrentRxCount())
	assert.InDelta(t, DbmToWatt(-90), p.RxTotalPowerW(), 1e-18)
	eq.RunUntil(800)
	assert.Equal(t, 0, len(rec.indications))
	assert.Equal(t, 0.0, p.RxTotalPowerW())
}

func TestPhy_ReceiveOtherChannelIgnored(t *testing.T) {
	p, _, rec, _ := newTestPhy()
	sig := packetSignal(-60, 800, 20)
	sig.Channel = 20
	p.StartRx(sig)
	assert.Equal(t, PhyRxOn, p.State())
	assert.Equal(t, 0.0, p.RxTotalPowerW())
	assert.Equal(t, 0, len(rec.tracesOfType(TraceRxBegin)))
}

func TestPhy_ErrorModel(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	p.SetErrorModel(fixedErrorModel(0.0))
	p.StartRx(packetSignal(-60, 800, 20))
	eq.RunUntil(800)
	assert.Equal(t, 0, len(rec.indications))
	assert.Equal(t, 1, len(rec.tracesOfType(TraceRxEnd)))
	assert.Equal(t, 1, len(rec.tracesOfType(TraceRxDrop)))

	p.SetErrorModel(fixedErrorModel(1.0))
	p.StartRx(packetSignal(-60, 800, 20))
	eq.RunUntil(1600)
	assert.Equal(t, 1, len(rec.indications))
	assert.InDelta(t, DbmToWatt(-60)/p.NoisePowerW(), rec.sinrs[0], 1.0)
	assert.Equal(t, rec.sinrs[0], rec.tracesOfType(TraceRxEnd)[1].Sinr)
}

func TestPhy_InterferenceLowersSinr(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	p.SetErrorModel(fixedErrorModel(1.0))
	p.StartRx(packetSignal(-60, 800, 20))
	p.StartRx(energySignal(-70, 100))
	eq.RunUntil(800)
	assert.Equal(t, 1, len(rec.sinrs))
	assert.InDelta(t, 10.0, RatioToDb(rec.sinrs[0]), 0.01)
}

func TestPhy_ChannelChangeDuringTx(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	toTxOn(p, eq)
	p.PdDataRequest(20, NewPacket(make([]byte, 20)))

	p.PlmeSetAttributeRequest(PhyCurrentChannel, &PibAttributes{CurrentChannel: 15})
	assert.Equal(t, []PhyEnumValue{PhySuccess}, rec.setConfirms)
	assert.Equal(t, []PhyEnumValue{PhyTrxOff}, rec.dataConfirms)
	assert.Equal(t, 1, len(rec.tracesOfType(TraceTxDrop)))
	assert.Equal(t, PhyTxOn, p.State())
	assert.Equal(t, 15, p.CurrentChannel())

	eq.RunUntil(eq.Now() + 2000)
	assert.Equal(t, 1, len(rec.dataConfirms))
	assert.Equal(t, 0, len(rec.tracesOfType(TraceTxEnd)))
}

func TestPhy_ChannelChangeDuringRx(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	p.StartRx(packetSignal(-60, 800, 20))
	p.PlmeSetAttributeRequest(PhyCurrentChannel, &PibAttributes{CurrentChannel: 15})
	eq.RunUntil(800)
	assert.Equal(t, 0, len(rec.indications))
	assert.Equal(t, 1, len(rec.tracesOfType(TraceRxDrop)))
	assert.Equal(t, PhyRxOn, p.State())
}

func TestPhy_ForcedOffReceptionDoesNotTakeNextPacket(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	p.StartRx(packetSignal(-60, 4000, 20))
	p.PlmeSetTRXStateRequest(PhyForceTrxOff)
	p.PlmeSetTRXStateRequest(PhyTxOn)
	assert.Equal(t, PhyTxOn, p.State())
	p.PlmeSetTRXStateRequest(PhyRxOn)
	eq.RunUntil(192)
	assert.Equal(t, PhyRxOn, p.State())

	// arrives while the aborted reception is still on the air
	p.StartRx(packetSignal(-60, 4008, 20))
	assert.Equal(t, PhyRxOn, p.State())
	assert.Equal(t, 1, p.ConcurrentRxCount())

	eq.RunUntil(4000)
	assert.Equal(t, 1, len(rec.tracesOfType(TraceRxDrop)))
	assert.Equal(t, 0, len(rec.tracesOfType(TraceRxEnd)))
	assert.Equal(t, 0, len(rec.indications))
	assert.Equal(t, PhyRxOn, p.State())

	assert.NotPanics(t, func() { eq.RunUntil(4200) })
	assert.Equal(t, 0, len(rec.indications))
	assert.Equal(t, 0, p.ConcurrentRxCount())

	sig := packetSignal(-60, 800, 20)
	p.StartRx(sig)
	assert.Equal(t, PhyBusyRx, p.State())
	eq.RunUntil(5000)
	assert.Equal(t, []*Packet{sig.Packet}, rec.indications)
	assert.Equal(t, PhyRxOn, p.State())
}

func TestPhy_TxOnAbortedReceptionDoesNotTakeNextPacket(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	p.StartRx(packetSignal(-60, 4000, 20))
	toTxOn(p, eq)
	p.PdDataRequest(20, NewPacket(make([]byte, 20)))
	eq.RunUntil(192 + 832)
	assert.Equal(t, []PhyEnumValue{PhySuccess}, rec.dataConfirms)
	assert.Equal(t, PhyRxOn, p.State())

	p.StartRx(packetSignal(-60, 3500, 20))
	assert.Equal(t, PhyRxOn, p.State())
	eq.RunUntil(4000)
	assert.Equal(t, 1, len(rec.tracesOfType(TraceRxDrop)))
	assert.NotPanics(t, func() { eq.RunUntil(5000) })
	assert.Equal(t, 0, len(rec.indications))
	assert.Equal(t, PhyRxOn, p.State())
}

func TestPhy_TxOnDeferredDuringBusyTx(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	toTxOn(p, eq)
	p.PdDataRequest(20, NewPacket(make([]byte, 20)))
	p.PlmeSetTRXStateRequest(PhyTxOn)
	assert.Equal(t, PhyBusyTx, p.State())
	assert.Equal(t, PhyTxOn, p.PendingState())
	assert.Equal(t, []PhyEnumValue{PhySuccess}, rec.trxConfirms)

	eq.RunUntil(eq.Now() + 832)
	assert.Equal(t, []PhyEnumValue{PhySuccess}, rec.dataConfirms)
	assert.Equal(t, []PhyEnumValue{PhySuccess, PhySuccess}, rec.trxConfirms)
	assert.Equal(t, PhyTxOn, p.State())
	assert.Equal(t, PhyIdle, p.PendingState())
}

func TestPhy_TrxOffImmediate(t *testing.T) {
	setups := map[string]func(p *Phy, eq *event.Queue){
		"RX_ON": func(p *Phy, eq *event.Queue) {},
		"TX_ON": toTxOn,
		"corrupted BUSY_RX": func(p *Phy, eq *event.Queue) {
			p.StartRx(packetSignal(-60, 1000, 20))
			p.PlmeSetAttributeRequest(PhyCurrentChannel, &PibAttributes{CurrentChannel: 15})
		},
	}
	for name, setup := range setups {
		p, eq, rec, _ := newTestPhy()
		setup(p, eq)
		numConfirms := len(rec.trxConfirms)
		now := eq.Now()

		p.PlmeSetTRXStateRequest(PhyTrxOff)
		assert.Equal(t, PhyTrxOff, p.State(), name)
		assert.Equal(t, PhyIdle, p.PendingState(), name)
		assert.Equal(t, numConfirms+1, len(rec.trxConfirms), name)
		assert.Equal(t, PhySuccess, rec.trxConfirms[len(rec.trxConfirms)-1], name)

		eq.RunUntil(now + 2000)
		assert.Equal(t, PhyTrxOff, p.State(), name)
		assert.Equal(t, 0, len(rec.indications), name)
	}
}

func TestPhy_RxOnFromTrxOffAfterTurnaround(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	p.PlmeSetTRXStateRequest(PhyTrxOff)
	p.PlmeSetTRXStateRequest(PhyRxOn)
	assert.Equal(t, PhyTrxOff, p.State())
	assert.Equal(t, PhyRxOn, p.PendingState())
	assert.Equal(t, []PhyEnumValue{PhySuccess}, rec.trxConfirms)

	eq.RunUntil(191)
	assert.Equal(t, PhyTrxOff, p.State())
	eq.RunUntil(192)
	assert.Equal(t, PhyRxOn, p.State())
	assert.Equal(t, []PhyEnumValue{PhySuccess, PhySuccess}, rec.trxConfirms)
}

func TestPhy_RxOnDuringBusyRx(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	p.StartRx(packetSignal(-60, 1000, 20))
	p.PlmeSetTRXStateRequest(PhyRxOn)
	assert.Equal(t, []PhyEnumValue{PhyRxOn}, rec.trxConfirms)
	assert.Equal(t, PhyBusyRx, p.State())
	assert.Equal(t, PhyIdle, p.PendingState())

	eq.RunUntil(1000)
	assert.Equal(t, 1, len(rec.indications))
	assert.Equal(t, PhyRxOn, p.State())
}

func TestPhy_EndTxAfterForceTrxOffStaysOff(t *testing.T) {
	p, eq, rec, _ := newTestPhy()
	toTxOn(p, eq)
	p.PdDataRequest(20, NewPacket(make([]byte, 20)))
	p.PlmeSetTRXStateRequest(PhyForceTrxOff)
	eq.RunUntil(eq.Now() + 832)

	assert.Equal(t, []PhyEnumValue{PhyTrxOff}, rec.dataConfirms)
	assert.Equal(t, PhyTrxOff, p.State())
	assert.Equal(t, []PhyEnumValue{PhySuccess, PhySuccess}, rec.trxConfirms)
}
