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

// Package phy implements the IEEE 802.15.4 PHY transceiver state machine: transceiver states and
// turnaround, packet transmission and reception timing, CCA, ED and the PHY PIB.
package phy

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/wpansim/wpansim/event"
	"github.com/wpansim/wpansim/logger"
	"github.com/wpansim/wpansim/prng"
	. "github.com/wpansim/wpansim/types"
)

const (
	DefaultRxSensitivityDbm DbValue = -85.0
	boltzmannTimesT290              = 1.380649e-23 * 290.0 // kT in W/Hz at the reference temperature
)

// Config holds the initial PIB and receiver parameters of a PHY.
type Config struct {
	RxSensitivityDbm DbValue   `yaml:"rx-sensitivity"`
	Channel          ChannelId `yaml:"channel"`
	Page             uint8     `yaml:"page"`
	TransmitPower    uint8     `yaml:"tx-power-code"`
	CcaMode          uint8     `yaml:"cca-mode"`
}

func DefaultConfig() *Config {
	return &Config{
		RxSensitivityDbm: DefaultRxSensitivityDbm,
		Channel:          DefaultChannel,
		Page:             0,
		TransmitPower:    0,
		CcaMode:          1,
	}
}

// Validate checks the config against the same rules PlmeSetAttributeRequest applies.
func (cfg *Config) Validate() error {
	if cfg.Page > MaxPage {
		return errors.Errorf("invalid page %d", cfg.Page)
	}
	if phyOptionFor(cfg.Page, cfg.Channel) == PhyInvalidOption {
		return errors.Errorf("channel %d does not exist on page %d", cfg.Channel, cfg.Page)
	}
	if cfg.TransmitPower > maxTransmitPowerCode {
		return errors.Errorf("invalid tx power code 0x%02x", cfg.TransmitPower)
	}
	if cfg.CcaMode < 1 || cfg.CcaMode > 3 {
		return errors.Errorf("invalid CCA mode %d", cfg.CcaMode)
	}
	return nil
}

type (
	PdDataIndicationCallback        func(psduLength int, pkt *Packet, sinr float64)
	PdDataConfirmCallback           func(status PhyEnumValue)
	PlmeCcaConfirmCallback          func(status PhyEnumValue)
	PlmeEdConfirmCallback           func(status PhyEnumValue, energyLevel uint8)
	PlmeGetAttributeConfirmCallback func(status PhyEnumValue, id PibAttributeId, attrs *PibAttributes)
	PlmeSetTrxStateConfirmCallback  func(status PhyEnumValue)
	PlmeSetAttributeConfirmCallback func(status PhyEnumValue, id PibAttributeId)
)

// Phy is one IEEE 802.15.4 transceiver. All methods must be called from the scheduler's goroutine.
type Phy struct {
	id         NodeId
	sched      event.Scheduler
	log        *logger.NodeLogger
	channel    Channel
	errorModel ErrorModel
	rand       *rand.Rand

	pib            PibAttributes
	phyOption      PhyOption
	txPowerDbm     DbValue
	rxSensitivityW float64
	noisePsd       float64
	noiseW         float64
	noiseOverride  bool

	trxState        PhyEnumValue
	trxStatePending PhyEnumValue

	currentRx           InFlightPacket
	currentTx           InFlightPacket
	rxSignalW           float64
	rxPeakInterferenceW float64
	interferers         map[*interferer]struct{}
	interferenceW       float64
	rxConcurrentNum     int
	edPeakW             float64

	txEvent          *event.Handle
	rxEvent          *event.Handle
	ccaEvent         *event.Handle
	edEvent          *event.Handle
	setTrxStateEvent *event.Handle

	pdDataIndication        PdDataIndicationCallback
	pdDataConfirm           PdDataConfirmCallback
	plmeCcaConfirm          PlmeCcaConfirmCallback
	plmeEdConfirm           PlmeEdConfirmCallback
	plmeGetAttributeConfirm PlmeGetAttributeConfirmCallback
	plmeSetTrxStateConfirm  PlmeSetTrxStateConfirmCallback
	plmeSetAttributeConfirm PlmeSetAttributeConfirmCallback

	tracers []Tracer
}

// New creates a PHY for node id with the given config. The PHY starts in RX_ON.
func New(id NodeId, sched event.Scheduler, cfg *Config) *Phy {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger.AssertNil(cfg.Validate())

	p := &Phy{
		id:              id,
		sched:           sched,
		log:             logger.NewNodeLogger(id, sched.Now),
		rand:            prng.NewNodeRand(id, prng.PurposeRx),
		rxSensitivityW:  DbmToWatt(cfg.RxSensitivityDbm),
		noisePsd:        boltzmannTimesT290,
		trxState:        PhyIdle,
		trxStatePending: PhyIdle,
		interferers:     map[*interferer]struct{}{},
		pib: PibAttributes{
			CurrentChannel: cfg.Channel,
			TransmitPower:  cfg.TransmitPower,
			CcaMode:        cfg.CcaMode,
			CurrentPage:    cfg.Page,
		},
	}
	for i := range p.pib.ChannelsSupported {
		p.pib.ChannelsSupported[i] = DefaultChannelsSupported
	}
	p.SetPdDataIndicationCallback(nil)
	p.SetPdDataConfirmCallback(nil)
	p.SetPlmeCcaConfirmCallback(nil)
	p.SetPlmeEdConfirmCallback(nil)
	p.SetPlmeGetAttributeConfirmCallback(nil)
	p.SetPlmeSetTrxStateConfirmCallback(nil)
	p.SetPlmeSetAttributeConfirmCallback(nil)

	p.updateDerivedAttributes()
	p.changeTrxState(PhyRxOn)
	return p
}

func (p *Phy) Id() NodeId {
	return p.id
}

// State returns the current transceiver state.
func (p *Phy) State() PhyEnumValue {
	return p.trxState
}

// PendingState returns the deferred state, or PhyIdle if none is pending.
func (p *Phy) PendingState() PhyEnumValue {
	return p.trxStatePending
}

// IsBusy returns true while transmitting or receiving.
func (p *Phy) IsBusy() bool {
	return p.trxState.IsBusy()
}

func (p *Phy) PhyOption() PhyOption {
	return p.phyOption
}

// SymbolRate returns the current symbol rate in symbols/s.
func (p *Phy) SymbolRate() float64 {
	return p.phyOption.SymbolRate()
}

// BitRate returns the current data rate in bit/s.
func (p *Phy) BitRate() float64 {
	return p.phyOption.BitRate()
}

func (p *Phy) CurrentChannel() ChannelId {
	return p.pib.CurrentChannel
}

// TxPowerDbm returns the nominal transmit power set by the phyTransmitPower attribute.
func (p *Phy) TxPowerDbm() DbValue {
	return p.txPowerDbm
}

func (p *Phy) RxSensitivityW() float64 {
	return p.rxSensitivityW
}

// SetRxSensitivityDbm sets the receiver sensitivity, which is also the reference for CCA and ED.
func (p *Phy) SetRxSensitivityDbm(dbm DbValue) {
	p.rxSensitivityW = DbmToWatt(dbm)
}

// RxTotalPowerW returns the total power currently received on the channel: the signal being
// received, if any, plus all other signals on the air.
func (p *Phy) RxTotalPowerW() float64 {
	return p.rxSignalW + p.interferenceW
}

// ConcurrentRxCount returns the number of detectable packets on the air that the PHY is not receiving.
func (p *Phy) ConcurrentRxCount() int {
	return p.rxConcurrentNum
}

func (p *Phy) NoisePowerW() float64 {
	return p.noiseW
}

// SetNoisePower overrides the noise power derived from the noise density and the channel bandwidth.
// A value <= 0 restores the derived value.
func (p *Phy) SetNoisePower(w float64) {
	p.noiseOverride = w > 0
	if p.noiseOverride {
		p.noiseW = w
	} else {
		p.noiseW = p.noisePsd * p.phyOption.BandwidthHz()
	}
}

// SetNoisePsd sets the noise power spectral density in W/Hz, as provided by the channel model. The
// noise power follows the bandwidth of the current PHY option. A value <= 0 restores thermal noise.
func (p *Phy) SetNoisePsd(psd float64) {
	if psd <= 0 {
		psd = boltzmannTimesT290
	}
	p.noisePsd = psd
	if !p.noiseOverride {
		p.noiseW = p.noisePsd * p.phyOption.BandwidthHz()
	}
}

// SetChannel attaches the PHY to the medium used for transmissions.
func (p *Phy) SetChannel(ch Channel) {
	p.channel = ch
}

// SetErrorModel sets the model deciding packet loss at the end of a reception. Nil means every
// reception succeeds.
func (p *Phy) SetErrorModel(em ErrorModel) {
	p.errorModel = em
}

// SetRand replaces the random generator used for packet error draws.
func (p *Phy) SetRand(r *rand.Rand) {
	logger.AssertNotNil(r)
	p.rand = r
}

func (p *Phy) Logger() *logger.NodeLogger {
	return p.log
}

// AddTracer registers a receiver of trace events.
func (p *Phy) AddTracer(t Tracer) {
	p.tracers = append(p.tracers, t)
}

func (p *Phy) SetPdDataIndicationCallback(cb PdDataIndicationCallback) {
	if cb == nil {
		cb = func(int, *Packet, float64) {}
	}
	p.pdDataIndication = cb
}

func (p *Phy) SetPdDataConfirmCallback(cb PdDataConfirmCallback) {
	if cb == nil {
		cb = func(PhyEnumValue) {}
	}
	p.pdDataConfirm = cb
}

func (p *Phy) SetPlmeCcaConfirmCallback(cb PlmeCcaConfirmCallback) {
	if cb == nil {
		cb = func(PhyEnumValue) {}
	}
	p.plmeCcaConfirm = cb
}

func (p *Phy) SetPlmeEdConfirmCallback(cb PlmeEdConfirmCallback) {
	if cb == nil {
		cb = func(PhyEnumValue, uint8) {}
	}
	p.plmeEdConfirm = cb
}

func (p *Phy) SetPlmeGetAttributeConfirmCallback(cb PlmeGetAttributeConfirmCallback) {
	if cb == nil {
		cb = func(PhyEnumValue, PibAttributeId, *PibAttributes) {}
	}
	p.plmeGetAttributeConfirm = cb
}

func (p *Phy) SetPlmeSetTrxStateConfirmCallback(cb PlmeSetTrxStateConfirmCallback) {
	if cb == nil {
		cb = func(PhyEnumValue) {}
	}
	p.plmeSetTrxStateConfirm = cb
}

func (p *Phy) SetPlmeSetAttributeConfirmCallback(cb PlmeSetAttributeConfirmCallback) {
	if cb == nil {
		cb = func(PhyEnumValue, PibAttributeId) {}
	}
	p.plmeSetAttributeConfirm = cb
}

func (p *Phy) changeTrxState(newState PhyEnumValue) {
	oldState := p.trxState
	p.log.Tracef("trx state %v -> %v", oldState, newState)
	p.trxState = newState
	p.emit(&TraceEvent{
		Type:     TraceStateChange,
		OldState: oldState,
		NewState: newState,
	})
}

func (p *Phy) emitPacket(tt TraceType, pkt *Packet, sinr float64) {
	p.emit(&TraceEvent{
		Type:   tt,
		Packet: pkt,
		Sinr:   sinr,
	})
}

func (p *Phy) emit(evt *TraceEvent) {
	if len(p.tracers) == 0 {
		return
	}
	evt.Timestamp = p.sched.Now()
	evt.NodeId = p.id
	evt.Channel = p.pib.CurrentChannel
	for _, t := range p.tracers {
		t.OnPhyTrace(evt)
	}
}

func (p *Phy) turnaroundTimeUs() uint64 {
	return p.phyOption.SymbolsToUs(TurnaroundTimeSymbols)
}
