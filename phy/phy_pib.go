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

const (
	// DefaultChannelsSupported enables channels 0 to 26.
	DefaultChannelsSupported uint32 = 0x07ffffff
	reservedChannelsMask     uint32 = 0xf8000000
	maxTransmitPowerCode     uint8  = 0xbf
)

// PibAttributes is the PHY PIB. MaxFrameDuration, ShrDuration and SymbolsPerOctet are derived
// from the current page and channel and cannot be set.
type PibAttributes struct {
	CurrentChannel    ChannelId
	ChannelsSupported [32]uint32
	TransmitPower     uint8
	CcaMode           uint8
	CurrentPage       uint8
	MaxFrameDuration  uint32  // symbols
	ShrDuration       uint32  // symbols
	SymbolsPerOctet   float64 // symbols
}

// TxPowerDbm decodes the phyTransmitPower attribute: the 6 LSBs hold the nominal power in dBm as a
// 6-bit two's complement number, the 2 MSBs the tolerance.
func (pib *PibAttributes) TxPowerDbm() DbValue {
	return DbValue(int8(pib.TransmitPower<<2) >> 2)
}

// Pib returns a copy of the PIB.
func (p *Phy) Pib() PibAttributes {
	return p.pib
}

// ChannelSupported returns true if ch is enabled in the supported-channels bitmap of the current page.
func (p *Phy) ChannelSupported(ch ChannelId) bool {
	return p.channelSupported(p.pib.CurrentPage, ch)
}

func (p *Phy) channelSupported(page uint8, ch ChannelId) bool {
	if ch < MinChannelNumber || ch > MaxChannelNumber || int(page) >= len(p.pib.ChannelsSupported) {
		return false
	}
	return p.pib.ChannelsSupported[page]&(1<<uint(ch)) != 0 && phyOptionFor(page, ch) != PhyInvalidOption
}

// PlmeGetAttributeRequest reports a copy of the PIB through the get-attribute confirm callback.
func (p *Phy) PlmeGetAttributeRequest(id PibAttributeId) {
	status := PhySuccess
	switch id {
	case PhyCurrentChannel, PhyChannelsSupported, PhyTransmitPower, PhyCcaMode, PhyCurrentPage,
		PhyMaxFrameDuration, PhyShrDuration, PhySymbolsPerOctet:
	default:
		status = PhyUnsupportedAttribute
	}
	pib := p.pib
	p.plmeGetAttributeConfirm(status, id, &pib)
}

// PlmeSetAttributeRequest sets the attribute id to its value in attrs. Invalid values leave the PIB unchanged.
func (p *Phy) PlmeSetAttributeRequest(id PibAttributeId, attrs *PibAttributes) {
	status := PhySuccess

	switch id {
	case PhyCurrentChannel:
		if !p.channelSupported(p.pib.CurrentPage, attrs.CurrentChannel) {
			status = PhyInvalidParameter
		} else if attrs.CurrentChannel != p.pib.CurrentChannel {
			p.retune(p.pib.CurrentPage, attrs.CurrentChannel)
		}
	case PhyChannelsSupported:
		for _, mask := range attrs.ChannelsSupported {
			if mask&reservedChannelsMask != 0 {
				status = PhyInvalidParameter
				break
			}
		}
		if status == PhySuccess {
			p.pib.ChannelsSupported = attrs.ChannelsSupported
		}
	case PhyTransmitPower:
		if attrs.TransmitPower > maxTransmitPowerCode {
			status = PhyInvalidParameter
		} else {
			p.pib.TransmitPower = attrs.TransmitPower
		}
	case PhyCcaMode:
		if attrs.CcaMode < 1 || attrs.CcaMode > 3 {
			status = PhyInvalidParameter
		} else {
			p.pib.CcaMode = attrs.CcaMode
		}
	case PhyCurrentPage:
		if attrs.CurrentPage > MaxPage || !p.channelSupported(attrs.CurrentPage, p.pib.CurrentChannel) {
			status = PhyInvalidParameter
		} else if attrs.CurrentPage != p.pib.CurrentPage {
			p.retune(attrs.CurrentPage, p.pib.CurrentChannel)
		}
	case PhyMaxFrameDuration, PhyShrDuration, PhySymbolsPerOctet:
		status = PhyReadOnly
	default:
		status = PhyUnsupportedAttribute
	}

	if status == PhySuccess {
		p.updateDerivedAttributes()
	} else {
		p.log.Debugf("set attribute %v rejected: %v", id, status)
	}
	p.plmeSetAttributeConfirm(status, id)
}

// retune switches to a new page/channel. Ongoing operations are aborted: a reception is corrupted and will
// be dropped when it ends; a transmission is cancelled right away and confirmed with TRX_OFF.
func (p *Phy) retune(page uint8, ch ChannelId) {
	p.log.Debugf("retune to page %d channel %d", page, ch)
	if p.currentRx.isActive() {
		p.currentRx.Corrupted = true
	}
	if p.trxState == PhyBusyTx && p.currentTx.isActive() {
		pkt := p.currentTx.Packet
		p.currentTx.Corrupted = true
		p.txEvent.Cancel()
		p.txEvent = nil
		p.currentTx.clear()
		p.trxStatePending = PhyIdle
		p.changeTrxState(PhyTxOn)
		p.emitPacket(TraceTxDrop, pkt, 0)
		p.pdDataConfirm(PhyTrxOff)
	}
	p.clearInterferers()

	p.pib.CurrentPage = page
	p.pib.CurrentChannel = ch
}

func (p *Phy) updateDerivedAttributes() {
	p.phyOption = phyOptionFor(p.pib.CurrentPage, p.pib.CurrentChannel)
	p.pib.ShrDuration = uint32(p.phyOption.ShrSymbols())
	p.pib.SymbolsPerOctet = p.phyOption.SymbolsPerOctet()
	p.pib.MaxFrameDuration = p.pib.ShrDuration + uint32(math.Ceil(float64(MaxPhyPacketSize+1)*p.pib.SymbolsPerOctet))
	p.txPowerDbm = p.pib.TxPowerDbm()
	if !p.noiseOverride {
		p.noiseW = p.noisePsd * p.phyOption.BandwidthHz()
	}
}
