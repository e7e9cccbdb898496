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

// PhyOption identifies the modulation and frequency band in use, as derived from the current page and channel.
type PhyOption uint8

const (
	Phy868MhzBpsk PhyOption = iota
	Phy915MhzBpsk
	Phy868MhzAsk
	Phy915MhzAsk
	Phy868MhzOqpsk
	Phy915MhzOqpsk
	Phy2400MhzOqpsk
	PhyInvalidOption
)

// IEEE 802.15.4-2006 PHY constants.
const (
	MaxPhyPacketSize      = 127 // aMaxPhyPacketSize in octets
	TurnaroundTimeSymbols = 12  // aTurnaroundTime in symbol periods
	CcaDurationSymbols    = 8   // CCA and ED measurement duration in symbol periods
	MaxPage               = 2
)

type dataAndSymbolRate struct {
	bitRate    float64 // kbit/s
	symbolRate float64 // ksymbol/s
}

type headerSymbols struct {
	shrPreamble float64
	shrSfd      float64
	phr         float64
}

// indexed by PhyOption
var dataSymbolRates = [PhyInvalidOption]dataAndSymbolRate{
	{20.0, 20.0},
	{40.0, 40.0},
	{250.0, 12.5},
	{250.0, 50.0},
	{100.0, 25.0},
	{250.0, 62.5},
	{250.0, 62.5},
}

// indexed by PhyOption
var ppduHeaderSymbols = [PhyInvalidOption]headerSymbols{
	{32.0, 8.0, 8.0},
	{32.0, 8.0, 8.0},
	{2.0, 1.0, 0.4},
	{6.0, 1.0, 1.6},
	{8.0, 2.0, 2.0},
	{8.0, 2.0, 2.0},
	{8.0, 2.0, 2.0},
}

func (o PhyOption) String() string {
	switch o {
	case Phy868MhzBpsk:
		return "868MHz-BPSK"
	case Phy915MhzBpsk:
		return "915MHz-BPSK"
	case Phy868MhzAsk:
		return "868MHz-ASK"
	case Phy915MhzAsk:
		return "915MHz-ASK"
	case Phy868MhzOqpsk:
		return "868MHz-OQPSK"
	case Phy915MhzOqpsk:
		return "915MHz-OQPSK"
	case Phy2400MhzOqpsk:
		return "2.4GHz-OQPSK"
	default:
		return "invalid"
	}
}

// phyOptionFor returns the PHY option for a page and channel, or PhyInvalidOption if the
// combination does not exist. Pages 1 and 2 only define channels 0 to 10.
func phyOptionFor(page uint8, channel ChannelId) PhyOption {
	if channel < MinChannelNumber || channel > MaxChannelNumber {
		return PhyInvalidOption
	}
	switch page {
	case 0:
		if channel == 0 {
			return Phy868MhzBpsk
		} else if channel <= 10 {
			return Phy915MhzBpsk
		}
		return Phy2400MhzOqpsk
	case 1:
		if channel == 0 {
			return Phy868MhzAsk
		} else if channel <= 10 {
			return Phy915MhzAsk
		}
	case 2:
		if channel == 0 {
			return Phy868MhzOqpsk
		} else if channel <= 10 {
			return Phy915MhzOqpsk
		}
	}
	return PhyInvalidOption
}

// SymbolRate returns the symbol rate of the option in symbols/s.
func (o PhyOption) SymbolRate() float64 {
	return dataSymbolRates[o].symbolRate * 1000.0
}

// BitRate returns the data rate of the option in bit/s.
func (o PhyOption) BitRate() float64 {
	return dataSymbolRates[o].bitRate * 1000.0
}

// ShrSymbols returns the number of symbols in the synchronization header (preamble and SFD).
func (o PhyOption) ShrSymbols() float64 {
	return ppduHeaderSymbols[o].shrPreamble + ppduHeaderSymbols[o].shrSfd
}

// HeaderSymbols returns the number of symbols of the SHR and PHR together.
func (o PhyOption) HeaderSymbols() float64 {
	return o.ShrSymbols() + ppduHeaderSymbols[o].phr
}

// SymbolsPerOctet returns the number of symbols needed to send one octet.
func (o PhyOption) SymbolsPerOctet() float64 {
	return dataSymbolRates[o].symbolRate * 8.0 / dataSymbolRates[o].bitRate
}

// SymbolsToUs converts a number of symbol periods into us at the option's symbol rate.
func (o PhyOption) SymbolsToUs(symbols float64) uint64 {
	return uint64(math.Round(symbols * 1000.0 / dataSymbolRates[o].symbolRate))
}

// TxTimeUs returns the on-air time in us of a PPDU that carries psduLength octets.
func (o PhyOption) TxTimeUs(psduLength int) uint64 {
	hdrUs := o.HeaderSymbols() * 1000.0 / dataSymbolRates[o].symbolRate
	psduUs := float64(psduLength*8) * 1000.0 / dataSymbolRates[o].bitRate
	return uint64(math.Round(hdrUs + psduUs))
}

// BandwidthHz returns the occupied channel bandwidth used for the thermal noise estimate.
func (o PhyOption) BandwidthHz() float64 {
	switch o {
	case Phy868MhzBpsk, Phy868MhzAsk, Phy868MhzOqpsk:
		return 600e3
	case Phy915MhzBpsk, Phy915MhzAsk, Phy915MhzOqpsk:
		return 1.2e6
	default:
		return 2e6
	}
}
