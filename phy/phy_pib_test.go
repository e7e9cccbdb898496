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

	. "github.com/wpansim/wpansim/types"
)

func TestPhy_SetGetChannel(t *testing.T) {
	p, _, rec, _ := newTestPhy()
	for _, ch := range []ChannelId{11, 15, 26, 0, 10} {
		p.PlmeSetAttributeRequest(PhyCurrentChannel, &PibAttributes{CurrentChannel: ch})
		p.PlmeGetAttributeRequest(PhyCurrentChannel)
		last := len(rec.getPib) - 1
		assert.Equal(t, PhySuccess, rec.setConfirms[len(rec.setConfirms)-1])
		assert.Equal(t, PhySuccess, rec.getStatus[last])
		assert.Equal(t, ch, rec.getPib[last].CurrentChannel)
	}
}

func TestPhy_SetUnsupportedChannel(t *testing.T) {
	p, _, rec, _ := newTestPhy()
	attrs := p.Pib()
	attrs.ChannelsSupported[0] &^= 1 << 20
	p.PlmeSetAttributeRequest(PhyChannelsSupported, &attrs)
	assert.Equal(t, []PhyEnumValue{PhySuccess}, rec.setConfirms)
	assert.False(t, p.ChannelSupported(20))
	assert.True(t, p.ChannelSupported(21))

	p.PlmeSetAttributeRequest(PhyCurrentChannel, &PibAttributes{CurrentChannel: 20})
	assert.Equal(t, PhyInvalidParameter, rec.setConfirms[1])
	assert.Equal(t, DefaultChannel, p.CurrentChannel())

	p.PlmeSetAttributeRequest(PhyCurrentChannel, &PibAttributes{CurrentChannel: 27})
	assert.Equal(t, PhyInvalidParameter, rec.setConfirms[2])
	p.PlmeSetAttributeRequest(PhyCurrentChannel, &PibAttributes{CurrentChannel: -1})
	assert.Equal(t, PhyInvalidParameter, rec.setConfirms[3])
	assert.Equal(t, DefaultChannel, p.CurrentChannel())
}

func TestPhy_SetChannelsSupportedReservedBits(t *testing.T) {
	p, _, rec, _ := newTestPhy()
	attrs := p.Pib()
	attrs.ChannelsSupported[3] = 0x08000000
	p.PlmeSetAttributeRequest(PhyChannelsSupported, &attrs)
	assert.Equal(t, []PhyEnumValue{PhyInvalidParameter}, rec.setConfirms)
	assert.Equal(t, DefaultChannelsSupported, p.Pib().ChannelsSupported[3])
}

func TestPhy_SetPage(t *testing.T) {
	p, _, rec, _ := newTestPhy()
	p.PlmeSetAttributeRequest(PhyCurrentPage, &PibAttributes{CurrentPage: 1})
	assert.Equal(t, PhyInvalidParameter, rec.setConfirms[0])
	assert.Equal(t, uint8(0), p.Pib().CurrentPage)

	p.PlmeSetAttributeRequest(PhyCurrentChannel, &PibAttributes{CurrentChannel: 5})
	assert.Equal(t, Phy915MhzBpsk, p.PhyOption())
	assert.Equal(t, 40000.0, p.SymbolRate())

	p.PlmeSetAttributeRequest(PhyCurrentPage, &PibAttributes{CurrentPage: 1})
	assert.Equal(t, PhySuccess, rec.setConfirms[2])
	assert.Equal(t, Phy915MhzAsk, p.PhyOption())
	assert.Equal(t, 50000.0, p.SymbolRate())

	p.PlmeSetAttributeRequest(PhyCurrentPage, &PibAttributes{CurrentPage: 3})
	assert.Equal(t, PhyInvalidParameter, rec.setConfirms[3])
	assert.Equal(t, uint8(1), p.Pib().CurrentPage)
}

func TestPhy_DerivedAttributes(t *testing.T) {
	p, _, rec, _ := newTestPhy()
	p.PlmeSetAttributeRequest(PhyCurrentChannel, &PibAttributes{CurrentChannel: 0})
	pib := p.Pib()
	assert.Equal(t, Phy868MhzBpsk, p.PhyOption())
	assert.Equal(t, uint32(40), pib.ShrDuration)
	assert.Equal(t, 8.0, pib.SymbolsPerOctet)
	assert.Equal(t, uint32(40+1024), pib.MaxFrameDuration)
	assert.Equal(t, uint64(600), p.turnaroundTimeUs())
	assert.InDelta(t, 1.380649e-23*290.0*600e3, p.NoisePowerW(), 1e-25)

	for _, id := range []PibAttributeId{PhyMaxFrameDuration, PhyShrDuration, PhySymbolsPerOctet} {
		p.PlmeSetAttributeRequest(id, &PibAttributes{})
		assert.Equal(t, PhyReadOnly, rec.setConfirms[len(rec.setConfirms)-1])
	}
	assert.Equal(t, pib, p.Pib())
}

func TestPhy_SetTransmitPower(t *testing.T) {
	p, _, rec, _ := newTestPhy()
	cases := []struct {
		code uint8
		dbm  DbValue
	}{
		{0x00, 0},
		{0x03, 3},
		{0x1f, 31},
		{0x20, -32},
		{0x3f, -1},
		{0x7f, -1},
		{0xbf, -1},
	}
	for _, c := range cases {
		p.PlmeSetAttributeRequest(PhyTransmitPower, &PibAttributes{TransmitPower: c.code})
		assert.Equal(t, PhySuccess, rec.setConfirms[len(rec.setConfirms)-1])
		assert.Equal(t, c.dbm, p.TxPowerDbm(), "code 0x%02x", c.code)
	}

	p.PlmeSetAttributeRequest(PhyTransmitPower, &PibAttributes{TransmitPower: 0xc0})
	assert.Equal(t, PhyInvalidParameter, rec.setConfirms[len(rec.setConfirms)-1])
	assert.Equal(t, uint8(0xbf), p.Pib().TransmitPower)
}

func TestPhy_SetCcaMode(t *testing.T) {
	p, _, rec, _ := newTestPhy()
	for _, mode := range []uint8{0, 4, 255} {
		p.PlmeSetAttributeRequest(PhyCcaMode, &PibAttributes{CcaMode: mode})
		assert.Equal(t, PhyInvalidParameter, rec.setConfirms[len(rec.setConfirms)-1])
	}
	assert.Equal(t, uint8(1), p.Pib().CcaMode)
	p.PlmeSetAttributeRequest(PhyCcaMode, &PibAttributes{CcaMode: 3})
	assert.Equal(t, PhySuccess, rec.setConfirms[len(rec.setConfirms)-1])
	assert.Equal(t, uint8(3), p.Pib().CcaMode)
}

func TestPhy_UnsupportedAttribute(t *testing.T) {
	p, _, rec, _ := newTestPhy()
	p.PlmeSetAttributeRequest(PibAttributeId(99), &PibAttributes{})
	assert.Equal(t, []PhyEnumValue{PhyUnsupportedAttribute}, rec.setConfirms)
	p.PlmeGetAttributeRequest(PibAttributeId(99))
	assert.Equal(t, []PhyEnumValue{PhyUnsupportedAttribute}, rec.getStatus)
}

func TestConfig_Validate(t *testing.T) {
	assert.Nil(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Page = 1
	assert.NotNil(t, cfg.Validate())
	cfg.Channel = 3
	assert.Nil(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.CcaMode = 0
	assert.NotNil(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.TransmitPower = 0xff
	assert.NotNil(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Channel = 27
	assert.NotNil(t, cfg.Validate())
}

func TestPhyOption_Timing(t *testing.T) {
	assert.Equal(t, uint64(4256), Phy2400MhzOqpsk.TxTimeUs(127))
	assert.Equal(t, uint64(192), Phy2400MhzOqpsk.TxTimeUs(0))
	assert.Equal(t, uint64(10400), Phy868MhzBpsk.TxTimeUs(20))
	assert.Equal(t, uint64(128), Phy2400MhzOqpsk.SymbolsToUs(CcaDurationSymbols))
	assert.Equal(t, uint64(600), Phy868MhzBpsk.SymbolsToUs(TurnaroundTimeSymbols))
	assert.Equal(t, 2.0, Phy2400MhzOqpsk.SymbolsPerOctet())
	assert.Equal(t, 12.0, Phy2400MhzOqpsk.HeaderSymbols())
}

func TestPhyOptionFor(t *testing.T) {
	assert.Equal(t, Phy868MhzBpsk, phyOptionFor(0, 0))
	assert.Equal(t, Phy915MhzBpsk, phyOptionFor(0, 10))
	assert.Equal(t, Phy2400MhzOqpsk, phyOptionFor(0, 26))
	assert.Equal(t, Phy868MhzAsk, phyOptionFor(1, 0))
	assert.Equal(t, Phy915MhzOqpsk, phyOptionFor(2, 1))
	assert.Equal(t, PhyInvalidOption, phyOptionFor(1, 11))
	assert.Equal(t, PhyInvalidOption, phyOptionFor(0, 27))
	assert.Equal(t, PhyInvalidOption, phyOptionFor(3, 0))
	assert.Equal(t, "2.4GHz-OQPSK", Phy2400MhzOqpsk.String())
}

func TestPhy_NoisePsd(t *testing.T) {
	p, _, _, _ := newTestPhy()
	kT := 1.380649e-23 * 290.0
	assert.InDelta(t, kT*2e6, p.NoisePowerW(), 1e-25)

	p.SetNoisePsd(4 * kT)
	assert.InDelta(t, 4*kT*2e6, p.NoisePowerW(), 1e-25)

	// the noise power follows the bandwidth of the new PHY option
	p.PlmeSetAttributeRequest(PhyCurrentChannel, &PibAttributes{CurrentChannel: 0})
	assert.InDelta(t, 4*kT*600e3, p.NoisePowerW(), 1e-25)

	p.SetNoisePower(1e-12)
	p.SetNoisePsd(2 * kT)
	assert.Equal(t, 1e-12, p.NoisePowerW())
	p.SetNoisePower(0)
	assert.InDelta(t, 2*kT*600e3, p.NoisePowerW(), 1e-25)

	p.SetNoisePsd(0)
	assert.InDelta(t, kT*600e3, p.NoisePowerW(), 1e-25)
}
