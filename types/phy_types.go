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

package types

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// PhyEnumValue holds both IEEE 802.15.4 transceiver states and PHY status codes, as the
// standard uses a single enumeration for both.
type PhyEnumValue uint8

const (
	PhyBusy                 PhyEnumValue = 0x00
	PhyBusyRx               PhyEnumValue = 0x01
	PhyBusyTx               PhyEnumValue = 0x02
	PhyForceTrxOff          PhyEnumValue = 0x03
	PhyIdle                 PhyEnumValue = 0x04
	PhyInvalidParameter     PhyEnumValue = 0x05
	PhyRxOn                 PhyEnumValue = 0x06
	PhySuccess              PhyEnumValue = 0x07
	PhyTrxOff               PhyEnumValue = 0x08
	PhyTxOn                 PhyEnumValue = 0x09
	PhyUnsupportedAttribute PhyEnumValue = 0x0a
	PhyReadOnly             PhyEnumValue = 0x0b
	PhyUnspecified          PhyEnumValue = 0x0c
)

var phyEnumNames = map[PhyEnumValue]string{
	PhyBusy:                 "BUSY",
	PhyBusyRx:               "BUSY_RX",
	PhyBusyTx:               "BUSY_TX",
	PhyForceTrxOff:          "FORCE_TRX_OFF",
	PhyIdle:                 "IDLE",
	PhyInvalidParameter:     "INVALID_PARAMETER",
	PhyRxOn:                 "RX_ON",
	PhySuccess:              "SUCCESS",
	PhyTrxOff:               "TRX_OFF",
	PhyTxOn:                 "TX_ON",
	PhyUnsupportedAttribute: "UNSUPPORTED_ATTRIBUTE",
	PhyReadOnly:             "READ_ONLY",
	PhyUnspecified:          "UNSPECIFIED",
}

func (v PhyEnumValue) String() string {
	if s, ok := phyEnumNames[v]; ok {
		return s
	}
	return fmt.Sprintf("INVALID(%d)", uint8(v))
}

// IsBusy returns true for the states in which the transceiver is occupied by a transmission,
// a reception or a CCA.
func (v PhyEnumValue) IsBusy() bool {
	return v == PhyBusy || v == PhyBusyRx || v == PhyBusyTx
}

// ParseTrxState parses a transceiver state request name, e.g. "rx_on" or "FORCE_TRX_OFF".
// Only the four states accepted by a PLME-SET-TRX-STATE.request are recognized.
func ParseTrxState(s string) (PhyEnumValue, error) {
	switch strings.ToUpper(strings.ReplaceAll(s, "-", "_")) {
	case "RX_ON", "RX":
		return PhyRxOn, nil
	case "TX_ON", "TX":
		return PhyTxOn, nil
	case "TRX_OFF", "OFF":
		return PhyTrxOff, nil
	case "FORCE_TRX_OFF", "FORCE":
		return PhyForceTrxOff, nil
	default:
		return PhyUnspecified, errors.Errorf("invalid transceiver state: %s", s)
	}
}

// PibAttributeId identifies an IEEE 802.15.4 PHY PIB attribute.
type PibAttributeId uint8

const (
	PhyCurrentChannel    PibAttributeId = 0x00
	PhyChannelsSupported PibAttributeId = 0x01
	PhyTransmitPower     PibAttributeId = 0x02
	PhyCcaMode           PibAttributeId = 0x03
	PhyCurrentPage       PibAttributeId = 0x04
	PhyMaxFrameDuration  PibAttributeId = 0x05
	PhyShrDuration       PibAttributeId = 0x06
	PhySymbolsPerOctet   PibAttributeId = 0x07
)

var pibAttributeNames = []struct {
	id    PibAttributeId
	name  string
	short string
}{
	{PhyCurrentChannel, "phyCurrentChannel", "channel"},
	{PhyChannelsSupported, "phyChannelsSupported", "channels"},
	{PhyTransmitPower, "phyTransmitPower", "txpower"},
	{PhyCcaMode, "phyCCAMode", "ccamode"},
	{PhyCurrentPage, "phyCurrentPage", "page"},
	{PhyMaxFrameDuration, "phyMaxFrameDuration", "maxframeduration"},
	{PhyShrDuration, "phySHRDuration", "shrduration"},
	{PhySymbolsPerOctet, "phySymbolsPerOctet", "symbolsperoctet"},
}

func (id PibAttributeId) String() string {
	for _, n := range pibAttributeNames {
		if n.id == id {
			return n.name
		}
	}
	return fmt.Sprintf("unknown(%d)", uint8(id))
}

// ParsePibAttributeId parses either the standard attribute name or its short CLI name.
func ParsePibAttributeId(s string) (PibAttributeId, error) {
	for _, n := range pibAttributeNames {
		if strings.EqualFold(s, n.name) || strings.EqualFold(s, n.short) {
			return n.id, nil
		}
	}
	return 0xff, errors.Errorf("unknown PIB attribute: %s", s)
}

// PibAttributeShortNames lists the short CLI names of all PIB attributes, in id order.
func PibAttributeShortNames() []string {
	names := make([]string, 0, len(pibAttributeNames))
	for _, n := range pibAttributeNames {
		names = append(names, n.short)
	}
	return names
}
