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
	"math"
)

type NodeId = int
type ChannelId = int

// DbValue is a value in dB or dBm.
type DbValue = float64

const (
	InvalidNodeId NodeId = 0
	MaxNodeId     NodeId = 0xfffe
)

const (
	// BroadcastShortAddr is the 802.15.4 broadcast short address.
	BroadcastShortAddr uint16 = 0xffff
	DefaultPanId       uint16 = 0xface
)

// IEEE 802.15.4-2006 channel numbering: page 0 has channel 0 (868 MHz), 1-10 (915 MHz), 11-26 (2.4 GHz).
const (
	MinChannelNumber ChannelId = 0
	MaxChannelNumber ChannelId = 26
	DefaultChannel   ChannelId = 11
	InvalidChannel   ChannelId = -1
)

const (
	// Ever is the timestamp that is never reached.
	Ever uint64 = math.MaxUint64

	UndefinedDbValue DbValue = math.MaxFloat64
	MinusInfinityDbm DbValue = -1000.0
)

// NodeIdToShortAddr maps a node id onto the 802.15.4 short address used by that node's MAC.
func NodeIdToShortAddr(id NodeId) uint16 {
	return uint16(id)
}
