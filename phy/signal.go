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
	"sync/atomic"

	. "github.com/wpansim/wpansim/types"
)

var packetUid uint64

// Packet is a PSDU handed between MAC, PHY and channel.
type Packet struct {
	Uid  uint64
	Data []byte
}

// NewPacket creates a packet carrying data, with a process-unique id.
func NewPacket(data []byte) *Packet {
	return &Packet{
		Uid:  atomic.AddUint64(&packetUid, 1),
		Data: data,
	}
}

// Size returns the PSDU length in octets.
func (p *Packet) Size() int {
	return len(p.Data)
}

// SignalParams describes one signal on the air. At the transmitter PowerW is the transmit power; the
// channel delivers a copy to each receiver with PowerW set to the power received there.
type SignalParams struct {
	SrcId    NodeId
	Channel  ChannelId
	Duration uint64  // us
	PowerW   float64 // Watt
	Packet   *Packet // nil for an energy-only signal such as a jammer burst
}

// Channel is the medium a PHY transmits on.
type Channel interface {
	StartTx(params *SignalParams)
}

// ErrorModel computes the probability that a chunk of nbits bits is received without error at the given
// linear SINR.
type ErrorModel interface {
	ChunkSuccessRate(sinr float64, nbits int) float64
}

// InFlightPacket is a packet being sent or received, with a flag telling whether an external event
// (forced state change, channel switch) invalidated the operation.
type InFlightPacket struct {
	Packet    *Packet
	Corrupted bool
}

func (ifp *InFlightPacket) isActive() bool {
	return ifp.Packet != nil
}

func (ifp *InFlightPacket) clear() {
	ifp.Packet = nil
	ifp.Corrupted = false
}
