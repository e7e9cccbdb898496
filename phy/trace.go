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

type TraceType uint8

const (
	TraceStateChange TraceType = iota
	TraceTxBegin
	TraceTxEnd
	TraceTxDrop
	TraceRxBegin
	TraceRxEnd
	TraceRxDrop
)

func (tt TraceType) String() string {
	switch tt {
	case TraceStateChange:
		return "state"
	case TraceTxBegin:
		return "tx-begin"
	case TraceTxEnd:
		return "tx-end"
	case TraceTxDrop:
		return "tx-drop"
	case TraceRxBegin:
		return "rx-begin"
	case TraceRxEnd:
		return "rx-end"
	case TraceRxDrop:
		return "rx-drop"
	default:
		return "invalid"
	}
}

// TraceEvent is an observable event of a PHY. OldState and NewState are set for TraceStateChange;
// Packet is set for tx/rx events except a state change; Sinr is set for TraceRxEnd when an error
// model was used.
type TraceEvent struct {
	Type      TraceType
	Timestamp uint64
	NodeId    NodeId
	Channel   ChannelId
	OldState  PhyEnumValue
	NewState  PhyEnumValue
	Packet    *Packet
	Sinr      float64
}

// Tracer receives the trace events of a PHY.
type Tracer interface {
	OnPhyTrace(evt *TraceEvent)
}

// TracerFunc adapts a func to a Tracer.
type TracerFunc func(evt *TraceEvent)

func (f TracerFunc) OnPhyTrace(evt *TraceEvent) {
	f(evt)
}
