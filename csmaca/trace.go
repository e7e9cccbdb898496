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

package csmaca

import (
	"fmt"

	. "github.com/wpansim/wpansim/types"
)

type TraceType uint8

const (
	TraceStart TraceType = iota
	TraceBackoff
	TraceCcaRequest
	TraceCcaConfirm
	TraceChannelIdle
	TraceAccessFailure
	TraceCancel
)

func (tt TraceType) String() string {
	switch tt {
	case TraceStart:
		return "start"
	case TraceBackoff:
		return "backoff"
	case TraceCcaRequest:
		return "cca-request"
	case TraceCcaConfirm:
		return "cca-confirm"
	case TraceChannelIdle:
		return "channel-idle"
	case TraceAccessFailure:
		return "access-failure"
	case TraceCancel:
		return "cancel"
	default:
		return fmt.Sprintf("invalid(%d)", tt)
	}
}

// TraceEvent is one step of a channel access attempt. NB, BE and CW are the counters at the time of the event.
type TraceEvent struct {
	Type      TraceType
	Timestamp uint64
	NodeId    NodeId
	NB        uint8
	BE        uint8
	CW        uint8
	Units     uint64       // backoff units drawn, for TraceBackoff
	DelayUs   uint64       // backoff delay, for TraceBackoff
	Status    PhyEnumValue // CCA result, for TraceCcaConfirm
}

type Tracer interface {
	OnCsmaTrace(evt *TraceEvent)
}

// TracerFunc adapts a function to the Tracer interface.
type TracerFunc func(evt *TraceEvent)

func (f TracerFunc) OnCsmaTrace(evt *TraceEvent) {
	f(evt)
}
