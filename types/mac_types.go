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

// MacState is the state of the MAC channel access machinery. The CSMA-CA engine only ever
// reports ChannelIdle and ChannelAccessFailure; the other values are used by the MAC itself.
type MacState uint8

const (
	MacIdle              MacState = 0
	MacCsma              MacState = 1
	MacSending           MacState = 2
	ChannelAccessFailure MacState = 3
	ChannelIdle          MacState = 4
	SetPhyTxOn           MacState = 5
)

func (s MacState) String() string {
	switch s {
	case MacIdle:
		return "MAC_IDLE"
	case MacCsma:
		return "MAC_CSMA"
	case MacSending:
		return "MAC_SENDING"
	case ChannelAccessFailure:
		return "CHANNEL_ACCESS_FAILURE"
	case ChannelIdle:
		return "CHANNEL_IDLE"
	case SetPhyTxOn:
		return "SET_PHY_TX_ON"
	default:
		return "INVALID"
	}
}
