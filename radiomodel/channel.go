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

package radiomodel

import (
	"sort"

	"github.com/wpansim/wpansim/event"
	"github.com/wpansim/wpansim/logger"
	"github.com/wpansim/wpansim/phy"
	"github.com/wpansim/wpansim/prng"
	. "github.com/wpansim/wpansim/types"
)

// Channel delivers every transmission to all other attached radios, after the propagation delay and with
// the power reduced by path loss and fading.
type Channel struct {
	sched  event.Scheduler
	params *ChannelParams
	nodes  map[NodeId]*RadioNode
	fading *fadingModel
}

// NewChannel creates a channel. A nil params selects the ITU indoor model.
func NewChannel(sched event.Scheduler, params *ChannelParams) *Channel {
	if params == nil {
		var err error
		params, err = NewChannelParams(ModelItu)
		logger.AssertNil(err)
	}
	return &Channel{
		sched:  sched,
		params: params,
		nodes:  map[NodeId]*RadioNode{},
		fading: newFadingModel(int64(prng.GetRootSeed())),
	}
}

func (ch *Channel) Params() *ChannelParams {
	return ch.params
}

// Attach adds a radio at the position in cfg and makes the channel its transmit medium.
func (ch *Channel) Attach(r Receiver, cfg *RadioNodeConfig) *RadioNode {
	_, exists := ch.nodes[r.Id()]
	logger.AssertFalse(exists, "node %d already attached", r.Id())
	rn := newRadioNode(r, cfg)
	ch.nodes[rn.Id] = rn
	r.SetChannel(ch)
	logger.Debugf("channel: attached node %d at (%v,%v,%v)", rn.Id, rn.X, rn.Y, rn.Z)
	return rn
}

// Detach removes a radio. Signals already under way to it are not delivered.
func (ch *Channel) Detach(id NodeId) {
	rn, ok := ch.nodes[id]
	if !ok {
		return
	}
	delete(ch.nodes, id)
	rn.receiver.SetChannel(nil)
}

// Node returns the attached radio with the given id, or nil.
func (ch *Channel) Node(id NodeId) *RadioNode {
	return ch.nodes[id]
}

// NodeIds returns the ids of all attached radios in ascending order.
func (ch *Channel) NodeIds() []NodeId {
	ids := make([]NodeId, 0, len(ch.nodes))
	for id := range ch.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// NoisePsd returns the noise power spectral density seen by the receivers, in W/Hz: thermal noise
// raised by the receiver noise figure.
func (ch *Channel) NoisePsd() float64 {
	return thermalNoisePsd() * DbToRatio(ch.params.NoiseFigureDb)
}

// RxPowerDbm returns the power received at dst when src transmits at txPowerDbm, or MinusInfinityDbm if
// the signal does not reach dst.
func (ch *Channel) RxPowerDbm(src *RadioNode, dst *RadioNode, txPowerDbm DbValue) DbValue {
	dist := src.GetDistanceTo(dst)
	if ch.params.IsDiscLimit && dist > src.RadioRange {
		return MinusInfinityDbm
	}
	rxPowerDbm := txPowerDbm - computePathLossDb(dist, ch.params) - ch.fading.computeFading(src, dst, ch.params)
	if rxPowerDbm < ch.params.RxPowerMinDbm {
		return MinusInfinityDbm
	}
	return rxPowerDbm
}

// StartTx implements phy.Channel.
func (ch *Channel) StartTx(params *phy.SignalParams) {
	src := ch.nodes[params.SrcId]
	logger.AssertNotNil(src, "transmitter %d not attached", params.SrcId)

	src.stats.NumTx++
	if params.Packet != nil {
		src.stats.NumBytesTx += uint64(params.Packet.Size())
	}
	txPowerDbm := WattToDbm(params.PowerW)

	for _, id := range ch.NodeIds() {
		if id == params.SrcId {
			continue
		}
		dst := ch.nodes[id]
		rxPowerDbm := ch.RxPowerDbm(src, dst, txPowerDbm)
		if rxPowerDbm == MinusInfinityDbm {
			continue
		}
		rxParams := *params
		rxParams.PowerW = DbmToWatt(rxPowerDbm)
		ch.sched.Schedule(ch.params.PropagationDelayUs, func() {
			if ch.nodes[dst.Id] != dst {
				return
			}
			dst.stats.NumRx++
			dst.receiver.StartRx(&rxParams)
		})
	}
}
