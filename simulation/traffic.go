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
package simulation

import (
	"encoding/binary"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/wpansim/wpansim/event"
	"github.com/wpansim/wpansim/mac"
	"github.com/wpansim/wpansim/prng"
	. "github.com/wpansim/wpansim/types"
)

// TrafficConfig describes a periodic data source on one node. Dst InvalidNodeId means broadcast.
type TrafficConfig struct {
	Src      NodeId        `yaml:"src"`
	Dst      NodeId        `yaml:"dst"`
	Interval time.Duration `yaml:"interval"`
	Start    time.Duration `yaml:"start"`
	Size     int           `yaml:"size"`   // MAC payload octets
	Count    int           `yaml:"count"`  // 0 for unlimited
	Jitter   float64       `yaml:"jitter"` // fraction of the interval added at random to each period
}

func (cfg *TrafficConfig) Validate() error {
	if cfg.Src <= 0 || cfg.Src > MaxNodeId {
		return errors.Errorf("invalid traffic source %d", cfg.Src)
	}
	if cfg.Dst < 0 || cfg.Dst > MaxNodeId {
		return errors.Errorf("invalid traffic destination %d", cfg.Dst)
	}
	if cfg.Interval < time.Microsecond {
		return errors.Errorf("traffic interval %v too short", cfg.Interval)
	}
	if cfg.Size < 0 || cfg.Size > mac.MaxPayloadSize {
		return errors.Errorf("traffic payload size %d out of range 0-%d", cfg.Size, mac.MaxPayloadSize)
	}
	if cfg.Count < 0 {
		return errors.Errorf("invalid traffic count %d", cfg.Count)
	}
	if cfg.Jitter < 0 || cfg.Jitter > 1 {
		return errors.Errorf("traffic jitter %v out of range 0-1", cfg.Jitter)
	}
	return nil
}

func (cfg *TrafficConfig) dstAddr() uint16 {
	if cfg.Dst == InvalidNodeId {
		return BroadcastShortAddr
	}
	return NodeIdToShortAddr(cfg.Dst)
}

// TrafficGenerator sends a data frame from its node at every interval, until stopped or Count frames
// were requested.
type TrafficGenerator struct {
	Id       int
	node     *Node
	cfg      TrafficConfig
	rand     *rand.Rand
	timer    *event.Handle
	sent     int
	rejected int
}

func newTrafficGenerator(id int, node *Node, cfg *TrafficConfig) *TrafficGenerator {
	return &TrafficGenerator{
		Id:   id,
		node: node,
		cfg:  *cfg,
		rand: prng.NewRand(prng.GetRootSeed(), node.Id, prng.PurposeTraffic+prng.Purpose(id)),
	}
}

func (tg *TrafficGenerator) Config() TrafficConfig {
	return tg.cfg
}

func (tg *TrafficGenerator) Sent() int {
	return tg.sent
}

// Rejected returns the number of frames the MAC refused, such as on a full queue.
func (tg *TrafficGenerator) Rejected() int {
	return tg.rejected
}

func (tg *TrafficGenerator) IsRunning() bool {
	return tg.timer.IsRunning()
}

func (tg *TrafficGenerator) start() {
	tg.timer = tg.node.S.eq.Schedule(uint64(tg.cfg.Start/time.Microsecond)+tg.jitterUs(), tg.fire)
}

func (tg *TrafficGenerator) Stop() {
	tg.timer.Cancel()
	tg.timer = nil
}

func (tg *TrafficGenerator) jitterUs() uint64 {
	maxJitter := int64(float64(tg.cfg.Interval/time.Microsecond) * tg.cfg.Jitter)
	if maxJitter <= 0 {
		return 0
	}
	return uint64(tg.rand.Int63n(maxJitter + 1))
}

func (tg *TrafficGenerator) fire() {
	tg.timer = nil
	payload := make([]byte, tg.cfg.Size)
	if len(payload) >= 4 {
		binary.BigEndian.PutUint32(payload, uint32(tg.sent))
	}
	if _, err := tg.node.Send(tg.cfg.dstAddr(), payload); err != nil {
		tg.rejected++
		tg.node.log.Debugf("traffic %d: %v", tg.Id, err)
	}
	tg.sent++

	if tg.cfg.Count > 0 && tg.sent >= tg.cfg.Count {
		tg.node.log.Debugf("traffic %d done after %d frames", tg.Id, tg.sent)
		return
	}
	tg.timer = tg.node.S.eq.Schedule(uint64(tg.cfg.Interval/time.Microsecond)+tg.jitterUs(), tg.fire)
}
