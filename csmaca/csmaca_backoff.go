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
	. "github.com/wpansim/wpansim/types"
)

// Start begins a channel access attempt. A running attempt is abandoned first.
func (c *CsmaCa) Start() {
	if c.active {
		c.log.Debugf("CSMA-CA restarted while active")
		c.timer.Cancel()
	}
	c.active = true
	c.ccaPending = false
	c.nb = 0
	c.stats.NumStarts++

	if c.cfg.Slotted {
		c.cw = 2
		if c.cfg.BatteryLifeExtension {
			c.be = min8(2, c.cfg.MacMinBE)
		} else {
			c.be = c.cfg.MacMinBE
		}
		c.emit(&TraceEvent{Type: TraceStart})
		c.timer = c.sched.Schedule(c.timeToNextBoundary(), c.randomBackoffDelay)
	} else {
		c.be = c.cfg.MacMinBE
		c.emit(&TraceEvent{Type: TraceStart})
		c.timer = c.sched.Schedule(0, c.randomBackoffDelay)
	}
}

// Cancel stops the running attempt without reporting an outcome. A CCA confirm that is still under
// way is ignored when it arrives.
func (c *CsmaCa) Cancel() {
	c.timer.Cancel()
	c.timer = nil
	c.ccaPending = false
	if c.active {
		c.active = false
		c.stats.NumCancels++
		c.emit(&TraceEvent{Type: TraceCancel})
	}
}

// timeToNextBoundary returns the time until the next backoff period boundary, counted from time 0.
func (c *CsmaCa) timeToNextBoundary() uint64 {
	periodUs := c.unitBackoffPeriodUs()
	rem := c.sched.Now() % periodUs
	if rem == 0 {
		return 0
	}
	return periodUs - rem
}

func (c *CsmaCa) randomBackoffDelay() {
	c.timer = nil
	units := uint64(c.rand.Int63n(int64(1) << c.be))
	delayUs := c.symbolsToUs(units * uint64(c.cfg.UnitBackoffPeriod))
	c.stats.NumBackoffs++
	c.stats.BackoffTimeUs += delayUs
	c.log.Tracef("CSMA-CA backoff NB=%d BE=%d: %d units (%d us)", c.nb, c.be, units, delayUs)
	c.emit(&TraceEvent{Type: TraceBackoff, Units: units, DelayUs: delayUs})

	if c.cfg.Slotted {
		c.timer = c.sched.Schedule(delayUs, c.canProceed)
	} else {
		c.timer = c.sched.Schedule(delayUs, c.requestCca)
	}
}

// canProceed checks that the remaining backoff, the CCAs and the frame fit in the contention access
// period. No superframe is modeled, so the CAP has no end and the check always passes.
func (c *CsmaCa) canProceed() {
	c.timer = nil
	c.requestCca()
}

func (c *CsmaCa) requestCca() {
	c.timer = nil
	c.ccaPending = true
	c.stats.NumCca++
	c.emit(&TraceEvent{Type: TraceCcaRequest})
	c.phy.PlmeCcaRequest()
}

// PlmeCcaConfirm takes the PHY's CCA result. Any status other than IDLE counts as a busy channel.
// Confirms for CCAs this attempt did not request are ignored.
func (c *CsmaCa) PlmeCcaConfirm(status PhyEnumValue) {
	if !c.active || !c.ccaPending {
		c.log.Tracef("CSMA-CA: ignoring CCA confirm %v", status)
		return
	}
	c.ccaPending = false
	c.emit(&TraceEvent{Type: TraceCcaConfirm, Status: status})

	if status == PhyIdle {
		if c.cfg.Slotted {
			c.cw--
			if c.cw == 0 {
				c.report(ChannelIdle)
			} else {
				c.requestCca()
			}
		} else {
			c.report(ChannelIdle)
		}
		return
	}

	c.stats.NumCcaBusy++
	if c.cfg.Slotted {
		c.cw = 2
	}
	c.be = min8(c.be+1, c.cfg.MacMaxBE)
	c.nb++
	if c.nb > c.cfg.MacMaxCsmaBackoffs {
		c.report(ChannelAccessFailure)
		return
	}
	if c.cfg.Slotted {
		c.timer = c.sched.Schedule(c.timeToNextBoundary(), c.randomBackoffDelay)
	} else {
		c.timer = c.sched.Schedule(0, c.randomBackoffDelay)
	}
}

func (c *CsmaCa) report(state MacState) {
	c.timer.Cancel()
	c.timer = nil
	c.ccaPending = false
	c.active = false
	switch state {
	case ChannelIdle:
		c.stats.NumIdle++
		c.emit(&TraceEvent{Type: TraceChannelIdle})
	case ChannelAccessFailure:
		c.stats.NumFailures++
		c.log.Debugf("CSMA-CA channel access failure after %d backoffs", c.nb)
		c.emit(&TraceEvent{Type: TraceAccessFailure})
	}
	c.macState(state)
}

func min8(a, b uint8) uint8 {
	if a < b {
		return a
	}
	return b
}
