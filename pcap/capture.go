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
package pcap

import (
	"github.com/wpansim/wpansim/logger"
	"github.com/wpansim/wpansim/phy"
)

// Capture writes every frame that a PHY starts to transmit into a PCAP file. One Capture is shared by
// all PHYs of a simulation; each PHY is attached once.
type Capture struct {
	file      File
	numFrames int
	err       error
}

func NewCapture(file File) *Capture {
	return &Capture{file: file}
}

// Attach registers the capture as a tracer of p.
func (c *Capture) Attach(p *phy.Phy) {
	p.AddTracer(phy.TracerFunc(func(evt *phy.TraceEvent) {
		if evt.Type != phy.TraceTxBegin || evt.Packet == nil {
			return
		}
		pib := p.Pib()
		c.append(Frame{
			Timestamp: evt.Timestamp,
			Data:      evt.Packet.Data,
			Channel:   evt.Channel,
			Page:      pib.CurrentPage,
			Rssi:      float32(pib.TxPowerDbm()),
		})
	}))
}

func (c *Capture) append(frame Frame) {
	if c.err != nil {
		return
	}
	if err := c.file.AppendFrame(frame); err != nil {
		logger.Errorf("pcap: append frame failed, capture stopped: %v", err)
		c.err = err
		return
	}
	c.numFrames++
}

// NumFrames returns the number of frames written so far.
func (c *Capture) NumFrames() int {
	return c.numFrames
}

// Err returns the first write error, after which the capture stops.
func (c *Capture) Err() error {
	return c.err
}

func (c *Capture) Close() error {
	if err := c.file.Sync(); err != nil {
		_ = c.file.Close()
		return err
	}
	return c.file.Close()
}
