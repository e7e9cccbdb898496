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

// Package mac implements a minimal unslotted IEEE 802.15.4 data MAC on top of the PHY and CSMA-CA:
// a transmit queue, channel access with retries, data frame encoding and receive address filtering.
package mac

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/wpansim/wpansim/csmaca"
	"github.com/wpansim/wpansim/dissectpkt/wpan"
	"github.com/wpansim/wpansim/event"
	"github.com/wpansim/wpansim/logger"
	"github.com/wpansim/wpansim/phy"
	. "github.com/wpansim/wpansim/types"
)

const (
	DefaultMaxFrameRetries        = 3
	DefaultQueueSize              = 16
	BroadcastPanId         uint16 = 0xffff

	// MaxPayloadSize is the largest payload of a data frame with short addresses.
	MaxPayloadSize = phy.MaxPhyPacketSize - wpan.MinDataFrameHeaderLength - wpan.FcsLength
)

var (
	ErrQueueFull     = errors.New("tx queue full")
	ErrFrameTooLarge = errors.New("frame too large")
)

// Config holds the MAC parameters of a node.
type Config struct {
	PanId           uint16 `yaml:"pan-id"`
	MaxFrameRetries uint8  `yaml:"max-frame-retries"` // channel access attempts after the first one
	QueueSize       int    `yaml:"queue-size"`
	RxOnWhenIdle    bool   `yaml:"rx-on-when-idle"`
}

func DefaultConfig() *Config {
	return &Config{
		PanId:           DefaultPanId,
		MaxFrameRetries: DefaultMaxFrameRetries,
		QueueSize:       DefaultQueueSize,
		RxOnWhenIdle:    true,
	}
}

func (cfg *Config) Validate() error {
	if cfg.QueueSize <= 0 {
		return errors.Errorf("invalid queue size %d", cfg.QueueSize)
	}
	if cfg.MaxFrameRetries > 7 {
		return errors.Errorf("max frame retries %d exceeds 7", cfg.MaxFrameRetries)
	}
	return nil
}

// TxStatus is the outcome of a data request.
type TxStatus uint8

const (
	TxSuccess TxStatus = iota
	TxChannelAccessFailure
	TxAborted
)

func (s TxStatus) String() string {
	switch s {
	case TxSuccess:
		return "SUCCESS"
	case TxChannelAccessFailure:
		return "CHANNEL_ACCESS_FAILURE"
	case TxAborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("INVALID(%d)", s)
	}
}

type (
	DataConfirmCallback    func(seq uint8, status TxStatus)
	DataIndicationCallback func(frame *wpan.MacFrame, sinr float64)
)

// Stats counts MAC activity since creation.
type Stats struct {
	TxRequests             uint64
	TxSuccess              uint64
	TxChannelAccessFailure uint64
	TxAborted              uint64
	TxCsmaRetries          uint64
	TxQueueDrops           uint64
	TxBytes                uint64
	TxDelaySumUs           uint64 // request to confirm, over all confirmed frames
	RxFrames               uint64
	RxBytes                uint64
	RxFiltered             uint64
	RxFcsErrors            uint64
}

type txItem struct {
	seq         uint8
	data        []byte
	requestTime uint64
	retries     uint8
}

// Mac drives one PHY and its CSMA-CA engine. All methods must be called from the scheduler's goroutine.
type Mac struct {
	id        NodeId
	shortAddr uint16
	sched     event.Scheduler
	phy       *phy.Phy
	csma      *csmaca.CsmaCa
	cfg       Config
	log       *logger.NodeLogger

	state          MacState
	waitingRxOn    bool
	queue          []*txItem
	seq            uint8
	stats          Stats
	dataConfirm    DataConfirmCallback
	dataIndication DataIndicationCallback
}

// New creates the MAC of node id and takes over the PHY and CSMA-CA callbacks.
func New(id NodeId, sched event.Scheduler, p *phy.Phy, csma *csmaca.CsmaCa, cfg *Config) *Mac {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger.AssertNil(cfg.Validate())
	m := &Mac{
		id:        id,
		shortAddr: NodeIdToShortAddr(id),
		sched:     sched,
		phy:       p,
		csma:      csma,
		cfg:       *cfg,
		log:       logger.NewNodeLogger(id, sched.Now),
		state:     MacIdle,
	}
	m.SetDataConfirmCallback(nil)
	m.SetDataIndicationCallback(nil)

	p.SetPlmeCcaConfirmCallback(csma.PlmeCcaConfirm)
	p.SetPdDataConfirmCallback(m.onPdDataConfirm)
	p.SetPdDataIndicationCallback(m.onPdDataIndication)
	p.SetPlmeSetTrxStateConfirmCallback(m.onPlmeSetTrxStateConfirm)
	csma.SetMacStateCallback(m.onCsmaState)

	if !m.cfg.RxOnWhenIdle {
		p.PlmeSetTRXStateRequest(PhyTrxOff)
	}
	return m
}

func (m *Mac) Id() NodeId {
	return m.id
}

func (m *Mac) ShortAddr() uint16 {
	return m.shortAddr
}

func (m *Mac) State() MacState {
	return m.state
}

func (m *Mac) Config() Config {
	return m.cfg
}

func (m *Mac) Stats() Stats {
	return m.stats
}

// QueueLen returns the number of frames waiting, including the one in progress.
func (m *Mac) QueueLen() int {
	return len(m.queue)
}

func (m *Mac) SetDataConfirmCallback(cb DataConfirmCallback) {
	if cb == nil {
		cb = func(uint8, TxStatus) {}
	}
	m.dataConfirm = cb
}

func (m *Mac) SetDataIndicationCallback(cb DataIndicationCallback) {
	if cb == nil {
		cb = func(*wpan.MacFrame, float64) {}
	}
	m.dataIndication = cb
}

// DataRequest queues a data frame with payload for dst and returns its sequence number.
func (m *Mac) DataRequest(dst uint16, payload []byte) (uint8, error) {
	if len(payload) > MaxPayloadSize {
		return 0, errors.Wrapf(ErrFrameTooLarge, "payload of %d bytes", len(payload))
	}
	if len(m.queue) >= m.cfg.QueueSize {
		m.stats.TxQueueDrops++
		return 0, ErrQueueFull
	}

	seq := m.seq
	m.seq++
	item := &txItem{
		seq:         seq,
		data:        wpan.BuildDataFrame(seq, m.cfg.PanId, dst, m.shortAddr, payload),
		requestTime: m.sched.Now(),
	}
	m.queue = append(m.queue, item)
	m.stats.TxRequests++
	m.log.Debugf("data request seq=%d dst=%04x len=%d", seq, dst, len(item.data))

	if m.state == MacIdle {
		m.startChannelAccess()
	}
	return seq, nil
}

// Stop aborts all queued frames and switches the radio off.
func (m *Mac) Stop() {
	m.csma.Cancel()
	for len(m.queue) > 0 {
		m.finishHead(TxAborted)
	}
	m.state = MacIdle
	m.waitingRxOn = false
	m.phy.PlmeSetTRXStateRequest(PhyForceTrxOff)
}

func (m *Mac) startChannelAccess() {
	if len(m.queue) == 0 {
		m.state = MacIdle
		if !m.cfg.RxOnWhenIdle {
			m.phy.PlmeSetTRXStateRequest(PhyTrxOff)
		}
		return
	}

	m.state = MacCsma
	switch m.phy.State() {
	case PhyTrxOff, PhyTxOn:
		m.waitingRxOn = true
		m.phy.PlmeSetTRXStateRequest(PhyRxOn)
	default:
		m.csma.Start()
	}
}

func (m *Mac) onPlmeSetTrxStateConfirm(status PhyEnumValue) {
	switch {
	case m.state == MacCsma && m.waitingRxOn:
		if status == PhySuccess || status == PhyRxOn {
			m.waitingRxOn = false
			m.csma.Start()
		}
	case m.state == SetPhyTxOn:
		if status == PhySuccess || status == PhyTxOn {
			head := m.queue[0]
			m.state = MacSending
			m.phy.PdDataRequest(len(head.data), phy.NewPacket(head.data))
		}
	}
}

func (m *Mac) onCsmaState(state MacState) {
	logger.AssertTrue(m.state == MacCsma, "CSMA outcome %v in MAC state %v", state, m.state)
	switch state {
	case ChannelIdle:
		m.state = SetPhyTxOn
		m.phy.PlmeSetTRXStateRequest(PhyTxOn)
	case ChannelAccessFailure:
		head := m.queue[0]
		if head.retries < m.cfg.MaxFrameRetries {
			head.retries++
			m.stats.TxCsmaRetries++
			m.log.Debugf("channel access failure seq=%d, retry %d", head.seq, head.retries)
			m.startChannelAccess()
			return
		}
		m.finishHead(TxChannelAccessFailure)
		m.startChannelAccess()
	default:
		m.log.Panicf("unexpected CSMA outcome %v", state)
	}
}

func (m *Mac) onPdDataConfirm(status PhyEnumValue) {
	if m.state != MacSending {
		return
	}
	if status == PhySuccess {
		m.finishHead(TxSuccess)
	} else {
		m.log.Debugf("transmission failed: %v", status)
		m.finishHead(TxAborted)
	}
	m.startChannelAccess()
}

// finishHead removes the frame at the head of the queue and reports its outcome.
func (m *Mac) finishHead(status TxStatus) {
	head := m.queue[0]
	m.queue = m.queue[1:]
	switch status {
	case TxSuccess:
		m.stats.TxSuccess++
		m.stats.TxBytes += uint64(len(head.data))
	case TxChannelAccessFailure:
		m.stats.TxChannelAccessFailure++
	case TxAborted:
		m.stats.TxAborted++
	}
	m.stats.TxDelaySumUs += m.sched.Now() - head.requestTime
	m.log.Debugf("data confirm seq=%d %v", head.seq, status)
	m.dataConfirm(head.seq, status)
}

func (m *Mac) onPdDataIndication(psduLength int, pkt *phy.Packet, sinr float64) {
	frame, err := wpan.Dissect(pkt.Data)
	if err != nil || !frame.FcsOk {
		m.stats.RxFcsErrors++
		return
	}
	if !m.accepts(frame) {
		m.stats.RxFiltered++
		return
	}
	m.stats.RxFrames++
	m.stats.RxBytes += uint64(psduLength)
	m.log.Tracef("rx %v sinr=%.1f dB", frame, RatioToDb(sinr))
	m.dataIndication(frame, sinr)
}

// accepts applies the 802.15.4 receive filter for data frames with short addresses.
func (m *Mac) accepts(frame *wpan.MacFrame) bool {
	if frame.FrameControl.FrameType() != wpan.FrameTypeData ||
		frame.FrameControl.DestAddrMode() != wpan.AddrModeShort {
		return false
	}
	if frame.DstPanId != m.cfg.PanId && frame.DstPanId != BroadcastPanId {
		return false
	}
	return frame.DstAddrShort == m.shortAddr || frame.DstAddrShort == BroadcastShortAddr
}
