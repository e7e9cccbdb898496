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
	"fmt"

	"github.com/pkg/errors"

	"github.com/wpansim/wpansim/csmaca"
	"github.com/wpansim/wpansim/dissectpkt/wpan"
	"github.com/wpansim/wpansim/energy"
	"github.com/wpansim/wpansim/logger"
	"github.com/wpansim/wpansim/mac"
	"github.com/wpansim/wpansim/phy"
	"github.com/wpansim/wpansim/radiomodel"
	. "github.com/wpansim/wpansim/types"
)

// SenseResult is the outcome of a CCA or ED run on a node's PHY.
type SenseResult struct {
	Timestamp uint64
	Status    PhyEnumValue
	Level     uint8 // ED only
}

// RxRecord describes a data frame a node's MAC delivered.
type RxRecord struct {
	Timestamp uint64
	Src       uint16
	Seq       uint8
	Length    int
	SinrDb    DbValue
}

type phyCounters struct {
	TxBegin, TxEnd, TxDrop uint64
	RxBegin, RxEnd, RxDrop uint64
}

const maxRxRecords = 16

// Node is one simulated 802.15.4 device: PHY, CSMA-CA and MAC attached to the shared channel.
type Node struct {
	S      *Simulation
	Id     NodeId
	cfg    NodeConfig
	Phy    *phy.Phy
	Csma   *csmaca.CsmaCa
	Mac    *mac.Mac
	radio  *radiomodel.RadioNode
	energy *energy.NodeEnergy
	log    *logger.NodeLogger

	counters  phyCounters
	rxRecords []RxRecord
	lastCca   *SenseResult
	lastEd    *SenseResult
	lastSet   PhyEnumValue
	traffic   []*TrafficGenerator
}

func newNode(s *Simulation, cfg *NodeConfig) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s.channel.Node(cfg.ID) != nil {
		return nil, errors.Errorf("node %d already attached to the channel", cfg.ID)
	}

	n := &Node{
		S:   s,
		Id:  cfg.ID,
		cfg: *cfg,
		log: logger.NewNodeLogger(cfg.ID, s.eq.Now),
	}
	n.Phy = phy.New(n.Id, s.eq, cfg.Phy)
	n.Phy.SetNoisePsd(s.channel.NoisePsd())
	if s.cfg.ErrorModel {
		n.Phy.SetErrorModel(radiomodel.NewOqpskErrorModel())
	}
	n.radio = s.channel.Attach(n.Phy, &radiomodel.RadioNodeConfig{
		X:          cfg.X,
		Y:          cfg.Y,
		Z:          cfg.Z,
		RadioRange: cfg.RadioRange,
	})
	n.Csma = csmaca.New(n.Id, s.eq, n.Phy, cfg.Csma)
	n.Mac = mac.New(n.Id, s.eq, n.Phy, n.Csma, cfg.Mac)

	// the MAC routes CCA confirms to CSMA-CA; the node also keeps the latest result
	n.Phy.SetPlmeCcaConfirmCallback(n.onCcaConfirm)
	n.Phy.SetPlmeEdConfirmCallback(n.onEdConfirm)
	n.Phy.SetPlmeSetAttributeConfirmCallback(n.onSetAttributeConfirm)
	n.Mac.SetDataConfirmCallback(n.onDataConfirm)
	n.Mac.SetDataIndicationCallback(n.onDataIndication)

	n.Phy.AddTracer(n)
	if s.cfg.EnergyStats {
		n.energy = s.energyAnalyser.AddNode(n.Id, s.eq.Now(), energy.RadioStateOf(n.Phy.State()))
		n.Phy.AddTracer(n.energy)
	}
	s.metrics.AttachPhy(n.Phy)
	s.metrics.AttachCsma(n.Csma)
	if s.capture != nil {
		s.capture.Attach(n.Phy)
	}
	n.log.Debugf("node created at (%d,%d,%d), %v", cfg.X, cfg.Y, cfg.Z, n.Phy.PhyOption())
	return n, nil
}

func (node *Node) String() string {
	return fmt.Sprintf("Node<%d>", node.Id)
}

func (node *Node) Config() NodeConfig {
	return node.cfg
}

// Position returns the node position in grid units.
func (node *Node) Position() (int, int, int) {
	return int(node.radio.X), int(node.radio.Y), int(node.radio.Z)
}

func (node *Node) setPosition(x, y, z int) {
	node.radio.SetNodePos(x, y, z)
	node.cfg.X, node.cfg.Y, node.cfg.Z = x, y, z
}

// Send queues a data frame with payload for the short address dst.
func (node *Node) Send(dst uint16, payload []byte) (uint8, error) {
	return node.Mac.DataRequest(dst, payload)
}

// SetTrxState requests a transceiver state change. The outcome shows in the PHY state, possibly after
// the turnaround time.
func (node *Node) SetTrxState(state PhyEnumValue) error {
	switch state {
	case PhyRxOn, PhyTxOn, PhyTrxOff, PhyForceTrxOff:
	default:
		return errors.Errorf("invalid transceiver state %v", state)
	}
	node.Phy.PlmeSetTRXStateRequest(state)
	return nil
}

// RequestCca starts a clear channel assessment. The result is available from LastCca once it completes.
func (node *Node) RequestCca() {
	node.Phy.PlmeCcaRequest()
}

// RequestEd starts an energy detection. The result is available from LastEd once it completes.
func (node *Node) RequestEd() {
	node.Phy.PlmeEdRequest()
}

func (node *Node) LastCca() *SenseResult {
	return node.lastCca
}

func (node *Node) LastEd() *SenseResult {
	return node.lastEd
}

// SetPibAttribute sets one PHY PIB attribute and returns the PHY's status.
func (node *Node) SetPibAttribute(id PibAttributeId, attrs *phy.PibAttributes) PhyEnumValue {
	node.lastSet = PhyUnspecified
	node.Phy.PlmeSetAttributeRequest(id, attrs)
	return node.lastSet
}

// RxRecords returns the most recent frames received by the node, oldest first.
func (node *Node) RxRecords() []RxRecord {
	return append([]RxRecord(nil), node.rxRecords...)
}

// Counters returns the node's PHY, CSMA-CA, MAC and radio counters.
func (node *Node) Counters() NodeCounters {
	cs := node.Csma.Stats()
	ms := node.Mac.Stats()
	rs := node.radio.Stats()
	return NodeCounters{
		"phy.TxBegin":                node.counters.TxBegin,
		"phy.TxEnd":                  node.counters.TxEnd,
		"phy.TxDrop":                 node.counters.TxDrop,
		"phy.RxBegin":                node.counters.RxBegin,
		"phy.RxEnd":                  node.counters.RxEnd,
		"phy.RxDrop":                 node.counters.RxDrop,
		"csma.Starts":                cs.NumStarts,
		"csma.Backoffs":              cs.NumBackoffs,
		"csma.Cca":                   cs.NumCca,
		"csma.CcaBusy":               cs.NumCcaBusy,
		"csma.ChannelIdle":           cs.NumIdle,
		"csma.AccessFailures":        cs.NumFailures,
		"csma.Cancels":               cs.NumCancels,
		"csma.BackoffTimeUs":         cs.BackoffTimeUs,
		"mac.TxRequests":             ms.TxRequests,
		"mac.TxSuccess":              ms.TxSuccess,
		"mac.TxChannelAccessFailure": ms.TxChannelAccessFailure,
		"mac.TxAborted":              ms.TxAborted,
		"mac.TxCsmaRetries":          ms.TxCsmaRetries,
		"mac.TxQueueDrops":           ms.TxQueueDrops,
		"mac.TxBytes":                ms.TxBytes,
		"mac.TxDelaySumUs":           ms.TxDelaySumUs,
		"mac.RxFrames":               ms.RxFrames,
		"mac.RxBytes":                ms.RxBytes,
		"mac.RxFiltered":             ms.RxFiltered,
		"mac.RxFcsErrors":            ms.RxFcsErrors,
		"radio.NumTx":                rs.NumTx,
		"radio.NumBytesTx":           rs.NumBytesTx,
		"radio.NumRx":                rs.NumRx,
	}
}

// OnPhyTrace implements phy.Tracer.
func (node *Node) OnPhyTrace(evt *phy.TraceEvent) {
	switch evt.Type {
	case phy.TraceTxBegin:
		node.counters.TxBegin++
		node.S.onFrameOnAir(evt.Channel, node.Phy.PhyOption().TxTimeUs(evt.Packet.Size()))
	case phy.TraceTxEnd:
		node.counters.TxEnd++
	case phy.TraceTxDrop:
		node.counters.TxDrop++
	case phy.TraceRxBegin:
		node.counters.RxBegin++
	case phy.TraceRxEnd:
		node.counters.RxEnd++
	case phy.TraceRxDrop:
		node.counters.RxDrop++
	}
}

func (node *Node) onCcaConfirm(status PhyEnumValue) {
	node.lastCca = &SenseResult{Timestamp: node.S.eq.Now(), Status: status}
	node.Csma.PlmeCcaConfirm(status)
}

func (node *Node) onEdConfirm(status PhyEnumValue, level uint8) {
	node.lastEd = &SenseResult{Timestamp: node.S.eq.Now(), Status: status, Level: level}
}

func (node *Node) onSetAttributeConfirm(status PhyEnumValue, id PibAttributeId) {
	node.lastSet = status
}

func (node *Node) onDataConfirm(seq uint8, status mac.TxStatus) {
	node.log.Debugf("data confirm seq=%d: %v", seq, status)
	node.S.metrics.ObserveMacTx(status)
}

func (node *Node) onDataIndication(frame *wpan.MacFrame, sinr float64) {
	rec := RxRecord{
		Timestamp: node.S.eq.Now(),
		Src:       frame.SrcAddrShort,
		Seq:       frame.Seq,
		Length:    len(frame.Payload),
		SinrDb:    RatioToDb(sinr),
	}
	node.log.Debugf("rx from %04x seq=%d len=%d", rec.Src, rec.Seq, rec.Length)
	if len(node.rxRecords) >= maxRxRecords {
		node.rxRecords = node.rxRecords[1:]
	}
	node.rxRecords = append(node.rxRecords, rec)
	node.S.metrics.IncMacRx()
}

// exit stops the node's traffic, aborts its queued frames and detaches it from the channel.
func (node *Node) exit() {
	for _, tg := range node.traffic {
		tg.Stop()
	}
	node.traffic = nil
	node.Mac.Stop()
	node.S.channel.Detach(node.Id)
	if node.energy != nil {
		node.S.energyAnalyser.DeleteNode(node.Id)
	}
	node.log.Close()
}
