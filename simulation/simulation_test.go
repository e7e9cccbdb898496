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
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpansim/wpansim/phy"
	"github.com/wpansim/wpansim/progctx"
	. "github.com/wpansim/wpansim/types"
)

func newTestSimulation(t *testing.T) *Simulation {
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Speed = MaxSimulateSpeed
	cfg.Seed = 1234
	cfg.ErrorModel = false
	s, err := NewSimulation(progctx.New(context.Background()), cfg, nil)
	require.Nil(t, err)
	return s
}

func addNodeAt(t *testing.T, s *Simulation, id NodeId, x, y int) *Node {
	cfg := DefaultNodeConfig()
	cfg.ID = id
	cfg.X, cfg.Y = x, y
	cfg.IsAutoPlaced = false
	node, err := s.AddNode(&cfg)
	require.Nil(t, err)
	return node
}

func TestSimulationAddDeleteNode(t *testing.T) {
	s := newTestSimulation(t)

	cfg := DefaultNodeConfig()
	n1, err := s.AddNode(&cfg)
	assert.Nil(t, err)
	assert.Equal(t, 1, n1.Id)
	x, y, _ := n1.Position()
	assert.Equal(t, 100, x)
	assert.Equal(t, 100, y)

	cfg = DefaultNodeConfig()
	n2, err := s.AddNode(&cfg)
	assert.Nil(t, err)
	assert.Equal(t, 2, n2.Id)
	x, _, _ = n2.Position()
	assert.Equal(t, 200, x)

	addNodeAt(t, s, 5, 500, 500)
	cfg = DefaultNodeConfig()
	cfg.ID = 5
	_, err = s.AddNode(&cfg)
	assert.NotNil(t, err)

	assert.Equal(t, []NodeId{1, 2, 5}, s.GetNodes())
	assert.Equal(t, PhyRxOn, s.Node(5).Phy.State())
	assert.Equal(t, s.GetConfig().Phy.Channel, s.Node(5).Phy.CurrentChannel())

	assert.Nil(t, s.DeleteNode(2))
	assert.NotNil(t, s.DeleteNode(2))
	assert.Nil(t, s.Node(2))
	assert.Nil(t, s.Channel().Node(2))
	assert.Equal(t, []NodeId{1, 5}, s.GetNodes())

	// freed id is handed out again
	cfg = DefaultNodeConfig()
	n, err := s.AddNode(&cfg)
	assert.Nil(t, err)
	assert.Equal(t, 2, n.Id)
}

func TestSimulationTrafficDelivery(t *testing.T) {
	s := newTestSimulation(t)
	addNodeAt(t, s, 1, 100, 100)
	n2 := addNodeAt(t, s, 2, 200, 100)

	tg, err := s.AddTraffic(&TrafficConfig{
		Src:      1,
		Dst:      2,
		Interval: 100 * time.Millisecond,
		Start:    10 * time.Millisecond,
		Size:     10,
		Count:    5,
	})
	require.Nil(t, err)
	assert.True(t, tg.IsRunning())

	assert.Nil(t, s.Go(time.Second))
	assert.Equal(t, uint64(1000000), s.Now())
	assert.Equal(t, 5, tg.Sent())
	assert.Equal(t, 0, tg.Rejected())
	assert.False(t, tg.IsRunning())

	recs := n2.RxRecords()
	require.Equal(t, 5, len(recs))
	for i, rec := range recs {
		assert.Equal(t, NodeIdToShortAddr(1), rec.Src)
		assert.Equal(t, 10, rec.Length)
		assert.Equal(t, uint8(i), rec.Seq-recs[0].Seq)
	}

	c1 := s.Node(1).Counters()
	assert.Equal(t, uint64(5), c1["mac.TxSuccess"])
	assert.Equal(t, uint64(5), c1["phy.TxBegin"])
	assert.Equal(t, uint64(5), c1["csma.ChannelIdle"])
	c2 := n2.Counters()
	assert.Equal(t, uint64(5), c2["mac.RxFrames"])
	assert.Equal(t, uint64(5), c2["phy.RxEnd"])

	kpi := s.GetKpiManager().Data()
	assert.Equal(t, uint64(5), kpi.Channels[DefaultChannel].NumFrames)
	assert.True(t, kpi.Channels[DefaultChannel].TxPercentage > 0)
	assert.Equal(t, 0.0, kpi.Mac.AccessFailurePercentage[1])
}

func TestSimulationTrafficValidation(t *testing.T) {
	s := newTestSimulation(t)
	addNodeAt(t, s, 1, 100, 100)

	_, err := s.AddTraffic(&TrafficConfig{Src: 3, Interval: time.Second})
	assert.NotNil(t, err)
	_, err = s.AddTraffic(&TrafficConfig{Src: 1, Interval: time.Second, Size: 200})
	assert.NotNil(t, err)
	_, err = s.AddTraffic(&TrafficConfig{Src: 1, Interval: 0})
	assert.NotNil(t, err)

	tg, err := s.AddTraffic(&TrafficConfig{Src: 1, Interval: 50 * time.Millisecond, Size: 4})
	require.Nil(t, err)
	assert.Nil(t, s.Go(120*time.Millisecond))
	assert.Equal(t, 3, tg.Sent()) // at 0, 50 and 100 ms
	assert.Nil(t, s.StopTraffic(tg.Id))
	assert.False(t, tg.IsRunning())
	assert.NotNil(t, s.StopTraffic(99))

	assert.Nil(t, s.Go(time.Second))
	assert.Equal(t, 3, tg.Sent())
}

func TestSimulationStopWritesOutputFiles(t *testing.T) {
	s := newTestSimulation(t)
	addNodeAt(t, s, 1, 100, 100)
	addNodeAt(t, s, 2, 200, 100)
	_, err := s.AddTraffic(&TrafficConfig{Src: 1, Dst: 2, Interval: 100 * time.Millisecond, Size: 20, Count: 3})
	require.Nil(t, err)
	assert.Nil(t, s.Go(2*time.Second))

	s.Execute(s.Stop)
	assert.True(t, s.IsStopped())
	assert.Equal(t, 0, len(s.GetNodes()))
	assert.Equal(t, CommandInterruptedError, s.Go(time.Second))

	dir := s.GetConfig().OutputDir
	for _, name := range []string{"0_kpi.json", "0_wpan.pcap", "0.txt", "0_nodes.txt", "0_stats.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.Nil(t, err, name)
	}

	data, err := os.ReadFile(filepath.Join(dir, "0_kpi.json"))
	require.Nil(t, err)
	var kpi Kpi
	require.Nil(t, json.Unmarshal(data, &kpi))
	assert.Equal(t, s.RunId(), kpi.RunId)
	assert.Equal(t, uint64(2000000), kpi.TimeUs.PeriodUs)
	assert.Equal(t, uint64(3), kpi.Channels[DefaultChannel].NumFrames)
	assert.Equal(t, uint64(3), kpi.Counters[1]["mac.TxSuccess"])
	assert.Equal(t, uint64(3), kpi.Counters[2]["mac.RxFrames"])
}

func TestSimulationNodeNoiseFromChannel(t *testing.T) {
	s := newTestSimulation(t)
	node := addNodeAt(t, s, 1, 100, 100)
	assert.InDelta(t, s.Channel().NoisePsd()*2e6, node.Phy.NoisePowerW(), 1e-25)
}

func TestSimulationStatsLog(t *testing.T) {
	s := newTestSimulation(t)
	addNodeAt(t, s, 1, 100, 100)
	addNodeAt(t, s, 2, 200, 100)
	assert.Nil(t, s.Go(50*time.Millisecond))
	s.Execute(func() {
		assert.Nil(t, s.Node(2).SetTrxState(PhyTrxOff))
	})
	assert.Nil(t, s.Go(50*time.Millisecond))
	s.Execute(s.Stop)

	data, err := os.ReadFile(filepath.Join(s.GetConfig().OutputDir, "0_stats.csv"))
	require.Nil(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Equal(t, 5, len(lines))
	assert.Equal(t, "timeSec,nNodes,nRxOn,nBusyRx,nTxOn,nBusyTx,nTrxOff,nMacBusy,nQueued", lines[0])
	assert.Equal(t, "    0.000000,   0,  0,  0,  0,  0,  0,  0,  0", lines[1])
	assert.Equal(t, "    0.010000,   2,  2,  0,  0,  0,  0,  0,  0", lines[2])
	assert.Equal(t, "    0.060000,   2,  1,  0,  0,  0,  1,  0,  0", lines[3])
	assert.Equal(t, "    0.100000,   2,  1,  0,  0,  0,  1,  0,  0", lines[4])
}

func TestSimulationGoInterruptedByContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	ctx := progctx.New(context.Background())
	s, err := NewSimulation(ctx, cfg, nil)
	require.Nil(t, err)

	ctx.Cancel("test")
	assert.Equal(t, CommandInterruptedError, s.Go(time.Hour))
}

func TestSimulationSetSpeed(t *testing.T) {
	s := newTestSimulation(t)
	assert.NotNil(t, s.SetSpeed(0))
	assert.Nil(t, s.SetSpeed(2))
	assert.Equal(t, 2.0, s.GetSpeed())
	assert.Nil(t, s.SetSpeed(MaxSimulateSpeed*10))
	assert.True(t, s.GetConfig().IsMaxSpeed())
}

func TestNodeSenseAndPib(t *testing.T) {
	s := newTestSimulation(t)
	node := addNodeAt(t, s, 1, 100, 100)

	node.RequestCca()
	node.RequestEd()
	assert.Nil(t, node.LastCca())
	assert.Nil(t, s.Go(time.Millisecond))
	require.NotNil(t, node.LastCca())
	assert.Equal(t, PhyIdle, node.LastCca().Status)
	require.NotNil(t, node.LastEd())
	assert.Equal(t, PhySuccess, node.LastEd().Status)
	assert.Equal(t, uint8(0), node.LastEd().Level)

	attrs := node.Phy.Pib()
	attrs.CurrentChannel = 15
	assert.Equal(t, PhySuccess, node.SetPibAttribute(PhyCurrentChannel, &attrs))
	assert.Equal(t, ChannelId(15), node.Phy.CurrentChannel())
	attrs.CurrentChannel = 30
	assert.Equal(t, PhyInvalidParameter, node.SetPibAttribute(PhyCurrentChannel, &attrs))
	assert.Equal(t, PhyReadOnly, node.SetPibAttribute(PhyShrDuration, &attrs))

	assert.NotNil(t, node.SetTrxState(PhyBusy))
	assert.Nil(t, node.SetTrxState(PhyTrxOff))
	assert.Equal(t, PhyTrxOff, node.Phy.State())
}

const testScenario = `
network:
  pos-shift: [10, 20, 0]
  radio-model: outdoor
  seed: 42
phy:
  rx-sensitivity: -95
csma:
  max-backoffs: 5
nodes:
  - id: 1
    pos: [0, 0, 0]
  - id: 2
    pos: [100, 0, 0]
    channel: 12
    radio-range: 300
traffic:
  - src: 1
    dst: 2
    interval: 200ms
    size: 8
    count: 2
duration: 5s
`

func TestScenarioParseAndImport(t *testing.T) {
	base := DefaultConfig()
	cf, err := ParseYamlConfig([]byte(testScenario), base)
	require.Nil(t, err)
	assert.Equal(t, 5*time.Second, cf.Duration)
	assert.Equal(t, DbValue(-95), cf.PhyConfig.RxSensitivityDbm)
	assert.Equal(t, base.Phy.Channel, cf.PhyConfig.Channel)
	assert.Equal(t, uint8(5), cf.CsmaConfig.MacMaxCsmaBackoffs)
	assert.Equal(t, base.Csma.MacMinBE, cf.CsmaConfig.MacMinBE)
	assert.Equal(t, 2, len(cf.NodesList))
	assert.Equal(t, 200*time.Millisecond, cf.TrafficList[0].Interval)

	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Speed = MaxSimulateSpeed
	cfg.ErrorModel = false
	cf.ApplyTo(cfg)
	assert.Equal(t, "outdoor", cfg.RadioModel)
	assert.Equal(t, int64(42), cfg.Seed)

	s, err := NewSimulation(progctx.New(context.Background()), cfg, nil)
	require.Nil(t, err)
	require.Nil(t, s.ImportScenario(cf))

	assert.Equal(t, []NodeId{1, 2}, s.GetNodes())
	x, y, _ := s.Node(2).Position()
	assert.Equal(t, 110, x)
	assert.Equal(t, 20, y)
	assert.Equal(t, ChannelId(12), s.Node(2).Phy.CurrentChannel())
	assert.Equal(t, DefaultChannel, s.Node(1).Phy.CurrentChannel())
	assert.Equal(t, 300, s.Node(2).Config().RadioRange)
	assert.Equal(t, 1, len(s.Traffic()))
}

func TestScenarioInvalid(t *testing.T) {
	_, err := ParseYamlConfig([]byte("phy:\n  channel: 99\n"), DefaultConfig())
	assert.NotNil(t, err)
	_, err = ParseYamlConfig([]byte("traffic:\n  - src: 0\n    interval: 1s\n"), DefaultConfig())
	assert.NotNil(t, err)
	_, err = ParseYamlConfig([]byte("nodes: {"), DefaultConfig())
	assert.NotNil(t, err)
	_, err = LoadYamlConfigFile(filepath.Join(t.TempDir(), "missing.yaml"), DefaultConfig())
	assert.NotNil(t, err)
}

func TestScenarioExportRoundTrip(t *testing.T) {
	s := newTestSimulation(t)
	addNodeAt(t, s, 1, 100, 100)
	n2 := addNodeAt(t, s, 2, 300, 100)
	attrs := n2.Phy.Pib()
	attrs.CurrentChannel = 20
	require.Equal(t, PhySuccess, n2.SetPibAttribute(PhyCurrentChannel, &attrs))
	_, err := s.AddTraffic(&TrafficConfig{Src: 1, Dst: 2, Interval: time.Second, Size: 4})
	require.Nil(t, err)

	fn := filepath.Join(t.TempDir(), "scenario.yaml")
	require.Nil(t, SaveYamlConfigFile(fn, s.ExportScenario(10*time.Second)))

	cf, err := LoadYamlConfigFile(fn, DefaultConfig())
	require.Nil(t, err)
	assert.Equal(t, 10*time.Second, cf.Duration)
	require.Equal(t, 2, len(cf.NodesList))
	assert.Equal(t, [3]int{300, 100, 0}, cf.NodesList[1].Position)
	assert.Nil(t, cf.NodesList[0].Channel)
	require.NotNil(t, cf.NodesList[1].Channel)
	assert.Equal(t, ChannelId(20), *cf.NodesList[1].Channel)
	require.Equal(t, 1, len(cf.TrafficList))
	assert.Equal(t, time.Second, cf.TrafficList[0].Interval)
	assert.Equal(t, phy.DefaultConfig().Channel, cf.PhyConfig.Channel)
}
