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
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/wpansim/wpansim/energy"
	"github.com/wpansim/wpansim/event"
	"github.com/wpansim/wpansim/logger"
	"github.com/wpansim/wpansim/metrics"
	"github.com/wpansim/wpansim/pcap"
	"github.com/wpansim/wpansim/prng"
	"github.com/wpansim/wpansim/progctx"
	"github.com/wpansim/wpansim/radiomodel"
	. "github.com/wpansim/wpansim/types"
)

const (
	// goStepUs is the simulated time run in one piece by Go before the lock is released.
	goStepUs = 10000
	// energySampleIntervalUs is the period of the network energy history.
	energySampleIntervalUs = 1000000
)

var CommandInterruptedError = errors.New("command interrupted due to simulation exit")

// Simulation owns the event queue, the channel and all nodes. Go takes the lock by itself; every other
// method must be called from within Execute, or before the simulation is shared between goroutines.
type Simulation struct {
	ctx            *progctx.ProgCtx
	mu             sync.Mutex
	cfg            *Config
	runId          string
	rootSeed       prng.RandomSeed
	eq             *event.Queue
	channel        *radiomodel.Channel
	nodes          map[NodeId]*Node
	nodePlacer     *NodeAutoPlacer
	energyAnalyser *energy.EnergyAnalyser
	kpiMgr         *KpiManager
	metrics        *metrics.Collector
	capture        *pcap.Capture
	statsLog       *statsLog
	channelStats   map[ChannelId]*KpiChannel
	traffic        map[int]*TrafficGenerator
	nextTrafficId  int
	nextEnergyTs   uint64
	stopped        bool
}

// NewSimulation creates a simulation without nodes. collector may be nil.
func NewSimulation(ctx *progctx.ProgCtx, cfg *Config, collector *metrics.Collector) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid simulation config")
	}
	params, err := radiomodel.NewChannelParams(cfg.RadioModel)
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		ctx:            ctx,
		cfg:            cfg,
		runId:          uuid.New().String(),
		rootSeed:       prng.Init(cfg.Seed),
		eq:             event.NewQueue(),
		nodes:          map[NodeId]*Node{},
		nodePlacer:     NewNodeAutoPlacer(),
		energyAnalyser: energy.NewEnergyAnalyser(),
		kpiMgr:         NewKpiManager(),
		metrics:        collector,
		channelStats:   map[ChannelId]*KpiChannel{},
		traffic:        map[int]*TrafficGenerator{},
		nextTrafficId:  1,
		nextEnergyTs:   energySampleIntervalUs,
	}
	s.channel = radiomodel.NewChannel(s.eq, params)
	logger.SetLevel(cfg.LogLevel)
	logger.SetSimClock(s.eq.Now)

	if err = s.createOutputDir(); err != nil {
		return nil, errors.Wrapf(err, "creating output directory %s failed", cfg.OutputDir)
	}
	if err = s.cleanOutputDir(); err != nil {
		return nil, errors.Wrapf(err, "cleaning output directory %s failed", cfg.OutputDir)
	}

	if cfg.PcapType != pcap.FrameTypeOff {
		fn := filepath.Join(cfg.OutputDir, fmt.Sprintf("%d_wpan.pcap", cfg.Id))
		f, err := pcap.NewFile(fn, cfg.PcapType, true)
		if err != nil {
			return nil, err
		}
		s.capture = pcap.NewCapture(f)
	}

	if cfg.StatsLog {
		s.statsLog = newStatsLog(cfg.OutputDir, cfg.Id)
		s.statsLog.createLogFile()
		s.statsLog.update(s.eq.Now(), s.nodes)
	}

	s.kpiMgr.Init(s)
	if cfg.AutoStartKpi {
		s.kpiMgr.Start()
	}
	logger.Infof("simulation %s created, root seed %d, radio model %s", s.runId, s.rootSeed, params.Name)
	return s, nil
}

// Execute runs f while holding the simulation lock.
func (s *Simulation) Execute(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f()
}

func (s *Simulation) RunId() string {
	return s.runId
}

func (s *Simulation) RootSeed() prng.RandomSeed {
	return s.rootSeed
}

func (s *Simulation) GetConfig() *Config {
	return s.cfg
}

// Now returns the current simulated time in us.
func (s *Simulation) Now() uint64 {
	return s.eq.Now()
}

func (s *Simulation) Channel() *radiomodel.Channel {
	return s.channel
}

func (s *Simulation) AddNode(cfg *NodeConfig) (*Node, error) {
	if s.stopped {
		return nil, CommandInterruptedError
	}
	s.NodeConfigFinalize(cfg)
	if s.nodes[cfg.ID] != nil {
		return nil, errors.Errorf("node %d already exists", cfg.ID)
	}

	// node position may use the nodePlacer
	if cfg.IsAutoPlaced {
		cfg.X, cfg.Y, cfg.Z = s.nodePlacer.NextNodePosition()
	} else {
		s.nodePlacer.UpdateReference(cfg.X, cfg.Y, cfg.Z)
	}

	node, err := newNode(s, cfg)
	if err != nil {
		if cfg.IsAutoPlaced {
			s.nodePlacer.ReuseNextNodePosition()
		}
		return nil, err
	}
	s.nodes[node.Id] = node
	s.metrics.SetNodes(len(s.nodes))
	logger.Debugf("simulation: added node %d at (%d,%d,%d)", node.Id, cfg.X, cfg.Y, cfg.Z)
	return node, nil
}

func (s *Simulation) genNodeId() NodeId {
	nodeid := 1
	for s.nodes[nodeid] != nil {
		nodeid += 1
	}
	return nodeid
}

func (s *Simulation) DeleteNode(nodeid NodeId) error {
	node := s.nodes[nodeid]
	if node == nil {
		return errors.Errorf("node not found: %d", nodeid)
	}
	for id, tg := range s.traffic {
		if tg.node == node {
			delete(s.traffic, id)
		}
	}
	node.exit()
	s.kpiMgr.stopNode(nodeid)
	delete(s.nodes, nodeid)
	s.metrics.SetNodes(len(s.nodes))
	return nil
}

func (s *Simulation) Nodes() map[NodeId]*Node {
	return s.nodes
}

// Node returns the node with the given id, or nil.
func (s *Simulation) Node(id NodeId) *Node {
	return s.nodes[id]
}

// GetNodes returns a sorted array of NodeIds.
func (s *Simulation) GetNodes() []NodeId {
	keys := make([]NodeId, 0, len(s.nodes))
	for key := range s.nodes {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}

func (s *Simulation) VisitNodesInOrder(cb func(node *Node)) {
	for _, nodeid := range s.GetNodes() {
		cb(s.nodes[nodeid])
	}
}

func (s *Simulation) MoveNodeTo(nodeid NodeId, x, y, z int) error {
	node := s.nodes[nodeid]
	if node == nil {
		return errors.Errorf("node not found: %d", nodeid)
	}
	node.setPosition(x, y, z)
	s.nodePlacer.UpdateReference(x, y, z)
	return nil
}

// AddTraffic starts a traffic generator and returns it.
func (s *Simulation) AddTraffic(cfg *TrafficConfig) (*TrafficGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	node := s.nodes[cfg.Src]
	if node == nil {
		return nil, errors.Errorf("node not found: %d", cfg.Src)
	}
	tg := newTrafficGenerator(s.nextTrafficId, node, cfg)
	s.nextTrafficId++
	s.traffic[tg.Id] = tg
	node.traffic = append(node.traffic, tg)
	tg.start()
	return tg, nil
}

// StopTraffic stops the traffic generator with the given id.
func (s *Simulation) StopTraffic(id int) error {
	tg := s.traffic[id]
	if tg == nil {
		return errors.Errorf("traffic generator not found: %d", id)
	}
	tg.Stop()
	return nil
}

// Traffic returns all traffic generators ordered by id.
func (s *Simulation) Traffic() []*TrafficGenerator {
	res := make([]*TrafficGenerator, 0, len(s.traffic))
	for _, tg := range s.traffic {
		res = append(res, tg)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Id < res[j].Id
	})
	return res
}

// Go advances the simulation by duration. Unless the speed is at maximum, progress is paced so that one
// simulated second takes 1/speed seconds of wall clock time. It must not be called from within Execute.
func (s *Simulation) Go(duration time.Duration) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return CommandInterruptedError
	}
	start := s.eq.Now()
	end := start + uint64(duration/time.Microsecond)
	s.mu.Unlock()

	wallStart := time.Now()
	for {
		if s.ctx.Err() != nil {
			return CommandInterruptedError
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return CommandInterruptedError
		}
		now := s.eq.Now()
		if now >= end {
			s.mu.Unlock()
			return nil
		}
		target := now + goStepUs
		if target > end {
			target = end
		}
		s.eq.RunUntil(target)
		s.metrics.SetSimTime(target)
		s.sampleEnergy(target)
		if s.statsLog != nil {
			s.statsLog.update(target, s.nodes)
		}
		speed := s.cfg.Speed
		maxSpeed := s.cfg.IsMaxSpeed()
		s.mu.Unlock()

		if !maxSpeed {
			wallTarget := wallStart.Add(time.Duration(float64(target-start)/speed) * time.Microsecond)
			if err := s.sleepUntil(wallTarget); err != nil {
				return err
			}
		}
	}
}

func (s *Simulation) sleepUntil(t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-s.ctx.Done():
		return CommandInterruptedError
	}
}

func (s *Simulation) SetSpeed(speed float64) error {
	if speed <= 0 {
		return errors.Errorf("invalid speed %v", speed)
	}
	if speed > MaxSimulateSpeed {
		speed = MaxSimulateSpeed
	}
	s.cfg.Speed = speed
	return nil
}

func (s *Simulation) GetSpeed() float64 {
	return s.cfg.Speed
}

func (s *Simulation) GetEnergyAnalyser() *energy.EnergyAnalyser {
	return s.energyAnalyser
}

func (s *Simulation) GetKpiManager() *KpiManager {
	return s.kpiMgr
}

func (s *Simulation) GetLogLevel() logger.Level {
	return s.cfg.LogLevel
}

func (s *Simulation) SetLogLevel(level logger.Level) {
	s.cfg.LogLevel = level
	logger.SetLevel(level)
}

func (s *Simulation) IsStopped() bool {
	return s.stopped
}

// Stop ends the simulation: it finishes the KPI period and the energy statistics, closes the capture and
// removes all nodes. It must be called from within Execute.
func (s *Simulation) Stop() {
	if s.stopped {
		return
	}
	logger.Infof("stopping simulation ...")

	if err := s.kpiMgr.Stop(); err != nil {
		logger.Errorf("%v", err)
	}
	if s.cfg.EnergyStats && len(s.nodes) > 0 {
		s.energyAnalyser.StoreNetworkEnergy(s.eq.Now())
		name := fmt.Sprintf("%d", s.cfg.Id)
		if err := s.energyAnalyser.SaveEnergyDataToFile(s.cfg.OutputDir, name, s.eq.Now()); err != nil {
			logger.Errorf("%v", err)
		}
	}
	if s.statsLog != nil {
		s.statsLog.stop(s.eq.Now(), s.nodes)
	}
	for _, nodeid := range s.GetNodes() {
		_ = s.DeleteNode(nodeid)
	}
	if s.capture != nil {
		if err := s.capture.Close(); err != nil {
			logger.Errorf("pcap: %v", err)
		}
		logger.Infof("pcap: %d frames captured", s.capture.NumFrames())
	}
	s.eq.Clear()
	s.stopped = true
	logger.Debugf("simulation stopped at %d us", s.eq.Now())
}

func (s *Simulation) sampleEnergy(now uint64) {
	if now < s.nextEnergyTs {
		return
	}
	if s.cfg.EnergyStats && len(s.nodes) > 0 {
		s.energyAnalyser.StoreNetworkEnergy(now)
	}
	s.nextEnergyTs = (now/energySampleIntervalUs + 1) * energySampleIntervalUs
}

func (s *Simulation) onFrameOnAir(ch ChannelId, durationUs uint64) {
	st := s.channelStats[ch]
	if st == nil {
		st = &KpiChannel{}
		s.channelStats[ch] = st
	}
	st.NumFrames++
	st.TxTimeUs += durationUs
}

func (s *Simulation) channelStatsSnapshot() RadioStatsStore {
	res := make(RadioStatsStore, len(s.channelStats))
	for ch, st := range s.channelStats {
		res[ch] = *st
	}
	return res
}

func (s *Simulation) createOutputDir() error {
	return os.MkdirAll(s.cfg.OutputDir, 0775)
}

func (s *Simulation) cleanOutputDir() error {
	// output files of an earlier run with the same simulation id are removed
	return removeAllFiles(filepath.Join(s.cfg.OutputDir, fmt.Sprintf("%d_*.*", s.cfg.Id)))
}
