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

// Package csmaca implements the IEEE 802.15.4 CSMA-CA channel access algorithm, in its slotted and
// unslotted variants.
package csmaca

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/wpansim/wpansim/event"
	"github.com/wpansim/wpansim/logger"
	"github.com/wpansim/wpansim/prng"
	. "github.com/wpansim/wpansim/types"
)

// IEEE 802.15.4-2006 MAC constants and attribute ranges.
const (
	DefaultMacMinBE           uint8  = 3
	DefaultMacMaxBE           uint8  = 5
	DefaultMacMaxCsmaBackoffs uint8  = 4
	UnitBackoffPeriodSymbols  uint32 = 20 // aUnitBackoffPeriod
	MaxMacMaxCsmaBackoffs     uint8  = 5
	MinMacMaxBE               uint8  = 3
	MaxMacMaxBE               uint8  = 8
)

// Config holds the CSMA-CA parameters.
type Config struct {
	Slotted              bool   `yaml:"slotted"`
	MacMinBE             uint8  `yaml:"min-be"`
	MacMaxBE             uint8  `yaml:"max-be"`
	MacMaxCsmaBackoffs   uint8  `yaml:"max-backoffs"`
	UnitBackoffPeriod    uint32 `yaml:"unit-backoff-period"` // symbols
	BatteryLifeExtension bool   `yaml:"battery-life-extension"`
}

func DefaultConfig() *Config {
	return &Config{
		Slotted:            false,
		MacMinBE:           DefaultMacMinBE,
		MacMaxBE:           DefaultMacMaxBE,
		MacMaxCsmaBackoffs: DefaultMacMaxCsmaBackoffs,
		UnitBackoffPeriod:  UnitBackoffPeriodSymbols,
	}
}

func (cfg *Config) Validate() error {
	if cfg.MacMaxBE < MinMacMaxBE || cfg.MacMaxBE > MaxMacMaxBE {
		return errors.Errorf("macMaxBE %d out of range %d-%d", cfg.MacMaxBE, MinMacMaxBE, MaxMacMaxBE)
	}
	if cfg.MacMinBE > cfg.MacMaxBE {
		return errors.Errorf("macMinBE %d exceeds macMaxBE %d", cfg.MacMinBE, cfg.MacMaxBE)
	}
	if cfg.MacMaxCsmaBackoffs > MaxMacMaxCsmaBackoffs {
		return errors.Errorf("macMaxCSMABackoffs %d exceeds %d", cfg.MacMaxCsmaBackoffs, MaxMacMaxCsmaBackoffs)
	}
	if cfg.UnitBackoffPeriod == 0 {
		return errors.Errorf("unit backoff period must be at least 1 symbol")
	}
	return nil
}

// Phy is the part of the PHY that CSMA-CA uses. The PHY's CCA confirm must be routed to PlmeCcaConfirm.
type Phy interface {
	PlmeCcaRequest()
	SymbolRate() float64
}

// MacStateCallback receives the outcome of a channel access attempt: ChannelIdle or ChannelAccessFailure.
type MacStateCallback func(state MacState)

// Stats counts CSMA-CA activity since creation.
type Stats struct {
	NumStarts     uint64
	NumBackoffs   uint64
	NumCca        uint64
	NumCcaBusy    uint64
	NumIdle       uint64
	NumFailures   uint64
	NumCancels    uint64
	BackoffTimeUs uint64
}

// CsmaCa runs channel access attempts for one MAC. All methods must be called from the scheduler's goroutine.
type CsmaCa struct {
	id    NodeId
	sched event.Scheduler
	phy   Phy
	cfg   Config
	rand  *rand.Rand
	log   *logger.NodeLogger

	nb     uint8
	be     uint8
	cw     uint8
	active bool
	timer  *event.Handle

	// ccaPending is set while a CCA requested by this attempt is outstanding.
	ccaPending bool

	macState MacStateCallback
	tracers  []Tracer
	stats    Stats
}

// New creates the CSMA-CA engine of node id, using phy for CCA.
func New(id NodeId, sched event.Scheduler, phy Phy, cfg *Config) *CsmaCa {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger.AssertNil(cfg.Validate())
	c := &CsmaCa{
		id:    id,
		sched: sched,
		phy:   phy,
		cfg:   *cfg,
		rand:  prng.NewNodeRand(id, prng.PurposeBackoff),
		log:   logger.NewNodeLogger(id, sched.Now),
	}
	c.SetMacStateCallback(nil)
	return c
}

func (c *CsmaCa) Config() Config {
	return c.cfg
}

func (c *CsmaCa) SetSlottedCsmaCa() {
	c.cfg.Slotted = true
}

func (c *CsmaCa) SetUnSlottedCsmaCa() {
	c.cfg.Slotted = false
}

func (c *CsmaCa) IsSlottedCsmaCa() bool {
	return c.cfg.Slotted
}

func (c *CsmaCa) IsUnSlottedCsmaCa() bool {
	return !c.cfg.Slotted
}

func (c *CsmaCa) SetMacMinBE(minBE uint8) {
	logger.AssertTrue(minBE <= c.cfg.MacMaxBE, "macMinBE %d exceeds macMaxBE %d", minBE, c.cfg.MacMaxBE)
	c.cfg.MacMinBE = minBE
}

func (c *CsmaCa) GetMacMinBE() uint8 {
	return c.cfg.MacMinBE
}

func (c *CsmaCa) SetMacMaxBE(maxBE uint8) {
	logger.AssertTrue(maxBE >= MinMacMaxBE && maxBE <= MaxMacMaxBE, "macMaxBE %d out of range", maxBE)
	logger.AssertTrue(maxBE >= c.cfg.MacMinBE, "macMaxBE %d below macMinBE %d", maxBE, c.cfg.MacMinBE)
	c.cfg.MacMaxBE = maxBE
}

func (c *CsmaCa) GetMacMaxBE() uint8 {
	return c.cfg.MacMaxBE
}

func (c *CsmaCa) SetMacMaxCsmaBackoffs(n uint8) {
	logger.AssertTrue(n <= MaxMacMaxCsmaBackoffs, "macMaxCSMABackoffs %d out of range", n)
	c.cfg.MacMaxCsmaBackoffs = n
}

func (c *CsmaCa) GetMacMaxCsmaBackoffs() uint8 {
	return c.cfg.MacMaxCsmaBackoffs
}

// SetUnitBackoffPeriod sets the backoff unit in symbols.
func (c *CsmaCa) SetUnitBackoffPeriod(symbols uint32) {
	logger.AssertTrue(symbols > 0)
	c.cfg.UnitBackoffPeriod = symbols
}

func (c *CsmaCa) GetUnitBackoffPeriod() uint32 {
	return c.cfg.UnitBackoffPeriod
}

func (c *CsmaCa) SetBatteryLifeExtension(ble bool) {
	c.cfg.BatteryLifeExtension = ble
}

func (c *CsmaCa) GetBatteryLifeExtension() bool {
	return c.cfg.BatteryLifeExtension
}

// GetNB returns the number of backoffs of the current attempt.
func (c *CsmaCa) GetNB() uint8 {
	return c.nb
}

// GetBE returns the current backoff exponent.
func (c *CsmaCa) GetBE() uint8 {
	return c.be
}

// GetCW returns the contention window; only used in slotted mode.
func (c *CsmaCa) GetCW() uint8 {
	return c.cw
}

// IsActive returns true while a channel access attempt is running.
func (c *CsmaCa) IsActive() bool {
	return c.active
}

// SetRand replaces the random generator of the backoff draws.
func (c *CsmaCa) SetRand(r *rand.Rand) {
	logger.AssertNotNil(r)
	c.rand = r
}

func (c *CsmaCa) SetMacStateCallback(cb MacStateCallback) {
	if cb == nil {
		cb = func(MacState) {}
	}
	c.macState = cb
}

func (c *CsmaCa) AddTracer(t Tracer) {
	c.tracers = append(c.tracers, t)
}

func (c *CsmaCa) Stats() Stats {
	return c.stats
}

func (c *CsmaCa) Logger() *logger.NodeLogger {
	return c.log
}

// unitBackoffPeriodUs returns the duration of one backoff unit at the PHY's current symbol rate.
func (c *CsmaCa) unitBackoffPeriodUs() uint64 {
	return c.symbolsToUs(uint64(c.cfg.UnitBackoffPeriod))
}

func (c *CsmaCa) symbolsToUs(symbols uint64) uint64 {
	return uint64(math.Round(float64(symbols) * 1e6 / c.phy.SymbolRate()))
}

func (c *CsmaCa) emit(evt *TraceEvent) {
	if len(c.tracers) == 0 {
		return
	}
	evt.Timestamp = c.sched.Now()
	evt.NodeId = c.id
	evt.NB = c.nb
	evt.BE = c.be
	evt.CW = c.cw
	for _, t := range c.tracers {
		t.OnCsmaTrace(evt)
	}
}
