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
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/wpansim/wpansim/logger"
	"github.com/wpansim/wpansim/phy"
	"github.com/wpansim/wpansim/progctx"
	"github.com/wpansim/wpansim/simulation"
	. "github.com/wpansim/wpansim/types"
)

const (
	Prompt = "> "
)

type CommandContext struct {
	context.Context
	*Command
	rt     *CmdRunner
	err    error
	output io.Writer
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

type CmdRunner struct {
	sim  *simulation.Simulation
	ctx  *progctx.ProgCtx
	help Help
}

func NewCmdRunner(ctx *progctx.ProgCtx, sim *simulation.Simulation) *CmdRunner {
	return &CmdRunner{
		ctx:  ctx,
		sim:  sim,
		help: newHelp(),
	}
}

// RunCommand parses and executes one command line, writing its output and the final "Done" or "Error"
// line to output. The returned error is non-nil once the program is exiting.
func (rt *CmdRunner) RunCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() == nil {
		cmd := Command{}

		if err := parseBytes([]byte(cmdline), &cmd); err != nil {
			if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
				return err
			}
		} else {
			rt.execute(&cmd, output)
		}
	}
	return rt.ctx.Err()
}

// HandleCommand implements runcli.CliHandler.
func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	return rt.RunCommand(cmdline, output)
}

func (rt *CmdRunner) GetPrompt() string {
	return Prompt
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Context: rt.ctx,
		Command: cmd,
		rt:      rt,
		output:  output,
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else {
			cc.outputf("Done\n")
		}
	}()

	defer func() {
		rerr := recover()

		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	if cmd.Move != nil {
		rt.executeMoveNode(cc, cc.Move)
	} else if cmd.Go != nil {
		rt.executeGo(cc, cmd.Go)
	} else if cmd.Nodes != nil {
		rt.executeLsNodes(cc, cc.Nodes)
	} else if cmd.Add != nil {
		rt.executeAddNode(cc, cmd.Add)
	} else if cmd.Del != nil {
		rt.executeDelNode(cc, cmd.Del)
	} else if cmd.Send != nil {
		rt.executeSend(cc, cmd.Send)
	} else if cmd.Traffic != nil {
		rt.executeTraffic(cc, cmd.Traffic)
	} else if cmd.Trx != nil {
		rt.executeTrx(cc, cmd.Trx)
	} else if cmd.Cca != nil {
		rt.executeCca(cc, cmd.Cca)
	} else if cmd.Ed != nil {
		rt.executeEd(cc, cmd.Ed)
	} else if cmd.Pib != nil {
		rt.executePib(cc, cmd.Pib)
	} else if cmd.Csma != nil {
		rt.executeCsma(cc, cmd.Csma)
	} else if cmd.Rx != nil {
		rt.executeRx(cc, cmd.Rx)
	} else if cmd.Speed != nil {
		rt.executeSpeed(cc, cmd.Speed)
	} else if cmd.Counters != nil {
		rt.executeCounters(cc, cc.Counters)
	} else if cmd.Kpi != nil {
		rt.executeKpi(cc, cmd.Kpi)
	} else if cmd.Exit != nil {
		rt.executeExit(cc, cmd.Exit)
	} else if cmd.Energy != nil {
		rt.executeEnergy(cc, cc.Energy)
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cc.LogLevel)
	} else if cmd.Load != nil {
		rt.executeLoad(cc, cmd.Load)
	} else if cmd.Save != nil {
		rt.executeSave(cc, cmd.Save)
	} else if cmd.Time != nil {
		rt.executeTime(cc, cmd.Time)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else {
		logger.Panicf("unimplemented command: %#v", cmd)
	}
}

// withSim runs f under the simulation lock, unless the simulation has been stopped.
func (rt *CmdRunner) withSim(cc *CommandContext, f func(sim *simulation.Simulation)) {
	rt.sim.Execute(func() {
		if rt.sim.IsStopped() {
			cc.error(simulation.CommandInterruptedError)
			return
		}
		f(rt.sim)
	})
}

// advance runs the simulation for d, outside of the simulation lock.
func (rt *CmdRunner) advance(cc *CommandContext, d time.Duration) bool {
	if err := rt.sim.Go(d); err != nil {
		cc.error(err)
		return false
	}
	return true
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		d, err = time.ParseDuration(s + "s") // try parsing as seconds
	}
	if err != nil {
		return 0, errors.Errorf("could not parse time duration: %s", s)
	}
	return d, nil
}

func unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s
}

func (rt *CmdRunner) getNode(cc *CommandContext, sim *simulation.Simulation, sel NodeSelector) *simulation.Node {
	node := sim.Node(sel.Id)
	if node == nil {
		cc.errorf("node %d not found", sel.Id)
	}
	return node
}

func (rt *CmdRunner) executeGo(cc *CommandContext, cmd *GoCmd) {
	var timeDurToGo time.Duration
	if cmd.Ever == nil {
		var err error
		if timeDurToGo, err = parseDuration(cmd.Time); err != nil {
			cc.error(err)
			return
		}
	}

	if cmd.Speed != nil {
		// the speed applies to this period only
		var prevSpeed float64
		rt.withSim(cc, func(sim *simulation.Simulation) {
			prevSpeed = sim.GetSpeed()
			cc.error(sim.SetSpeed(*cmd.Speed))
		})
		if cc.Err() != nil {
			return
		}
		defer rt.sim.Execute(func() {
			_ = rt.sim.SetSpeed(prevSpeed)
		})
	}

	if cmd.Ever == nil {
		rt.advance(cc, timeDurToGo)
		return
	}
	for rt.advance(cc, time.Hour) { // run forever but stop when the program or simulation ends
	}
}

func (rt *CmdRunner) executeSpeed(cc *CommandContext, cmd *SpeedCmd) {
	rt.withSim(cc, func(sim *simulation.Simulation) {
		if cmd.Speed == nil && cmd.Max == nil {
			if sim.GetConfig().IsMaxSpeed() {
				cc.outputf("max\n")
			} else {
				cc.outputf("%v\n", sim.GetSpeed())
			}
		} else if cmd.Max != nil {
			cc.error(sim.SetSpeed(simulation.MaxSimulateSpeed))
		} else {
			cc.error(sim.SetSpeed(*cmd.Speed))
		}
	})
}

func (rt *CmdRunner) executeAddNode(cc *CommandContext, cmd *AddCmd) {
	logger.Debugf("Add: %#v", *cmd)
	cfg := simulation.DefaultNodeConfig()

	if cmd.X != nil {
		cfg.X = *cmd.X
		cfg.IsAutoPlaced = false
	}
	if cmd.Y != nil {
		cfg.Y = *cmd.Y
		cfg.IsAutoPlaced = false
	}
	if cmd.Z != nil {
		cfg.Z = *cmd.Z
	}
	if cmd.Id != nil {
		cfg.ID = cmd.Id.Val
	}
	if cmd.RadioRange != nil {
		cfg.RadioRange = cmd.RadioRange.Val
	}

	rt.withSim(cc, func(sim *simulation.Simulation) {
		if cmd.Channel != nil {
			phyCfg := sim.GetConfig().Phy
			phyCfg.Channel = cmd.Channel.Val
			cfg.Phy = &phyCfg
		}
		node, err := sim.AddNode(&cfg)
		if err != nil {
			cc.error(err)
			return
		}

		cc.outputf("%d\n", node.Id)
	})
}

func (rt *CmdRunner) executeDelNode(cc *CommandContext, cmd *DelCmd) {
	rt.withSim(cc, func(sim *simulation.Simulation) {
		for _, sel := range getUniqueAndSorted(cmd.Nodes) {
			if sim.Node(sel.Id) == nil {
				cc.outputf("Warn: node %d not found, skipping\n", sel.Id)
				continue
			}

			if err := sim.DeleteNode(sel.Id); err != nil {
				cc.errorf("node %d, %+v", sel.Id, err)
			}
		}
	})
}

func (rt *CmdRunner) executeExit(cc *CommandContext, cmd *ExitCmd) {
	rt.withSim(cc, func(sim *simulation.Simulation) {
		sim.Stop()
	})
	rt.ctx.Cancel("exit")
}

func (rt *CmdRunner) executeMoveNode(cc *CommandContext, cmd *MoveCmd) {
	rt.withSim(cc, func(sim *simulation.Simulation) {
		node := rt.getNode(cc, sim, cmd.Target)
		if node == nil {
			return
		}
		_, _, z := node.Position()
		if cmd.Z != nil {
			z = *cmd.Z
		}
		cc.error(sim.MoveNodeTo(node.Id, cmd.X, cmd.Y, z))
	})
}

func (rt *CmdRunner) executeLsNodes(cc *CommandContext, cmd *NodesCmd) {
	rt.withSim(cc, func(sim *simulation.Simulation) {
		sim.VisitNodesInOrder(func(node *simulation.Node) {
			x, y, z := node.Position()
			cc.outputf("id=%d\tpos=(%d,%d,%d)\trr=%d\tch=%d\tstate=%v\tmac=%v\tq=%d\n", node.Id, x, y, z,
				node.Config().RadioRange, node.Phy.CurrentChannel(), node.Phy.State(), node.Mac.State(),
				node.Mac.QueueLen())
		})
	})
}

func (rt *CmdRunner) executeSend(cc *CommandContext, cmd *SendCmd) {
	dataSize := 0
	if cmd.DataSize != nil {
		dataSize = cmd.DataSize.Val
	}
	rt.withSim(cc, func(sim *simulation.Simulation) {
		node := rt.getNode(cc, sim, cmd.Src)
		if node == nil {
			return
		}
		if dataSize < 0 {
			cc.errorf("invalid data size %d", dataSize)
			return
		}
		seq, err := node.Send(destinationAddr(&cmd.Dst), make([]byte, dataSize))
		if err != nil {
			cc.error(err)
			return
		}
		cc.outputf("seq=%d\n", seq)
	})
}

func destinationAddr(dst *DestinationFlag) uint16 {
	if dst.Node == nil {
		return BroadcastShortAddr
	}
	return NodeIdToShortAddr(dst.Node.Id)
}

func destinationNode(dst *DestinationFlag) NodeId {
	if dst.Node == nil {
		return InvalidNodeId
	}
	return dst.Node.Id
}

func (rt *CmdRunner) executeTraffic(cc *CommandContext, cmd *TrafficCmd) {
	if cmd.Stop != nil {
		rt.withSim(cc, func(sim *simulation.Simulation) {
			cc.error(sim.StopTraffic(cmd.Stop.Id))
		})
		return
	}
	if cmd.Start == nil {
		rt.withSim(cc, func(sim *simulation.Simulation) {
			for _, tg := range sim.Traffic() {
				cfg := tg.Config()
				cc.outputf("%d\tsrc=%d\tdst=%d\tinterval=%v\tsize=%d\tsent=%d\trejected=%d\trunning=%v\n", tg.Id,
					cfg.Src, cfg.Dst, cfg.Interval, cfg.Size, tg.Sent(), tg.Rejected(), tg.IsRunning())
			}
		})
		return
	}

	start := cmd.Start
	cfg := simulation.TrafficConfig{
		Src: start.Src.Id,
		Dst: destinationNode(&start.Dst),
	}
	var err error
	if cfg.Interval, err = parseDuration(start.Interval); err != nil {
		cc.error(err)
		return
	}
	if start.Start != nil {
		if cfg.Start, err = parseDuration(start.Start.Time); err != nil {
			cc.error(err)
			return
		}
	}
	if start.DataSize != nil {
		cfg.Size = start.DataSize.Val
	}
	if start.Count != nil {
		cfg.Count = start.Count.Val
	}
	if start.Jitter != nil {
		cfg.Jitter = start.Jitter.Val
	}

	rt.withSim(cc, func(sim *simulation.Simulation) {
		tg, err := sim.AddTraffic(&cfg)
		if err != nil {
			cc.error(err)
			return
		}
		cc.outputf("%d\n", tg.Id)
	})
}

func (rt *CmdRunner) executeTrx(cc *CommandContext, cmd *TrxCmd) {
	rt.withSim(cc, func(sim *simulation.Simulation) {
		node := rt.getNode(cc, sim, cmd.Node)
		if node == nil {
			return
		}
		if len(cmd.State) == 0 {
			cc.outputf("%v\n", node.Phy.State())
			return
		}
		state, err := ParseTrxState(cmd.State)
		if err != nil {
			cc.error(err)
			return
		}
		cc.error(node.SetTrxState(state))
	})
}

// sense starts a CCA or ED on a node, lets the simulation run until the measurement is over and then
// returns its result.
func (rt *CmdRunner) sense(cc *CommandContext, sel NodeSelector, request func(node *simulation.Node),
	result func(node *simulation.Node) *simulation.SenseResult) *simulation.SenseResult {
	var node *simulation.Node
	var startTime, waitUs uint64
	rt.withSim(cc, func(sim *simulation.Simulation) {
		if node = rt.getNode(cc, sim, sel); node == nil {
			return
		}
		startTime = sim.Now()
		waitUs = node.Phy.PhyOption().SymbolsToUs(phy.CcaDurationSymbols) + 1
		request(node)
	})
	if cc.Err() != nil || !rt.advance(cc, time.Duration(waitUs)*time.Microsecond) {
		return nil
	}

	var res *simulation.SenseResult
	rt.withSim(cc, func(sim *simulation.Simulation) {
		res = result(node)
		if res == nil || res.Timestamp < startTime {
			cc.errorf("node %d: no result", node.Id)
			res = nil
		}
	})
	return res
}

func (rt *CmdRunner) executeCca(cc *CommandContext, cmd *CcaCmd) {
	res := rt.sense(cc, cmd.Node, (*simulation.Node).RequestCca, (*simulation.Node).LastCca)
	if res != nil {
		cc.outputf("%v\n", res.Status)
	}
}

func (rt *CmdRunner) executeEd(cc *CommandContext, cmd *EdCmd) {
	res := rt.sense(cc, cmd.Node, (*simulation.Node).RequestEd, (*simulation.Node).LastEd)
	if res == nil {
		return
	}
	if res.Status != PhySuccess {
		cc.errorf("ED failed: %v", res.Status)
		return
	}
	cc.outputf("%d\n", res.Level)
}

func (rt *CmdRunner) executePib(cc *CommandContext, cmd *PibCmd) {
	rt.withSim(cc, func(sim *simulation.Simulation) {
		node := rt.getNode(cc, sim, cmd.Node)
		if node == nil {
			return
		}
		attrs := node.Phy.Pib()

		var id PibAttributeId
		switch {
		case cmd.Channel != nil:
			id, attrs.CurrentChannel = PhyCurrentChannel, *cmd.Channel
		case cmd.Page != nil:
			if *cmd.Page < 0 || *cmd.Page > 0xff {
				cc.errorf("invalid page %d", *cmd.Page)
				return
			}
			id, attrs.CurrentPage = PhyCurrentPage, uint8(*cmd.Page)
		case cmd.TxPower != nil:
			if *cmd.TxPower < 0 || *cmd.TxPower > 0xff {
				cc.errorf("invalid tx power code %d", *cmd.TxPower)
				return
			}
			id, attrs.TransmitPower = PhyTransmitPower, uint8(*cmd.TxPower)
		case cmd.CcaMode != nil:
			if *cmd.CcaMode < 0 || *cmd.CcaMode > 0xff {
				cc.errorf("invalid CCA mode %d", *cmd.CcaMode)
				return
			}
			id, attrs.CcaMode = PhyCcaMode, uint8(*cmd.CcaMode)
		default:
			outputPib(cc, node.Phy)
			return
		}

		if status := node.SetPibAttribute(id, &attrs); status != PhySuccess {
			cc.errorf("set %v: %v", id, status)
		}
	})
}

func outputPib(cc *CommandContext, p *phy.Phy) {
	pib := p.Pib()
	cc.outputf("channel: %d\n", pib.CurrentChannel)
	cc.outputf("page: %d\n", pib.CurrentPage)
	cc.outputf("phy: %v\n", p.PhyOption())
	cc.outputf("txpower: 0x%02x (%v dBm)\n", pib.TransmitPower, pib.TxPowerDbm())
	cc.outputf("ccamode: %d\n", pib.CcaMode)
	cc.outputf("maxframeduration: %d\n", pib.MaxFrameDuration)
	cc.outputf("shrduration: %d\n", pib.ShrDuration)
	cc.outputf("symbolsperoctet: %v\n", pib.SymbolsPerOctet)
}

func (rt *CmdRunner) executeCsma(cc *CommandContext, cmd *CsmaCmd) {
	rt.withSim(cc, func(sim *simulation.Simulation) {
		node := rt.getNode(cc, sim, cmd.Node)
		if node == nil {
			return
		}
		csma := node.Csma
		cur := csma.Config()
		cfg := cur

		if cmd.Mode != nil {
			cfg.Slotted = *cmd.Mode == "slotted"
		}
		for _, v := range []struct {
			val  *int
			dest *uint8
			name string
		}{
			{cmd.MinBe, &cfg.MacMinBE, "minbe"},
			{cmd.MaxBe, &cfg.MacMaxBE, "maxbe"},
			{cmd.MaxBackoffs, &cfg.MacMaxCsmaBackoffs, "maxbackoffs"},
		} {
			if v.val == nil {
				continue
			}
			if *v.val < 0 || *v.val > 0xff {
				cc.errorf("invalid %s %d", v.name, *v.val)
				return
			}
			*v.dest = uint8(*v.val)
		}
		if cmd.Ble != nil {
			cfg.BatteryLifeExtension = cmd.Ble.Yes != nil
		}

		if cfg == cur {
			cc.outputf("mode: %s\n", csmaModeString(cur.Slotted))
			cc.outputf("minbe: %d\n", cur.MacMinBE)
			cc.outputf("maxbe: %d\n", cur.MacMaxBE)
			cc.outputf("maxbackoffs: %d\n", cur.MacMaxCsmaBackoffs)
			cc.outputf("ble: %v\n", cur.BatteryLifeExtension)
			cc.outputf("active: %v\tnb=%d\tbe=%d\tcw=%d\n", csma.IsActive(), csma.GetNB(), csma.GetBE(), csma.GetCW())
			return
		}
		if err := cfg.Validate(); err != nil {
			cc.error(err)
			return
		}

		if cfg.Slotted {
			csma.SetSlottedCsmaCa()
		} else {
			csma.SetUnSlottedCsmaCa()
		}
		// keep minBE <= maxBE at every step
		if cfg.MacMaxBE >= cur.MacMinBE {
			csma.SetMacMaxBE(cfg.MacMaxBE)
			csma.SetMacMinBE(cfg.MacMinBE)
		} else {
			csma.SetMacMinBE(cfg.MacMinBE)
			csma.SetMacMaxBE(cfg.MacMaxBE)
		}
		csma.SetMacMaxCsmaBackoffs(cfg.MacMaxCsmaBackoffs)
		csma.SetBatteryLifeExtension(cfg.BatteryLifeExtension)
	})
}

func csmaModeString(slotted bool) string {
	if slotted {
		return "slotted"
	}
	return "unslotted"
}

func (rt *CmdRunner) executeRx(cc *CommandContext, cmd *RxCmd) {
	rt.withSim(cc, func(sim *simulation.Simulation) {
		node := rt.getNode(cc, sim, cmd.Node)
		if node == nil {
			return
		}
		for _, rec := range node.RxRecords() {
			cc.outputf("%11d\tsrc=%04x\tseq=%d\tlen=%d\tsinr=%.1f dB\n", rec.Timestamp, rec.Src, rec.Seq,
				rec.Length, rec.SinrDb)
		}
	})
}

func (rt *CmdRunner) executeCounters(cc *CommandContext, cmd *CountersCmd) {
	rt.withSim(cc, func(sim *simulation.Simulation) {
		var counters simulation.NodeCounters
		if cmd.Node != nil {
			node := rt.getNode(cc, sim, *cmd.Node)
			if node == nil {
				return
			}
			counters = node.Counters()
		} else {
			counters = simulation.NodeCounters{}
			sim.VisitNodesInOrder(func(node *simulation.Node) {
				counters.Add(node.Counters())
			})
		}

		keys := make([]string, 0, len(counters))
		for k := range counters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cc.outputf("%-30s %d\n", k, counters[k])
		}
	})
}

func (rt *CmdRunner) executeKpi(cc *CommandContext, cmd *KpiCmd) {
	rt.withSim(cc, func(sim *simulation.Simulation) {
		km := sim.GetKpiManager()
		switch cmd.Operation {
		case "start":
			km.Start()
		case "stop":
			cc.error(km.Stop())
		case "save":
			if len(cmd.Filename) > 0 {
				cc.error(km.SaveFile(unquote(cmd.Filename)))
			} else {
				cc.error(km.SaveDefaultFile())
			}
		default:
			data, err := json.MarshalIndent(km.Data(), "", "  ")
			if err != nil {
				cc.error(err)
				return
			}
			cc.outputf("%s\n", data)
		}
	})
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	rt.withSim(cc, func(sim *simulation.Simulation) {
		if cmd.Level == "" {
			cc.outputf("%v\n", logger.GetLevelString(sim.GetLogLevel()))
			return
		}
		level, err := logger.ParseLevelString(cmd.Level)
		if err != nil {
			cc.error(err)
			return
		}
		sim.SetLogLevel(level)
	})
}

func (rt *CmdRunner) executeTime(cc *CommandContext, cmd *TimeCmd) {
	rt.withSim(cc, func(sim *simulation.Simulation) {
		cc.outputf("%d us\n", sim.Now())
	})
}

func (rt *CmdRunner) executeEnergy(cc *CommandContext, energy *EnergyCmd) {
	rt.withSim(cc, func(sim *simulation.Simulation) {
		if energy.Save != nil {
			cc.error(sim.GetEnergyAnalyser().SaveEnergyDataToFile(sim.GetConfig().OutputDir, unquote(energy.Name),
				sim.Now()))
		} else {
			sim.GetEnergyAnalyser().WriteEnergyByNodes(cc.output, sim.Now())
		}
	})
}

func (rt *CmdRunner) executeLoad(cc *CommandContext, cmd *LoadCmd) {
	rt.withSim(cc, func(sim *simulation.Simulation) {
		cf, err := simulation.LoadYamlConfigFile(unquote(cmd.Filename), sim.GetConfig())
		if err != nil {
			cc.error(err)
			return
		}
		cc.error(sim.ImportScenario(cf))
	})
}

func (rt *CmdRunner) executeSave(cc *CommandContext, cmd *SaveCmd) {
	rt.withSim(cc, func(sim *simulation.Simulation) {
		cc.error(simulation.SaveYamlConfigFile(unquote(cmd.Filename), sim.ExportScenario(0)))
	})
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) > 0 {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	} else {
		cc.outputStr(rt.help.outputGeneralHelp())
	}
}
