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

// Package simmain implements the wpansim program: it builds the simulation from flags and an optional
// YAML scenario, then either runs it for a fixed duration or hands control to the interactive CLI.
package simmain

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wpansim/wpansim/cli"
	"github.com/wpansim/wpansim/logger"
	"github.com/wpansim/wpansim/metrics"
	"github.com/wpansim/wpansim/pcap"
	"github.com/wpansim/wpansim/progctx"
	"github.com/wpansim/wpansim/simulation"
	"github.com/wpansim/wpansim/web"
)

type MainArgs struct {
	Speed       string
	LogLevel    string
	LogFile     string
	Scenario    string
	Duration    time.Duration
	OutputDir   string
	Id          int
	Seed        int64
	RadioModel  string
	Pcap        string
	NoEnergy    bool
	NoErrModel  bool
	NoKpi       bool
	NoStats     bool
	WebAddr     string
	OpenWeb     bool
	EchoInput   bool
	HistoryFile string

	setFlags map[string]bool
}

// ParseArgs parses the command line arguments, without the program name.
func ParseArgs(name string, arguments []string, output io.Writer) (*MainArgs, error) {
	args := &MainArgs{setFlags: map[string]bool{}}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&args.Speed, "speed", "1", "set simulating speed, or 'max'")
	fs.StringVar(&args.LogLevel, "log", "warn", "set logging level: trace, debug, info, note, warn, error, off.")
	fs.StringVar(&args.LogFile, "log-file", "", "also write the log to this file")
	fs.StringVar(&args.Scenario, "scenario", "", "load nodes, traffic and layer configs from a YAML scenario file")
	fs.DurationVar(&args.Duration, "duration", 0, "run for this simulated time, then exit (batch mode, no CLI)")
	fs.StringVar(&args.OutputDir, "output", simulation.DefaultOutputDir, "directory for the KPI, energy and pcap files")
	fs.IntVar(&args.Id, "id", 0, "simulation id, used as the output file prefix")
	fs.Int64Var(&args.Seed, "seed", 0, "root random seed; 0 for a seed taken from the clock")
	fs.StringVar(&args.RadioModel, "radio-model", "itu", "path loss model: itu, 3gpp, outdoor")
	fs.StringVar(&args.Pcap, "pcap", pcap.FrameTypeWpanStr, "pcap file type: wpan, wpan-tap, off")
	fs.BoolVar(&args.NoEnergy, "no-energy", false, "do not collect energy statistics")
	fs.BoolVar(&args.NoErrModel, "no-error-model", false, "deliver frames without bit errors")
	fs.BoolVar(&args.NoKpi, "no-kpi", false, "do not start the KPI period at startup")
	fs.BoolVar(&args.NoStats, "no-stats", false, "do not write the node state CSV log")
	fs.StringVar(&args.WebAddr, "web", "", fmt.Sprintf("serve status and metrics over HTTP on this address (e.g. %s)",
		web.DefaultListenAddr))
	fs.BoolVar(&args.OpenWeb, "open-web", false, "open the status page in a web browser")
	fs.BoolVar(&args.EchoInput, "echo", false, "echo CLI input lines")
	fs.StringVar(&args.HistoryFile, "history", "", "file to keep the CLI command history in")

	if err := fs.Parse(arguments); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, errors.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	fs.Visit(func(f *flag.Flag) {
		args.setFlags[f.Name] = true
	})
	return args, nil
}

func (args *MainArgs) isSet(name string) bool {
	return args.setFlags[name]
}

// BuildConfig creates the simulation config: defaults, then the scenario file's sections, then the flags
// given on the command line. The loaded scenario is returned, or nil.
func BuildConfig(args *MainArgs) (*simulation.Config, *simulation.YamlConfigFile, error) {
	cfg := simulation.DefaultConfig()

	var scenario *simulation.YamlConfigFile
	if len(args.Scenario) > 0 {
		var err error
		if scenario, err = simulation.LoadYamlConfigFile(args.Scenario, cfg); err != nil {
			return nil, nil, err
		}
		scenario.ApplyTo(cfg)
	}

	var err error
	if cfg.Speed, err = parseSpeed(args.Speed); err != nil {
		return nil, nil, err
	}
	if cfg.LogLevel, err = logger.ParseLevelString(args.LogLevel); err != nil {
		return nil, nil, err
	}
	if cfg.PcapType = pcap.ParseFrameTypeStr(args.Pcap); cfg.PcapType == pcap.FrameTypeUnknown {
		return nil, nil, errors.Errorf("invalid pcap type: %s", args.Pcap)
	}
	cfg.OutputDir = args.OutputDir
	cfg.Id = args.Id
	cfg.EnergyStats = !args.NoEnergy
	cfg.ErrorModel = !args.NoErrModel
	cfg.AutoStartKpi = !args.NoKpi
	cfg.StatsLog = !args.NoStats
	if scenario == nil || args.isSet("radio-model") {
		cfg.RadioModel = args.RadioModel
	}
	if scenario == nil || args.isSet("seed") {
		cfg.Seed = args.Seed
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	if err = cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, scenario, nil
}

func parseSpeed(s string) (float64, error) {
	s = strings.ToLower(s)
	if s == "max" {
		return simulation.MaxSimulateSpeed, nil
	}
	speed, err := strconv.ParseFloat(s, 64)
	if err != nil || speed <= 0 {
		return 0, errors.Errorf("invalid speed: %s", s)
	}
	return speed, nil
}

// Main runs the program until the batch duration has passed, the CLI exits or ctx is cancelled.
// cliOptions may be nil for the process's stdin and stdout.
func Main(ctx *progctx.ProgCtx, arguments []string, cliOptions *cli.CliOptions) error {
	args, err := ParseArgs("wpansim", arguments, os.Stderr)
	if err != nil {
		return err
	}
	cfg, scenario, err := BuildConfig(args)
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.LogLevel)
	if len(args.LogFile) > 0 {
		logger.SetOutput([]string{"stdout", args.LogFile})
	}

	handleSignals(ctx)

	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	sim, err := simulation.NewSimulation(ctx, cfg, collector)
	if err != nil {
		return err
	}
	if scenario != nil {
		sim.Execute(func() {
			err = sim.ImportScenario(scenario)
		})
		if err != nil {
			return errors.Wrapf(err, "scenario %s", args.Scenario)
		}
	}

	var server *web.Server
	if len(args.WebAddr) > 0 {
		server = startWebServer(ctx, sim, collector, args)
	}

	duration := args.Duration
	if duration == 0 && scenario != nil && !args.isSet("duration") {
		duration = scenario.Duration
	}
	if duration > 0 {
		err = runBatch(sim, duration)
	} else {
		err = runCli(ctx, sim, args, cliOptions)
	}

	sim.Execute(sim.Stop)
	ctx.Cancel(errors.Wrapf(err, "simulation exit"))
	if server != nil {
		server.StopServe()
	}
	logger.Debugf("waiting for wpansim to stop gracefully ...")
	ctx.Wait()
	return err
}

func runBatch(sim *simulation.Simulation, duration time.Duration) error {
	logger.Infof("running simulation for %v", duration)
	err := sim.Go(duration)
	if errors.Is(err, simulation.CommandInterruptedError) {
		logger.Warnf("simulation interrupted at %d us", sim.Now())
		return nil
	}
	return err
}

func runCli(ctx *progctx.ProgCtx, sim *simulation.Simulation, args *MainArgs, options *cli.CliOptions) error {
	if options == nil {
		options = cli.DefaultCliOptions()
	}
	options.EchoInput = options.EchoInput || args.EchoInput
	if len(args.HistoryFile) > 0 {
		options.HistoryFile = args.HistoryFile
	}

	logger.SetStdoutCallback(cli.Cli)
	defer logger.SetStdoutCallback(nil)

	ctx.WaitAdd("cli-stop", 1)
	go func() {
		defer ctx.WaitDone("cli-stop")
		<-ctx.Done()
		cli.Cli.Stop()
	}()

	rt := cli.NewCmdRunner(ctx, sim)
	err := cli.Cli.Run(rt, options)
	return errors.Wrapf(err, "console exit")
}

func startWebServer(ctx *progctx.ProgCtx, sim *simulation.Simulation, collector *metrics.Collector,
	args *MainArgs) *web.Server {
	server := web.NewServer(sim, collector)
	ctx.WaitAdd("webserver", 1)
	go func() {
		defer ctx.WaitDone("webserver")
		err := server.Serve(args.WebAddr) // blocks until server.StopServe() called
		if err != nil && ctx.Err() == nil {
			logger.Errorf("webserver stopped unexpectedly: %+v, status API won't be available!", err)
		}
	}()
	<-server.Started
	if args.OpenWeb {
		_ = web.OpenWeb(args.WebAddr)
	}
	return server
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer logger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")
		defer signal.Stop(c)

		for {
			select {
			case sig := <-c:
				logger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				return
			}
		}
	}()
}
