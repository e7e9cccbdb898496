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

package simmain

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpansim/wpansim/cli"
	"github.com/wpansim/wpansim/logger"
	"github.com/wpansim/wpansim/pcap"
	"github.com/wpansim/wpansim/progctx"
	"github.com/wpansim/wpansim/radiomodel"
	"github.com/wpansim/wpansim/simulation"
)

const testScenario = `
network:
    radio-model: outdoor
    seed: 7
phy:
    channel: 15
nodes:
    - id: 1
      pos: [100, 100, 0]
    - id: 2
      pos: [200, 100, 0]
traffic:
    - src: 1
      dst: 2
      interval: 100ms
      size: 10
duration: 500ms
`

func writeScenario(t *testing.T) string {
	fn := filepath.Join(t.TempDir(), "scenario.yaml")
	require.Nil(t, os.WriteFile(fn, []byte(testScenario), 0644))
	return fn
}

func TestParseArgs(t *testing.T) {
	args, err := ParseArgs("wpansim", nil, &bytes.Buffer{})
	require.Nil(t, err)
	assert.Equal(t, "1", args.Speed)
	assert.Equal(t, "warn", args.LogLevel)
	assert.Equal(t, simulation.DefaultOutputDir, args.OutputDir)
	assert.Equal(t, time.Duration(0), args.Duration)
	assert.Equal(t, "", args.WebAddr)
	assert.False(t, args.isSet("speed"))

	args, err = ParseArgs("wpansim", []string{"-speed", "max", "-duration", "2s", "-seed", "5", "-no-energy"},
		&bytes.Buffer{})
	require.Nil(t, err)
	assert.Equal(t, "max", args.Speed)
	assert.Equal(t, 2*time.Second, args.Duration)
	assert.Equal(t, int64(5), args.Seed)
	assert.True(t, args.NoEnergy)
	assert.True(t, args.isSet("seed"))

	_, err = ParseArgs("wpansim", []string{"-nosuchflag"}, &bytes.Buffer{})
	assert.NotNil(t, err)
	_, err = ParseArgs("wpansim", []string{"extra"}, &bytes.Buffer{})
	assert.NotNil(t, err)
}

func TestBuildConfig(t *testing.T) {
	args, err := ParseArgs("wpansim", []string{"-speed", "max", "-log", "info", "-pcap", "off", "-seed", "3"},
		&bytes.Buffer{})
	require.Nil(t, err)
	cfg, scenario, err := BuildConfig(args)
	require.Nil(t, err)
	assert.Nil(t, scenario)
	assert.True(t, cfg.IsMaxSpeed())
	assert.Equal(t, logger.InfoLevel, cfg.LogLevel)
	assert.Equal(t, pcap.FrameTypeOff, cfg.PcapType)
	assert.Equal(t, int64(3), cfg.Seed)
	assert.Equal(t, radiomodel.ModelItu, cfg.RadioModel)

	for _, bad := range [][]string{{"-speed", "0"}, {"-speed", "fast"}, {"-log", "loud"}, {"-pcap", "tcp"},
		{"-radio-model", "vacuum"}, {"-scenario", "/nonexistent.yaml"}} {
		args, err = ParseArgs("wpansim", bad, &bytes.Buffer{})
		require.Nil(t, err)
		_, _, err = BuildConfig(args)
		assert.NotNil(t, err, "%v", bad)
	}
}

func TestBuildConfigScenario(t *testing.T) {
	fn := writeScenario(t)

	args, err := ParseArgs("wpansim", []string{"-scenario", fn}, &bytes.Buffer{})
	require.Nil(t, err)
	cfg, scenario, err := BuildConfig(args)
	require.Nil(t, err)
	require.NotNil(t, scenario)
	assert.Equal(t, radiomodel.ModelOutdoor, cfg.RadioModel)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 15, cfg.Phy.Channel)
	assert.Equal(t, 500*time.Millisecond, scenario.Duration)

	// flags given on the command line take precedence
	args, err = ParseArgs("wpansim", []string{"-scenario", fn, "-seed", "9", "-radio-model", "3gpp"},
		&bytes.Buffer{})
	require.Nil(t, err)
	cfg, _, err = BuildConfig(args)
	require.Nil(t, err)
	assert.Equal(t, radiomodel.Model3gpp, cfg.RadioModel)
	assert.Equal(t, int64(9), cfg.Seed)
}

func TestMainBatch(t *testing.T) {
	fn := writeScenario(t)
	outDir := t.TempDir()

	ctx := progctx.New(context.Background())
	err := Main(ctx, []string{"-scenario", fn, "-speed", "max", "-output", outDir, "-id", "3", "-log", "warn"}, nil)
	assert.Nil(t, err)
	assert.NotNil(t, ctx.Err())

	assert.FileExists(t, filepath.Join(outDir, "3_kpi.json"))
	assert.FileExists(t, filepath.Join(outDir, "3_wpan.pcap"))
	assert.FileExists(t, filepath.Join(outDir, "3_nodes.txt"))
}

func TestMainBatchWithWebServer(t *testing.T) {
	ctx := progctx.New(context.Background())
	err := Main(ctx, []string{"-duration", "10ms", "-speed", "max", "-output", t.TempDir(), "-pcap", "off",
		"-web", "localhost:0"}, nil)
	assert.Nil(t, err)
	assert.Equal(t, 0, ctx.WaitCount())
}

func TestMainCli(t *testing.T) {
	script := filepath.Join(t.TempDir(), "cmds.txt")
	require.Nil(t, os.WriteFile(script, []byte("add\nadd\nsend 1 2\ngo 1\nexit\n"), 0644))
	stdin, err := os.Open(script)
	require.Nil(t, err)
	stdout, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.Nil(t, err)

	ctx := progctx.New(context.Background())
	err = Main(ctx, []string{"-speed", "max", "-output", t.TempDir()}, &cli.CliOptions{Stdin: stdin, Stdout: stdout})
	assert.Nil(t, err)
	assert.NotNil(t, ctx.Err())

	out, err := os.ReadFile(stdout.Name())
	require.Nil(t, err)
	assert.Contains(t, string(out), "seq=")
	assert.NotContains(t, string(out), "Error")
}

func TestMainBadArgs(t *testing.T) {
	ctx := progctx.New(context.Background())
	assert.NotNil(t, Main(ctx, []string{"-speed", "-1"}, nil))
}
