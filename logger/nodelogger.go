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

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	. "github.com/wpansim/wpansim/types"
)

// NodeLogger is a node-specific log object. Levels and output file can be set per individual node.
// Each line is prefixed with the node's simulated time, obtained from the clock given at creation.
type NodeLogger struct {
	Id           NodeId
	fileLevel    Level
	displayLevel Level
	clock        func() uint64

	logFile     *os.File
	logFileName string
}

// NewNodeLogger creates a NodeLogger for node id. The clock provides the simulated time in us and may be nil.
func NewNodeLogger(id NodeId, clock func() uint64) *NodeLogger {
	return &NodeLogger{
		Id:           id,
		fileLevel:    InfoLevel,
		displayLevel: WarnLevel,
		clock:        clock,
	}
}

// EnableFile starts logging to a per-node log file in outputDir. Lines at or below the file level are written.
func (nl *NodeLogger) EnableFile(outputDir string) error {
	if nl.logFile != nil {
		return nil
	}
	nl.logFileName = filepath.Join(outputDir, fmt.Sprintf("node_%d.log", nl.Id))
	f, err := os.OpenFile(nl.logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0664)
	if err != nil {
		return errors.Wrapf(err, "creating node log file %s", nl.logFileName)
	}
	nl.logFile = f
	header := fmt.Sprintf("#\n# wpansim node %d log, created %s\n# SimTimeUs  Lev Message",
		nl.Id, time.Now().Format(time.RFC3339))
	_ = nl.writeToLogFile(header)
	return nil
}

// IsFileEnabled returns true if logging to file is currently enabled, false if not.
func (nl *NodeLogger) IsFileEnabled() bool {
	return nl.logFile != nil
}

func (nl *NodeLogger) SetFileLevel(level Level) {
	nl.fileLevel = level
}

func (nl *NodeLogger) SetDisplayLevel(level Level) {
	nl.displayLevel = level
}

func (nl *NodeLogger) GetDisplayLevel() Level {
	return nl.displayLevel
}

// IsLevelVisible returns true if a message at this level would be logged anywhere. Callers use
// this to avoid building costly log messages.
func (nl *NodeLogger) IsLevelVisible(level Level) bool {
	return (level <= nl.displayLevel && level <= currentLevel) || (nl.logFile != nil && level <= nl.fileLevel)
}

func (nl *NodeLogger) Logf(level Level, format string, args ...interface{}) {
	if !nl.IsLevelVisible(level) {
		return
	}
	var ts uint64
	if nl.clock != nil {
		ts = nl.clock()
	}
	msg := getMessage(format, args)
	if nl.logFile != nil && level <= nl.fileLevel {
		_ = nl.writeToLogFile(fmt.Sprintf("%11d %s %s", ts, levelTag(level), msg))
	}
	if level <= nl.displayLevel && level <= currentLevel {
		logAlways(level, fmt.Sprintf("Node<%d> %s", nl.Id, msg))
	}
}

func (nl *NodeLogger) Tracef(format string, args ...interface{}) {
	nl.Logf(TraceLevel, format, args...)
}

func (nl *NodeLogger) Debugf(format string, args ...interface{}) {
	nl.Logf(DebugLevel, format, args...)
}

func (nl *NodeLogger) Infof(format string, args ...interface{}) {
	nl.Logf(InfoLevel, format, args...)
}

func (nl *NodeLogger) Warnf(format string, args ...interface{}) {
	nl.Logf(WarnLevel, format, args...)
}

func (nl *NodeLogger) Errorf(format string, args ...interface{}) {
	nl.Logf(ErrorLevel, format, args...)
}

// Panicf reports a contract violation inside the node and panics.
func (nl *NodeLogger) Panicf(format string, args ...interface{}) {
	msg := getMessage(format, args)
	if nl.logFile != nil {
		_ = nl.writeToLogFile(fmt.Sprintf("%11d %s %s", nl.now(), levelTag(PanicLevel), msg))
	}
	Panicf("Node<%d> %s", nl.Id, msg)
}

func (nl *NodeLogger) now() uint64 {
	if nl.clock == nil {
		return 0
	}
	return nl.clock()
}

func (nl *NodeLogger) writeToLogFile(line string) error {
	_, err := nl.logFile.WriteString(line + "\n")
	if err != nil {
		_ = nl.logFile.Close()
		nl.logFile = nil
		Errorf("couldn't write to node log file (%s), closing it", nl.logFileName)
	}
	return err
}

// Close closes the node log file, if any.
func (nl *NodeLogger) Close() {
	if nl.logFile != nil {
		_ = nl.logFile.Close()
		nl.logFile = nil
	}
}

func levelTag(level Level) string {
	switch level {
	case MicroLevel, TraceLevel:
		return "[T]"
	case DebugLevel:
		return "[D]"
	case InfoLevel:
		return "[I]"
	case NoteLevel:
		return "[N]"
	case WarnLevel:
		return "[W]"
	default:
		return "[C]"
	}
}
