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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevelString(t *testing.T) {
	lv, err := ParseLevelString("debug")
	assert.Nil(t, err)
	assert.Equal(t, DebugLevel, lv)

	lv, err = ParseLevelString("W")
	assert.Nil(t, err)
	assert.Equal(t, WarnLevel, lv)

	lv, err = ParseLevelString("nonsense")
	assert.NotNil(t, err)
	assert.Equal(t, DefaultLevel, lv)

	for _, level := range []Level{TraceLevel, DebugLevel, InfoLevel, NoteLevel, WarnLevel, ErrorLevel, OffLevel} {
		parsed, err := ParseLevelString(GetLevelString(level))
		assert.Nil(t, err)
		assert.Equal(t, level, parsed)
	}
}

func TestAssertHelpersPanic(t *testing.T) {
	assert.NotPanics(t, func() { AssertTrue(true) })
	assert.Panics(t, func() { AssertTrue(false) })
	assert.Panics(t, func() { AssertEqual(1, 2) })
	assert.Panics(t, func() { Panicf("contract violation %d", 42) })
}

func TestPanicfWhenLoggingOff(t *testing.T) {
	prev := GetLevel()
	defer SetLevel(prev)
	SetLevel(OffLevel)
	assert.Panics(t, func() { Panicf("still panics") })
}

func TestNodeLogger_File(t *testing.T) {
	dir := t.TempDir()
	var now uint64 = 1234
	nl := NewNodeLogger(7, func() uint64 { return now })
	assert.False(t, nl.IsFileEnabled())
	assert.Nil(t, nl.EnableFile(dir))
	assert.True(t, nl.IsFileEnabled())

	nl.SetFileLevel(DebugLevel)
	nl.Debugf("visible %s", "line")
	nl.Tracef("hidden line")
	nl.Close()

	data, err := os.ReadFile(filepath.Join(dir, "node_7.log"))
	assert.Nil(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "1234 [D] visible line"))
	assert.False(t, strings.Contains(text, "hidden line"))
}

func TestNodeLogger_Panicf(t *testing.T) {
	nl := NewNodeLogger(3, nil)
	assert.Panics(t, func() { nl.Panicf("bad state %v", "X") })
}
