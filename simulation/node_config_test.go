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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wpansim/wpansim/phy"
)

func TestNodeConfigValidate(t *testing.T) {
	cfg := DefaultNodeConfig()
	assert.Equal(t, -1, cfg.ID)
	assert.True(t, cfg.IsAutoPlaced)
	assert.Nil(t, cfg.Validate())

	cfg.ID = 0x10000
	assert.NotNil(t, cfg.Validate())

	cfg = DefaultNodeConfig()
	cfg.RadioRange = -1
	assert.NotNil(t, cfg.Validate())

	cfg = DefaultNodeConfig()
	phyCfg := phy.DefaultConfig()
	phyCfg.Channel = 99
	cfg.Phy = phyCfg
	assert.NotNil(t, cfg.Validate())
}

func TestNodeAutoPlacer(t *testing.T) {
	nap := NewNodeAutoPlacer()
	x, y, _ := nap.NextNodePosition()
	assert.Equal(t, 100, x)
	assert.Equal(t, 100, y)
	x, y, _ = nap.NextNodePosition()
	assert.Equal(t, 200, x)
	assert.Equal(t, 100, y)

	nap.ReuseNextNodePosition()
	x, _, _ = nap.NextNodePosition()
	assert.Equal(t, 200, x)

	nap.UpdateReference(1400, 300, 5)
	x, y, z := nap.NextNodePosition()
	assert.Equal(t, 1400, x)
	assert.Equal(t, 400, y)
	assert.Equal(t, 5, z)
}
