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

package wpan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeFcs(t *testing.T) {
	// CRC-16/KERMIT check value
	assert.Equal(t, uint16(0x2189), ComputeFcs([]byte("123456789")))
	assert.Equal(t, uint16(0), ComputeFcs(nil))

	data := AppendFcs([]byte{0x41, 0x88, 0x01})
	assert.Equal(t, 5, len(data))
	// the FCS over a frame including its own FCS is zero
	assert.Equal(t, uint16(0), ComputeFcs(data))
}

func TestBuildAndDissectDataFrame(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	data := BuildDataFrame(42, 0xface, 0xffff, 0x0003, payload)
	assert.Equal(t, MinDataFrameHeaderLength+len(payload)+FcsLength, len(data))
	assert.Equal(t, []byte{0x41, 0x98}, data[0:2])

	frame, err := Dissect(data)
	assert.Nil(t, err)
	assert.Equal(t, FrameTypeData, frame.FrameControl.FrameType())
	assert.True(t, frame.FrameControl.PanidCompression())
	assert.False(t, frame.FrameControl.AckRequest())
	assert.Equal(t, uint16(1), frame.FrameControl.FrameVersion())
	assert.Equal(t, uint8(42), frame.Seq)
	assert.Equal(t, uint16(0xface), frame.DstPanId)
	assert.Equal(t, uint16(0xface), frame.SrcPanId)
	assert.Equal(t, uint16(0xffff), frame.DstAddrShort)
	assert.Equal(t, uint16(0x0003), frame.SrcAddrShort)
	assert.Equal(t, payload, frame.Payload)
	assert.True(t, frame.FcsOk)
	assert.Equal(t, "MAC,FC:0x9841,Seq:42,Dst:ffff,Len:15", frame.String())
	assert.False(t, IsAckFrame(data))
}

func TestDissect_BadFcs(t *testing.T) {
	data := BuildDataFrame(1, 0xface, 2, 3, []byte{1, 2, 3})
	data[len(data)-1] ^= 0x55
	frame, err := Dissect(data)
	assert.Nil(t, err)
	assert.False(t, frame.FcsOk)
}

func TestDissect_Truncated(t *testing.T) {
	_, err := Dissect([]byte{0x41})
	assert.NotNil(t, err)

	data := BuildDataFrame(1, 0xface, 2, 3, nil)
	_, err = Dissect(AppendFcs(data[:5]))
	assert.NotNil(t, err)
}

func TestDissect_Ack(t *testing.T) {
	ack := AppendFcs([]byte{0x02, 0x00, 0x07})
	assert.True(t, IsAckFrame(ack))
	frame, err := Dissect(ack)
	assert.Nil(t, err)
	assert.Equal(t, FrameTypeAck, frame.FrameControl.FrameType())
	assert.Equal(t, uint8(7), frame.Seq)
	assert.Equal(t, "ACK,FC:0x0002,Seq:7", frame.String())
}

func TestFrameControl_PanIdFields(t *testing.T) {
	// 2015 frame, both addresses extended, no PAN id compression: only a dst PAN id
	fc := FrameControl(FrameTypeData | AddrModeExtended<<10 | 2<<12 | AddrModeExtended<<14)
	assert.True(t, fc.HasDestPanIdField())
	assert.False(t, fc.HasSourcePanIdField())

	// 2006 frame without PAN id compression carries both
	fc = FrameControl(FrameTypeData | AddrModeShort<<10 | 1<<12 | AddrModeShort<<14)
	assert.True(t, fc.HasDestPanIdField())
	assert.True(t, fc.HasSourcePanIdField())
}
