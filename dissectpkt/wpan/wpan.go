// Copyright (c) 2020-2024, The OTNS Authors.
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

// Package wpan builds and dissects IEEE 802.15.4 MAC frames.
package wpan

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

type FrameType = uint16

const (
	FrameTypeBeacon  FrameType = 0
	FrameTypeData    FrameType = 1
	FrameTypeAck     FrameType = 2
	FrameTypeCommand FrameType = 3
)

// Values for both Src and Dst addressing modes, Table 7-3, 802.15.4-2015.
const (
	AddrModeNone     = 0
	AddrModeReserved = 1
	AddrModeShort    = 2
	AddrModeExtended = 3
)

const (
	FcsLength = 2
	// MinDataFrameHeaderLength is the MHR length of a data frame with PAN id compression and short addresses.
	MinDataFrameHeaderLength = 9
)

type FrameControl uint16

func (fc FrameControl) String() string {
	return fmt.Sprintf("0x%04x", uint16(fc))
}

func (fc FrameControl) FrameType() FrameType {
	return FrameType(fc & 0x0007)
}

func (fc FrameControl) SecurityEnabled() bool {
	return (fc & 0x0008) != 0
}

func (fc FrameControl) FramePending() bool {
	return (fc & 0x0010) != 0
}

func (fc FrameControl) AckRequest() bool {
	return (fc & 0x0020) != 0
}

func (fc FrameControl) PanidCompression() bool {
	return (fc & 0x0040) != 0
}

func (fc FrameControl) SequenceNumberSuppression() bool {
	return (fc & 0x0100) != 0
}

func (fc FrameControl) IEPresent() bool {
	return (fc & 0x0200) != 0
}

func (fc FrameControl) DestAddrMode() uint16 {
	return uint16((fc & 0x0c00) >> 10)
}

func (fc FrameControl) SourceAddrMode() uint16 {
	return uint16((fc & 0xc000) >> 14)
}

func (fc FrameControl) FrameVersion() uint16 {
	return uint16((fc & 0x3000) >> 12)
}

func (fc *FrameControl) Dissect(bytes []byte) {
	*fc = FrameControl(binary.LittleEndian.Uint16(bytes))
}

func (fc *FrameControl) HasDestPanIdField() bool {
	if fc.FrameVersion() <= 1 {
		return true
	}
	dam := fc.DestAddrMode()
	sam := fc.SourceAddrMode()
	if dam != AddrModeNone && sam != AddrModeNone {
		return true
	}
	pc := fc.PanidCompression()
	if dam == AddrModeExtended && sam == AddrModeExtended {
		return !pc
	}
	if sam == AddrModeNone && dam != AddrModeNone && !pc {
		return true
	}
	if sam == AddrModeNone && dam == AddrModeNone && pc {
		return true
	}
	return false
}

func (fc *FrameControl) HasSourcePanIdField() bool {
	dam := fc.DestAddrMode()
	sam := fc.SourceAddrMode()
	pc := fc.PanidCompression()
	if fc.FrameVersion() <= 1 {
		if sam != AddrModeNone && !pc {
			return true
		}
		return false
	}
	if dam == AddrModeExtended && sam == AddrModeExtended && !pc {
		return false
	}
	if sam == AddrModeNone {
		return false
	}
	return !pc
}

type MacFrame struct {
	FrameControl    FrameControl
	Seq             uint8
	DstPanId        uint16
	SrcPanId        uint16
	DstAddrShort    uint16
	SrcAddrShort    uint16
	DstAddrExtended uint64
	SrcAddrExtended uint64
	LengthBytes     uint16
	Payload         []byte
	Fcs             uint16
	FcsOk           bool
}

func (f *MacFrame) String() string {
	if f.FrameControl.FrameType() == FrameTypeAck {
		return fmt.Sprintf("ACK,FC:%s,Seq:%d", f.FrameControl, f.Seq)
	}

	var dstAddrS string
	dstAddrMode := f.FrameControl.DestAddrMode()
	if dstAddrMode == AddrModeShort {
		dstAddrS = fmt.Sprintf("%04x", f.DstAddrShort)
	} else if dstAddrMode == AddrModeExtended {
		dstAddrS = fmt.Sprintf("%016x", f.DstAddrExtended)
	} else {
		dstAddrS = "-"
	}

	return fmt.Sprintf("MAC,FC:%s,Seq:%d,Dst:%s,Len:%d", f.FrameControl, f.Seq, dstAddrS, f.LengthBytes)
}

// Dissect parses a PSDU (MHR, payload and FCS). The FCS is checked but a mismatch is not an error; see FcsOk.
func Dissect(data []byte) (*MacFrame, error) {
	if len(data) < 3+FcsLength {
		return nil, errors.Errorf("frame too short (%d bytes)", len(data))
	}
	frame := &MacFrame{}
	frame.LengthBytes = uint16(len(data))
	frame.FrameControl.Dissect(data[0:2])
	frameEnd := len(data) - FcsLength
	frame.Fcs = binary.LittleEndian.Uint16(data[frameEnd:])
	frame.FcsOk = ComputeFcs(data[:frameEnd]) == frame.Fcs
	if frame.FrameControl.FrameType() > FrameTypeCommand {
		return frame, nil // for unsupported frame types.
	}

	n := 2
	need := func(k int) error {
		if n+k > frameEnd {
			return errors.Errorf("frame truncated at offset %d", n)
		}
		return nil
	}

	if !frame.FrameControl.SequenceNumberSuppression() {
		if err := need(1); err != nil {
			return nil, err
		}
		frame.Seq = data[n]
		n += 1
	}
	if frame.FrameControl.HasDestPanIdField() && frame.FrameControl.DestAddrMode() != AddrModeNone {
		if err := need(2); err != nil {
			return nil, err
		}
		frame.DstPanId = binary.LittleEndian.Uint16(data[n : n+2])
		n += 2
	}

	switch frame.FrameControl.DestAddrMode() {
	case AddrModeExtended:
		if err := need(8); err != nil {
			return nil, err
		}
		frame.DstAddrExtended = binary.LittleEndian.Uint64(data[n : n+8])
		n += 8
	case AddrModeShort:
		if err := need(2); err != nil {
			return nil, err
		}
		frame.DstAddrShort = binary.LittleEndian.Uint16(data[n : n+2])
		n += 2
	default:
		break
	}

	if frame.FrameControl.HasSourcePanIdField() {
		if err := need(2); err != nil {
			return nil, err
		}
		frame.SrcPanId = binary.LittleEndian.Uint16(data[n : n+2])
		n += 2
	} else {
		frame.SrcPanId = frame.DstPanId
	}

	switch frame.FrameControl.SourceAddrMode() {
	case AddrModeExtended:
		if err := need(8); err != nil {
			return nil, err
		}
		frame.SrcAddrExtended = binary.LittleEndian.Uint64(data[n : n+8])
		n += 8
	case AddrModeShort:
		if err := need(2); err != nil {
			return nil, err
		}
		frame.SrcAddrShort = binary.LittleEndian.Uint16(data[n : n+2])
		n += 2
	default:
		break
	}

	frame.Payload = data[n:frameEnd]
	return frame, nil
}

// BuildDataFrame encodes a 2006 data frame with PAN id compression and short addresses, FCS included.
func BuildDataFrame(seq uint8, panId uint16, dst uint16, src uint16, payload []byte) []byte {
	fc := FrameControl(FrameTypeData) | 0x0040 | AddrModeShort<<10 | 1<<12 | AddrModeShort<<14
	data := make([]byte, 0, MinDataFrameHeaderLength+len(payload)+FcsLength)
	data = binary.LittleEndian.AppendUint16(data, uint16(fc))
	data = append(data, seq)
	data = binary.LittleEndian.AppendUint16(data, panId)
	data = binary.LittleEndian.AppendUint16(data, dst)
	data = binary.LittleEndian.AppendUint16(data, src)
	data = append(data, payload...)
	return AppendFcs(data)
}

// IsAckFrame returns true if data holds an Ack frame.
func IsAckFrame(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	var fc FrameControl
	fc.Dissect(data)
	return fc.FrameType() == FrameTypeAck
}
