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
	"strconv"

	"github.com/alecthomas/participle"
)

// noinspection GoStructTag
type Command struct {
	Add      *AddCmd      `  @@` //nolint
	Cca      *CcaCmd      `| @@` //nolint
	Counters *CountersCmd `| @@` //nolint
	Csma     *CsmaCmd     `| @@` //nolint
	Del      *DelCmd      `| @@` //nolint
	Ed       *EdCmd       `| @@` //nolint
	Energy   *EnergyCmd   `| @@` //nolint
	Exit     *ExitCmd     `| @@` //nolint
	Go       *GoCmd       `| @@` //nolint
	Help     *HelpCmd     `| @@` //nolint
	Kpi      *KpiCmd      `| @@` //nolint
	Load     *LoadCmd     `| @@` //nolint
	LogLevel *LogLevelCmd `| @@` //nolint
	Move     *MoveCmd     `| @@` //nolint
	Nodes    *NodesCmd    `| @@` //nolint
	Pib      *PibCmd      `| @@` //nolint
	Rx       *RxCmd       `| @@` //nolint
	Save     *SaveCmd     `| @@` //nolint
	Send     *SendCmd     `| @@` //nolint
	Speed    *SpeedCmd    `| @@` //nolint
	Time     *TimeCmd     `| @@` //nolint
	Traffic  *TrafficCmd  `| @@` //nolint
	Trx      *TrxCmd      `| @@` //nolint
}

// noinspection GoStructTag
type GoCmd struct {
	Cmd   struct{}  `"go"`                                     //nolint
	Time  string    `( @((Int|Float)["h"|"us"|"m"|"ms"|"s"]) ` //nolint
	Ever  *EverFlag `| @@ )`                                   //nolint
	Speed *float64  `[ "speed" (@Int|@Float) ]`                //nolint
}

// noinspection GoStructTag
type NodeSelector struct {
	Id int `@Int` //nolint
}

func (ns *NodeSelector) String() string {
	return strconv.Itoa(ns.Id)
}

// noinspection GoStructTag
type DestinationFlag struct {
	Bcast *BcastFlag    `( @@`   //nolint
	Node  *NodeSelector `| @@ )` //nolint
}

// noinspection GoStructTag
type BcastFlag struct {
	Dummy struct{} `("bcast"|"broadcast")` //nolint
}

// noinspection GoStructTag
type DataSizeFlag struct {
	Val int `("datasize"|"ds") @Int` //nolint
}

// noinspection GoStructTag
type CountFlag struct {
	Val int `("count" | "c") @Int` //nolint
}

// noinspection GoStructTag
type JitterFlag struct {
	Val float64 `"jitter" (@Int|@Float)` //nolint
}

// noinspection GoStructTag
type StartFlag struct {
	Time string `"start" @((Int|Float)["h"|"us"|"m"|"ms"|"s"])` //nolint
}

// noinspection GoStructTag
type SendCmd struct {
	Cmd      struct{}        `"send"` //nolint
	Src      NodeSelector    `@@`     //nolint
	Dst      DestinationFlag `@@`     //nolint
	DataSize *DataSizeFlag   `[ @@ ]` //nolint
}

// noinspection GoStructTag
type TrafficCmd struct {
	Cmd   struct{}      `"traffic"` //nolint
	Stop  *TrafficStop  `[ @@`      //nolint
	Start *TrafficStart `| @@ ]`    //nolint
}

// noinspection GoStructTag
type TrafficStop struct {
	Dummy struct{} `"stop"` //nolint
	Id    int      `@Int`   //nolint
}

// noinspection GoStructTag
type TrafficStart struct {
	Src      NodeSelector    `@@`                                    //nolint
	Dst      DestinationFlag `@@`                                    //nolint
	Interval string          `@((Int|Float)["h"|"us"|"m"|"ms"|"s"])` //nolint
	DataSize *DataSizeFlag   `( @@`                                  //nolint
	Count    *CountFlag      `| @@`                                  //nolint
	Jitter   *JitterFlag     `| @@`                                  //nolint
	Start    *StartFlag      `| @@ )*`                               //nolint
}

// noinspection GoStructTag
type SpeedCmd struct {
	Cmd   struct{}      `"speed"`               //nolint
	Max   *MaxSpeedFlag `( @@`                  //nolint
	Speed *float64      `| [ (@Int|@Float) ] )` //nolint
}

// noinspection GoStructTag
type TimeCmd struct {
	Cmd struct{} `"time"` //nolint
}

// noinspection GoStructTag
type AddCmd struct {
	Cmd        struct{}        `"add"`                //nolint
	X          *int            `( "x" (@Int|@Float) ` //nolint
	Y          *int            `| "y" (@Int|@Float) ` //nolint
	Z          *int            `| "z" (@Int|@Float) ` //nolint
	Id         *AddNodeId      `| @@`                 //nolint
	RadioRange *RadioRangeFlag `| @@`                 //nolint
	Channel    *ChannelFlag    `| @@ )*`              //nolint
}

// noinspection GoStructTag
type AddNodeId struct {
	Val int `"id" @Int` //nolint
}

// noinspection GoStructTag
type RadioRangeFlag struct {
	Val int `"rr" @Int` //nolint
}

// noinspection GoStructTag
type ChannelFlag struct {
	Val int `("channel"|"ch") @Int` //nolint
}

// noinspection MaxSpeedFlag
type MaxSpeedFlag struct {
	Dummy struct{} `( "max" | "inf")` //nolint
}

// noinspection GoStructTag
type DelCmd struct {
	Cmd   struct{}       `"del"`   //nolint
	Nodes []NodeSelector `( @@ )+` //nolint
}

// noinspection GoStructTag
type EverFlag struct {
	Dummy struct{} `"ever"` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

// noinspection GoStructTag
type EnergyCmd struct {
	Cmd  struct{}  `"energy"` //nolint
	Save *SaveFlag `( @@ )?`  //nolint
	Name string    `@String?` //nolint
}

// noinspection GoStructTag
type SaveFlag struct {
	Dummy struct{} `"save"` //nolint
}

// noinspection GoStructTag
type KpiCmd struct {
	Cmd       struct{} `"kpi"`                        //nolint
	Operation string   `[ @("start"|"stop"|"save") ]` //nolint
	Filename  string   `[ @String ]`                  //nolint
}

// noinspection GoStructTag
type LoadCmd struct {
	Cmd      struct{} `"load"`  //nolint
	Filename string   `@String` //nolint
}

// noinspection GoStructTag
type SaveCmd struct {
	Cmd      struct{} `"save"`  //nolint
	Filename string   `@String` //nolint
}

// noinspection GoStructTag
type MoveCmd struct {
	Cmd    struct{}     `"move"`   //nolint
	Target NodeSelector `@@`       //nolint
	X      int          `@Int`     //nolint
	Y      int          `@Int`     //nolint
	Z      *int         `[ @Int ]` //nolint
}

// noinspection GoStructTag
type NodesCmd struct {
	Cmd struct{} `"nodes"` //nolint
}

// noinspection GoStructTag
type CountersCmd struct {
	Cmd  struct{}      `"counters"` //nolint
	Node *NodeSelector `[ @@ ]`     //nolint
}

// noinspection GoStructTag
type TrxCmd struct {
	Cmd   struct{}     `"trx"`                                                                    //nolint
	Node  NodeSelector `@@`                                                                       //nolint
	State string       `[ @("rx_on"|"tx_on"|"trx_off"|"force_trx_off"|"rx"|"tx"|"off"|"force") ]` //nolint
}

// noinspection GoStructTag
type CcaCmd struct {
	Cmd  struct{}     `"cca"` //nolint
	Node NodeSelector `@@`    //nolint
}

// noinspection GoStructTag
type EdCmd struct {
	Cmd  struct{}     `"ed"` //nolint
	Node NodeSelector `@@`   //nolint
}

// noinspection GoStructTag
type RxCmd struct {
	Cmd  struct{}     `"rx"` //nolint
	Node NodeSelector `@@`   //nolint
}

// noinspection GoStructTag
type PibCmd struct {
	Cmd     struct{}     `"pib"`                     //nolint
	Node    NodeSelector `@@`                        //nolint
	Channel *int         `[ ( "channel"|"ch" ) @Int` //nolint
	Page    *int         `| "page" @Int`             //nolint
	TxPower *int         `| ( "txpower"|"tp" ) @Int` //nolint
	CcaMode *int         `| "ccamode" @Int ]`        //nolint
}

// noinspection GoStructTag
type CsmaCmd struct {
	Cmd         struct{}     `"csma"`                     //nolint
	Node        NodeSelector `@@`                         //nolint
	Mode        *string      `( @("slotted"|"unslotted")` //nolint
	MinBe       *int         `| "minbe" @Int`             //nolint
	MaxBe       *int         `| "maxbe" @Int`             //nolint
	MaxBackoffs *int         `| "maxbackoffs" @Int`       //nolint
	Ble         *YesOrNoFlag `| "ble" @@ )*`              //nolint
}

// noinspection GoStructTag
type YesFlag struct {
	Dummy struct{} `("y"|"yes"|"true"|"1")` //nolint
}

// noinspection GoStructTag
type NoFlag struct {
	Dummy struct{} `("n"|"no"|"false"|"0")` //nolint
}

// noinspection GoStructTag
type YesOrNoFlag struct {
	Yes *YesFlag `( @@`   //nolint
	No  *NoFlag  `| @@ )` //nolint
}

type LogLevelCmd struct {
	Cmd   struct{} `"log"`                                                                                                //nolint
	Level string   `[@( "micro"|"trace"|"debug"|"info"|"note"|"warn"|"error"|"crit"|"off"|"T"|"D"|"I"|"N"|"W"|"E"|"C" )]` //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`       //nolint
	HelpTopic string   `[ (@Ident) ]` //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

func parseBytes(b []byte, cmd *Command) error {
	err := commandParser.ParseBytes(b, cmd)
	return err
}
