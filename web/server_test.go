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

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpansim/wpansim/metrics"
	"github.com/wpansim/wpansim/progctx"
	"github.com/wpansim/wpansim/simulation"
)

func newTestServer(t *testing.T) (*Server, *simulation.Simulation) {
	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	require.Nil(t, err)

	cfg := simulation.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Speed = simulation.MaxSimulateSpeed
	cfg.ErrorModel = false
	sim, err := simulation.NewSimulation(progctx.New(context.Background()), cfg, collector)
	require.Nil(t, err)

	sim.Execute(func() {
		for _, x := range []int{100, 200} {
			nodeCfg := simulation.DefaultNodeConfig()
			nodeCfg.X, nodeCfg.Y, nodeCfg.IsAutoPlaced = x, 100, false
			_, err := sim.AddNode(&nodeCfg)
			require.Nil(t, err)
		}
		_, err := sim.AddTraffic(&simulation.TrafficConfig{Src: 1, Dst: 2, Interval: 10 * time.Millisecond,
			Size: 20, Count: 2})
		require.Nil(t, err)
	})
	require.Nil(t, sim.Go(100*time.Millisecond))
	return NewServer(sim, collector), sim
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Status(t *testing.T) {
	s, sim := newTestServer(t)

	rec := get(t, s, "/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var st Status
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, sim.RunId(), st.RunId)
	assert.Equal(t, uint64(100000), st.TimeUs)
	assert.True(t, st.MaxSpeed)
	assert.False(t, st.Stopped)
	require.Equal(t, 2, len(st.Nodes))
	assert.Equal(t, 1, st.Nodes[0].Id)
	assert.Equal(t, 200, st.Nodes[1].X)
	assert.Equal(t, 11, st.Nodes[1].Channel)
	assert.Equal(t, "RX_ON", st.Nodes[0].PhyState)
	assert.Equal(t, "MAC_IDLE", st.Nodes[0].MacState)
	assert.Equal(t, 0, st.Nodes[0].QueueLen)
}

func TestServer_Nodes(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/nodes")
	assert.Equal(t, http.StatusOK, rec.Code)
	var nodes []NodeStatus
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &nodes))
	assert.Equal(t, 2, len(nodes))

	rec = get(t, s, "/nodes/2")
	assert.Equal(t, http.StatusOK, rec.Code)
	var detail NodeDetail
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, 2, detail.Id)
	assert.Equal(t, uint64(2), detail.Counters["mac.RxFrames"])
	require.Equal(t, 2, len(detail.RxRecords))
	assert.Equal(t, uint16(1), detail.RxRecords[0].Src)
	assert.Equal(t, 20, detail.RxRecords[1].Length)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/nodes/3").Code)
	rec = get(t, s, "/nodes/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid node id")
}

func TestServer_KpiAndTraffic(t *testing.T) {
	s, sim := newTestServer(t)

	rec := get(t, s, "/kpi")
	assert.Equal(t, http.StatusOK, rec.Code)
	var kpi simulation.Kpi
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &kpi))
	assert.Equal(t, sim.RunId(), kpi.RunId)
	assert.Equal(t, uint64(2), kpi.Channels[11].NumFrames)

	rec = get(t, s, "/traffic")
	assert.Equal(t, http.StatusOK, rec.Code)
	var traffic []TrafficStatus
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &traffic))
	require.Equal(t, 1, len(traffic))
	assert.Equal(t, 2, traffic[0].Sent)
	assert.False(t, traffic[0].Running)
	assert.Equal(t, 10*time.Millisecond, traffic[0].Config.Interval)
}

func TestServer_Metrics(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "wpan_nodes 2"), body)
	assert.Contains(t, body, "wpan_mac_rx_frames_total 2")
	assert.Contains(t, body, "wpan_sim_time_us 100000")
}

func TestServer_ServeAndStop(t *testing.T) {
	s, _ := newTestServer(t)

	done := make(chan error, 1)
	go func() {
		done <- s.Serve("localhost:0")
	}()
	<-s.Started
	s.StopServe()
	assert.Equal(t, http.ErrServerClosed, <-done)

	// a stopped server does not serve again
	assert.Equal(t, http.ErrServerClosed, s.Serve("localhost:0"))
}
