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
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/wpansim/wpansim/logger"
	"github.com/wpansim/wpansim/metrics"
	"github.com/wpansim/wpansim/simulation"
	. "github.com/wpansim/wpansim/types"
)

const DefaultListenAddr = "localhost:8997"

type NodeStatus struct {
	Id         NodeId    `json:"id"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Z          int       `json:"z"`
	RadioRange int       `json:"radio_range"`
	Channel    ChannelId `json:"channel"`
	Page       uint8     `json:"page"`
	TxPowerDbm DbValue   `json:"tx_power_dbm"`
	PhyState   string    `json:"phy_state"`
	MacState   string    `json:"mac_state"`
	QueueLen   int       `json:"queue_len"`
}

type NodeDetail struct {
	NodeStatus
	Counters  simulation.NodeCounters `json:"counters"`
	RxRecords []simulation.RxRecord   `json:"rx"`
}

type Status struct {
	RunId    string       `json:"run_id"`
	TimeUs   uint64       `json:"time_us"`
	Speed    float64      `json:"speed"`
	MaxSpeed bool         `json:"max_speed"`
	Stopped  bool         `json:"stopped"`
	Nodes    []NodeStatus `json:"nodes"`
}

type TrafficStatus struct {
	Id       int                      `json:"id"`
	Config   simulation.TrafficConfig `json:"config"`
	Sent     int                      `json:"sent"`
	Rejected int                      `json:"rejected"`
	Running  bool                     `json:"running"`
}

// Server serves the state of one simulation over HTTP. It can be started once.
type Server struct {
	sim        *simulation.Simulation
	collector  *metrics.Collector
	router     chi.Router
	httpServer *http.Server
	mutex      sync.Mutex
	canServe   bool
	Started    chan struct{}
	startOnce  sync.Once
}

// NewServer creates the server for sim. collector may be nil, which leaves /metrics serving the default
// Prometheus registry.
func NewServer(sim *simulation.Simulation, collector *metrics.Collector) *Server {
	s := &Server{
		sim:       sim,
		collector: collector,
		router:    chi.NewRouter(),
		canServe:  true,
		Started:   make(chan struct{}),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		MaxAge:         300,
	}))

	s.router.Get("/status", s.handleStatus)
	s.router.Get("/kpi", s.handleKpi)
	s.router.Get("/traffic", s.handleTraffic)
	s.router.Route("/nodes", func(r chi.Router) {
		r.Get("/", s.handleNodes)
		r.Get("/{id}", s.handleNode)
	})
	s.router.Method(http.MethodGet, "/metrics", s.collector.Handler())
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on listenAddr until StopServe is called.
func (s *Server) Serve(listenAddr string) error {
	defer logger.Debugf("webserver exit.")

	s.mutex.Lock()
	if !s.canServe {
		s.mutex.Unlock()
		s.setStarted()
		return http.ErrServerClosed
	}
	s.httpServer = &http.Server{
		Addr:         listenAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	logger.Infof("webserver now serving on %s ...", listenAddr)
	s.mutex.Unlock()
	s.setStarted()
	return s.httpServer.ListenAndServe()
}

func (s *Server) setStarted() {
	s.startOnce.Do(func() {
		close(s.Started)
	})
}

func (s *Server) StopServe() {
	logger.Debugf("requesting webserver to exit ...")
	s.mutex.Lock()
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	s.canServe = false // prevent serving again with the same server.
	s.mutex.Unlock()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var st Status
	s.sim.Execute(func() {
		st = Status{
			RunId:    s.sim.RunId(),
			TimeUs:   s.sim.Now(),
			Speed:    s.sim.GetSpeed(),
			MaxSpeed: s.sim.GetConfig().IsMaxSpeed(),
			Stopped:  s.sim.IsStopped(),
			Nodes:    s.nodeList(),
		}
	})
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	var nodes []NodeStatus
	s.sim.Execute(func() {
		nodes = s.nodeList()
	})
	respondJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid node id")
		return
	}

	var detail *NodeDetail
	s.sim.Execute(func() {
		node := s.sim.Node(id)
		if node == nil {
			return
		}
		detail = &NodeDetail{
			NodeStatus: nodeStatus(node),
			Counters:   node.Counters(),
			RxRecords:  node.RxRecords(),
		}
	})
	if detail == nil {
		respondError(w, http.StatusNotFound, "node not found")
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleKpi(w http.ResponseWriter, r *http.Request) {
	var data []byte
	var err error
	s.sim.Execute(func() {
		// marshaled under the lock, since a running KPI period is updated by Data()
		data, err = json.Marshal(s.sim.GetKpiManager().Data())
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleTraffic(w http.ResponseWriter, r *http.Request) {
	res := []TrafficStatus{}
	s.sim.Execute(func() {
		for _, tg := range s.sim.Traffic() {
			res = append(res, TrafficStatus{
				Id:       tg.Id,
				Config:   tg.Config(),
				Sent:     tg.Sent(),
				Rejected: tg.Rejected(),
				Running:  tg.IsRunning(),
			})
		}
	})
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) nodeList() []NodeStatus {
	nodes := []NodeStatus{}
	s.sim.VisitNodesInOrder(func(node *simulation.Node) {
		nodes = append(nodes, nodeStatus(node))
	})
	return nodes
}

func nodeStatus(node *simulation.Node) NodeStatus {
	x, y, z := node.Position()
	pib := node.Phy.Pib()
	return NodeStatus{
		Id:         node.Id,
		X:          x,
		Y:          y,
		Z:          z,
		RadioRange: node.Config().RadioRange,
		Channel:    pib.CurrentChannel,
		Page:       pib.CurrentPage,
		TxPowerDbm: pib.TxPowerDbm(),
		PhyState:   node.Phy.State().String(),
		MacState:   node.Mac.State().String(),
		QueueLen:   node.Mac.QueueLen(),
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Errorf("marshal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
