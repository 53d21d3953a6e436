package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
)

// statusBoard is the one piece of loop state shared with another
// goroutine: the HTTP handlers read it, the poll loop writes it on
// every activation.
type statusBoard struct {
	mu         sync.Mutex
	clock      clockwork.Clock
	configPath string
	started    time.Time
	reloaded   time.Time
	reloads    int
	active     string
	keys       []string
}

func newStatusBoard(configPath string, clock clockwork.Clock) *statusBoard {
	return &statusBoard{configPath: configPath, clock: clock, started: clock.Now()}
}

func (sb *statusBoard) setConfig(cfg *pinConfig) {
	names := make([]string, 0)
	for _, k := range cfg.keys() {
		names = append(names, keyName(k))
	}
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.active = cfg.String()
	sb.keys = names
	sb.reloaded = sb.clock.Now()
	sb.reloads++
}

type statusResponse struct {
	Response   string   `json:"response"`
	ConfigPath string   `json:"configPath"`
	Bindings   string   `json:"bindings"`
	Keys       []string `json:"keys"`
	Uptime     string   `json:"uptime"`
	Reloads    int      `json:"reloads"`
	LastReload string   `json:"lastReload,omitempty"`
}

func (sb *statusBoard) snapshot() statusResponse {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	resp := statusResponse{
		Response:   "OK",
		ConfigPath: sb.configPath,
		Bindings:   sb.active,
		Keys:       sb.keys,
		Uptime:     sb.clock.Now().Sub(sb.started).Round(time.Second).String(),
		Reloads:    sb.reloads,
	}
	if !sb.reloaded.IsZero() {
		resp.LastReload = sb.reloaded.Format(time.RFC3339)
	}
	return resp
}

type statusService struct {
	srv   *http.Server
	board *statusBoard
}

func (s *statusService) apiStatus(w http.ResponseWriter, r *http.Request) {
	output, _ := json.Marshal(s.board.snapshot())
	w.Header().Set("Content-Type", "application/json")
	w.Write(output)
}

// apiReload nudges the poll loop over the signal pipe rather than
// touching pin state from this goroutine.
func (s *statusService) apiReload(w http.ResponseWriter, r *http.Request) {
	requestReload()
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"response":"OK"}`))
}

// startStatusService serves the read-only status API when an address
// is configured; "" (the default) keeps the daemon headless.
func startStatusService(addr string, board *statusBoard) *statusService {
	if addr == "" {
		return nil
	}
	s := &statusService{board: board}

	r := mux.NewRouter()
	r.HandleFunc("/api/status", s.apiStatus).Methods("GET")
	r.HandleFunc("/api/reload", s.apiReload).Methods("POST")

	s.srv = &http.Server{Addr: addr, Handler: r}
	go func() {
		log.Printf("status service listening on %s", addr)
		err := s.srv.ListenAndServe()
		if err != http.ErrServerClosed {
			log.Print(err)
		}
	}()
	return s
}

func (s *statusService) stop() {
	if s == nil {
		return
	}
	s.srv.Shutdown(context.Background())
}
