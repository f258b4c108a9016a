package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"chanquant/logx"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// WSHub manages WebSocket connections and broadcasts
type WSHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan WSMessage
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex

	// last message of each type, replayed to new connections
	last  map[string]WSMessage
	order []string
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type string      `json:"type"` // "progress", "candidate", "fold", "done", "status", "error"
	Data interface{} `json:"data"`
	Time int64       `json:"time"` // Unix timestamp
}

const (
	MsgTypeStatus    = "status"
	MsgTypeProgress  = "progress"
	MsgTypeCandidate = "candidate"
	MsgTypeFold      = "fold"
	MsgTypeDone      = "done"
	MsgTypeError     = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		last:       make(map[string]WSMessage),
	}
}

// Run processes hub traffic until ctx is done. All socket writes happen here.
func (hub *WSHub) Run(ctx context.Context) {
	defer close(hub.done)
	for {
		select {
		case <-ctx.Done():
			hub.mutex.Lock()
			for client := range hub.clients {
				client.Close()
				delete(hub.clients, client)
			}
			hub.mutex.Unlock()
			return

		case client := <-hub.register:
			hub.mutex.Lock()
			hub.clients[client] = true
			hub.mutex.Unlock()
			hub.sendBufferedMessages(client)

		case client := <-hub.unregister:
			hub.mutex.Lock()
			delete(hub.clients, client)
			hub.mutex.Unlock()

		case message := <-hub.broadcast:
			if _, seen := hub.last[message.Type]; !seen {
				hub.order = append(hub.order, message.Type)
			}
			hub.last[message.Type] = message

			hub.mutex.RLock()
			for client := range hub.clients {
				if err := client.WriteJSON(message); err != nil {
					// cleaned up by the reader's unregister
					continue
				}
			}
			hub.mutex.RUnlock()
		}
	}
}

// Broadcast queues a message for all clients. Messages are dropped when the
// queue is full.
func (hub *WSHub) Broadcast(msgType string, data interface{}) {
	if hub == nil {
		return
	}
	msg := WSMessage{
		Type: msgType,
		Data: data,
		Time: time.Now().Unix(),
	}
	select {
	case hub.broadcast <- msg:
	default:
	}
}

func (hub *WSHub) ClientCount() int {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	return len(hub.clients)
}

func (hub *WSHub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logx.With("web").WithError(err).Warn("websocket upgrade failed")
		return
	}

	defer ws.Close()
	select {
	case hub.register <- ws:
	case <-hub.done:
		return
	}
	defer func() {
		select {
		case hub.unregister <- ws:
		case <-hub.done:
		}
	}()

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			break
		}
	}
}

// sendBufferedMessages greets a new connection and replays the latest
// message of every type seen so far.
func (hub *WSHub) sendBufferedMessages(ws *websocket.Conn) {
	statusMsg := WSMessage{
		Type: MsgTypeStatus,
		Data: StatusData{Status: "running", Msg: "Dashboard connected"},
		Time: time.Now().Unix(),
	}
	if err := ws.WriteJSON(statusMsg); err != nil {
		return
	}
	for _, t := range hub.order {
		if err := ws.WriteJSON(hub.last[t]); err != nil {
			return
		}
	}
}

// WebServer serves the dashboard API and the hub's socket endpoint.
type WebServer struct {
	hub     *WSHub
	router  *mux.Router
	handler http.Handler

	mu      sync.RWMutex
	report  interface{}
	started time.Time
}

func NewWebServer(hub *WSHub) *WebServer {
	s := &WebServer{hub: hub, router: mux.NewRouter(), started: time.Now()}
	s.router.HandleFunc("/ws", hub.handleWebSocket)
	s.router.HandleFunc("/api/report", s.handleReport).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.handler = corsMiddleware(s.router)
	return s
}

func (s *WebServer) Handler() http.Handler { return s.handler }

// SetReport publishes the finished report on /api/report.
func (s *WebServer) SetReport(v interface{}) {
	s.mu.Lock()
	s.report = v
	s.mu.Unlock()
}

func (s *WebServer) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	rep := s.report
	s.mu.RUnlock()
	if rep == nil {
		writeJSON(w, http.StatusNotFound, StatusData{Status: "pending", Msg: "no report yet"})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
		"uptime":  logx.FormatDuration(time.Since(s.started)),
	})
}

// ListenAndServe serves on port until ctx is done.
func (s *WebServer) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logx.Line("WEB ", "dashboard running at %s", logx.Highlightf("http://localhost:%d", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// corsMiddleware answers preflights before routing, so no route needs an
// OPTIONS method of its own.
func corsMiddleware(next http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(next)
}

// FindAvailablePort returns the first free port at or above startPort.
func FindAvailablePort(startPort int) int {
	for port := startPort; port < startPort+100; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			ln.Close()
			return port
		}
	}
	return startPort // fallback
}

// Payloads

type StatusData struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

type ProgressData struct {
	Side          string  `json:"side"`
	Fold          int     `json:"fold"`
	Folds         int     `json:"folds"`
	Phase         string  `json:"phase"`
	Done          int     `json:"done"`
	Total         int     `json:"total"`
	RatePerSec    float64 `json:"rate_per_sec"`
	BestObjective float64 `json:"best_objective"`
	TimeElapsed   string  `json:"time_elapsed"`
}

type CandidateData struct {
	Side      string  `json:"side"`
	Fold      int     `json:"fold"`
	Phase     string  `json:"phase"`
	Params    string  `json:"params"`
	Objective float64 `json:"objective"`
	ReturnPct float64 `json:"return_pct"`
	MaxDDPct  float64 `json:"max_dd_pct"`
	Trades    int     `json:"trades"`
}

type FoldData struct {
	Side         string  `json:"side"`
	Fold         int     `json:"fold"`
	Folds        int     `json:"folds"`
	Train        string  `json:"train"`
	Val          string  `json:"val"`
	Status       string  `json:"status"`
	Params       string  `json:"params,omitempty"`
	ValObjective float64 `json:"val_objective"`
}

type DoneData struct {
	Mode    string `json:"mode"`
	Status  string `json:"status"`
	Elapsed string `json:"elapsed"`
	RunID   string `json:"run_id,omitempty"`
}

func (hub *WSHub) SendStatus(status, msg string) {
	hub.Broadcast(MsgTypeStatus, StatusData{Status: status, Msg: msg})
}

func (hub *WSHub) SendError(msg string) {
	hub.Broadcast(MsgTypeError, StatusData{Status: "error", Msg: msg})
}
