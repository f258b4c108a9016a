package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startTestServer(t *testing.T) (*WSHub, *WebServer, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewWSHub()
	go hub.Run(ctx)
	web := NewWebServer(hub)
	srv := httptest.NewServer(web.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, web, srv
}

func TestWebReportAndHealth(t *testing.T) {
	_, web, srv := startTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	var health map[string]any
	json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || health["status"] != "ok" {
		t.Fatalf("healthz: %d %v", resp.StatusCode, health)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/report", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("report before publish: %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}

	web.SetReport(map[string]string{"winner_high": "A"})
	resp, err = http.Get(srv.URL + "/api/report")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	var rep map[string]string
	json.NewDecoder(resp.Body).Decode(&rep)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || rep["winner_high"] != "A" {
		t.Fatalf("report: %d %v", resp.StatusCode, rep)
	}

	req, _ = http.NewRequest(http.MethodOptions, srv.URL+"/api/report", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preflight: %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" || resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Fatalf("preflight headers: %v", resp.Header)
	}
}

func readMsg(t *testing.T, ws *websocket.Conn) WSMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var m WSMessage
	if err := ws.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

func TestWebSocketBroadcastAndReplay(t *testing.T) {
	hub, _, srv := startTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	hub.Broadcast(MsgTypeFold, FoldData{Side: "aggressive", Fold: 1, Folds: 4, Status: "OK"})

	if m := readMsg(t, ws); m.Type != MsgTypeStatus {
		t.Fatalf("first message should greet, got %s", m.Type)
	}
	m := readMsg(t, ws)
	if m.Type != MsgTypeFold {
		t.Fatalf("want fold, got %s", m.Type)
	}
	data, _ := m.Data.(map[string]any)
	if data["side"] != "aggressive" || data["folds"] != float64(4) {
		t.Fatalf("fold payload: %v", m.Data)
	}

	// a late client gets the greeting and the last message of each type
	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer late.Close()
	if m := readMsg(t, late); m.Type != MsgTypeStatus {
		t.Fatalf("late greet: %s", m.Type)
	}
	if m := readMsg(t, late); m.Type != MsgTypeFold {
		t.Fatalf("late replay: %s", m.Type)
	}
}

func TestBroadcastNilHub(t *testing.T) {
	var hub *WSHub
	hub.Broadcast(MsgTypeStatus, nil)
	hub.SendStatus("running", "no dashboard")
	hub.SendError("still fine")
}
