package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/apm-stick/internal/logic"
	"github.com/sweeney/apm-stick/internal/pins"
	"github.com/sweeney/apm-stick/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *Server, *status.Tracker, chan struct{}) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Mode:            logic.ModeSmoothed,
		WeightPercent:   2,
		TickMs:          1000,
		PollMs:          2,
		DebounceSamples: 3,
		HeartbeatMs:     900000,
		Broker:          "tcp://192.168.1.200:1883",
		HTTPAddr:        ":8080",
	}
	tr := status.NewTracker(start, cfg)
	resets := make(chan struct{}, 1)
	srv := New(":0", tr, resets)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, srv, tr, resets
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, _, tr, _ := newTestServer(t)
	tr.Update(1200, 999, pins.Snapshot{}.With(pins.B03), logic.Stats{Actions: 77, Ticks: 9})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.APM != 1200 || sj.Status.Displayed != 999 {
		t.Errorf("apm/displayed: got %d/%d, want 1200/999", sj.Status.APM, sj.Status.Displayed)
	}
	if len(sj.Status.Pressed) != 1 || sj.Status.Pressed[0] != "B03" {
		t.Errorf("pressed: got %v", sj.Status.Pressed)
	}
	if sj.Status.Actions != 77 || sj.Status.Ticks != 9 {
		t.Errorf("stats: got %d/%d", sj.Status.Actions, sj.Status.Ticks)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Config.PollMs != 2 {
		t.Errorf("Config.PollMs: got %d, want 2", sj.Status.Config.PollMs)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, _, tr, _ := newTestServer(t)
	tr.Update(42, 42, pins.Snapshot{}.With(pins.Left), logic.Stats{})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), ">042<") {
		t.Error("readout should show the zero-padded value")
	}
	if !strings.Contains(string(body), ">LEFT<") {
		t.Error("pressed controls missing from page")
	}
	if !strings.Contains(string(body), "Weight") {
		t.Error("smoothed mode should show the weight")
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestResetRequiresPost(t *testing.T) {
	ts, _, _, resets := newTestServer(t)

	resp, err := http.Get(ts.URL + "/reset")
	if err != nil {
		t.Fatalf("GET /reset: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
	if resp.Header.Get("Allow") != "POST" {
		t.Errorf("Allow: got %q, want POST", resp.Header.Get("Allow"))
	}
	select {
	case <-resets:
		t.Error("GET should not request a reset")
	default:
	}
}

func TestResetPost(t *testing.T) {
	ts, _, _, resets := newTestServer(t)

	for i := 0; i < 2; i++ {
		resp, err := http.Post(ts.URL+"/reset", "", nil)
		if err != nil {
			t.Fatalf("POST /reset: %v", err)
		}
		resp.Body.Close()
		// A second request while one is pending is still accepted.
		if resp.StatusCode != http.StatusAccepted {
			t.Errorf("request %d: status got %d, want 202", i, resp.StatusCode)
		}
	}

	select {
	case <-resets:
	default:
		t.Fatal("reset not requested")
	}
	select {
	case <-resets:
		t.Error("pending resets should coalesce")
	default:
	}
}

func TestResetUnavailable(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	srv := New(":0", tr, nil)
	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/reset", "", nil)
	if err != nil {
		t.Fatalf("POST /reset: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, _, tr, _ := newTestServer(t)

	if sj := getJSON(t, ts.URL+"/index.json"); sj.Status.APM != 0 {
		t.Errorf("initial apm: got %d, want 0", sj.Status.APM)
	}

	tr.Update(300, 300, pins.Snapshot{}, logic.Stats{Actions: 5})
	tr.RecordReset()

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.APM != 0 || sj.Status.Resets != 1 {
		t.Errorf("after reset: apm=%d resets=%d", sj.Status.APM, sj.Status.Resets)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return env
}

func TestWebSocketStream(t *testing.T) {
	ts, srv, tr, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Hub().Run(ctx)

	tr.Update(10, 10, pins.Snapshot{}, logic.Stats{Actions: 10})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	env := readFrame(t, conn)
	if env.Type != "apm" {
		t.Errorf("type: got %q, want apm", env.Type)
	}
	var first status.StatusJSON
	json.Unmarshal(env.Data, &first)
	if first.Status.APM != 10 {
		t.Errorf("initial frame apm: got %d, want 10", first.Status.APM)
	}

	waitUntil(t, time.Second, func() bool { return srv.Hub().Clients() == 1 }, "client not registered")

	tr.Update(20, 20, pins.Snapshot{}, logic.Stats{Actions: 20})
	srv.Broadcast(tr.Snapshot())

	var next status.StatusJSON
	json.Unmarshal(readFrame(t, conn).Data, &next)
	if next.Status.APM != 20 {
		t.Errorf("broadcast frame apm: got %d, want 20", next.Status.APM)
	}
}

func TestHubEvictsSlowClient(t *testing.T) {
	h := NewHub(slogDiscard(), HubConfig{SendBuf: 1, BroadcastBuf: 8})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	slow := &client{hub: h, send: make(chan []byte, 1), remoteAddr: "slow"}
	h.add(slow)
	waitUntil(t, time.Second, func() bool { return h.Clients() == 1 }, "client not registered")

	h.BroadcastBytes([]byte("a"))
	h.BroadcastBytes([]byte("b")) // send queue already full

	waitUntil(t, time.Second, func() bool { return h.Clients() == 0 }, "slow client not evicted")

	// Queue is closed after the frame it did receive.
	if msg, ok := <-slow.send; !ok || string(msg) != "a" {
		t.Errorf("first frame: got %q ok=%v", msg, ok)
	}
	if _, ok := <-slow.send; ok {
		t.Error("send queue should be closed")
	}
}

func TestHubRunReturnsOnCancel(t *testing.T) {
	h := NewHub(slogDiscard(), HubConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	c := &client{hub: h, send: make(chan []byte, 1)}
	h.add(c)
	waitUntil(t, time.Second, func() bool { return h.Clients() == 1 }, "client not registered")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	if _, ok := <-c.send; ok {
		t.Error("client queue should be closed on shutdown")
	}
}

func TestHubAfterShutdown(t *testing.T) {
	h := NewHub(slogDiscard(), HubConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.Run(ctx)

	if h.add(&client{hub: h, send: make(chan []byte, 1)}) {
		t.Error("add should fail once the hub has stopped")
	}

	// More departures than the unregister queue holds.
	left := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			h.leave(&client{hub: h})
		}
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("leave blocked after shutdown")
	}
}

func TestWebSocketRejectedAfterShutdown(t *testing.T) {
	ts, srv, _, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srv.Hub().Run(ctx)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed")
	}
	if n := srv.Hub().Clients(); n != 0 {
		t.Errorf("clients: got %d, want 0", n)
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}
