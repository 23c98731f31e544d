package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floriandheer/ordermon/config"
	"github.com/floriandheer/ordermon/document"
	"github.com/floriandheer/ordermon/monitor"
	"github.com/floriandheer/ordermon/state"
	"github.com/floriandheer/ordermon/woo"
)

type testEnv struct {
	server *Server
	hub    *ActivityHub
	store  *state.FileStore
	http   *httptest.Server
}

// fakeRenderer and fakeSource keep the server tests free of Chrome and the
// network.
type fakeRenderer struct{}

func (fakeRenderer) RenderPDF(_ context.Context, _ string) ([]byte, error) {
	return []byte("%PDF"), nil
}
func (fakeRenderer) Close() error { return nil }

type fakeLabelSource struct{}

func (fakeLabelSource) FetchLabelURL(_ context.Context, _ int64) (string, error) { return "", nil }
func (fakeLabelSource) DownloadLabel(_ context.Context, _ string) ([]byte, error) {
	return []byte("%PDF"), nil
}

type fakeSource struct{ orders []woo.Order }

func (f *fakeSource) FetchOrders(_ context.Context, _ woo.FetchOptions) ([]woo.Order, error) {
	return f.orders, nil
}
func (f *fakeSource) TestConnection(_ context.Context) error { return nil }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	store, err := state.OpenFileStore(filepath.Join(dir, "state.json"), nil)
	require.NoError(t, err)

	hub := NewActivityHub(nil)

	processor := monitor.NewProcessor(store,
		document.NewInvoiceGenerator(fakeRenderer{}, config.InvoiceConfig{}, nil),
		document.NewLabelGenerator(fakeLabelSource{}, nil),
		document.NewDetailsGenerator(nil),
		config.FolderConfig{BaseDir: filepath.Join(dir, "orders"), Template: "{order_number}", MaxNameLength: 64},
		config.DocumentsConfig{Invoice: true, Label: true, Details: true},
		nil)

	mon := monitor.New(&fakeSource{}, processor, store,
		config.MonitorConfig{PollIntervalSeconds: 3600, LookbackHours: 48, PageSize: 100},
		config.FiltersConfig{}, hub, nil)

	srv := New(mon, store, hub, config.ServerConfig{}, nil)
	srv.baseCtx = context.Background()

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	t.Cleanup(mon.Stop)

	return &testEnv{server: srv, hub: hub, store: store, http: ts}
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)

	var body struct {
		Monitor monitor.Snapshot `json:"monitor"`
		Clients int              `json:"clients"`
		Version string           `json:"version"`
	}
	code := getJSON(t, env.http.URL+"/api/status", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.False(t, body.Monitor.Running)
	assert.Zero(t, body.Clients)
	assert.NotEmpty(t, body.Version)
}

func TestStartStopEndpoints(t *testing.T) {
	env := newTestEnv(t)

	var body map[string]string
	code := postJSON(t, env.http.URL+"/api/monitor/start", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "started", body["status"])

	// Second start conflicts.
	code = postJSON(t, env.http.URL+"/api/monitor/start", &body)
	assert.Equal(t, http.StatusConflict, code)

	code = postJSON(t, env.http.URL+"/api/monitor/stop", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "stopped", body["status"])
}

func TestCheckRequiresRunningMonitor(t *testing.T) {
	env := newTestEnv(t)

	var body map[string]string
	code := postJSON(t, env.http.URL+"/api/monitor/check", &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "not running")
}

func TestProcessedEndpoint(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Record(state.ProcessedRecord{
		OrderID:     7421,
		OrderNumber: "7421",
		ProcessedAt: time.Now(),
		Outcome:     state.OutcomeSuccess,
	}))

	var body struct {
		Count  int                     `json:"count"`
		Orders []state.ProcessedRecord `json:"orders"`
	}
	code := getJSON(t, env.http.URL+"/api/processed", &body)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Orders, 1)
	assert.Equal(t, "7421", body.Orders[0].OrderNumber)
}

func TestMethodGuards(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.http.URL+"/api/status", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(env.http.URL + "/api/monitor/start")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebSocketActivityFeed(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration is asynchronous with the dial.
	require.Eventually(t, func() bool {
		return env.hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	env.hub.BroadcastCycleStarted("abc123", monitor.TriggerManual)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg CycleStartedMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "cycle_started", msg.Type)
	assert.Equal(t, "abc123", msg.CycleID)
	assert.Equal(t, monitor.TriggerManual, msg.Trigger)
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := NewActivityHub(nil)
	c := &client{sendMsg: make(chan interface{}, 1)}
	hub.clients[c] = true

	assert.Equal(t, 1, hub.broadcastMessage("first"))
	// Buffer full now; message is dropped rather than blocking.
	assert.Equal(t, 0, hub.broadcastMessage("second"))
}

func TestHubBroadcastSurvivesDisconnects(t *testing.T) {
	hub := NewActivityHub(nil)

	// Clients connecting and dropping while a cycle broadcasts must never
	// land a send on a closed channel.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5000; i++ {
			c := &client{sendMsg: make(chan interface{}, 1)}
			hub.register(c)
			hub.unregister(c)
		}
	}()

	for {
		select {
		case <-done:
			assert.Zero(t, hub.ClientCount())
			return
		default:
			hub.BroadcastCycleStarted("deadbeef", monitor.TriggerSchedule)
		}
	}
}
