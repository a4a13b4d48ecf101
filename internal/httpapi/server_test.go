package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/tenderscope/tenderscope/internal/logging"
	"github.com/tenderscope/tenderscope/internal/model"
	"github.com/tenderscope/tenderscope/internal/stream"
	"github.com/tenderscope/tenderscope/internal/workflow"
)

type fakeHistory struct {
	existing map[string]bool
}

func (h *fakeHistory) Exists(_ context.Context, tenderID string) (bool, error) {
	return h.existing[tenderID], nil
}

// fakeRunner narrates a short run through the registry, like the real
// workflow engine does.
type fakeRunner struct {
	registry *stream.Registry
	err      error
	ran      chan string
}

func (r *fakeRunner) Run(ctx context.Context, tenderID, sessionID string) (workflow.Result, error) {
	defer func() { r.ran <- tenderID }()
	if r.err != nil {
		return workflow.Result{}, r.err
	}
	_ = r.registry.Emit(ctx, sessionID, model.LogObservation("trabajando...", ""))
	_ = r.registry.Emit(ctx, sessionID, model.ResultObservation(nil, "listo"))
	return workflow.Result{Summary: "listo"}, nil
}

// gatedRunner pauses mid-run until the test releases it, so the test can
// disconnect the viewer while the investigation is still in flight.
type gatedRunner struct {
	registry *stream.Registry
	gate     chan struct{}
	done     chan struct{}
}

func (r *gatedRunner) Run(ctx context.Context, tenderID, sessionID string) (workflow.Result, error) {
	defer close(r.done)
	_ = r.registry.Emit(ctx, sessionID, model.LogObservation("descargando bases...", ""))
	<-r.gate
	_ = r.registry.Emit(ctx, sessionID, model.LogObservation("investigando...", ""))
	_ = r.registry.Emit(ctx, sessionID, model.ResultObservation(nil, "listo"))
	return workflow.Result{Summary: "listo"}, nil
}

type memPersister struct {
	mu      sync.Mutex
	entries map[string][]string
}

func newMemPersister() *memPersister {
	return &memPersister{entries: make(map[string][]string)}
}

func (p *memPersister) Append(_ context.Context, tenderID string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[tenderID] = append(p.entries[tenderID], string(payload))
	return nil
}

func (p *memPersister) events(tenderID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.entries[tenderID]...)
}

type fakeReplayer struct {
	registry *stream.Registry
	replayed chan string
}

func (r *fakeReplayer) Replay(ctx context.Context, tenderID, sessionID string) error {
	defer func() { r.replayed <- tenderID }()
	return r.registry.EmitRaw(ctx, sessionID, []byte(`{"type":"log","message":"replayed"}`))
}

func newTestServer(t *testing.T, history *fakeHistory) (*httptest.Server, *fakeRunner, *fakeReplayer) {
	t.Helper()
	log := logging.New(io.Discard, "api", logging.LevelError)
	registry := stream.NewRegistry(nil, log)
	runner := &fakeRunner{registry: registry, ran: make(chan string, 1)}
	replayer := &fakeReplayer{registry: registry, replayed: make(chan string, 1)}
	srv := httptest.NewServer(NewServer(registry, history, runner, replayer, log).Handler())
	t.Cleanup(srv.Close)
	return srv, runner, replayer
}

func postInvestigate(t *testing.T, srv *httptest.Server, tenderID string) investigateResponse {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"tender_id": tenderID})
	resp, err := http.Post(srv.URL+"/api/investigate", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out investigateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeHistory{})
	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestInvestigate_CreatesSession(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeHistory{})
	out := postInvestigate(t, srv, "1234-5-LE24")
	assert.NotEmpty(t, out.SessionID)
	assert.Equal(t, "Investigación iniciada", out.Message)
}

func TestInvestigate_ExistingTenderRoutesToReplay(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeHistory{existing: map[string]bool{"T1": true}})
	out := postInvestigate(t, srv, "T1")
	assert.Contains(t, out.Message, "almacenado")
}

func TestInvestigate_CallerSuppliedSessionID(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeHistory{})
	body := `{"tender_id":"T1","session_id":"my-session"}`
	resp, err := http.Post(srv.URL+"/api/investigate", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out investigateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "my-session", out.SessionID)
}

func TestInvestigate_MissingTenderID(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeHistory{})
	resp, err := http.Post(srv.URL+"/api/investigate", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebSocket_UnknownSession(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeHistory{})
	resp, err := http.Get(srv.URL + "/api/ws/not-a-session")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func wsURL(httpURL, sessionID string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/api/ws/" + sessionID
}

func readEvent(t *testing.T, ctx context.Context, ws *websocket.Conn) map[string]any {
	t.Helper()
	_, data, err := ws.Read(ctx)
	require.NoError(t, err)
	var obs map[string]any
	require.NoError(t, json.Unmarshal(data, &obs))
	return obs
}

func TestWebSocket_LiveRunStreamsEvents(t *testing.T) {
	srv, runner, _ := newTestServer(t, &fakeHistory{})
	out := postInvestigate(t, srv, "T1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws, _, err := websocket.Dial(ctx, wsURL(srv.URL, out.SessionID), nil)
	require.NoError(t, err)
	defer ws.Close(websocket.StatusNormalClosure, "")

	first := readEvent(t, ctx, ws)
	assert.Equal(t, "log", first["type"])
	assert.Equal(t, "trabajando...", first["message"])

	second := readEvent(t, ctx, ws)
	assert.Equal(t, "result", second["type"])
	assert.Equal(t, "completed", second["status"])

	select {
	case tender := <-runner.ran:
		assert.Equal(t, "T1", tender)
	case <-ctx.Done():
		t.Fatal("runner did not execute")
	}
}

func TestWebSocket_ReplaySession(t *testing.T) {
	srv, runner, replayer := newTestServer(t, &fakeHistory{existing: map[string]bool{"T1": true}})
	out := postInvestigate(t, srv, "T1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws, _, err := websocket.Dial(ctx, wsURL(srv.URL, out.SessionID), nil)
	require.NoError(t, err)
	defer ws.Close(websocket.StatusNormalClosure, "")

	obs := readEvent(t, ctx, ws)
	assert.Equal(t, "replayed", obs["message"])

	select {
	case tender := <-replayer.replayed:
		assert.Equal(t, "T1", tender)
	case <-ctx.Done():
		t.Fatal("replayer did not execute")
	}
	assert.Empty(t, runner.ran, "replay sessions never start a live run")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWebSocket_RunPersistsAfterViewerDisconnects(t *testing.T) {
	log := logging.New(io.Discard, "api", logging.LevelError)
	persist := newMemPersister()
	registry := stream.NewRegistry(persist, log)
	runner := &gatedRunner{registry: registry, gate: make(chan struct{}), done: make(chan struct{})}
	replayer := &fakeReplayer{registry: registry, replayed: make(chan string, 1)}
	srv := httptest.NewServer(NewServer(registry, &fakeHistory{}, runner, replayer, log).Handler())
	t.Cleanup(srv.Close)

	out := postInvestigate(t, srv, "T1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws, _, err := websocket.Dial(ctx, wsURL(srv.URL, out.SessionID), nil)
	require.NoError(t, err)
	first := readEvent(t, ctx, ws)
	assert.Equal(t, "descargando bases...", first["message"])

	// The only viewer walks away mid-run.
	require.NoError(t, ws.Close(websocket.StatusNormalClosure, ""))
	waitFor(t, func() bool { return registry.ConnCount(out.SessionID) == 0 })

	close(runner.gate)
	select {
	case <-runner.done:
	case <-ctx.Done():
		t.Fatal("runner did not finish")
	}

	// The stored stream still covers the whole run, terminal event included.
	events := persist.events("T1")
	require.Len(t, events, 3)
	assert.Contains(t, events[2], `"result"`)

	// Finished sessions are forgotten; a late attach is rejected.
	waitFor(t, func() bool {
		resp, err := http.Get(srv.URL + "/api/ws/" + out.SessionID)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	})
}

func TestWebSocket_ErrorEventOnRunFailure(t *testing.T) {
	srv, runner, _ := newTestServer(t, &fakeHistory{})
	runner.err = assert.AnError

	out := postInvestigate(t, srv, "T1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws, _, err := websocket.Dial(ctx, wsURL(srv.URL, out.SessionID), nil)
	require.NoError(t, err)
	defer ws.Close(websocket.StatusNormalClosure, "")

	obs := readEvent(t, ctx, ws)
	assert.Equal(t, "error", obs["type"])
	assert.Equal(t, "error", obs["status"])
}
