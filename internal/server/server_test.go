package server

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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/procscope/internal/proc"
	"github.com/blackwell-systems/procscope/internal/tree"
)

func newTestServer(t *testing.T) (*Server, *tree.Store, *httptest.Server) {
	t.Helper()

	store := tree.NewStore(1, tree.Options{})
	err := store.Apply(&proc.Record{
		Pid: 1, Name: "root", Command: "/sbin/root", CPULoad: 0.5, Memory: 1024,
		Children: []*proc.Record{
			{Pid: 20, PPid: 1, Name: "node", Command: "node --inspect=9229 app.js", CPULoad: 3, Memory: 2048},
			{Pid: 10, PPid: 1, Name: "sh", Command: "sh -c sleep", CPULoad: 0, Memory: 512,
				Children: []*proc.Record{
					{Pid: 11, PPid: 10, Name: "sleep", Command: "sleep 60"},
				}},
		},
	})
	require.NoError(t, err)

	srv, err := New(store, Options{})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		store.Close()
	})
	return srv, store, ts
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthz(t *testing.T) {
	_, _, ts := newTestServer(t)

	var body map[string]string
	resp := getJSON(t, ts.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestTreeEndpoint(t *testing.T) {
	_, _, ts := newTestServer(t)

	var root nodeView
	resp := getJSON(t, ts.URL+"/api/tree", &root)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, int32(1), root.Pid)
	require.Len(t, root.Children, 2)
	// children come back sorted by pid
	assert.Equal(t, int32(10), root.Children[0].Pid)
	assert.Equal(t, int32(20), root.Children[1].Pid)
	require.Len(t, root.Children[0].Children, 1)
	assert.Equal(t, int32(11), root.Children[0].Children[0].Pid)
}

func TestTreeEndpoint_DebugAnnotation(t *testing.T) {
	_, _, ts := newTestServer(t)

	var root nodeView
	getJSON(t, ts.URL+"/api/tree", &root)

	node := root.Children[1]
	require.NotNil(t, node.Debug, "node with --inspect flag should carry debug info")
	assert.Equal(t, "inspector", node.Debug.Kind)
	assert.Equal(t, 9229, node.Debug.Port)

	assert.Nil(t, root.Children[0].Debug, "plain shell should not be debuggable")
}

func TestNodeEndpoint(t *testing.T) {
	_, _, ts := newTestServer(t)

	var node nodeView
	resp := getJSON(t, ts.URL+"/api/nodes/10", &node)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(10), node.Pid)
	assert.Len(t, node.Children, 1)
}

func TestNodeEndpoint_NotFound(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp := getJSON(t, ts.URL+"/api/nodes/9999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNodeEndpoint_BadPid(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp := getJSON(t, ts.URL+"/api/nodes/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChildrenEndpoint(t *testing.T) {
	_, _, ts := newTestServer(t)

	var children []nodeView
	resp := getJSON(t, ts.URL+"/api/nodes/1/children", &children)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, children, 2)
	assert.Nil(t, children[0].Children, "children listing is shallow")
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, ts := newTestServer(t)
	srv.metrics.CycleOK(50*time.Millisecond, 4)
	srv.metrics.CyclePartial(10*time.Millisecond, 3)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `procscope_poll_cycles_total{status="ok"} 1`)
	assert.Contains(t, string(body), `procscope_poll_cycles_total{status="partial"} 1`)
	assert.Contains(t, string(body), "procscope_tree_nodes 3")
}

func TestEventsWebSocket(t *testing.T) {
	_, store, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// A merge after subscription must produce one tree_changed message.
	err = store.Apply(&proc.Record{Pid: 1, Name: "root", Command: "/sbin/root"})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]string
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "tree_changed", msg["type"])
}

func TestEventsWebSocket_ClosesWithStore(t *testing.T) {
	_, store, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	store.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "server should close the socket when the store closes")
}

func TestServerStartShutdown(t *testing.T) {
	store := tree.NewStore(1, tree.Options{})
	defer store.Close()

	srv, err := New(store, Options{Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	require.NoError(t, srv.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
