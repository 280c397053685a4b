package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"designforge/internal/artifact"
	"designforge/internal/logging"
	"designforge/internal/pipeline"
	"designforge/internal/service/design"
	"designforge/internal/store"
	"designforge/internal/types"
)

type stubRunner struct{}

func (stubRunner) Run(_ context.Context, _ string, productType types.ProductType, progress pipeline.ProgressFunc) (*types.DesignPacket, error) {
	for _, st := range pipeline.Stages {
		progress(st)
	}
	return &types.DesignPacket{
		Specification: &types.ProductSpecification{
			ProductName:  "Test Rover",
			ProductType:  productType,
			Summary:      "A rover.",
			Constraints:  &types.Constraints{},
			PartsList:    []types.Part{},
			DiagramsPlan: []types.DiagramRequest{{Type: types.DiagramTop, Title: "Top"}},
		},
		Images: []types.GeneratedImage{{
			DiagramType: types.DiagramTop,
			Title:       "Top",
			DataURL:     "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes")),
		}},
		SelfCheck: types.SelfCheckResult{Issues: []string{}},
	}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc, err := design.New(stubRunner{}, design.Options{
		Store:  store.NewMemoryStore(),
		Assets: artifact.NewMemoryStore(),
		Logger: logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	srv := httptest.NewServer(NewMux(NewHandler(svc, logging.Discard()), logging.Discard()))
	t.Cleanup(srv.Close)
	return srv
}

func postDesign(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/designs", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

func readEvents(t *testing.T, srv *httptest.Server, runID string) []design.Event {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/runs/" + runID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var out []design.Event
	for {
		var ev design.Event
		if err := conn.ReadJSON(&ev); err != nil {
			require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected read error: %v", err)
			return out
		}
		out = append(out, ev)
	}
}

func TestDesignLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp := postDesign(t, srv, `{"description":"a small rover","productType":"Robotic"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var created struct {
		RunID string `json:"runId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.RunID)

	events := readEvents(t, srv, created.RunID)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, design.EventComplete, last.Type)
	require.NotEmpty(t, last.RecordID)

	runResp, err := http.Get(srv.URL + "/api/runs/" + created.RunID)
	require.NoError(t, err)
	defer runResp.Body.Close()
	var snap design.Snapshot
	require.NoError(t, json.NewDecoder(runResp.Body).Decode(&snap))
	require.Equal(t, pipeline.StageComplete, snap.Stage)
	require.Equal(t, last.RecordID, snap.RecordID)

	listResp, err := http.Get(srv.URL + "/api/designs?limit=5")
	require.NoError(t, err)
	defer listResp.Body.Close()
	var list []recordSummary
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	require.Len(t, list, 1)
	require.Equal(t, "Test Rover", list[0].ProductName)
	require.Equal(t, types.ProductRobotic, list[0].ProductType)

	recResp, err := http.Get(srv.URL + "/api/designs/" + last.RecordID)
	require.NoError(t, err)
	defer recResp.Body.Close()
	require.Equal(t, http.StatusOK, recResp.StatusCode)
	var rec store.Record
	require.NoError(t, json.NewDecoder(recResp.Body).Decode(&rec))
	require.Len(t, rec.Packet.Images, 1)

	expResp, err := http.Get(srv.URL + "/api/designs/" + last.RecordID + "/export")
	require.NoError(t, err)
	defer expResp.Body.Close()
	require.Equal(t, http.StatusOK, expResp.StatusCode)
	require.Contains(t, expResp.Header.Get("Content-Type"), "text/html")
	require.Equal(t, "attachment; filename=test-rover.html", expResp.Header.Get("Content-Disposition"))

	assetResp, err := http.Get(srv.URL + "/api/designs/" + last.RecordID + "/assets/images/1-top.png")
	require.NoError(t, err)
	defer assetResp.Body.Close()
	require.Equal(t, http.StatusOK, assetResp.StatusCode)
	require.Equal(t, "image/png", assetResp.Header.Get("Content-Type"))
	var body bytes.Buffer
	_, _ = body.ReadFrom(assetResp.Body)
	require.Equal(t, "png-bytes", body.String())
}

func TestCreateDesignRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)
	for _, body := range []string{
		`not json`,
		`{"description":"x","productType":"boat"}`,
		`{"description":"   ","productType":"digital"}`,
	} {
		resp := postDesign(t, srv, body)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %s", body)
	}
}

func TestNotFoundAndBadQuery(t *testing.T) {
	srv := newTestServer(t)
	cases := map[string]int{
		"/api/designs/123":                http.StatusNotFound,
		"/api/designs/123/export":         http.StatusNotFound,
		"/api/designs/123/assets/a/b.png": http.StatusNotFound,
		"/api/runs/missing":               http.StatusNotFound,
		"/api/runs/missing/ws":            http.StatusNotFound,
		"/api/designs?limit=abc":          http.StatusBadRequest,
		"/api/designs?limit=0":            http.StatusBadRequest,
		"/healthz":                        http.StatusOK,
	}
	for path, want := range cases {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, want, resp.StatusCode, path)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/designs", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}
