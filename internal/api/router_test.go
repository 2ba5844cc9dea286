package api

import (
	"bytes"
	"context"
	"delivery-trajectory-service/internal/adapters/repositories"
	"delivery-trajectory-service/internal/adapters/routing"
	"delivery-trajectory-service/internal/api/dto"
	"delivery-trajectory-service/internal/api/handlers"
	"delivery-trajectory-service/internal/platform/db"
	"delivery-trajectory-service/internal/services"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ingestBody = `{
	"reports": [
		{"id": "r1", "location": "114.000,22.500", "timestamp": "2026-03-01T09:00:00Z", "status": "pickup"},
		{"id": "r2", "location": [114.001, 22.501], "timestamp": "2026-03-01T09:01:00Z"},
		{"id": "r3", "location": "POINT(114.002 22.502)", "timestamp": "2026-03-01T09:02:00Z", "status": "in_transit"},
		{"id": "bad", "location": "north of the harbour", "timestamp": "2026-03-01T09:03:00Z"}
	]
}`

type testServer struct {
	srv    *httptest.Server
	engine *services.Engine
	hub    *handlers.StreamHub
}

func newTestServer(t *testing.T, writer *repositories.SqliteReportRepository) *testServer {
	t.Helper()

	opts := services.DefaultOptions()
	opts.PlanningBackoff = 0
	opts.MinLegDuration = 20 * time.Millisecond
	opts.MaxLegDuration = 40 * time.Millisecond
	opts.FrameInterval = 2 * time.Millisecond
	opts.CameraThrottle = 0
	opts.FollowResumeDelay = time.Hour

	engine := services.NewEngine(services.NewPlanner(routing.NewMockRouteProvider(nil), nil, opts), opts)
	hub := handlers.NewStreamHub()
	unsubscribe := engine.Subscribe(hub)

	var router http.Handler
	if writer != nil {
		router = NewRouter(engine, writer, hub)
	} else {
		router = NewRouter(engine, nil, hub)
	}
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		srv.Close()
		unsubscribe()
		hub.Close()
		engine.Close()
	})
	return &testServer{srv: srv, engine: engine, hub: hub}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, r)
	require.NoError(t, err)
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) waitIdle(t *testing.T, key string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ts.engine.WaitIdle(ctx, key))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = ts.do(t, http.MethodPost, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestIngestAndState(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodPost, "/subjects/order-1/reports", ingestBody)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out dto.IngestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "order-1", out.SubjectKey)
	assert.Equal(t, 3, out.Accepted)
	require.Len(t, out.Rejected, 1)
	assert.Equal(t, 3, out.Rejected[0].Index)
	assert.Equal(t, "bad", out.Rejected[0].ID)

	ts.waitIdle(t, "order-1")

	resp = ts.do(t, http.MethodGet, "/subjects/order-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	line, ok := fc.Features[0].Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Len(t, line, 3)

	pt, ok := fc.Features[1].Geometry.(orb.Point)
	require.True(t, ok)
	assert.InDelta(t, 114.002, pt.Lon(), 1e-9)

	resp = ts.do(t, http.MethodGet, "/subjects/order-1/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sum dto.StateSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sum))
	assert.Equal(t, 3, sum.CompletedPoints)
	assert.False(t, sum.IsPlaying)
	assert.True(t, sum.Following)

	resp = ts.do(t, http.MethodGet, "/subjects", "")
	var list dto.ListSubjectsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, []string{"order-1"}, list.Subjects)
}

func reportJSON(id, location string, minute int) string {
	return fmt.Sprintf(`{"id": %q, "location": %q, "timestamp": "2026-03-01T09:%02d:00Z"}`, id, location, minute)
}

func batchJSON(appendOnly bool, reports ...string) string {
	return fmt.Sprintf(`{"append": %t, "reports": [%s]}`, appendOnly, strings.Join(reports, ","))
}

func (ts *testServer) summary(t *testing.T, key string) dto.StateSummary {
	t.Helper()
	resp := ts.do(t, http.MethodGet, "/subjects/"+key+"/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sum dto.StateSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sum))
	return sum
}

func TestIngestCumulativeBatchesGrowOneEpisode(t *testing.T) {
	ts := newTestServer(t, nil)
	r1 := reportJSON("r1", "114.000,22.500", 0)
	r2 := reportJSON("r2", "114.001,22.501", 1)
	r3 := reportJSON("r3", "114.002,22.502", 2)

	resp := ts.do(t, http.MethodPost, "/subjects/order-1/reports", batchJSON(false, r1, r2))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	ts.waitIdle(t, "order-1")
	sum := ts.summary(t, "order-1")
	assert.Equal(t, 1, sum.Generation)
	assert.Equal(t, 2, sum.CompletedPoints)

	resp = ts.do(t, http.MethodPost, "/subjects/order-1/reports", batchJSON(false, r1, r2, r3))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	ts.waitIdle(t, "order-1")
	sum = ts.summary(t, "order-1")
	assert.Equal(t, 1, sum.Generation)
	assert.Equal(t, 3, sum.CompletedPoints)
}

func TestIngestAppendBatchesExtendEpisode(t *testing.T) {
	ts := newTestServer(t, nil)

	for i, loc := range []string{"114.000,22.500", "114.001,22.501", "114.002,22.502"} {
		body := batchJSON(i > 0, reportJSON(fmt.Sprintf("r%d", i+1), loc, i))
		resp := ts.do(t, http.MethodPost, "/subjects/order-1/reports", body)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
	}
	ts.waitIdle(t, "order-1")

	sum := ts.summary(t, "order-1")
	assert.Equal(t, 1, sum.Generation)
	assert.Equal(t, 3, sum.CompletedPoints)
	assert.Equal(t, []float64{114.002, 22.502}, sum.CurrentPosition)
}

func TestIngestRejectsBadBodies(t *testing.T) {
	ts := newTestServer(t, nil)

	cases := map[string]string{
		"not json":      `{`,
		"unknown field": `{"reports": [], "extra": 1}`,
		"two objects":   `{"reports": []}{"reports": []}`,
		"bad origin":    `{"reports": [], "origin": "somewhere"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/subjects/order-1/reports", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestIngestPersistsReports(t *testing.T) {
	conn, err := db.OpenSqlite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, repositories.InitSchema(conn))
	repo := repositories.NewSqliteReportRepository(conn)

	ts := newTestServer(t, repo)
	resp := ts.do(t, http.MethodPost, "/subjects/order-7/reports", ingestBody)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	stored, err := repo.ListReports(context.Background(), "order-7")
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestDeleteSubject(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodPost, "/subjects/order-1/reports", ingestBody)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/subjects/order-1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/subjects/order-1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/subjects/order-1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResetEpisodeEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodPost, "/subjects/order-1/episode", `{"anchor": [114.1, 22.6]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sum dto.StateSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sum))
	assert.Equal(t, 1, sum.Generation)
	assert.Equal(t, []float64{114.1, 22.6}, sum.EpisodeStart)

	resp = ts.do(t, http.MethodPost, "/subjects/order-1/episode", `{"anchor": [400, 0]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCameraGestures(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodPost, "/subjects/nobody/camera/pan-start", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/subjects/order-1/reports", ingestBody)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/subjects/order-1/camera/pan-start", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fs dto.FollowStateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fs))
	assert.False(t, fs.Following)
	assert.NotNil(t, fs.OverrideUntil)

	resp = ts.do(t, http.MethodPost, "/subjects/order-1/camera/recenter", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fs = dto.FollowStateResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fs))
	assert.True(t, fs.Following)

	resp = ts.do(t, http.MethodPost, "/subjects/order-1/camera/spin", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamPushesFrames(t *testing.T) {
	ts := newTestServer(t, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/subjects/order-1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return ts.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	resp := ts.do(t, http.MethodPost, "/subjects/order-1/reports", ingestBody)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	sawCamera := false
	longestCompleted := 0
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg dto.StreamMessage
		require.NoError(t, json.NewDecoder(bytes.NewReader(raw)).Decode(&msg))
		assert.Equal(t, "order-1", msg.SubjectKey)

		if msg.Type == "camera" {
			sawCamera = true
			continue
		}
		require.Equal(t, "frame", msg.Type)
		longestCompleted = max(longestCompleted, len(msg.CompletedPath))
		if !msg.IsAnimating && msg.Position[0] == 114.002 {
			break
		}
	}
	assert.True(t, sawCamera)
	// The second leg opens with the committed r1 -> r2 line.
	assert.Equal(t, 2, longestCompleted)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodPost, "/subjects/order-1/reports", ingestBody)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "trajectory_active_subjects")
}
