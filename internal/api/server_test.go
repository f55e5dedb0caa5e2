package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/draftscan/internal/detector"
	"github.com/sells-group/draftscan/internal/model"
	"github.com/sells-group/draftscan/internal/scorer"
	"github.com/sells-group/draftscan/internal/store"
)

type testEnv struct {
	srv   *Server
	det   *detector.Detector
	store *store.MemoryStore
	h     http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	det := detector.New(nil, detector.DefaultOptions())
	st := store.NewMemory()
	srv := NewServer(det, st, Options{RatePerSec: 1000, Burst: 1000, UseAutomatic: true, UseManual: true})
	return &testEnv{srv: srv, det: det, store: st, h: srv.Handler()}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func baselinePath(id string) string {
	return "/v1/documents/" + url.PathEscape(id) + "/baseline"
}

func TestHealth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok","documents":0}`, rec.Body.String())
}

func TestBaselineLifecycle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	id := "/home/me/paper/intro.tex"

	rec := env.do(t, http.MethodGet, baselinePath(id), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, baselinePath(id), `{"text":"\\section{Intro}\n"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var put baselineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &put))
	assert.Equal(t, id, put.ID)
	assert.NotEmpty(t, put.RevisionID)

	text, ok := env.det.SavedState(id)
	require.True(t, ok)
	assert.Equal(t, "\\section{Intro}\n", text)

	stored, err := env.store.GetBaseline(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, put.RevisionID, stored.RevisionID)

	rec = env.do(t, http.MethodGet, baselinePath(id), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got baselineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "\\section{Intro}\n", got.Text)

	rec = env.do(t, http.MethodDelete, baselinePath(id), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, ok = env.det.SavedState(id)
	assert.False(t, ok)
	stored, err = env.store.GetBaseline(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, stored)

	rec = env.do(t, http.MethodGet, baselinePath(id), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutBaselineEmptyTextIsABaseline(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, baselinePath("new.tex"), `{"text":""}`)
	require.Equal(t, http.StatusOK, rec.Code)

	text, ok := env.det.SavedState("new.tex")
	assert.True(t, ok)
	assert.Empty(t, text)
}

func TestPutBaselineValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"text":`},
		{name: "missing text", body: `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPut, baselinePath("a.tex"), tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestDetectAgainstBaseline(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, baselinePath("intro.tex"), `{"text":"\\section{Intro}\n"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/detect",
		`{"id":"intro.tex","text":"\\section{Intro}\nthis is messy and needs cleanup\n"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp detectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Regions, 1)
	r := resp.Regions[0]
	assert.Equal(t, model.ProvenanceAuto, r.Type)
	assert.Equal(t, "this is messy and needs cleanup", r.Text)
	assert.Equal(t, model.Position{Line: 1, Column: 0}, r.Range.Start)
	assert.Equal(t, model.Position{Line: 1, Column: 31}, r.Range.End)
	assert.InDelta(t, 0.6, r.Confidence, 1e-9)
	assert.Equal(t, scorer.LevelMedium, r.Level)
	assert.Len(t, resp.Actionable, 1)
}

func TestDetectLoadsBaselineFromStore(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	text := "\\section{Intro}\nsome prose that was already saved earlier\n"
	_, err := env.store.SaveBaseline(context.Background(), "saved.tex", text)
	require.NoError(t, err)

	// Without the stored baseline the heuristic would flag the prose line.
	rec := env.do(t, http.MethodPost, "/v1/detect", `{"id":"saved.tex","text":`+quote(t, text)+`}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp detectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Regions)
	assert.Empty(t, resp.Actionable)

	_, ok := env.det.SavedState("saved.tex")
	assert.True(t, ok)
}

func TestDetectFlags(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	body := "```autotex\nrough notes here\n```\n"
	rec := env.do(t, http.MethodPost, "/v1/detect",
		`{"id":"flags.tex","text":`+quote(t, body)+`,"use_manual":false,"use_automatic":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var none detectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &none))
	assert.Empty(t, none.Regions)

	rec = env.do(t, http.MethodPost, "/v1/detect",
		`{"id":"flags.tex","text":`+quote(t, body)+`,"use_automatic":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var manual detectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &manual))
	require.Len(t, manual.Regions, 1)
	assert.Equal(t, model.ProvenanceManual, manual.Regions[0].Type)
	assert.Equal(t, scorer.LevelHigh, manual.Regions[0].Level)
}

func TestDetectRequiresID(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/detect", `{"text":"hello"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "id is required")
}

func TestScore(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/score", `{"text":"this is messy and needs cleanup"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp scoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 0.6, resp.Confidence, 1e-9)
	assert.Equal(t, scorer.LevelMedium, resp.Level)
	assert.InDelta(t, 1.0, resp.Breakdown.NaturalLanguageScore, 1e-9)

	rec = env.do(t, http.MethodPost, "/v1/score", `{"text":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.Confidence)
	assert.True(t, resp.Breakdown.IsShortText)
}

func TestPreload(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	for _, id := range []string{"a.tex", "b.tex"} {
		_, err := env.store.SaveBaseline(ctx, id, "text of "+id)
		require.NoError(t, err)
	}

	n, err := env.srv.Preload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rec := env.do(t, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok","documents":2}`, rec.Body.String())
	text, ok := env.det.SavedState("b.tex")
	require.True(t, ok)
	assert.Equal(t, "text of b.tex", text)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	det := detector.New(nil, detector.DefaultOptions())
	h := NewServer(det, store.NewMemory(), Options{RatePerSec: 0.001, Burst: 1}).Handler()

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/detect", nil)
	req.Header.Set("Origin", "vscode-webview://abc")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.h.ServeHTTP(rec, req)

	assert.Less(t, rec.Code, 300)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func quote(t *testing.T, s string) string {
	t.Helper()
	b, err := json.Marshal(s)
	require.NoError(t, err)
	return string(b)
}
