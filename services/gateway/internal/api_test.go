package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forge-ai/jsforge/shared/codegen"
	"github.com/forge-ai/jsforge/shared/config"
	"github.com/forge-ai/jsforge/shared/events"
	"github.com/forge-ai/jsforge/shared/history"
)

type stubProvider struct {
	reply string
	err   error
}

func (s stubProvider) Name() string { return "Gemini" }

func (s stubProvider) Generate(context.Context, string) (string, error) {
	return s.reply, s.err
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

type memHistory struct {
	entries []history.Entry
}

func (m *memHistory) Record(_ context.Context, e history.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memHistory) Recent(_ context.Context, limit int) ([]history.Entry, error) {
	return m.entries, nil
}

func newTestGateway(t *testing.T, p stubProvider) (*Gateway, string) {
	t.Helper()
	dir := t.TempDir()
	ws, err := codegen.NewWorkspace(dir, "")
	require.NoError(t, err)
	return New(config.Config{APIPort: "0"}, codegen.NewAgent(p, ws), nil, nil), dir
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/code", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCodeValidation(t *testing.T) {
	g, _ := newTestGateway(t, stubProvider{reply: "const a = 1;"})
	h := g.Handler()

	cases := []struct {
		body   string
		detail string
	}{
		{`{"mode":"generate"}`, "Prompt is required for code generation."},
		{`{"mode":"improve","prompt":"x"}`, "Code is required for improvement."},
		{`{"mode":"translate","prompt":"x"}`, "Invalid mode. Use 'generate' or 'improve'."},
		{`{not json`, "invalid body"},
	}
	for _, tc := range cases {
		rec := post(t, h, tc.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.body)
		assert.Equal(t, tc.detail, decode(t, rec)["detail"], tc.body)
	}
}

func TestCodeGenerateAutoSave(t *testing.T) {
	g, dir := newTestGateway(t, stubProvider{reply: "```js\nconst add = (a, b) => a + b;\n```"})
	hist := &memHistory{}
	g.history = hist

	rec := post(t, g.Handler(), `{"mode":"generate","prompt":"add","auto_save":true,"filename":"add.js"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	out := decode(t, rec)
	assert.Equal(t, "```js\nconst add = (a, b) => a + b;\n```", out["original"])
	assert.Equal(t, filepath.Join(dir, "add.js"), out["file_path"])

	raw, err := os.ReadFile(filepath.Join(dir, "add.js"))
	require.NoError(t, err)
	assert.Equal(t, "const add = (a, b) => a + b;", string(raw))

	require.Len(t, hist.entries, 1)
	assert.Equal(t, "add", hist.entries[0].Input)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), hist.entries[0].RequestID)
}

func TestCodeGenerateNoSave(t *testing.T) {
	g, _ := newTestGateway(t, stubProvider{reply: "const a = 1;"})

	rec := post(t, g.Handler(), `{"mode":"generate","prompt":"a"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Contains(t, out, "file_path")
	assert.Nil(t, out["file_path"])
}

func TestCodeImprove(t *testing.T) {
	g, dir := newTestGateway(t, stubProvider{reply: "Prefer const here."})

	rec := post(t, g.Handler(), `{"mode":"improve","code":"var a = 1","auto_save":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "Prefer const here.", out["improved"])
	assert.Equal(t, filepath.Join(dir, "output.js"), out["file_path"])
	assert.NotContains(t, out, "original")
}

func TestCodeProviderFailureIsSentinel(t *testing.T) {
	g, _ := newTestGateway(t, stubProvider{err: errors.New("503")})

	rec := post(t, g.Handler(), `{"mode":"generate","prompt":"a","auto_save":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "Error: Gemini API failed.", out["original"])
	assert.Nil(t, out["file_path"])
}

func TestCodeBadFilename(t *testing.T) {
	g, _ := newTestGateway(t, stubProvider{reply: "const a = 1;"})

	rec := post(t, g.Handler(), `{"mode":"generate","prompt":"a","auto_save":true,"filename":".."}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid filename.", decode(t, rec)["detail"])
}

func TestCodeAsyncQueues(t *testing.T) {
	g, _ := newTestGateway(t, stubProvider{reply: "unused"})
	pub := &recordingPublisher{}
	g.pub = pub

	rec := post(t, g.Handler(), `{"mode":"generate","prompt":"a","async":true}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "queued", out["status"])
	assert.Equal(t, rec.Header().Get("X-Request-ID"), out["request_id"])
	assert.Equal(t, []string{events.CodeRequested}, pub.keys)
}

func TestCodeAsyncQueueError(t *testing.T) {
	g, _ := newTestGateway(t, stubProvider{})
	g.pub = &recordingPublisher{err: errors.New("channel closed")}

	rec := post(t, g.Handler(), `{"mode":"improve","code":"x","async":true}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "queue error", decode(t, rec)["detail"])
}

func TestCodePublishesResults(t *testing.T) {
	g, _ := newTestGateway(t, stubProvider{reply: "const a = 1;"})
	pub := &recordingPublisher{}
	g.pub = pub

	rec := post(t, g.Handler(), `{"mode":"generate","prompt":"a","auto_save":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{events.CodeGenerated, events.CodeSaved}, pub.keys)
}

func TestCORSPreflight(t *testing.T) {
	g, _ := newTestGateway(t, stubProvider{})
	req := httptest.NewRequest(http.MethodOptions, "/code", nil)
	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusAndHistory(t *testing.T) {
	g, _ := newTestGateway(t, stubProvider{})
	h := g.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "online", out["status"])
	assert.Equal(t, "Gemini", out["provider"])
	assert.Equal(t, false, out["history"])
	assert.Equal(t, "disabled", out["broker"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/code/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	g, _ := newTestGateway(t, stubProvider{reply: "const a = 1;"})
	h := g.Handler()
	post(t, h, `{"mode":"generate","prompt":"a"}`)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jsforge_requests_total")
}

func TestMetricsModeLabelIsBounded(t *testing.T) {
	g, _ := newTestGateway(t, stubProvider{})
	h := g.Handler()
	for _, mode := range []string{"m-bounded-1", "m-bounded-2", "m-bounded-3"} {
		rec := post(t, h, `{"mode":"`+mode+`","prompt":"x"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.NotContains(t, body, "m-bounded-")
	assert.Contains(t, body, `jsforge_requests_total{mode="unknown",outcome="invalid"}`)
}

func TestCodeBodyTooLarge(t *testing.T) {
	g, _ := newTestGateway(t, stubProvider{reply: "const a = 1;"})
	big := `{"mode":"generate","prompt":"` + strings.Repeat("a", maxBodyBytes+1) + `"}`

	rec := post(t, g.Handler(), big)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid body", decode(t, rec)["detail"])
}
