package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/vocabrelay/internal/assistant"
	"github.com/ent0n29/vocabrelay/internal/config"
	"github.com/ent0n29/vocabrelay/internal/observability"
	"github.com/ent0n29/vocabrelay/internal/relay"
	"github.com/ent0n29/vocabrelay/internal/webhook"
)

type fakeAssistant struct {
	reply assistant.Reply
	err   error
}

func (a *fakeAssistant) Decide(context.Context, string) (assistant.Reply, error) {
	return a.reply, a.err
}

// fakeSheet stands in for the Apps Script web app and records every envelope.
type fakeSheet struct {
	mu       sync.Mutex
	status   int
	response string
	bodies   []string
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
	}
	_, _ = w.Write([]byte(f.response))
}

func (f *fakeSheet) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.bodies...)
}

type testEnv struct {
	api   *httptest.Server
	sheet *fakeSheet
}

func newTestEnv(t *testing.T, a *fakeAssistant, sheet *fakeSheet, cfg config.Config) *testEnv {
	t.Helper()
	sheetSrv := httptest.NewServer(sheet)
	t.Cleanup(sheetSrv.Close)

	metrics := observability.NewMetrics("test_httpapi", prometheus.NewRegistry())
	wh := webhook.NewClient(sheetSrv.URL, 5*time.Second)
	wh.SetObserver(metrics.ObserveWebhook)
	svc := relay.NewService(a, wh, nil)

	api := httptest.NewServer(New(cfg, svc, metrics, nil).Router())
	t.Cleanup(api.Close)
	return &testEnv{api: api, sheet: sheet}
}

func postJSON(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	res, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	defer res.Body.Close()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	return res.StatusCode, payload
}

func toolCall(name, args string) assistant.Reply {
	return assistant.Reply{Call: &assistant.FunctionCallDecision{Name: name, Arguments: args}}
}

func TestChatRequiresMessage(t *testing.T) {
	env := newTestEnv(t, &fakeAssistant{}, &fakeSheet{}, config.Config{})

	for _, body := range []string{`{}`, ``, `{"message":""}`, `{"message":"  \n"}`} {
		status, payload := postJSON(t, env.api.URL+"/chat", body)
		require.Equal(t, http.StatusBadRequest, status, "body=%q", body)
		require.NotEmpty(t, payload["error"])
	}
	require.Empty(t, env.sheet.received())
}

func TestChatRejectsInvalidJSON(t *testing.T) {
	env := newTestEnv(t, &fakeAssistant{}, &fakeSheet{}, config.Config{})

	status, payload := postJSON(t, env.api.URL+"/chat", `{"message":42}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid_request", payload["code"])
}

func TestChatFreeText(t *testing.T) {
	env := newTestEnv(t, &fakeAssistant{reply: assistant.Reply{Content: "Hi! How can I help?"}}, &fakeSheet{}, config.Config{})

	status, payload := postJSON(t, env.api.URL+"/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, map[string]any{"source": "ChatGPT", "content": "Hi! How can I help?"}, payload)
	require.Empty(t, env.sheet.received())
}

func TestChatAddMemoForwardsEnvelope(t *testing.T) {
	sheet := &fakeSheet{response: `{"status":"success"}`}
	env := newTestEnv(t, &fakeAssistant{reply: toolCall("addMemo", `{"word":"run into","meaning":"偶然出会う"}`)}, sheet, config.Config{})

	status, payload := postJSON(t, env.api.URL+"/chat", `{"message":"add run into"}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "GAS", payload["source"])
	require.Equal(t, map[string]any{"status": "success"}, payload["result"])

	got := sheet.received()
	require.Len(t, got, 1)
	require.JSONEq(t, `{"action":"addMemo","data":{"word":"run into","meaning":"偶然出会う","example":"","memo":""}}`, got[0])
}

func TestChatGetMemos(t *testing.T) {
	sheet := &fakeSheet{response: `[{"word":"run into"}]`}
	env := newTestEnv(t, &fakeAssistant{reply: toolCall("getMemos", "{}")}, sheet, config.Config{})

	status, payload := postJSON(t, env.api.URL+"/chat", `{"message":"show my words"}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, []any{map[string]any{"word": "run into"}}, payload["result"])
	require.Equal(t, []string{`{"action":"getMemos"}`}, sheet.received())
}

func TestChatUnsupportedFunction(t *testing.T) {
	sheet := &fakeSheet{}
	env := newTestEnv(t, &fakeAssistant{reply: toolCall("deleteMemo", `{"word":"x"}`)}, sheet, config.Config{})

	status, payload := postJSON(t, env.api.URL+"/chat", `{"message":"delete x"}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "unsupported_function", payload["code"])
	require.Empty(t, sheet.received())
}

func TestChatMalformedArguments(t *testing.T) {
	sheet := &fakeSheet{}
	env := newTestEnv(t, &fakeAssistant{reply: toolCall("addMemo", `{"word":`)}, sheet, config.Config{})

	status, payload := postJSON(t, env.api.URL+"/chat", `{"message":"add"}`)
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "malformed_function_args", payload["code"])
	require.Empty(t, sheet.received())
}

func TestChatUpstreamFailures(t *testing.T) {
	env := newTestEnv(t, &fakeAssistant{err: errors.New("chat completion: rate limited")}, &fakeSheet{}, config.Config{})
	status, payload := postJSON(t, env.api.URL+"/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "chat completion: rate limited", payload["error"])

	sheet := &fakeSheet{status: http.StatusBadGateway, response: `{"message":"sheet locked"}`}
	env = newTestEnv(t, &fakeAssistant{reply: toolCall("getMemos", "")}, sheet, config.Config{})
	status, payload = postJSON(t, env.api.URL+"/chat", `{"message":"list"}`)
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, map[string]any{"message": "sheet locked"}, payload["error"])
}

func TestAddWordRequiresWordAndMeaning(t *testing.T) {
	sheet := &fakeSheet{}
	env := newTestEnv(t, &fakeAssistant{}, sheet, config.Config{})

	for _, body := range []string{`{"meaning":"m"}`, `{"word":"w"}`, `{}`, ``} {
		status, payload := postJSON(t, env.api.URL+"/function/addWord", body)
		require.Equal(t, http.StatusBadRequest, status, "body=%q", body)
		require.NotEmpty(t, payload["error"])
	}
	require.Empty(t, sheet.received())
}

func TestAddWordRejectsTruncatedBody(t *testing.T) {
	sheet := &fakeSheet{}
	env := newTestEnv(t, &fakeAssistant{}, sheet, config.Config{})

	status, payload := postJSON(t, env.api.URL+"/function/addWord", `{"word":"w","meaning":"m"`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid_request", payload["code"])
	require.Contains(t, payload["error"], "unexpected EOF")
	require.Empty(t, sheet.received())
}

func TestAddWordForwardsWithEmptyDefaults(t *testing.T) {
	sheet := &fakeSheet{response: `{"status":"success"}`}
	env := newTestEnv(t, &fakeAssistant{}, sheet, config.Config{})

	status, payload := postJSON(t, env.api.URL+"/function/addWord", `{"word":"run into","meaning":"偶然出会う","example":"I ran into him."}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, map[string]any{"source": "GAS", "result": map[string]any{"status": "success"}}, payload)
	require.Equal(t, 1, len(sheet.received()))
	require.JSONEq(t, `{"action":"addMemo","data":{"word":"run into","meaning":"偶然出会う","example":"I ran into him.","memo":""}}`, sheet.received()[0])
}

func TestAddWordWebhookFailure(t *testing.T) {
	sheet := &fakeSheet{response: `<html>not json</html>`}
	env := newTestEnv(t, &fakeAssistant{}, sheet, config.Config{})

	status, payload := postJSON(t, env.api.URL+"/function/addWord", `{"word":"w","meaning":"m"}`)
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "Failed to call GAS Web App", payload["error"])
}

func TestGetMemosRelaysBodyUnchanged(t *testing.T) {
	sheet := &fakeSheet{response: `{"memos":[{"word":"a","meaning":"b"}],"count":1}`}
	env := newTestEnv(t, &fakeAssistant{}, sheet, config.Config{})

	res, err := http.Get(env.api.URL + "/function/getMemos?action=addMemo&word=x")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var payload struct {
		Source string          `json:"source"`
		Result json.RawMessage `json:"result"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.Equal(t, "GAS", payload.Source)
	require.JSONEq(t, sheet.response, string(payload.Result))
	require.Equal(t, []string{`{"action":"getMemos"}`}, sheet.received())
}

func TestGetMemosWebhookFailure(t *testing.T) {
	sheet := &fakeSheet{status: http.StatusInternalServerError, response: `{}`}
	env := newTestEnv(t, &fakeAssistant{}, sheet, config.Config{})

	res, err := http.Get(env.api.URL + "/function/getMemos")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
	require.Equal(t, "Failed to call GAS Web App for getMemos", payload["error"])
}

func TestOpenAPIMissing(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, &fakeAssistant{}, &fakeSheet{}, config.Config{OpenAPIPath: filepath.Join(dir, "openapi.json")})

	res, err := http.Get(env.api.URL + "/openapi.json")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	require.Contains(t, res.Header.Get("Content-Type"), "text/plain")
}

func TestOpenAPIServesWorkingDirectoryFile(t *testing.T) {
	dir := t.TempDir()
	doc := []byte("{\n  \"openapi\": \"3.1.0\",\n  \"info\": {\"title\": \"x\"}\n}\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "openapi.json"), doc, 0o644))
	prevDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prevDir) })

	env := newTestEnv(t, &fakeAssistant{}, &fakeSheet{}, config.Config{OpenAPIPath: "openapi.json"})

	res, err := http.Get(env.api.URL + "/openapi.json")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "application/json", res.Header.Get("Content-Type"))

	got, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, doc, got)
}

func TestOperationalRoutes(t *testing.T) {
	env := newTestEnv(t, &fakeAssistant{reply: toolCall("getMemos", "")}, &fakeSheet{response: `[]`}, config.Config{})
	status, _ := postJSON(t, env.api.URL+"/chat", `{"message":"list"}`)
	require.Equal(t, http.StatusOK, status)

	res, err := http.Get(env.api.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NotEmpty(t, res.Header.Get("X-Request-ID"))

	res, err = http.Get(env.api.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	require.Contains(t, string(body), `test_httpapi_webhook_calls_total{action="getMemos",outcome="ok"} 1`)

	res, err = http.Get(env.api.URL + "/perf/latency")
	require.NoError(t, err)
	defer res.Body.Close()
	var snap observability.LatencySnapshot
	require.NoError(t, json.NewDecoder(res.Body).Decode(&snap))
	require.Len(t, snap.Upstreams, 1)
	require.Equal(t, "webhook:getMemos", snap.Upstreams[0].Upstream)
}

func TestRequestIDIsPropagated(t *testing.T) {
	env := newTestEnv(t, &fakeAssistant{}, &fakeSheet{}, config.Config{})

	req, err := http.NewRequest(http.MethodGet, env.api.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, "abc-123", res.Header.Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	cfg := config.Config{CORSAllowedOrigins: []string{"https://chat.openai.com"}}
	env := newTestEnv(t, &fakeAssistant{}, &fakeSheet{}, cfg)

	req, err := http.NewRequest(http.MethodOptions, env.api.URL+"/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://chat.openai.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "https://chat.openai.com", res.Header.Get("Access-Control-Allow-Origin"))

	req, err = http.NewRequest(http.MethodGet, env.api.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example")
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Empty(t, res.Header.Get("Access-Control-Allow-Origin"))
}
