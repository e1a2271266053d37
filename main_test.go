package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xiaoLing0721/deeplx-worker/cache"
	"github.com/xiaoLing0721/deeplx-worker/deepl"
)

const backendSuccess = `{"jsonrpc":"2.0","id":1,"result":{"texts":[{"text":"Hallo Welt","alternatives":[{"text":"Moin Welt"}]}],"lang":"EN"}}`

// testEnv wires the package-level translator to a fake backend and exposes
// the backend call counter and last request body for assertions.
type testEnv struct {
	store   *cache.MemoryStore
	calls   *int32
	lastReq *[]byte
}

func setupTestEnv(t *testing.T, backendBody string, backendStatus int) testEnv {
	t.Helper()

	var calls int32
	var lastReq []byte

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		buf := new(bytes.Buffer)
		buf.ReadFrom(r.Body)
		lastReq = buf.Bytes()
		if backendStatus != http.StatusOK {
			w.WriteHeader(backendStatus)
		}
		w.Write([]byte(backendBody))
	}))
	t.Cleanup(backend.Close)

	origConf := conf
	origTranslator := translator
	t.Cleanup(func() {
		conf = origConf
		translator = origTranslator
	})

	conf.Configuration.AccessToken = ""
	conf.Configuration.DlSession = ""
	conf.FeatureFlags.CacheEnabled = true

	store := cache.NewMemoryStore()
	translator = deepl.NewTranslator(deepl.NewClient(backend.URL, 5*time.Second), store, time.Hour)

	return testEnv{store: store, calls: &calls, lastReq: &lastReq}
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(w, r)
	return w
}

func TestFreeTranslateSuccess(t *testing.T) {
	env := setupTestEnv(t, backendSuccess, http.StatusOK)
	handler := buildHandler()

	w := postJSON(t, handler, "/translate", `{"text":"Hello World","source_lang":"en","target_lang":"de"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Cache-Status"); got != "MISS" {
		t.Errorf("X-Cache-Status = %q, want MISS", got)
	}

	var result deepl.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Decode response: %v", err)
	}
	if result.Code != 200 || result.Data != "Hallo Welt" {
		t.Errorf("Result = %+v, want code 200 with data 'Hallo Welt'", result)
	}
	if result.Method != deepl.MethodFree {
		t.Errorf("Method = %q, want Free", result.Method)
	}
	if result.Cached {
		t.Error("Cached = true on a fresh call, want false")
	}
	if got := atomic.LoadInt32(env.calls); got != 1 {
		t.Errorf("Backend called %d times, want 1", got)
	}
}

func TestFreeTranslateCacheHit(t *testing.T) {
	setupTestEnv(t, backendSuccess, http.StatusOK)
	handler := buildHandler()

	postJSON(t, handler, "/translate", `{"text":"Hello World","target_lang":"de"}`)
	translator.Flush()

	w := postJSON(t, handler, "/translate", `{"text":"Hello World","target_lang":"de"}`)

	if got := w.Header().Get("X-Cache-Status"); got != "HIT" {
		t.Errorf("X-Cache-Status = %q, want HIT", got)
	}

	var result deepl.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Decode response: %v", err)
	}
	if !result.Cached {
		t.Error("Cached = false on the second call, want true")
	}
}

func TestTranslateEmptyTextReturns400(t *testing.T) {
	env := setupTestEnv(t, backendSuccess, http.StatusOK)
	handler := buildHandler()

	w := postJSON(t, handler, "/translate", `{"text":"","source_lang":"EN","target_lang":"JA"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decode response: %v", err)
	}
	if resp.Code != 400 || resp.Message != "No text to translate." {
		t.Errorf("Response = %+v, want code 400 with the validation message", resp)
	}
	if got := atomic.LoadInt32(env.calls); got != 0 {
		t.Errorf("Backend called %d times, want 0", got)
	}
}

func TestTranslateBackendThrottled(t *testing.T) {
	setupTestEnv(t, "", http.StatusTooManyRequests)
	handler := buildHandler()

	w := postJSON(t, handler, "/translate", `{"text":"Hello","target_lang":"de"}`)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want 429", w.Code)
	}

	var result deepl.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Decode response: %v", err)
	}
	if result.Cached {
		t.Error("Cached = true, want false")
	}

	// No cache write happened: the identical follow-up still misses
	translator.Flush()
	w = postJSON(t, handler, "/translate", `{"text":"Hello","target_lang":"de"}`)
	if got := w.Header().Get("X-Cache-Status"); got != "MISS" {
		t.Errorf("X-Cache-Status on retry = %q, want MISS", got)
	}
}

func TestProEndpointWithoutSession(t *testing.T) {
	env := setupTestEnv(t, backendSuccess, http.StatusOK)
	handler := buildHandler()

	w := postJSON(t, handler, "/v1/translate", `{"text":"Hello","target_lang":"de"}`)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", w.Code)
	}
	if got := atomic.LoadInt32(env.calls); got != 0 {
		t.Errorf("Backend called %d times, want 0", got)
	}
}

func TestProEndpointWithSession(t *testing.T) {
	setupTestEnv(t, backendSuccess, http.StatusOK)
	conf.Configuration.DlSession = "session-token"
	handler := buildHandler()

	w := postJSON(t, handler, "/v1/translate", `{"text":"Hello","target_lang":"de"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var result deepl.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Decode response: %v", err)
	}
	if result.Method != deepl.MethodPro {
		t.Errorf("Method = %q, want Pro", result.Method)
	}
}

func TestV2TranslateJoinsTextList(t *testing.T) {
	env := setupTestEnv(t, backendSuccess, http.StatusOK)
	handler := buildHandler()

	w := postJSON(t, handler, "/v2/translate", `{"text":["Hello","World"],"target_lang":"de"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	// The backend received one joined segment, not per-segment calls
	if got := atomic.LoadInt32(env.calls); got != 1 {
		t.Fatalf("Backend called %d times, want 1", got)
	}
	var envlp struct {
		Params struct {
			Texts []struct {
				Text string `json:"text"`
			} `json:"texts"`
		} `json:"params"`
	}
	if err := json.Unmarshal(*env.lastReq, &envlp); err != nil {
		t.Fatalf("Decode backend request: %v", err)
	}
	if len(envlp.Params.Texts) != 1 || envlp.Params.Texts[0].Text != "Hello\nWorld" {
		t.Errorf("Backend texts = %+v, want one segment 'Hello\\nWorld'", envlp.Params.Texts)
	}

	var resp OfficialResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decode response: %v", err)
	}
	if len(resp.Translations) != 1 {
		t.Fatalf("Translations = %+v, want one entry", resp.Translations)
	}
	if resp.Translations[0].DetectedSourceLanguage != "EN" || resp.Translations[0].Text != "Hallo Welt" {
		t.Errorf("Translation = %+v, want detected EN with text 'Hallo Welt'", resp.Translations[0])
	}
	if resp.Cached {
		t.Error("Cached = true on a fresh call, want false")
	}
}

func TestV2TranslateSingleString(t *testing.T) {
	setupTestEnv(t, backendSuccess, http.StatusOK)
	handler := buildHandler()

	w := postJSON(t, handler, "/v2/translate", `{"text":"Hello","target_lang":"de"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
}

func TestV2TranslateErrorFallsBackToSimpleShape(t *testing.T) {
	setupTestEnv(t, "", http.StatusTooManyRequests)
	handler := buildHandler()

	w := postJSON(t, handler, "/v2/translate", `{"text":"Hello","target_lang":"de"}`)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want 429", w.Code)
	}
	var result deepl.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Decode response: %v", err)
	}
	if result.Code != http.StatusTooManyRequests {
		t.Errorf("Code = %d, want 429", result.Code)
	}
}

func TestPrivateModeRejectsWithoutToken(t *testing.T) {
	env := setupTestEnv(t, backendSuccess, http.StatusOK)
	conf.Configuration.AccessToken = "secret"
	handler := buildHandler()

	w := postJSON(t, handler, "/translate", `{"text":"Hello","target_lang":"de"}`)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decode response: %v", err)
	}
	if resp.Message != "Invalid access token" {
		t.Errorf("Message = %q, want 'Invalid access token'", resp.Message)
	}

	// The dispatcher never ran: no outbound call was made
	if got := atomic.LoadInt32(env.calls); got != 0 {
		t.Errorf("Backend called %d times, want 0", got)
	}
}

func TestPrivateModeAcceptsValidToken(t *testing.T) {
	setupTestEnv(t, backendSuccess, http.StatusOK)
	conf.Configuration.AccessToken = "secret"
	handler := buildHandler()

	w := postJSON(t, handler, "/translate?token=secret", `{"text":"Hello","target_lang":"de"}`)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
}

func TestRootBannerSkipsAuth(t *testing.T) {
	setupTestEnv(t, backendSuccess, http.StatusOK)
	conf.Configuration.AccessToken = "secret"
	handler := buildHandler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", w.Code)
	}
}

func TestUnmatchedRouteReturns404(t *testing.T) {
	setupTestEnv(t, backendSuccess, http.StatusOK)
	handler := buildHandler()

	w := postJSON(t, handler, "/nope", `{}`)

	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decode response: %v", err)
	}
	if resp.Code != 404 || resp.Message != "Path not found" {
		t.Errorf("Response = %+v, want the 404 JSON body", resp)
	}
}

func TestWrongMethodReturns405(t *testing.T) {
	setupTestEnv(t, backendSuccess, http.StatusOK)
	handler := buildHandler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/translate", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status = %d, want 405", w.Code)
	}
}

func TestInvalidRequestBody(t *testing.T) {
	env := setupTestEnv(t, backendSuccess, http.StatusOK)
	handler := buildHandler()

	w := postJSON(t, handler, "/translate", `not json`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", w.Code)
	}
	if got := atomic.LoadInt32(env.calls); got != 0 {
		t.Errorf("Backend called %d times, want 0", got)
	}
}

func TestCacheOverrideDisablesCaching(t *testing.T) {
	env := setupTestEnv(t, backendSuccess, http.StatusOK)
	handler := buildHandler()

	postJSON(t, handler, "/translate", `{"text":"Hello","target_lang":"de","cache":false}`)
	translator.Flush()
	postJSON(t, handler, "/translate", `{"text":"Hello","target_lang":"de","cache":false}`)

	if got := atomic.LoadInt32(env.calls); got != 2 {
		t.Errorf("Backend called %d times, want 2", got)
	}
	if env.store.Len() != 0 {
		t.Errorf("Store has %d entries, want 0", env.store.Len())
	}
}
