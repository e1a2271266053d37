// Package deepl implements the translation request pipeline: backend
// protocol emulation, cache-aware dispatch and result interpretation.
package deepl

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xiaoLing0721/deeplx-worker/cache"
	"github.com/xiaoLing0721/deeplx-worker/logcolors"
)

const (
	// MethodFree marks results translated without an account session.
	MethodFree = "Free"
	// MethodPro marks results translated with a dl_session credential.
	MethodPro = "Pro"
)

// Result is the canonical outcome of one translation request. Its JSON form
// is also the simple response shape and the cached representation.
type Result struct {
	Code         int      `json:"code"`
	ID           int64    `json:"id,omitempty"`
	Message      string   `json:"message,omitempty"`
	Data         string   `json:"data,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
	SourceLang   string   `json:"source_lang,omitempty"`
	TargetLang   string   `json:"target_lang,omitempty"`
	Method       string   `json:"method,omitempty"`
	Cached       bool     `json:"cached"`
}

// backendResponse is the subset of the JSON-RPC reply the dispatcher reads.
type backendResponse struct {
	ID     int64 `json:"id"`
	Result struct {
		Texts []struct {
			Text         string `json:"text"`
			Alternatives []struct {
				Text string `json:"text"`
			} `json:"alternatives"`
		} `json:"texts"`
		Lang string `json:"lang"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Tracker runs detached tasks and lets the owner wait for them to finish, so
// fire-and-forget cache stores outlive the response without being lost.
type Tracker struct {
	wg sync.WaitGroup
}

// Go schedules fn on its own goroutine and tracks its completion.
func (t *Tracker) Go(fn func()) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn()
	}()
}

// Wait blocks until all scheduled tasks have finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Translator orchestrates a single translation request: cache lookup,
// backend call, response interpretation and cache population.
type Translator struct {
	client *Client
	store  cache.Store
	ttl    time.Duration
	tasks  Tracker

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewTranslator wires the dispatcher to a backend client and a result store.
// A nil store disables caching regardless of the per-request policy.
func NewTranslator(client *Client, store cache.Store, ttl time.Duration) *Translator {
	return &Translator{
		client: client,
		store:  store,
		ttl:    ttl,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Flush waits for pending background cache stores to complete.
func (t *Translator) Flush() {
	t.tasks.Wait()
}

func (t *Translator) nextRequestID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return deriveRequestID(t.rng)
}

// normalizeSourceLang maps absent or "auto" to "EN" and upper-cases the rest.
func normalizeSourceLang(lang string) string {
	if lang == "" || strings.EqualFold(lang, "auto") {
		return "EN"
	}
	return strings.ToUpper(lang)
}

// buildCacheKey derives the deterministic cache identity of a request from
// the normalized language pair and the percent-encoded text.
func buildCacheKey(sourceLang, targetLang, text string) string {
	return sourceLang + ":" + targetLang + ":" + url.QueryEscape(text)
}

// Translate runs the full pipeline for one request. All faults are converted
// to a Result; no error ever escapes to the HTTP layer.
func (t *Translator) Translate(ctx context.Context, sourceLang, targetLang, text, session string, useCache bool) Result {
	if text == "" {
		return Result{Code: http.StatusBadRequest, Message: "No text to translate."}
	}

	src := normalizeSourceLang(sourceLang)
	dst := strings.ToUpper(targetLang)
	key := buildCacheKey(src, dst, text)

	if useCache && t.store != nil {
		if raw, ok := t.store.Get(key); ok {
			var hit Result
			if err := json.Unmarshal([]byte(raw), &hit); err == nil {
				hit.Cached = true
				log.Debugf("%s Hit for %s -> %s", logcolors.LogCache, src, dst)
				return hit
			}
			log.Warnf("%s Discarding unreadable entry for key %s", logcolors.LogCache, key)
		}
	}

	id := t.nextRequestID()
	timestamp := deriveTimestamp(countMarkerCharacter(text), time.Now())
	body, err := renderBody(newEnvelope(id, src, dst, text, timestamp))
	if err != nil {
		return Result{Code: http.StatusInternalServerError, Message: fmt.Sprintf("Failed to build backend request: %v", err)}
	}

	status, raw, err := t.client.Post(ctx, body, session)
	if err != nil {
		log.Errorf("%s Request failed: %v", logcolors.LogBackend, err)
		return Result{Code: http.StatusInternalServerError, Message: fmt.Sprintf("Translation request failed: %v", err)}
	}

	if status == http.StatusTooManyRequests {
		return Result{
			Code:    http.StatusTooManyRequests,
			Message: "Too many requests, your IP has been blocked by the backend temporarily, please don't request it frequently in a short time.",
		}
	}

	if status < 200 || status >= 300 {
		return Result{Code: status, Message: fmt.Sprintf("Backend returned status %d: %s", status, string(raw))}
	}

	var parsed backendResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Result{Code: http.StatusInternalServerError, Message: fmt.Sprintf("Failed to decode backend response: %v", err)}
	}

	if parsed.Error != nil {
		return Result{Code: http.StatusInternalServerError, Message: "Backend error: " + parsed.Error.Message}
	}

	if len(parsed.Result.Texts) == 0 {
		return Result{Code: http.StatusInternalServerError, Message: "Translation failed, no results from backend."}
	}

	first := parsed.Result.Texts[0]
	alternatives := make([]string, 0, len(first.Alternatives))
	for _, alt := range first.Alternatives {
		alternatives = append(alternatives, alt.Text)
	}

	method := MethodFree
	if session != "" {
		method = MethodPro
	}

	result := Result{
		Code:         http.StatusOK,
		ID:           id,
		Data:         first.Text,
		Alternatives: alternatives,
		SourceLang:   parsed.Result.Lang,
		TargetLang:   dst,
		Method:       method,
	}

	if useCache && t.store != nil {
		t.storeDetached(key, result)
	}

	return result
}

// storeDetached persists a success result without blocking the response.
// Store failures are logged and swallowed.
func (t *Translator) storeDetached(key string, result Result) {
	stored := result
	stored.Cached = false

	data, err := json.Marshal(stored)
	if err != nil {
		log.Warnf("%s Failed to marshal result for key %s: %v", logcolors.LogCache, key, err)
		return
	}

	t.tasks.Go(func() {
		if err := t.store.Put(key, string(data), t.ttl); err != nil {
			log.Warnf("%s Store failed for key %s: %v", logcolors.LogCache, key, err)
		}
	})
}
