package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xiaoLing0721/deeplx-worker/deepl"
)

// effectiveCachePolicy resolves the per-request cache preference against the
// deployment default.
func effectiveCachePolicy(override *bool) bool {
	if override != nil {
		return *override
	}
	return conf.FeatureFlags.CacheEnabled
}

func cacheStatus(result deepl.Result) string {
	if result.Cached {
		return "HIT"
	}
	return "MISS"
}

// writeSimple maps a canonical result to the simple response shape, with the
// HTTP status mirroring the result code.
func writeSimple(w http.ResponseWriter, r *http.Request, result deepl.Result) {
	resp := Respond(w, r).SetCacheStatus(cacheStatus(result))
	if result.Code == http.StatusOK {
		resp.JSON(result)
		return
	}
	resp.Error(result.Code, result)
}

// freeTranslateHandler serves the free-tier /translate endpoint.
func freeTranslateHandler(w http.ResponseWriter, r *http.Request) {
	var payload TranslatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		Respond(w, r).Error(http.StatusBadRequest, ErrorResponse{Code: http.StatusBadRequest, Message: "Invalid request body"})
		return
	}

	result := translator.Translate(r.Context(), payload.SourceLang, payload.TargetLang, payload.Text, "", effectiveCachePolicy(payload.Cache))
	writeSimple(w, r, result)
}

// proTranslateHandler serves /v1/translate using the configured dl_session.
func proTranslateHandler(w http.ResponseWriter, r *http.Request) {
	session := conf.Configuration.DlSession
	if session == "" {
		Respond(w, r).Error(http.StatusUnauthorized, ErrorResponse{
			Code:    http.StatusUnauthorized,
			Message: "No dl_session configured, the pro endpoint is unavailable",
		})
		return
	}

	var payload TranslatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		Respond(w, r).Error(http.StatusBadRequest, ErrorResponse{Code: http.StatusBadRequest, Message: "Invalid request body"})
		return
	}

	result := translator.Translate(r.Context(), payload.SourceLang, payload.TargetLang, payload.Text, session, effectiveCachePolicy(payload.Cache))
	writeSimple(w, r, result)
}

// officialTranslateHandler serves /v2/translate. Text lists are joined into
// one newline-separated string before dispatch; the pipeline treats the
// joined string as opaque text.
func officialTranslateHandler(w http.ResponseWriter, r *http.Request) {
	var payload TranslateV2Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		Respond(w, r).Error(http.StatusBadRequest, ErrorResponse{Code: http.StatusBadRequest, Message: "Invalid request body"})
		return
	}

	text := strings.Join(payload.Text, "\n")
	result := translator.Translate(r.Context(), "", payload.TargetLang, text, "", effectiveCachePolicy(payload.Cache))

	if result.Code != http.StatusOK {
		writeSimple(w, r, result)
		return
	}

	Respond(w, r).SetCacheStatus(cacheStatus(result)).JSON(OfficialResponse{
		Translations: []OfficialTranslation{{
			DetectedSourceLanguage: result.SourceLang,
			Text:                   result.Data,
		}},
		Cached: result.Cached,
	})
}

// helpHandler serves the unauthenticated root banner.
func helpHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"code":    http.StatusOK,
		"message": "deeplx-worker is running. POST to /translate, /v1/translate or /v2/translate.",
	})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).Error(http.StatusNotFound, ErrorResponse{Code: http.StatusNotFound, Message: "Path not found"})
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).Error(http.StatusMethodNotAllowed, ErrorResponse{Code: http.StatusMethodNotAllowed, Message: "Method not allowed"})
}
