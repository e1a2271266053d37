package deepl

import (
	"encoding/json"
	"math/rand"
	"strings"
	"time"
)

const (
	jsonrpcVersion    = "2.0"
	methodHandleTexts = "LMT_handle_texts"
	splittingMode     = "newlines"
	// maxAlternatives is the alternative-count hint sent with every segment.
	maxAlternatives = 3
)

type textParam struct {
	Text                string `json:"text"`
	RequestAlternatives int    `json:"requestAlternatives"`
}

type langParam struct {
	SourceLangUserSelected string `json:"source_lang_user_selected"`
	TargetLang             string `json:"target_lang"`
}

type requestParams struct {
	Texts     []textParam `json:"texts"`
	Splitting string      `json:"splitting"`
	Lang      langParam   `json:"lang"`
	Timestamp int64       `json:"timestamp"`
}

// requestEnvelope mirrors the official client's JSON-RPC request. Field order
// is load-bearing: renderBody rewrites the first occurrence of `"method":"`,
// so Jsonrpc and Method must stay the leading fields.
type requestEnvelope struct {
	Jsonrpc string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	ID      int64         `json:"id"`
	Params  requestParams `json:"params"`
}

// newEnvelope builds the backend request for a single opaque text.
func newEnvelope(id int64, sourceLang, targetLang, text string, timestamp int64) requestEnvelope {
	return requestEnvelope{
		Jsonrpc: jsonrpcVersion,
		Method:  methodHandleTexts,
		ID:      id,
		Params: requestParams{
			Texts: []textParam{{
				Text:                text,
				RequestAlternatives: maxAlternatives,
			}},
			Splitting: splittingMode,
			Lang: langParam{
				SourceLangUserSelected: sourceLang,
				TargetLang:             targetLang,
			},
			Timestamp: timestamp,
		},
	}
}

// deriveRequestID returns a fake client request ID: a uniform random integer
// in [100000, 199999] multiplied by 1000.
func deriveRequestID(rng *rand.Rand) int64 {
	return (rng.Int63n(100000) + 100000) * 1000
}

// countMarkerCharacter counts occurrences of the lowercase letter 'i'.
func countMarkerCharacter(text string) int {
	return strings.Count(text, "i")
}

// deriveTimestamp manipulates the current Unix millisecond timestamp so that
// it is congruent to 0 mod (markerCount+1) when markerCount is non-zero. The
// backend validates this checksum-like relationship.
func deriveTimestamp(markerCount int, now time.Time) int64 {
	ts := now.UnixMilli()
	if markerCount == 0 {
		return ts
	}
	n := int64(markerCount) + 1
	return ts - ts%n + n
}

// renderBody serializes the envelope and applies the formatting quirk the
// backend's edge service inspects: depending on the request ID, the method
// key gets spaces around or after its colon.
func renderBody(env requestEnvelope) (string, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return "", err
	}

	body := string(raw)
	if (env.ID+5)%29 == 0 || (env.ID+3)%13 == 0 {
		body = strings.Replace(body, `"method":"`, `"method" : "`, 1)
	} else {
		body = strings.Replace(body, `"method":"`, `"method": "`, 1)
	}

	return body, nil
}
