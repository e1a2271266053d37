package main

import (
	"encoding/json"
	"fmt"
)

// TranslatePayload is the request body for /translate and /v1/translate.
type TranslatePayload struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	// Cache overrides the deployment-wide cache policy when present.
	Cache *bool `json:"cache,omitempty"`
}

// TextList accepts either a single JSON string or a list of strings.
type TextList []string

func (t *TextList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = TextList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("text must be a string or an array of strings")
	}
	*t = TextList(many)
	return nil
}

// TranslateV2Payload is the request body for the official-compatible
// endpoint. Source language is always auto-detected.
type TranslateV2Payload struct {
	Text       TextList `json:"text"`
	TargetLang string   `json:"target_lang"`
	Cache      *bool    `json:"cache,omitempty"`
}

// ErrorResponse is the uniform JSON error body.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// OfficialTranslation is one entry of the official-compatible success shape.
type OfficialTranslation struct {
	DetectedSourceLanguage string `json:"detected_source_language"`
	Text                   string `json:"text"`
}

// OfficialResponse is the official-compatible success shape.
type OfficialResponse struct {
	Translations []OfficialTranslation `json:"translations"`
	Cached       bool                  `json:"cached"`
}
