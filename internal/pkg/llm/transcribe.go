package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/nativeai/nativechat/internal/pkg/entitlements"
	"github.com/nativeai/nativechat/internal/pkg/prompt"
)

// TranscriptionResult carries the transcript, the language the provider
// detected, and token accounting. Translated is set only when a second
// translation pass ran.
type TranscriptionResult struct {
	Text       string
	Language   string
	Translated string
	Usage      int64
	Reported   bool
}

type transcribeResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Usage    *struct {
		TotalTokens int64 `json:"total_tokens"`
	} `json:"usage"`
}

// Transcribe sends normalized audio to the transcription model. Failures are
// *ProviderError or ErrNotConfigured; input normalization is the caller's job.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (*TranscriptionResult, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, transportError(err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, transportError(err)
	}
	if err := w.WriteField("model", c.transcribeModel); err != nil {
		return nil, transportError(err)
	}
	if err := w.Close(); err != nil {
		return nil, transportError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/audio/transcriptions"), &buf)
	if err != nil {
		return nil, transportError(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, transportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{Status: resp.StatusCode, Detail: errorDetail(body)}
	}

	var parsed transcribeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, shapeError(err.Error())
	}
	if parsed.Text == "" {
		return nil, shapeError("no text in transcription response")
	}

	result := &TranscriptionResult{Text: parsed.Text, Language: strings.ToLower(parsed.Language)}
	if parsed.Usage != nil && parsed.Usage.TotalTokens > 0 {
		result.Usage = parsed.Usage.TotalTokens
		result.Reported = true
	} else {
		result.Usage = entitlements.EstimateTokens(len(parsed.Text))
	}
	return result, nil
}

// TranscribeAndTranslate transcribes audio and, when the detected language
// differs from targetLang, runs a second translation pass through the
// translate model. Each call is independently subject to the provider error
// mapping; usage from both calls is summed.
func (c *Client) TranscribeAndTranslate(ctx context.Context, audio []byte, filename, targetLang string) (*TranscriptionResult, error) {
	result, err := c.Transcribe(ctx, audio, filename)
	if err != nil {
		return nil, err
	}

	target := strings.ToLower(strings.TrimSpace(targetLang))
	if target == "" || target == result.Language {
		return result, nil
	}

	messages := []prompt.Message{
		{Role: prompt.RoleSystem, Content: "Translate the user's text into " + target + ". Output only the translation."},
		{Role: prompt.RoleUser, Content: result.Text},
	}
	translated, err := c.chat(ctx, c.translateModel, messages)
	if err != nil {
		return nil, err
	}

	result.Translated = translated.Text
	result.Usage += translated.Usage
	result.Reported = result.Reported && translated.Reported
	return result, nil
}
