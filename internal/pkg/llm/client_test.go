package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativeai/nativechat/internal/pkg/config"
	"github.com/nativeai/nativechat/internal/pkg/prompt"
)

func testClient(baseURL string) *Client {
	return NewClientFromConfig(&config.Config{
		CompletionAPIKey:  "test-key",
		CompletionBaseURL: baseURL,
		ChatModel:         "chat-model",
		TranscribeModel:   "stt-model",
		TranslateModel:    "chat-model",
		ChatTimeout:       5 * time.Second,
		TranscribeTimeout: 5 * time.Second,
	})
}

func TestChatCompletionSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "chat-model", req.Model)
		require.NotEmpty(t, req.Messages)
		assert.Equal(t, prompt.RoleSystem, req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"bonjour"}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).ChatCompletion(context.Background(), []prompt.Message{
		{Role: prompt.RoleSystem, Content: "sys"},
		{Role: prompt.RoleUser, Content: "salut"},
	})
	require.NoError(t, err)
	assert.Equal(t, "bonjour", result.Text)
	assert.Equal(t, int64(15), result.Usage)
	assert.True(t, result.Reported)
}

func TestChatCompletionUsageFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"12345678"}}]}`))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).ChatCompletion(context.Background(), []prompt.Message{{Role: prompt.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.False(t, result.Reported)
	// 8 chars / 4 = 2 estimated tokens.
	assert.Equal(t, int64(2), result.Usage)
}

func TestChatCompletionUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"rate limited"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ChatCompletion(context.Background(), []prompt.Message{{Role: prompt.RoleUser, Content: "hi"}})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusTooManyRequests, pe.Status)
	assert.Equal(t, "rate limited", pe.Detail)
}

func TestChatCompletionTransportError(t *testing.T) {
	_, err := testClient("http://127.0.0.1:1").ChatCompletion(context.Background(), []prompt.Message{{Role: prompt.RoleUser, Content: "hi"}})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 502, pe.Status)
}

func TestChatCompletionUnexpectedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ChatCompletion(context.Background(), []prompt.Message{{Role: prompt.RoleUser, Content: "hi"}})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Detail, "unexpected response shape")
}

func TestChatCompletionNotConfigured(t *testing.T) {
	c := NewClientFromConfig(&config.Config{CompletionBaseURL: "https://api.example.com/v1"})
	_, err := c.ChatCompletion(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "stt-model", r.FormValue("model"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "clip.wav", header.Filename)

		w.Write([]byte(`{"text":"hello world","language":"en","usage":{"total_tokens":7}}`))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).Transcribe(context.Background(), []byte("RIFFdata"), "clip.wav")
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Text)
	assert.Equal(t, "en", result.Language)
	assert.Equal(t, int64(7), result.Usage)
}

func TestTranscribeAndTranslate(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		switch r.URL.Path {
		case "/audio/transcriptions":
			w.Write([]byte(`{"text":"bonjour le monde","language":"fr","usage":{"total_tokens":6}}`))
		case "/chat/completions":
			w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello world"}}],"usage":{"total_tokens":9}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).TranscribeAndTranslate(context.Background(), []byte("RIFFdata"), "clip.wav", "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"/audio/transcriptions", "/chat/completions"}, calls)
	assert.Equal(t, "bonjour le monde", result.Text)
	assert.Equal(t, "hello world", result.Translated)
	assert.Equal(t, int64(15), result.Usage)
}

func TestTranscribeAndTranslateSkipsWhenSameLanguage(t *testing.T) {
	var chatCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/chat/completions" {
			chatCalls++
		}
		w.Write([]byte(`{"text":"hello","language":"en"}`))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).TranscribeAndTranslate(context.Background(), []byte("RIFF"), "clip.wav", "en")
	require.NoError(t, err)
	assert.Empty(t, result.Translated)
	assert.Zero(t, chatCalls)
}
