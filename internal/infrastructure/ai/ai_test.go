package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdhub/commandhub/internal/domain/chat"
)

var conversation = []chat.Message{
	{Role: chat.RoleUser, Content: "hello"},
	{Role: chat.RoleAssistant, Content: "hi, how can I help?"},
	{Role: chat.RoleUser, Content: "summarize my week"},
}

func TestUnconfiguredProviders(t *testing.T) {
	for _, p := range []chat.Provider{NewClaudeProvider(Options{}), NewGPTProvider(Options{})} {
		_, err := p.Complete(context.Background(), conversation)
		assert.ErrorIs(t, err, ErrNotConfigured, p.Name())
	}
	assert.Equal(t, "Claude", NewClaudeProvider(Options{}).Name())
	assert.Equal(t, "GPT", NewGPTProvider(Options{}).Name())
}

func TestClaudeProvider_Complete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "Here is "}, {"type": "text", "text": "your summary."}],
			"stop_reason": "end_turn", "usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	p := NewClaudeProvider(Options{
		APIKey:       "sk-ant-test",
		Model:        "claude-sonnet-4-5",
		MaxTokens:    256,
		SystemPrompt: "Be brief.",
		Timeout:      5 * time.Second,
		BaseURL:      server.URL,
	})

	reply, err := p.Complete(context.Background(), conversation)
	require.NoError(t, err)
	assert.Equal(t, "Here is your summary.", reply)

	assert.Equal(t, "claude-sonnet-4-5", body["model"])
	assert.EqualValues(t, 256, body["max_tokens"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 3)
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
}

func TestClaudeProvider_UpstreamErrorIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer server.Close()

	p := NewClaudeProvider(Options{APIKey: "k", Model: "claude-sonnet-4-5", MaxTokens: 10, BaseURL: server.URL})
	_, err := p.Complete(context.Background(), conversation)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestGPTProvider_Complete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Week summarized."}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	p := NewGPTProvider(Options{
		APIKey:       "sk-test",
		Model:        "gpt-4o",
		MaxTokens:    128,
		SystemPrompt: "Be brief.",
		BaseURL:      server.URL,
	})

	reply, err := p.Complete(context.Background(), conversation)
	require.NoError(t, err)
	assert.Equal(t, "Week summarized.", reply)

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestGPTProvider_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	p := NewGPTProvider(Options{APIKey: "sk-test", Model: "gpt-4o", BaseURL: server.URL})
	_, err := p.Complete(context.Background(), conversation)
	assert.ErrorIs(t, err, ErrEmptyReply)
}
