package lmstudio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfire-labs/campfire/internal/core/domain"
	"github.com/campfire-labs/campfire/internal/core/ports/driven"
)

func completionReply(content string) string {
	data, _ := json.Marshal(content)
	return `{"choices": [{"message": {"content": ` + string(data) + `}, "finish_reason": "stop"}]}`
}

func TestNewBackend_Defaults(t *testing.T) {
	b := NewBackend(Config{})
	assert.Equal(t, DefaultModel, b.ModelName())
	assert.False(t, b.SupportsToolLoop())
}

func TestBackend_Chat(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(completionReply("Cool the burn under running water.")))
	}))
	defer server.Close()

	b := NewBackend(Config{BaseURL: server.URL, Model: "test-model"})
	reply, err := b.Chat(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "You are a first aid assistant."},
		{Role: domain.RoleUser, Content: "burn"},
	}, driven.ChatOptions{MaxTokens: 512})

	require.NoError(t, err)
	assert.Equal(t, "Cool the burn under running water.", reply)
	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 512, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestBackend_Chat_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error": {"message": "no model loaded", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	b := NewBackend(Config{BaseURL: server.URL})
	_, err := b.Chat(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}}, driven.ChatOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model loaded")
}

func TestBackend_Chat_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	b := NewBackend(Config{BaseURL: server.URL})
	_, err := b.Chat(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}}, driven.ChatOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no response choices")
}

func TestBackend_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	b := NewBackend(Config{BaseURL: server.URL})
	assert.NoError(t, b.Ping(context.Background()))
}
