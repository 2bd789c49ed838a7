package ollama

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

func TestNewBackend_Defaults(t *testing.T) {
	b := NewBackend(Config{})
	assert.Equal(t, DefaultModel, b.ModelName())
	assert.True(t, b.SupportsToolLoop())
}

func TestBackend_Chat(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{Role: "assistant", Content: "Apply pressure to the wound."},
			Done:    true,
		})
	}))
	defer server.Close()

	b := NewBackend(Config{BaseURL: server.URL, Model: "test-model"})
	reply, err := b.Chat(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "You are a first aid assistant."},
		{Role: domain.RoleDeveloper, Content: "Be brief."},
		{Role: domain.RoleUser, Content: "bleeding"},
	}, driven.ChatOptions{MaxTokens: 256, Temperature: 0.1})

	require.NoError(t, err)
	assert.Equal(t, "Apply pressure to the wound.", reply)
	assert.Equal(t, "test-model", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 3)
	// Developer role flattens to system.
	assert.Equal(t, "system", got.Messages[1].Role)
	require.NotNil(t, got.Options)
	assert.Equal(t, 256, got.Options.NumPredict)
}

func TestBackend_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		json.NewEncoder(w).Encode(generateResponse{Response: "ok", Done: true})
	}))
	defer server.Close()

	b := NewBackend(Config{BaseURL: server.URL})
	reply, err := b.Generate(context.Background(), "prompt", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
}

func TestBackend_Chat_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	b := NewBackend(Config{BaseURL: server.URL})
	_, err := b.Chat(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}}, driven.ChatOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestBackend_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	b := NewBackend(Config{BaseURL: server.URL})
	assert.NoError(t, b.Ping(context.Background()))

	server.Close()
	assert.Error(t, b.Ping(context.Background()))
}
