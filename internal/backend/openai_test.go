package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeCompletions serves /v1/chat/completions with a fixed reply and
// records the last request it saw.
func fakeCompletions(t *testing.T, finish openai.FinishReason, content string, last *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if last != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(last))
		}
		resp := openai.ChatCompletionResponse{
			ID:      "chatcmpl-test",
			Object:  "chat.completion",
			Created: 1,
			Model:   "gpt-4o",
		}
		if content != "" {
			resp.Choices = []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: finish,
			}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestOpenAI(t *testing.T, srv *httptest.Server) *OpenAIInvoker {
	cfg := DefaultOpenAIConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL + "/v1"
	return NewOpenAIInvoker(cfg, zaptest.NewLogger(t))
}

func TestOpenAIInvoker_Invoke(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := fakeCompletions(t, openai.FinishReasonStop, "Set a course for Risa.", &got)
	inv := newTestOpenAI(t, srv)

	resp, err := inv.Invoke(context.Background(), "openai:gpt-4o", "Where should we take shore leave?")
	require.NoError(t, err)

	assert.Equal(t, "Set a course for Risa.", resp.Content)
	assert.Equal(t, 0.8, resp.Confidence)
	assert.Equal(t, "gpt-4o", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, "Where should we take shore leave?", got.Messages[1].Content)
}

func TestOpenAIInvoker_DefaultModelAndTruncatedFinish(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := fakeCompletions(t, openai.FinishReasonLength, "Set a course for", &got)
	inv := newTestOpenAI(t, srv)

	resp, err := inv.Invoke(context.Background(), "openai", "Where to?")
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenAIConfig().DefaultModel, got.Model)
	assert.Equal(t, 0.6, resp.Confidence)
}

func TestOpenAIInvoker_NoChoices(t *testing.T) {
	srv := fakeCompletions(t, openai.FinishReasonStop, "", nil)
	inv := newTestOpenAI(t, srv)

	_, err := inv.Invoke(context.Background(), "openai:gpt-4o", "Where to?")
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestOpenAIInvoker_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"warp core breach","type":"server_error"}}`))
	}))
	t.Cleanup(srv.Close)
	inv := newTestOpenAI(t, srv)

	_, err := inv.Invoke(context.Background(), "openai:gpt-4o", "Where to?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warp core breach")
}
