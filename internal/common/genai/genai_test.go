package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test servers
// ==========================

func chatServer(t *testing.T, failures int32, status int, content string, captured *map[string]interface{}) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		n := atomic.AddInt32(&calls, 1)
		if captured != nil {
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			*captured = body
		}
		w.Header().Set("Content-Type", "application/json")
		if n <= failures {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "test-model",
			"choices": []map[string]interface{}{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func embeddingServer(t *testing.T, dim int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		atomic.AddInt32(&calls, 1)
		var req struct {
			Input []string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// return out of order to exercise index placement
		data := make([]map[string]interface{}, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float32, dim)
			vec[0] = float32(i + 1)
			data = append(data, map[string]interface{}{"object": "embedding", "index": i, "embedding": vec})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"object": "list", "data": data, "model": "test-embed"})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// ==========================
// Reasoner
// ==========================

func TestReasoner_Generate_JSONMode(t *testing.T) {
	var body map[string]interface{}
	srv, calls := chatServer(t, 0, 0, `{"chief_complaint":"fever"}`, &body)

	r := NewOpenAIReasoner(Options{BaseURL: srv.URL, APIKey: "k", Model: "test-model", Timeout: 5 * time.Second})
	out, err := r.Generate(context.Background(), GenerateRequest{
		Prompt: "assess", System: "triage", Temperature: 0.3, MaxTokens: 256, JSON: true,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"chief_complaint":"fever"}`, out)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	format, ok := body["response_format"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
	msgs := body["messages"].([]interface{})
	assert.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
}

func TestReasoner_RetriesServerErrors(t *testing.T) {
	srv, calls := chatServer(t, 2, http.StatusServiceUnavailable, "ok", nil)

	r := NewOpenAIReasoner(Options{BaseURL: srv.URL, Model: "m", MaxRetries: 2, Timeout: 5 * time.Second})
	out, err := r.Generate(context.Background(), GenerateRequest{Prompt: "p"})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestReasoner_DoesNotRetryClientErrors(t *testing.T) {
	srv, calls := chatServer(t, 5, http.StatusBadRequest, "ok", nil)

	r := NewOpenAIReasoner(Options{BaseURL: srv.URL, Model: "m", MaxRetries: 3, Timeout: 5 * time.Second})
	_, err := r.Generate(context.Background(), GenerateRequest{Prompt: "p"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestReasoner_EmptyCompletion(t *testing.T) {
	srv, _ := chatServer(t, 0, 0, "   ", nil)

	r := NewOpenAIReasoner(Options{BaseURL: srv.URL, Model: "m"})
	_, err := r.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestReasoner_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	r := NewOpenAIReasoner(Options{BaseURL: srv.URL, Model: "m", Timeout: 50 * time.Millisecond})
	_, err := r.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	assert.ErrorIs(t, err, ErrGenerationTimeout)
}

// ==========================
// Embedder
// ==========================

func TestEmbedder_PlacesVectorsByIndex(t *testing.T) {
	srv, calls := embeddingServer(t, 4)

	e := NewOpenAIEmbedder(Options{BaseURL: srv.URL, Model: "test-embed", Timeout: 5 * time.Second})
	vecs, err := e.Embed(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, float32(1), vecs[0][0])
	assert.Equal(t, float32(2), vecs[1][0])
	assert.Equal(t, float32(3), vecs[2][0])
	assert.Len(t, vecs[0], 4)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestEmbedder_EmptyInput(t *testing.T) {
	e := NewOpenAIEmbedder(Options{BaseURL: "http://127.0.0.1:1", Model: "m"})
	vecs, err := e.Embed(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbedder_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(Options{BaseURL: srv.URL, Model: "m", MaxRetries: 2})
	_, err := e.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}
