package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model          string `json:"model"`
	MaxTokens      int    `json:"max_tokens"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []json.RawMessage `json:"messages"`
}

func fakeServer(t *testing.T, reply string, got *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleteJSONStripsFences(t *testing.T) {
	var req capturedRequest
	srv := fakeServer(t, "```json\n{\"intent\":\"ADD_EXPENSE\",\"confidence\":0.9}\n```", &req)
	c, err := New(Config{APIKey: "k", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)

	var out struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	require.NoError(t, c.CompleteJSON(context.Background(), "sys", "user", 0, &out))
	assert.Equal(t, "ADD_EXPENSE", out.Intent)
	assert.Equal(t, 0.9, out.Confidence)

	assert.Equal(t, DefaultModel, req.Model)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, "json_object", req.ResponseFormat.Type)
	assert.Len(t, req.Messages, 2)
}

func TestCompleteText(t *testing.T) {
	var req capturedRequest
	srv := fakeServer(t, "  Happy to help!  ", &req)
	c, err := New(Config{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "custom"})
	require.NoError(t, err)

	got, err := c.Complete(context.Background(), "sys", "hi", 150)
	require.NoError(t, err)
	assert.Equal(t, "Happy to help!", got)
	assert.Equal(t, "custom", req.Model)
	assert.Equal(t, 150, req.MaxTokens)
	assert.Nil(t, req.ResponseFormat)
}

func TestCompleteImageUsesVisionModel(t *testing.T) {
	var req capturedRequest
	srv := fakeServer(t, `{"merchant":"Cafe","amount":4.5,"confidence":0.8}`, &req)
	c, err := New(Config{APIKey: "k", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, c.CompleteImageJSON(context.Background(), "sys", "read this", "data:image/png;base64,AAAA", 500, &out))
	assert.Equal(t, "Cafe", out["merchant"])
	assert.Equal(t, DefaultVisionModel, req.Model)
	assert.Contains(t, string(req.Messages[1]), "data:image/png;base64,AAAA")
}

func TestEmptyReplyIsAnError(t *testing.T) {
	srv := fakeServer(t, "   ", nil)
	c, err := New(Config{APIKey: "k", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "sys", "hi", 0)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                   `{"a":1}`,
		"```json\n{\"a\":1}\n```":   `{"a":1}`,
		"```\n{\"a\":1}\n```":       `{"a":1}`,
		"```json {\"a\":1}```":      `{"a":1}`,
		"  \n```json\n{}\n```  \n": `{}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, StripCodeFence(in), "input %q", in)
	}
}
