package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type geminiBody struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
	GenerationConfig struct {
		MaxOutputTokens int `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

func candidate(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"text":%q}]}}]}`, text)
}

func newGeminiTestClient(t *testing.T, h http.HandlerFunc, timeout time.Duration) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewGeminiClient(context.Background(), Config{
		APIKey:  "gm-test",
		BaseURL: srv.URL,
		Model:   "test-model",
		Timeout: timeout,
	})
	require.NoError(t, err)
	require.True(t, c.Configured())
	return c
}

func TestGeminiComplete(t *testing.T) {
	var (
		mu   sync.Mutex
		got  geminiBody
		path string
		key  string
	)
	c := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		path, key = r.URL.Path, r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, candidate("  ```json\n{\"ok\":true}\n```  "))
	}, 5*time.Second)

	req := Prompt("be brief", "plan my week", 300)
	req.Messages = append(req.Messages, Message{Role: RoleAssistant, Content: "Sure"})
	out, err := c.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "```json\n{\"ok\":true}\n```", out)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, strings.HasSuffix(path, "models/test-model:generateContent"), path)
	assert.Equal(t, "gm-test", key)
	require.Len(t, got.Contents, 2)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "plan my week", got.Contents[0].Parts[0].Text)
	assert.Equal(t, "model", got.Contents[1].Role)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "be brief", got.SystemInstruction.Parts[0].Text)
	assert.Equal(t, 300, got.GenerationConfig.MaxOutputTokens)
}

func TestGeminiCompleteUpstreamError(t *testing.T) {
	c := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	}, 5*time.Second)

	_, err := c.Complete(context.Background(), Prompt("", "hi", 0))
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusBadRequest, ue.Status)
	assert.Equal(t, "API key not valid", ue.Message)
}

func geminiSSE(delay time.Duration, chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":streamGenerateContent") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", candidate(c))
			flusher.Flush()
			time.Sleep(delay)
		}
	}
}

func TestGeminiStream(t *testing.T) {
	c := newGeminiTestClient(t, geminiSSE(0, "One ", "step ", "at a time."), 5*time.Second)

	out, err := collect(c.Stream(context.Background(), Prompt("", "hi", 0)))
	require.NoError(t, err)
	assert.Equal(t, "One step at a time.", out)
}

func TestGeminiStreamOutlivesTimeoutOnceFlowing(t *testing.T) {
	c := newGeminiTestClient(t, geminiSSE(100*time.Millisecond, "a", "b", "c", "d", "e"), 250*time.Millisecond)

	out, err := collect(c.Stream(context.Background(), Prompt("", "hi", 0)))
	require.NoError(t, err)
	assert.Equal(t, "abcde", out)
}
