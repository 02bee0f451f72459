package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, mutate ...func(*Config)) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "test-model", Timeout: 5 * time.Second}
	for _, m := range mutate {
		m(&cfg)
	}
	return NewOpenAIClient(cfg)
}

func TestOpenAICompleteSendsSystemAndUser(t *testing.T) {
	var got openAIRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"  hello  "}}]}`)
	})

	out, err := c.Complete(context.Background(), Prompt("be brief", "hi", 100))
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 100, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, Message{Role: "system", Content: "be brief"}, got.Messages[0])
	assert.Equal(t, Message{Role: RoleUser, Content: "hi"}, got.Messages[1])
	assert.False(t, got.Stream)
}

func TestOpenAICompleteWithoutKey(t *testing.T) {
	c := NewOpenAIClient(Config{})
	assert.False(t, c.Configured())
	_, err := c.Complete(context.Background(), Prompt("", "hi", 0))
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
}

func TestOpenAIUpstreamErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"object", `{"error":{"message":"Incorrect API key provided"}}`, "Incorrect API key provided"},
		{"string", `{"error":"model overloaded"}`, "model overloaded"},
		{"plain", `bad gateway`, "bad gateway"},
		{"empty", ``, "Unauthorized"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, tc.body)
			})
			_, err := c.Complete(context.Background(), Prompt("", "hi", 0))
			var ue *UpstreamError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, http.StatusUnauthorized, ue.Status)
			assert.Equal(t, tc.want, ue.Message)
		})
	}
}

func TestOpenAIRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}, func(cfg *Config) { cfg.MaxRetries = 1 })

	out, err := c.Complete(context.Background(), Prompt("", "hi", 0))
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIRateLimitWithoutRetries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
	})
	_, err := c.Complete(context.Background(), Prompt("", "hi", 0))
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "slow down", ue.Message)
}

func TestOpenAINoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	})
	_, err := c.Complete(context.Background(), Prompt("", "hi", 0))
	assert.Error(t, err)
}

func sseHandler(chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, c := range chunks {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", c)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}

func collect(deltas <-chan string, errc <-chan error) (string, error) {
	var b strings.Builder
	for d := range deltas {
		b.WriteString(d)
	}
	return b.String(), <-errc
}

func TestOpenAIStream(t *testing.T) {
	var stream atomic.Bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req openAIRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		stream.Store(req.Stream)
		sseHandler("Break ", "it ", "down.")(w, r)
	})

	out, err := collect(c.Stream(context.Background(), Prompt("", "hi", 0)))
	require.NoError(t, err)
	assert.Equal(t, "Break it down.", out)
	assert.True(t, stream.Load())
}

func TestOpenAIStreamUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom"}}`)
	})
	out, err := collect(c.Stream(context.Background(), Prompt("", "hi", 0)))
	assert.Empty(t, out)
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "boom", ue.Message)
}

func TestOpenAIStreamCancel(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"first\"}}]}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	deltas, errc := c.Stream(ctx, Prompt("", "hi", 0))
	assert.Equal(t, "first", <-deltas)
	cancel()

	for range deltas {
	}
	err := <-errc
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestOpenAIStreamWithoutKey(t *testing.T) {
	_, err := collect(NewOpenAIClient(Config{}).Stream(context.Background(), Prompt("", "hi", 0)))
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
}

func TestOpenAIStreamOutlivesTimeoutOnceFlowing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 5; i++ {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"%d\"}}]}\n\n", i)
			flusher.Flush()
			time.Sleep(100 * time.Millisecond)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}, func(cfg *Config) { cfg.Timeout = 250 * time.Millisecond })

	out, err := collect(c.Stream(context.Background(), Prompt("", "hi", 0)))
	require.NoError(t, err)
	assert.Equal(t, "01234", out)
}

func TestOpenAIStreamTimesOutBeforeFirstDelta(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}, func(cfg *Config) { cfg.Timeout = 100 * time.Millisecond })
	defer close(release)

	out, err := collect(c.Stream(context.Background(), Prompt("", "hi", 0)))
	assert.Empty(t, out)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUpstreamErrorTruncatesOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("é", 600)
	ue := upstreamError(http.StatusBadGateway, []byte(body))
	assert.Equal(t, strings.Repeat("é", maxErrorMessage), ue.Message)
	assert.True(t, utf8.ValidString(ue.Message))
}
