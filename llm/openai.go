package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message *Message `json:"message,omitempty"`
		Delta   *Message `json:"delta,omitempty"`
	} `json:"choices"`
	Error *openAIError `json:"error,omitempty"`
}

type openAIError struct {
	Message string `json:"message"`
}

// OpenAIClient calls any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxRetries int
	timeout    time.Duration
	httpClient *http.Client
	pacer      pacer
	log        *zap.Logger
}

// NewOpenAIClient builds a client from cfg, filling in the public API
// defaults for the base URL and model.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.Timeout,
		// Streaming replies outlive any fixed client timeout; deadlines
		// come from the request context instead.
		httpClient: &http.Client{},
		pacer:      newPacer(cfg.RequestsPerSecond),
		log:        log.Named("openai"),
	}
}

func (c *OpenAIClient) Provider() string { return ProviderOpenAI }

func (c *OpenAIClient) Configured() bool { return c.apiKey != "" }

// Complete returns the first choice's content. 429 answers are retried up
// to maxRetries times with exponential backoff.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if !c.Configured() {
		return "", ErrAPIKeyMissing
	}
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	body, err := json.Marshal(c.buildRequest(req, false))
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, backoff(attempt)); err != nil {
				return "", err
			}
		}
		resp, err := c.do(ctx, body, false)
		if err != nil {
			return "", err
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("llm: read response: %w", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = upstreamError(resp.StatusCode, raw)
			c.log.Warn("upstream rate limited", zap.Int("attempt", attempt+1))
			continue
		}
		if resp.StatusCode/100 != 2 {
			return "", upstreamError(resp.StatusCode, raw)
		}

		var out openAIResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return "", fmt.Errorf("llm: decode response: %w", err)
		}
		if out.Error != nil {
			return "", &UpstreamError{Status: resp.StatusCode, Message: out.Error.Message}
		}
		if len(out.Choices) == 0 || out.Choices[0].Message == nil {
			return "", errors.New("llm: no completion returned")
		}
		content := strings.TrimSpace(out.Choices[0].Message.Content)
		c.log.Debug("completion done",
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("chars", len(content)))
		return content, nil
	}
	return "", lastErr
}

// Stream requests a server-sent-events reply and forwards content deltas.
// Cancelling ctx aborts the upstream request.
func (c *OpenAIClient) Stream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	deltas := make(chan string, 16)
	errc := make(chan error, 1)

	go func() {
		defer close(deltas)
		defer close(errc)

		if !c.Configured() {
			errc <- ErrAPIKeyMissing
			return
		}
		ctx, disarm, cancel := firstDeltaTimeout(ctx, c.timeout)
		defer cancel()

		body, err := json.Marshal(c.buildRequest(req, true))
		if err != nil {
			errc <- fmt.Errorf("llm: marshal request: %w", err)
			return
		}
		resp, err := c.do(ctx, body, true)
		if err != nil {
			if ctx.Err() != nil {
				err = fmt.Errorf("llm: stream: %w", context.Cause(ctx))
			}
			errc <- err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode/100 != 2 {
			raw, _ := io.ReadAll(resp.Body)
			errc <- upstreamError(resp.StatusCode, raw)
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}
			if data == "[DONE]" {
				return
			}
			var chunk openAIResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if chunk.Error != nil {
				errc <- &UpstreamError{Status: resp.StatusCode, Message: chunk.Error.Message}
				return
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta == nil || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			disarm()
			select {
			case deltas <- chunk.Choices[0].Delta.Content:
			case <-ctx.Done():
				errc <- context.Cause(ctx)
				return
			}
		}
		if err := scanner.Err(); err != nil {
			if ctx.Err() != nil {
				err = context.Cause(ctx)
			}
			errc <- fmt.Errorf("llm: stream: %w", err)
		}
	}()

	return deltas, errc
}

func (c *OpenAIClient) buildRequest(req Request, stream bool) openAIRequest {
	msgs := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, req.Messages...)
	return openAIRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

func (c *OpenAIClient) do(ctx context.Context, body []byte, stream bool) (*http.Response, error) {
	if err := c.pacer.wait(ctx); err != nil {
		return nil, fmt.Errorf("llm: pacing: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: request failed: %w", err)
	}
	return resp, nil
}

// upstreamError takes the message from an OpenAI-style error body and
// falls back to the raw text.
func upstreamError(status int, body []byte) *UpstreamError {
	var parsed struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && len(parsed.Error) > 0 {
		var obj openAIError
		if json.Unmarshal(parsed.Error, &obj) == nil && obj.Message != "" {
			return &UpstreamError{Status: status, Message: obj.Message}
		}
		var s string
		if json.Unmarshal(parsed.Error, &s) == nil && s != "" {
			return &UpstreamError{Status: status, Message: s}
		}
	}
	msg := truncateRunes(strings.TrimSpace(string(body)), maxErrorMessage)
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &UpstreamError{Status: status, Message: msg}
}

const maxErrorMessage = 500

// truncateRunes cuts s to at most n runes without splitting one.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
