package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient serves completions through the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	pacer   pacer
	log     *zap.Logger
}

// NewGeminiClient creates the genai client only when a key is present, so
// an unconfigured server still starts and reports the missing key.
func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c := &GeminiClient{
		model:   model,
		timeout: cfg.Timeout,
		pacer:   newPacer(cfg.RequestsPerSecond),
		log:     log.Named("gemini"),
	}
	if cfg.APIKey == "" {
		return c, nil
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("llm: create genai client: %w", err)
	}
	c.client = client
	return c, nil
}

func (c *GeminiClient) Provider() string { return ProviderGemini }

func (c *GeminiClient) Configured() bool { return c.client != nil }

// Complete returns the concatenated text of the first candidate.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	if !c.Configured() {
		return "", ErrAPIKeyMissing
	}
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.pacer.wait(ctx); err != nil {
		return "", fmt.Errorf("llm: pacing: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, geminiContents(req.Messages), geminiConfig(req))
	if err != nil {
		return "", geminiError(err)
	}
	text := strings.TrimSpace(resp.Text())
	c.log.Debug("completion done",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("chars", len(text)))
	return text, nil
}

// Stream forwards the text of each streamed response chunk.
func (c *GeminiClient) Stream(ctx context.Context, req Request) (<-chan string, <-chan error) {
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
		if err := c.pacer.wait(ctx); err != nil {
			errc <- fmt.Errorf("llm: pacing: %w", err)
			return
		}

		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, geminiContents(req.Messages), geminiConfig(req)) {
			if err != nil {
				if ctx.Err() != nil {
					errc <- context.Cause(ctx)
				} else {
					errc <- geminiError(err)
				}
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			disarm()
			select {
			case deltas <- text:
			case <-ctx.Done():
				errc <- context.Cause(ctx)
				return
			}
		}
	}()

	return deltas, errc
}

// geminiError keeps the status and message of an API error; anything else
// is reported as a bad gateway.
func geminiError(err error) *UpstreamError {
	var ae genai.APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return &UpstreamError{Status: ae.Code, Message: ae.Message}
	}
	return &UpstreamError{Status: http.StatusBadGateway, Message: err.Error()}
}

func geminiContents(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	return out
}

func geminiConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.Role(genai.RoleUser))
	}
	return cfg
}
