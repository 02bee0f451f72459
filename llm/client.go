// Package llm talks to the third-party completion APIs behind the proxy.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrAPIKeyMissing is returned by every call when no key is configured.
var ErrAPIKeyMissing = errors.New("llm: API key not configured")

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Prompt builds a single-turn request.
func Prompt(system, user string, maxTokens int) Request {
	return Request{
		System:      system,
		Messages:    []Message{{Role: RoleUser, Content: user}},
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	}
}

// Client is implemented by every provider.
type Client interface {
	Provider() string
	Configured() bool
	Complete(ctx context.Context, req Request) (string, error)
	// Stream sends text deltas until the reply ends. Both channels are
	// closed when the goroutine exits; at most one error is sent.
	Stream(ctx context.Context, req Request) (<-chan string, <-chan error)
}

// UpstreamError is a non-2xx answer from the provider.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm: upstream status %d: %s", e.Status, e.Message)
}

// Config selects and configures a provider.
type Config struct {
	Provider          string
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
	Logger            *zap.Logger
}

// New returns the client for cfg.Provider. An empty provider means openai.
func New(ctx context.Context, cfg Config) (Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// pacer spaces upstream calls; a nil pacer never waits.
type pacer struct {
	limiter *rate.Limiter
}

func newPacer(rps float64) pacer {
	if rps <= 0 {
		return pacer{}
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return pacer{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (p pacer) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// withTimeout applies d unless ctx already carries a deadline.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// firstDeltaTimeout cancels ctx with context.DeadlineExceeded unless disarm
// is called within d. Streams call disarm on their first delta, after which
// only the caller's context bounds them. A ctx that already has a deadline
// keeps it and gets no timer.
func firstDeltaTimeout(ctx context.Context, d time.Duration) (_ context.Context, disarm func(), cancel context.CancelFunc) {
	ctx, cancelCause := context.WithCancelCause(ctx)
	disarm = func() {}
	if _, ok := ctx.Deadline(); !ok && d > 0 {
		t := time.AfterFunc(d, func() { cancelCause(context.DeadlineExceeded) })
		disarm = func() { t.Stop() }
	}
	return ctx, disarm, func() { cancelCause(context.Canceled) }
}
