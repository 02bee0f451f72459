// Package planclient is the HTTP client of the Aclio LLM proxy.
package planclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/aclio/aclio/models"
)

const (
	// MaxGoalLength is the longest accepted goal text, in runes.
	MaxGoalLength = 200
	// DefaultTimeout bounds non-streaming calls.
	DefaultTimeout = 90 * time.Second
)

// Client calls the proxy endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	stream  *http.Client
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the client used for non-streaming calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the non-streaming request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

// WithLogger sets the logger; the default discards.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client for the proxy at baseURL (e.g. http://localhost:3001).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		stream:  &http.Client{},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the proxy address.
func (c *Client) BaseURL() string { return c.baseURL }

// ValidateGoal checks goal text before any network call.
func ValidateGoal(goal string) error {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return validationError("Please enter a goal.")
	}
	if utf8.RuneCountInString(goal) > MaxGoalLength {
		return validationError(fmt.Sprintf("Goal must be %d characters or fewer.", MaxGoalLength))
	}
	return nil
}

func validateStep(step models.Step) error {
	if strings.TrimSpace(step.Title) == "" {
		return validationError("A step is required.")
	}
	return nil
}

// Health fetches the proxy status.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.call(ctx, http.MethodGet, "/api/health", nil, &h)
	return h, err
}

// Reachable reports whether the health endpoint answers; it serves as the
// connectivity check of the offline queue monitor.
func (c *Client) Reachable(ctx context.Context) bool {
	_, err := c.Health(ctx)
	return err == nil
}

// GenerateSteps asks for a plan for req.Goal.
func (c *Client) GenerateSteps(ctx context.Context, req StepsRequest) (Plan, error) {
	if err := ValidateGoal(req.Goal); err != nil {
		return Plan{}, err
	}
	req.Goal = strings.TrimSpace(req.Goal)
	var plan Plan
	if err := c.call(ctx, http.MethodPost, "/api/generate-steps", req, &plan); err != nil {
		return Plan{}, err
	}
	if len(plan.Steps) == 0 {
		return Plan{}, &Error{Kind: KindDecode, Message: "plan has no steps"}
	}
	return plan, nil
}

// GenerateQuestions asks for clarifying questions about goal.
func (c *Client) GenerateQuestions(ctx context.Context, goal string) ([]Question, error) {
	if err := ValidateGoal(goal); err != nil {
		return nil, err
	}
	var out questionsResponse
	body := map[string]string{"goal": strings.TrimSpace(goal)}
	if err := c.call(ctx, http.MethodPost, "/api/generate-questions", body, &out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}

// ExpandStep asks for a detailed guide for step.
func (c *Client) ExpandStep(ctx context.Context, goalName string, step models.Step) (Expansion, error) {
	if err := validateStep(step); err != nil {
		return Expansion{}, err
	}
	var out Expansion
	err := c.call(ctx, http.MethodPost, "/api/expand-step", stepRequest{GoalName: goalName, Step: step}, &out)
	return out, err
}

// DoItForMe asks the model to complete step and returns its markdown result.
func (c *Client) DoItForMe(ctx context.Context, goalName string, step models.Step, profile *models.UserProfile) (string, error) {
	if err := validateStep(step); err != nil {
		return "", err
	}
	var out resultResponse
	err := c.call(ctx, http.MethodPost, "/api/do-it-for-me", stepRequest{GoalName: goalName, Step: step, Profile: profile}, &out)
	return out.Result, err
}

// Chat returns the coach's reply to the conversation.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", validationError("A message is required.")
	}
	req.Stream = false
	var out chatResponse
	err := c.call(ctx, http.MethodPost, "/api/chat", req, &out)
	return out.Reply, err
}

// ChatStream streams the reply as text deltas. Cancelling ctx stops the
// stream; both channels are closed when it ends.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest) (<-chan string, <-chan error) {
	deltas := make(chan string, 16)
	errc := make(chan error, 1)

	go func() {
		defer close(deltas)
		defer close(errc)

		if len(req.Messages) == 0 {
			errc <- validationError("A message is required.")
			return
		}
		req.Stream = true
		resp, err := c.do(ctx, c.stream, http.MethodPost, "/api/chat", req)
		if err != nil {
			errc <- err
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode/100 != 2 {
			errc <- serverError(resp)
			return
		}
		if err := readEvents(ctx, resp.Body, deltas); err != nil {
			errc <- err
		}
	}()

	return deltas, errc
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	start := time.Now()
	resp, err := c.do(ctx, c.http, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		e := serverError(resp)
		c.log.Warn("proxy call failed", zap.String("path", path), zap.Int("status", resp.StatusCode), zap.String("error", e.Message))
		return e
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindDecode, Message: "invalid response body", Err: err}
	}
	c.log.Debug("proxy call done", zap.String("path", path), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, &Error{Kind: KindValidation, Message: "request cannot be encoded", Err: err}
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Message: "invalid proxy address", Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, text/event-stream")
	resp, err := hc.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	return resp, nil
}

// serverError reads the {"error": ...} body of a non-2xx response.
func serverError(resp *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body errorResponse
	msg := ""
	if json.Unmarshal(raw, &body) == nil {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &Error{Kind: KindServer, Status: resp.StatusCode, Message: msg}
}

// readEvents parses the proxy's server-sent events until "done".
func readEvents(ctx context.Context, r io.Reader, deltas chan<- string) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var event string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			continue
		case line != "":
			continue
		}

		payload := data.String()
		name := event
		event = ""
		data.Reset()
		switch name {
		case "delta":
			var d struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal([]byte(payload), &d); err != nil {
				return &Error{Kind: KindDecode, Message: "invalid stream event", Err: err}
			}
			select {
			case deltas <- d.Text:
			case <-ctx.Done():
				return &Error{Kind: KindNetwork, Err: ctx.Err()}
			}
		case "done":
			return nil
		case "error":
			var e errorResponse
			_ = json.Unmarshal([]byte(payload), &e)
			if e.Error == "" {
				e.Error = "stream failed"
			}
			return &Error{Kind: KindServer, Message: e.Error}
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return &Error{Kind: KindNetwork, Err: err}
	}
	return &Error{Kind: KindNetwork, Message: "stream ended unexpectedly"}
}
