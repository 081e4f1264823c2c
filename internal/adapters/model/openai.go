package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service"
)

// DefaultOpenAIBaseURL is the public OpenAI API.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAI talks to any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	name       string
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// OpenAIOption configures an OpenAI model.
type OpenAIOption func(*OpenAI)

// WithOpenAIBaseURL sets a custom base URL (proxies, local servers, compatible APIs).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(o *OpenAI) {
		if url != "" {
			o.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(c *http.Client) OpenAIOption {
	return func(o *OpenAI) { o.httpClient = c }
}

// WithOpenAIAPIKey sets the API key directly instead of reading it from the
// environment.
func WithOpenAIAPIKey(key string) OpenAIOption {
	return func(o *OpenAI) { o.apiKey = key }
}

// NewOpenAI creates a chat model named name serving model. The API key is
// read from apiKeyEnv; an empty key is allowed for local servers.
func NewOpenAI(name, model, apiKeyEnv string, timeout time.Duration, opts ...OpenAIOption) *OpenAI {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	o := &OpenAI{
		name:       name,
		model:      model,
		baseURL:    DefaultOpenAIBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	if apiKeyEnv != "" {
		o.apiKey = os.Getenv(apiKeyEnv)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name returns the configured model name.
func (o *OpenAI) Name() string {
	return o.name
}

// Submit sends the system prompt, few-shot examples and prompt as one chat
// completion.
func (o *OpenAI) Submit(ctx context.Context, req core.Request) (*core.Response, error) {
	start := time.Now()

	model := o.model
	if req.Model != "" {
		model = req.Model
	}
	payload := openAIRequest{
		Model:       model,
		Messages:    buildMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, core.ErrTimeout(fmt.Sprintf("%s: request timed out", o.name)).WithCause(err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.ErrModel(core.CodeModelFailed, fmt.Sprintf("%s: sending request", o.name)).WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.ErrModel(core.CodeModelFailed, fmt.Sprintf("%s: reading response", o.name)).WithCause(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(o.name, resp.StatusCode, resp.Header.Get("Retry-After"), respBody)
	}

	var chat openAIResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return nil, core.ErrParse(core.CodeEmptyResponse, fmt.Sprintf("%s: parsing response", o.name)).WithCause(err)
	}
	if len(chat.Choices) == 0 {
		return nil, core.ErrModel(core.CodeEmptyResponse, fmt.Sprintf("%s: no choices in response", o.name))
	}

	name := chat.Model
	if name == "" {
		name = model
	}
	return &core.Response{
		Text:     chat.Choices[0].Message.Content,
		Usage:    core.TokenUsage{Input: chat.Usage.PromptTokens, Output: chat.Usage.CompletionTokens},
		Model:    name,
		Duration: time.Since(start),
	}, nil
}

func buildMessages(req core.Request) []openAIMessage {
	messages := make([]openAIMessage, 0, 2+2*len(req.Examples))
	if req.SystemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, ex := range req.Examples {
		messages = append(messages,
			openAIMessage{Role: "user", Content: ex.User},
			openAIMessage{Role: "assistant", Content: ex.Assistant})
	}
	return append(messages, openAIMessage{Role: "user", Content: req.Prompt})
}

// classifyStatus maps an HTTP failure onto a domain error. 429 and 5xx are
// retryable; other client errors are not.
func classifyStatus(name string, status int, retryAfter string, body []byte) error {
	msg := fmt.Sprintf("%s: API error (status %d): %s", name, status, truncate(strings.TrimSpace(string(body)), 500))
	switch {
	case status == http.StatusTooManyRequests:
		e := core.ErrRateLimit(msg)
		if d, ok := parseRetryAfter(retryAfter, time.Now()); ok {
			e.WithDetail(service.RetryAfterDetail, d)
		}
		return e
	case status >= 500:
		return core.ErrModel(core.CodeModelStatus, msg).WithDetail("status", status)
	default:
		e := core.ErrModel(core.CodeModelStatus, msg).WithDetail("status", status)
		e.Retryable = false
		return e
	}
}

// parseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, secs > 0
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now), true
	}
	return 0, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... [truncated]"
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}
