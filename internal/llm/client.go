// Package llm wraps the external text-generation service used by both
// verification stages. Requests run at low temperature with bounded tokens;
// transient failures get a bounded retry, malformed output is the caller's
// problem to reject.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/airwin/platform/internal/errors"
	"github.com/airwin/platform/internal/resilience"
	"github.com/airwin/platform/internal/trace"
)

// Generator is the interface the classifier depends on.
type Generator interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is one completion call.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Client implements Generator over a chat-completions style HTTP API.
type Client struct {
	url     string
	apiKey  string
	model   string
	httpCli *http.Client
	retry   resilience.RetryConfig
}

// New creates a generation client with a fixed call timeout.
func New(url, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		url:     url,
		apiKey:  apiKey,
		model:   model,
		httpCli: &http.Client{Timeout: timeout},
		retry:   resilience.LLMRetryConfig(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete returns the single completion for the request. Only transient
// statuses (429, 5xx) and network errors are retried; a well-formed bad
// answer comes back as-is for the classifier to validate.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm_complete")
	defer span.End()
	span.SetAttr("user_chars", len(req.User))

	var result string
	err := resilience.Retry(ctx, c.retry, func() error {
		var callErr error
		result, callErr = c.call(ctx, req)
		return callErr
	})
	if err != nil {
		span.SetAttr("error", err.Error())
		return "", err
	}
	return result, nil
}

func (c *Client) call(ctx context.Context, req Request) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.Internal, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.Internal, "build request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpCli.Do(httpReq)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.Timeout, "llm call")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		code := apperrors.LLMAPIError
		if resilience.RetryableStatus(resp.StatusCode) {
			code = apperrors.LLMRateLimited
			if resp.StatusCode >= 500 {
				code = apperrors.Unavailable
			}
		}
		return "", apperrors.Newf(code, "llm status %d: %s", resp.StatusCode, msg)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperrors.Wrap(err, apperrors.LLMInvalidOutput, "decode response")
	}
	if len(out.Choices) == 0 {
		return "", apperrors.New(apperrors.LLMInvalidOutput, "empty choices")
	}

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
