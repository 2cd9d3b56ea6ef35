package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/greennepal/agrihealth/pkg/metrics"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Client performs HTTP requests against the Gemini generateContent API.
// Every call site shares the same retry policy: a fixed attempt budget with
// exponential backoff between attempts, no jitter, no per-endpoint tuning.
type Client struct {
	apiKey      string
	baseURL     string
	maxAttempts int
	baseBackoff time.Duration
	httpClient  *http.Client
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewClient constructs a Gemini client.
func NewClient(apiKey, baseURL string, maxAttempts int, baseBackoff time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key cannot be empty")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseBackoff <= 0 {
		baseBackoff = time.Second
	}
	return &Client{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		sleep: sleepContext,
	}, nil
}

// GenerateContent posts the request to {base}/{model}:generateContent and
// decodes the response envelope. Failed attempts are retried after
// baseBackoff * 2^i; when the budget is exhausted the last error propagates.
func (c *Client) GenerateContent(ctx context.Context, model string, req Request) (Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.baseBackoff * time.Duration(1<<(attempt-1))
			if err := c.sleep(ctx, delay); err != nil {
				return Response{}, err
			}
		}

		resp, err := c.doRequest(ctx, model, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return Response{}, lastErr
}

func (c *Client) doRequest(ctx context.Context, model string, req Request) (Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, model, url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("gemini request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4<<10))
		return Response{}, &APIError{StatusCode: httpResp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read gemini response: %w", err)
	}
	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return Response{}, fmt.Errorf("decode gemini response: %w", err)
	}
	return out, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// APIError carries the upstream HTTP status so callers can distinguish quota
// and credential failures from generic outages.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini request failed: status=%d body=%s", e.StatusCode, e.Body)
}

// IsQuota reports whether err is an upstream quota rejection.
func IsQuota(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// IsCredential reports whether err indicates a rejected API key.
func IsCredential(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// ErrorCode maps an outbound failure onto the service error taxonomy so
// every feature surfaces quota and credential problems the same way.
func ErrorCode(err error) string {
	switch {
	case IsQuota(err):
		return "quota_exceeded"
	case IsCredential(err):
		return "invalid_api_key"
	default:
		return "network_error"
	}
}

// SanitizeJSON strips the markdown code fences models wrap around JSON
// payloads. Stripping an unfenced payload is a no-op.
func SanitizeJSON(raw string) string {
	sanitized := strings.TrimSpace(raw)
	sanitized = strings.TrimPrefix(sanitized, "```json")
	sanitized = strings.TrimSuffix(sanitized, "```")
	sanitized = strings.Trim(sanitized, "`")
	sanitized = strings.TrimSpace(strings.TrimPrefix(sanitized, "json"))
	return strings.TrimSpace(sanitized)
}

// Usage converts the response usage metadata to the shared metrics type.
func (r Response) Usage() metrics.TokenUsage {
	if r.UsageMetadata == nil {
		return metrics.TokenUsage{}
	}
	return metrics.TokenUsage{
		PromptTokens:     r.UsageMetadata.PromptTokenCount,
		CompletionTokens: r.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      r.UsageMetadata.TotalTokenCount,
	}
}
