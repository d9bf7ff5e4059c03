package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	defaultHTTPTimeout = 120 * time.Second
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 4 * time.Second
)

// ClientConfig carries everything a Client needs; nothing is compiled in.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
	// RetryMax is the total number of attempts. Values <= 1 disable retries.
	RetryMax  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// RequestID, when set, is sent as X-Request-Id for log correlation.
	RequestID string
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

type Client struct {
	httpClient       *http.Client
	apiKey           string
	baseURL          string
	requestID        string
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerateRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Choice struct {
	Message Message `json:"message"`
}

// GenerateResponse is the decoded completion envelope. Raw holds the body
// exactly as received so callers can navigate or dump it.
type GenerateResponse struct {
	ID        string   `json:"id"`
	Choices   []Choice `json:"choices"`
	Usage     Usage    `json:"usage"`
	RequestID string   `json:"-"`
	Raw       []byte   `json:"-"`
}

// APIError represents a structured API error response.
type APIError struct {
	StatusCode int            `json:"-"`
	Code       string         `json:"code,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
	RequestID  string         `json:"-"`
}

func (e *APIError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "api error: status=%d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&sb, " code=%s", e.Code)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&sb, " request_id=%s", e.RequestID)
	}
	if e.Message != "" {
		fmt.Fprintf(&sb, " message=%s", e.Message)
	}
	return sb.String()
}

// NewClient builds a Client, filling zero values with defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	hc := &http.Client{Timeout: cfg.HTTPTimeout}
	if cfg.Transport != nil {
		hc.Transport = cfg.Transport
	}
	return &Client{
		httpClient:       hc,
		apiKey:           cfg.APIKey,
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		requestID:        cfg.RequestID,
		retryMaxAttempts: cfg.RetryMax,
		retryBaseDelay:   cfg.BaseDelay,
		retryMaxDelay:    cfg.MaxDelay,
	}
}

func (c *Client) ValidateModel(model string) error {
	if model == "" {
		return errors.New("model cannot be empty")
	}
	return nil
}

// Generate posts one chat-completion request. Any non-2xx status is an error.
// A successful body only has to be JSON; its shape is not checked here.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, errors.New("API key is missing (set APPFORGE_API_KEY or OPENROUTER_API_KEY)")
	}
	if err := c.ValidateModel(req.Model); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"
	maxAttempts := c.retryMaxAttempts
	backoff := c.retryBaseDelay

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("HTTP-Referer", "https://github.com/KaramelBytes/appforge-cli")
		httpReq.Header.Set("X-Title", "appforge")
		if c.requestID != "" {
			httpReq.Header.Set("X-Request-Id", c.requestID)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if isRetryableNetErr(err) && attempt < maxAttempts {
				lastErr = err
				sleepCtx(ctx, backoff)
				backoff *= 2
				continue
			}
			return nil, fmt.Errorf("http request: %w", err)
		}

		out, retry, err := c.handleResponse(ctx, resp, attempt < maxAttempts, &backoff)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return nil, lastErr
}

// handleResponse consumes resp. retry reports whether the caller should try again.
func (c *Client) handleResponse(ctx context.Context, resp *http.Response, canRetry bool, backoff *time.Duration) (*GenerateResponse, bool, error) {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		retryable := resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)
		if !retryable || !canRetry {
			return nil, false, classifyAPIError(apiErr, resp)
		}
		// Respect Retry-After header if present (seconds or HTTP date).
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := parseRetryAfterSeconds(ra); err == nil && secs > 0 {
				wait := time.Duration(secs) * time.Second
				sleepCtx(ctx, wait)
				return nil, true, &RateLimitError{APIError: apiErr, RetryAfter: wait}
			}
		}
		sleep := withJitter(*backoff)
		if c.retryMaxDelay > 0 && sleep > c.retryMaxDelay {
			sleep = c.retryMaxDelay
		}
		sleepCtx(ctx, sleep)
		*backoff *= 2
		return nil, true, apiErr
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, false, fmt.Errorf("decode response: body is not valid JSON (%d bytes)", len(body))
	}
	// Typed fields are best effort; the envelope shape is judged by the extractor from Raw.
	var out GenerateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, false, fmt.Errorf("decode response: %w", err)
		}
	}
	out.Raw = body
	out.RequestID = extractRequestID(resp)
	return &out, false, nil
}

func decodeAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	apiErr := &APIError{StatusCode: resp.StatusCode, Raw: raw, RequestID: extractRequestID(resp)}
	src := raw
	if v, ok := raw["error"].(map[string]any); ok {
		src = v
	}
	if msg, ok := src["message"].(string); ok {
		apiErr.Message = msg
	}
	switch code := src["code"].(type) {
	case string:
		apiErr.Code = code
	case float64:
		apiErr.Code = strconv.Itoa(int(code))
	}
	if apiErr.Message == "" && len(raw) == 0 && len(body) > 0 {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	// EOF or connection reset
	return errors.Is(err, io.EOF)
}

// parseRetryAfterSeconds tries to interpret Retry-After header value as seconds or HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// classifyAPIError maps generic APIError to typed errors for better UX.
func classifyAPIError(apiErr *APIError, resp *http.Response) error {
	sc := apiErr.StatusCode
	msg := apiErr.Message
	code := apiErr.Code
	if sc == http.StatusUnauthorized || sc == http.StatusForbidden {
		return &AuthError{APIError: apiErr}
	}
	if sc == http.StatusTooManyRequests {
		var ra time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := parseRetryAfterSeconds(v); err == nil && secs > 0 {
				ra = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{APIError: apiErr, RetryAfter: ra}
	}
	if sc == http.StatusNotFound {
		if code == "model_not_found" || containsAllFold(msg, "model", "not", "found") {
			return &ModelNotFoundError{APIError: apiErr}
		}
		return apiErr
	}
	if sc == http.StatusBadRequest {
		return &BadRequestError{APIError: apiErr}
	}
	// Quota/billing signals (heuristic)
	if sc == http.StatusPaymentRequired || code == "quota_exceeded" || containsAnyFold(msg, "quota", "billing", "insufficient credits") {
		return &QuotaExceededError{APIError: apiErr}
	}
	if sc >= 500 && sc <= 599 {
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

func containsAllFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if !containsFold(s, sub) {
			return false
		}
	}
	return true
}

func containsAnyFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	if s == "" || sub == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// extractRequestID pulls a best-effort request ID from common headers.
func extractRequestID(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	keys := []string{"X-Request-Id", "OpenAI-Request-ID", "Openrouter-Request-ID", "X-Amzn-Requestid"}
	for _, k := range keys {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultBaseDelay
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
