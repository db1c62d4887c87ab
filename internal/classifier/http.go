package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/voicepulse/voicepulse-api/internal/emotion"
)

// Static errors for inference service operations.
var (
	// ErrBaseURLRequired is returned when the inference service URL is not provided.
	ErrBaseURLRequired = errors.New("classifier: base URL is required")
	// ErrServerError is returned when the service returns a 5xx status code.
	ErrServerError = errors.New("classifier: server error")
	// ErrRateLimited is returned when the service returns a 429 status code.
	ErrRateLimited = errors.New("classifier: rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("classifier: request failed")
	// ErrBadScores is returned when the service responds with a malformed distribution.
	ErrBadScores = errors.New("classifier: malformed score distribution")
)

// HTTPClassifier scores windows through an external inference service.
type HTTPClassifier struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

// ClientOption is a function that configures an HTTPClassifier.
type ClientOption func(*HTTPClassifier)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClassifier) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClassifier) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the inference service base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *HTTPClassifier) {
		c.baseURL = url
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClassifier) {
		c.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(c *HTTPClassifier) {
		c.baseBackoff = d
	}
}

// NewHTTPClassifier creates a classifier backed by the inference service at
// baseURL. The API key can be set via WithAPIKey; if not provided it is read
// from the EMOTION_API_KEY environment variable. An empty key is allowed for
// services that run without authentication.
func NewHTTPClassifier(baseURL string, opts ...ClientOption) (*HTTPClassifier, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	c := &HTTPClassifier{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		maxRetries:  3,
		baseBackoff: 1 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("EMOTION_API_KEY")
	}

	return c, nil
}

// classifyRequest is the payload sent to the inference service.
type classifyRequest struct {
	Samples    []float64 `json:"samples"`
	SampleRate int       `json:"sample_rate"`
}

// classifyResponse is the payload returned by the inference service.
type classifyResponse struct {
	Scores map[string]float64 `json:"scores"`
	Error  string             `json:"error,omitempty"`
}

// Classify implements Classifier by calling POST {base}/classify.
func (c *HTTPClassifier) Classify(ctx context.Context, samples []float64, sampleRate int) (emotion.Scores, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	bodyBytes, err := json.Marshal(classifyRequest{Samples: samples, SampleRate: sampleRate})
	if err != nil {
		return nil, fmt.Errorf("classifier: marshal request: %w", err)
	}

	url := c.baseURL + "/classify"

	var resp classifyResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, url, bodyBytes, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, resp.Error)
	}

	scores := make(emotion.Scores, len(resp.Scores))
	for name, v := range resp.Scores {
		label, err := emotion.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadScores, err)
		}
		scores[label] = v
	}
	if err := scores.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadScores, err)
	}

	return scores, nil
}

// doRequestWithRetry performs an HTTP request with exponential backoff retry.
func (c *HTTPClassifier) doRequestWithRetry(ctx context.Context, method, url string, body []byte, result interface{}) error {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("classifier: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		err := c.doRequest(ctx, method, url, body, result)
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("classifier: max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request.
func (c *HTTPClassifier) doRequest(ctx context.Context, method, url string, body []byte, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("classifier: create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &retryableError{err: fmt.Errorf("classifier: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryableError{err: fmt.Errorf("classifier: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			return &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, string(respBody))}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, string(respBody))}
		}
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("classifier: unmarshal response: %w", err)
		}
	}

	return nil
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// Verify interface implementation at compile time.
var _ Classifier = (*HTTPClassifier)(nil)
