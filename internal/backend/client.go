// Package backend implements the HTTP client for the external
// content-generation service: submission with bounded retries and
// exponential backoff, status polling, and failure classification.
package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmcallister/draftforge/internal/config"
	"github.com/jmcallister/draftforge/pkg/models"
)

// clientVersion is sent as X-Client-Version on every outbound request.
const clientVersion = "draftforge/1.0"

// Sentinel errors for backend failures. Classification alone determines both
// retry behavior and the user-facing status code, so the mapping is fixed:
// only ErrUnreachable is retried.
var (
	ErrTimeout      = errors.New("backend request timed out")
	ErrUnreachable  = errors.New("backend unreachable")
	ErrTLS          = errors.New("backend tls failure")
	ErrParse        = errors.New("backend response is not valid json")
	ErrUnconfigured = errors.New("backend not configured")
)

// HTTPError carries a non-2xx backend status and whatever error detail could
// be parsed from the body. It is never retried.
type HTTPError struct {
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Detail)
}

// Client is the interface for talking to the generation backend.
type Client interface {
	Submit(ctx context.Context, req *models.GenerationRequest) (Payload, error)
	Status(ctx context.Context, id string) (Payload, error)
}

// statusProbes are the fallback status endpoints tried, in order, after the
// primary job endpoint. Different backend versions expose different ones.
var statusProbes = []string{
	"/api/generate/%s",
	"/api/status/%s",
	"/api/generation/%s",
	"/status",
}

// HTTPClient implements Client against the backend's HTTP API.
type HTTPClient struct {
	baseURL        string
	apiKey         string
	maxAttempts    int
	defaultTimeout time.Duration
	client         *http.Client

	// sleep is swapped out in tests to observe the backoff schedule.
	sleep func(time.Duration)
}

// NewHTTPClient creates a backend client from config. The overall http.Client
// carries no timeout of its own; each attempt is bounded by a per-attempt
// context deadline derived from the request's timeout_seconds.
func NewHTTPClient(cfg config.BackendConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		maxAttempts:    cfg.SubmitMaxAttempts,
		defaultTimeout: cfg.DefaultTimeout,
		client:         &http.Client{},
		sleep:          time.Sleep,
	}
}

// Submit sends the generation request, retrying network-class failures with
// exponential backoff (2^attempt seconds) up to the attempt cap. Timeout,
// TLS, HTTP, and unclassified failures surface immediately.
func (c *HTTPClient) Submit(ctx context.Context, req *models.GenerationRequest) (Payload, error) {
	if c.baseURL == "" {
		return nil, ErrUnconfigured
	}

	timeout := c.defaultTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		payload, err := c.post(ctx, req, timeout)
		if err == nil {
			slog.Info("backend submit succeeded",
				"request_id", req.RequestID,
				"attempt", attempt,
			)
			return payload, nil
		}

		lastErr = err
		slog.Warn("backend submit attempt failed",
			"request_id", req.RequestID,
			"attempt", attempt,
			"category", categorize(err),
			"error", truncateError(err),
		)

		if !retryable(err) {
			return nil, err
		}
		if attempt < c.maxAttempts {
			c.sleep(time.Duration(1<<attempt) * time.Second)
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: fetch failed after all attempts", ErrUnreachable)
	}
	return nil, fmt.Errorf("submit failed after %d attempts: %w", c.maxAttempts, lastErr)
}

// post performs a single submission attempt with a hard per-attempt deadline.
func (c *HTTPClient) post(ctx context.Context, req *models.GenerationRequest, timeout time.Duration) (Payload, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost,
		c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq, req)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	return decodePayload(resp)
}

// Status looks up a job by identifier, trying the primary endpoint and then
// each fallback probe in sequence. All probes failing is reported as
// ErrUnreachable so callers surface a 503.
func (c *HTTPClient) Status(ctx context.Context, id string) (Payload, error) {
	if c.baseURL == "" {
		return nil, ErrUnconfigured
	}

	var lastErr error
	for _, probe := range statusProbes {
		path := probe
		if strings.Contains(probe, "%s") {
			path = fmt.Sprintf(probe, url.PathEscape(id))
		}

		payload, err := c.get(ctx, path)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		slog.Debug("status probe failed", "path", path, "error", truncateError(err))
	}

	return nil, fmt.Errorf("%w: all status probes failed for %q: %v", ErrUnreachable, id, lastErr)
}

func (c *HTTPClient) get(ctx context.Context, path string) (Payload, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.defaultTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq, nil)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	return decodePayload(resp)
}

func (c *HTTPClient) setHeaders(httpReq *http.Request, req *models.GenerationRequest) {
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Client-Version", clientVersion)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if req != nil {
		httpReq.Header.Set("X-Request-ID", req.RequestID)
		httpReq.Header.Set("X-Generation-Mode", req.GenerationMode)
	}
}

// decodePayload parses a backend response body. Non-2xx statuses become
// HTTPError with the backend's own error detail when one can be parsed.
func decodePayload(resp *http.Response) (Payload, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Detail: parseErrorDetail(raw)}
	}

	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// A bare string body is still a valid generation payload shape.
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return Payload{rawBodyKey: s}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return payload, nil
}

// parseErrorDetail pulls a human-readable message out of an error body.
func parseErrorDetail(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil {
		for _, s := range []string{body.Error, body.Message, body.Detail} {
			if s != "" {
				return s
			}
		}
	}
	const maxRaw = 200
	s := strings.TrimSpace(string(raw))
	if len(s) > maxRaw {
		s = s[:maxRaw]
	}
	return s
}

// classifyError maps transport-level errors to sentinel errors. The checks
// are mutually exclusive and ordered: timeout and cancellation first, then
// TLS (before the generic net.Error catch-all, which would otherwise swallow
// certificate failures), then network, then unclassified.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var certErr *tls.CertificateVerificationError
	var hostErr x509.HostnameError
	var authErr x509.UnknownAuthorityError
	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &authErr) ||
		strings.Contains(err.Error(), "tls:") || strings.Contains(err.Error(), "x509:") {
		return fmt.Errorf("%w: %v", ErrTLS, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return err
}

// retryable reports whether a classified error should be retried.
// Only network-class failures are; timeout, TLS, HTTP, parse, and
// unclassified errors surface immediately.
func retryable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// categorize names the failure class for log fields.
func categorize(err error) string {
	var httpErr *HTTPError
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrTLS):
		return "tls"
	case errors.Is(err, ErrUnreachable):
		return "network"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.As(err, &httpErr):
		return "http"
	default:
		return "unknown"
	}
}

// truncateError keeps log lines bounded; only the first few lines of an
// error chain are ever useful.
func truncateError(err error) string {
	s := err.Error()
	if lines := strings.SplitN(s, "\n", 4); len(lines) > 3 {
		s = strings.Join(lines[:3], "\n")
	}
	const maxLen = 500
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
