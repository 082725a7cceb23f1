// Package generation calls the remote function that generates a workflow's
// content and publishes it to the configured platforms.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"aisocial/internal/domain"
	"aisocial/internal/infra"
)

var (
	// ErrMissingAPIKey indicates that the client was configured without credentials.
	ErrMissingAPIKey = errors.New("generation: api key is required")
	// ErrMissingBaseURL indicates that no function endpoint was configured.
	ErrMissingBaseURL = errors.New("generation: base url is required")
)

// Options configures the remote generation client.
type Options struct {
	APIKey         string
	BaseURL        string
	Function       string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client invokes the remote generation/publish function over HTTP.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *infra.Logger
}

type invokeRequest struct {
	WorkflowID string `json:"workflowId"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewClient constructs a client with defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	function := strings.Trim(strings.TrimSpace(opts.Function), "/")
	if function == "" {
		function = "execute-workflow"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 10 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		endpoint:   baseURL + "/" + function,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Invoke runs the remote job for workflowID and blocks until it resolves.
// Transport and non-2xx failures are returned as errors; a job that ran but
// reported a top-level error comes back in JobResult.Error.
func (c *Client) Invoke(ctx context.Context, workflowID string) (*domain.JobResult, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	body, err := json.Marshal(invokeRequest{WorkflowID: workflowID})
	if err != nil {
		return nil, fmt.Errorf("generation: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("generation: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("generation: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil {
			if msg := firstNonEmpty(detail.Error, detail.Message); msg != "" {
				return nil, fmt.Errorf("generation: %s: %w", msg, domain.ErrProviderFailure)
			}
		}
		return nil, fmt.Errorf("generation: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrProviderFailure)
	}

	result, err := DecodeJobResult(raw)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("workflow_id", workflowID).
		Int("platforms", len(result.Publish)).
		Dur("took", time.Since(started)).
		Msg("generation: job resolved")
	return result, nil
}

// DecodeJobResult parses the job response: a top-level "error" string plus
// one {success, error} object per platform.
func DecodeJobResult(raw []byte) (*domain.JobResult, error) {
	result := &domain.JobResult{Publish: map[string]domain.PublishOutcome{}}
	if len(bytes.TrimSpace(raw)) == 0 {
		return result, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("generation: decode response: %w", err)
	}
	for key, value := range fields {
		if key == "error" {
			var msg string
			if err := json.Unmarshal(value, &msg); err == nil {
				result.Error = strings.TrimSpace(msg)
			}
			continue
		}
		var outcome domain.PublishOutcome
		if err := json.Unmarshal(value, &outcome); err != nil {
			// not a platform entry
			continue
		}
		result.Publish[strings.ToLower(key)] = outcome
	}
	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
