// Package llm provides a provider-agnostic model client with retry and
// fallback support. It integrates with the model.Registry for
// capability-based model selection.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/agromitra/agromitra/model"
)

// maxResponseSize limits the response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Client is a provider-agnostic model client with retry and fallback
// support.
type Client struct {
	registry    *model.Registry
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger

	// defaultTemperature fills requests that do not carry their own.
	defaultTemperature *float64
}

// Request defines a generation request.
type Request struct {
	// Capability specifies the semantic capability ("recommendation",
	// "reasoning", "diagnosis", "conversation"). The registry resolves it
	// to available models.
	Capability string

	// System is the system instruction.
	System string

	// Contents is the conversation input: user and model turns with text
	// and media parts.
	Contents []Content

	// Temperature controls randomness. nil uses the endpoint default.
	Temperature *float64

	// MaxTokens limits response length. 0 uses the endpoint default.
	MaxTokens int

	// JSONResponse asks the provider for a JSON response body where the
	// provider supports constrained output.
	JSONResponse bool
}

// TokenUsage represents token consumption details for one call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response contains the generation result.
type Response struct {
	// Content is the generated text.
	Content string

	// Model is the actual model that was used.
	Model string

	// Usage contains token consumption metrics.
	Usage TokenUsage

	// FinishReason indicates why generation stopped.
	FinishReason string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithTimeout caps how long a single model request may take.
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// WithDefaultTemperature sets the temperature used for requests that do
// not specify one.
func WithDefaultTemperature(t float64) ClientOption {
	return func(client *Client) {
		client.defaultTemperature = &t
	}
}

// NewClient creates a new client with the given model registry.
func NewClient(registry *model.Registry, opts ...ClientOption) *Client {
	c := &Client{
		registry:    registry,
		retryConfig: DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 180 * time.Second, // Allow time for long generations
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Complete sends a generation request, handling retry and fallback logic
// across the capability's model chain.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.Capability == "" {
		return nil, fmt.Errorf("capability is required")
	}
	if len(req.Contents) == 0 {
		return nil, fmt.Errorf("at least one content turn is required")
	}
	if req.Temperature == nil {
		req.Temperature = c.defaultTemperature
	}

	capVal := model.ParseCapability(req.Capability)
	if capVal == "" {
		capVal = model.CapabilityConversation
	}
	chain := c.registry.GetAvailableFallbackChain(capVal)

	if len(chain) == 0 {
		return nil, fmt.Errorf("no models configured for capability %s", req.Capability)
	}

	var lastErr error

	for _, modelName := range chain {
		endpoint := c.registry.GetEndpoint(modelName)
		if endpoint == nil {
			c.logger.Debug("No endpoint for model, skipping", "model", modelName)
			continue
		}

		if !c.registry.IsEndpointAvailable(modelName) {
			c.logger.Debug("Endpoint circuit open, skipping", "model", modelName)
			continue
		}

		resp, err := c.tryEndpointWithRetry(ctx, endpoint, modelName, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		c.logger.Warn("Endpoint failed, trying fallback",
			"model", modelName,
			"provider", endpoint.Provider,
			"error", err)

		if IsFatal(err) {
			c.logger.Warn("Fatal error, not trying fallbacks", "error", err)
			return nil, err
		}
	}

	return nil, fmt.Errorf("all endpoints failed for capability %s: %w", req.Capability, lastErr)
}

// CompleteStructured runs Complete, extracts the JSON object from the
// response text and unmarshals it into out. A response without a parseable
// JSON object is a fatal error: retrying the same parse cannot help.
func (c *Client) CompleteStructured(ctx context.Context, req Request, out any) (*Response, error) {
	req.JSONResponse = true
	resp, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	raw := ExtractJSON(resp.Content)
	if raw == "" {
		return nil, NewFatalError(fmt.Errorf("no JSON object in model response (model %s)", resp.Model))
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return nil, NewFatalError(fmt.Errorf("unmarshal model response: %w", err))
	}
	return resp, nil
}

// UploadMedia uploads raw media bytes to the provider serving the given
// capability and returns a file reference usable in generation parts.
func (c *Client) UploadMedia(ctx context.Context, capability string, data []byte, mimeType, displayName string) (*FileData, error) {
	endpoint, provider, err := c.resolveEndpoint(capability)
	if err != nil {
		return nil, err
	}

	uploader, ok := provider.(MediaProvider)
	if !ok {
		return nil, NewFatalError(fmt.Errorf("provider %s does not support media upload", provider.Name()))
	}

	httpReq, err := uploader.BuildUploadRequest(endpoint.URL, data, mimeType, displayName)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build upload request: %w", err))
	}
	body, err := c.execute(httpReq.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return uploader.ParseUploadResponse(body)
}

// DeleteMedia best-effort deletes a previously uploaded media file.
func (c *Client) DeleteMedia(ctx context.Context, capability, name string) error {
	endpoint, provider, err := c.resolveEndpoint(capability)
	if err != nil {
		return err
	}

	uploader, ok := provider.(MediaProvider)
	if !ok {
		return NewFatalError(fmt.Errorf("provider %s does not support media deletion", provider.Name()))
	}

	httpReq, err := uploader.BuildDeleteRequest(endpoint.URL, name)
	if err != nil {
		return NewFatalError(fmt.Errorf("build delete request: %w", err))
	}
	_, err = c.execute(httpReq.WithContext(ctx))
	return err
}

// SynthesizeSpeech converts text to audio using the speech capability's
// model. Returns the audio bytes and their MIME type.
func (c *Client) SynthesizeSpeech(ctx context.Context, text, voice string) ([]byte, string, error) {
	endpoint, provider, err := c.resolveEndpoint(string(model.CapabilitySpeech))
	if err != nil {
		return nil, "", err
	}

	speaker, ok := provider.(SpeechProvider)
	if !ok {
		return nil, "", NewFatalError(fmt.Errorf("provider %s does not support speech synthesis", provider.Name()))
	}

	body, err := speaker.BuildSpeechBody(endpoint.Model, text, voice)
	if err != nil {
		return nil, "", NewFatalError(fmt.Errorf("build speech request: %w", err))
	}

	url := provider.GenerateURL(endpoint.URL, endpoint.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", NewFatalError(fmt.Errorf("create speech request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	provider.SetHeaders(httpReq)

	respBody, err := c.execute(httpReq)
	if err != nil {
		return nil, "", err
	}
	return speaker.ParseSpeechResponse(respBody)
}

// resolveEndpoint picks the first available endpoint for a capability and
// its registered provider.
func (c *Client) resolveEndpoint(capability string) (*model.EndpointConfig, Provider, error) {
	capVal := model.ParseCapability(capability)
	if capVal == "" {
		capVal = model.CapabilityConversation
	}

	for _, name := range c.registry.GetAvailableFallbackChain(capVal) {
		endpoint := c.registry.GetEndpoint(name)
		if endpoint == nil {
			continue
		}
		provider := GetProvider(endpoint.Provider)
		if provider == nil {
			continue
		}
		return endpoint, provider, nil
	}
	return nil, nil, fmt.Errorf("no usable endpoint for capability %s", capability)
}

// tryEndpointWithRetry attempts a request with retry logic.
func (c *Client) tryEndpointWithRetry(ctx context.Context, ep *model.EndpointConfig, modelName string, req Request) (*Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retryConfig.MaxAttempts; attempt++ {
		resp, err := c.doRequest(ctx, ep, req)
		if err == nil {
			c.registry.MarkEndpointSuccess(modelName)
			return resp, nil
		}

		lastErr = err

		if IsFatal(err) {
			// Fatal errors may indicate config issues, not endpoint health.
			return nil, err
		}

		if attempt < c.retryConfig.MaxAttempts {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debug("Request failed, retrying",
				"attempt", attempt,
				"max_attempts", c.retryConfig.MaxAttempts,
				"backoff", backoff,
				"error", err)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	c.registry.MarkEndpointFailure(modelName)
	return nil, lastErr
}

// calculateBackoff computes exponential backoff duration with jitter.
// Jitter prevents thundering herd when multiple clients retry
// simultaneously.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= c.retryConfig.BackoffMultiplier
	}

	backoff := time.Duration(float64(c.retryConfig.BackoffBase) * multiplier)
	if backoff > c.retryConfig.MaxBackoff {
		backoff = c.retryConfig.MaxBackoff
	}

	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}

// doRequest executes a single HTTP request to the model endpoint.
func (c *Client) doRequest(ctx context.Context, ep *model.EndpointConfig, req Request) (*Response, error) {
	provider := GetProvider(ep.Provider)
	if provider == nil {
		return nil, NewFatalError(fmt.Errorf("unknown provider: %s", ep.Provider))
	}

	url := provider.GenerateURL(ep.URL, ep.Model)

	body, err := provider.BuildRequestBody(ep.Model, req)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	c.logger.Debug("Sending model request",
		"provider", ep.Provider,
		"model", ep.Model,
		"url", url,
		"contents", len(req.Contents))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	provider.SetHeaders(httpReq)

	respBody, err := c.execute(httpReq)
	if err != nil {
		return nil, err
	}

	return provider.ParseResponse(respBody, ep.Model)
}

// execute runs an HTTP request, reads the body with a size limit, and
// classifies HTTP-level failures.
func (c *Client) execute(req *http.Request) ([]byte, error) {
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors are transient
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}
	return respBody, nil
}

// classifyHTTPError determines if an HTTP error is transient or fatal.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}

	err := fmt.Errorf("model API error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		// Rate limiting is transient
		return NewTransientError(err)
	case statusCode >= 500:
		// Server errors are transient
		return NewTransientError(err)
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden:
		// Auth errors are fatal
		return NewFatalError(err)
	case statusCode == http.StatusBadRequest:
		return NewFatalError(err)
	default:
		// Unknown errors default to fatal
		return NewFatalError(err)
	}
}
