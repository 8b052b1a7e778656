package socialcast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client talks to the social publishing provider's REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
	config     *Config
}

// Publisher is the slice of the provider API the automation engine needs.
type Publisher interface {
	PublishPost(ctx context.Context, req *PostRequest) (*PostResult, error)
	GetEngagement(ctx context.Context, postID string) (*Engagement, error)
	HealthCheck(ctx context.Context) error
}

func NewClient(config *Config, logger *logrus.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Client{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
		config: config,
	}
}

func (c *Client) createRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Request, error) {
	url := fmt.Sprintf("%s%s", c.baseURL, endpoint)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("User-Agent", "Donorflow-Socialcast-Client/1.0")

	return req, nil
}

func (c *Client) doRequest(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	c.logger.Debugf("Socialcast API Request: %s %s", req.Method, req.URL.String())
	c.logger.Debugf("Socialcast API Response: %d %s", resp.StatusCode, string(body))

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("API error [%d]: %s (code: %s)", resp.StatusCode, errResp.Error, errResp.ErrorCode)
		}
		return fmt.Errorf("API error [%d]: %s", resp.StatusCode, string(body))
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

func (c *Client) doRequestWithRetry(ctx context.Context, method, endpoint string, body interface{}, result interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
			c.logger.Warnf("Socialcast API retry attempt %d/%d", attempt, c.config.MaxRetries)
		}

		req, err := c.createRequest(ctx, method, endpoint, body)
		if err != nil {
			lastErr = err
			continue
		}

		if err := c.doRequest(req, result); err != nil {
			lastErr = err
			if attempt < c.config.MaxRetries {
				continue
			}
			break
		}

		return nil
	}

	return lastErr
}

// PublishPost publishes or schedules one post.
func (c *Client) PublishPost(ctx context.Context, req *PostRequest) (*PostResult, error) {
	if req.Body == "" {
		return nil, fmt.Errorf("post body is required")
	}
	if len(req.Channels) == 0 {
		req.Channels = []string{"twitter"}
	}

	var response struct {
		Success bool       `json:"success"`
		Data    PostResult `json:"data"`
		Message string     `json:"message"`
	}

	err := c.doRequestWithRetry(ctx, "POST", "/api/v1/posts", req, &response)
	if err != nil {
		return nil, fmt.Errorf("publish post: %w", err)
	}

	if !response.Success {
		return nil, fmt.Errorf("publish failed: %s", response.Message)
	}

	return &response.Data, nil
}

// GetEngagement fetches engagement counters for a post.
func (c *Client) GetEngagement(ctx context.Context, postID string) (*Engagement, error) {
	if postID == "" {
		return nil, fmt.Errorf("post ID is required")
	}

	endpoint := fmt.Sprintf("/api/v1/posts/%s/engagement", postID)

	var response struct {
		Success bool       `json:"success"`
		Data    Engagement `json:"data"`
		Message string     `json:"message"`
	}

	err := c.doRequestWithRetry(ctx, "GET", endpoint, nil, &response)
	if err != nil {
		return nil, fmt.Errorf("get engagement: %w", err)
	}

	if !response.Success {
		return nil, fmt.Errorf("get failed: %s", response.Message)
	}

	return &response.Data, nil
}

// HealthCheck probes the provider.
func (c *Client) HealthCheck(ctx context.Context) error {
	var response HealthResponse
	err := c.doRequestWithRetry(ctx, "GET", "/api/v1/health", nil, &response)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if response.Status != "healthy" && response.Status != "ok" {
		return fmt.Errorf("service unhealthy: %s", response.Status)
	}

	return nil
}
