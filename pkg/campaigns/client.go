package campaigns

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

// Client talks to the email campaign provider's REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
	config     *Config
}

// Sender is the slice of the provider API the automation engine needs.
type Sender interface {
	SendEmail(ctx context.Context, req *SendRequest) (*SendResult, error)
	SendDirectMail(ctx context.Context, req *DirectMailRequest) (*DirectMailResult, error)
	GetTemplate(ctx context.Context, templateID string) (*Template, error)
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
	req.Header.Set("User-Agent", "Donorflow-Campaigns-Client/1.0")

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

	c.logger.Debugf("Campaigns API Request: %s %s", req.Method, req.URL.String())
	c.logger.Debugf("Campaigns API Response: %d %s", resp.StatusCode, string(body))

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
			c.logger.Warnf("Campaigns API retry attempt %d/%d", attempt, c.config.MaxRetries)
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

// SendEmail queues one email for delivery.
func (c *Client) SendEmail(ctx context.Context, req *SendRequest) (*SendResult, error) {
	if req.To == "" {
		return nil, fmt.Errorf("recipient is required")
	}
	if req.TemplateID == "" && req.Subject == "" {
		return nil, fmt.Errorf("template ID or subject is required")
	}

	var response struct {
		Success bool       `json:"success"`
		Data    SendResult `json:"data"`
		Message string     `json:"message"`
	}

	err := c.doRequestWithRetry(ctx, "POST", "/api/v1/messages", req, &response)
	if err != nil {
		return nil, fmt.Errorf("send email: %w", err)
	}

	if !response.Success {
		return nil, fmt.Errorf("send failed: %s", response.Message)
	}

	return &response.Data, nil
}

// SendDirectMail submits a physical mail piece.
func (c *Client) SendDirectMail(ctx context.Context, req *DirectMailRequest) (*DirectMailResult, error) {
	if req.RecipientName == "" {
		return nil, fmt.Errorf("recipient name is required")
	}
	if req.AddressLine1 == "" || req.PostalCode == "" {
		return nil, fmt.Errorf("recipient address is required")
	}

	var response struct {
		Success bool             `json:"success"`
		Data    DirectMailResult `json:"data"`
		Message string           `json:"message"`
	}

	err := c.doRequestWithRetry(ctx, "POST", "/api/v1/mail-pieces", req, &response)
	if err != nil {
		return nil, fmt.Errorf("send direct mail: %w", err)
	}

	if !response.Success {
		return nil, fmt.Errorf("submit failed: %s", response.Message)
	}

	return &response.Data, nil
}

// GetTemplate fetches a template definition.
func (c *Client) GetTemplate(ctx context.Context, templateID string) (*Template, error) {
	if templateID == "" {
		return nil, fmt.Errorf("template ID is required")
	}

	endpoint := fmt.Sprintf("/api/v1/templates/%s", templateID)

	var response struct {
		Success bool     `json:"success"`
		Data    Template `json:"data"`
		Message string   `json:"message"`
	}

	err := c.doRequestWithRetry(ctx, "GET", endpoint, nil, &response)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
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

// GetStats reports the client's connection settings.
func (c *Client) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"base_url":    c.baseURL,
		"timeout":     c.config.Timeout,
		"max_retries": c.config.MaxRetries,
	}
}
