package campaigns

import "time"

// SendRequest queues one transactional email.
type SendRequest struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Subject    string                 `json:"subject"`
	Variables  map[string]interface{} `json:"variables"`
	Tags       []string               `json:"tags"`
}

// SendResult is the provider's acknowledgement for a queued message.
type SendResult struct {
	MessageID string    `json:"message_id"`
	Status    string    `json:"status"` // queued, sent, rejected
	QueuedAt  time.Time `json:"queued_at"`
}

// Template is an email template definition.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DirectMailRequest queues a physical mail piece through the provider's
// print-and-mail integration.
type DirectMailRequest struct {
	RecipientName string                 `json:"recipient_name"`
	AddressLine1  string                 `json:"address_line1"`
	AddressLine2  string                 `json:"address_line2"`
	City          string                 `json:"city"`
	Region        string                 `json:"region"`
	PostalCode    string                 `json:"postal_code"`
	TemplateID    string                 `json:"template_id"`
	Variables     map[string]interface{} `json:"variables"`
}

// DirectMailResult acknowledges a queued mail piece.
type DirectMailResult struct {
	PieceID     string    `json:"piece_id"`
	Status      string    `json:"status"`
	ExpectedBy  time.Time `json:"expected_by"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	ErrorCode string    `json:"error_code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// Config holds client connection settings.
type Config struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:9100",
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
	}
}
