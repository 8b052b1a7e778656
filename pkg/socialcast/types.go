package socialcast

import "time"

// PostRequest publishes one post to the configured channels.
type PostRequest struct {
	Body      string   `json:"body"`
	Channels  []string `json:"channels"` // twitter, facebook, instagram
	MediaURLs []string `json:"media_urls,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// PostResult acknowledges a published or scheduled post.
type PostResult struct {
	PostID       string    `json:"post_id"`
	Status       string    `json:"status"` // published, scheduled, rejected
	PublishedAt  time.Time `json:"published_at"`
	PermalinkURL string    `json:"permalink_url"`
}

// Engagement summarizes reactions to one post.
type Engagement struct {
	PostID   string `json:"post_id"`
	Likes    int    `json:"likes"`
	Shares   int    `json:"shares"`
	Comments int    `json:"comments"`
	Clicks   int    `json:"clicks"`
}

type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	ErrorCode string    `json:"error_code"`
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
		BaseURL:    "http://localhost:9200",
		Timeout:    20 * time.Second,
		MaxRetries: 2,
		RetryDelay: 1 * time.Second,
	}
}
