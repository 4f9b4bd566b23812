// Package provider generates sprite sheets with hosted image models.
//
// Two backends are available: Google Gemini image models through the
// generateContent REST API, and any OpenAI-compatible images endpoint.
// Both return encoded image bytes ready for sprite.Player.SetSource.
package provider

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

	"github.com/gogpu/sprite"
)

// Errors returned by providers.
var (
	// ErrNotConfigured is returned when required credentials or endpoint
	// settings are missing.
	ErrNotConfigured = errors.New("provider: not configured")

	// ErrNoImage is returned when a response carries no image data.
	ErrNoImage = errors.New("provider: no image was generated")
)

// DefaultTimeout bounds one generation request.
const DefaultTimeout = 3 * time.Minute

// maxImageBytes caps the size of a downloaded image.
const maxImageBytes = 64 << 20

// Provider generates one sprite sheet image from a prompt.
type Provider interface {
	// Name identifies the backend and model for display.
	Name() string

	// Generate returns the encoded image bytes (PNG, JPEG, ...) or a data:
	// URI, as accepted by sprite.Player.SetSource.
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// APIError is a non-2xx response from a provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider: request failed: %s", http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("provider: request failed (%d): %s", e.StatusCode, e.Message)
}

// Config selects a backend.
type Config struct {
	// Model is a Gemini model name or "custom".
	Model  string
	APIKey string

	// BaseURL and CustomModel configure the OpenAI-compatible backend.
	BaseURL     string
	CustomModel string
}

// Option configures a provider.
type Option func(*options)

type options struct {
	client  *http.Client
	baseURL string
}

func defaultOptions() options {
	return options{client: &http.Client{Timeout: DefaultTimeout}}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

// WithEndpoint overrides the Gemini API base URL.
func WithEndpoint(url string) Option {
	return func(o *options) {
		o.baseURL = strings.TrimRight(url, "/")
	}
}

// New returns the provider described by cfg.
func New(cfg Config, opts ...Option) (Provider, error) {
	if cfg.Model == "custom" {
		return NewCustom(cfg.BaseURL, cfg.APIKey, cfg.CustomModel, opts...)
	}
	return NewGemini(cfg.Model, cfg.APIKey, opts...)
}

// postJSON sends body to url and decodes a JSON response into out. Non-2xx
// responses are returned as *APIError with the message extracted by
// errMessage.
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("provider: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	req.Header = header.Clone()
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return fmt.Errorf("provider: read response: %w", err)
	}
	sprite.Logger().Debug("provider: response", "url", url, "status", resp.StatusCode,
		"bytes", len(data), "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errMessage(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("provider: decode response: %w", err)
	}
	return nil
}

// errMessage extracts {"error": {"message": ...}} as used by both backends.
func errMessage(data []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return strings.TrimSpace(string(data))
}

// download fetches an image by URL.
func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider: download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("provider: download: %w", err)
	}
	return data, nil
}
