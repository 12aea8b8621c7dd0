// Package gemini is a client for the Google Generative Language
// generateContent endpoint.
package gemini

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

	"github.com/inkwell/inkwell/internal/httpclient"
)

// Sentinel errors for generation calls.
var (
	// ErrInvalidCredentials is returned for a missing or placeholder API key
	// and for 401/403 responses.
	ErrInvalidCredentials = errors.New("gemini: invalid API credentials")
	// ErrMalformedResponse is returned when no candidate text is present.
	ErrMalformedResponse = errors.New("gemini: unexpected response format")
	// ErrEmptyPrompt is returned before any call for an empty prompt.
	ErrEmptyPrompt = errors.New("gemini: empty prompt")
)

// APIError is a non-success response from the API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("gemini: HTTP %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// Config configures a Client.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	// MaxAttempts bounds calls for 429/5xx and transport errors. Minimum 1.
	MaxAttempts int
}

// Client calls generateContent for a single configured model.
type Client struct {
	cfg  Config
	http *http.Client
	wait func(ctx context.Context, d time.Duration) error
}

// New returns a Client. A nil httpClient gets a 60s default.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = httpclient.New(60 * time.Second)
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient, wait: sleepContext}
}

// Model returns the configured model id.
func (c *Client) Model() string {
	return c.cfg.Model
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt and returns the first candidate's text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !validKey(c.cfg.APIKey) {
		return "", ErrInvalidCredentials
	}
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     c.cfg.Temperature,
			MaxOutputTokens: c.cfg.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.wait(ctx, httpclient.RetryDelay(attempt-1)); err != nil {
				return "", err
			}
		}

		text, retry, err := c.do(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return "", lastErr
}

func (c *Client) do(ctx context.Context, body []byte) (string, bool, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", true, fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", true, fmt.Errorf("gemini: read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", false, fmt.Errorf("%w: %s", ErrInvalidCredentials, apiError(resp.StatusCode, data).Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", httpclient.Retryable(resp.StatusCode), apiError(resp.StatusCode, data)
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(out.Candidates) == 0 || out.Candidates[0].Content == nil ||
		len(out.Candidates[0].Content.Parts) == 0 || out.Candidates[0].Content.Parts[0].Text == nil ||
		*out.Candidates[0].Content.Parts[0].Text == "" {
		return "", false, ErrMalformedResponse
	}
	return *out.Candidates[0].Content.Parts[0].Text, false, nil
}

func apiError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}
	var parsed errorResponse
	if json.Unmarshal(body, &parsed) == nil {
		e.Status = parsed.Error.Status
		e.Message = parsed.Error.Message
	}
	return e
}

// validKey rejects empty keys and template placeholders like "your_api_key".
func validKey(key string) bool {
	return key != "" && !strings.Contains(key, "your_")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
