// Package enhance wraps the external image enhancement API. The service
// accepts an image plus a natural-language instruction and responds with a
// URL where the generated result can be downloaded.
package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"enhancer/internal/domain"
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client talks to the enhancement service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Enhancer is the contract the executor depends on.
type Enhancer interface {
	// Enhance submits the image and prompt and returns the result URL.
	Enhance(ctx context.Context, image []byte, filename, prompt string) (string, error)
	// Fetch downloads the generated result bytes.
	Fetch(ctx context.Context, resultURL string) ([]byte, error)
}

// NewClient builds a Client from options, applying defaults for the HTTP
// client and base URL.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
	}
}

var _ Enhancer = (*Client)(nil)

type enhanceResp struct {
	ImageURL string `json:"image_url"`
	Message  string `json:"message"`
}

// Enhance posts the source image and prompt to the /enhance endpoint.
func (c *Client) Enhance(ctx context.Context, image []byte, filename, prompt string) (string, error) {
	if c == nil {
		return "", errors.New("enhance: client not configured")
	}
	if c.token == "" {
		return "", errors.New("enhance: API key is missing")
	}
	if len(image) == 0 {
		return "", errors.New("enhance: image bytes required")
	}
	if filename = strings.TrimSpace(filename); filename == "" {
		filename = "image"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("enhance: build form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("enhance: write image: %w", err)
	}
	if err := mw.WriteField("prompt", prompt); err != nil {
		return "", fmt.Errorf("enhance: write prompt: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("enhance: finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/enhance", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("enhance: %w: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	var out enhanceResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return "", fmt.Errorf("enhance: %w: http %d", domain.ErrProviderFailure, resp.StatusCode)
		}
		return "", fmt.Errorf("enhance: decode response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if out.Message != "" {
			return "", fmt.Errorf("enhance: %w: %s", domain.ErrProviderFailure, out.Message)
		}
		return "", fmt.Errorf("enhance: %w: http %d", domain.ErrProviderFailure, resp.StatusCode)
	}
	if strings.TrimSpace(out.ImageURL) == "" {
		return "", fmt.Errorf("enhance: %w: missing image url", domain.ErrProviderFailure)
	}
	return out.ImageURL, nil
}

// Fetch downloads the result content from the URL the service returned.
func (c *Client) Fetch(ctx context.Context, resultURL string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("enhance: client not configured")
	}
	if strings.TrimSpace(resultURL) == "" {
		return nil, errors.New("enhance: result url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("enhance: %w: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("enhance: %w: fetch http %d", domain.ErrProviderFailure, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("enhance: read result: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("enhance: %w: empty result", domain.ErrProviderFailure)
	}
	return data, nil
}
