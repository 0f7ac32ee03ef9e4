// Package signclient is the JSON-over-HTTP client of the remote sign
// recognition and translation service.
package signclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	endpointRecognize      = "/sign-to-text"
	endpointTranslate      = "/text-to-sign"
	endpointClearSequence  = "/clear-sequence"
	endpointDictionary     = "/isl-dictionary"
	endpointAddSign        = "/add-sign"
	endpointTrainingSample = "/record-training-data"
	endpointTrainModel     = "/train-model"

	// DefaultBaseURL is used when Config.BaseURL is empty.
	DefaultBaseURL = "http://localhost:5000/api"

	defaultTimeout  = 30 * time.Second
	maxResponseSize = 16 << 20
)

// Config contains client settings.
type Config struct {
	BaseURL string
	// Timeout is the transport-level timeout for one request. Callers
	// usually pass a tighter context deadline as well.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the remote service. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: base url scheme must be http or https, got %q", ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: base url has no host", ErrInvalidConfig)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    httpClient,
	}, nil
}

// BaseURL returns the normalized service address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// EncodeImage returns jpeg as a data URL, the image format the service expects.
func EncodeImage(jpeg []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
}

// Recognize submits one frame for sign recognition.
func (c *Client) Recognize(ctx context.Context, jpeg []byte) (*RecognizeResult, error) {
	var out RecognizeResult
	if err := c.do(ctx, http.MethodPost, endpointRecognize, recognizeRequest{Base64Image: EncodeImage(jpeg)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TranslateText converts text into an ordered list of sign tokens.
func (c *Client) TranslateText(ctx context.Context, text string) (*TranslateResult, error) {
	var out TranslateResult
	if err := c.do(ctx, http.MethodPost, endpointTranslate, translateRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearSequence resets the server-side gesture sequence.
func (c *Client) ClearSequence(ctx context.Context) error {
	var out StatusResult
	return c.do(ctx, http.MethodPost, endpointClearSequence, nil, &out)
}

// Dictionary lists every sign the service knows.
func (c *Client) Dictionary(ctx context.Context) ([]DictionaryEntry, error) {
	var out dictionaryResponse
	if err := c.do(ctx, http.MethodGet, endpointDictionary, nil, &out); err != nil {
		return nil, err
	}
	return out.Signs, nil
}

// AddSign registers a new sign image with the service.
func (c *Client) AddSign(ctx context.Context, name, imagePath string) (*StatusResult, error) {
	var out StatusResult
	if err := c.do(ctx, http.MethodPost, endpointAddSign, addSignRequest{Name: name, ImagePath: imagePath}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordTrainingSample uploads one labelled frame.
func (c *Client) RecordTrainingSample(ctx context.Context, jpeg []byte, gesture, sessionID string) (*StatusResult, error) {
	req := trainingSampleRequest{
		Base64Image: EncodeImage(jpeg),
		GestureName: gesture,
		SessionID:   sessionID,
	}

	var out StatusResult
	if err := c.do(ctx, http.MethodPost, endpointTrainingSample, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TrainModel asks the service to retrain on recorded samples.
func (c *Client) TrainModel(ctx context.Context) (*StatusResult, error) {
	var out StatusResult
	if err := c.do(ctx, http.MethodPost, endpointTrainModel, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs one JSON round trip. Any non-2xx status, or an "error" field in
// the body, becomes an *APIError.
func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("signclient: %s: marshal request: %w", endpoint, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("signclient: %s: create request: %w", endpoint, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("signclient: %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("signclient: %s: read response: %w", endpoint, err)
	}

	slog.Debug("signclient: request completed",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"latency", time.Since(start),
		"bytes", len(raw),
	)

	var errBody errorBody
	_ = json.Unmarshal(raw, &errBody)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errBody.Error
		if msg == "" {
			msg = genericMessage(endpoint)
		}
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg}
	}

	if errBody.Error != "" {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: errBody.Error}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("signclient: %s: decode response: %w", endpoint, err)
	}
	return nil
}
