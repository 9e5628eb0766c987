package ocr

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"energypassport/internal/model"
)

// ErrNotConfigured no OCR endpoint was set
var ErrNotConfigured = errors.New("ocr endpoint not configured")

const (
	defaultTimeout = 2 * time.Minute
	recognizePath  = "/recognize"
)

// Options OCR service connection settings
type Options struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Retries  int
}

// HTTPClient posts documents to an OCR service and decodes its tables
type HTTPClient struct {
	http *resty.Client
}

// NewHTTPClient returns ErrNotConfigured when the endpoint is empty
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		return nil, ErrNotConfigured
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout).
		SetRetryCount(opts.Retries).
		SetHeader("Accept", "application/json")
	if opts.APIKey != "" {
		c.SetAuthToken(opts.APIKey)
	}
	return &HTTPClient{http: c}, nil
}

type errorBody struct {
	Error string `json:"error"`
}

// Recognize uploads the file as multipart form field "file"
func (c *HTTPClient) Recognize(ctx context.Context, path string) (*model.OCRResult, error) {
	var out model.OCRResult
	var failure errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetFile("file", path).
		SetFormData(map[string]string{"filename": filepath.Base(path)}).
		SetResult(&out).
		SetError(&failure).
		Post(recognizePath)
	if err != nil {
		return nil, fmt.Errorf("failed to call ocr service: %w", err)
	}
	if resp.IsError() {
		msg := failure.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return nil, fmt.Errorf("ocr service returned %d: %s", resp.StatusCode(), msg)
	}
	return &out, nil
}
