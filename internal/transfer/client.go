// Package transfer implements the network capabilities of a job: fetching the source,
// uploading page artifacts and sending the terminal callback.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spherical/slide-converter/internal/domain"
	"github.com/spherical/slide-converter/internal/observability"
)

// Client is the shared HTTP client behind Downloader, Uploader and Notifier
type Client struct {
	httpClient     *http.Client
	retry          RetryConfig
	callbackMethod string
	logger         *observability.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets the retry policy
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithCallbackMethod sets the HTTP method of the terminal callback (GET or POST)
func WithCallbackMethod(method string) Option {
	return func(c *Client) { c.callbackMethod = strings.ToUpper(method) }
}

// NewClient creates a transfer client with the given per-request timeout
func NewClient(timeout time.Duration, logger *observability.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: timeout},
		retry:          DefaultRetryConfig(),
		callbackMethod: http.MethodGet,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Download fetches url into dstPath
func (c *Client) Download(ctx context.Context, url, dstPath string) error {
	resp, err := c.retryWithBackoff(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	f, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", dstPath, err)
	}

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", dstPath, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	c.logger.Debug().Str("url", url).Int("bytes", int(n)).Msg("Source downloaded")
	return nil
}

// Upload sends one page as multipart/form-data with fields current, total, slideText and file
func (c *Client) Upload(ctx context.Context, url string, page domain.PageUpload) error {
	body, contentType, err := encodePage(page)
	if err != nil {
		return err
	}

	resp, err := c.retryWithBackoff(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// Notify sends the terminal JSON callback
func (c *Client) Notify(ctx context.Context, url string, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	resp, err := c.retryWithBackoff(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, c.callbackMethod, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

func encodePage(page domain.PageUpload) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"current", strconv.Itoa(page.Current)},
		{"total", strconv.Itoa(page.Total)},
		{"slideText", page.SlideText},
	}
	for _, f := range fields {
		if err := writer.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	file, err := os.Open(page.ImagePath)
	if err != nil {
		return nil, "", fmt.Errorf("open page image: %w", err)
	}
	defer file.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(page.ImagePath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}
