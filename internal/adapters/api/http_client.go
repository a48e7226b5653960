// Package api talks to the agent server's HTTP endpoints: command listing,
// command execution and image upload.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/logging"
	"github.com/renato0307/conduit/internal/ports"
)

// DefaultTimeout bounds every request
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is kept
const maxErrorBody = 4096

// Client implements ports.CommandCatalog and ports.ImageUploader
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// NewClient creates a client for the server at baseURL. A nil httpClient
// uses one with DefaultTimeout.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		token:   token,
	}
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Body       string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body)
}

// List fetches the command catalog of a provider
func (c *Client) List(ctx context.Context, req ports.ListCommandsRequest) (*ports.CommandListing, error) {
	var listing ports.CommandListing
	if err := c.postJSON(ctx, "/api/commands/list", req, &listing); err != nil {
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}
	return &listing, nil
}

// Execute runs a command on the server
func (c *Client) Execute(ctx context.Context, req ports.ExecuteCommandRequest) (*domain.CommandResult, error) {
	var res domain.CommandResult
	if err := c.postJSON(ctx, "/api/commands/execute", req, &res); err != nil {
		return nil, fmt.Errorf("failed to execute command: %w", err)
	}
	return &res, nil
}

type uploadResponse struct {
	Images []domain.UploadedImage `json:"images"`
}

// Upload sends files as one multipart request under the "images" field
func (c *Client) Upload(ctx context.Context, projectName string, files []domain.Attachment) ([]domain.UploadedImage, error) {
	if len(files) == 0 {
		return nil, nil
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, f.Name))
		h.Set("Content-Type", f.MimeType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	path := "/api/projects/" + url.PathEscape(projectName) + "/upload-images"
	req, err := c.newRequest(ctx, path, &body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out uploadResponse
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUploadFailed, err)
	}
	logging.Logger.Info("Images uploaded", "project", projectName, "count", len(out.Images))
	return out.Images, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := c.newRequest(ctx, path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	logging.Logger.Debug("HTTP request", "path", req.URL.Path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Body: errorMessage(raw), StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage prefers the "error" field of a JSON error body
func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
