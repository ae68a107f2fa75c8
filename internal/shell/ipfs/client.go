package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/dalproject/dald/internal/core/bundle"
)

// =============================================================================
// Client
// =============================================================================

// Client talks to one IPFS node API for uploads and a list of equivalent
// gateways for downloads. One call is one attempt; retry policy belongs to
// the caller.
type Client struct {
	apiURL     string
	gateways   []string
	authToken  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config holds content-store client configuration.
type Config struct {
	// APIURL is the IPFS node API base URL, e.g. "http://127.0.0.1:5001".
	APIURL string
	// Gateways are equivalent read endpoints tried in order on download.
	Gateways []string
	// AuthToken is an optional bearer token for hosted pinning endpoints.
	AuthToken string
	Timeout   time.Duration
}

// NewClient creates a new content-store client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiURL:    strings.TrimRight(cfg.APIURL, "/"),
		gateways:  cfg.Gateways,
		authToken: cfg.AuthToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Gateways returns the configured read endpoints.
func (c *Client) Gateways() []string {
	out := make([]string, len(c.gateways))
	copy(out, c.gateways)
	return out
}

// =============================================================================
// Upload
// =============================================================================

// addResult is one NDJSON line of the node's add response.
type addResult struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Upload sends a whole bundle as one wrapped directory and returns the root
// content hash covering all files. Exactly one attempt per call.
func (c *Client) Upload(ctx context.Context, files []bundle.FileEntry) (string, error) {
	endpoint := c.apiURL + "/api/v0/add?wrap-with-directory=true&cid-version=1&pin=true"

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range files {
		part, err := writer.CreatePart(filePartHeader(f))
		if err != nil {
			return "", NewClientError("Upload", endpoint, "build multipart body", err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return "", NewClientError("Upload", endpoint, "build multipart body", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", NewClientError("Upload", endpoint, "build multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", NewClientError("Upload", endpoint, "create request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", NewClientError("Upload", endpoint, err.Error(), ErrUnavailable)
	}
	defer resp.Body.Close()

	if err := classifyStatus("Upload", endpoint, resp); err != nil {
		return "", err
	}

	root, err := parseAddResponse(resp.Body)
	if err != nil {
		return "", NewClientError("Upload", endpoint, err.Error(), ErrUnavailable)
	}

	c.logger.Debug("uploaded bundle", "root_hash", root, "files", len(files))
	return root, nil
}

// filePartHeader builds the multipart header for one bundle file. The
// escaped relative path in the filename is what gives the upload directory
// semantics on the node side.
func filePartHeader(f bundle.FileEntry) textproto.MIMEHeader {
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, url.QueryEscape(f.Path)))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	return h
}

// parseAddResponse reads the NDJSON add stream and returns the wrapping
// directory hash (the entry with an empty name).
func parseAddResponse(r io.Reader) (string, error) {
	var root string
	dec := json.NewDecoder(r)
	for {
		var entry addResult
		if err := dec.Decode(&entry); err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("decode add response: %w", err)
		}
		if entry.Name == "" {
			root = entry.Hash
		}
	}
	if root == "" {
		return "", fmt.Errorf("add response contained no root directory hash")
	}
	return root, nil
}

// =============================================================================
// Download
// =============================================================================

// Download fetches content by hash, trying each configured gateway in order
// until one succeeds. Auth failures abort immediately rather than moving on:
// they indicate bad credentials, not a flaky endpoint.
func (c *Client) Download(ctx context.Context, hash string) ([]byte, error) {
	if len(c.gateways) == 0 {
		return nil, NewClientError("Download", "", "no gateways configured", ErrUnavailable)
	}

	notFound := 0
	var lastErr error
	for _, gw := range c.gateways {
		endpoint := strings.TrimRight(gw, "/") + "/ipfs/" + hash

		data, err := c.downloadOne(ctx, endpoint)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, NewClientError("Download", endpoint, "canceled", ctx.Err())
		}
		if isAuthErr(err) {
			return nil, err
		}
		if isNotFoundErr(err) {
			notFound++
		}
		c.logger.Debug("gateway failed, trying next", "endpoint", endpoint, "error", err)
		lastErr = err
	}

	if notFound == len(c.gateways) {
		return nil, NewClientError("Download", "", fmt.Sprintf("hash %s unknown to all gateways", hash), ErrNotFound)
	}
	return nil, lastErr
}

func (c *Client) downloadOne(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewClientError("Download", endpoint, "create request", err)
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewClientError("Download", endpoint, err.Error(), ErrUnavailable)
	}
	defer resp.Body.Close()

	if err := classifyStatus("Download", endpoint, resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewClientError("Download", endpoint, err.Error(), ErrUnavailable)
	}
	return data, nil
}

// =============================================================================
// Helpers
// =============================================================================

func (c *Client) setAuth(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

// classifyStatus maps HTTP status codes onto the three caller-visible
// failure classes.
func classifyStatus(op, endpoint string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewClientError(op, endpoint, fmt.Sprintf("status %d", resp.StatusCode), ErrAuthFailed)
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return NewClientError(op, endpoint, fmt.Sprintf("status %d", resp.StatusCode), ErrTooLarge)
	case resp.StatusCode == http.StatusNotFound:
		return NewClientError(op, endpoint, fmt.Sprintf("status %d", resp.StatusCode), ErrNotFound)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NewClientError(op, endpoint, fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), ErrUnavailable)
	}
}

func isAuthErr(err error) bool {
	return errors.Is(err, ErrAuthFailed)
}

func isNotFoundErr(err error) bool {
	return errors.Is(err, ErrNotFound)
}
