// Package api implements the REST client for the FarmBridge backend. It
// covers the notification snapshot, the mark-read call, and the
// subscription/payment endpoints. Authentication itself is out of scope;
// the client only attaches whatever bearer credential the provider hands
// it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/farmbridge/notify/internal/conf"
	"github.com/farmbridge/notify/internal/errors"
	"github.com/farmbridge/notify/internal/logging"
)

// ErrNoCredential is returned when an operation requiring a bearer
// credential runs without one. Callers degrade to an empty state rather
// than surfacing this to the user.
var ErrNoCredential = errors.Newf("no session credential available").
	Component("api").
	Category(errors.CategoryState).
	Build()

// CredentialProvider supplies the bearer credential for requests. An empty
// string means no active session.
type CredentialProvider interface {
	BearerToken() string
}

// StaticCredential is a CredentialProvider holding a fixed token.
type StaticCredential string

// BearerToken returns the static token.
func (s StaticCredential) BearerToken() string { return string(s) }

// Client talks to the FarmBridge REST backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialProvider
	logger     *slog.Logger
}

// NewClient creates a backend client from settings. The credential
// provider defaults to the token configured in settings; tests and
// embedders can swap it with SetCredentialProvider.
func NewClient(settings *conf.Settings) *Client {
	return &Client{
		baseURL: settings.Backend.BaseURL,
		httpClient: &http.Client{
			Timeout: settings.Backend.Timeout,
		},
		creds:  &settings.Backend,
		logger: logging.ForService("api"),
	}
}

// SetCredentialProvider replaces the credential source.
func (c *Client) SetCredentialProvider(creds CredentialProvider) {
	c.creds = creds
}

// HasCredential reports whether a bearer credential is currently
// available.
func (c *Client) HasCredential() bool {
	return c.creds != nil && c.creds.BearerToken() != ""
}

// newRequest builds a request against the backend with JSON and bearer
// headers set.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	token := ""
	if c.creds != nil {
		token = c.creds.BearerToken()
	}
	if token == "" {
		return nil, ErrNoCredential
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.New(err).
				Component("api").
				Category(errors.CategoryJSONParsing).
				Context("operation", "encode_request").
				Build()
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// do executes the request and decodes a JSON response into out when the
// status is 2xx. Non-2xx responses and non-JSON content types are logged
// with status and body for diagnosis and returned as typed errors.
func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("method", req.Method).
			Context("path", req.URL.Path).
			Build()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("operation", "read_response").
			Build()
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Error("backend request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"body", truncate(string(body), 512),
			"duration_ms", time.Since(start).Milliseconds())
		return errors.Newf("unexpected status %d", resp.StatusCode).
			Component("api").
			Category(errors.CategoryHTTP).
			Context("status", resp.StatusCode).
			Context("path", req.URL.Path).
			Build()
	}

	if out == nil {
		return nil
	}

	// A misrouted endpoint answers 200 with an HTML error page; never
	// parse that speculatively.
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		c.logger.Error("backend returned non-JSON response",
			"method", req.Method,
			"path", req.URL.Path,
			"content_type", resp.Header.Get("Content-Type"),
			"body", truncate(string(body), 512))
		return errors.Newf("expected JSON response, got %q", mediaType).
			Component("api").
			Category(errors.CategoryJSONParsing).
			Context("path", req.URL.Path).
			Build()
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryJSONParsing).
			Context("path", req.URL.Path).
			Build()
	}

	return nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
