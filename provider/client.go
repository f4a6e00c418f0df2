package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-strava-proxy/internal/config"
	apperrors "github.com/jrsteele09/go-strava-proxy/internal/errors"
	"github.com/jrsteele09/go-strava-proxy/internal/metrics"
	"github.com/jrsteele09/go-strava-proxy/token"
)

const (
	defaultTimeout   = 15 * time.Second
	maxErrorBodySize = 4 << 10
)

// Client issues resource API calls on behalf of a session's Credential.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func NewClient(cfg config.FetchConfig, options ...ClientOption) *Client {
	c := &Client{baseURL: cfg.GetAPIBaseURL()}
	for _, opt := range options {
		opt(c)
	}

	c.baseURL = strings.TrimRight(c.baseURL, "/")
	if c.httpClient == nil {
		timeout := cfg.GetAPITimeout()
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	return c
}

// NewRequest builds a GET against the API base URL
func (c *Client) NewRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("[provider NewRequest] %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Call sends req with cred's access token.
//
// A 401 means the provider no longer accepts the token, whatever its local expiry says,
// and is reported as ErrUnauthorized. Any other non-2xx is an *UpstreamError. Nothing is retried.
// On success the caller owns the response body.
func (c *Client) Call(req *http.Request, cred *token.Credential) (*http.Response, error) {
	if cred == nil || cred.AccessToken == "" {
		return nil, fmt.Errorf("[provider Call] %w", apperrors.ErrUnauthorized)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)

	endpoint := endpointLabel(req.URL.Path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamCall(endpoint, 0)
		return nil, fmt.Errorf("[provider Call] %s %s: %w", req.Method, req.URL.Path, err)
	}
	metrics.RecordUpstreamCall(endpoint, resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		drain(resp)
		return nil, fmt.Errorf("[provider Call] %s %s: %w", req.Method, req.URL.Path, apperrors.ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		drain(resp)
		return nil, fmt.Errorf("[provider Call] %s %s: %w", req.Method, req.URL.Path, &apperrors.UpstreamError{Status: resp.StatusCode, Body: string(body)})
	}
	return resp, nil
}

// GetJSON calls path and decodes the JSON body into out. Numbers decode as json.Number.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, cred *token.Credential, out any) error {
	req, err := c.NewRequest(ctx, path, query)
	if err != nil {
		return err
	}
	resp, err := c.Call(req, cred)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("[provider GetJSON] decoding %s: %w", path, err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
	_ = resp.Body.Close()
}

// endpointLabel keeps metric cardinality low: /api/v3/activities/123 -> activities/:id
func endpointLabel(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	label := make([]string, 0, len(segments))
	for _, s := range segments {
		switch {
		case s == "api" || (len(s) > 1 && s[0] == 'v' && isDigits(s[1:])):
			continue
		case isDigits(s):
			label = append(label, ":id")
		default:
			label = append(label, s)
		}
	}
	return strings.Join(label, "/")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
