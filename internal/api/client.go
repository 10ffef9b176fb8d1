// Package api is a client for the Tick time-tracking REST API (v2).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/tick-tracker/internal/model"
)

// UserAgent identifies this client. The API rejects requests without one.
const UserAgent = "tick-cli/1.0 (+https://github.com/Tiliavir/tick-tracker)"

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("missing API key")

// Error is a non-2xx API response.
type Error struct {
	StatusCode int
	// Status is the HTTP status line, e.g. "422 Unprocessable Entity".
	Status string
	// Detail is the response body, best effort.
	Detail string
}

func (e *Error) Error() string {
	status := strings.TrimSpace(e.Status)
	if e.Detail != "" {
		return fmt.Sprintf("Request failed (%s): %s", status, e.Detail)
	}
	return fmt.Sprintf("Request failed (%s).", status)
}

// Client talks to one account's API root.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type options struct {
	base    *http.Client
	timeout time.Duration
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient sets the HTTP client whose transport carries the requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.base = c }
}

// WithTimeout sets the per-request timeout. Default 30s.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// New creates a client for baseURL authenticating with apiKey. The key is
// sent as "Authorization: Token token=<key>" by an oauth2 transport with a
// static token.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	o := options{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	var base http.RoundTripper = http.DefaultTransport
	if o.base != nil && o.base.Transport != nil {
		base = o.base.Transport
	}

	tok := &oauth2.Token{AccessToken: "token=" + apiKey, TokenType: "Token"}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: &oauth2.Transport{Source: oauth2.StaticTokenSource(tok), Base: base},
			Timeout:   o.timeout,
		},
	}, nil
}

// do sends a request and returns the raw response text of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	text, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{StatusCode: resp.StatusCode, Status: resp.Status, Detail: detail(text)}
	}
	return text, nil
}

// detail renders an error body: JSON strings verbatim, JSON objects and
// arrays compacted, anything unparsable as raw text.
func detail(text []byte) string {
	trimmed := bytes.TrimSpace(text)
	if len(trimmed) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return string(text)
	}
	switch val := v.(type) {
	case string:
		return val
	case map[string]any, []any:
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return string(trimmed)
		}
		return buf.String()
	default:
		return ""
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	text, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(text)) == 0 {
		return nil
	}
	if err := json.Unmarshal(text, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// EntriesByDate lists the entries booked on one YYYY-MM-DD date.
func (c *Client) EntriesByDate(ctx context.Context, date string) ([]model.Entry, error) {
	return c.EntriesInRange(ctx, date, date)
}

// EntriesInRange lists entries with from <= date <= to.
func (c *Client) EntriesInRange(ctx context.Context, from, to string) ([]model.Entry, error) {
	path := fmt.Sprintf("/entries.json?start_date=%s&end_date=%s", url.QueryEscape(from), url.QueryEscape(to))
	entries := []model.Entry{}
	if err := c.getJSON(ctx, path, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.Entry{}
	}
	return entries, nil
}

// CreateEntry creates an entry and returns it as stored by the server.
func (c *Client) CreateEntry(ctx context.Context, p model.EntryPayload) (model.Entry, error) {
	text, err := c.do(ctx, http.MethodPost, "/entries.json", p)
	if err != nil {
		return model.Entry{}, err
	}
	return decodeEntry(text, "Create")
}

// UpdateEntry replaces the editable fields of entry id.
func (c *Client) UpdateEntry(ctx context.Context, id int64, p model.EntryPayload) (model.Entry, error) {
	text, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/entries/%d.json", id), p)
	if err != nil {
		return model.Entry{}, err
	}
	return decodeEntry(text, "Update")
}

// DeleteEntry deletes entry id.
func (c *Client) DeleteEntry(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/entries/%d.json", id), nil)
	return err
}

// Projects lists the account's projects.
func (c *Client) Projects(ctx context.Context) ([]model.Project, error) {
	var out []model.Project
	if err := c.getJSON(ctx, "/projects.json", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Tasks lists the account's tasks.
func (c *Client) Tasks(ctx context.Context) ([]model.Task, error) {
	var out []model.Task
	if err := c.getJSON(ctx, "/tasks.json", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Clients lists the account's clients.
func (c *Client) Clients(ctx context.Context) ([]model.Client, error) {
	var out []model.Client
	if err := c.getJSON(ctx, "/clients.json", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeEntry requires a JSON object carrying an id.
func decodeEntry(text []byte, op string) (model.Entry, error) {
	unexpected := fmt.Errorf("%s failed: unexpected response from server.", op)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(text, &fields); err != nil || fields == nil {
		return model.Entry{}, unexpected
	}
	if _, ok := fields["id"]; !ok {
		return model.Entry{}, unexpected
	}
	var e model.Entry
	if err := json.Unmarshal(text, &e); err != nil {
		return model.Entry{}, fmt.Errorf("decoding entry: %w", err)
	}
	return e, nil
}
