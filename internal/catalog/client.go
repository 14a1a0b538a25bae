package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pbiembed/pbiembed/internal/buildinfo"
)

const (
	// DefaultBaseURL is the Power BI REST root for the signed-in user.
	DefaultBaseURL = "https://api.powerbi.com/v1.0/myorg"
	// ResourceID is the AAD audience every catalog call is authenticated against.
	ResourceID = "https://analysis.windows.net/powerbi/api"

	defaultTimeout   = 30 * time.Second
	maxErrorBodySize = 1 << 20 // 1 MiB
)

// Workspace is a Power BI group the user can see.
type Workspace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Report is the subset of the report resource needed for selection and embedding.
type Report struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	EmbedURL  string `json:"embedUrl"`
	WebURL    string `json:"webUrl"`
	DatasetID string `json:"datasetId"`
}

// TokenSource supplies the bearer token for catalog requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	tok := strings.TrimSpace(string(t))
	if tok == "" {
		return "", errors.New("missing access token")
	}
	return tok, nil
}

type Options struct {
	BaseURL string
	HTTP    *http.Client
	Tokens  TokenSource
	Logger  *slog.Logger
}

// Client reads workspaces and reports from the Power BI catalog. It keeps no
// state between calls: no cache, no retries.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     *slog.Logger
}

func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := opts.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: base,
		http:    httpClient,
		tokens:  opts.Tokens,
		log:     logger.With("component", "catalog"),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	const op = "list workspaces"
	endpoint, err := c.endpointFor()
	if err != nil {
		return nil, &RemoteFetchError{Op: op, Err: err}
	}

	var page struct {
		Value []Workspace `json:"value"`
	}
	if err := c.getJSON(ctx, op, endpoint, &page); err != nil {
		return nil, err
	}

	out := make([]Workspace, 0, len(page.Value))
	for _, ws := range page.Value {
		out = append(out, Workspace{ID: ws.ID, Name: ws.Name})
	}
	return out, nil
}

func (c *Client) ListReports(ctx context.Context, workspaceID string) ([]Report, error) {
	const op = "list reports"
	endpoint, err := c.endpointFor(workspaceID, "reports")
	if err != nil {
		return nil, &RemoteFetchError{Op: op, Err: err}
	}

	var page struct {
		Value []Report `json:"value"`
	}
	if err := c.getJSON(ctx, op, endpoint, &page); err != nil {
		return nil, err
	}

	out := make([]Report, 0, len(page.Value))
	for _, r := range page.Value {
		out = append(out, project(r))
	}
	return out, nil
}

func (c *Client) GetReport(ctx context.Context, workspaceID, reportID string) (Report, error) {
	const op = "get report"
	if strings.TrimSpace(reportID) == "" {
		return Report{}, &RemoteFetchError{Op: op, Err: errors.New("missing report id")}
	}
	endpoint, err := c.endpointFor(workspaceID, "reports", reportID)
	if err != nil {
		return Report{}, &RemoteFetchError{Op: op, Err: err}
	}

	var r Report
	if err := c.getJSON(ctx, op, endpoint, &r); err != nil {
		return Report{}, err
	}
	return project(r), nil
}

func project(r Report) Report {
	return Report{
		ID:        r.ID,
		EmbedURL:  r.EmbedURL,
		Name:      r.Name,
		WebURL:    r.WebURL,
		DatasetID: r.DatasetID,
	}
}

// endpointFor builds {base}/groups/{workspaceId}/{segments...}/ with a trailing
// slash, the shape the service documents for these collections.
func (c *Client) endpointFor(segments ...string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	raw := strings.TrimRight(u.Path, "/") + "/groups/"
	escaped := strings.TrimRight(u.EscapedPath(), "/") + "/groups/"
	for i, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" {
			if i == 0 {
				return "", errors.New("missing workspace id")
			}
			return "", errors.New("empty path segment")
		}
		raw += s + "/"
		escaped += url.PathEscape(s) + "/"
	}
	u.Path = raw
	u.RawPath = escaped
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

func (c *Client) getJSON(ctx context.Context, op, endpoint string, out any) error {
	if c.tokens == nil {
		return &RemoteFetchError{Op: op, URL: endpoint, Err: errors.New("no token source configured")}
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return &RemoteFetchError{Op: op, URL: endpoint, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &RemoteFetchError{Op: op, URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "*")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("catalog request failed", "op", op, "url", endpoint, "err", err)
		return &RemoteFetchError{Op: op, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("catalog request", "op", op, "url", endpoint, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return &RemoteFetchError{
			Op:         op,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Err:        errors.New(apiErrorMessage(resp.Status, body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RemoteFetchError{Op: op, URL: endpoint, StatusCode: resp.StatusCode, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &RemoteFetchError{Op: op, URL: endpoint, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// apiErrorMessage pulls error.code/error.message out of a Power BI error body,
// falling back to the HTTP status line.
func apiErrorMessage(status string, body []byte) string {
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		code := strings.TrimSpace(payload.Error.Code)
		msg := strings.TrimSpace(payload.Error.Message)
		switch {
		case code != "" && msg != "":
			return code + ": " + msg
		case code != "":
			return code
		case msg != "":
			return msg
		}
	}
	status = strings.TrimSpace(status)
	if status == "" {
		status = "unexpected status"
	}
	return status
}
