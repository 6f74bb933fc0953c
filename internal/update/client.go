package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"releasecheck/internal/debug"
	apperrors "releasecheck/internal/errors"
)

// Default configuration values.
const (
	DefaultAPIBaseURL = "https://api.github.com"
	DefaultUserAgent  = "releasecheck/dev"
	DefaultTimeout    = 10 * time.Second

	// bodyPrefixLimit caps how much of an error response body is kept.
	bodyPrefixLimit = 100
)

// RepoInfo contains the repository metadata fields the checker reports.
type RepoInfo struct {
	FullName        string `json:"full_name"`
	Description     string `json:"description"`
	Private         bool   `json:"private"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	DefaultBranch   string `json:"default_branch"`
	HTMLURL         string `json:"html_url"`
}

// ReleaseInfo contains information about a GitHub release.
// PublishedAt is kept as the text the API returned.
type ReleaseInfo struct {
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	Body        string `json:"body"`
	HTMLURL     string `json:"html_url"`
	PublishedAt string `json:"published_at"`
	Prerelease  bool   `json:"prerelease"`
	Draft       bool   `json:"draft"`
}

// TransportError reports a request that failed before any response arrived,
// including timeouts.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("network error: GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError reports a response whose status was not 200.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	BodyPrefix string
}

func (e *HTTPStatusError) Error() string {
	if e.BodyPrefix == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.BodyPrefix)
}

// ParseError reports a 200 response whose body was not valid JSON.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid JSON from %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrMissingTagName marks a latest release whose tag_name is empty or null.
var ErrMissingTagName = errors.New("release has no tag_name")

// IsNotFound reports whether err carries an HTTP 404 status.
func IsNotFound(err error) bool {
	var statusErr *HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// FailureKind classifies the client error inside err as a transport, HTTP
// status, or parse failure. Anything else is CodeUnknown.
func FailureKind(err error) apperrors.Code {
	var (
		transportErr *TransportError
		statusErr    *HTTPStatusError
		parseErr     *ParseError
	)
	switch {
	case errors.As(err, &transportErr):
		return apperrors.CodeTransportFailed
	case errors.As(err, &statusErr):
		return apperrors.CodeHTTPStatus
	case errors.As(err, &parseErr):
		return apperrors.CodeParseFailed
	default:
		return apperrors.CodeUnknown
	}
}

// ReleaseSource is the read-only release API used by the Checker.
type ReleaseSource interface {
	FetchRepository(ctx context.Context, owner, repo string) (*RepoInfo, error)
	ListReleases(ctx context.Context, owner, repo string) ([]ReleaseInfo, error)
	FetchLatestRelease(ctx context.Context, owner, repo string) (*ReleaseInfo, error)
}

// Client talks to the GitHub releases API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithUserAgent sets the identifying User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a release API client. Each request uses its own
// connection; nothing is pooled or cached.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultAPIBaseURL,
		userAgent:  DefaultUserAgent,
		httpClient: newHTTPClient(DefaultTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newHTTPClient returns a client that opens a new connection for every request.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &http.Transport{Proxy: http.ProxyFromEnvironment, DisableKeepAlives: true},
	}
}

// FetchRepository fetches repository metadata.
func (c *Client) FetchRepository(ctx context.Context, owner, repo string) (*RepoInfo, error) {
	var info RepoInfo
	if err := c.getJSON(ctx, fmt.Sprintf("%s/repos/%s/%s", c.baseURL, owner, repo), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListReleases lists releases in API order (newest first). The result may be empty.
func (c *Client) ListReleases(ctx context.Context, owner, repo string) ([]ReleaseInfo, error) {
	var releases []ReleaseInfo
	if err := c.getJSON(ctx, fmt.Sprintf("%s/repos/%s/%s/releases", c.baseURL, owner, repo), &releases); err != nil {
		return nil, err
	}
	if releases == nil {
		releases = []ReleaseInfo{}
	}
	return releases, nil
}

// FetchLatestRelease fetches the release GitHub designates as latest.
// A repository without one yields an HTTPStatusError with status 404.
func (c *Client) FetchLatestRelease(ctx context.Context, owner, repo string) (*ReleaseInfo, error) {
	var release ReleaseInfo
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, owner, repo)
	if err := c.getJSON(ctx, url, &release); err != nil {
		return nil, err
	}
	if strings.TrimSpace(release.TagName) == "" {
		return nil, &ParseError{URL: url, Err: ErrMissingTagName}
	}
	return &release, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		debug.L().Debug("request failed", zap.String("url", url), zap.Error(err))
		return &TransportError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	debug.L().Debug("request finished",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return &HTTPStatusError{URL: url, StatusCode: resp.StatusCode, BodyPrefix: prefix(string(body), bodyPrefixLimit)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ParseError{URL: url, Err: err}
	}
	return nil
}

// prefix returns at most n runes of s.
func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
