package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"releasecheck/internal/debug"
)

const (
	DefaultRawBaseURL = "https://raw.githubusercontent.com"
	DefaultRawBranch  = "main"
	DefaultRawPath    = "README.md"

	previewLimit = 100
)

// Download describes a fetched file.
type Download struct {
	URL        string
	StatusCode int
	// Size is the content length in characters.
	Size    int
	Preview string
}

// RawContentURL builds the raw-content URL for a file on a branch.
func RawContentURL(baseURL, owner, repo, branch, path string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultRawBaseURL
	}
	if strings.TrimSpace(branch) == "" {
		branch = DefaultRawBranch
	}
	if strings.TrimSpace(path) == "" {
		path = DefaultRawPath
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s", base, owner, repo, branch, strings.TrimLeft(path, "/"))
}

// Fetcher downloads a single file over HTTP.
type Fetcher struct {
	userAgent  string
	httpClient *http.Client
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetcherHTTPClient sets a custom HTTP client for the fetcher.
func WithFetcherHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.httpClient = client
	}
}

// WithFetcherTimeout sets the request timeout.
func WithFetcherTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if timeout > 0 && f.httpClient != nil {
			f.httpClient.Timeout = timeout
		}
	}
}

// WithFetcherUserAgent sets the identifying User-Agent header.
func WithFetcherUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if strings.TrimSpace(ua) != "" {
			f.userAgent = ua
		}
	}
}

// NewFetcher creates a fetcher with the same transport settings as the API
// client.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		userAgent:  DefaultUserAgent,
		httpClient: newHTTPClient(DefaultTimeout),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads url and summarizes its content. Non-200 responses return an
// HTTPStatusError; connection failures return a TransportError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	debug.L().Debug("download finished",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{URL: url, StatusCode: resp.StatusCode, BodyPrefix: prefix(string(body), bodyPrefixLimit)}
	}

	text := string(body)
	return &Download{
		URL:        url,
		StatusCode: resp.StatusCode,
		Size:       utf8.RuneCountInString(text),
		Preview:    strings.ReplaceAll(prefix(text, previewLimit), "\n", " "),
	}, nil
}
