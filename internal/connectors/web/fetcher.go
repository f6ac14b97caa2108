// Package web fetches web pages as HTML documents.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// Defaults for Fetcher.
const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxBytes = 5 << 20
	UserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Ensure Fetcher implements the interface.
var _ driven.WebFetcher = (*Fetcher)(nil)

// Fetcher downloads pages with a browser User-Agent.
type Fetcher struct {
	client   *resty.Client
	maxBytes int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the whole-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client.SetTimeout(d) }
}

// WithMaxBytes caps the body size.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) { f.maxBytes = n }
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	client := resty.New()
	client.SetTimeout(DefaultTimeout)
	client.SetHeader("User-Agent", UserAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	f := &Fetcher{client: client, maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads rawURL and returns it as a text/html document.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.Document, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an http(s) URL", domain.ErrInvalidInput, rawURL)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(u.String())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: fetch %s: %w", classify(err), u, err)
	}
	body := resp.RawBody()
	defer body.Close()

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound || code == http.StatusGone:
		return nil, fmt.Errorf("%w: %s returned HTTP %d", domain.ErrNotFound, u, code)
	case code == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s returned HTTP %d", domain.ErrServiceQuotaExceeded, u, code)
	case code >= 500:
		return nil, fmt.Errorf("%w: %s returned HTTP %d", domain.ErrServiceUnavailable, u, code)
	case code < 200 || code >= 300:
		return nil, fmt.Errorf("%w: %s returned HTTP %d", domain.ErrInvalidInput, u, code)
	}

	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrServiceUnavailable, u, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", domain.ErrInvalidInput, u, f.maxBytes)
	}

	mimeHint := "text/html"
	if ct := resp.Header().Get("Content-Type"); ct != "" {
		mimeHint = ct
	}
	return &domain.Document{
		SourceID: u.String(),
		Filename: pageName(u),
		MIMEHint: mimeHint,
		Content:  data,
	}, nil
}

func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.ErrServiceUnavailable
	}
	return domain.ErrInvalidInput
}

// PageName is the Filename Fetch gives rawURL, or rawURL itself when it
// does not parse.
func PageName(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return rawURL
	}
	return pageName(u)
}

// pageName turns a URL into a readable file name, e.g.
// "example.com_news_article.html".
func pageName(u *url.URL) string {
	name := u.Host + strings.TrimSuffix(u.Path, "/")
	name = strings.Trim(unsafeName.ReplaceAllString(name, "_"), "_")
	if len(name) > 120 {
		name = name[:120]
	}
	if !strings.HasSuffix(name, ".html") && !strings.HasSuffix(name, ".htm") {
		name += ".html"
	}
	return name
}
