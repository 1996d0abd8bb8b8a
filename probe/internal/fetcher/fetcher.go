// Package fetcher implements the HTTP acquisition path (stealth level 0):
// a rate-limited, SSRF-guarded GET whose body is parsed for declarative
// shadow roots. No browser, no JS.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hazyhaar/pierce/horosafe"
	"github.com/hazyhaar/pierce/selection"
)

// ErrStatus is returned for 4xx/5xx responses.
var ErrStatus = errors.New("fetcher: unexpected status")

// Result is the outcome of an HTTP fetch.
type Result struct {
	URL         string
	FinalURL    string // after redirects
	Body        []byte
	Hash        string // SHA-256 hex of Body
	StatusCode  int
	ContentType string
	Analysis    Analysis
}

// Fetcher performs HTTP GETs.
type Fetcher struct {
	client       *http.Client
	ua           string
	logger       *slog.Logger
	limiter      *rate.Limiter
	maxBody      int64
	allowPrivate bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets a custom HTTP client. Its CheckRedirect is replaced so
// redirect targets go through the same URL guard.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.ua = ua
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithRateLimit allows rps requests per second with the given burst.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(f *Fetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxBody caps the body read. Default: horosafe.MaxResponseBody.
func WithMaxBody(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// WithAllowPrivate disables the SSRF guard, for local development and tests.
func WithAllowPrivate(allow bool) Option {
	return func(f *Fetcher) { f.allowPrivate = allow }
}

// New creates a Fetcher: 30s timeout, 2 req/s with burst 4, 10 MiB body cap.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		ua:      "Mozilla/5.0 (compatible; pierce/1.0)",
		logger:  slog.Default(),
		limiter: rate.NewLimiter(2, 4),
		maxBody: horosafe.MaxResponseBody,
	}
	for _, o := range opts {
		o(f)
	}
	client := *f.client
	client.CheckRedirect = f.checkRedirect
	f.client = &client
	return f
}

func (f *Fetcher) guard(rawURL string) error {
	if f.allowPrivate {
		return nil
	}
	return horosafe.ValidateURL(rawURL)
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("fetcher: stopped after 10 redirects")
	}
	return f.guard(req.URL.String())
}

// Fetch GETs pageURL and analyses the body.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	if err := f.guard(pageURL); err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetcher: rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetcher: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetcher: do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrStatus, pageURL, resp.StatusCode)
	}

	body, err := horosafe.LimitedReadAll(resp.Body, f.maxBody)
	if err != nil {
		return nil, fmt.Errorf("fetcher: read body: %w", err)
	}

	res := &Result{
		URL:         pageURL,
		FinalURL:    resp.Request.URL.String(),
		Body:        body,
		Hash:        selection.HashHTML(body),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Analysis:    Analyze(body),
	}

	f.logger.Debug("fetcher: fetched",
		"url", pageURL, "status", resp.StatusCode, "size", len(body),
		"sufficient", res.Analysis.Sufficient(),
		"custom_elements", res.Analysis.CustomElements,
		"shadow_templates", res.Analysis.ShadowTemplates)

	return res, nil
}
