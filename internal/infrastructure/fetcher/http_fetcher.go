package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"RealEstateCrawler/internal/ports"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Options tunes the fetcher. Zero values fall back to defaults, except Delay:
// zero disables the pause between requests.
type Options struct {
	Timeout   time.Duration
	Delay     time.Duration
	UserAgent string
}

// HTTPFetcher downloads one page per call and parses it with goquery.
// Successive calls are spaced by at least Options.Delay.
type HTTPFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

var _ ports.PageFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher wires an HTTP client; a nil client gets one with opts.Timeout.
func NewHTTPFetcher(client *http.Client, opts Options) *HTTPFetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	} else if client.Timeout <= 0 {
		client.Timeout = timeout
	}

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &HTTPFetcher{
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: userAgent,
	}
}

// Fetch makes a single GET attempt. Every failure is a *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: pageURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: pageURL, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", "vi-VN,vi;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: classify(err), URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Kind: KindHTTPStatus, URL: pageURL, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: classify(err), URL: pageURL, Err: fmt.Errorf("parse document: %w", err)}
	}
	doc.Url = resp.Request.URL

	return doc, nil
}

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
