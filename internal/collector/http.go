package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultUserAgent = "MikuBot/1.0"

// Option configures one of the HTTP-backed clients in this package.
type Option func(*httpFetcher)

func WithBaseURL(u string) Option {
	return func(f *httpFetcher) {
		if u != "" {
			f.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(f *httpFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(f *httpFetcher) {
		if d > 0 {
			// copy so a shared client such as http.DefaultClient is left alone
			c := *f.client
			c.Timeout = d
			f.client = &c
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(f *httpFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithRateLimit replaces the per-client limiter. Tests pass rate.Inf.
func WithRateLimit(l *rate.Limiter) Option {
	return func(f *httpFetcher) {
		if l != nil {
			f.limiter = l
		}
	}
}

type httpFetcher struct {
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

func newFetcher(baseURL string, every time.Duration, opts []Option) *httpFetcher {
	f := &httpFetcher{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 20 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(every), 1),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// get waits for the limiter, issues the request and returns the body of a
// 200 response. The caller closes it.
func (f *httpFetcher) get(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned status: %d", req.URL.Host, resp.StatusCode)
	}
	return resp.Body, nil
}

func (f *httpFetcher) getJSON(ctx context.Context, path string, out any) error {
	body, err := f.get(ctx, path)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
