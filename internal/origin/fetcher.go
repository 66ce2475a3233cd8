package origin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/angeloszaimis/variant-edge/internal/circuitbreaker"
)

// ErrOriginUnavailable reports that the selected variant page could not be fetched.
var ErrOriginUnavailable = errors.New("origin unavailable")

// Fetcher issues GET requests against variant URLs.
type Fetcher struct {
	client   *http.Client
	breakers *circuitbreaker.Registry
	logger   *slog.Logger
}

type Option func(*Fetcher)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithBreakers enables per-host circuit breaking.
func WithBreakers(r *circuitbreaker.Registry) Option {
	return func(f *Fetcher) {
		f.breakers = r
	}
}

func NewFetcher(logger *slog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger.With(slog.String("component", "origin")),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs rawURL and returns the live response. The caller owns the body.
// Any status the origin answers with is passed back; only transport
// failures are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid variant url %q", ErrOriginUnavailable, rawURL)
	}

	var cb *circuitbreaker.CircuitBreaker
	if f.breakers != nil {
		cb = f.breakers.GetBreaker(u.Host)
		if !cb.Allow() {
			f.logger.Warn("Origin circuit open, failing fast", slog.String("host", u.Host))
			return nil, fmt.Errorf("%w: %s: %w", ErrOriginUnavailable, u.Host, circuitbreaker.ErrOpen)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrOriginUnavailable, err)
	}

	res, err := f.client.Do(req)
	if err != nil {
		if cb != nil {
			// the caller gave up; the host is not to blame
			if ctx.Err() != nil {
				cb.Release()
			} else {
				cb.RecordFailure()
			}
		}
		f.logger.Warn("Origin request failed",
			slog.String("url", rawURL),
			slog.Any("err", err))
		return nil, fmt.Errorf("%w: %v", ErrOriginUnavailable, err)
	}

	if cb != nil {
		if res.StatusCode >= http.StatusInternalServerError {
			cb.RecordFailure()
		} else {
			cb.RecordSuccess()
		}
	}

	return res, nil
}
