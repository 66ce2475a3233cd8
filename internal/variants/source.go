package variants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

var (
	// ErrSourceUnavailable reports a transport failure or non-2xx status
	// from the variants endpoint.
	ErrSourceUnavailable = errors.New("variant source unavailable")
	// ErrMalformedResponse reports a body that does not match the
	// {"variants": ["<url>", ...]} schema.
	ErrMalformedResponse = errors.New("malformed variants response")
)

const defaultMaxBytes = 1 << 20

// List is the ordered set of variant URLs for one request.
type List []string

// Source fetches variant lists from a fixed endpoint.
type Source struct {
	endpoint string
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// Option customises a Source.
type Option func(*Source)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) {
		if c != nil {
			s.client = c
		}
	}
}

// WithMaxBytes caps the accepted body size.
func WithMaxBytes(n int64) Option {
	return func(s *Source) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func NewSource(endpoint string, logger *slog.Logger, opts ...Option) *Source {
	s := &Source{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		maxBytes: defaultMaxBytes,
		logger:   logger.With(slog.String("component", "variants")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Endpoint returns the URL the source reads from.
func (s *Source) Endpoint() string {
	return s.endpoint
}

// Fetch retrieves and decodes the current variant list.
func (s *Source) Fetch(ctx context.Context) (List, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("Variants request failed",
			slog.String("endpoint", s.endpoint),
			slog.Any("err", err))
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		s.logger.Warn("Variants endpoint returned error status",
			slog.String("endpoint", s.endpoint),
			slog.Int("status", res.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrSourceUnavailable, res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrSourceUnavailable, err)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedResponse, s.maxBytes)
	}

	list, err := Decode(body)
	if err != nil {
		s.logger.Warn("Variants response rejected",
			slog.String("endpoint", s.endpoint),
			slog.Any("err", err))
		return nil, err
	}

	s.logger.Debug("Fetched variants",
		slog.String("endpoint", s.endpoint),
		slog.Int("count", len(list)))

	return list, nil
}

// Decode validates a variants document and returns its list.
func Decode(body []byte) (List, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	raw, ok := doc["variants"]
	if !ok {
		return nil, fmt.Errorf("%w: missing \"variants\" field", ErrMalformedResponse)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, fmt.Errorf("%w: \"variants\" is not an array", ErrMalformedResponse)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: \"variants\" is empty", ErrMalformedResponse)
	}

	list := make(List, 0, len(items))
	for i, item := range items {
		var u *string
		if err := json.Unmarshal(item, &u); err != nil || u == nil {
			return nil, fmt.Errorf("%w: variants[%d] is not a string", ErrMalformedResponse, i)
		}
		list = append(list, *u)
	}

	return list, nil
}
