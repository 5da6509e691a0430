package proofs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const maxContextSize = 1 << 20

// HTTPLoader fetches context documents over HTTP(S) at a bounded rate
type HTTPLoader struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPLoader creates a loader allowing rps requests per second with the
// given burst. A nil client uses a client with a 10 second timeout.
func NewHTTPLoader(client *http.Client, rps float64, burst int) *HTTPLoader {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &HTTPLoader{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// LoadDocument implements DocumentLoader
func (l *HTTPLoader) LoadDocument(ctx context.Context, rawURL string) (*RemoteDocument, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, fmt.Errorf("%w: unsupported URL %q", ErrUnknownContext, rawURL)
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/ld+json, application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrUnknownContext, rawURL, resp.Status)
	}

	var doc any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxContextSize)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", rawURL, err)
	}

	return &RemoteDocument{
		DocumentURL: resp.Request.URL.String(),
		Document:    doc,
	}, nil
}
