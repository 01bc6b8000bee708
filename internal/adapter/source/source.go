// Package source opens dashboard input data by location: a local file path or
// an http(s) URL.
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// Opener resolves source locations to readable streams.
type Opener struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpener creates an Opener whose HTTP fetches are bounded by timeout.
func NewOpener(timeout time.Duration, logger *slog.Logger) *Opener {
	return &Opener{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Open returns a reader for location. The caller must close it.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if isRemote(location) {
		return o.fetch(ctx, location)
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	o.logger.Debug("source opened", "location", location)
	return f, nil
}

func (o *Opener) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s: status %d: %s", url, resp.StatusCode, body)
	}

	o.logger.Debug("source fetched", "location", url, "content_length", resp.ContentLength)
	return resp.Body, nil
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
