// Package seed fetches the initial document used when the persistence slot
// is empty.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// maxSeedBytes bounds the seed body read from a remote source.
const maxSeedBytes = 10 << 20

var ErrEmptySource = errors.New("seed source is empty")

// Fetcher reads the seed from an http(s) URL or a local file path.
// Concurrent Fetch calls share one underlying read.
type Fetcher struct {
	source string
	client *http.Client
	logger *slog.Logger
	group  singleflight.Group
}

type Option func(*Fetcher)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

func NewFetcher(source string, opts ...Option) *Fetcher {
	f := &Fetcher{
		source: strings.TrimSpace(source),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = newHTTPClientWithPooling()
	}
	return f
}

func (f *Fetcher) Source() string { return f.source }

// Fetch returns the raw seed bytes. They are not parsed here so the store
// can persist them verbatim.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	if f.source == "" {
		return nil, ErrEmptySource
	}
	v, err, shared := f.group.Do(f.source, func() (any, error) {
		return f.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	data := v.([]byte)
	f.logger.InfoContext(ctx, "Seed document fetched",
		"source", f.source,
		"bytes", len(data),
		"shared", shared)
	return append([]byte(nil), data...), nil
}

func (f *Fetcher) fetch(ctx context.Context) ([]byte, error) {
	if isRemote(f.source) {
		return f.fetchHTTP(ctx)
	}
	data, err := os.ReadFile(f.source)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return data, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.source, nil)
	if err != nil {
		return nil, fmt.Errorf("build seed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch seed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch seed: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read seed body: %w", err)
	}
	return data, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}
}
