// Package upstream retrieves hourly telemetry snapshots and the optional
// live external-position feed.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aerodrift/constellation/pkg/logger"
	"github.com/aerodrift/constellation/pkg/metrics"
)

// Default fetcher configuration constants.
const (
	defaultTimeout     = 15 * time.Second
	defaultConcurrency = 8
	defaultUserAgent   = "constellation-fetcher/1.0"
	maxBodyBytes       = 32 << 20
)

// Snapshot is one hourly upstream response. Hour counts backwards from now
// (0 = most recent). Body and Err are mutually exclusive in practice; a
// failed fetch carries its error and contributes zero records downstream.
type Snapshot struct {
	Hour int
	Body string
	Err  error
}

// Fetcher retrieves hourly snapshots from `{base}/{HH}.json`.
type Fetcher struct {
	baseURL     string
	client      *http.Client
	timeout     time.Duration
	concurrency int
	userAgent   string
	logger      logger.Logger
}

// Option applies a configuration option to the Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request timeout. A timeout cancels only its own
// request, never the batch.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithConcurrency bounds the number of in-flight snapshot requests.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithLogger sets a custom logger for the fetcher.
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher constructs a Fetcher for the given snapshot base URL.
func NewFetcher(baseURL string, opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL:     baseURL,
		client:      &http.Client{},
		timeout:     defaultTimeout,
		concurrency: defaultConcurrency,
		userAgent:   defaultUserAgent,
		logger:      logger.Get().Named("fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll issues all requested hours concurrently, bounded by the
// configured concurrency, and returns snapshots in hour-ascending order
// regardless of completion order. Each fetch writes only to its own slot,
// so no lock is needed; failures are isolated per snapshot.
func (f *Fetcher) FetchAll(ctx context.Context, hours int) []Snapshot {
	out := make([]Snapshot, hours)
	sem := make(chan struct{}, f.concurrency)
	done := make(chan int)

	for hour := 0; hour < hours; hour++ {
		go func(h int) {
			defer func() { done <- h }()
			sem <- struct{}{}
			defer func() { <-sem }()
			out[h] = f.fetchOne(ctx, h)
		}(hour)
	}
	for i := 0; i < hours; i++ {
		<-done
	}

	for _, s := range out {
		if s.Err != nil {
			f.logger.Warn(ctx, "snapshot fetch failed",
				logger.Int("hour", s.Hour), logger.Error(s.Err))
		}
	}
	return out
}

func (f *Fetcher) fetchOne(ctx context.Context, hour int) Snapshot {
	start := time.Now()
	defer func() {
		metrics.RecordSnapshotFetchDuration(float64(time.Since(start).Milliseconds()))
	}()

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/%02d.json", f.baseURL, hour)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		metrics.RecordSnapshotFailed()
		return Snapshot{Hour: hour, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.RecordSnapshotFailed()
		metrics.RecordErrorByComponent("fetcher", "transport")
		return Snapshot{Hour: hour, Err: fmt.Errorf("fetch hour %02d: %w", hour, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordSnapshotFailed()
		metrics.RecordErrorByComponent("fetcher", "status")
		return Snapshot{Hour: hour, Err: fmt.Errorf("fetch hour %02d: %w (%d)", hour, ErrUpstreamStatus, resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordSnapshotFailed()
		metrics.RecordErrorByComponent("fetcher", "body")
		return Snapshot{Hour: hour, Err: fmt.Errorf("read hour %02d: %w", hour, err)}
	}

	metrics.RecordSnapshotFetched()
	return Snapshot{Hour: hour, Body: string(body)}
}
