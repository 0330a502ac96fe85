package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/aerodrift/constellation/internal/domain/decode"
	"github.com/aerodrift/constellation/internal/domain/enumerate"
	"github.com/aerodrift/constellation/internal/domain/model"
	"github.com/aerodrift/constellation/internal/domain/normalize"
	"github.com/aerodrift/constellation/pkg/logger"
	"github.com/aerodrift/constellation/pkg/metrics"
)

// Velocity and heading aliases in the live feed, post key canonicalization.
var (
	velocityKeys = []string{"velocity", "speed", "gs", "groundspeed"}
	headingKeys  = []string{"heading", "track", "course", "bearing"}
)

// LiveClient fetches the external live-position feed and caches the latest
// batch. The feed body goes through the same lenient decode / enumerate /
// normalize ladder as snapshots, since its shape is equally undocumented.
type LiveClient struct {
	url        string
	client     *http.Client
	timeout    time.Duration
	normalizer *normalize.Normalizer
	logger     logger.Logger

	mu     sync.RWMutex
	cached []model.Position
}

// LiveOption applies a configuration option to the LiveClient.
type LiveOption func(*LiveClient)

// WithLiveTimeout sets the per-request timeout.
func WithLiveTimeout(d time.Duration) LiveOption {
	return func(c *LiveClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLiveHTTPClient overrides the HTTP client, mainly for tests.
func WithLiveHTTPClient(hc *http.Client) LiveOption {
	return func(c *LiveClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewLiveClient constructs a client for the given feed URL.
func NewLiveClient(url string, opts ...LiveOption) *LiveClient {
	c := &LiveClient{
		url:        url,
		client:     &http.Client{},
		timeout:    defaultTimeout,
		normalizer: normalize.New(),
		logger:     logger.Get().Named("livefeed"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh fetches the feed and replaces the cached positions. On any
// failure the previous cache is kept.
func (c *LiveClient) Refresh(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.url, nil)
	if err != nil {
		metrics.RecordLiveFeedError()
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordLiveFeedError()
		return fmt.Errorf("fetch live feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordLiveFeedError()
		return fmt.Errorf("live feed: %w (%d)", ErrUpstreamStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordLiveFeedError()
		return fmt.Errorf("read live feed: %w", err)
	}

	positions, err := c.parse(string(body))
	if err != nil {
		metrics.RecordLiveFeedError()
		return err
	}

	c.mu.Lock()
	c.cached = positions
	c.mu.Unlock()
	metrics.UpdateLiveFeedPositions(len(positions))
	c.logger.Debug(ctx, "live feed refreshed", logger.Int("positions", len(positions)))
	return nil
}

// Positions returns the latest cached batch. The returned slice must not
// be mutated.
func (c *LiveClient) Positions() []model.Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cached
}

func (c *LiveClient) parse(body string) ([]model.Position, error) {
	v, err := decode.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode live feed: %w", err)
	}

	var out []model.Position
	for i, cand := range enumerate.Enumerate(v) {
		rec, ok := c.normalizer.Normalize(cand, 0, i)
		if !ok {
			continue
		}
		p := model.Position{ID: rec.ID, Lat: rec.Lat, Lon: rec.Lon, AltM: rec.AltM}
		flat := normalize.Flatten(cand.Fields)
		if vel, ok := probeFlat(flat, velocityKeys); ok {
			p.Velocity = &vel
		}
		if hdg, ok := probeFlat(flat, headingKeys); ok {
			p.Heading = &hdg
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, ErrFeedShape
	}
	return out, nil
}

func probeFlat(flat map[string]any, keys []string) (float64, bool) {
	for _, k := range keys {
		if raw, present := flat[k]; present && raw != nil {
			if num, ok := normalize.CoerceFloat(raw); ok {
				return num, true
			}
		}
	}
	return 0, false
}
