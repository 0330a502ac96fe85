// Package service provides the core business service that implements
// the dependencies required by the HTTP API: it orchestrates snapshot
// fetching, normalization, deduplication and the analytics engine swap.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aerodrift/constellation/internal/adapters/archive"
	"github.com/aerodrift/constellation/internal/adapters/export"
	"github.com/aerodrift/constellation/internal/adapters/upstream"
	"github.com/aerodrift/constellation/internal/domain/analytics"
	"github.com/aerodrift/constellation/internal/domain/decode"
	"github.com/aerodrift/constellation/internal/domain/dedupe"
	"github.com/aerodrift/constellation/internal/domain/enumerate"
	"github.com/aerodrift/constellation/internal/domain/model"
	"github.com/aerodrift/constellation/internal/domain/normalize"
	"github.com/aerodrift/constellation/pkg/logger"
	"github.com/aerodrift/constellation/pkg/metrics"
)

// Service implements the API dependencies for the constellation system.
type Service struct {
	mu sync.RWMutex

	// Core components
	fetcher    *upstream.Fetcher
	live       *upstream.LiveClient
	normalizer *normalize.Normalizer
	store      *archive.Store

	// Configuration
	upstreamBaseURL string
	hours           int
	fetchTimeout    time.Duration
	maxConcurrency  int
	refreshMaxAge   time.Duration
	outputDir       string
	liveFeedURL     string

	// State. engine is replaced wholesale on every successful refresh;
	// readers never observe a partially-built set.
	engine    *analytics.Engine
	lastBuild time.Time
	lastRunID string
	started   bool
	stopCh    chan struct{}

	// Latest-wins: a newly requested refresh cancels the in-flight one.
	refreshCancel context.CancelFunc

	wg sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithHours sets how many hourly snapshots each refresh fetches.
func WithHours(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.hours = n
		}
	}
}

// WithFetchTimeout bounds each snapshot request.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithMaxConcurrency bounds simultaneous snapshot fetches.
func WithMaxConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrency = n
		}
	}
}

// WithRefreshMaxAge sets how stale the aggregate set may get before the
// background loop rebuilds it.
func WithRefreshMaxAge(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshMaxAge = d
		}
	}
}

// WithOutputDir sets the directory receiving interchange files after each
// refresh. Empty disables file export.
func WithOutputDir(dir string) Option {
	return func(s *Service) {
		s.outputDir = dir
	}
}

// WithArchive attaches a snapshot archive. A nil store disables archiving.
func WithArchive(store *archive.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithLiveFeedURL enables the external live-position feed.
func WithLiveFeedURL(url string) Option {
	return func(s *Service) {
		s.liveFeedURL = url
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service for the given snapshot feed.
func New(upstreamBaseURL string, opts ...Option) *Service {
	s := &Service{
		upstreamBaseURL: upstreamBaseURL,
		hours:           24,
		fetchTimeout:    15 * time.Second,
		maxConcurrency:  8,
		refreshMaxAge:   10 * time.Minute,
		normalizer:      normalize.New(),
		engine:          analytics.New(nil),
		stopCh:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components, runs the first refresh and
// launches the background refresh loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.fetcher = upstream.NewFetcher(s.upstreamBaseURL,
		upstream.WithTimeout(s.fetchTimeout),
		upstream.WithConcurrency(s.maxConcurrency),
	)
	if s.liveFeedURL != "" {
		s.live = upstream.NewLiveClient(s.liveFeedURL,
			upstream.WithLiveTimeout(s.fetchTimeout),
		)
	}

	s.started = true
	s.mu.Unlock()

	s.logger.Info(ctx, "starting constellation service",
		logger.Int("hours", s.hours),
		logger.Int("concurrency", s.maxConcurrency),
	)

	if err := s.Refresh(ctx); err != nil {
		// A failed first pass is survivable; the loop retries and the API
		// serves the empty set with explicit statuses meanwhile.
		s.logger.Warn(ctx, "initial refresh failed", logger.Error(err))
	}

	s.wg.Add(1)
	go s.refreshLoop(ctx)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	if s.refreshCancel != nil {
		s.refreshCancel()
	}
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info(context.Background(), "constellation service stopped")
}

// refreshLoop rebuilds the aggregate set whenever it passes its max age.
func (s *Service) refreshLoop(ctx context.Context) {
	defer s.wg.Done()

	interval := s.refreshMaxAge / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			stale := time.Since(s.lastBuild) >= s.refreshMaxAge
			s.mu.RUnlock()
			if !stale {
				continue
			}
			if err := s.Refresh(ctx); err != nil {
				s.logger.Warn(ctx, "background refresh failed", logger.Error(err))
			}
		}
	}
}

// Refresh runs one full pipeline pass: fetch, decode, enumerate, normalize,
// deduplicate, then atomically swap the analytics engine. A refresh started
// while another is in flight cancels the older one; the newest request wins.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.refreshCancel != nil {
		s.refreshCancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.refreshCancel = cancel
	s.mu.Unlock()
	defer cancel()

	runID := uuid.NewString()
	start := time.Now()
	s.logger.Info(runCtx, "refresh started", logger.String("run_id", runID))

	snapshots := s.fetcher.FetchAll(runCtx, s.hours)
	if err := runCtx.Err(); err != nil {
		return err
	}

	var (
		batches    = make([][]model.Record, 0, len(snapshots))
		normalized int
		dropped    int
	)
	for _, snap := range snapshots {
		if snap.Err != nil {
			batches = append(batches, nil)
			continue
		}
		batch := s.normalizeSnapshot(runCtx, snap)
		normalized += len(batch)
		batches = append(batches, batch)
	}

	records := dedupe.Aggregate(runCtx, batches)
	dropped = normalized - len(records)
	if err := runCtx.Err(); err != nil {
		return err
	}

	metrics.RecordRecordsNormalized(normalized)
	metrics.RecordDuplicatesDropped(dropped)

	s.mu.Lock()
	s.engine = analytics.New(records)
	s.lastBuild = time.Now()
	s.lastRunID = runID
	s.mu.Unlock()

	metrics.UpdateAggregateSize(len(records))
	metrics.RecordAggregateRebuild(time.Since(start))

	if s.outputDir != "" {
		if _, _, err := export.WriteFiles(s.outputDir, records); err != nil {
			s.logger.Warn(runCtx, "interchange export failed", logger.Error(err))
		}
	}
	if err := s.store.StoreRun(runCtx, runID, records); err != nil {
		s.logger.Warn(runCtx, "archive write failed", logger.Error(err))
	}
	if s.live != nil {
		if err := s.live.Refresh(runCtx); err != nil {
			s.logger.Warn(runCtx, "live feed refresh failed", logger.Error(err))
		}
	}

	s.logger.Info(runCtx, "refresh finished",
		logger.String("run_id", runID),
		logger.Int("records", len(records)),
		logger.Int("duplicates", dropped),
		logger.Float64("seconds", time.Since(start).Seconds()),
	)
	return nil
}

// normalizeSnapshot turns one raw hourly body into its record batch.
// Undecodable bodies cost one failure counter and nothing else.
func (s *Service) normalizeSnapshot(ctx context.Context, snap upstream.Snapshot) []model.Record {
	v, err := decode.Decode(snap.Body)
	if err != nil {
		metrics.RecordDecodeFailure()
		s.logger.Warn(ctx, "snapshot undecodable",
			logger.Int("hour", snap.Hour),
			logger.Error(err),
		)
		return nil
	}

	candidates := enumerate.Enumerate(v)
	batch := make([]model.Record, 0, len(candidates))
	droppedHere := 0
	for i, cand := range candidates {
		rec, ok := s.normalizer.Normalize(cand, snap.Hour, i)
		if !ok {
			droppedHere++
			continue
		}
		batch = append(batch, rec)
	}
	if droppedHere > 0 {
		metrics.RecordRecordsDropped(droppedHere)
	}
	return batch
}

// currentEngine snapshots the engine pointer; the engine itself is immutable.
func (s *Service) currentEngine() *analytics.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Records returns the current aggregate set, oldest hour first.
func (s *Service) Records(_ context.Context) []model.Record {
	return s.currentEngine().Records()
}

// Summarize answers a windowed analytics query against the current set.
func (s *Service) Summarize(_ context.Context, q analytics.Query) analytics.Summary {
	start := time.Now()
	out := s.currentEngine().Summarize(q)
	metrics.RecordAnalyticsQueryDuration(float64(time.Since(start).Milliseconds()))
	return out
}

// PairDistances histograms pairwise separations inside the viewport.
func (s *Service) PairDistances(_ context.Context, q analytics.Query) analytics.Histogram {
	start := time.Now()
	out := s.currentEngine().PairDistances(q)
	metrics.RecordAnalyticsQueryDuration(float64(time.Since(start).Milliseconds()))
	return out
}

// LiveDistances histograms separations between the viewport's latest
// constellation positions and the cached live feed.
func (s *Service) LiveDistances(_ context.Context, q analytics.Query) analytics.Histogram {
	s.mu.RLock()
	live := s.live
	s.mu.RUnlock()

	var others []model.Position
	if live != nil {
		others = live.Positions()
	}
	return s.currentEngine().CrossDistances(q, others)
}

// LivePositions exposes the cached live feed batch.
func (s *Service) LivePositions() []model.Position {
	s.mu.RLock()
	live := s.live
	s.mu.RUnlock()
	if live == nil {
		return nil
	}
	return live.Positions()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
		"hours":   s.hours,
		"records": s.engine.Len(),
	}
	if !s.lastBuild.IsZero() {
		stats["last_build"] = s.lastBuild.UTC().Format(time.RFC3339)
		stats["last_run_id"] = s.lastRunID
	}
	if s.live != nil {
		stats["live_positions"] = len(s.live.Positions())
	}
	return stats
}
