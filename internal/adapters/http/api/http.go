// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aerodrift/constellation/internal/domain/analytics"
	"github.com/aerodrift/constellation/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Records returns the current aggregate set, oldest hour first.
	Records(ctx context.Context) []model.Record

	// Summarize answers a windowed analytics query against the current set.
	Summarize(ctx context.Context, q analytics.Query) analytics.Summary

	// PairDistances histograms pairwise separations inside the viewport.
	PairDistances(ctx context.Context, q analytics.Query) analytics.Histogram

	// LiveDistances histograms separations between the viewport's latest
	// constellation positions and the cached live feed.
	LiveDistances(ctx context.Context, q analytics.Query) analytics.Histogram
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	recordsHandler   *RecordsHandler
	summaryHandler   *SummaryHandler
	distancesHandler *DistancesHandler
	proxyHandler     *ProxyHandler
}

// NewServer creates a new API server with all handlers. upstreamBaseURL is
// the snapshot feed the proxy endpoint forwards to.
func NewServer(deps Dependencies, statsProvider StatsProvider, upstreamBaseURL string) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(statsProvider),
		statsHandler:     NewStatsHandler(statsProvider),
		recordsHandler:   NewRecordsHandler(deps),
		summaryHandler:   NewSummaryHandler(deps),
		distancesHandler: NewDistancesHandler(deps),
		proxyHandler:     NewProxyHandler(upstreamBaseURL),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/records", MetricsMiddleware(s.recordsHandler.HandleGetRecords, "records"))
	mux.HandleFunc("/api/summary", MetricsMiddleware(s.summaryHandler.HandleGetSummary, "summary"))
	mux.HandleFunc("/api/distances", MetricsMiddleware(s.distancesHandler.HandleGetDistances, "distances"))
	mux.HandleFunc("/proxy", MetricsMiddleware(s.proxyHandler.HandleProxy, "proxy"))
	mux.HandleFunc("/metrics", MetricsMiddleware(HandleMetrics, "metrics"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
