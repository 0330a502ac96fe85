package api

import (
	"net/http"
)

// DistancesHandler serves separation histograms.
type DistancesHandler struct {
	deps Dependencies
}

// NewDistancesHandler creates a new distances handler.
func NewDistancesHandler(deps Dependencies) *DistancesHandler {
	return &DistancesHandler{deps: deps}
}

// HandleGetDistances handles GET /api/distances requests. Besides the shared
// cursor/window_ms/viewport parameters it accepts source=pair (default,
// pairwise within the viewport) or source=live (viewport positions against
// the cached live feed).
func (h *DistancesHandler) HandleGetDistances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	q, err := parseAnalyticsQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	switch source := r.URL.Query().Get("source"); source {
	case "", "pair":
		writeJSON(w, http.StatusOK, h.deps.PairDistances(r.Context(), q))
	case "live":
		writeJSON(w, http.StatusOK, h.deps.LiveDistances(r.Context(), q))
	default:
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
	}
}
