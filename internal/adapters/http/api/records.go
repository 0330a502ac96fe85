package api

import (
	"net/http"

	"github.com/aerodrift/constellation/internal/adapters/export"
	"github.com/aerodrift/constellation/internal/domain/model"
)

// RecordsHandler serves the aggregate set in interchange form.
type RecordsHandler struct {
	deps Dependencies
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(deps Dependencies) *RecordsHandler {
	return &RecordsHandler{deps: deps}
}

// HandleGetRecords handles GET /api/records?format=ndjson|csv&id=X requests.
// Format defaults to ndjson; id filters to a single object's track.
func (h *RecordsHandler) HandleGetRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}

	records := h.deps.Records(r.Context())
	if id := r.URL.Query().Get("id"); id != "" {
		filtered := make([]model.Record, 0, len(records))
		for _, rec := range records {
			if rec.ID == id {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "ndjson":
		w.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
		_ = export.WriteNDJSON(w, records)
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_ = export.WriteCSV(w, records)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
	}
}
