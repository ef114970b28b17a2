// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"
	"time"

	"coachledger/internal/adapters/ledger"
)

// RecordsHandler serves read access to the synced ledger.
type RecordsHandler struct {
	deps Dependencies
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(deps Dependencies) *RecordsHandler {
	return &RecordsHandler{deps: deps}
}

// recordResponse is the wire shape of one ledger row.
type recordResponse struct {
	Fingerprint string             `json:"fingerprint"`
	Coach       string             `json:"coach"`
	Student     string             `json:"student"`
	SessionType string             `json:"session_type"`
	Week        int                `json:"week"`
	WeekMethod  string             `json:"week_method"`
	Date        string             `json:"date,omitempty"`
	Confidence  float64            `json:"confidence"`
	PerField    map[string]float64 `json:"per_field,omitempty"`
	DataSource  string             `json:"data_source"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type recordsResponse struct {
	Partition string           `json:"partition"`
	Count     int              `json:"count"`
	Records   []recordResponse `json:"records"`
}

type partitionsResponse struct {
	Partitions []string `json:"partitions"`
}

// HandleGetRecords handles GET /records requests. Without a partition
// query parameter it lists the known partitions instead.
func (h *RecordsHandler) HandleGetRecords(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_records"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	partition := strings.TrimSpace(r.URL.Query().Get("partition"))
	if partition == "" {
		writeJSON(w, http.StatusOK, partitionsResponse{Partitions: h.deps.Partitions(r.Context())})
		return
	}

	rows, err := h.deps.Records(r.Context(), partition)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ledger_error", WrapKind(op, ErrLedgerRead, err))
		return
	}

	out := recordsResponse{
		Partition: partition,
		Count:     len(rows),
		Records:   make([]recordResponse, len(rows)),
	}
	for i, row := range rows {
		out.Records[i] = toRecordResponse(row)
	}
	writeJSON(w, http.StatusOK, out)
}

func toRecordResponse(row ledger.Record) recordResponse {
	resp := recordResponse{
		Fingerprint: row.Fingerprint,
		Coach:       row.Coach,
		Student:     row.Student,
		SessionType: row.SessionType,
		Week:        row.Week,
		WeekMethod:  row.WeekMethod,
		Confidence:  row.Confidence,
		DataSource:  row.DataSource,
		UpdatedAt:   row.UpdatedAt,
	}
	if !row.Date.IsZero() {
		resp.Date = row.Date.Format("2006-01-02")
	}
	if len(row.PerField) > 0 {
		resp.PerField = make(map[string]float64, len(row.PerField))
		for field, conf := range row.PerField {
			resp.PerField[string(field)] = conf
		}
	}
	return resp
}
