package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/export"
	"github.com/dvloznov/finance-dashboard/internal/jobs"
	"github.com/dvloznov/finance-dashboard/internal/txview"
)

// ExportHandler serves file downloads and enqueues asynchronous exports.
type ExportHandler struct {
	exporter     jobs.Exporter
	publisher    jobs.Publisher
	destinations map[jobs.Destination]bool
	log          zerolog.Logger
}

// NewExportHandler creates a new export handler. destinations lists the
// job destinations that have a sink configured.
func NewExportHandler(exporter jobs.Exporter, publisher jobs.Publisher, destinations []jobs.Destination, log zerolog.Logger) *ExportHandler {
	enabled := make(map[jobs.Destination]bool, len(destinations))
	for _, d := range destinations {
		enabled[d] = true
	}
	return &ExportHandler{
		exporter:     exporter,
		publisher:    publisher,
		destinations: enabled,
		log:          log,
	}
}

// Download handles GET /api/export/{entity}?format=csv|xlsx. Transactions
// accept the search, type and sort parameters of the transactions view.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request, entityName string) {
	entity, err := export.ParseEntity(entityName)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := export.Request{Entity: entity, Format: format}
	if entity == export.EntityTransactions {
		state, ok := parseViewState(w, r)
		if !ok {
			return
		}
		req.View = &state
	}

	tw := &trackingWriter{ResponseWriter: w}
	res, err := h.exporter.Export(r.Context(), req, &export.HTTPSink{W: tw})
	if err != nil {
		h.log.Error().Err(err).Str("entity", string(entity)).Msg("Export download failed")
		if tw.wroteHeader {
			return
		}
		if export.IsRequestError(err) {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to export "+string(entity))
		return
	}

	h.log.Debug().
		Str("entity", string(entity)).
		Str("filename", res.Filename).
		Int("rows", res.Rows).
		Msg("Export downloaded")
}

type enqueueRequest struct {
	Entity      string `json:"entity"`
	Format      string `json:"format"`
	Destination string `json:"destination"`
	Search      string `json:"search"`
	Type        string `json:"type"`
	Sort        string `json:"sort"`
}

// Enqueue handles POST /api/exports
func (h *ExportHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entity, err := export.ParseEntity(req.Entity)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	destination, err := jobs.ParseDestination(req.Destination)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.destinations[destination] {
		middleware.WriteError(w, http.StatusBadRequest, "Destination "+string(destination)+" is not configured")
		return
	}

	job := &jobs.ExportJob{
		JobID:       uuid.New().String(),
		Status:      jobs.JobStatusPending,
		Entity:      string(entity),
		Format:      string(format),
		Destination: destination,
	}
	if entity == export.EntityTransactions {
		state, err := txview.ParseState(req.Search, req.Type, req.Sort)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		job.View = &state
	}

	// Workers own the job once it is published; only these copies are read afterwards.
	jobID := job.JobID

	if err := h.publisher.PublishExport(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue export job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue export job")
		return
	}

	h.log.Info().
		Str("job_id", jobID).
		Str("entity", string(entity)).
		Str("destination", string(destination)).
		Msg("Export job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(jobs.JobStatusPending),
	})
}

// trackingWriter records whether the response has been started, so a
// failed export is only answered with an error while that is still possible.
type trackingWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *trackingWriter) WriteHeader(code int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}
