package handlers

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/export"
	"github.com/dvloznov/finance-dashboard/internal/jobs"
	"github.com/dvloznov/finance-dashboard/internal/txview"
)

// defaultRefreshTimeout bounds a manual refresh started by the API.
const defaultRefreshTimeout = 2 * time.Minute

// TransactionFeed is the transactions cache the dashboard reads from.
type TransactionFeed interface {
	Snapshot() txview.Snapshot
	Refresh(ctx context.Context) error
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	feed           TransactionFeed
	refreshTimeout time.Duration
	now            func() time.Time
	log            zerolog.Logger
	wg             sync.WaitGroup
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(feed TransactionFeed, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		feed:           feed,
		refreshTimeout: defaultRefreshTimeout,
		now:            time.Now,
		log:            log,
	}
}

type transactionsResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
	Stats        txview.Stats         `json:"stats"`
	State        txview.ViewState     `json:"state"`
	Loading      bool                 `json:"loading"`
	Refreshing   bool                 `json:"refreshing"`
	UpdatedAt    *time.Time           `json:"updated_at"`
	Error        string               `json:"error,omitempty"`
}

// ListTransactions handles GET /api/transactions?search=&type=&sort=
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	state, ok := parseViewState(w, r)
	if !ok {
		return
	}

	snap := h.feed.Snapshot()
	view := txview.Derive(snap.Transactions, state, h.now())

	resp := transactionsResponse{
		Transactions: view.Transactions,
		Stats:        view.Stats,
		State:        view.State,
		Loading:      snap.Loading,
		Refreshing:   snap.Refreshing,
	}
	if !snap.UpdatedAt.IsZero() {
		resp.UpdatedAt = &snap.UpdatedAt
	}
	if snap.Err != nil {
		resp.Error = "Failed to load transactions"
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
}

// Refresh handles POST /api/transactions/refresh. The refresh runs in the
// background; its outcome shows up in the next ListTransactions response.
func (h *TransactionsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.refreshTimeout)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer cancel()
		if err := h.feed.Refresh(ctx); err != nil {
			h.log.Error().Err(err).Msg("Manual transaction refresh failed")
		}
	}()

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "refreshing",
	})
}

// Wait blocks until background refreshes started by Refresh have finished.
func (h *TransactionsHandler) Wait() {
	h.wg.Wait()
}

// RecordsHandler serves the account and investment lists.
type RecordsHandler struct {
	source export.Source
	log    zerolog.Logger
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(source export.Source, log zerolog.Logger) *RecordsHandler {
	return &RecordsHandler{
		source: source,
		log:    log,
	}
}

// ListAccounts handles GET /api/accounts
func (h *RecordsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.source.ListAccounts(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}

	if accounts == nil {
		accounts = []domain.Account{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// ListInvestments handles GET /api/investments
func (h *RecordsHandler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	investments, err := h.source.ListInvestments(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list investments")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list investments")
		return
	}

	if investments == nil {
		investments = []domain.Investment{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"investments": investments,
		"count":       len(investments),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Warn().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Entity: query.Get("entity"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	if jobsList == nil {
		jobsList = []*jobs.ExportJob{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// parseViewState reads the search, type and sort query parameters. It
// writes a 400 response and returns false when a value is unknown.
func parseViewState(w http.ResponseWriter, r *http.Request) (txview.ViewState, bool) {
	query := r.URL.Query()
	state, err := txview.ParseState(query.Get("search"), query.Get("type"), query.Get("sort"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return txview.ViewState{}, false
	}
	return state, true
}
