package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-dashboard/internal/assistant"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/export"
	"github.com/dvloznov/finance-dashboard/internal/infra/memory"
	"github.com/dvloznov/finance-dashboard/internal/jobs"
	"github.com/dvloznov/finance-dashboard/internal/jobs/inmemory"
	"github.com/dvloznov/finance-dashboard/internal/txview"
)

var testNow = time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)

func testTransactions() []domain.Transaction {
	return []domain.Transaction{
		{ID: "1", Description: "Salary", Amount: 3000, Type: domain.TransactionTypeIncome,
			TransactionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "2", Description: "Rent", Amount: -1200, Type: domain.TransactionTypeExpense,
			TransactionDate: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Category: &domain.Category{Name: "Housing"}},
		{ID: "3", Description: "Coffee, beans", Amount: -12.5, Type: domain.TransactionTypeExpense,
			TransactionDate: time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC)},
	}
}

type stubFeed struct {
	mu        sync.Mutex
	snap      txview.Snapshot
	refreshes int
	err       error
}

func (f *stubFeed) Snapshot() txview.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *stubFeed) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return f.err
}

func newTransactionsHandler(feed TransactionFeed) *TransactionsHandler {
	h := NewTransactionsHandler(feed, zerolog.Nop())
	h.now = func() time.Time { return testNow }
	return h
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestTransactionsHandler_ListTransactions(t *testing.T) {
	updated := testNow.Add(-time.Minute)
	feed := &stubFeed{snap: txview.Snapshot{Transactions: testTransactions(), UpdatedAt: updated}}
	h := newTransactionsHandler(feed)

	rec := httptest.NewRecorder()
	h.ListTransactions(rec, httptest.NewRequest(http.MethodGet, "/api/transactions?type=expense&sort=amount", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Transactions []domain.Transaction `json:"transactions"`
		Stats        txview.Stats         `json:"stats"`
		State        txview.ViewState     `json:"state"`
		UpdatedAt    *time.Time           `json:"updated_at"`
		Error        string               `json:"error"`
	}
	decode(t, rec, &resp)

	require.Len(t, resp.Transactions, 2)
	assert.Equal(t, "2", resp.Transactions[0].ID)
	assert.Equal(t, "3", resp.Transactions[1].ID)
	assert.Equal(t, txview.Stats{Total: 2, Income: 0, Expense: 2, ThisMonth: 1}, resp.Stats)
	assert.Equal(t, txview.FilterExpense, resp.State.FilterType)
	assert.Equal(t, txview.SortByAmount, resp.State.SortBy)
	require.NotNil(t, resp.UpdatedAt)
	assert.True(t, updated.Equal(*resp.UpdatedAt))
	assert.Empty(t, resp.Error)
}

func TestTransactionsHandler_ListTransactions_EmptyAndFailed(t *testing.T) {
	feed := &stubFeed{snap: txview.Snapshot{Err: errors.New("bigquery unavailable")}}
	h := newTransactionsHandler(feed)

	rec := httptest.NewRecorder()
	h.ListTransactions(rec, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	decode(t, rec, &resp)
	assert.Equal(t, []interface{}{}, resp["transactions"])
	assert.Nil(t, resp["updated_at"])
	assert.Equal(t, "Failed to load transactions", resp["error"])
	assert.NotContains(t, rec.Body.String(), "bigquery unavailable")
}

func TestTransactionsHandler_ListTransactions_BadParams(t *testing.T) {
	h := newTransactionsHandler(&stubFeed{})

	for _, target := range []string{"/api/transactions?type=transfer", "/api/transactions?sort=merchant"} {
		rec := httptest.NewRecorder()
		h.ListTransactions(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestTransactionsHandler_Refresh(t *testing.T) {
	feed := &stubFeed{err: errors.New("timeout")}
	h := newTransactionsHandler(feed)

	rec := httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/transactions/refresh", nil))
	h.Wait()

	assert.Equal(t, http.StatusAccepted, rec.Code)
	feed.mu.Lock()
	defer feed.mu.Unlock()
	assert.Equal(t, 1, feed.refreshes)
}

func TestTransactionsHandler_WithFeed(t *testing.T) {
	source := memory.NewSource()
	source.SetTransactions(testTransactions())
	feed := txview.NewFeed(source, nil)
	h := newTransactionsHandler(feed)

	rec := httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/transactions/refresh", nil))
	h.Wait()

	rec = httptest.NewRecorder()
	h.ListTransactions(rec, httptest.NewRequest(http.MethodGet, "/api/transactions?search=rent", nil))

	var resp struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, "Rent", resp.Transactions[0].Description)
}

type failingSource struct{ memory.Source }

func (*failingSource) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return nil, errors.New("permission denied")
}

func TestRecordsHandler(t *testing.T) {
	h := NewRecordsHandler(memory.NewSampleSource(testNow), zerolog.Nop())

	rec := httptest.NewRecorder()
	h.ListAccounts(rec, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var accounts struct {
		Accounts []domain.Account `json:"accounts"`
		Count    int              `json:"count"`
	}
	decode(t, rec, &accounts)
	assert.Equal(t, 3, accounts.Count)
	assert.Equal(t, "Current Account", accounts.Accounts[0].AccountName)

	rec = httptest.NewRecorder()
	h.ListInvestments(rec, httptest.NewRequest(http.MethodGet, "/api/investments", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"symbol":"AAPL"`)

	empty := NewRecordsHandler(memory.NewSource(), zerolog.Nop())
	rec = httptest.NewRecorder()
	empty.ListInvestments(rec, httptest.NewRequest(http.MethodGet, "/api/investments", nil))
	assert.JSONEq(t, `{"investments":[],"count":0}`, rec.Body.String())

	failing := NewRecordsHandler(&failingSource{}, zerolog.Nop())
	rec = httptest.NewRecorder()
	failing.ListAccounts(rec, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to list accounts"}`, rec.Body.String())
}

func newExportHandler(source export.Source, publisher jobs.Publisher, destinations ...jobs.Destination) *ExportHandler {
	return NewExportHandler(export.NewService(source, nil), publisher, destinations, zerolog.Nop())
}

func TestExportHandler_DownloadCSV(t *testing.T) {
	source := memory.NewSource()
	source.SetTransactions(testTransactions())
	h := newExportHandler(source, nil)

	rec := httptest.NewRecorder()
	h.Download(rec, httptest.NewRequest(http.MethodGet, "/api/export/transactions?type=expense&sort=amount", nil), "transactions")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.CSVContentType, rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment; filename=transactions_"))

	lines := strings.Split(rec.Body.String(), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Description,Category,Account,Type,Amount,Created At", lines[0])
	assert.Equal(t, "2024-01-03,Rent,Housing,Unknown Account,expense,-1200,N/A", lines[1])
	assert.Equal(t, `2023-12-30,"Coffee, beans",Uncategorized,Unknown Account,expense,-12.5,N/A`, lines[2])
}

func TestExportHandler_DownloadXLSX(t *testing.T) {
	h := newExportHandler(memory.NewSampleSource(testNow), nil)

	rec := httptest.NewRecorder()
	h.Download(rec, httptest.NewRequest(http.MethodGet, "/api/export/accounts?format=xlsx", nil), "accounts")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.XLSXContentType, rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
}

func TestExportHandler_DownloadErrors(t *testing.T) {
	tests := []struct {
		name   string
		source export.Source
		target string
		entity string
		status int
	}{
		{"unknown entity", memory.NewSource(), "/api/export/budgets", "budgets", http.StatusNotFound},
		{"unknown format", memory.NewSource(), "/api/export/accounts?format=pdf", "accounts", http.StatusBadRequest},
		{"unknown filter", memory.NewSource(), "/api/export/transactions?type=transfer", "transactions", http.StatusBadRequest},
		{"source failure", &failingSource{}, "/api/export/accounts", "accounts", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newExportHandler(tt.source, nil)
			rec := httptest.NewRecorder()
			h.Download(rec, httptest.NewRequest(http.MethodGet, tt.target, nil), tt.entity)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Empty(t, rec.Header().Get("Content-Disposition"))
		})
	}
}

type fakePublisher struct {
	published []*jobs.ExportJob
	err       error
	// pickUp marks published jobs as running, as a worker taking the job
	// right away would.
	pickUp bool
}

func (p *fakePublisher) PublishExport(ctx context.Context, job *jobs.ExportJob) error {
	if p.err != nil {
		return p.err
	}
	if job.JobID == "" {
		job.JobID = "job-1"
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	p.published = append(p.published, job)
	if p.pickUp {
		job.Status = jobs.JobStatusRunning
	}
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func post(target, body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
}

func TestExportHandler_Enqueue(t *testing.T) {
	pub := &fakePublisher{}
	h := newExportHandler(memory.NewSource(), pub, jobs.DestinationDir)

	rec := httptest.NewRecorder()
	h.Enqueue(rec, post("/api/exports", `{"entity":"transactions","format":"xlsx","search":"rent","sort":"amount"}`))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, pub.published, 1)
	job := pub.published[0]
	assert.NotEmpty(t, job.JobID)
	assert.JSONEq(t, `{"job_id":"`+job.JobID+`","status":"pending"}`, rec.Body.String())

	assert.Equal(t, "transactions", job.Entity)
	assert.Equal(t, "xlsx", job.Format)
	assert.Equal(t, jobs.DestinationDir, job.Destination)
	require.NotNil(t, job.View)
	assert.Equal(t, txview.ViewState{SearchTerm: "rent", FilterType: txview.FilterAll, SortBy: txview.SortByAmount}, *job.View)
}

func TestExportHandler_EnqueueAnswersPendingOnceHandedOff(t *testing.T) {
	pub := &fakePublisher{pickUp: true}
	h := newExportHandler(memory.NewSource(), pub, jobs.DestinationDir)

	rec := httptest.NewRecorder()
	h.Enqueue(rec, post("/api/exports", `{"entity":"accounts"}`))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, pub.published, 1)
	job := pub.published[0]
	require.Equal(t, jobs.JobStatusRunning, job.Status)

	var resp map[string]string
	decode(t, rec, &resp)
	assert.Equal(t, job.JobID, resp["job_id"])
	assert.Equal(t, string(jobs.JobStatusPending), resp["status"])
}

func TestExportHandler_EnqueueErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		pubErr error
		status int
	}{
		{"invalid json", `{`, nil, http.StatusBadRequest},
		{"unknown entity", `{"entity":"budgets"}`, nil, http.StatusBadRequest},
		{"unknown format", `{"entity":"accounts","format":"pdf"}`, nil, http.StatusBadRequest},
		{"unknown destination", `{"entity":"accounts","destination":"s3"}`, nil, http.StatusBadRequest},
		{"unconfigured destination", `{"entity":"accounts","destination":"gcs"}`, nil, http.StatusBadRequest},
		{"unknown sort", `{"entity":"transactions","sort":"merchant"}`, nil, http.StatusBadRequest},
		{"queue closed", `{"entity":"accounts"}`, errors.New("queue is closed"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{err: tt.pubErr}
			h := newExportHandler(memory.NewSource(), pub, jobs.DestinationDir)

			rec := httptest.NewRecorder()
			h.Enqueue(rec, post("/api/exports", tt.body))
			assert.Equal(t, tt.status, rec.Code)
			assert.Empty(t, pub.published)
		})
	}
}

func TestExportHandler_EnqueueRunsJob(t *testing.T) {
	source := memory.NewSampleSource(testNow)
	service := export.NewService(source, nil)
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(inmemory.QueueConfig{Workers: 1, Backoff: time.Millisecond}, store)
	sink := &export.DirSink{Dir: t.TempDir()}

	require.NoError(t, queue.Start(context.Background(), jobs.NewExportHandler(service, map[jobs.Destination]export.FileSink{
		jobs.DestinationDir: sink,
	})))
	defer queue.Close()

	h := NewExportHandler(service, queue, []jobs.Destination{jobs.DestinationDir}, zerolog.Nop())
	rec := httptest.NewRecorder()
	h.Enqueue(rec, post("/api/exports", `{"entity":"accounts"}`))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	decode(t, rec, &resp)

	jobsHandler := NewJobsHandler(store, zerolog.Nop())
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		jobsHandler.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+resp["job_id"], nil), resp["job_id"])
		var job jobs.ExportJob
		if json.Unmarshal(rec.Body.Bytes(), &job) != nil {
			return false
		}
		return job.Status == jobs.JobStatusCompleted && job.Rows == 3 && strings.HasSuffix(job.Location, ".csv")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJobsHandler(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveJob(ctx, &jobs.ExportJob{JobID: "a", Entity: "accounts", Status: jobs.JobStatusCompleted, CreatedAt: base}))
	require.NoError(t, store.SaveJob(ctx, &jobs.ExportJob{JobID: "b", Entity: "transactions", Status: jobs.JobStatusFailed, CreatedAt: base.Add(time.Hour)}))

	h := NewJobsHandler(store, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?entity=accounts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Jobs  []jobs.ExportJob `json:"jobs"`
		Count int              `json:"count"`
	}
	decode(t, rec, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "a", list.Jobs[0].JobID)

	rec = httptest.NewRecorder()
	h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?status=running", nil))
	assert.JSONEq(t, `{"jobs":[],"count":0}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/b", nil), "b")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"failed"`)

	rec = httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil), "missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeAssistant struct {
	view   txview.View
	answer string
	err    error
}

func (f *fakeAssistant) Answer(ctx context.Context, question string, view txview.View) (string, error) {
	f.view = view
	if f.err != nil {
		return "", f.err
	}
	if strings.TrimSpace(question) == "" {
		return "", assistant.ErrEmptyQuestion
	}
	return f.answer, nil
}

func TestAssistantHandler(t *testing.T) {
	feed := &stubFeed{snap: txview.Snapshot{Transactions: testTransactions()}}
	fake := &fakeAssistant{answer: "You paid 1200 in rent."}
	h := NewAssistantHandler(feed, fake, zerolog.Nop())
	h.now = func() time.Time { return testNow }

	rec := httptest.NewRecorder()
	h.Ask(rec, post("/api/assistant", `{"question":"Rent?","type":"expense"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Answer string       `json:"answer"`
		Stats  txview.Stats `json:"stats"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "You paid 1200 in rent.", resp.Answer)
	assert.Equal(t, 2, resp.Stats.Total)
	assert.Len(t, fake.view.Transactions, 2)
}

func TestAssistantHandler_Errors(t *testing.T) {
	feed := &stubFeed{}

	tests := []struct {
		name      string
		assistant assistant.Assistant
		body      string
		status    int
	}{
		{"disabled", nil, `{"question":"Rent?"}`, http.StatusServiceUnavailable},
		{"invalid json", &fakeAssistant{}, `nope`, http.StatusBadRequest},
		{"empty question", &fakeAssistant{}, `{"question":"  "}`, http.StatusBadRequest},
		{"unknown sort", &fakeAssistant{}, `{"question":"Rent?","sort":"merchant"}`, http.StatusBadRequest},
		{"model failure", &fakeAssistant{err: errors.New("quota exceeded")}, `{"question":"Rent?"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAssistantHandler(feed, tt.assistant, zerolog.Nop())
			rec := httptest.NewRecorder()
			h.Ask(rec, post("/api/assistant", tt.body))
			assert.Equal(t, tt.status, rec.Code)

			body, err := io.ReadAll(rec.Body)
			require.NoError(t, err)
			assert.NotContains(t, string(body), "quota exceeded")
		})
	}
}
