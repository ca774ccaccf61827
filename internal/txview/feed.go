package txview

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/metrics"
)

// DefaultPollInterval is how often the Poller refreshes the feed.
const DefaultPollInterval = 30 * time.Second

// Refresh triggers, used as the metrics label.
const (
	TriggerManual = "manual"
	TriggerPoll   = "poll"
)

// Fetcher loads the current transaction list from the record source.
type Fetcher interface {
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
}

// Snapshot is a consistent read of the feed.
type Snapshot struct {
	Transactions []domain.Transaction
	// Loading is true while the first fetch is in flight.
	Loading bool
	// Refreshing is true while a fetch runs over already loaded data.
	Refreshing bool
	// Err is the error of the most recent failed fetch, cleared by the next
	// successful one.
	Err       error
	UpdatedAt time.Time
}

// Feed holds the latest transaction list fetched from a Fetcher. Refreshes
// may overlap; they are not serialized, and the fetch that completes last
// decides the stored list. A failed fetch keeps the previous list.
type Feed struct {
	fetcher Fetcher
	metrics *metrics.Metrics
	now     func() time.Time

	mu        sync.RWMutex
	txs       []domain.Transaction
	loaded    bool
	inFlight  int
	err       error
	updatedAt time.Time
}

// NewFeed creates an empty feed backed by fetcher. m may be nil.
func NewFeed(fetcher Fetcher, m *metrics.Metrics) *Feed {
	return &Feed{fetcher: fetcher, metrics: m, now: time.Now}
}

// Refresh fetches the transaction list and stores the result.
func (f *Feed) Refresh(ctx context.Context) error {
	f.mu.Lock()
	f.inFlight++
	f.mu.Unlock()

	return f.fetch(ctx, TriggerManual)
}

// tryBegin registers a fetch unless one is already in flight.
func (f *Feed) tryBegin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight > 0 {
		return false
	}
	f.inFlight++
	return true
}

// fetch runs a registered fetch and stores its outcome.
func (f *Feed) fetch(ctx context.Context, trigger string) error {
	txs, err := f.fetcher.ListTransactions(ctx)
	f.metrics.ObserveRefresh(trigger, err)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.inFlight--
	if err != nil {
		f.err = fmt.Errorf("Refresh: list transactions: %w", err)
		return f.err
	}

	f.txs = txs
	f.loaded = true
	f.err = nil
	f.updatedAt = f.now()
	return nil
}

// Busy reports whether a fetch is in flight.
func (f *Feed) Busy() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.inFlight > 0
}

// Snapshot returns the current state of the feed. The returned slice is
// shared and must be treated as read-only.
func (f *Feed) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Snapshot{
		Transactions: f.txs,
		Loading:      !f.loaded && f.inFlight > 0,
		Refreshing:   f.loaded && f.inFlight > 0,
		Err:          f.err,
		UpdatedAt:    f.updatedAt,
	}
}

// ListTransactions returns the stored list, so a Feed can stand in for the
// record source of consumers that should not trigger a fetch.
func (f *Feed) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.loaded && f.err != nil {
		return nil, f.err
	}
	return f.txs, nil
}

// Poller refreshes a Feed on a fixed interval, skipping a tick while the
// feed is already busy. It does not back off after failures.
type Poller struct {
	feed     *Feed
	interval time.Duration
	wg       sync.WaitGroup
}

// NewPoller creates a poller for feed. A non-positive interval selects
// DefaultPollInterval.
func NewPoller(feed *Feed, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{feed: feed, interval: interval}
}

// Interval returns the polling period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run polls until ctx is cancelled, then waits for refreshes it started.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick starts a background refresh unless one is already in flight and
// reports whether it started one.
func (p *Poller) Tick(ctx context.Context) bool {
	if !p.feed.tryBegin() {
		return false
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.feed.fetch(ctx, TriggerPoll); err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Msg("Scheduled transaction refresh failed")
		}
	}()
	return true
}

// Wait blocks until every refresh started by Tick has finished.
func (p *Poller) Wait() {
	p.wg.Wait()
}
