package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/metrics"
	"github.com/dvloznov/finance-dashboard/internal/txview"
)

// Source provides the domain records an export reads.
type Source interface {
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	ListInvestments(ctx context.Context) ([]domain.Investment, error)
}

// Request selects what to export.
type Request struct {
	Entity Entity
	Format Format
	// View filters and sorts a transactions export the way the transactions
	// view shows it. Nil exports every transaction in source order. It is
	// ignored for other entities.
	View *txview.ViewState
}

// Result describes a delivered export.
type Result struct {
	SaveResult
	Filename string
	Rows     int
}

// Service runs the export pipeline: source → formatter → encoder → sink.
type Service struct {
	source  Source
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService creates an export service. m may be nil.
func NewService(source Source, m *metrics.Metrics) *Service {
	return &Service{source: source, metrics: m, now: time.Now}
}

// Records loads the requested entity and projects it into CSV records.
func (s *Service) Records(ctx context.Context, req Request) ([]Record, error) {
	switch req.Entity {
	case EntityTransactions:
		txs, err := s.source.ListTransactions(ctx)
		if err != nil {
			return nil, fmt.Errorf("Records: list transactions: %w", err)
		}
		if req.View != nil {
			txs = txview.Apply(txs, *req.View)
		}
		return FormatTransactionsForCSV(txs), nil

	case EntityAccounts:
		accounts, err := s.source.ListAccounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("Records: list accounts: %w", err)
		}
		return FormatAccountsForCSV(accounts), nil

	case EntityInvestments:
		investments, err := s.source.ListInvestments(ctx)
		if err != nil {
			return nil, fmt.Errorf("Records: list investments: %w", err)
		}
		return FormatInvestmentsForCSV(investments), nil
	}

	return nil, fmt.Errorf("Records: %q: %w", req.Entity, ErrUnknownEntity)
}

// Build renders the requested export into a file without delivering it.
func (s *Service) Build(ctx context.Context, req Request) (File, int, error) {
	format := req.Format
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return File{}, 0, fmt.Errorf("Build: %q: %w", format, ErrUnknownFormat)
	}

	records, err := s.Records(ctx, req)
	if err != nil {
		return File{}, 0, err
	}

	if err := CheckColumns(records); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("entity", string(req.Entity)).Msg("Export records are not homogeneous")
	}

	now := s.now()
	switch format {
	case FormatXLSX:
		var buf bytes.Buffer
		if err := WriteXLSX(&buf, string(req.Entity), records); err != nil {
			return File{}, 0, fmt.Errorf("Build: %w", err)
		}
		return File{
			Name:        XLSXFilename(req.Entity, now),
			ContentType: XLSXContentType,
			Content:     buf.Bytes(),
		}, len(records), nil

	default:
		return File{
			Name:        Filename(req.Entity, now),
			ContentType: CSVContentType,
			Content:     []byte(ConvertToCSV(records)),
		}, len(records), nil
	}
}

// Export builds the requested file and delivers it through sink.
func (s *Service) Export(ctx context.Context, req Request, sink FileSink) (Result, error) {
	log := logger.FromContext(ctx)

	file, rows, err := s.Build(ctx, req)
	if err == nil {
		var res SaveResult
		res, err = deliver(ctx, sink, file)
		if err == nil {
			s.metrics.ObserveExport(string(req.Entity), string(formatOf(req)), sink.Kind(), rows, nil)
			log.Info().
				Str("entity", string(req.Entity)).
				Str("format", string(formatOf(req))).
				Str("sink", sink.Kind()).
				Str("location", res.Location).
				Int("rows", rows).
				Msg("Export completed")
			return Result{SaveResult: res, Filename: file.Name, Rows: rows}, nil
		}
	}

	s.metrics.ObserveExport(string(req.Entity), string(formatOf(req)), sink.Kind(), 0, err)
	return Result{}, fmt.Errorf("Export: %w", err)
}

// IsRequestError reports whether err was caused by an invalid request rather
// than a failing source or sink.
func IsRequestError(err error) bool {
	return errors.Is(err, ErrUnknownEntity) ||
		errors.Is(err, ErrUnknownFormat) ||
		errors.Is(err, ErrInvalidFilename)
}

func formatOf(req Request) Format {
	if req.Format == "" {
		return FormatCSV
	}
	return req.Format
}
