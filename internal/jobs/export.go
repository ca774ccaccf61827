package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-dashboard/internal/export"
	"github.com/dvloznov/finance-dashboard/internal/logger"
)

// Exporter runs one export through a sink.
type Exporter interface {
	Export(ctx context.Context, req export.Request, sink export.FileSink) (export.Result, error)
}

// NewExportHandler returns a JobHandler that runs export jobs through exp and
// delivers them to the sink registered for the job's destination. On success
// the job's Location and Rows are filled in.
func NewExportHandler(exp Exporter, sinks map[Destination]export.FileSink) JobHandler {
	return func(ctx context.Context, job Job) error {
		exportJob, ok := job.(*ExportJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		req, err := exportJob.Request()
		if err != nil {
			return Permanent(err)
		}

		sink, ok := sinks[exportJob.Destination]
		if !ok || sink == nil {
			return Permanent(fmt.Errorf("ExportHandler: destination %q is not configured: %w", exportJob.Destination, ErrUnknownDestination))
		}

		log := logger.FromContext(ctx)
		log.Info().
			Str("job_id", exportJob.JobID).
			Str("entity", exportJob.Entity).
			Str("destination", string(exportJob.Destination)).
			Msg("Processing export job")

		res, err := exp.Export(ctx, req, sink)
		if err != nil {
			if export.IsRequestError(err) {
				return Permanent(err)
			}
			return fmt.Errorf("ExportHandler: %w", err)
		}

		exportJob.Location = res.Location
		exportJob.Rows = res.Rows
		return nil
	}
}

// Request converts the job into an export request, validating entity and
// format.
func (j *ExportJob) Request() (export.Request, error) {
	entity, err := export.ParseEntity(j.Entity)
	if err != nil {
		return export.Request{}, err
	}
	format, err := export.ParseFormat(j.Format)
	if err != nil {
		return export.Request{}, err
	}

	req := export.Request{Entity: entity, Format: format}
	if entity == export.EntityTransactions && j.View != nil {
		view := j.View.Normalize()
		req.View = &view
	}
	return req, nil
}
