package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/logger"
)

const (
	// CSVContentType is the MIME type attached to every CSV download.
	CSVContentType = "text/csv;charset=utf-8;"
	// XLSXContentType is the MIME type of workbook exports.
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	filenameDateLayout = "2006-01-02"
)

// ErrInvalidFilename is returned when a download target name is empty or
// contains a path separator.
var ErrInvalidFilename = errors.New("invalid export filename")

// File is one export artifact handed to a FileSink.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// SaveResult describes where a sink put a file.
type SaveResult struct {
	// Location is a sink-specific address: a path, a gs:// URI or the
	// attachment name.
	Location string
	Bytes    int64
}

// FileSink is the capability a finished export is delivered through.
// Implementations release every resource they acquire before Save returns,
// whether or not the save succeeded.
type FileSink interface {
	// Save delivers the file.
	Save(ctx context.Context, file File) (SaveResult, error)

	// Kind names the sink for logs and metrics.
	Kind() string
}

// DownloadCSV delivers csvContent as filename through sink using the CSV
// content type. Errors from the sink are returned to the caller, which owns
// the failure policy.
func DownloadCSV(ctx context.Context, sink FileSink, csvContent, filename string) (SaveResult, error) {
	return deliver(ctx, sink, File{
		Name:        filename,
		ContentType: CSVContentType,
		Content:     []byte(csvContent),
	})
}

func deliver(ctx context.Context, sink FileSink, file File) (SaveResult, error) {
	if err := ValidateFilename(file.Name); err != nil {
		return SaveResult{}, err
	}

	log := logger.FromContext(ctx)

	res, err := sink.Save(ctx, file)
	if err != nil {
		return SaveResult{}, fmt.Errorf("deliver: %s sink: %w", sink.Kind(), err)
	}

	log.Debug().
		Str("sink", sink.Kind()).
		Str("filename", file.Name).
		Str("location", res.Location).
		Int64("bytes", res.Bytes).
		Msg("Export delivered")

	return res, nil
}

// ValidateFilename rejects names that are empty or would escape the sink's
// target directory.
func ValidateFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("ValidateFilename: empty name: %w", ErrInvalidFilename)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("ValidateFilename: %q: %w", name, ErrInvalidFilename)
	}
	return nil
}

// Filename returns "<entity>_<YYYY-MM-DD>.csv" for the date of now.
func Filename(entity Entity, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", entity, now.Format(filenameDateLayout))
}

// XLSXFilename returns "<entity>_<YYYY-MM-DD>.xlsx" for the date of now.
func XLSXFilename(entity Entity, now time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", entity, now.Format(filenameDateLayout))
}
