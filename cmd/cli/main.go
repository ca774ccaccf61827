package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/export"
	"github.com/dvloznov/finance-dashboard/internal/gcsuploader"
	infraBQ "github.com/dvloznov/finance-dashboard/internal/infra/bigquery"
	"github.com/dvloznov/finance-dashboard/internal/infra/memory"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/txview"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so exports can be piped from stdout.
	log, err := logger.NewWithOptions(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Writer: os.Stderr})
	if err != nil {
		log.Warn().Err(err).Msg("Invalid logging configuration, using defaults")
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "export":
		runExport(log, cfg)
	case "view":
		runView(log, cfg)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finance Dashboard CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  export    Export transactions, accounts or investments as CSV or XLSX")
	fmt.Println("  view      Show the filtered and sorted transactions view")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// viewFlags registers the transactions view parameters on fs.
func viewFlags(fs *flag.FlagSet) (search, txType, sortBy *string) {
	search = fs.String("search", "", "Case-insensitive search over description and category")
	txType = fs.String("type", "all", "Transaction type: all, income or expense")
	sortBy = fs.String("sort", "date", "Sort key: date, amount or category")
	return search, txType, sortBy
}

// openSource returns the record source selected by name and a function
// releasing it.
func openSource(ctx context.Context, name string, cfg *config.Config) (export.Source, func(), error) {
	switch name {
	case "bigquery":
		repo, err := infraBQ.NewRepository(ctx, cfg.BigQuery)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	case "memory":
		return memory.NewSampleSource(time.Now()), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown source %q (want bigquery or memory)", name)
}

func runExport(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	entityName := fs.String("entity", "", "Entity to export: transactions, accounts or investments")
	formatName := fs.String("format", "csv", "Output format: csv or xlsx")
	outDir := fs.String("out", "", "Directory to write the file to (default: stdout)")
	bucket := fs.String("gcs-bucket", "", "GCS bucket (or gs://bucket/prefix) to upload the file to")
	prefix := fs.String("gcs-prefix", cfg.Export.GCSPrefix, "Object prefix inside the GCS bucket")
	sourceName := fs.String("source", "bigquery", "Record source: bigquery or memory")
	search, txType, sortBy := viewFlags(fs)
	fs.Parse(os.Args[2:])

	entity, err := export.ParseEntity(*entityName)
	if err != nil {
		log.Fatal().Err(err).Msg("Error: -entity is required (transactions, accounts or investments)")
	}
	format, err := export.ParseFormat(*formatName)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -format")
	}
	if *outDir != "" && *bucket != "" {
		log.Fatal().Msg("Error: -out and -gcs-bucket are mutually exclusive")
	}

	req := export.Request{Entity: entity, Format: format}
	if entity == export.EntityTransactions {
		state, err := txview.ParseState(*search, *txType, *sortBy)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid view parameters")
		}
		req.View = &state
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	source, closeSource, err := openSource(ctx, *sourceName, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open record source")
	}
	defer closeSource()

	var sink export.FileSink
	switch {
	case *bucket != "":
		bucketName, objectPrefix, err := gcsuploader.ParseDestination(*bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid -gcs-bucket")
		}
		if objectPrefix == "" {
			objectPrefix = *prefix
		}
		storage, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer storage.Close()
		sink = &export.GCSSink{Storage: storage, Bucket: bucketName, Prefix: objectPrefix}
	case *outDir != "":
		sink = &export.DirSink{Dir: *outDir}
	default:
		sink = &export.StreamSink{W: os.Stdout}
	}

	log.Info().
		Str("entity", string(entity)).
		Str("format", string(format)).
		Str("sink", sink.Kind()).
		Msg("Starting export")

	res, err := export.NewService(source, nil).Export(ctx, req, sink)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	if sink.Kind() != "stream" {
		fmt.Printf("Exported %d %s to %s\n", res.Rows, entity, res.Location)
	}
}

func runView(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	sourceName := fs.String("source", "bigquery", "Record source: bigquery or memory")
	asJSON := fs.Bool("json", false, "Print the view as JSON")
	search, txType, sortBy := viewFlags(fs)
	fs.Parse(os.Args[2:])

	state, err := txview.ParseState(*search, *txType, *sortBy)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid view parameters")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	source, closeSource, err := openSource(ctx, *sourceName, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open record source")
	}
	defer closeSource()

	txs, err := source.ListTransactions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}

	view := txview.Derive(txs, state, time.Now())

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode view")
		}
		return
	}

	fmt.Printf("\n=== Transactions (search %q, type %s, sorted by %s) ===\n", view.State.SearchTerm, view.State.FilterType, view.State.SortBy)
	fmt.Printf("Total: %d  Income: %d  Expense: %d  This month: %d\n\n",
		view.Stats.Total, view.Stats.Income, view.Stats.Expense, view.Stats.ThisMonth)

	// The table reuses the CSV projection so both show the same values.
	records := export.FormatTransactionsForCSV(view.Transactions)
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDESCRIPTION\tCATEGORY\tACCOUNT\tTYPE\tAMOUNT")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			field(r, "Date"), field(r, "Description"), field(r, "Category"),
			field(r, "Account"), field(r, "Type"), field(r, "Amount"))
	}
	tw.Flush()
	fmt.Println()
}

func field(r export.Record, name string) string {
	v, _ := r.Get(name)
	s, _ := export.FormatValue(v)
	return s
}
