package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-video/pkg/simplevideo/config"
	"github.com/tendant/simple-video/pkg/simplevideo/scan"
)

const usage = `Simple Video Verify

Re-reads every stored version and checks its size and SHA-256 digest
against the catalog. Also reports content stored under an asset's next
version number without a version record; left behind by a crash, it makes
every new upload to that asset fail until the object is removed.

USAGE:
  verify [options]

ENVIRONMENT VARIABLES:
  DATABASE_URL      memory, postgres://... or sqlite://path (default: memory)
  CONTENT_URL       memory://, file:///path or s3://bucket?... (default: memory://)
  DB_SCHEMA         PostgreSQL schema name (default: video)

  Configuration can be loaded from a .env file in the current directory.

OPTIONS:
`

type report struct {
	Found     int64             `json:"found"`
	Verified  int64             `json:"verified"`
	Failed    int64             `json:"failed"`
	Failures  map[string]string `json:"failures,omitempty"`
	DryRun    bool              `json:"dry_run"`
	Completed bool              `json:"completed"`
}

func main() {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	search := flag.String("search", "", "Only verify assets matching this term")
	batch := flag.Int("batch", 100, "Assets listed per batch")
	workers := flag.Int("workers", 4, "Assets verified concurrently")
	dryRun := flag.Bool("dry-run", false, "List matching assets without reading content")
	asJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil {
		slog.Debug("No .env file found, using environment", "err", err)
	}

	code, err := run(*search, *batch, *workers, *dryRun, *asJSON)
	if err != nil {
		slog.Error("Verification failed", "err", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run(search string, batch, workers int, dryRun, asJSON bool) (int, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.WithEnv(""), config.WithAutoMigrate(false))
	if err != nil {
		return 1, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	stack, err := cfg.Build(ctx, logger)
	if err != nil {
		return 1, err
	}
	defer stack.Close()

	result, scanErr := scan.New(stack.Query, logger).Scan(ctx, scan.Options{
		Search:    search,
		Processor: scan.NewVerifyProcessor(stack.Engine),
		BatchSize: batch,
		Workers:   workers,
		DryRun:    dryRun,
		OnProgress: func(processed, total int64) {
			if !asJSON {
				fmt.Fprintf(os.Stderr, "\r%d/%d assets", processed, total)
			}
		},
	})
	if !asJSON {
		fmt.Fprintln(os.Stderr)
	}

	rep := report{
		Found:     result.TotalFound,
		Verified:  result.TotalProcessed,
		Failed:    result.TotalFailed,
		Failures:  make(map[string]string, len(result.Failures)),
		DryRun:    dryRun,
		Completed: scanErr == nil,
	}
	for id, err := range result.Failures {
		rep.Failures[id.String()] = err.Error()
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return 1, err
		}
	} else {
		printReport(rep)
	}

	if scanErr != nil {
		return 1, scanErr
	}
	if rep.Failed > 0 {
		return 2, nil
	}
	return 0, nil
}

func printReport(rep report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "FOUND\tVERIFIED\tFAILED\n")
	fmt.Fprintf(w, "%d\t%d\t%d\n", rep.Found, rep.Verified, rep.Failed)
	if len(rep.Failures) == 0 {
		return
	}

	ids := make([]string, 0, len(rep.Failures))
	for id := range rep.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(w, "\nASSET\tERROR\n")
	for _, id := range ids {
		fmt.Fprintf(w, "%s\t%s\n", id, rep.Failures[id])
	}
}
