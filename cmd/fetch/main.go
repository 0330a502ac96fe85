// Command fetch runs one pipeline pass against the snapshot feed and writes
// the aggregate set to the interchange files, without serving HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aerodrift/constellation/internal/adapters/archive"
	"github.com/aerodrift/constellation/internal/adapters/export"
	app "github.com/aerodrift/constellation/internal/app"
	"github.com/aerodrift/constellation/internal/config"
	"github.com/aerodrift/constellation/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("fetch failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	if err := logger.Init(); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	hours := flag.Int("hours", cfg.Hours, "hourly snapshots to fetch (1-24)")
	out := flag.String("out", cfg.OutputDir, "output directory for interchange files")
	base := flag.String("base", cfg.UpstreamBaseURL, "snapshot feed base URL")
	archivePath := flag.String("archive", cfg.ArchivePath, "SQLite archive path (empty disables)")
	flag.Parse()

	store, err := archive.Open(*archivePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	svc := app.New(*base,
		app.WithHours(*hours),
		app.WithFetchTimeout(time.Duration(cfg.FetchTimeoutMS)*time.Millisecond),
		app.WithMaxConcurrency(cfg.MaxConcurrency),
		app.WithArchive(store),
	)
	// Start runs the first pipeline pass synchronously.
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	records := svc.Records(ctx)
	ndjsonPath, csvPath, err := export.WriteFiles(*out, records)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d records to %s and %s\n", len(records), ndjsonPath, csvPath)
	return nil
}
