// Command export dumps the stored pass collection as CSV, for pulling the
// register out of a deployment without going through the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"hostelpass.org/internal/enrich"
	"hostelpass.org/internal/notify"
	"hostelpass.org/internal/pass"
	"hostelpass.org/internal/store"
	"hostelpass.org/internal/store/pg"
)

func main() {
	var (
		dataDir = flag.String("data-dir", "./data", "Data directory of the file store")
		pgDSN   = flag.String("pg-dsn", os.Getenv("PASS_PG_DSN"), "Postgres DSN (overrides the file store)")
		out     = flag.String("o", "-", "Output file, - for stdout")
	)
	flag.Parse()

	var st store.Store
	if *pgDSN != "" {
		pgStore, err := pg.Open(*pgDSN)
		if err != nil {
			log.Fatalf("open pg store: %v", err)
		}
		defer pgStore.Close()
		st = pgStore
	} else {
		fileStore, err := store.OpenFile(*dataDir)
		if err != nil {
			log.Fatalf("open file store: %v", err)
		}
		st = fileStore
	}

	var w io.Writer = os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("create output: %v", err)
		}
		defer f.Close()
		w = f
	}

	// Export only reads; notifications and enrichment are never touched.
	notes := notify.NewService(st)
	svc := pass.NewService(st, notes, disabledEnricher{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := svc.ExportCSV(ctx, w); err != nil {
		log.Fatalf("export: %v", err)
	}
	if *out != "-" {
		fmt.Fprintf(os.Stderr, "wrote %s\n", *out)
	}
}

type disabledEnricher struct{}

func (disabledEnricher) Summarize(_ context.Context, reason string, _ int) enrich.Annotation {
	return enrich.Fallback(reason)
}

func (disabledEnricher) Polish(_ context.Context, raw string) string { return raw }
