package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"reconingest/internal/config"
	"reconingest/internal/metrics"
	"reconingest/internal/metrics/datadog"
	"reconingest/internal/metrics/prompush"
	"reconingest/internal/model"
	"reconingest/internal/parser"
	"reconingest/internal/pipeline"
	"reconingest/internal/schema"
	"reconingest/internal/storage"
	"reconingest/internal/storage/postgres"
	"reconingest/internal/storage/sqlite"
)

// main is the entry point for the ingest binary. It loads the service
// config, opens the storage backend, and runs the upload pipeline over the
// files named on the command line.
func main() {
	var (
		cfgPath           string
		bankFlg           string
		kindFlg           string
		fmtFlg            string
		metricsBackendFlg string
		pushGatewayURLFlg string
		dogstatsdAddrFlg  string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/reconingest.json", "service config JSON path")
	flag.StringVar(&bankFlg, "bank", "", "bank identifier (hdfc, icici, karur_vysya)")
	flag.StringVar(&kindFlg, "type", "booking", "transaction type (booking, refund, both)")
	flag.StringVar(&fmtFlg, "format", "csv", "file format (csv, excel)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&dogstatsdAddrFlg, "dogstatsd-addr", "", "DogStatsD address (overrides env DOGSTATSD_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.Validate(cfg)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}

	// If validate flag is set, only validate the configuration and exit
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	// Decide metrics backend: flag → env → default.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		gwURL := pushGatewayURLFlg
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend("reconingest", gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
		} else {
			log.Printf("metrics: url=%v, backend=%v", gwURL, backendName)
			metrics.SetBackend(b)
			defer func() {
				if err := metrics.Flush(); err != nil {
					log.Printf("metrics: flush error: %v", err)
				}
			}()
		}

	case "datadog":
		addr := dogstatsdAddrFlg
		if addr == "" {
			addr = os.Getenv("DOGSTATSD_ADDR")
		}
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: addr, Namespace: "reconingest."})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: addr=%v, backend=%v", addr, backendName)
			metrics.SetBackend(b)
			defer func() {
				if err := metrics.Flush(); err != nil {
					log.Printf("metrics: flush error: %v", err)
				}
			}()
		}

	case "", "none":
		// metrics disabled; nop backend remains
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	bank, err := schema.ParseBank(bankFlg)
	if err != nil {
		fatalf("%v", err)
	}
	kind, err := model.ParseKind(kindFlg)
	if err != nil {
		fatalf("%v", err)
	}
	format, err := parser.ParseFormat(fmtFlg)
	if err != nil {
		fatalf("%v", err)
	}
	if flag.NArg() == 0 {
		fatalf("no input files; usage: reconingest -bank <bank> -type <type> [-format <fmt>] file...")
	}

	ctx := context.Background()
	store, closeFn, err := openStore(ctx, cfg.Storage)
	if err != nil {
		fatalf("open storage: %v", err)
	}
	defer closeFn()

	files := make([]pipeline.File, 0, flag.NArg())
	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			fatalf("read %s: %v", path, err)
		}
		files = append(files, pipeline.File{Name: path, Data: data})
	}

	p := pipeline.New(schema.New(), store, pipeline.Config{
		ChunkRows:   cfg.Runtime.ChunkRows,
		InsertBatch: cfg.Runtime.InsertBatch,
	})

	start := time.Now()
	res, err := p.Run(ctx, pipeline.Request{
		Bank:   bank,
		Kind:   kind,
		Format: format,
		Files:  files,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}

	if *verbose {
		log.Printf("loaded files=%d skipped=%d bookings=%d refunds=%d in %s",
			res.FilesLoaded, res.FilesSkipped, res.Bookings, res.Refunds,
			time.Since(start).Truncate(time.Millisecond))
	}
}

// openStore builds the configured storage backend and ensures its tables
// exist.
func openStore(ctx context.Context, s config.Storage) (storage.Store, func(), error) {
	switch s.Kind {
	case "postgres":
		repo, closeFn, err := postgres.NewRepository(ctx, postgres.Config{DSN: s.DSN})
		if err != nil {
			return nil, nil, err
		}
		if err := repo.Bootstrap(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return repo, closeFn, nil
	case "sqlite":
		repo, closeFn, err := sqlite.NewRepository(ctx, sqlite.Config{DSN: s.DSN})
		if err != nil {
			return nil, nil, err
		}
		if err := repo.Bootstrap(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return repo, closeFn, nil
	}
	return nil, nil, fmt.Errorf("unknown storage kind %q", s.Kind)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
