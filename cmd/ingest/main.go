// Command ingest loads ledger PDF reports into the ledger store.
//
//	ingest -file report.pdf   ingest one document and print {imported, updated}
//	ingest -list              print stored entries
//	ingest -watch             sweep the inbox directory on a schedule
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/parser"
	"github.com/FACorreiaa/ledger-ingest/pkg/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "ingest:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	file := fs.String("file", "", "ingest a single PDF document")
	list := fs.Bool("list", false, "print stored ledger entries")
	watch := fs.Bool("watch", false, "sweep the inbox directory on a schedule")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" && !*list && !*watch {
		fs.Usage()
		return errors.New("one of -file, -list or -watch is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := InitDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	switch {
	case *file != "":
		return ingestFile(ctx, deps, *file, stdout)
	case *list:
		return listEntries(ctx, deps, stdout)
	default:
		return watchInbox(ctx, deps)
	}
}

func ingestFile(ctx context.Context, deps *Dependencies, path string, stdout io.Writer) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > int64(deps.Config.Ingest.MaxFileBytes) {
		return fmt.Errorf("%s is %d bytes, limit is %d", path, info.Size(), deps.Config.Ingest.MaxFileBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !parser.IsPDF(data) {
		return fmt.Errorf("%s: %w", path, parser.ErrNotPDF)
	}

	result, err := deps.IngestService.Ingest(ctx, data)
	if err != nil {
		return err
	}
	return json.NewEncoder(stdout).Encode(result)
}

func listEntries(ctx context.Context, deps *Dependencies, stdout io.Writer) error {
	entries, err := deps.LedgerRepo.ListEntries(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func watchInbox(ctx context.Context, deps *Dependencies) error {
	scheduler, err := deps.NewInboxScheduler()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if deps.Config.Observability.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", deps.Config.Observability.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			deps.Logger.Info("metrics server listening", slog.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		// drain whatever is already waiting before the first tick
		if _, err := scheduler.Sweep(gctx); err != nil {
			deps.Logger.Error("initial inbox sweep failed", slog.Any("error", err))
		}
		if err := scheduler.Start(); err != nil {
			return err
		}
		<-gctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})

	return g.Wait()
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
