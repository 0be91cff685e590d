package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/tile2048/config"
	"github.com/brensch/tile2048/logging"
)

func main() {
	dataDirs := flag.String("data-dirs", config.EnvOr("DATA_DIRS", "data/selfplay"), "Comma-separated roots holding moves/ and games/ parquet batches")
	listen := flag.String("listen", config.EnvOr("VIEWER_LISTEN", "127.0.0.1:8090"), "HTTP listen address")
	refresh := flag.Duration("refresh", config.EnvDuration("VIEWER_REFRESH", 30*time.Second), "How often to rescan for new parquet batches")
	summaryOnly := flag.Bool("summary", false, "Print the summary as JSON and exit")
	logFormat := flag.String("log-format", config.EnvOr("LOG_FORMAT", "pretty"), "Log format: pretty, json or text")
	logLevel := flag.String("log-level", config.EnvOr("LOG_LEVEL", "info"), "Log level")
	flag.Parse()

	logger, err := logging.New(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	roots := parseDataRoots(*dataDirs)
	s := NewServer(roots, *refresh)
	defer s.Close()

	if *summaryOnly {
		if err := printSummary(context.Background(), s, os.Stdout); err != nil {
			slog.Error("summary", "err", err)
			os.Exit(1)
		}
		return
	}

	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	srv := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("viewer API listening", "addr", "http://"+*listen, "roots", roots)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("listen", "err", err)
		os.Exit(1)
	}
}

func printSummary(ctx context.Context, s *Server, w *os.File) error {
	db, err := s.dbCache.Get()
	if err != nil {
		return err
	}
	sum, err := querySummary(ctx, db)
	if err != nil {
		return err
	}
	if sum.Heuristics, err = queryHeuristics(ctx, db); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sum)
}
