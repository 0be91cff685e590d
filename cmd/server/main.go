// Command server answers move requests and streams self-play games over
// WebSocket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/brensch/tile2048/config"
	"github.com/brensch/tile2048/executor/alphabeta"
	"github.com/brensch/tile2048/game"
	"github.com/brensch/tile2048/heuristic"
	"github.com/brensch/tile2048/logging"
	"github.com/brensch/tile2048/server"
	"github.com/brensch/tile2048/store"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	listen := fs.String("listen", config.EnvOr("LISTEN", ":8080"), "HTTP listen address")
	depth := fs.Int("depth", config.EnvInt("DEPTH", alphabeta.DefaultDepth), "Default search depth in plies")
	heuristicName := fs.String("heuristic", config.EnvOr("HEURISTIC", heuristic.Default().Name()), "Default leaf heuristic")
	fourChance := fs.Int("four-chance", config.EnvInt("FOUR_CHANCE", game.DefaultSpawnSettings.FourChance), "Percent chance a spawned tile is a 4 in streamed games")
	recordDir := fs.String("record-dir", config.EnvOr("RECORD_DIR", ""), "Write streamed games as parquet under this directory")
	logFormat := fs.String("log-format", config.EnvOr("LOG_FORMAT", "pretty"), "Log format: pretty, json or text")
	logLevel := fs.String("log-level", config.EnvOr("LOG_LEVEL", "info"), "Log level")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	logger, err := logging.New(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	h, err := heuristic.ByName(*heuristicName)
	if err != nil {
		slog.Error("bad -heuristic", "err", err)
		os.Exit(1)
	}

	var written *store.WrittenLog
	if *recordDir != "" {
		written, err = store.OpenWrittenLog(filepath.Join(*recordDir, store.WrittenLogName))
		if err != nil {
			slog.Error("open written log", "err", err)
			os.Exit(1)
		}
		defer written.Close()
	}

	s := server.New(server.Config{
		Depth:     *depth,
		Heuristic: h,
		Spawn:     game.SpawnSettings{FourChance: *fourChance},
		RecordDir: *recordDir,
		Written:   written,
	})
	srv := &http.Server{
		Addr:              *listen,
		Handler:           s.Router(),
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

	slog.Info("server listening", "addr", *listen, "depth", *depth, "heuristic", h.Name(), "record_dir", *recordDir)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("listen", "err", err)
		os.Exit(1)
	}
}
