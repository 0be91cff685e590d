package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/tile2048/config"
	"github.com/brensch/tile2048/executor/alphabeta"
	"github.com/brensch/tile2048/executor/selfplay"
	"github.com/brensch/tile2048/executor/tui"
	"github.com/brensch/tile2048/heuristic"
	"github.com/brensch/tile2048/logging"
	"github.com/brensch/tile2048/store"
)

var (
	totalMoves atomic.Int64
	totalGames atomic.Int64
)

type finishedGame struct {
	result selfplay.GameResult
	rows   []store.MoveRow
}

func main() {
	depth := flag.Int("depth", config.EnvInt("DEPTH", alphabeta.DefaultDepth), "Search depth in plies")
	heuristicName := flag.String("heuristic", config.EnvOr("HEURISTIC", heuristic.Default().Name()), "Leaf heuristic: "+fmt.Sprint(heuristic.Names()))
	workers := flag.Int("workers", config.EnvInt("WORKERS", 1), "Number of self-play workers")
	games := flag.Int64("games", config.EnvInt64("GAMES", 1), "Stop after this many games (0 = until interrupted)")
	seed := flag.Int64("seed", config.EnvInt64("SEED", time.Now().UnixNano()), "Base RNG seed; worker i uses seed+i*1000003")
	outDir := flag.String("out-dir", config.EnvOr("OUT_DIR", "data/selfplay"), "Directory for parquet batches (empty disables writing)")
	gamesPerFlush := flag.Int("games-per-flush", config.EnvInt("GAMES_PER_FLUSH", 50), "Games buffered per parquet flush")
	traceEvery := flag.Int("trace-every", config.EnvInt("TRACE_EVERY", 30), "Print worker 0's board every N moves (0 = never)")
	statsEvery := flag.Duration("stats-every", config.EnvDuration("STATS_EVERY", 10*time.Second), "Interval between throughput log lines")
	useTUI := flag.Bool("tui", config.EnvBool("TUI", false), "Show the live terminal view")
	logFormat := flag.String("log-format", config.EnvOr("LOG_FORMAT", "pretty"), "Log format: pretty, json or text")
	logLevel := flag.String("log-level", config.EnvOr("LOG_LEVEL", "info"), "Log level")
	flag.Parse()

	var logOut io.Writer = os.Stderr
	if *useTUI {
		f, err := openLogFile(*outDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := logging.New(logOut, *logFormat, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	h, err := heuristic.ByName(*heuristicName)
	if err != nil {
		fatal("bad -heuristic", err)
	}

	cfg := selfplay.DefaultConfig()
	cfg.Depth = *depth
	cfg.Heuristic = h
	if !*useTUI && *traceEvery > 0 {
		cfg.TraceEvery = *traceEvery
		cfg.Trace = os.Stdout
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	slog.Info("starting self-play",
		"depth", cfg.Depth,
		"heuristic", h.Name(),
		"workers", *workers,
		"games", *games,
		"seed", *seed,
		"out_dir", *outDir,
	)

	var written *store.WrittenLog
	if *outDir != "" {
		written, err = store.OpenWrittenLog(filepath.Join(*outDir, store.WrittenLogName))
		if err != nil {
			fatal("open written log", err)
		}
		defer written.Close()
		slog.Info("written log loaded", "games_on_disk", written.Count())
	}

	writeReqs := make(chan finishedGame, *workers*2)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		parquetWriterLoop(*outDir, *gamesPerFlush, cfg, written, writeReqs)
	}()

	var (
		steps   chan selfplay.Step
		results chan selfplay.GameResult
	)
	if *useTUI {
		steps = make(chan selfplay.Step, 256)
		results = make(chan selfplay.GameResult, 16)
	}

	onStep := func(s selfplay.Step) {
		totalMoves.Add(1)
		if steps != nil {
			select {
			case steps <- s:
			default:
			}
		}
	}

	start := time.Now()
	sink := func(res selfplay.GameResult, rows []store.MoveRow) error {
		n := totalGames.Add(1)
		slog.Info("game finished",
			"n", n,
			"worker", res.WorkerID,
			"game_id", res.GameID,
			"moves", res.Moves,
			"score", res.Score,
			"total", res.Total,
			"max_tile", res.MaxTile,
			"moves_per_sec", float64(res.Moves)/max(res.Duration.Seconds(), 1e-9),
		)
		if !*useTUI {
			fmt.Print(selfplay.FormatBoard(res.Final))
		}
		if results != nil {
			select {
			case results <- res:
			default:
			}
		}
		select {
		case writeReqs <- finishedGame{result: res, rows: rows}:
			return nil
		case <-ctx.Done():
			return nil
		}
	}

	poolErr := startPool(cancel, func() error {
		return selfplay.RunPool(ctx, *workers, *games, cfg, *seed, onStep, sink)
	})

	if *useTUI {
		p := tea.NewProgram(tui.New("tile2048 self-play", steps, results), tea.WithAltScreen())
		go func() {
			<-ctx.Done()
			p.Quit()
		}()
		if _, err := p.Run(); err != nil {
			slog.Error("tui", "err", err)
		}
		cancel()
	}

	ticker := time.NewTicker(*statsEvery)
	defer ticker.Stop()
	var runErr error
wait:
	for {
		select {
		case runErr = <-poolErr:
			break wait
		case <-ticker.C:
			elapsed := time.Since(start)
			slog.Info("stats",
				"games", totalGames.Load(),
				"moves", totalMoves.Load(),
				"moves_per_sec", float64(totalMoves.Load())/elapsed.Seconds(),
				"elapsed", elapsed.Round(time.Second),
			)
		}
	}

	close(writeReqs)
	<-writerDone

	elapsed := time.Since(start)
	slog.Info("self-play finished",
		"games", totalGames.Load(),
		"moves", totalMoves.Load(),
		"moves_per_sec", float64(totalMoves.Load())/elapsed.Seconds(),
		"elapsed", elapsed.Round(time.Millisecond),
	)
	if runErr != nil {
		fatal("self-play", runErr)
	}
}

// openLogFile opens play.log under outDir for appending. The TUI owns the
// terminal, so logs go there instead of stderr.
func openLogFile(outDir string) (*os.File, error) {
	path := filepath.Join(outDir, "play.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// startPool runs the pool in the background and cancels the run context once
// it returns, so a finished pool also closes the TUI.
func startPool(cancel context.CancelFunc, run func() error) <-chan error {
	poolErr := make(chan error, 1)
	go func() {
		poolErr <- run()
		cancel()
	}()
	return poolErr
}

// parquetWriterLoop streams finished games into a GameBatch, finalizing it
// every gamesPerFlush games. IDs are logged as written only after both files
// are in place; tools/compact drops rows of games missing from the log.
func parquetWriterLoop(outDir string, gamesPerFlush int, cfg selfplay.Config, written *store.WrittenLog, in <-chan finishedGame) {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}

	var batch *store.GameBatch
	flush := func(final bool) {
		if batch == nil {
			return
		}
		res, err := batch.Finalize()
		batch = nil
		if err != nil {
			slog.Error("parquet flush failed", "final", final, "err", err)
			return
		}
		if err := written.Add(res.IDs...); err != nil {
			slog.Error("written log append failed", "err", err)
		}
		slog.Info("parquet flush ok", "moves_path", res.MovesPath, "games_path", res.GamesPath, "games", len(res.IDs), "rows", res.Rows, "final", final)
	}

	for req := range in {
		if outDir == "" {
			continue
		}
		if batch == nil {
			var err error
			if batch, err = store.NewGameBatch(outDir); err != nil {
				slog.Error("open parquet batch", "err", err)
				continue
			}
		}
		if err := batch.Add(req.result.Row(cfg), req.rows); err != nil {
			slog.Error("parquet batch discarded", "game_id", req.result.GameID, "err", err)
			batch = nil
			continue
		}
		if batch.Games() >= gamesPerFlush {
			flush(false)
		}
	}
	flush(true)
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
