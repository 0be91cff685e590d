package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/tile2048/config"
	"github.com/brensch/tile2048/executor/alphabeta"
	"github.com/brensch/tile2048/heuristic"
	"github.com/brensch/tile2048/logging"
	"github.com/brensch/tile2048/rules"
	"github.com/brensch/tile2048/scraper/page"
)

func main() {
	url := flag.String("url", config.EnvOr("SCRAPE_URL", ""), "URL of a 2048 page to read the board from")
	file := flag.String("file", "", "Read a saved HTML snapshot instead of fetching -url")
	depth := flag.Int("depth", config.EnvInt("DEPTH", alphabeta.DefaultDepth), "Search depth in plies")
	heuristicName := flag.String("heuristic", config.EnvOr("HEURISTIC", heuristic.Default().Name()), "Leaf heuristic")
	timeout := flag.Duration("timeout", config.EnvDuration("SCRAPE_TIMEOUT", 30*time.Second), "HTTP timeout")
	logFormat := flag.String("log-format", config.EnvOr("LOG_FORMAT", "text"), "Log format: pretty, json or text")
	logLevel := flag.String("log-level", config.EnvOr("LOG_LEVEL", "info"), "Log level")
	flag.Parse()

	logger, err := logging.New(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	h, err := heuristic.ByName(*heuristicName)
	if err != nil {
		fatal("bad -heuristic", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var p page.Page
	switch {
	case *file != "":
		f, err := os.Open(*file)
		if err != nil {
			fatal("open snapshot", err)
		}
		p, err = page.Parse(f)
		f.Close()
		if err != nil {
			fatal("parse snapshot", err)
		}
	case *url != "":
		p, err = page.Fetch(ctx, &http.Client{Timeout: *timeout}, *url)
		if err != nil {
			fatal("fetch page", err)
		}
	default:
		fmt.Fprintln(os.Stderr, "one of -url or -file is required")
		flag.Usage()
		os.Exit(2)
	}

	fmt.Print(p.Board)
	fmt.Printf("score=%d best=%d\n", p.Score, p.Best)

	if rules.IsGameOver(p.Board) {
		fmt.Println("game over: no legal moves")
		return
	}

	start := time.Now()
	res, st := alphabeta.NewSearcher(alphabeta.Config{Depth: *depth, Heuristic: h}).Search(p.Board)
	move := res.Move
	legal := rules.LegalMoves(p.Board)
	if _, ok := rules.Moved(p.Board, move); !ok {
		move = legal[0]
	}
	slog.Info("search done",
		"depth", *depth,
		"heuristic", h.Name(),
		"nodes", st.Nodes,
		"cutoffs", st.Cutoffs,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	fmt.Printf("best move: %s (score %d, legal %v)\n", move, res.Score, legal)
	if after, ok := rules.Moved(p.Board, move); ok {
		fmt.Print(after)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
