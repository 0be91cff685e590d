// Command watch follows a game streamed by the server, either in the
// terminal UI or as plain board dumps.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/tile2048/config"
	"github.com/brensch/tile2048/executor/selfplay"
	"github.com/brensch/tile2048/executor/tui"
	"github.com/brensch/tile2048/game"
	"github.com/brensch/tile2048/logging"
	"github.com/brensch/tile2048/server"
)

func main() {
	addr := flag.String("server", config.EnvOr("SERVER", "ws://127.0.0.1:8080"), "Server base URL")
	depth := flag.Int("depth", 0, "Search depth (0 uses the server default)")
	heuristicName := flag.String("heuristic", "", "Leaf heuristic (empty uses the server default)")
	seed := flag.Int64("seed", 0, "Game seed (0 lets the server pick)")
	printEvery := flag.Int("print-every", 30, "Print the board every N moves when not using the TUI")
	useTUI := flag.Bool("tui", config.EnvBool("TUI", true), "Show the terminal UI")
	logFormat := flag.String("log-format", config.EnvOr("LOG_FORMAT", "text"), "Log format: pretty, json or text")
	logLevel := flag.String("log-level", config.EnvOr("LOG_LEVEL", "info"), "Log level")
	flag.Parse()

	logger, err := logging.New(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	u, err := playURL(*addr, *depth, *heuristicName, *seed)
	if err != nil {
		slog.Error("bad -server", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !*useTUI {
		err := server.Stream(ctx, u, func(f server.Frame) error {
			if f.Done || (*printEvery > 0 && f.Turn%*printEvery == 0) {
				fmt.Print(selfplay.FormatTrace(f.Turn, f.Score, boardOf(f)))
			}
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("stream", "err", err)
			os.Exit(1)
		}
		return
	}

	steps := make(chan selfplay.Step, 64)
	games := make(chan selfplay.GameResult, 1)
	start := time.Now()
	go func() {
		defer close(steps)
		defer close(games)
		err := server.Stream(ctx, u, func(f server.Frame) error {
			if f.Done {
				b := boardOf(f)
				games <- selfplay.GameResult{
					GameID:   f.GameID,
					Started:  start,
					Moves:    f.Turn,
					Score:    f.Score,
					Total:    b.Total(),
					MaxTile:  f.MaxTile,
					Duration: time.Since(start),
					Final:    b,
				}
				return nil
			}
			select {
			case steps <- frameStep(f):
			case <-ctx.Done():
			}
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("stream", "err", err)
		}
	}()

	p := tea.NewProgram(tui.New("tile2048 watch", steps, games), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("tui", "err", err)
		os.Exit(1)
	}
}

func playURL(base string, depth int, heuristicName string, seed int64) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", base, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws/play"
	q := url.Values{}
	if depth > 0 {
		q.Set("depth", strconv.Itoa(depth))
	}
	if heuristicName != "" {
		q.Set("heuristic", heuristicName)
	}
	if seed != 0 {
		q.Set("seed", strconv.FormatInt(seed, 10))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func boardOf(f server.Frame) game.Board {
	b, err := game.FromRows(f.Board)
	if err != nil {
		slog.Warn("bad board in frame", "turn", f.Turn, "err", err)
	}
	return b
}

func frameStep(f server.Frame) selfplay.Step {
	d, _ := game.ParseDirection(f.Move)
	return selfplay.Step{
		GameID:    f.GameID,
		Turn:      f.Turn,
		Board:     boardOf(f),
		Move:      d,
		GameScore: f.Score,
	}
}
