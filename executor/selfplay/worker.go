package selfplay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/brensch/tile2048/executor/alphabeta"
	"github.com/brensch/tile2048/game"
	"github.com/brensch/tile2048/heuristic"
	"github.com/brensch/tile2048/rules"
	"github.com/brensch/tile2048/store"
)

// Config controls self-play. The zero Spawn settings never spawn fours; use
// DefaultConfig for the reference game's odds.
type Config struct {
	Depth     int
	Heuristic heuristic.Heuristic
	Spawn     game.SpawnSettings
	Source    string

	// TraceEvery writes the board to Trace every N moves. 0 disables.
	TraceEvery int
	Trace      io.Writer
}

func DefaultConfig() Config {
	return Config{
		Depth:     alphabeta.DefaultDepth,
		Heuristic: heuristic.Default(),
		Spawn:     game.DefaultSpawnSettings,
		Source:    store.SourceSelfPlay,
	}
}

func (c Config) withDefaults() Config {
	if c.Depth <= 0 {
		c.Depth = alphabeta.DefaultDepth
	}
	if c.Heuristic == nil {
		c.Heuristic = heuristic.Default()
	}
	if c.Source == "" {
		c.Source = store.SourceSelfPlay
	}
	return c
}

type GameResult struct {
	GameID   string
	WorkerID int
	Started  time.Time
	Moves    int
	Score    int // sum of merged tiles
	Total    int // sum of tiles on the final board
	MaxTile  int
	Duration time.Duration
	Final    game.Board
}

// Row converts the result into its games-table row.
func (r GameResult) Row(cfg Config) store.GameRow {
	cfg = cfg.withDefaults()
	return store.GameRow{
		GameID:     r.GameID,
		StartedNs:  r.Started.UnixNano(),
		Moves:      int32(r.Moves),
		Score:      int64(r.Score),
		Total:      int64(r.Total),
		MaxTile:    int32(r.MaxTile),
		DurationMs: r.Duration.Milliseconds(),
		Depth:      int32(cfg.Depth),
		Heuristic:  cfg.Heuristic.Name(),
		Source:     cfg.Source,
	}
}

// Step is emitted after every applied move. Board is the position after the
// move and the following spawn.
type Step struct {
	WorkerID    int
	GameID      string
	Turn        int
	Board       game.Board
	Move        game.Direction
	SearchScore int
	GameScore   int
}

// PlayGame plays one game to the end. A cancelled context stops the game
// between moves and returns the rows recorded so far along with ctx.Err().
func PlayGame(ctx context.Context, workerID int, cfg Config, rng *rand.Rand, onStep func(Step)) (GameResult, []store.MoveRow, error) {
	cfg = cfg.withDefaults()
	searcher := alphabeta.NewSearcher(alphabeta.Config{Depth: cfg.Depth, Heuristic: cfg.Heuristic})

	res := GameResult{
		GameID:   uuid.NewString(),
		WorkerID: workerID,
		Started:  time.Now(),
	}
	log := slog.With("worker", workerID, "game_id", res.GameID)

	b := game.NewBoard()
	game.SpawnWithSettings(&b, rng, cfg.Spawn)

	rows := make([]store.MoveRow, 0, 512)
	finish := func() GameResult {
		res.Duration = time.Since(res.Started)
		res.Total = b.Total()
		res.MaxTile = b.MaxTile().Value()
		res.Final = b
		return res
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(), rows, err
		}
		if rules.IsGameOver(b) {
			break
		}

		chosen, _ := searcher.Search(b)
		before := b
		changed, gained := rules.MoveWithScore(&b, chosen.Move)
		if !changed {
			// The unchanged board can outscore every legal child; play the first
			// legal move instead so the game keeps advancing.
			legal := rules.LegalMoves(before)
			log.Debug("search chose illegal move", "move", chosen.Move, "fallback", legal[0], "turn", res.Moves)
			chosen.Move = legal[0]
			_, gained = rules.MoveWithScore(&b, chosen.Move)
		}
		res.Score += gained

		rows = append(rows, store.MoveRow{
			GameID:      res.GameID,
			Turn:        int32(res.Moves),
			Board:       before.Values(),
			Move:        int32(chosen.Move),
			SearchScore: int64(chosen.Score),
			GameScore:   int64(res.Score),
			Depth:       int32(cfg.Depth),
			Heuristic:   cfg.Heuristic.Name(),
			Source:      cfg.Source,
		})
		res.Moves++

		_, _, spawned := game.SpawnWithSettings(&b, rng, cfg.Spawn)

		if onStep != nil {
			onStep(Step{
				WorkerID:    workerID,
				GameID:      res.GameID,
				Turn:        res.Moves,
				Board:       b,
				Move:        chosen.Move,
				SearchScore: chosen.Score,
				GameScore:   res.Score,
			})
		}
		if cfg.Trace != nil && cfg.TraceEvery > 0 && res.Moves%cfg.TraceEvery == 0 {
			if _, err := io.WriteString(cfg.Trace, FormatTrace(res.Moves, res.Score, b)); err != nil {
				return finish(), rows, fmt.Errorf("write trace: %w", err)
			}
		}
		if !spawned {
			break
		}
	}

	out := finish()
	log.Debug("game over", "moves", out.Moves, "score", out.Score, "max_tile", out.MaxTile)
	return out, rows, nil
}

// Sink receives finished games. RunPool serializes calls.
type Sink func(GameResult, []store.MoveRow) error

// WorkerSeed derives a worker's RNG seed from the pool seed.
func WorkerSeed(seed int64, workerID int) int64 {
	return seed + int64(workerID)*1000003
}

// RunPool plays games on workers goroutines until games have been started
// (games <= 0 means until ctx is cancelled). Each worker owns its RNG and only
// worker 0 writes traces. onStep is called concurrently from all workers.
// Games interrupted by cancellation are dropped. The first sink error stops
// the pool and is returned.
func RunPool(ctx context.Context, workers int, games int64, cfg Config, seed int64, onStep func(Step), sink Sink) error {
	if workers <= 0 {
		workers = 1
	}

	var (
		started atomic.Int64
		sinkMu  sync.Mutex
	)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		workerID := w
		g.Go(func() error {
			rng := rand.New(rand.NewSource(WorkerSeed(seed, workerID)))
			wcfg := cfg
			if workerID != 0 {
				wcfg.Trace = nil
			}
			for {
				if gctx.Err() != nil {
					return nil
				}
				if games > 0 && started.Add(1) > games {
					return nil
				}

				res, rows, err := PlayGame(gctx, workerID, wcfg, rng, onStep)
				if err != nil {
					if gctx.Err() != nil {
						return nil
					}
					return fmt.Errorf("worker %d: %w", workerID, err)
				}

				sinkMu.Lock()
				err = sink(res, rows)
				sinkMu.Unlock()
				if err != nil {
					return fmt.Errorf("sink game %s: %w", res.GameID, err)
				}
			}
		})
	}
	return g.Wait()
}
