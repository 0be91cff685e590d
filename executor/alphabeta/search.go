// Package alphabeta implements the move search: depth-limited minimax with
// alpha-beta pruning over alternating agent moves and tile placements.
//
// Agent nodes maximize over the four directions. Placement nodes minimize over
// every (empty cell, 2 or 4) insertion, i.e. the spawner is treated as an
// adversary rather than weighted by spawn probability. Leaves are scored by a
// heuristic.
package alphabeta

import (
	"math"

	"github.com/brensch/tile2048/game"
	"github.com/brensch/tile2048/heuristic"
	"github.com/brensch/tile2048/rules"
)

const (
	// MinScore and MaxScore seed alpha and beta.
	MinScore = math.MinInt
	MaxScore = math.MaxInt

	// DefaultDepth starts and ends on an agent node.
	DefaultDepth = 9

	// ThrottleEmpty is the empty-cell count above which depth is halved.
	ThrottleEmpty = 8
)

// spawnValues are the tiles a placement node tries on each empty cell.
var spawnValues = [2]game.Tile{2, 4}

// Result is a chosen direction and its backed-up score. At placement nodes
// and leaves Move is a placeholder (Up).
type Result struct {
	Move  game.Direction
	Score int
}

// EffectiveDepth halves the remaining depth on open boards, where the
// placement branching factor is largest.
func EffectiveDepth(depth, empty int) int {
	if empty > ThrottleEmpty {
		return depth / 2
	}
	return depth
}

// Search picks the best direction for b looking depth plies ahead.
func Search[H heuristic.Heuristic](b game.Board, depth int, h H) Result {
	return AlphaBeta(b, depth, MinScore, MaxScore, true, true, h)
}

// AlphaBeta evaluates b. maximizing selects an agent node; moved is false when
// the parent's move did not change the board, which ends the branch.
func AlphaBeta[H heuristic.Heuristic](b game.Board, depth, alpha, beta int, maximizing, moved bool, h H) Result {
	var s searcher[H]
	s.h = h
	return s.alphaBeta(&b, depth, alpha, beta, maximizing, moved)
}

// Exhaustive is the same recursion with pruning disabled. It visits every
// node and returns the exact minimax value, so it must agree with Search.
func Exhaustive[H heuristic.Heuristic](b game.Board, depth int, h H) Result {
	s := searcher[H]{h: h, noPrune: true}
	return s.alphaBeta(&b, depth, MinScore, MaxScore, true, true)
}

// Stats counts the work done by one search.
type Stats struct {
	Nodes   int64
	Leaves  int64
	Cutoffs int64
}

type searcher[H heuristic.Heuristic] struct {
	h       H
	noPrune bool
	stats   Stats
}

func (s *searcher[H]) alphaBeta(b *game.Board, depth, alpha, beta int, maximizing, moved bool) Result {
	s.stats.Nodes++
	if depth <= 0 || !moved {
		s.stats.Leaves++
		return Result{Move: game.Up, Score: s.h.Evaluate(b)}
	}

	next := EffectiveDepth(depth, b.EmptyCount()) - 1

	if maximizing {
		best := Result{Move: game.Up, Score: MinScore}
		for _, d := range game.Directions {
			child := b.Clone()
			changed := rules.Move(&child, d)
			val := s.alphaBeta(&child, next, alpha, beta, false, changed).Score
			if best.Score < val {
				best = Result{Move: d, Score: val}
			}
			alpha = max(alpha, best.Score)
			if beta <= alpha && !s.noPrune {
				s.stats.Cutoffs++
				break
			}
		}
		return best
	}

	best := Result{Move: game.Up, Score: MaxScore}
	placed := false
	for c, t := range b.All() {
		if !t.Empty() {
			continue
		}
		placed = true
		for _, v := range spawnValues {
			child := b.Clone()
			child.Set(c, v)
			val := s.alphaBeta(&child, next, alpha, beta, true, true).Score
			if val < best.Score {
				best.Score = val
			}
			beta = min(beta, best.Score)
			if beta <= alpha && !s.noPrune {
				s.stats.Cutoffs++
				return best
			}
		}
	}
	if !placed {
		// Full board: nothing to place, score it as it stands.
		s.stats.Leaves++
		return Result{Move: game.Up, Score: s.h.Evaluate(b)}
	}
	return best
}

// Config controls a Searcher.
type Config struct {
	Depth          int
	Heuristic      heuristic.Heuristic
	DisablePruning bool
}

// Searcher runs searches with a fixed configuration and reports the work done
// by each call.
type Searcher struct {
	Config Config
}

func NewSearcher(cfg Config) *Searcher {
	if cfg.Depth <= 0 {
		cfg.Depth = DefaultDepth
	}
	if cfg.Heuristic == nil {
		cfg.Heuristic = heuristic.Default()
	}
	return &Searcher{Config: cfg}
}

// Search returns the best move for b and the node counts of this call.
func (s *Searcher) Search(b game.Board) (Result, Stats) {
	st := searcher[heuristic.Heuristic]{h: s.Config.Heuristic, noPrune: s.Config.DisablePruning}
	res := st.alphaBeta(&b, s.Config.Depth, MinScore, MaxScore, true, true)
	return res, st.stats
}
