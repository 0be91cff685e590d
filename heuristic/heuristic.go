// Package heuristic provides the static evaluators applied at search leaves.
//
// Every evaluator is pure: it reads the board and returns a score where higher
// is better for the agent. They are safe to call on hypothetical boards.
package heuristic

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/brensch/tile2048/game"
)

var ErrUnknownHeuristic = errors.New("unknown heuristic")

// Heuristic scores a board.
type Heuristic interface {
	Evaluate(b *game.Board) int
	Name() string
}

// EmptyCells counts empty cells.
type EmptyCells struct{}

func (EmptyCells) Name() string { return "empty" }

func (EmptyCells) Evaluate(b *game.Board) int {
	return b.EmptyCount()
}

// WeightedSum sums tile values, counting each empty cell as EmptyBonus.
type WeightedSum struct {
	EmptyBonus int
}

func (WeightedSum) Name() string { return "weighted" }

func (h WeightedSum) Evaluate(b *game.Board) int {
	sum := 0
	for _, t := range b.All() {
		if t.Empty() {
			sum += h.EmptyBonus
		} else {
			sum += t.Value()
		}
	}
	return sum
}

// SumOfSquares sums the square of every tile value, counting each empty cell
// as EmptyBonus. Squaring rewards keeping value concentrated in few tiles.
type SumOfSquares struct {
	EmptyBonus int
}

func (h SumOfSquares) Name() string {
	if h.EmptyBonus != 0 {
		return "squares-bonus"
	}
	return "squares"
}

func (h SumOfSquares) Evaluate(b *game.Board) int {
	sum := 0
	for _, t := range b.All() {
		if t.Empty() {
			sum += h.EmptyBonus
			continue
		}
		v := t.Value()
		sum += v * v
	}
	return sum
}

// Func adapts a plain function to Heuristic.
type Func struct {
	Label string
	Fn    func(b *game.Board) int
}

func (f Func) Name() string                { return f.Label }
func (f Func) Evaluate(b *game.Board) int { return f.Fn(b) }

const (
	DefaultEmptyBonus   = 256
	DefaultSquaresBonus = 1024
)

var registry = map[string]Heuristic{
	"empty":         EmptyCells{},
	"weighted":      WeightedSum{EmptyBonus: DefaultEmptyBonus},
	"squares":       SumOfSquares{},
	"squares-bonus": SumOfSquares{EmptyBonus: DefaultSquaresBonus},
}

// Default is the evaluator used for steady-state play.
func Default() Heuristic {
	return SumOfSquares{}
}

// ByName looks up a registered heuristic. Names are case-insensitive.
func ByName(name string) (Heuristic, error) {
	h, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownHeuristic, name, strings.Join(Names(), ", "))
	}
	return h, nil
}

// Names lists registered heuristics in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
