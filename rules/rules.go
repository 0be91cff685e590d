package rules

import (
	"github.com/brensch/tile2048/game"
)

// line walks the four cells of one row or column in a direction's travel
// order: the cell at position n is start + n*step + off.
type line struct {
	start, step, off int
}

func lineFor(d game.Direction, n int) line {
	switch d {
	case game.Up:
		return line{start: 0, step: game.Size, off: n}
	case game.Down:
		return line{start: game.Cells - game.Size, step: -game.Size, off: n}
	case game.Left:
		return line{start: 0, step: 1, off: n * game.Size}
	case game.Right:
		return line{start: game.Size - 1, step: -1, off: n * game.Size}
	}
	panic("bad direction")
}

func (l line) at(n int) game.Coord {
	return game.Coord(l.start + n*l.step + l.off)
}

// squash slides every tile toward the leading edge, removing gaps and keeping
// relative order.
func squash(b *game.Board, l line) {
	for n := 0; n < game.Size; n++ {
		i := l.at(n)
		if !b.At(i).Empty() {
			continue
		}
		for m := n + 1; m < game.Size; m++ {
			j := l.at(m)
			if t := b.At(j); !t.Empty() {
				b.Set(i, t)
				b.Set(j, 0)
				break
			}
		}
	}
}

// merge doubles each tile equal to its predecessor and empties the follower.
// The merged cell is compared against an emptied cell next, so a tile merges
// at most once per move. Returns the sum of the merged values.
func merge(b *game.Board, l line) int {
	gained := 0
	prev := l.at(0)
	for n := 1; n < game.Size; n++ {
		i := l.at(n)
		if p := b.At(prev); !p.Empty() && p == b.At(i) {
			b.Set(prev, p*2)
			b.Set(i, 0)
			gained += int(p * 2)
		}
		prev = i
	}
	return gained
}

// Move applies d to b in place and reports whether anything changed. An
// unchanged board means the move is illegal.
func Move(b *game.Board, d game.Direction) bool {
	changed, _ := MoveWithScore(b, d)
	return changed
}

// MoveWithScore is Move that also returns the points the move earned, which is
// the sum of every tile created by a merge.
func MoveWithScore(b *game.Board, d game.Direction) (bool, int) {
	before := *b
	gained := 0
	for n := 0; n < game.Size; n++ {
		l := lineFor(d, n)
		squash(b, l)
		gained += merge(b, l)
		squash(b, l)
	}
	return *b != before, gained
}

// Moved returns the result of applying d to a copy of b.
func Moved(b game.Board, d game.Direction) (game.Board, bool) {
	changed := Move(&b, d)
	return b, changed
}

// LegalMoves returns every direction that changes the board, in enumeration order.
func LegalMoves(b game.Board) []game.Direction {
	moves := make([]game.Direction, 0, 4)
	for _, d := range game.Directions {
		if _, ok := Moved(b, d); ok {
			moves = append(moves, d)
		}
	}
	return moves
}

// IsGameOver returns true if no direction changes the board.
func IsGameOver(b game.Board) bool {
	for _, d := range game.Directions {
		if _, ok := Moved(b, d); ok {
			return false
		}
	}
	return true
}
