// Package game defines the core board types for 2048.
//
// A Board is a fixed 4x4 grid of tiles stored by value. Copying a Board copies
// every cell, which is what the search relies on when it explores hypothetical
// continuations: each branch owns its own clone.
package game

import (
	"errors"
	"fmt"
	"iter"
	"math/bits"
)

const (
	// Size is the side length of the board.
	Size = 4
	// Cells is the number of cells on the board.
	Cells = Size * Size
)

var ErrInvalidTile = errors.New("invalid tile value")

// Tile is a single cell value. Zero means empty.
type Tile int32

// TileOf converts a plain integer into a Tile.
func TileOf(v int) Tile { return Tile(v) }

func (t Tile) Value() int  { return int(t) }
func (t Tile) Empty() bool { return t == 0 }

// Rank is log2 of the tile value (2 -> 1, 4 -> 2, ...), 0 for an empty cell.
func (t Tile) Rank() int {
	if t <= 0 {
		return 0
	}
	return bits.Len32(uint32(t)) - 1
}

// Valid reports whether t is empty or a power of two >= 2.
func (t Tile) Valid() bool {
	if t == 0 {
		return true
	}
	return t >= 2 && t&(t-1) == 0
}

// Coord identifies one of the 16 cells. Coordinates are row-major: y*4+x,
// with (0,0) in the top-left corner.
type Coord uint8

// CoordOf panics when x or y is outside [0,4).
func CoordOf(x, y int) Coord {
	if x < 0 || x >= Size || y < 0 || y >= Size {
		panic(fmt.Sprintf("coordinate (%d,%d) out of range", x, y))
	}
	return Coord(y*Size + x)
}

func (c Coord) XY() (x, y int) { return int(c) % Size, int(c) / Size }
func (c Coord) Valid() bool    { return c < Cells }

func (c Coord) String() string {
	x, y := c.XY()
	return fmt.Sprintf("(%d,%d)", x, y)
}

// Board is the complete 4x4 arrangement of tiles.
type Board struct {
	cells [Cells]Tile
}

// NewBoard returns a board with every cell empty.
func NewBoard() Board {
	return Board{}
}

// FromRows builds a board from row-major values, rows[y][x].
func FromRows(rows [Size][Size]int) (Board, error) {
	var b Board
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			t := TileOf(rows[y][x])
			if !t.Valid() {
				return Board{}, fmt.Errorf("%w: %d at (%d,%d)", ErrInvalidTile, rows[y][x], x, y)
			}
			b.cells[y*Size+x] = t
		}
	}
	return b, nil
}

// MustFromRows is FromRows for fixtures known to be valid.
func MustFromRows(rows [Size][Size]int) Board {
	b, err := FromRows(rows)
	if err != nil {
		panic(err)
	}
	return b
}

// Rows returns the board as rows[y][x].
func (b *Board) Rows() [Size][Size]int {
	var rows [Size][Size]int
	for i, t := range b.cells {
		rows[i/Size][i%Size] = t.Value()
	}
	return rows
}

func (b *Board) At(c Coord) Tile { return b.cells[c] }

func (b *Board) Get(x, y int) Tile { return b.cells[CoordOf(x, y)] }

// Set overwrites a single cell. c must be Valid.
func (b *Board) Set(c Coord, t Tile) {
	b.cells[c] = t
}

// Clone returns an independent copy of the board.
func (b *Board) Clone() Board {
	return *b
}

// All iterates cells in coordinate order.
func (b *Board) All() iter.Seq2[Coord, Tile] {
	return func(yield func(Coord, Tile) bool) {
		for i, t := range b.cells {
			if !yield(Coord(i), t) {
				return
			}
		}
	}
}

func (b *Board) EmptyCount() int {
	n := 0
	for _, t := range b.cells {
		if t.Empty() {
			n++
		}
	}
	return n
}

// EmptyCoords returns the coordinates of every empty cell in coordinate order.
func (b *Board) EmptyCoords() []Coord {
	out := make([]Coord, 0, Cells)
	for i, t := range b.cells {
		if t.Empty() {
			out = append(out, Coord(i))
		}
	}
	return out
}

// Total is the sum of all tile values.
func (b *Board) Total() int {
	sum := 0
	for _, t := range b.cells {
		sum += t.Value()
	}
	return sum
}

func (b *Board) MaxTile() Tile {
	var best Tile
	for _, t := range b.cells {
		if t > best {
			best = t
		}
	}
	return best
}

// Values returns the 16 cell values in coordinate order.
func (b *Board) Values() []int32 {
	out := make([]int32, Cells)
	for i, t := range b.cells {
		out[i] = int32(t)
	}
	return out
}

// FromValues is the inverse of Values.
func FromValues(vals []int32) (Board, error) {
	if len(vals) != Cells {
		return Board{}, fmt.Errorf("board needs %d values, got %d", Cells, len(vals))
	}
	var b Board
	for i, v := range vals {
		t := Tile(v)
		if !t.Valid() {
			return Board{}, fmt.Errorf("%w: %d at index %d", ErrInvalidTile, v, i)
		}
		b.cells[i] = t
	}
	return b, nil
}
