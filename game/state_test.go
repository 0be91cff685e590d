package game

import (
	"errors"
	"strings"
	"testing"
)

func TestNewBoard_AllEmpty(t *testing.T) {
	b := NewBoard()
	if n := b.EmptyCount(); n != Cells {
		t.Fatalf("empty=%d want=%d", n, Cells)
	}
	if b.Total() != 0 {
		t.Fatalf("total=%d want=0", b.Total())
	}
	for c, tile := range b.All() {
		if !tile.Empty() {
			t.Fatalf("cell %v=%d want empty", c, tile)
		}
	}
}

func TestCoord_RoundTrip(t *testing.T) {
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			c := CoordOf(x, y)
			if !c.Valid() {
				t.Fatalf("coord %v not valid", c)
			}
			gx, gy := c.XY()
			if gx != x || gy != y {
				t.Fatalf("CoordOf(%d,%d).XY()=(%d,%d)", x, y, gx, gy)
			}
		}
	}
	if Coord(Cells).Valid() {
		t.Fatalf("coord %d should be invalid", Cells)
	}
}

func TestCoordOf_PanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for (4,0)")
		}
	}()
	CoordOf(4, 0)
}

func TestTile_RankAndValid(t *testing.T) {
	cases := []struct {
		tile  Tile
		rank  int
		valid bool
	}{
		{0, 0, true},
		{2, 1, true},
		{4, 2, true},
		{2048, 11, true},
		{3, 1, false},
		{1, 0, false},
		{-2, 0, false},
	}
	for _, tc := range cases {
		if got := tc.tile.Rank(); got != tc.rank {
			t.Errorf("Tile(%d).Rank()=%d want=%d", tc.tile, got, tc.rank)
		}
		if got := tc.tile.Valid(); got != tc.valid {
			t.Errorf("Tile(%d).Valid()=%v want=%v", tc.tile, got, tc.valid)
		}
	}
}

func TestFromRows_RejectsInvalidTile(t *testing.T) {
	_, err := FromRows([Size][Size]int{{2, 3, 0, 0}})
	if !errors.Is(err, ErrInvalidTile) {
		t.Fatalf("err=%v want ErrInvalidTile", err)
	}
}

func TestBoard_CloneIsIndependent(t *testing.T) {
	b := MustFromRows([Size][Size]int{{2, 0, 0, 0}})
	c := b.Clone()
	c.Set(CoordOf(1, 0), 4)
	if b.Get(1, 0) != 0 {
		t.Fatalf("original mutated through clone")
	}
	if c.Get(0, 0) != 2 || c.Get(1, 0) != 4 {
		t.Fatalf("clone=%s", c.Compact())
	}
}

func TestBoard_Stats(t *testing.T) {
	b := MustFromRows([Size][Size]int{
		{2, 4, 0, 0},
		{0, 0, 0, 0},
		{0, 128, 0, 0},
		{0, 0, 0, 8},
	})
	if got := b.Total(); got != 142 {
		t.Fatalf("total=%d want=142", got)
	}
	if got := b.MaxTile(); got != 128 {
		t.Fatalf("max=%d want=128", got)
	}
	if got := b.EmptyCount(); got != 12 {
		t.Fatalf("empty=%d want=12", got)
	}
	coords := b.EmptyCoords()
	if len(coords) != 12 || coords[0] != CoordOf(2, 0) {
		t.Fatalf("empty coords=%v", coords)
	}
	if b.Rows() != [Size][Size]int{{2, 4, 0, 0}, {0, 0, 0, 0}, {0, 128, 0, 0}, {0, 0, 0, 8}} {
		t.Fatalf("rows=%v", b.Rows())
	}
}

func TestBoard_ValuesRoundTrip(t *testing.T) {
	b := MustFromRows([Size][Size]int{{2, 0, 0, 0}, {0, 16, 0, 0}})
	got, err := FromValues(b.Values())
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	if got != b {
		t.Fatalf("got=%s want=%s", got.Compact(), b.Compact())
	}
	if _, err := FromValues([]int32{2, 2}); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestBoard_String(t *testing.T) {
	b := MustFromRows([Size][Size]int{
		{2, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 1024, 0},
		{0, 0, 0, 4},
	})
	out := b.String()
	t.Logf("\n%s", out)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 9 {
		t.Fatalf("lines=%d want=9", len(lines))
	}
	if lines[0] != "┌────┬────┬────┬────┐" {
		t.Fatalf("top border=%q", lines[0])
	}
	if lines[1] != "│   2│    │    │    │" {
		t.Fatalf("row0=%q", lines[1])
	}
	if lines[5] != "│    │    │1024│    │" {
		t.Fatalf("row2=%q", lines[5])
	}
	if lines[8] != "└────┴────┴────┴────┘" {
		t.Fatalf("bottom border=%q", lines[8])
	}
}

func TestBoard_Compact(t *testing.T) {
	b := MustFromRows([Size][Size]int{{2, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 4}})
	if got, want := b.Compact(), "2 . . ./. . . ./. . . ./. . . 4"; got != want {
		t.Fatalf("compact=%q want=%q", got, want)
	}
}

func TestParseDirection(t *testing.T) {
	for _, d := range Directions {
		got, err := ParseDirection(strings.ToUpper(d.String()))
		if err != nil || got != d {
			t.Fatalf("ParseDirection(%q)=%v,%v", d.String(), got, err)
		}
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Fatalf("expected error")
	}
}
