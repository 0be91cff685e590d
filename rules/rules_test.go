package rules

import (
	"math/rand"
	"testing"

	"github.com/brensch/tile2048/game"
)

func rowBoard(row [4]int) game.Board {
	return game.MustFromRows([4][4]int{row})
}

func logMove(t *testing.T, name string, before game.Board, d game.Direction, after game.Board) {
	t.Helper()
	t.Logf("=== %s ===\nBefore:\n%sMove: %s\nAfter:\n%s", name, before, d, after)
}

func TestMove_LineCases(t *testing.T) {
	cases := []struct {
		name    string
		in      [4]int
		want    [4]int
		changed bool
	}{
		{"pair merges", [4]int{2, 2, 0, 0}, [4]int{4, 0, 0, 0}, true},
		{"merge once per move", [4]int{2, 2, 2, 2}, [4]int{4, 4, 0, 0}, true},
		{"packed unmergeable", [4]int{2, 4, 2, 4}, [4]int{2, 4, 2, 4}, false},
		{"gap squashed", [4]int{0, 0, 0, 2}, [4]int{2, 0, 0, 0}, true},
		{"gap between equal", [4]int{2, 0, 0, 2}, [4]int{4, 0, 0, 0}, true},
		{"leading pair wins", [4]int{2, 2, 2, 0}, [4]int{4, 2, 0, 0}, true},
		{"no chain into merged", [4]int{4, 4, 8, 0}, [4]int{8, 8, 0, 0}, true},
		{"two different pairs", [4]int{2, 2, 4, 4}, [4]int{4, 8, 0, 0}, true},
		{"already compact", [4]int{8, 4, 0, 0}, [4]int{8, 4, 0, 0}, false},
		{"empty line", [4]int{0, 0, 0, 0}, [4]int{0, 0, 0, 0}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := rowBoard(tc.in)
			b := before
			changed := Move(&b, game.Left)
			logMove(t, tc.name, before, game.Left, b)
			if changed != tc.changed {
				t.Fatalf("changed=%v want=%v", changed, tc.changed)
			}
			if got := b.Rows()[0]; got != tc.want {
				t.Fatalf("row=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestMove_SecondMoveIsNoop(t *testing.T) {
	b := rowBoard([4]int{2, 2, 0, 0})
	if !Move(&b, game.Left) {
		t.Fatalf("first move reported no change")
	}
	if got := b.Rows()[0]; got != [4]int{4, 0, 0, 0} {
		t.Fatalf("row=%v want=[4 0 0 0]", got)
	}
	if Move(&b, game.Left) {
		t.Fatalf("second move reported a change: %s", b.Compact())
	}
}

func TestMove_AllDirections(t *testing.T) {
	start := game.MustFromRows([4][4]int{
		{2, 0, 0, 2},
		{0, 4, 0, 0},
		{0, 4, 0, 0},
		{8, 0, 0, 8},
	})

	cases := []struct {
		d    game.Direction
		want [4][4]int
	}{
		{game.Up, [4][4]int{
			{2, 8, 0, 2},
			{8, 0, 0, 8},
			{0, 0, 0, 0},
			{0, 0, 0, 0},
		}},
		{game.Down, [4][4]int{
			{0, 0, 0, 0},
			{0, 0, 0, 0},
			{2, 0, 0, 2},
			{8, 8, 0, 8},
		}},
		{game.Left, [4][4]int{
			{4, 0, 0, 0},
			{4, 0, 0, 0},
			{4, 0, 0, 0},
			{16, 0, 0, 0},
		}},
		{game.Right, [4][4]int{
			{0, 0, 0, 4},
			{0, 0, 0, 4},
			{0, 0, 0, 4},
			{0, 0, 0, 16},
		}},
	}

	for _, tc := range cases {
		b := start
		if !Move(&b, tc.d) {
			t.Fatalf("%s: reported no change", tc.d)
		}
		logMove(t, tc.d.String(), start, tc.d, b)
		if got := b.Rows(); got != tc.want {
			t.Fatalf("%s: rows=%v want=%v", tc.d, got, tc.want)
		}
	}
}

func TestMove_MergeConservesTotal(t *testing.T) {
	for _, d := range game.Directions {
		for line := 0; line < 4; line++ {
			for pos := 0; pos < 3; pos++ {
				var rows [4][4]int
				// Place two adjacent 8s along the travel axis.
				if d == game.Left || d == game.Right {
					rows[line][pos] = 8
					rows[line][pos+1] = 8
				} else {
					rows[pos][line] = 8
					rows[pos+1][line] = 8
				}
				b := game.MustFromRows(rows)
				before := b
				if !Move(&b, d) {
					t.Fatalf("%s line=%d pos=%d: no change", d, line, pos)
				}
				if b.Total() != before.Total() {
					t.Fatalf("%s line=%d pos=%d: total=%d want=%d", d, line, pos, b.Total(), before.Total())
				}
				if got := game.Cells - b.EmptyCount(); got != 1 {
					t.Fatalf("%s line=%d pos=%d: tiles=%d want=1", d, line, pos, got)
				}
			}
		}
	}
}

func TestMove_RandomBoardsConserveTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 500; trial++ {
		b := game.NewBoard()
		for i := 0; i < 10; i++ {
			game.Spawn(&b, rng)
		}
		for _, d := range game.Directions {
			after := b
			Move(&after, d)
			if after.Total() != b.Total() {
				t.Fatalf("trial %d %s: total %d -> %d", trial, d, b.Total(), after.Total())
			}
			again := after
			Move(&again, d)
			if again.Total() != after.Total() {
				t.Fatalf("trial %d %s: second move changed total", trial, d)
			}
		}
	}
}

func TestMoveWithScore(t *testing.T) {
	b := rowBoard([4]int{2, 2, 4, 4})
	changed, gained := MoveWithScore(&b, game.Left)
	if !changed {
		t.Fatalf("no change")
	}
	if gained != 12 {
		t.Fatalf("gained=%d want=12", gained)
	}

	b = rowBoard([4]int{0, 2, 0, 4})
	_, gained = MoveWithScore(&b, game.Left)
	if gained != 0 {
		t.Fatalf("slide-only gained=%d want=0", gained)
	}
}

func TestTerminalBoard(t *testing.T) {
	b := game.MustFromRows([4][4]int{
		{2, 4, 2, 4},
		{4, 2, 4, 2},
		{2, 4, 2, 4},
		{4, 2, 4, 2},
	})
	for _, d := range game.Directions {
		after := b
		if Move(&after, d) {
			t.Fatalf("%s changed a terminal board", d)
		}
	}
	if !IsGameOver(b) {
		t.Fatalf("IsGameOver=false want=true")
	}
	if moves := LegalMoves(b); len(moves) != 0 {
		t.Fatalf("legal moves=%v want none", moves)
	}
	if game.Spawn(&b, rand.New(rand.NewSource(1))) {
		t.Fatalf("spawn succeeded on terminal board")
	}
}

func TestLegalMoves_Order(t *testing.T) {
	// A single tile in the top-left corner can only go down or right.
	b := game.MustFromRows([4][4]int{{2, 0, 0, 0}})
	moves := LegalMoves(b)
	want := []game.Direction{game.Down, game.Right}
	if len(moves) != len(want) {
		t.Fatalf("moves=%v want=%v", moves, want)
	}
	for i := range want {
		if moves[i] != want[i] {
			t.Fatalf("moves=%v want=%v", moves, want)
		}
	}
	if IsGameOver(b) {
		t.Fatalf("IsGameOver=true on open board")
	}
}

func TestMoved_LeavesInputUntouched(t *testing.T) {
	b := rowBoard([4]int{0, 0, 2, 2})
	out, ok := Moved(b, game.Left)
	if !ok {
		t.Fatalf("no change")
	}
	if b.Rows()[0] != [4]int{0, 0, 2, 2} {
		t.Fatalf("input mutated: %v", b.Rows()[0])
	}
	if out.Rows()[0] != [4]int{4, 0, 0, 0} {
		t.Fatalf("out=%v", out.Rows()[0])
	}
}

func BenchmarkMove(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	board := game.NewBoard()
	for i := 0; i < 8; i++ {
		game.Spawn(&board, rng)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tmp := board
		Move(&tmp, game.Directions[i%4])
	}
}
