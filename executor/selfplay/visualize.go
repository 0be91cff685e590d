// visualize.go - console output for watching self-play games.
package selfplay

import (
	"fmt"
	"strings"

	"github.com/brensch/tile2048/game"
)

// FormatBoard renders b with a one-line summary above the grid.
func FormatBoard(b game.Board) string {
	return fmt.Sprintf("total=%d max=%d empty=%d\n%s", b.Total(), b.MaxTile().Value(), b.EmptyCount(), b)
}

// FormatTrace is the periodic trace block written while a game runs.
func FormatTrace(moves, score int, b game.Board) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n=== TRACE move %d score %d ===\n", moves, score)
	sb.WriteString(FormatBoard(b))
	return sb.String()
}
