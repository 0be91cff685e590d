package game

import (
	"fmt"
	"strings"
)

const cellWidth = 4

// String renders the board as a box-drawn grid, blank for empty cells and
// right-aligned values otherwise. Values wider than a cell are printed as is.
func (b Board) String() string {
	var sb strings.Builder
	rule := func(left, mid, right string) {
		sb.WriteString(left)
		for x := 0; x < Size; x++ {
			sb.WriteString(strings.Repeat("─", cellWidth))
			if x < Size-1 {
				sb.WriteString(mid)
			}
		}
		sb.WriteString(right)
		sb.WriteByte('\n')
	}

	rule("┌", "┬", "┐")
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			t := b.cells[y*Size+x]
			sb.WriteString("│")
			if t.Empty() {
				sb.WriteString(strings.Repeat(" ", cellWidth))
			} else {
				fmt.Fprintf(&sb, "%*d", cellWidth, t.Value())
			}
		}
		sb.WriteString("│\n")
		if y < Size-1 {
			rule("├", "┼", "┤")
		}
	}
	rule("└", "┴", "┘")
	return sb.String()
}

// Compact renders the board on a single line, rows separated by '/', with '.'
// for empty cells. Used in log attributes.
func (b *Board) Compact() string {
	var sb strings.Builder
	for i, t := range b.cells {
		if i > 0 && i%Size == 0 {
			sb.WriteByte('/')
		} else if i > 0 {
			sb.WriteByte(' ')
		}
		if t.Empty() {
			sb.WriteByte('.')
		} else {
			fmt.Fprintf(&sb, "%d", t.Value())
		}
	}
	return sb.String()
}
