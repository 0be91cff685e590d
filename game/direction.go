package game

import (
	"fmt"
	"strings"
)

// Direction is a sliding move. The numeric values match the order the search
// enumerates moves in, which is also the tie-break order.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Directions lists every move in enumeration order.
var Directions = [4]Direction{Up, Down, Left, Right}

var directionNames = [4]string{"up", "down", "left", "right"}

func (d Direction) String() string {
	if d < Up || d > Right {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection accepts the names produced by String and their first letter.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u":
		return Up, nil
	case "down", "d":
		return Down, nil
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	}
	return Up, fmt.Errorf("unknown direction %q", s)
}
